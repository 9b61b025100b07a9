package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	gosync "sync"
	"syscall"
	"time"

	"golang.org/x/exp/slog"

	"docsync/internal/app/client/config"
	"docsync/internal/domain/backend"
	"docsync/internal/domain/sync"
)

// Storage локальное хранилище клиента: блобы движка плюс закрытие
type Storage interface {
	sync.BlobStore
	Close() error
}

type App struct {
	config     *config.Config
	log        *slog.Logger
	httpClient *httpClient
	storage    Storage
	repo       *sync.Repository
	state      *AppState
	wg         gosync.WaitGroup
	cancel     context.CancelFunc
	mu         gosync.RWMutex
}

// AppState хранит состояние приложения
type AppState struct {
	LastSync       time.Time `json:"last_sync"`
	DocumentsCount int       `json:"documents_count"`
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	state, err := loadAppState(cfg)
	if err != nil {
		log.Warn("Не удалось загрузить состояние приложения", "error", err)
		state = &AppState{}
	}

	// Инициализируем HTTP клиент
	httpCl, err := NewHTTPClient(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации HTTP клиента: %w", err)
	}

	// Инициализируем локальное хранилище (используем SQLite)
	var storage Storage
	sqliteStorage, err := NewSQLiteStorage(cfg.DataPath)
	if err != nil {
		log.Warn("Не удалось инициализировать SQLite, используем память", "error", err)
		storage = NewMemoryStorage()
	} else {
		storage = sqliteStorage
	}

	repo, err := sync.NewRepository(ctx, sync.Config{
		Collection:   cfg.Collection,
		Store:        storage,
		Remote:       httpCl,
		Resolver:     resolverFor(cfg, log),
		ScopeID:      cfg.ScopeID,
		TombstoneTTL: time.Duration(cfg.TombstoneTTL) * time.Hour,
		Log:          log,
	})
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("ошибка инициализации репозитория: %w", err)
	}

	return &App{
		config:     cfg,
		log:        log,
		httpClient: httpCl,
		storage:    storage,
		repo:       repo,
		state:      state,
	}, nil
}

// resolverFor подбирает стратегию разрешения конфликтов по конфигурации
func resolverFor(cfg *config.Config, log *slog.Logger) sync.Resolver {
	switch cfg.ConflictStrategy {
	case "server":
		return sync.ServerWins{}
	case "client":
		return sync.ClientWins{}
	case "field-merge":
		return sync.FieldMerge{}
	case "manual":
		return sync.Manual{Decide: terminalDecision(log)}
	case "lww":
		return sync.LastWriteWins{PreferLocal: cfg.PreferLocalOnTie}
	default:
		return sync.DefaultResolver()
	}
}

func loadAppState(cfg *config.Config) (*AppState, error) {
	statePath := cfg.ConfigDir + "/state.json"

	if _, err := os.Stat(statePath); os.IsNotExist(err) {
		return &AppState{}, nil
	}

	data, err := os.ReadFile(statePath)
	if err != nil {
		return nil, err
	}

	var state AppState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}

	return &state, nil
}

func (a *App) saveAppState() error {
	statePath := a.config.ConfigDir + "/state.json"
	data, err := json.MarshalIndent(a.state, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(statePath, data, 0600)
}

// Config возвращает конфигурацию клиента
func (a *App) Config() *config.Config {
	return a.config
}

// Log возвращает логгер приложения
func (a *App) Log() *slog.Logger {
	return a.log
}

// Repository возвращает репозиторий коллекции
func (a *App) Repository() *sync.Repository {
	return a.repo
}

// ServerStatus возвращает сводку по коллекции со стороны сервера
func (a *App) ServerStatus(ctx context.Context) (*backend.CollectionStatus, error) {
	return a.httpClient.CollectionStatus(ctx, a.config.Collection)
}

// CheckConnection проверяет соединение с сервером
func (a *App) CheckConnection() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return a.httpClient.HealthCheck(ctx)
}

// SyncNow выполняет один цикл синхронизации и обновляет состояние приложения
func (a *App) SyncNow(ctx context.Context) *sync.Result {
	res := a.repo.SyncNow(ctx)
	if res.Err == nil && !res.Skipped {
		a.mu.Lock()
		a.state.LastSync = res.StartTime
		a.state.DocumentsCount = len(a.repo.GetAll())
		a.mu.Unlock()

		if err := a.saveAppState(); err != nil {
			a.log.Warn("Не удалось сохранить состояние приложения", "error", err)
		}
	}
	return res
}

// FullSync сбрасывает локальный кэш и заново вытягивает коллекцию
func (a *App) FullSync(ctx context.Context) error {
	if err := a.repo.FullSync(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	a.state.LastSync = time.Now().UTC()
	a.state.DocumentsCount = len(a.repo.GetAll())
	a.mu.Unlock()

	if err := a.saveAppState(); err != nil {
		a.log.Warn("Не удалось сохранить состояние приложения", "error", err)
	}
	return nil
}

// StartAutoSync запускает фоновую периодическую синхронизацию
func (a *App) StartAutoSync() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.autoSync(ctx)
	}()
}

func (a *App) autoSync(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(a.config.SyncInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Info("Синхронизация остановлена")
			return
		case <-ticker.C:
			if res := a.SyncNow(ctx); res.Err != nil {
				a.log.Error("Ошибка синхронизации", "error", res.Err)
			}
		}
	}
}

func (a *App) handleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	a.log.Info("Получен сигнал остановки")
	if a.cancel != nil {
		a.cancel()
	}
}

// Run блокирует до остановки фоновой синхронизации по сигналу
func (a *App) Run() error {
	a.StartAutoSync()
	go a.handleSignals()

	a.log.Info("Клиент запущен",
		"server", a.config.ServerAddress,
		"collection", a.config.Collection,
		"env", a.config.Env,
	)

	a.wg.Wait()
	return nil
}

// Close останавливает фоновые задачи и закрывает хранилище
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	return a.storage.Close()
}
