package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	gosync "sync"
	"sync/atomic"
	"time"

	"golang.org/x/exp/slog"

	"docsync/internal/domain/document"
)

const (
	defaultTombstoneTTL = 30 * 24 * time.Hour
	maxPullWorkers      = 4
	watchBuffer         = 16
)

// Config параметры репозитория синхронизации
type Config struct {
	// Collection имя коллекции; репозиторий владеет ею монопольно
	Collection string
	// Store локальная персистентность кэша, очереди и метаданных
	Store BlobStore
	// Remote подключенный бэкенд
	Remote RemoteDataSource
	// Resolver стратегия разрешения конфликтов (по умолчанию LastWriteWins)
	Resolver Resolver
	// ScopeID опциональный раздел бэкенда (тенант, пользователь)
	ScopeID string
	// TombstoneTTL срок удержания tombstone после подтвержденного удаления
	TombstoneTTL time.Duration
	Log          *slog.Logger
}

// Result итог одного цикла синхронизации
type Result struct {
	Skipped   bool          `json:"skipped"`
	Pushed    int           `json:"pushed"`
	Pulled    int           `json:"pulled"`
	Conflicts int           `json:"conflicts"`
	Pruned    int           `json:"pruned"`
	Err       error         `json:"-"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
}

type syncMeta struct {
	LastSyncedAt time.Time `json:"last_synced_at"`
}

// Repository - единственный оркестратор коллекции: владеет локальным кэшем,
// принимает мутации приложения, гонит циклы push/pull, делегирует конфликты
// стратегии разрешения и ведет машину состояний. Кэш и очередь не
// рассчитаны на конкурентную мутацию извне - все мутации сериализуются
// внутри методов репозитория.
type Repository struct {
	collection   string
	store        BlobStore
	remote       RemoteDataSource
	resolver     Resolver
	scopeID      string
	tombstoneTTL time.Duration
	log          *slog.Logger

	queue   *Queue
	machine *StateMachine

	mu           gosync.Mutex
	cache        map[string]document.Document
	lastSyncedAt time.Time
	watchers     map[int]chan []document.Document
	nextWatcher  int

	syncing atomic.Bool
}

// NewRepository создает репозиторий коллекции и восстанавливает его
// состояние (кэш, очередь, метаданные) из локального хранилища
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if cfg.Remote == nil {
		return nil, fmt.Errorf("remote data source is required")
	}
	if cfg.Resolver == nil {
		cfg.Resolver = DefaultResolver()
	}
	if cfg.TombstoneTTL <= 0 {
		cfg.TombstoneTTL = defaultTombstoneTTL
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	r := &Repository{
		collection:   cfg.Collection,
		store:        cfg.Store,
		remote:       cfg.Remote,
		resolver:     cfg.Resolver,
		scopeID:      cfg.ScopeID,
		tombstoneTTL: cfg.TombstoneTTL,
		log:          cfg.Log.With("collection", cfg.Collection, "remote", cfg.Remote.Name()),
		cache:        make(map[string]document.Document),
		watchers:     make(map[int]chan []document.Document),
	}

	if err := r.hydrate(ctx); err != nil {
		return nil, err
	}

	queue, err := NewQueue(ctx, cfg.Store, cfg.Collection)
	if err != nil {
		return nil, err
	}
	r.queue = queue
	r.machine = NewStateMachine(queue.Len())

	r.log.Debug("Репозиторий восстановлен",
		"documents", len(r.cache),
		"pending", queue.Len(),
	)
	return r, nil
}

func (r *Repository) cacheKey() string { return "cache:" + r.collection }
func (r *Repository) metaKey() string  { return "meta:" + r.collection }

func (r *Repository) hydrate(ctx context.Context) error {
	data, err := r.store.Get(ctx, r.cacheKey())
	if err != nil {
		return fmt.Errorf("load cache: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &r.cache); err != nil {
			return fmt.Errorf("decode cache: %w", err)
		}
	}

	data, err = r.store.Get(ctx, r.metaKey())
	if err != nil {
		return fmt.Errorf("load sync metadata: %w", err)
	}
	if len(data) > 0 {
		var meta syncMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return fmt.Errorf("decode sync metadata: %w", err)
		}
		r.lastSyncedAt = meta.LastSyncedAt
	}
	return nil
}

// Create добавляет документ в кэш и ставит изменение в очередь отправки.
// Пустой id назначается движком. Сеть не затрагивается.
func (r *Repository) Create(ctx context.Context, id string, fields document.Fields) (document.Document, error) {
	now := time.Now().UTC()
	if id == "" {
		id = document.NewID()
	}

	doc := document.Document{
		ID:         id,
		Fields:     fields.Clone(),
		UpdatedAt:  now,
		Version:    1,
		FieldTimes: make(map[string]time.Time, len(fields)),
	}
	for name := range fields {
		doc.FieldTimes[name] = now
	}

	r.mu.Lock()
	r.cache[doc.ID] = doc
	persistErr := r.persistCacheLocked(ctx)
	r.mu.Unlock()

	enqErr := r.queue.Enqueue(ctx, document.NewChange(document.OpCreate, doc, now))
	r.machine.SetPending(r.queue.Len())
	r.emit()

	if persistErr != nil {
		r.log.Warn("Сбой сохранения кэша", "error", persistErr)
		return doc.Clone(), persistErr
	}
	if enqErr != nil {
		r.log.Warn("Сбой сохранения очереди", "error", enqErr)
		return doc.Clone(), enqErr
	}
	r.log.Debug("Документ создан", "id", doc.ID, "version", doc.Version)
	return doc.Clone(), nil
}

// Update накладывает частичные поля на существующий документ.
// Возвращает document.ErrNotFound, если документа нет в кэше или он
// помечен удаленным.
func (r *Repository) Update(ctx context.Context, id string, partial document.Fields) (document.Document, error) {
	r.mu.Lock()
	existing, ok := r.cache[id]
	if !ok || existing.IsDeleted {
		r.mu.Unlock()
		return document.Document{}, fmt.Errorf("%w: %s", document.ErrNotFound, id)
	}

	now := time.Now().UTC()
	if now.Before(existing.UpdatedAt) {
		// updated_at не откатывается назад локальной записью
		now = existing.UpdatedAt
	}

	doc := existing.Clone()
	if doc.FieldTimes == nil {
		doc.FieldTimes = make(map[string]time.Time, len(partial))
	}
	for name, val := range partial {
		doc.Fields[name] = val.Clone()
		doc.FieldTimes[name] = now
	}
	doc.Version++
	doc.UpdatedAt = now

	r.cache[id] = doc
	persistErr := r.persistCacheLocked(ctx)
	r.mu.Unlock()

	enqErr := r.queue.Enqueue(ctx, document.NewChange(document.OpUpdate, doc, now))
	r.machine.SetPending(r.queue.Len())
	r.emit()

	if persistErr != nil {
		return doc.Clone(), persistErr
	}
	if enqErr != nil {
		return doc.Clone(), enqErr
	}
	r.log.Debug("Документ обновлен", "id", id, "version", doc.Version)
	return doc.Clone(), nil
}

// Delete помечает документ удаленным (tombstone). Повторное или нацеленное
// на отсутствующий id удаление - no-op без постановки в очередь.
// Физически документ остается в кэше до подтверждения удаления бэкендом.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	existing, ok := r.cache[id]
	if !ok || existing.IsDeleted {
		r.mu.Unlock()
		return nil
	}

	now := time.Now().UTC()
	if now.Before(existing.UpdatedAt) {
		now = existing.UpdatedAt
	}

	doc := existing.Clone()
	doc.IsDeleted = true
	doc.Version++
	doc.UpdatedAt = now

	r.cache[id] = doc
	persistErr := r.persistCacheLocked(ctx)
	r.mu.Unlock()

	enqErr := r.queue.Enqueue(ctx, document.NewChange(document.OpDelete, doc, now))
	r.machine.SetPending(r.queue.Len())
	r.emit()

	if persistErr != nil {
		return persistErr
	}
	if enqErr != nil {
		return enqErr
	}
	r.log.Debug("Документ помечен удаленным", "id", id)
	return nil
}

// GetAll возвращает все неудаленные документы, отсортированные по id.
// Чтение синхронное, без точек приостановки.
func (r *Repository) GetAll() []document.Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// GetByID возвращает документ по id. Для отсутствующих и удаленных
// документов возвращает ok == false.
func (r *Repository) GetByID(id string) (document.Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.cache[id]
	if !ok || doc.IsDeleted {
		return document.Document{}, false
	}
	return doc.Clone(), true
}

// WatchAll возвращает поток снимков полного списка неудаленных документов:
// текущий снимок сразу при подписке, далее по одному на каждую
// зафиксированную мутацию. Медленный подписчик теряет старые снимки.
func (r *Repository) WatchAll() (<-chan []document.Document, func()) {
	r.mu.Lock()

	id := r.nextWatcher
	r.nextWatcher++
	ch := make(chan []document.Document, watchBuffer)
	r.watchers[id] = ch
	ch <- r.snapshotLocked()
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if w, ok := r.watchers[id]; ok {
			delete(r.watchers, id)
			close(w)
		}
	}
	return ch, cancel
}

// State возвращает текущий снимок состояния синхронизации
func (r *Repository) State() State {
	return r.machine.State()
}

// WatchState подписывает на переходы машины состояний
func (r *Repository) WatchState() (<-chan State, func()) {
	return r.machine.Subscribe()
}

// Pause приостанавливает синхронизацию (внешнее условие)
func (r *Repository) Pause() { r.machine.Pause() }

// Resume возобновляет синхронизацию
func (r *Repository) Resume() { r.machine.Resume() }

// SetOffline сообщает движку о потере сети
func (r *Repository) SetOffline() { r.machine.SetOffline() }

// PendingChanges возвращает число изменений, не подтвержденных бэкендом
func (r *Repository) PendingChanges() int {
	return r.queue.Len()
}

// SyncNow выполняет один цикл: отправка очереди, затем выборка удаленных
// изменений с момента последней успешной синхронизации. Если цикл уже
// идет, немедленно возвращает Result{Skipped: true}. Сбои цикла не
// пробрасываются наружу паникой или исключением - они фиксируются
// переходом машины в состояние error (и дублируются в Result.Err).
func (r *Repository) SyncNow(ctx context.Context) *Result {
	if !r.syncing.CompareAndSwap(false, true) {
		return &Result{Skipped: true}
	}
	defer r.syncing.Store(false)

	switch r.machine.State().Status {
	case StatusPaused, StatusOffline:
		return &Result{Skipped: true}
	}

	start := time.Now().UTC()
	res := &Result{StartTime: start}

	progress := 0.0
	r.machine.SetSyncing(&progress, r.queue.Len())
	r.log.Info("Начало цикла синхронизации", "pending", r.queue.Len())

	if err := r.push(ctx, res); err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		r.machine.SetError(err, r.queue.Len())
		r.log.Warn("Цикл завершен с ошибкой отправки", "error", err)
		return res
	}

	progress = 0.5
	r.machine.SetSyncing(&progress, r.queue.Len())

	if err := r.pull(ctx, res); err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		r.machine.SetError(err, r.queue.Len())
		r.log.Warn("Цикл завершен с ошибкой выборки", "error", err)
		return res
	}

	r.mu.Lock()
	r.lastSyncedAt = start
	metaErr := r.persistMetaLocked(ctx)
	r.mu.Unlock()
	if metaErr != nil {
		r.log.Warn("Сбой сохранения метаданных синхронизации", "error", metaErr)
	}

	res.Duration = time.Since(start)
	r.machine.SetIdle(start, r.queue.Len())
	r.log.Info("Цикл синхронизации завершен",
		"pushed", res.Pushed,
		"pulled", res.Pulled,
		"conflicts", res.Conflicts,
		"duration", res.Duration,
	)
	return res
}

// FullSync - деструктивный путь восстановления: очищает кэш и очередь,
// затем выполняет полную выборку с бэкенда, целиком замещая локальное
// состояние. Применять при подозрении на порчу локальных данных.
func (r *Repository) FullSync(ctx context.Context) error {
	if !r.syncing.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	defer r.syncing.Store(false)

	start := time.Now().UTC()
	r.machine.SetSyncing(nil, 0)

	r.mu.Lock()
	r.cache = make(map[string]document.Document)
	r.lastSyncedAt = time.Time{}
	persistErr := r.persistCacheLocked(ctx)
	if persistErr == nil {
		persistErr = r.persistMetaLocked(ctx)
	}
	r.mu.Unlock()

	if err := r.queue.Clear(ctx); err != nil && persistErr == nil {
		persistErr = err
	}
	r.emit()

	if persistErr != nil {
		r.machine.SetError(persistErr, r.queue.Len())
		return persistErr
	}

	res := &Result{StartTime: start}
	if err := r.pull(ctx, res); err != nil {
		r.machine.SetError(err, r.queue.Len())
		return err
	}

	r.mu.Lock()
	r.lastSyncedAt = start
	metaErr := r.persistMetaLocked(ctx)
	r.mu.Unlock()
	if metaErr != nil {
		r.log.Warn("Сбой сохранения метаданных синхронизации", "error", metaErr)
	}

	r.machine.SetIdle(start, 0)
	r.log.Info("Полная синхронизация завершена", "pulled", res.Pulled)
	return nil
}

// push отправляет очередь: сначала одним пакетом, при отказе пакета -
// поштучно в порядке постановки. Успешно отправленные записи удаляются
// из очереди, неудачные остаются до следующего цикла (at-least-once).
func (r *Repository) push(ctx context.Context, res *Result) error {
	changes := r.queue.Items()
	if len(changes) == 0 {
		return nil
	}

	if err := r.remote.PushBatch(ctx, r.collection, changes); err == nil {
		if rmErr := r.queue.Remove(ctx, changes); rmErr != nil {
			r.log.Warn("Сбой сохранения очереди после пакетной отправки", "error", rmErr)
		}
		res.Pushed = len(changes)
		r.machine.SetPending(r.queue.Len())
		return nil
	} else {
		r.log.Debug("Пакетная отправка отклонена, переходим к поштучной", "error", err)
	}

	var (
		firstErr  error
		succeeded []document.Change
		failedIDs = make(map[string]struct{})
	)
	for _, ch := range changes {
		// Ранний сбой по документу блокирует его поздние записи:
		// бэкенд должен видеть изменения одного id в порядке постановки
		if _, blocked := failedIDs[ch.DocumentID]; blocked {
			continue
		}

		if err := r.remote.PushChange(ctx, r.collection, ch.Document, ch.Op); err != nil {
			failedIDs[ch.DocumentID] = struct{}{}
			if firstErr == nil {
				firstErr = err
			}
			r.log.Warn("Отправка изменения отклонена",
				"document_id", ch.DocumentID,
				"operation", ch.Op,
				"error", err,
			)
			continue
		}
		succeeded = append(succeeded, ch)
	}

	if rmErr := r.queue.Remove(ctx, succeeded); rmErr != nil {
		r.log.Warn("Сбой сохранения очереди после поштучной отправки", "error", rmErr)
	}
	res.Pushed = len(succeeded)
	r.machine.SetPending(r.queue.Len())

	if firstErr != nil {
		return fmt.Errorf("%w: %w", ErrPushFailed, firstErr)
	}
	return nil
}

// pull выбирает удаленные изменения и фиксирует их в кэше. Документы
// независимы, поэтому разрешение конфликтов идет конкурентно с
// ограничением в maxPullWorkers; результат каждого документа фиксируется
// и публикуется в WatchAll до завершения остальных.
func (r *Repository) pull(ctx context.Context, res *Result) error {
	r.mu.Lock()
	since := r.lastSyncedAt
	r.mu.Unlock()

	docs, err := r.remote.FetchChanges(ctx, r.collection, since, r.scopeID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPullFailed, err)
	}
	r.log.Debug("Получены удаленные изменения", "count", len(docs))

	var (
		wg       gosync.WaitGroup
		sem      = make(chan struct{}, maxPullWorkers)
		errMu    gosync.Mutex
		firstErr error
	)

	for _, remoteDoc := range docs {
		remoteDoc := remoteDoc

		r.mu.Lock()
		local, exists := r.cache[remoteDoc.ID]
		var localClone document.Document
		if exists {
			localClone = local.Clone()
		}
		r.mu.Unlock()

		if !exists {
			// Документа нет локально: конфликт невозможен, вставляем как есть
			if err := r.commitRemote(ctx, remoteDoc); err != nil {
				return err
			}
			res.Pulled++
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			winner, resolveErr := r.resolver.Resolve(ctx, localClone, remoteDoc.Clone())
			if resolveErr != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = resolveErr
				}
				errMu.Unlock()
				return
			}

			if commitErr := r.commitRemote(ctx, winner); commitErr != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = commitErr
				}
				errMu.Unlock()
				return
			}

			errMu.Lock()
			res.Pulled++
			res.Conflicts++
			errMu.Unlock()
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return fmt.Errorf("%w: %w", ErrPullFailed, firstErr)
	}

	res.Pruned = r.pruneTombstones(ctx)
	return nil
}

// commitRemote фиксирует решение по одному документу: кэш, персистентность
// и публикация снимка - до того, как результат станет видим наблюдателям
func (r *Repository) commitRemote(ctx context.Context, doc document.Document) error {
	r.mu.Lock()
	r.cache[doc.ID] = doc.Clone()
	err := r.persistCacheLocked(ctx)
	r.mu.Unlock()

	r.emit()
	return err
}

// pruneTombstones вычищает tombstone'ы, чье удаление уже доставлено
// бэкенду (в очереди нет записей по документу) и чей возраст превысил
// срок удержания. До этого момента tombstone сохраняется для undo и
// распространения удаления.
func (r *Repository) pruneTombstones(ctx context.Context) int {
	cutoff := time.Now().UTC().Add(-r.tombstoneTTL)

	r.mu.Lock()
	pruned := 0
	for id, doc := range r.cache {
		if !doc.IsDeleted || !doc.UpdatedAt.Before(cutoff) {
			continue
		}
		if r.queue.HasDocument(id) {
			continue
		}
		delete(r.cache, id)
		pruned++
	}
	var persistErr error
	if pruned > 0 {
		persistErr = r.persistCacheLocked(ctx)
	}
	r.mu.Unlock()

	if persistErr != nil {
		r.log.Warn("Сбой сохранения кэша после чистки tombstone", "error", persistErr)
	}
	if pruned > 0 {
		r.log.Debug("Вычищены tombstone", "count", pruned)
	}
	return pruned
}

func (r *Repository) snapshotLocked() []document.Document {
	out := make([]document.Document, 0, len(r.cache))
	for _, doc := range r.cache {
		if doc.IsDeleted {
			continue
		}
		out = append(out, doc.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Repository) persistCacheLocked(ctx context.Context) error {
	data, err := json.Marshal(r.cache)
	if err != nil {
		return fmt.Errorf("%w: encode cache: %v", ErrPersistFailed, err)
	}
	if err := r.store.Put(ctx, r.cacheKey(), data); err != nil {
		return fmt.Errorf("%w: write cache: %v", ErrPersistFailed, err)
	}
	return nil
}

func (r *Repository) persistMetaLocked(ctx context.Context) error {
	data, err := json.Marshal(syncMeta{LastSyncedAt: r.lastSyncedAt})
	if err != nil {
		return fmt.Errorf("%w: encode sync metadata: %v", ErrPersistFailed, err)
	}
	if err := r.store.Put(ctx, r.metaKey(), data); err != nil {
		return fmt.Errorf("%w: write sync metadata: %v", ErrPersistFailed, err)
	}
	return nil
}

// emit рассылает наблюдателям свежий снимок списка документов.
// Рассылка идет под мьютексом: отписка закрывает канал под тем же
// мьютексом, поэтому отправка в закрытый канал исключена. Отправка
// неблокирующая, подписчики не задерживают репозиторий.
func (r *Repository) emit() {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.snapshotLocked()
	for _, ch := range r.watchers {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}
