//Справочный сервер синхронизации документов:
//выдача изменений коллекции по времени (pull);
//прием одиночных и пакетных мутаций клиентов (push);
//сводка по коллекции раздела.

//POST /api/sync/changes  # Изменения коллекции после момента времени
//POST /api/sync/push     # Применить одну мутацию
//POST /api/sync/batch    # Применить пакет мутаций
//GET  /api/sync/status   # Сводка по коллекции
//GET  /api/v1/health     # Проверка доступности

package api

import (
	healthAPI "docsync/internal/app/server/api/http/health"
	"docsync/internal/app/server/api/http/middleware"
	"docsync/internal/app/server/api/http/middleware/logger"
	syncAPI "docsync/internal/app/server/api/http/sync"
	"docsync/internal/domain/backend"
	"docsync/internal/infrastructure/storage/postgres"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"
)

const (
	serviceName = "docsync"
	apiVersion  = "1.0.0"
)

type Handlers struct {
	Health *healthAPI.Handler
	Sync   *syncAPI.Handler
}

// New создает *chi.Mux со всеми операциями через huma.Register
func New(storage *postgres.Storage, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("DocSync API", apiVersion)

	API := humachi.New(mux, config)

	h := handlers(storage, log)
	h.Health.SetupRoutes(API)
	h.Sync.SetupRoutes(API)

	return mux
}

func handlers(storage *postgres.Storage, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(log, serviceName, apiVersion, middlewares.GetAllAndClear())

	documentRepo := postgres.NewDocumentRepository(storage.Pool(), log)
	syncService := backend.NewService(documentRepo, log)
	middlewares.Add(loggerMW.Middleware())
	syncHandler := syncAPI.NewHandler(syncService, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health: healthHandler,
		Sync:   syncHandler,
	}
}
