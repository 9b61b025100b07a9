package backend

import (
	"context"
	"time"

	"docsync/internal/domain/document"
)

// Repository интерфейс серверного хранилища документов
type Repository interface {
	// ListChangedSince возвращает документы коллекции, чей server_time
	// строго больше since. Нулевое since означает полную выборку.
	ListChangedSince(ctx context.Context, collection, scopeID string, since time.Time) ([]document.Document, error)

	// Upsert применяет одну мутацию идемпотентно: повтор той же версии
	// документа не меняет состояние
	Upsert(ctx context.Context, collection, scopeID string, doc document.Document, op document.Operation) error

	// UpsertBatch применяет пакет изменений в одной транзакции
	UpsertBatch(ctx context.Context, collection, scopeID string, changes []document.Change) (int, error)

	// Status возвращает сводку по коллекции раздела
	Status(ctx context.Context, collection, scopeID string) (*CollectionStatus, error)
}
