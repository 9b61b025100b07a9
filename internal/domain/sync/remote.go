package sync

import (
	"context"
	"time"

	"docsync/internal/domain/document"
)

// RemoteDataSource - контракт удаленного бэкенда, потребляемый движком.
// Конкретные реализации (HTTP-клиент, фейки в тестах) живут вне ядра.
type RemoteDataSource interface {
	// Name возвращает стабильный идентификатор подключенного бэкенда
	Name() string

	// FetchChanges возвращает документы коллекции, измененные на бэкенде
	// строго после since. Нулевое since означает полную выборку.
	// scopeID опционально ограничивает выборку разделом (тенант, пользователь).
	FetchChanges(ctx context.Context, collection string, since time.Time, scopeID string) ([]document.Document, error)

	// PushChange отправляет одну мутацию. Должна быть идемпотентной при
	// повторе: та же пара (id, операция) не дублирует эффект.
	PushChange(ctx context.Context, collection string, doc document.Document, op document.Operation) error

	// PushBatch отправляет пакет изменений атомарно по мере возможностей
	// бэкенда. Может отказать целиком - тогда ядро переходит к поштучной
	// отправке.
	PushBatch(ctx context.Context, collection string, changes []document.Change) error
}
