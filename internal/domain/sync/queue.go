package sync

import (
	"context"
	"encoding/json"
	"fmt"
	gosync "sync"

	"docsync/internal/domain/document"
)

// Queue - долговечная FIFO-очередь записей изменений, ожидающих отправки
// на бэкенд. Порядок записей строго совпадает с порядком постановки:
// поздние изменения одного документа должны применяться бэкендом после
// ранних. Очередь переживает перезапуск процесса: содержимое сохраняется
// в BlobStore после каждой мутации.
type Queue struct {
	mu    gosync.Mutex
	store BlobStore
	key   string
	items []document.Change
}

// NewQueue создает очередь коллекции и восстанавливает ее содержимое
func NewQueue(ctx context.Context, store BlobStore, collection string) (*Queue, error) {
	q := &Queue{
		store: store,
		key:   "queue:" + collection,
	}

	data, err := store.Get(ctx, q.key)
	if err != nil {
		return nil, fmt.Errorf("load queue: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &q.items); err != nil {
			return nil, fmt.Errorf("decode queue: %w", err)
		}
	}
	return q, nil
}

// Enqueue добавляет запись в хвост очереди и сохраняет ее.
// При сбое персистентности запись остается в памяти, а ошибка
// возвращается вызывающему (деградация долговечности, не корректности).
func (q *Queue) Enqueue(ctx context.Context, change document.Change) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, change)
	return q.persistLocked(ctx)
}

// Items возвращает снимок очереди в порядке постановки
func (q *Queue) Items() []document.Change {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]document.Change, len(q.items))
	copy(out, q.items)
	return out
}

// DequeueAll возвращает и удаляет все записи, сохраняя порядок постановки
func (q *Queue) DequeueAll(ctx context.Context) ([]document.Change, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.items
	q.items = nil
	return out, q.persistLocked(ctx)
}

// Remove удаляет только указанные записи (после частичного успеха
// поштучной отправки), сохраняя относительный порядок остальных
func (q *Queue) Remove(ctx context.Context, subset []document.Change) error {
	if len(subset) == 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	drop := make(map[string]struct{}, len(subset))
	for _, ch := range subset {
		drop[ch.ID] = struct{}{}
	}

	kept := q.items[:0]
	for _, ch := range q.items {
		if _, ok := drop[ch.ID]; !ok {
			kept = append(kept, ch)
		}
	}
	q.items = kept
	return q.persistLocked(ctx)
}

// Clear опустошает очередь
func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = nil
	return q.persistLocked(ctx)
}

// Len возвращает текущую длину очереди без мутации
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// HasDocument сообщает, есть ли в очереди записи для документа
func (q *Queue) HasDocument(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, ch := range q.items {
		if ch.DocumentID == id {
			return true
		}
	}
	return false
}

func (q *Queue) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(q.items)
	if err != nil {
		return fmt.Errorf("%w: encode queue: %v", ErrPersistFailed, err)
	}
	if err := q.store.Put(ctx, q.key, data); err != nil {
		return fmt.Errorf("%w: write queue: %v", ErrPersistFailed, err)
	}
	return nil
}
