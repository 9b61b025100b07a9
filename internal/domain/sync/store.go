package sync

import "context"

// BlobStore - граница локальной персистентности. Движок хранит состояние
// как непрозрачные сериализованные блобы: кэш коллекции, очередь изменений
// и метаданные синхронизации лежат каждый под своим ключом.
//
// Get возвращает (nil, nil), если ключ отсутствует.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}
