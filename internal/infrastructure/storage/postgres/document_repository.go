package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"

	"docsync/internal/domain/backend"
	"docsync/internal/domain/document"
)

type DocumentRepository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewDocumentRepository(pool *pgxpool.Pool, log *slog.Logger) *DocumentRepository {
	return &DocumentRepository{
		pool: pool,
		log:  log.With("component", "document_repository"),
	}
}

// upsertQuery применяет мутацию идемпотентно: более старая версия документа
// не перезаписывает более новую (сравнение по updated_at, затем по version).
const upsertQuery = `
	INSERT INTO documents (collection, scope_id, id, fields, field_times,
	                       updated_at, is_deleted, version, server_time)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	ON CONFLICT (collection, scope_id, id) DO UPDATE SET
		fields      = EXCLUDED.fields,
		field_times = EXCLUDED.field_times,
		updated_at  = EXCLUDED.updated_at,
		is_deleted  = EXCLUDED.is_deleted,
		version     = EXCLUDED.version,
		server_time = NOW()
	WHERE (documents.updated_at, documents.version) <= (EXCLUDED.updated_at, EXCLUDED.version)`

func (r *DocumentRepository) ListChangedSince(ctx context.Context, collection, scopeID string, since time.Time) ([]document.Document, error) {
	const query = `
		SELECT id, fields, field_times, updated_at, is_deleted, version
		FROM documents
		WHERE collection = $1 AND scope_id = $2 AND server_time > $3
		ORDER BY server_time`

	rows, err := r.pool.Query(ctx, query, collection, scopeID, since)
	if err != nil {
		r.log.Error("failed to list documents", "collection", collection, "error", err)
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	return r.scanDocuments(rows)
}

func (r *DocumentRepository) Upsert(ctx context.Context, collection, scopeID string, doc document.Document, op document.Operation) error {
	fields, fieldTimes, err := marshalDocument(doc)
	if err != nil {
		return err
	}

	isDeleted := doc.IsDeleted || op == document.OpDelete

	_, err = r.pool.Exec(ctx, upsertQuery,
		collection, scopeID, doc.ID, fields, fieldTimes,
		doc.UpdatedAt, isDeleted, doc.Version,
	)
	if err != nil {
		r.log.Error("failed to upsert document",
			"collection", collection, "document_id", doc.ID, "error", err)
		return fmt.Errorf("upsert document: %w", err)
	}

	return nil
}

func (r *DocumentRepository) UpsertBatch(ctx context.Context, collection, scopeID string, changes []document.Change) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, ch := range changes {
		fields, fieldTimes, err := marshalDocument(ch.Document)
		if err != nil {
			return 0, err
		}

		isDeleted := ch.Document.IsDeleted || ch.Op == document.OpDelete

		_, err = tx.Exec(ctx, upsertQuery,
			collection, scopeID, ch.Document.ID, fields, fieldTimes,
			ch.Document.UpdatedAt, isDeleted, ch.Document.Version,
		)
		if err != nil {
			r.log.Error("failed to upsert document in batch",
				"collection", collection, "document_id", ch.Document.ID, "error", err)
			return 0, fmt.Errorf("upsert document %s: %w", ch.Document.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit batch: %w", err)
	}

	return len(changes), nil
}

func (r *DocumentRepository) Status(ctx context.Context, collection, scopeID string) (*backend.CollectionStatus, error) {
	const query = `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE is_deleted),
		       MAX(server_time)
		FROM documents
		WHERE collection = $1 AND scope_id = $2`

	var (
		total, deleted int
		lastPush       *time.Time
	)
	err := r.pool.QueryRow(ctx, query, collection, scopeID).Scan(&total, &deleted, &lastPush)
	if err != nil {
		r.log.Error("failed to get collection status",
			"collection", collection, "error", err)
		return nil, fmt.Errorf("collection status: %w", err)
	}

	return &backend.CollectionStatus{
		Collection:     collection,
		ScopeID:        scopeID,
		TotalDocuments: total,
		DeletedCount:   deleted,
		LastPushAt:     lastPush,
	}, nil
}

// Вспомогательные методы
func (r *DocumentRepository) scanDocuments(rows pgx.Rows) ([]document.Document, error) {
	var docs []document.Document

	for rows.Next() {
		var (
			doc        document.Document
			fields     []byte
			fieldTimes []byte
		)
		err := rows.Scan(&doc.ID, &fields, &fieldTimes,
			&doc.UpdatedAt, &doc.IsDeleted, &doc.Version)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}

		if err := json.Unmarshal(fields, &doc.Fields); err != nil {
			return nil, fmt.Errorf("decode fields: %w", err)
		}
		if len(fieldTimes) > 0 {
			if err := json.Unmarshal(fieldTimes, &doc.FieldTimes); err != nil {
				return nil, fmt.Errorf("decode field times: %w", err)
			}
		}

		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

func marshalDocument(doc document.Document) (fields, fieldTimes []byte, err error) {
	fields, err = json.Marshal(doc.Fields)
	if err != nil {
		return nil, nil, fmt.Errorf("encode fields: %w", err)
	}
	fieldTimes, err = json.Marshal(doc.FieldTimes)
	if err != nil {
		return nil, nil, fmt.Errorf("encode field times: %w", err)
	}
	return fields, fieldTimes, nil
}
