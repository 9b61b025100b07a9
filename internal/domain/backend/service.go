package backend

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slog"

	"docsync/internal/domain/document"
)

// Servicer интерфейс серверного сервиса синхронизации
type Servicer interface {
	// Changes возвращает документы, измененные после указанного момента
	Changes(ctx context.Context, req ChangesRequest) (*ChangesResponse, error)

	// Push применяет одну мутацию клиента
	Push(ctx context.Context, req PushRequest) (*PushResponse, error)

	// PushBatch применяет пакет мутаций атомарно
	PushBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error)

	// Status возвращает сводку по коллекции
	Status(ctx context.Context, collection, scopeID string) (*StatusResponse, error)
}

// Service реализация серверного сервиса синхронизации
type Service struct {
	repo Repository
	log  *slog.Logger
}

// NewService создает сервис синхронизации
func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
	}
}

func (s *Service) Changes(ctx context.Context, req ChangesRequest) (*ChangesResponse, error) {
	if req.Collection == "" {
		return nil, ErrEmptyCollection
	}

	var since time.Time
	if req.Since != nil {
		since = *req.Since
	}

	docs, err := s.repo.ListChangedSince(ctx, req.Collection, req.ScopeID, since)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}

	s.log.Debug("Выданы изменения коллекции",
		"collection", req.Collection,
		"count", len(docs),
	)
	return &ChangesResponse{
		Status:     "Ok",
		Documents:  docs,
		ServerTime: time.Now().UTC(),
	}, nil
}

func (s *Service) Push(ctx context.Context, req PushRequest) (*PushResponse, error) {
	if req.Collection == "" {
		return nil, ErrEmptyCollection
	}
	switch req.Operation {
	case document.OpCreate, document.OpUpdate, document.OpDelete:
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidOperation, req.Operation)
	}

	if err := s.repo.Upsert(ctx, req.Collection, req.ScopeID, req.Document, req.Operation); err != nil {
		return nil, fmt.Errorf("apply change: %w", err)
	}

	s.log.Debug("Применена мутация",
		"collection", req.Collection,
		"document_id", req.Document.ID,
		"operation", req.Operation,
	)
	return &PushResponse{Status: "Ok"}, nil
}

func (s *Service) PushBatch(ctx context.Context, req BatchRequest) (*BatchResponse, error) {
	if req.Collection == "" {
		return nil, ErrEmptyCollection
	}
	for _, ch := range req.Changes {
		switch ch.Op {
		case document.OpCreate, document.OpUpdate, document.OpDelete:
		default:
			return nil, fmt.Errorf("%w: %s", ErrInvalidOperation, ch.Op)
		}
	}

	processed, err := s.repo.UpsertBatch(ctx, req.Collection, req.ScopeID, req.Changes)
	if err != nil {
		return nil, fmt.Errorf("apply batch: %w", err)
	}

	s.log.Debug("Применен пакет мутаций",
		"collection", req.Collection,
		"processed", processed,
	)
	return &BatchResponse{Status: "Ok", Processed: processed}, nil
}

func (s *Service) Status(ctx context.Context, collection, scopeID string) (*StatusResponse, error) {
	if collection == "" {
		return nil, ErrEmptyCollection
	}

	status, err := s.repo.Status(ctx, collection, scopeID)
	if err != nil {
		return nil, fmt.Errorf("collection status: %w", err)
	}
	return &StatusResponse{Status: "Ok", Data: status}, nil
}
