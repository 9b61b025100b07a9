package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"docsync/internal/domain/document"
)

// MockRepository is a mock implementation of the Repository interface for testing
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListChangedSince(ctx context.Context, collection, scopeID string, since time.Time) ([]document.Document, error) {
	args := m.Called(ctx, collection, scopeID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]document.Document), args.Error(1)
}

func (m *MockRepository) Upsert(ctx context.Context, collection, scopeID string, doc document.Document, op document.Operation) error {
	args := m.Called(ctx, collection, scopeID, doc, op)
	return args.Error(0)
}

func (m *MockRepository) UpsertBatch(ctx context.Context, collection, scopeID string, changes []document.Change) (int, error) {
	args := m.Called(ctx, collection, scopeID, changes)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) Status(ctx context.Context, collection, scopeID string) (*CollectionStatus, error) {
	args := m.Called(ctx, collection, scopeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CollectionStatus), args.Error(1)
}

func testDoc(id string) document.Document {
	return document.Document{
		ID:        id,
		Fields:    document.Fields{"title": document.String("t")},
		UpdatedAt: time.Now().UTC(),
		Version:   1,
	}
}

func TestServiceChanges(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo, slog.Default())

	docs := []document.Document{testDoc("d1")}
	repo.On("ListChangedSince", ctx, "tasks", "", time.Time{}).Return(docs, nil)

	resp, err := svc.Changes(ctx, ChangesRequest{Collection: "tasks"})
	require.NoError(t, err)
	assert.Equal(t, "Ok", resp.Status)
	assert.Len(t, resp.Documents, 1)
	assert.False(t, resp.ServerTime.IsZero())
	repo.AssertExpectations(t)
}

func TestServiceChangesSince(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo, slog.Default())

	since := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.On("ListChangedSince", ctx, "tasks", "user-1", since).Return([]document.Document{}, nil)

	resp, err := svc.Changes(ctx, ChangesRequest{Collection: "tasks", ScopeID: "user-1", Since: &since})
	require.NoError(t, err)
	assert.Empty(t, resp.Documents)
	repo.AssertExpectations(t)
}

func TestServiceChangesValidation(t *testing.T) {
	svc := NewService(new(MockRepository), slog.Default())

	_, err := svc.Changes(context.Background(), ChangesRequest{})
	assert.ErrorIs(t, err, ErrEmptyCollection)
}

func TestServicePush(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo, slog.Default())

	doc := testDoc("d1")
	repo.On("Upsert", ctx, "tasks", "", doc, document.OpCreate).Return(nil)

	resp, err := svc.Push(ctx, PushRequest{Collection: "tasks", Operation: document.OpCreate, Document: doc})
	require.NoError(t, err)
	assert.Equal(t, "Ok", resp.Status)
	repo.AssertExpectations(t)
}

func TestServicePushInvalidOperation(t *testing.T) {
	svc := NewService(new(MockRepository), slog.Default())

	_, err := svc.Push(context.Background(), PushRequest{
		Collection: "tasks",
		Operation:  "upsert",
		Document:   testDoc("d1"),
	})
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestServicePushRepositoryError(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo, slog.Default())

	doc := testDoc("d1")
	repoErr := errors.New("db down")
	repo.On("Upsert", ctx, "tasks", "", doc, document.OpUpdate).Return(repoErr)

	_, err := svc.Push(ctx, PushRequest{Collection: "tasks", Operation: document.OpUpdate, Document: doc})
	assert.ErrorIs(t, err, repoErr)
}

func TestServicePushBatch(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo, slog.Default())

	now := time.Now().UTC()
	changes := []document.Change{
		document.NewChange(document.OpCreate, testDoc("d1"), now),
		document.NewChange(document.OpUpdate, testDoc("d1"), now),
	}
	repo.On("UpsertBatch", ctx, "tasks", "", changes).Return(2, nil)

	resp, err := svc.PushBatch(ctx, BatchRequest{Collection: "tasks", Changes: changes})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Processed)
	repo.AssertExpectations(t)
}

func TestServiceStatus(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo, slog.Default())

	lastPush := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.On("Status", ctx, "tasks", "").Return(&CollectionStatus{
		Collection:     "tasks",
		TotalDocuments: 5,
		LastPushAt:     &lastPush,
	}, nil)

	resp, err := svc.Status(ctx, "tasks", "")
	require.NoError(t, err)
	require.NotNil(t, resp.Data)
	assert.Equal(t, 5, resp.Data.TotalDocuments)
	require.NotNil(t, resp.Data.LastPushAt)
	assert.True(t, lastPush.Equal(*resp.Data.LastPushAt))
}

func TestServiceStatusEmptyCollection(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	svc := NewService(repo, slog.Default())

	// Empty collection: MAX(server_time) scans no rows, so there is no
	// last push timestamp at all
	repo.On("Status", ctx, "tasks", "").Return(&CollectionStatus{
		Collection: "tasks",
	}, nil)

	resp, err := svc.Status(ctx, "tasks", "")
	require.NoError(t, err)
	require.NotNil(t, resp.Data)
	assert.Zero(t, resp.Data.TotalDocuments)
	assert.Nil(t, resp.Data.LastPushAt)
}
