package sync

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docsync/internal/domain/document"
)

func newTestRepository(t *testing.T, store *memStore, remote *fakeRemote) *Repository {
	t.Helper()
	repo, err := NewRepository(context.Background(), Config{
		Collection: "tasks",
		Store:      store,
		Remote:     remote,
	})
	require.NoError(t, err)
	return repo
}

func TestCreateAssignsIDAndEnqueues(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, newMemStore(), newFakeRemote())

	doc, err := repo.Create(ctx, "", document.Fields{"title": document.String("Buy milk")})
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, 1, doc.Version)
	assert.False(t, doc.UpdatedAt.IsZero())
	assert.Equal(t, 1, repo.PendingChanges())
	assert.Equal(t, 1, repo.State().PendingChanges)
}

func TestUpdateNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, newMemStore(), newFakeRemote())

	_, err := repo.Update(ctx, "missing", document.Fields{"title": document.String("x")})
	assert.ErrorIs(t, err, document.ErrNotFound)
}

func TestUpdateBumpsVersionAndTimestamp(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, newMemStore(), newFakeRemote())

	created, err := repo.Create(ctx, "t1", document.Fields{"title": document.String("a")})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, "t1", document.Fields{"title": document.String("b")})
	require.NoError(t, err)

	assert.Equal(t, 2, updated.Version)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))
	assert.Equal(t, "b", updated.Fields["title"].StringVal())
	assert.Equal(t, 2, repo.PendingChanges())
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, newMemStore(), newFakeRemote())

	_, err := repo.Create(ctx, "t1", document.Fields{"title": document.String("a")})
	require.NoError(t, err)
	require.Equal(t, 1, repo.PendingChanges())

	require.NoError(t, repo.Delete(ctx, "t1"))
	assert.Equal(t, 2, repo.PendingChanges())

	// Повторное удаление и удаление неизвестного id - no-op
	require.NoError(t, repo.Delete(ctx, "t1"))
	require.NoError(t, repo.Delete(ctx, "never-existed"))
	assert.Equal(t, 2, repo.PendingChanges())
}

func TestSoftDeleteExclusion(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	repo := newTestRepository(t, store, newFakeRemote())

	_, err := repo.Create(ctx, "t1", document.Fields{"title": document.String("a")})
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, "t1"))

	assert.Empty(t, repo.GetAll())
	_, ok := repo.GetByID("t1")
	assert.False(t, ok)

	// Tombstone остается в сохраненном кэше
	blob, err := store.Get(ctx, "cache:tasks")
	require.NoError(t, err)
	var cached map[string]document.Document
	require.NoError(t, json.Unmarshal(blob, &cached))
	require.Contains(t, cached, "t1")
	assert.True(t, cached["t1"].IsDeleted)
}

func TestSyncNowEndToEnd(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	repo := newTestRepository(t, newMemStore(), remote)

	_, err := repo.Create(ctx, "t1", document.Fields{"title": document.String("Buy milk")})
	require.NoError(t, err)
	require.Equal(t, 1, repo.State().PendingChanges)

	res := repo.SyncNow(ctx)
	require.NoError(t, res.Err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 1, res.Pushed)

	state := repo.State()
	assert.Equal(t, StatusIdle, state.Status)
	assert.Equal(t, 0, state.PendingChanges)
	assert.False(t, state.LastSyncedAt.IsZero())

	doc, ok := repo.GetByID("t1")
	require.True(t, ok)
	assert.Equal(t, "Buy milk", doc.Fields["title"].StringVal())
}

func TestSyncNowFIFOPushOrder(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.batchErr = errors.New("batching not supported")
	repo := newTestRepository(t, newMemStore(), remote)

	_, err := repo.Create(ctx, "t1", document.Fields{"title": document.String("v1")})
	require.NoError(t, err)
	_, err = repo.Update(ctx, "t1", document.Fields{"title": document.String("v2")})
	require.NoError(t, err)
	_, err = repo.Update(ctx, "t1", document.Fields{"title": document.String("v3")})
	require.NoError(t, err)

	res := repo.SyncNow(ctx)
	require.NoError(t, res.Err)

	pushed := remote.pushed()
	require.Len(t, pushed, 3)
	assert.Equal(t, pushedOp{"t1", document.OpCreate}, pushed[0])
	assert.Equal(t, pushedOp{"t1", document.OpUpdate}, pushed[1])
	assert.Equal(t, pushedOp{"t1", document.OpUpdate}, pushed[2])
}

func TestSyncNowBatchFallback(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.batchErr = errors.New("batch rejected")
	remote.pushErrFor["t2"] = errors.New("validation failed")
	repo := newTestRepository(t, newMemStore(), remote)

	for _, id := range []string{"t1", "t2", "t3"} {
		_, err := repo.Create(ctx, id, document.Fields{"title": document.String(id)})
		require.NoError(t, err)
	}

	res := repo.SyncNow(ctx)
	require.ErrorIs(t, res.Err, ErrPushFailed)
	assert.Equal(t, 2, res.Pushed)

	// В очереди остается только неотправленная запись
	require.Equal(t, 1, repo.PendingChanges())
	items := repo.queue.Items()
	assert.Equal(t, "t2", items[0].DocumentID)
	assert.Equal(t, StatusError, repo.State().Status)

	// Следующий цикл доставляет остаток
	delete(remote.pushErrFor, "t2")
	res = repo.SyncNow(ctx)
	require.NoError(t, res.Err)
	assert.Equal(t, 0, repo.PendingChanges())
	assert.Equal(t, StatusIdle, repo.State().Status)
}

func TestSyncNowPushKeepsPerDocumentOrderAfterFailure(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.batchErr = errors.New("batch rejected")
	remote.pushErrFor["t1"] = errors.New("temporarily rejected")
	repo := newTestRepository(t, newMemStore(), remote)

	_, err := repo.Create(ctx, "t1", document.Fields{"title": document.String("v1")})
	require.NoError(t, err)
	_, err = repo.Update(ctx, "t1", document.Fields{"title": document.String("v2")})
	require.NoError(t, err)

	res := repo.SyncNow(ctx)
	require.ErrorIs(t, res.Err, ErrPushFailed)

	// Поздний update не обгоняет упавший create
	assert.Empty(t, remote.pushed())
	assert.Equal(t, 2, repo.PendingChanges())
}

func TestSyncNowConflictRemoteWins(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	repo := newTestRepository(t, newMemStore(), remote)

	_, err := repo.Create(ctx, "t1", document.Fields{"title": document.String("A")})
	require.NoError(t, err)

	remote.docs = []document.Document{{
		ID:        "t1",
		Fields:    document.Fields{"title": document.String("B")},
		UpdatedAt: time.Now().UTC().Add(time.Hour),
		Version:   2,
	}}

	res := repo.SyncNow(ctx)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Conflicts)

	doc, ok := repo.GetByID("t1")
	require.True(t, ok)
	assert.Equal(t, "B", doc.Fields["title"].StringVal())
	assert.Equal(t, 2, doc.Version)
}

func TestSyncNowInsertsUnknownRemoteDocuments(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.docs = []document.Document{{
		ID:        "r1",
		Fields:    document.Fields{"title": document.String("from server")},
		UpdatedAt: time.Now().UTC(),
		Version:   1,
	}}
	repo := newTestRepository(t, newMemStore(), remote)

	res := repo.SyncNow(ctx)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Pulled)
	assert.Equal(t, 0, res.Conflicts)

	doc, ok := repo.GetByID("r1")
	require.True(t, ok)
	assert.Equal(t, "from server", doc.Fields["title"].StringVal())
}

func TestSyncNowSingleFlight(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.fetchDelay = 150 * time.Millisecond
	repo := newTestRepository(t, newMemStore(), remote)

	done := make(chan *Result, 1)
	go func() {
		done <- repo.SyncNow(ctx)
	}()

	time.Sleep(30 * time.Millisecond)
	second := repo.SyncNow(ctx)
	assert.True(t, second.Skipped)

	first := <-done
	require.NoError(t, first.Err)
	assert.False(t, first.Skipped)
	assert.Equal(t, 1, remote.fetchCalls)
}

func TestSyncNowSkippedWhilePaused(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, newMemStore(), newFakeRemote())

	repo.Pause()
	res := repo.SyncNow(ctx)
	assert.True(t, res.Skipped)

	repo.Resume()
	res = repo.SyncNow(ctx)
	assert.False(t, res.Skipped)
}

func TestSyncNowPullFailureKeepsLocalWrites(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	remote.fetchErr = errors.New("backend down")
	repo := newTestRepository(t, newMemStore(), remote)

	_, err := repo.Create(ctx, "t1", document.Fields{"title": document.String("a")})
	require.NoError(t, err)

	res := repo.SyncNow(ctx)
	require.ErrorIs(t, res.Err, ErrPullFailed)
	assert.Equal(t, StatusError, repo.State().Status)

	doc, ok := repo.GetByID("t1")
	require.True(t, ok)
	assert.Equal(t, "a", doc.Fields["title"].StringVal())
}

func TestRepositorySurvivesRestart(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	remote := newFakeRemote()

	repo := newTestRepository(t, store, remote)
	_, err := repo.Create(ctx, "t1", document.Fields{"title": document.String("a")})
	require.NoError(t, err)
	_, err = repo.Create(ctx, "t2", document.Fields{"title": document.String("b")})
	require.NoError(t, err)

	reloaded := newTestRepository(t, store, remote)
	assert.Len(t, reloaded.GetAll(), 2)
	assert.Equal(t, 2, reloaded.PendingChanges())
	assert.Equal(t, 2, reloaded.State().PendingChanges)
}

func TestFullSyncReplacesLocalState(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()
	repo := newTestRepository(t, newMemStore(), remote)

	_, err := repo.Create(ctx, "local-junk", document.Fields{"title": document.String("x")})
	require.NoError(t, err)

	remote.docs = []document.Document{{
		ID:        "s1",
		Fields:    document.Fields{"title": document.String("server truth")},
		UpdatedAt: time.Now().UTC(),
		Version:   1,
	}}

	require.NoError(t, repo.FullSync(ctx))

	all := repo.GetAll()
	require.Len(t, all, 1)
	assert.Equal(t, "s1", all[0].ID)
	assert.Equal(t, 0, repo.PendingChanges())
	assert.Equal(t, StatusIdle, repo.State().Status)
}

func TestTombstonePruning(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	remote := newFakeRemote()
	repo, err := NewRepository(ctx, Config{
		Collection:   "tasks",
		Store:        store,
		Remote:       remote,
		TombstoneTTL: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, "t1", document.Fields{"title": document.String("a")})
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, "t1"))

	// Удаление доставлено бэкенду, tombstone остается до истечения срока
	res := repo.SyncNow(ctx)
	require.NoError(t, res.Err)
	require.Equal(t, 0, repo.PendingChanges())

	time.Sleep(200 * time.Millisecond)
	res = repo.SyncNow(ctx)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Pruned)

	blob, err := store.Get(ctx, "cache:tasks")
	require.NoError(t, err)
	var cached map[string]document.Document
	require.NoError(t, json.Unmarshal(blob, &cached))
	assert.NotContains(t, cached, "t1")
}

func TestWatchAllEmitsSnapshots(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, newMemStore(), newFakeRemote())

	ch, cancel := repo.WatchAll()
	defer cancel()

	initial := <-ch
	assert.Empty(t, initial)

	_, err := repo.Create(ctx, "t1", document.Fields{"title": document.String("a")})
	require.NoError(t, err)

	next := <-ch
	require.Len(t, next, 1)
	assert.Equal(t, "t1", next[0].ID)

	require.NoError(t, repo.Delete(ctx, "t1"))
	afterDelete := <-ch
	assert.Empty(t, afterDelete)
}

func TestManualResolverDoesNotBlockOtherDocuments(t *testing.T) {
	ctx := context.Background()
	remote := newFakeRemote()

	release := make(chan struct{})
	manual := Manual{Decide: func(_ context.Context, _, remoteDoc document.Document) (document.Document, error) {
		if remoteDoc.ID == "slow" {
			<-release
		}
		return remoteDoc, nil
	}}

	store := newMemStore()
	repo, err := NewRepository(ctx, Config{
		Collection: "tasks",
		Store:      store,
		Remote:     remote,
		Resolver:   manual,
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, "slow", document.Fields{"title": document.String("a")})
	require.NoError(t, err)
	_, err = repo.Create(ctx, "fast", document.Fields{"title": document.String("b")})
	require.NoError(t, err)

	now := time.Now().UTC().Add(time.Minute)
	remote.docs = []document.Document{
		{ID: "slow", Fields: document.Fields{"title": document.String("slow-remote")}, UpdatedAt: now, Version: 2},
		{ID: "fast", Fields: document.Fields{"title": document.String("fast-remote")}, UpdatedAt: now, Version: 2},
	}

	ch, cancel := repo.WatchAll()
	defer cancel()
	<-ch // начальный снимок

	done := make(chan *Result, 1)
	go func() { done <- repo.SyncNow(ctx) }()

	// "fast" фиксируется и публикуется, пока "slow" ждет ручного решения
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snapshot := <-ch:
			var fastTitle string
			for _, d := range snapshot {
				if d.ID == "fast" {
					fastTitle = d.Fields["title"].StringVal()
				}
			}
			if fastTitle == "fast-remote" {
				close(release)
				res := <-done
				require.NoError(t, res.Err)
				return
			}
		case <-deadline:
			close(release)
			t.Fatal("fast document was not committed while slow resolution pending")
		}
	}
}

func TestWatchAllConcurrentUnsubscribe(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, newMemStore(), newFakeRemote())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 300; i++ {
			if _, err := repo.Create(ctx, "", document.Fields{"n": document.Number(float64(i))}); err != nil {
				return
			}
		}
	}()

	// Отписка во время публикации снимков не должна ронять процесс
	for i := 0; i < 200; i++ {
		_, cancel := repo.WatchAll()
		cancel()
	}
	<-done
}
