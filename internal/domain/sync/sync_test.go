package sync

import (
	"context"
	"errors"
	gosync "sync"
	"time"

	"docsync/internal/domain/document"
)

var errPutFailed = errors.New("put failed")

// memStore is an in-memory BlobStore used across the package tests.
type memStore struct {
	mu      gosync.Mutex
	blobs   map[string][]byte
	failPut bool
}

func newMemStore() *memStore {
	return &memStore{blobs: make(map[string][]byte)}
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *memStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut {
		return errPutFailed
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	s.blobs[key] = stored
	return nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

// fakeRemote is a scriptable RemoteDataSource: it records pushes in arrival
// order and serves a fixed set of remote documents.
type fakeRemote struct {
	mu         gosync.Mutex
	docs       []document.Document
	fetchErr   error
	fetchDelay time.Duration
	fetchCalls int

	batchErr   error
	pushErrFor map[string]error

	pushedOps []pushedOp
}

type pushedOp struct {
	docID string
	op    document.Operation
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{pushErrFor: make(map[string]error)}
}

func (f *fakeRemote) Name() string { return "fake" }

func (f *fakeRemote) FetchChanges(_ context.Context, _ string, _ time.Time, _ string) ([]document.Document, error) {
	f.mu.Lock()
	f.fetchCalls++
	delay := f.fetchDelay
	docs := make([]document.Document, len(f.docs))
	for i, d := range f.docs {
		docs[i] = d.Clone()
	}
	err := f.fetchErr
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	return docs, nil
}

func (f *fakeRemote) PushChange(_ context.Context, _ string, doc document.Document, op document.Operation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.pushErrFor[doc.ID]; ok {
		return err
	}
	f.pushedOps = append(f.pushedOps, pushedOp{docID: doc.ID, op: op})
	return nil
}

func (f *fakeRemote) PushBatch(_ context.Context, _ string, changes []document.Change) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.batchErr != nil {
		return f.batchErr
	}
	for _, ch := range changes {
		f.pushedOps = append(f.pushedOps, pushedOp{docID: ch.DocumentID, op: ch.Op})
	}
	return nil
}

func (f *fakeRemote) pushed() []pushedOp {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]pushedOp, len(f.pushedOps))
	copy(out, f.pushedOps)
	return out
}
