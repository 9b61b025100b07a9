package sync

import (
	"docsync/internal/domain/backend"
)

// Request/Response структуры для getChanges
type getChangesInput struct {
	Body backend.ChangesRequest
}

type getChangesOutput struct {
	Body backend.ChangesResponse
}

// Request/Response для pushChange
type pushChangeInput struct {
	Body backend.PushRequest
}

type pushChangeOutput struct {
	Body backend.PushResponse
}

// Request/Response для pushBatch
type pushBatchInput struct {
	Body backend.BatchRequest
}

type pushBatchOutput struct {
	Body backend.BatchResponse
}

// Request/Response для getStatus
type getStatusInput struct {
	Collection string `query:"collection" minLength:"1"`
	ScopeID    string `query:"scope_id"`
}

type getStatusOutput struct {
	Body backend.StatusResponse
}
