package backend

import (
	"time"

	"docsync/internal/domain/document"
)

// StoredDocument - серверное представление документа: документ плюс
// координаты хранения и серверная отметка времени. По server_time
// фильтруется выборка изменений - клиентские часы на нее не влияют.
type StoredDocument struct {
	Collection string            `json:"collection"`
	ScopeID    string            `json:"scope_id,omitempty"`
	Document   document.Document `json:"document"`
	ServerTime time.Time         `json:"server_time"`
}

// CollectionStatus сводка по коллекции раздела.
// LastPushAt равен nil для пустой коллекции (MAX по нулю строк).
type CollectionStatus struct {
	Collection     string     `json:"collection"`
	ScopeID        string     `json:"scope_id,omitempty"`
	TotalDocuments int        `json:"total_documents"`
	DeletedCount   int        `json:"deleted_count"`
	LastPushAt     *time.Time `json:"last_push_at"`
}
