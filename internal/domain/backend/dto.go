package backend

import (
	"time"

	"docsync/internal/domain/document"
)

// DTO (Data Transfer Objects) для API синхронизации

// ChangesRequest запрос изменений коллекции
type ChangesRequest struct {
	Collection string     `json:"collection" minLength:"1"`
	ScopeID    string     `json:"scope_id,omitempty"`
	Since      *time.Time `json:"since,omitempty" format:"date-time"`
}

// ChangesResponse ответ с изменившимися документами
type ChangesResponse struct {
	Status     string              `json:"status"`
	Error      string              `json:"error,omitempty"`
	Documents  []document.Document `json:"documents,omitempty"`
	ServerTime time.Time           `json:"server_time,omitempty"`
}

// PushRequest отправка одной мутации
type PushRequest struct {
	Collection string             `json:"collection" minLength:"1"`
	ScopeID    string             `json:"scope_id,omitempty"`
	Operation  document.Operation `json:"operation" enum:"create,update,delete"`
	Document   document.Document  `json:"document"`
}

// PushResponse результат отправки одной мутации
type PushResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// BatchRequest пакетная отправка изменений
type BatchRequest struct {
	Collection string            `json:"collection" minLength:"1"`
	ScopeID    string            `json:"scope_id,omitempty"`
	Changes    []document.Change `json:"changes"`
}

// BatchResponse результат пакетной отправки
type BatchResponse struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	Processed int    `json:"processed,omitempty"`
}

// StatusResponse сводка по коллекции
type StatusResponse struct {
	Status string            `json:"status"`
	Error  string            `json:"error,omitempty"`
	Data   *CollectionStatus `json:"data,omitempty"`
}
