package document

import (
	"time"

	"github.com/google/uuid"
)

// Operation тип локальной мутации документа
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Document - единица синхронизации. Удаленный документ не удаляется
// физически, а помечается флагом IsDeleted и остается в кэше до подтверждения
// удаления бэкендом (tombstone).
type Document struct {
	ID         string               `json:"id"`
	Fields     Fields               `json:"fields"`
	UpdatedAt  time.Time            `json:"updated_at"`
	IsDeleted  bool                 `json:"is_deleted"`
	Version    int                  `json:"version"`
	FieldTimes map[string]time.Time `json:"field_times,omitempty"`
}

// Clone возвращает глубокую копию документа
func (d Document) Clone() Document {
	out := d
	out.Fields = d.Fields.Clone()
	if d.FieldTimes != nil {
		out.FieldTimes = make(map[string]time.Time, len(d.FieldTimes))
		for k, v := range d.FieldTimes {
			out.FieldTimes[k] = v
		}
	}
	return out
}

// Equal сравнивает документы по содержимому, включая метаданные
func (d Document) Equal(other Document) bool {
	if d.ID != other.ID || d.Version != other.Version ||
		d.IsDeleted != other.IsDeleted || !d.UpdatedAt.Equal(other.UpdatedAt) {
		return false
	}
	if !d.Fields.Equal(other.Fields) {
		return false
	}
	if len(d.FieldTimes) != len(other.FieldTimes) {
		return false
	}
	for k, v := range d.FieldTimes {
		o, ok := other.FieldTimes[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}

// Change - неизменяемая запись об одной локальной мутации, ожидающей
// доставки на бэкенд. Несет полный снимок документа на момент мутации.
// ID идентифицирует саму запись: для одного документа в очереди может
// находиться несколько записей.
type Change struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Op         Operation `json:"operation"`
	Document   Document  `json:"document"`
	At         time.Time `json:"timestamp"`
}

// NewChange создает запись изменения со снимком документа
func NewChange(op Operation, doc Document, at time.Time) Change {
	return Change{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		Op:         op,
		Document:   doc.Clone(),
		At:         at,
	}
}

// NewID генерирует идентификатор документа
func NewID() string {
	return uuid.NewString()
}
