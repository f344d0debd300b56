package domain

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Stream names
const (
	StreamPermitImport     = "stream:permit:import"
	StreamPermitImportDone = "stream:permit:import:done"
)

// PermitImportEvent - входящее задание на импорт коллекции регионов
type PermitImportEvent struct {
	JobID    uuid.UUID       `json:"job_id"`
	Township string          `json:"township"`
	Truncate bool            `json:"truncate,omitempty"`
	Path     string          `json:"path,omitempty"`
	Features json.RawMessage `json:"features,omitempty"`
}

// PermitImportDoneEvent - результат импорта
type PermitImportDoneEvent struct {
	JobID  uuid.UUID     `json:"job_id"`
	Result *ImportResult `json:"result,omitempty"`
	Error  string        `json:"error,omitempty"`
}

// StreamMessage - сообщение из Redis Stream
type StreamMessage struct {
	ID   string
	Data string
}
