package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MonitoringEventType enumerates the audit trail event kinds.
type MonitoringEventType string

const (
	EventSessionStart MonitoringEventType = "session_start"
	EventStatusUpdate MonitoringEventType = "status_update"
	EventWarning      MonitoringEventType = "warning"
	EventSessionEnd   MonitoringEventType = "session_end"
)

// MonitoringLog is one append-only audit record tied to a session.
// Entries are never updated or deleted and carry no foreign keys, so the
// trail survives deletion of the exam or user it references.
type MonitoringLog struct {
	ID        uuid.UUID           `json:"id"`
	SessionID uuid.UUID           `json:"session_id"`
	UserID    uuid.UUID           `json:"user_id"`
	ExamID    uuid.UUID           `json:"exam_id"`
	EventType MonitoringEventType `json:"event_type"`
	Details   json.RawMessage     `json:"details,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}
