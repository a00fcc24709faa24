package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the events published on the audit stream.
type EventType string

const (
	EventAuditAppended EventType = "zt.audit.appended"
)

// AuditTopic is the Kafka topic audit events are relayed to.
const AuditTopic = "zerotrust.audit"

// AuditEvent is the envelope published for each audit entry.
type AuditEvent struct {
	EventID    uuid.UUID       `json:"event_id"`
	EventType  EventType       `json:"event_type"`
	UserID     string          `json:"user_id"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewAuditEvent wraps an audit entry for the stream.
func NewAuditEvent(entry AuditEntry) AuditEvent {
	payload, _ := json.Marshal(entry)
	return AuditEvent{
		EventID:    entry.ID,
		EventType:  EventAuditAppended,
		UserID:     entry.UserID.String(),
		Payload:    payload,
		OccurredAt: entry.Timestamp,
	}
}
