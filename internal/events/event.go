package events

import (
	"time"

	"hookrelay/internal/domain"
)

// DeliveryEvent is the audit record fanned out after each notification
// attempt. It mirrors the DeliveryOutcome but carries the service name for
// display and is safe to drop when no subscriber is listening.
type DeliveryEvent struct {
	OccurrenceID string                `json:"occurrence_id"`
	EventName    string                `json:"event_name"`
	ServiceID    int64                 `json:"service_id"`
	ServiceName  string                `json:"service_name"`
	Endpoint     string                `json:"endpoint"`
	Status       domain.DeliveryStatus `json:"status"`
	StatusLine   string                `json:"status_line,omitempty"`
	Error        string                `json:"error,omitempty"`
	Timestamp    time.Time             `json:"timestamp"`
}
