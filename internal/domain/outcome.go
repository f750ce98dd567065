package domain

import "time"

type DeliveryStatus string

const (
	DeliveryStatusSuccess DeliveryStatus = "SUCCESS"
	DeliveryStatusFailed  DeliveryStatus = "FAILED"
)

// DeliveryOutcome is the result of one notification attempt against one
// service. StatusLine holds the HTTP status line when the request completed;
// Error holds a locally classified failure otherwise.
type DeliveryOutcome struct {
	ID           string
	OccurrenceID string
	ServiceID    int64
	EventName    string
	Endpoint     string
	Status       DeliveryStatus
	StatusLine   string
	Error        string
	AttemptedAt  time.Time
}
