package domain

import "time"

// EventOccurrence is one firing of a named platform event. It is built by
// the event bridge, carried through the queue, consumed once by a dispatch
// job and discarded; it has no persisted identity beyond the envelope id.
type EventOccurrence struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Payload    map[string]any `json:"payload"`
	OccurredAt time.Time      `json:"occurred_at"`
}
