package domain

import (
	"slices"
	"time"
)

// ContentType selects the payload encoding for a service and the value of
// the Content-Type header on outgoing requests.
type ContentType string

const (
	ContentTypeJSON ContentType = "application/json"
	ContentTypeForm ContentType = "application/x-www-form-urlencoded"
)

func (c ContentType) Valid() bool {
	return c == ContentTypeJSON || c == ContentTypeForm
}

// Service is a registered webhook subscription.
type Service struct {
	ID          int64
	Name        string
	Endpoint    string
	ContentType ContentType
	Status      bool
	Token       string
	Events      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SubscribedTo reports whether the service subscribes to the named event.
func (s *Service) SubscribedTo(event string) bool {
	return slices.Contains(s.Events, event)
}

// NormalizeEvents removes duplicate event names, keeping first occurrence.
func (s *Service) NormalizeEvents() {
	seen := make(map[string]struct{}, len(s.Events))
	out := s.Events[:0]
	for _, e := range s.Events {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	s.Events = out
}
