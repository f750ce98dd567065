package store

import (
	"context"
	"errors"

	"hookrelay/internal/domain"
)

var (
	// ErrNotFound is returned by id lookups with no matching record.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when a unique constraint is violated.
	ErrAlreadyExists = errors.New("record already exists")
	// ErrUnavailable wraps failures to reach the backing store at all.
	ErrUnavailable = errors.New("store unavailable")
)

// ListOptions narrows and pages List results. Filter fields are matched
// exactly and combined with AND; zero values are ignored.
type ListOptions struct {
	Name        string
	ContentType domain.ContentType
	Status      *bool
	Sort        string
	Offset      int
	Limit       int
}

// ServiceStore is the persistence contract for registered services. The
// dispatch path only reads; the admin surface owns mutations.
type ServiceStore interface {
	Create(ctx context.Context, svc *domain.Service) error
	Update(ctx context.Context, svc *domain.Service) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Service, error)
	List(ctx context.Context, opts ListOptions) ([]*domain.Service, error)

	// GetByEvent returns every service subscribed to the event, active or
	// not; activity filtering belongs to the resolver and dispatcher.
	GetByEvent(ctx context.Context, event string) ([]*domain.Service, error)
}

// OutcomeStore persists delivery outcomes for audit.
type OutcomeStore interface {
	Create(ctx context.Context, outcome *domain.DeliveryOutcome) error
}

// Invalidator is notified after every mutating service operation so derived
// lookup state (the resolver's event index) never outlives a mutation.
type Invalidator interface {
	Invalidate()
}
