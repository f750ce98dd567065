// Package bridge is the intake side of the system: it receives fired
// platform events and turns them into queued dispatch jobs. Delivery never
// happens on the caller's thread.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"hookrelay/internal/domain"
	"hookrelay/internal/logging"
	"hookrelay/internal/queue"
)

var (
	// ErrDisabled is returned while the global intake switch is off.
	ErrDisabled = errors.New("event intake is disabled")
	// ErrInvalidName is returned for an empty event name.
	ErrInvalidName = errors.New("event name must not be empty")
	// ErrNotObserved is returned for events outside the configured set.
	ErrNotObserved = errors.New("event is not observed")
)

type Bridge struct {
	publisher queue.Publisher
	observed  map[string]struct{}
	enabled   bool
}

// New builds a bridge observing the given event names. An empty list
// observes every event.
func New(publisher queue.Publisher, observed []string, enabled bool) *Bridge {
	set := make(map[string]struct{}, len(observed))
	for _, name := range observed {
		set[name] = struct{}{}
	}
	return &Bridge{
		publisher: publisher,
		observed:  set,
		enabled:   enabled,
	}
}

// Handle accepts one event firing, wraps it in an occurrence envelope and
// enqueues it. The returned occurrence carries the assigned id.
func (b *Bridge) Handle(ctx context.Context, name string, payload map[string]any) (*domain.EventOccurrence, error) {
	if !b.enabled {
		return nil, ErrDisabled
	}
	if name == "" {
		return nil, ErrInvalidName
	}
	if !b.Observes(name) {
		return nil, fmt.Errorf("%w: %s", ErrNotObserved, name)
	}

	occ := &domain.EventOccurrence{
		ID:         gonanoid.Must(),
		Name:       name,
		Payload:    payload,
		OccurredAt: time.Now(),
	}

	data, err := json.Marshal(occ)
	if err != nil {
		return nil, fmt.Errorf("marshal occurrence: %w", err)
	}

	if err := b.publisher.Publish(ctx, queue.SubjectEvents, data); err != nil {
		return nil, fmt.Errorf("enqueue occurrence: %w", err)
	}

	logging.FromContext(ctx).Info("event enqueued",
		slog.String("code", "EVT_QUEUED"),
		slog.String("occurrence_id", occ.ID),
		slog.String("event", occ.Name),
	)
	return occ, nil
}

// Observes reports whether the bridge accepts the named event.
func (b *Bridge) Observes(name string) bool {
	if len(b.observed) == 0 {
		return true
	}
	_, ok := b.observed[name]
	return ok
}
