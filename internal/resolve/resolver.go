// Package resolve maps a fired event name to the active services that
// subscribe to it.
package resolve

import (
	"context"
	"fmt"
	"sync"

	"hookrelay/internal/domain"
)

// EventSource is the slice of the service store the resolver reads.
type EventSource interface {
	GetByEvent(ctx context.Context, event string) ([]*domain.Service, error)
}

// Resolver answers "who gets notified for this event". Results are cached
// per event name; the cache is cleared as a whole by Invalidate, which the
// store wrapper calls synchronously on every mutation. A cache miss falls
// through to the store, so caching is never externally observable.
type Resolver struct {
	source EventSource

	mu    sync.RWMutex
	gen   uint64
	cache map[string][]*domain.Service
}

func New(source EventSource) *Resolver {
	return &Resolver{
		source: source,
		cache:  make(map[string][]*domain.Service),
	}
}

// Resolve returns the active services subscribed to the event, in
// unspecified order. Store failures propagate wrapped in
// store.ErrUnavailable; the caller decides whether to abandon the job.
func (r *Resolver) Resolve(ctx context.Context, event string) ([]*domain.Service, error) {
	r.mu.RLock()
	cached, ok := r.cache[event]
	gen := r.gen
	r.mu.RUnlock()
	if ok {
		out := make([]*domain.Service, len(cached))
		copy(out, cached)
		return out, nil
	}

	subscribed, err := r.source.GetByEvent(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", event, err)
	}

	active := make([]*domain.Service, 0, len(subscribed))
	for _, svc := range subscribed {
		if svc.Status {
			active = append(active, svc)
		}
	}

	r.mu.Lock()
	// Drop the write if an invalidation landed while the store was being
	// read; the result may predate the mutation.
	if r.gen == gen {
		r.cache[event] = active
	}
	r.mu.Unlock()

	out := make([]*domain.Service, len(active))
	copy(out, active)
	return out, nil
}

// Invalidate drops the whole event index. Called by the store wrapper
// inside every mutating operation.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.gen++
	r.cache = make(map[string][]*domain.Service)
	r.mu.Unlock()
}
