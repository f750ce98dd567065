package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"hookrelay/internal/domain"
	"hookrelay/internal/queue"
)

// mockPublisher implements queue.Publisher for testing
type mockPublisher struct {
	published map[string][][]byte
	err       error
	mu        sync.Mutex
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{published: make(map[string][][]byte)}
}

func (p *mockPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published[subject] = append(p.published[subject], data)
	return nil
}

func (p *mockPublisher) Close() error { return nil }

func (p *mockPublisher) Get(subject string) [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([][]byte, len(p.published[subject]))
	copy(result, p.published[subject])
	return result
}

func TestHandleEnqueuesEnvelope(t *testing.T) {
	publisher := newMockPublisher()
	b := New(publisher, []string{"course_created"}, true)

	occ, err := b.Handle(context.Background(), "course_created", map[string]any{"courseid": 42})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if occ.ID == "" {
		t.Error("expected an occurrence id to be assigned")
	}
	if occ.OccurredAt.IsZero() {
		t.Error("expected an occurrence timestamp")
	}

	msgs := publisher.Get(queue.SubjectEvents)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 enqueued envelope, got %d", len(msgs))
	}

	var decoded domain.EventOccurrence
	if err := json.Unmarshal(msgs[0], &decoded); err != nil {
		t.Fatalf("envelope is not valid json: %v", err)
	}
	if decoded.Name != "course_created" {
		t.Errorf("expected event name course_created, got %s", decoded.Name)
	}
	if decoded.Payload["courseid"] != float64(42) {
		t.Errorf("expected payload courseid 42, got %v", decoded.Payload["courseid"])
	}
	if decoded.ID != occ.ID {
		t.Errorf("envelope id %s does not match returned occurrence %s", decoded.ID, occ.ID)
	}
}

func TestHandleRejectsUnobservedEvent(t *testing.T) {
	publisher := newMockPublisher()
	b := New(publisher, []string{"course_created"}, true)

	_, err := b.Handle(context.Background(), "user_deleted", nil)
	if !errors.Is(err, ErrNotObserved) {
		t.Fatalf("expected ErrNotObserved, got %v", err)
	}
	if len(publisher.Get(queue.SubjectEvents)) != 0 {
		t.Error("unobserved event must not be enqueued")
	}
}

func TestHandleEmptyAllowlistObservesEverything(t *testing.T) {
	publisher := newMockPublisher()
	b := New(publisher, nil, true)

	if _, err := b.Handle(context.Background(), "anything_at_all", nil); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if len(publisher.Get(queue.SubjectEvents)) != 1 {
		t.Error("expected event to be enqueued")
	}
}

func TestHandleRejectsEmptyName(t *testing.T) {
	b := New(newMockPublisher(), nil, true)

	if _, err := b.Handle(context.Background(), "", nil); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestHandleDisabled(t *testing.T) {
	publisher := newMockPublisher()
	b := New(publisher, nil, false)

	if _, err := b.Handle(context.Background(), "course_created", nil); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	if len(publisher.Get(queue.SubjectEvents)) != 0 {
		t.Error("disabled bridge must not enqueue")
	}
}

func TestHandlePublishFailurePropagates(t *testing.T) {
	publisher := newMockPublisher()
	publisher.err = errors.New("broker down")
	b := New(publisher, nil, true)

	if _, err := b.Handle(context.Background(), "course_created", nil); err == nil {
		t.Fatal("expected publish failure to propagate")
	}
}
