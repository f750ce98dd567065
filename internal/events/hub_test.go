package events

import (
	"testing"
	"time"

	"hookrelay/internal/domain"
)

func TestHubSubscribeAndPublish(t *testing.T) {
	hub := NewHub()

	sub := &Subscriber{
		ID:     "test-sub-1",
		Events: make(chan DeliveryEvent, 10),
	}
	hub.Subscribe(sub)

	event := DeliveryEvent{
		OccurrenceID: "occ-1",
		EventName:    "course_created",
		ServiceID:    1,
		ServiceName:  "S1",
		Endpoint:     "https://example.com/hook",
		Status:       domain.DeliveryStatusSuccess,
		StatusLine:   "200 OK",
		Timestamp:    time.Now(),
	}

	hub.Publish(event)

	select {
	case received := <-sub.Events:
		if received.OccurrenceID != event.OccurrenceID {
			t.Errorf("expected occurrence %s, got %s", event.OccurrenceID, received.OccurrenceID)
		}
		if received.Status != event.Status {
			t.Errorf("expected status %s, got %s", event.Status, received.Status)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for event")
	}
}

func TestHubBroadcastToMultipleSubscribers(t *testing.T) {
	hub := NewHub()

	sub1 := &Subscriber{ID: "sub-1", Events: make(chan DeliveryEvent, 10)}
	sub2 := &Subscriber{ID: "sub-2", Events: make(chan DeliveryEvent, 10)}
	sub3 := &Subscriber{ID: "sub-3", Events: make(chan DeliveryEvent, 10)}

	hub.Subscribe(sub1)
	hub.Subscribe(sub2)
	hub.Subscribe(sub3)

	event := DeliveryEvent{OccurrenceID: "occ-broadcast", Status: domain.DeliveryStatusSuccess}

	hub.Publish(event)

	for _, sub := range []*Subscriber{sub1, sub2, sub3} {
		select {
		case received := <-sub.Events:
			if received.OccurrenceID != event.OccurrenceID {
				t.Errorf("subscriber %s: expected occurrence %s, got %s", sub.ID, event.OccurrenceID, received.OccurrenceID)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %s: timeout waiting for event", sub.ID)
		}
	}
}

func TestHubFilterByServiceID(t *testing.T) {
	hub := NewHub()

	sub := &Subscriber{
		ID:        "filtered-sub",
		ServiceID: 7,
		Events:    make(chan DeliveryEvent, 10),
	}
	hub.Subscribe(sub)

	hub.Publish(DeliveryEvent{ServiceID: 7, Status: domain.DeliveryStatusSuccess})
	hub.Publish(DeliveryEvent{ServiceID: 8, Status: domain.DeliveryStatusFailed})

	select {
	case received := <-sub.Events:
		if received.ServiceID != 7 {
			t.Errorf("expected service 7, got %d", received.ServiceID)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for matching event")
	}

	select {
	case received := <-sub.Events:
		t.Errorf("unexpected event for service %d", received.ServiceID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubFilterByEventName(t *testing.T) {
	hub := NewHub()

	sub := &Subscriber{
		ID:        "event-filtered",
		EventName: "course_created",
		Events:    make(chan DeliveryEvent, 10),
	}
	hub.Subscribe(sub)

	hub.Publish(DeliveryEvent{EventName: "user_loggedin", ServiceID: 1})
	hub.Publish(DeliveryEvent{EventName: "course_created", ServiceID: 2})

	select {
	case received := <-sub.Events:
		if received.EventName != "course_created" {
			t.Errorf("expected course_created, got %s", received.EventName)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for matching event")
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()

	sub := &Subscriber{ID: "closing-sub", Events: make(chan DeliveryEvent, 10)}
	hub.Subscribe(sub)

	if hub.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.SubscriberCount())
	}

	hub.Unsubscribe(sub.ID)

	if hub.SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.SubscriberCount())
	}

	if _, ok := <-sub.Events; ok {
		t.Error("expected channel to be closed")
	}
}

func TestHubSlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()

	// Unbuffered channel with no reader: publish must not block
	sub := &Subscriber{ID: "slow-sub", Events: make(chan DeliveryEvent)}
	hub.Subscribe(sub)

	done := make(chan struct{})
	go func() {
		hub.Publish(DeliveryEvent{OccurrenceID: "occ-slow"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}
