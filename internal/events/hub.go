package events

import (
	"sync"
)

type Subscriber struct {
	ID        string
	ServiceID int64  // Filter by service ID (0 = all)
	EventName string // Filter by event name (empty = all)
	Events    chan DeliveryEvent
}

type Hub struct {
	subscribers map[string]*Subscriber
	mu          sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]*Subscriber),
	}
}

func (h *Hub) Subscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[sub.ID] = sub
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subscribers[id]; ok {
		close(sub.Events)
		delete(h.subscribers, id)
	}
}

func (h *Hub) Publish(event DeliveryEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		if h.matchesFilter(sub, event) {
			select {
			case sub.Events <- event:
			default:
				// Non-blocking: skip if subscriber buffer is full
			}
		}
	}
}

func (h *Hub) matchesFilter(sub *Subscriber, event DeliveryEvent) bool {
	if sub.ServiceID != 0 && sub.ServiceID != event.ServiceID {
		return false
	}
	if sub.EventName != "" && sub.EventName != event.EventName {
		return false
	}
	return true
}

func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
