package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"hookrelay/internal/queue"
)

// Sink receives delivery audit events. Implementations must not block.
type Sink interface {
	Publish(event DeliveryEvent)
}

// MultiSink fans one event out to several sinks.
type MultiSink []Sink

func (m MultiSink) Publish(event DeliveryEvent) {
	for _, s := range m {
		s.Publish(event)
	}
}

// QueueSink forwards audit events onto the queue's audit subject so
// out-of-process watchers can tail deliveries. Publish failures are logged
// and dropped; audit fan-out is best effort.
type QueueSink struct {
	publisher queue.Publisher
}

func NewQueueSink(publisher queue.Publisher) *QueueSink {
	return &QueueSink{publisher: publisher}
}

func (s *QueueSink) Publish(event DeliveryEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal audit event", slog.String("code", "SYS_ERR"), slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.publisher.Publish(ctx, queue.SubjectAudit, data); err != nil {
		slog.Warn("failed to publish audit event", slog.String("code", "BROKER_ERROR"), slog.Any("error", err))
	}
}
