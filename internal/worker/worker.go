// Package worker runs dispatch jobs fetched from the deferred execution
// queue, one event occurrence per message.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"hookrelay/internal/domain"
	"hookrelay/internal/logging"
	"hookrelay/internal/queue"
	"hookrelay/internal/retry"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, occ *domain.EventOccurrence) ([]domain.DeliveryOutcome, error)
}

type disposition int

const (
	dispositionAck disposition = iota
	dispositionRetry
	dispositionDeadLetter
)

// fetchRetryDelay paces the fetch loop while the broker is unreachable.
const fetchRetryDelay = time.Second

// consumer is the slice of jetstream.Consumer the worker uses.
type consumer interface {
	Fetch(batch int, opts ...jetstream.FetchOpt) (jetstream.MessageBatch, error)
}

type DispatchWorker struct {
	dispatcher Dispatcher
	consumer   consumer
	publisher  queue.Publisher
	policy     *retry.Policy
}

func NewDispatchWorker(
	dispatcher Dispatcher,
	consumer consumer,
	publisher queue.Publisher,
	policy *retry.Policy,
) *DispatchWorker {
	if policy == nil {
		policy = retry.DefaultPolicy()
	}
	return &DispatchWorker{
		dispatcher: dispatcher,
		consumer:   consumer,
		publisher:  publisher,
		policy:     policy,
	}
}

func (w *DispatchWorker) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msgs, err := w.consumer.Fetch(10, jetstream.FetchMaxWait(5*time.Second))
			if err != nil {
				slog.Error("error fetching messages", slog.String("code", "BROKER_ERROR"), slog.Any("error", err))
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(fetchRetryDelay):
				}
				continue
			}

			for msg := range msgs.Messages() {
				w.processMessage(ctx, msg)
			}
		}
	}
}

func (w *DispatchWorker) processMessage(ctx context.Context, msg jetstream.Msg) {
	attempt := 0
	if meta, err := msg.Metadata(); err == nil {
		// NumDelivered counts this delivery, attempts are zero-based
		attempt = int(meta.NumDelivered) - 1
	}

	disp, delay := w.process(ctx, msg.Data(), attempt)
	switch disp {
	case dispositionRetry:
		msg.NakWithDelay(delay)
	default:
		msg.Ack()
	}
}

// process runs one dispatch job and decides what happens to the message.
// Recipient-level failures are already converted to outcomes inside the
// dispatcher; only a systemic resolution failure triggers redelivery, and
// after the policy is exhausted the envelope goes to the DLQ.
func (w *DispatchWorker) process(ctx context.Context, data []byte, attempt int) (disposition, time.Duration) {
	var occ domain.EventOccurrence
	if err := json.Unmarshal(data, &occ); err != nil {
		slog.Error("failed to unmarshal occurrence", slog.String("code", "SYS_ERR"), slog.Any("error", err))
		return dispositionAck, 0
	}

	ctx = logging.WithOccurrence(ctx, occ.ID, occ.Name)
	l := logging.FromContext(ctx)

	outcomes, err := w.dispatcher.Dispatch(ctx, &occ)
	if err != nil {
		if w.policy.ShouldRetry(attempt + 1) {
			delay := w.policy.NextDelay(attempt)
			l.Warn("dispatch job failed, scheduling redelivery",
				slog.String("code", "JOB_RETRY"),
				slog.Int("attempt", attempt+1),
				slog.Duration("delay", delay),
				slog.Any("error", err),
			)
			return dispositionRetry, delay
		}

		l.Error("dispatch job failed permanently, moving to DLQ",
			slog.String("code", "JOB_DEAD"),
			slog.Int("attempts", attempt+1),
			slog.Any("error", err),
		)
		if err := w.publisher.Publish(ctx, queue.SubjectDLQ, data); err != nil {
			l.Error("failed to publish to DLQ", slog.String("code", "BROKER_ERROR"), slog.Any("error", err))
		}
		return dispositionDeadLetter, 0
	}

	failed := 0
	for _, outcome := range outcomes {
		if outcome.Status == domain.DeliveryStatusFailed {
			failed++
		}
	}
	l.Info("dispatch job completed",
		slog.String("code", "JOB_DONE"),
		slog.Int("recipients", len(outcomes)),
		slog.Int("failed", failed),
	)
	return dispositionAck, 0
}
