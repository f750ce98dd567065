// Package dispatch delivers one event occurrence to every subscribed
// service, best effort, at most once per service.
package dispatch

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"hookrelay/internal/domain"
	"hookrelay/internal/events"
	"hookrelay/internal/httpclient"
	"hookrelay/internal/logging"
	"hookrelay/internal/store"
)

type Resolver interface {
	Resolve(ctx context.Context, event string) ([]*domain.Service, error)
}

type Dispatcher struct {
	resolver Resolver
	client   *httpclient.Client
	outcomes store.OutcomeStore
	audit    events.Sink
}

func NewDispatcher(resolver Resolver, client *httpclient.Client) *Dispatcher {
	return &Dispatcher{
		resolver: resolver,
		client:   client,
	}
}

// WithOutcomeStore persists every outcome for audit.
func (d *Dispatcher) WithOutcomeStore(outcomes store.OutcomeStore) *Dispatcher {
	d.outcomes = outcomes
	return d
}

// WithAudit fans outcomes out to live audit subscribers.
func (d *Dispatcher) WithAudit(audit events.Sink) *Dispatcher {
	d.audit = audit
	return d
}

// Dispatch attempts delivery to every active service subscribed to the
// occurrence's event. Recipient failures become failed outcomes and never
// stop the remaining recipients; only a resolution failure returns an
// error, in which case no delivery was attempted.
func (d *Dispatcher) Dispatch(ctx context.Context, occ *domain.EventOccurrence) ([]domain.DeliveryOutcome, error) {
	services, err := d.resolver.Resolve(ctx, occ.Name)
	if err != nil {
		return nil, err
	}

	recipients := services[:0:0]
	for _, svc := range services {
		if svc.Status {
			recipients = append(recipients, svc)
		}
	}

	outcomes := make([]domain.DeliveryOutcome, len(recipients))
	var wg sync.WaitGroup
	for i, svc := range recipients {
		wg.Add(1)
		go func(i int, svc *domain.Service) {
			defer wg.Done()
			outcomes[i] = d.deliver(ctx, occ, svc)
		}(i, svc)
	}
	wg.Wait()

	for i := range outcomes {
		d.record(ctx, recipients[i], &outcomes[i])
	}

	return outcomes, nil
}

func (d *Dispatcher) deliver(ctx context.Context, occ *domain.EventOccurrence, svc *domain.Service) domain.DeliveryOutcome {
	outcome := domain.DeliveryOutcome{
		ID:           uuid.New().String(),
		OccurrenceID: occ.ID,
		ServiceID:    svc.ID,
		EventName:    occ.Name,
		Endpoint:     svc.Endpoint,
		AttemptedAt:  time.Now(),
	}

	if err := validateEndpoint(svc.Endpoint); err != nil {
		outcome.Status = domain.DeliveryStatusFailed
		outcome.Error = err.Error()
		return outcome
	}

	payload, err := encodeBody(svc.ContentType, mergePayload(occ.Payload, svc.Token))
	if err != nil {
		outcome.Status = domain.DeliveryStatusFailed
		outcome.Error = err.Error()
		return outcome
	}

	resp, err := d.client.Post(ctx, svc.Endpoint, string(svc.ContentType), payload)
	if err != nil {
		outcome.Status = domain.DeliveryStatusFailed
		outcome.Error = (&TransportError{Err: err}).Error()
		return outcome
	}

	outcome.StatusLine = resp.StatusLine
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		outcome.Status = domain.DeliveryStatusSuccess
	} else {
		outcome.Status = domain.DeliveryStatusFailed
	}
	return outcome
}

func (d *Dispatcher) record(ctx context.Context, svc *domain.Service, outcome *domain.DeliveryOutcome) {
	l := logging.FromContext(ctx).With(
		slog.Int64("service_id", outcome.ServiceID),
		slog.String("endpoint", outcome.Endpoint),
	)

	if outcome.Status == domain.DeliveryStatusSuccess {
		l.Info("webhook delivered",
			slog.String("code", "DEL_OK"),
			slog.String("status", outcome.StatusLine),
		)
	} else {
		l.Warn("webhook delivery failed",
			slog.String("code", "DEL_FAILED"),
			slog.String("status", outcome.StatusLine),
			slog.String("error", outcome.Error),
		)
	}

	if d.outcomes != nil {
		if err := d.outcomes.Create(ctx, outcome); err != nil {
			l.Error("failed to record delivery outcome", slog.String("code", "DB_ERROR"), slog.Any("error", err))
		}
	}

	if d.audit != nil {
		d.audit.Publish(events.DeliveryEvent{
			OccurrenceID: outcome.OccurrenceID,
			EventName:    outcome.EventName,
			ServiceID:    outcome.ServiceID,
			ServiceName:  svc.Name,
			Endpoint:     outcome.Endpoint,
			Status:       outcome.Status,
			StatusLine:   outcome.StatusLine,
			Error:        outcome.Error,
			Timestamp:    outcome.AttemptedAt,
		})
	}
}

func validateEndpoint(endpoint string) error {
	u, err := url.ParseRequestURI(endpoint)
	if err != nil {
		return &ConfigError{Reason: "invalid endpoint url: " + endpoint}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ConfigError{Reason: "unsupported endpoint scheme: " + u.Scheme}
	}
	return nil
}
