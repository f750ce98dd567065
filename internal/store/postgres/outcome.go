package postgres

import (
	"context"
	"fmt"

	"hookrelay/internal/domain"
)

type OutcomeStore struct {
	db *DB
}

func NewOutcomeStore(db *DB) *OutcomeStore {
	return &OutcomeStore{db: db}
}

func (s *OutcomeStore) Create(ctx context.Context, outcome *domain.DeliveryOutcome) error {
	query := `
		INSERT INTO delivery_outcomes (id, occurrence_id, service_id, event_name, endpoint, status, status_line, error, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.Pool.Exec(ctx, query,
		outcome.ID,
		outcome.OccurrenceID,
		outcome.ServiceID,
		outcome.EventName,
		outcome.Endpoint,
		string(outcome.Status),
		outcome.StatusLine,
		outcome.Error,
		outcome.AttemptedAt,
	)
	if err != nil {
		return fmt.Errorf("insert delivery outcome: %w", err)
	}

	return nil
}
