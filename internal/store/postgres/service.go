package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"hookrelay/internal/domain"
	"hookrelay/internal/store"
)

type ServiceStore struct {
	db  *DB
	inv store.Invalidator
}

func NewServiceStore(db *DB) *ServiceStore {
	return &ServiceStore{db: db}
}

// WithInvalidator wires the resolver cache so every mutation clears it
// before the call returns.
func (s *ServiceStore) WithInvalidator(inv store.Invalidator) *ServiceStore {
	s.inv = inv
	return s
}

func (s *ServiceStore) invalidate() {
	if s.inv != nil {
		s.inv.Invalidate()
	}
}

func (s *ServiceStore) Create(ctx context.Context, svc *domain.Service) error {
	svc.NormalizeEvents()

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", store.ErrUnavailable, err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO services (name, endpoint, content_type, status, token)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		svc.Name,
		svc.Endpoint,
		string(svc.ContentType),
		svc.Status,
		svc.Token,
	).Scan(&svc.ID, &svc.CreatedAt, &svc.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: service name already exists", store.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create service: %w", err)
	}

	if err := insertEvents(ctx, tx, svc.ID, svc.Events); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create service: %w", err)
	}

	s.invalidate()
	return nil
}

func (s *ServiceStore) Update(ctx context.Context, svc *domain.Service) error {
	svc.NormalizeEvents()

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", store.ErrUnavailable, err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE services
		SET name = $2, endpoint = $3, content_type = $4, status = $5, token = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at
	`
	err = tx.QueryRow(ctx, query,
		svc.ID,
		svc.Name,
		svc.Endpoint,
		string(svc.ContentType),
		svc.Status,
		svc.Token,
	).Scan(&svc.CreatedAt, &svc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: service %d", store.ErrNotFound, svc.ID)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: service name already exists", store.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to update service %d: %w", svc.ID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM service_events WHERE service_id = $1`, svc.ID); err != nil {
		return fmt.Errorf("clear service events %d: %w", svc.ID, err)
	}
	if err := insertEvents(ctx, tx, svc.ID, svc.Events); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update service: %w", err)
	}

	s.invalidate()
	return nil
}

func (s *ServiceStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Pool.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete service %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: service %d", store.ErrNotFound, id)
	}

	s.invalidate()
	return nil
}

func (s *ServiceStore) GetByID(ctx context.Context, id int64) (*domain.Service, error) {
	query := `
		SELECT id, name, endpoint, content_type, status, token, created_at, updated_at
		FROM services
		WHERE id = $1
	`
	svc, err := scanService(s.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: service %d", store.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get service %d: %v", store.ErrUnavailable, id, err)
	}

	if err := s.loadEvents(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

func (s *ServiceStore) List(ctx context.Context, opts store.ListOptions) ([]*domain.Service, error) {
	var (
		where []string
		args  []any
	)
	if opts.Name != "" {
		args = append(args, opts.Name)
		where = append(where, fmt.Sprintf("name = $%d", len(args)))
	}
	if opts.ContentType != "" {
		args = append(args, string(opts.ContentType))
		where = append(where, fmt.Sprintf("content_type = $%d", len(args)))
	}
	if opts.Status != nil {
		args = append(args, *opts.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT id, name, endpoint, content_type, status, token, created_at, updated_at FROM services`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	switch opts.Sort {
	case "name":
		query += " ORDER BY name"
	default:
		query += " ORDER BY id"
	}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query services: %v", store.ErrUnavailable, err)
	}
	defer rows.Close()

	services, err := collectServices(rows)
	if err != nil {
		return nil, err
	}
	if err := s.loadAllEvents(ctx, services); err != nil {
		return nil, err
	}
	return services, nil
}

func (s *ServiceStore) GetByEvent(ctx context.Context, event string) ([]*domain.Service, error) {
	query := `
		SELECT s.id, s.name, s.endpoint, s.content_type, s.status, s.token, s.created_at, s.updated_at
		FROM services s
		JOIN service_events e ON e.service_id = s.id
		WHERE e.event_name = $1
		ORDER BY s.id
	`
	rows, err := s.db.Pool.Query(ctx, query, event)
	if err != nil {
		return nil, fmt.Errorf("%w: query services by event %q: %v", store.ErrUnavailable, event, err)
	}
	defer rows.Close()

	services, err := collectServices(rows)
	if err != nil {
		return nil, err
	}
	if err := s.loadAllEvents(ctx, services); err != nil {
		return nil, err
	}
	return services, nil
}

func (s *ServiceStore) loadEvents(ctx context.Context, svc *domain.Service) error {
	rows, err := s.db.Pool.Query(ctx,
		`SELECT event_name FROM service_events WHERE service_id = $1`, svc.ID)
	if err != nil {
		return fmt.Errorf("%w: query events for service %d: %v", store.ErrUnavailable, svc.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scan event name: %w", err)
		}
		svc.Events = append(svc.Events, name)
	}
	return rows.Err()
}

func (s *ServiceStore) loadAllEvents(ctx context.Context, services []*domain.Service) error {
	if len(services) == 0 {
		return nil
	}

	byID := make(map[int64]*domain.Service, len(services))
	ids := make([]int64, 0, len(services))
	for _, svc := range services {
		byID[svc.ID] = svc
		ids = append(ids, svc.ID)
	}

	rows, err := s.db.Pool.Query(ctx,
		`SELECT service_id, event_name FROM service_events WHERE service_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("%w: query service events: %v", store.ErrUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return fmt.Errorf("scan service event: %w", err)
		}
		if svc, ok := byID[id]; ok {
			svc.Events = append(svc.Events, name)
		}
	}
	return rows.Err()
}

func insertEvents(ctx context.Context, tx pgx.Tx, serviceID int64, events []string) error {
	for _, name := range events {
		_, err := tx.Exec(ctx,
			`INSERT INTO service_events (service_id, event_name) VALUES ($1, $2)`,
			serviceID, name)
		if err != nil {
			return fmt.Errorf("insert event %q for service %d: %w", name, serviceID, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanService(row rowScanner) (*domain.Service, error) {
	var (
		svc         domain.Service
		contentType string
		createdAt   time.Time
		updatedAt   time.Time
	)
	err := row.Scan(
		&svc.ID,
		&svc.Name,
		&svc.Endpoint,
		&contentType,
		&svc.Status,
		&svc.Token,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	svc.ContentType = domain.ContentType(contentType)
	svc.CreatedAt = createdAt
	svc.UpdatedAt = updatedAt
	return &svc, nil
}

func collectServices(rows pgx.Rows) ([]*domain.Service, error) {
	var services []*domain.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read services: %v", store.ErrUnavailable, err)
	}
	return services, nil
}
