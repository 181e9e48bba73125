package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/platform-hub/internal/domain"
)

// ClientStore persists agency clients.
type ClientStore struct{ db *sql.DB }

// NewClientStore creates a Postgres-backed client store.
func NewClientStore(db *sql.DB) *ClientStore { return &ClientStore{db: db} }

func (s *ClientStore) Get(ctx context.Context, id string) (*domain.Client, error) {
	c := &domain.Client{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, platform, COALESCE(industry,''), status, sync_status,
		       last_sync_at, created_at, updated_at
		FROM clients
		WHERE id = $1
	`, id).Scan(
		&c.ID, &c.Name, &c.Platform, &c.Industry, &c.Status, &c.SyncStatus,
		&c.LastSyncAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

// ListByStatus returns clients in any of the given lifecycle statuses,
// oldest sync first so the stalest mirrors are refreshed sooner.
func (s *ClientStore) ListByStatus(ctx context.Context, statuses ...domain.ClientStatus) ([]domain.Client, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	q := `
		SELECT id, name, platform, COALESCE(industry,''), status, sync_status,
		       last_sync_at, created_at, updated_at
		FROM clients
		WHERE status = ANY($1)
		ORDER BY last_sync_at ASC NULLS FIRST`

	vals := make([]string, len(statuses))
	for i, st := range statuses {
		vals[i] = string(st)
	}

	rows, err := s.db.QueryContext(ctx, q, pq.Array(vals))
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var out []domain.Client
	for rows.Next() {
		var c domain.Client
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Platform, &c.Industry, &c.Status, &c.SyncStatus,
			&c.LastSyncAt, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *ClientStore) Create(ctx context.Context, c *domain.Client) (string, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Status == "" {
		c.Status = domain.ClientOnboarding
	}
	if c.SyncStatus == "" {
		c.SyncStatus = domain.SyncNever
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, platform, industry, status, sync_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`, c.ID, c.Name, c.Platform, c.Industry, c.Status, c.SyncStatus)
	if err != nil {
		return "", fmt.Errorf("create client: %w", err)
	}
	return c.ID, nil
}

func (s *ClientStore) UpdateStatus(ctx context.Context, id string, status domain.ClientStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE clients SET status = $1, updated_at = NOW() WHERE id = $2
	`, status, id)
	if err != nil {
		return fmt.Errorf("update client status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSyncStatus records the outcome of a sync run and advances the
// last-sync timestamp.
func (s *ClientStore) UpdateSyncStatus(ctx context.Context, id string, status domain.SyncStatus, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE clients SET sync_status = $1, last_sync_at = $2, updated_at = NOW() WHERE id = $3
	`, status, at, id)
	if err != nil {
		return fmt.Errorf("update sync status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
