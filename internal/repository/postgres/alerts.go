package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/ignite/platform-hub/internal/domain"
)

// AlertStore persists operator alerts.
type AlertStore struct{ db *sql.DB }

// NewAlertStore creates a Postgres-backed alert store.
func NewAlertStore(db *sql.DB) *AlertStore { return &AlertStore{db: db} }

// FindUnresolved returns the open alert for (clientID, type, metric), or
// ErrNotFound. Processors call this before Create to suppress duplicates.
func (s *AlertStore) FindUnresolved(ctx context.Context, clientID string, alertType domain.AlertType, metric string) (*domain.Alert, error) {
	a := &domain.Alert{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, client_id, type, COALESCE(metric,''), severity, message,
		       read, dismissed, resolved_at, created_at
		FROM alerts
		WHERE client_id = $1 AND type = $2 AND COALESCE(metric,'') = $3 AND resolved_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`, clientID, alertType, metric).Scan(
		&a.ID, &a.ClientID, &a.Type, &a.Metric, &a.Severity, &a.Message,
		&a.Read, &a.Dismissed, &a.ResolvedAt, &a.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find unresolved alert: %w", err)
	}
	return a, nil
}

func (s *AlertStore) Create(ctx context.Context, a *domain.Alert) (string, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Severity == "" {
		a.Severity = domain.SeverityMedium
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, client_id, type, metric, severity, message, read, dismissed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, false, false, NOW())
	`, a.ID, a.ClientID, a.Type, a.Metric, a.Severity, a.Message)
	if err != nil {
		return "", fmt.Errorf("create alert: %w", err)
	}
	return a.ID, nil
}

// Resolve closes one alert by id.
func (s *AlertStore) Resolve(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET resolved_at = NOW() WHERE id = $1 AND resolved_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("resolve alert: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ResolveByClientType closes every open alert of one type for a client.
// Used by credential verification to clear stale credential alerts after a
// successful connection test. Returns the number of alerts closed.
func (s *AlertStore) ResolveByClientType(ctx context.Context, clientID string, alertType domain.AlertType) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE alerts SET resolved_at = NOW()
		WHERE client_id = $1 AND type = $2 AND resolved_at IS NULL
	`, clientID, alertType)
	if err != nil {
		return 0, fmt.Errorf("resolve alerts by type: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// List returns recent alerts, open ones first.
func (s *AlertStore) List(ctx context.Context, limit int) ([]domain.Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client_id, type, COALESCE(metric,''), severity, message,
		       read, dismissed, resolved_at, created_at
		FROM alerts
		ORDER BY (resolved_at IS NULL) DESC, created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.Alert
	for rows.Next() {
		var a domain.Alert
		if err := rows.Scan(
			&a.ID, &a.ClientID, &a.Type, &a.Metric, &a.Severity, &a.Message,
			&a.Read, &a.Dismissed, &a.ResolvedAt, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteResolvedOlderThan removes aged alerts. When onlyResolved is false,
// aged open alerts are swept as well.
func (s *AlertStore) DeleteResolvedOlderThan(ctx context.Context, days int, onlyResolved bool) (int, error) {
	q := fmt.Sprintf(`DELETE FROM alerts WHERE created_at < NOW() - INTERVAL '%d days'`, days)
	if onlyResolved {
		q += " AND resolved_at IS NOT NULL"
	}
	res, err := s.db.ExecContext(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("delete old alerts: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
