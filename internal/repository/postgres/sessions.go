package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// SessionStore persists user sessions; only the maintenance sweep touches
// them here.
type SessionStore struct{ db *sql.DB }

// NewSessionStore creates a Postgres-backed session store.
func NewSessionStore(db *sql.DB) *SessionStore { return &SessionStore{db: db} }

// DeleteExpired removes sessions past their expiry plus any older than the
// given number of days regardless of expiry.
func (s *SessionStore) DeleteExpired(ctx context.Context, maxAgeDays int) (int, error) {
	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM sessions
		WHERE expires_at < NOW()
		   OR created_at < NOW() - INTERVAL '%d days'
	`, maxAgeDays))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
