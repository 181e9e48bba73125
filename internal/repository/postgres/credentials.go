package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/platform-hub/internal/domain"
)

// CredentialStore persists encrypted credential records, one per client.
type CredentialStore struct{ db *sql.DB }

// NewCredentialStore creates a Postgres-backed credential store.
func NewCredentialStore(db *sql.DB) *CredentialStore { return &CredentialStore{db: db} }

func (s *CredentialStore) Get(ctx context.Context, clientID string) (*domain.Credential, error) {
	c := &domain.Credential{}
	err := s.db.QueryRowContext(ctx, `
		SELECT client_id, ciphertext, iv, auth_tag, valid, last_verified_at, updated_at
		FROM credentials
		WHERE client_id = $1
	`, clientID).Scan(
		&c.ClientID, &c.Ciphertext, &c.IV, &c.AuthTag, &c.Valid, &c.LastVerifiedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return c, nil
}

// Upsert stores the encrypted record for a client, replacing any previous
// one. A replaced credential resets to unverified.
func (s *CredentialStore) Upsert(ctx context.Context, c *domain.Credential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (client_id, ciphertext, iv, auth_tag, valid, updated_at)
		VALUES ($1, $2, $3, $4, false, NOW())
		ON CONFLICT (client_id) DO UPDATE SET
			ciphertext = EXCLUDED.ciphertext,
			iv = EXCLUDED.iv,
			auth_tag = EXCLUDED.auth_tag,
			valid = false,
			last_verified_at = NULL,
			updated_at = NOW()
	`, c.ClientID, c.Ciphertext, c.IV, c.AuthTag)
	if err != nil {
		return fmt.Errorf("upsert credential: %w", err)
	}
	return nil
}

// SetValidity records the outcome of a verification run.
func (s *CredentialStore) SetValidity(ctx context.Context, clientID string, valid bool, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE credentials SET valid = $1, last_verified_at = $2, updated_at = NOW()
		WHERE client_id = $3
	`, valid, at, clientID)
	if err != nil {
		return fmt.Errorf("set credential validity: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
