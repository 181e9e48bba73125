package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/ignite/platform-hub/internal/domain"
)

// ListStore persists mirrored audience lists keyed by (client_id, external_id).
type ListStore struct{ db *sql.DB }

// NewListStore creates a Postgres-backed audience list store.
func NewListStore(db *sql.DB) *ListStore { return &ListStore{db: db} }

func (s *ListStore) Upsert(ctx context.Context, l *domain.AudienceList) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audience_lists
			(id, client_id, external_id, name, member_count, unsubscribe_count,
			 cleaned_count, avg_open_rate, avg_click_rate, synced_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW(), NOW())
		ON CONFLICT (client_id, external_id) DO UPDATE SET
			name = EXCLUDED.name,
			member_count = EXCLUDED.member_count,
			unsubscribe_count = EXCLUDED.unsubscribe_count,
			cleaned_count = EXCLUDED.cleaned_count,
			avg_open_rate = EXCLUDED.avg_open_rate,
			avg_click_rate = EXCLUDED.avg_click_rate,
			synced_at = NOW(),
			updated_at = NOW()
	`, l.ID, l.ClientID, l.ExternalID, l.Name, l.MemberCount, l.UnsubscribeCount,
		l.CleanedCount, l.AvgOpenRate, l.AvgClickRate)
	if err != nil {
		return fmt.Errorf("upsert list: %w", err)
	}
	return nil
}

func (s *ListStore) ListByClient(ctx context.Context, clientID string) ([]domain.AudienceList, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client_id, external_id, name, member_count, unsubscribe_count,
		       cleaned_count, avg_open_rate, avg_click_rate, synced_at
		FROM audience_lists
		WHERE client_id = $1
		ORDER BY name
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("list audience lists: %w", err)
	}
	defer rows.Close()

	var out []domain.AudienceList
	for rows.Next() {
		var l domain.AudienceList
		if err := rows.Scan(
			&l.ID, &l.ClientID, &l.ExternalID, &l.Name, &l.MemberCount,
			&l.UnsubscribeCount, &l.CleanedCount, &l.AvgOpenRate, &l.AvgClickRate,
			&l.SyncedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audience list: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
