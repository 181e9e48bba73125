package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/platform-hub/internal/domain"
)

// CampaignStore persists mirrored campaigns keyed by (client_id, external_id).
type CampaignStore struct{ db *sql.DB }

// NewCampaignStore creates a Postgres-backed campaign mirror store.
func NewCampaignStore(db *sql.DB) *CampaignStore { return &CampaignStore{db: db} }

// Upsert applies one campaign snapshot to the mirror. Repeated application
// of the same snapshot is a no-op apart from synced_at advancing.
func (s *CampaignStore) Upsert(ctx context.Context, c *domain.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	metadata, err := json.Marshal(c.Metadata)
	if err != nil {
		return fmt.Errorf("marshal campaign metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO campaigns
			(id, client_id, external_id, name, subject, from_name, from_email,
			 preview_text, status, scheduled_at, sent_at, metadata,
			 sent, delivered, opens, unique_opens, clicks, unique_clicks,
			 bounces, unsubscribes, complaints,
			 open_rate, click_rate, bounce_rate, unsubscribe_rate, complaint_rate,
			 synced_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		        $13, $14, $15, $16, $17, $18, $19, $20, $21,
		        $22, $23, $24, $25, $26, NOW(), NOW(), NOW())
		ON CONFLICT (client_id, external_id) DO UPDATE SET
			name = EXCLUDED.name,
			subject = EXCLUDED.subject,
			from_name = EXCLUDED.from_name,
			from_email = EXCLUDED.from_email,
			preview_text = EXCLUDED.preview_text,
			status = EXCLUDED.status,
			scheduled_at = EXCLUDED.scheduled_at,
			sent_at = EXCLUDED.sent_at,
			metadata = EXCLUDED.metadata,
			sent = EXCLUDED.sent,
			delivered = EXCLUDED.delivered,
			opens = EXCLUDED.opens,
			unique_opens = EXCLUDED.unique_opens,
			clicks = EXCLUDED.clicks,
			unique_clicks = EXCLUDED.unique_clicks,
			bounces = EXCLUDED.bounces,
			unsubscribes = EXCLUDED.unsubscribes,
			complaints = EXCLUDED.complaints,
			open_rate = EXCLUDED.open_rate,
			click_rate = EXCLUDED.click_rate,
			bounce_rate = EXCLUDED.bounce_rate,
			unsubscribe_rate = EXCLUDED.unsubscribe_rate,
			complaint_rate = EXCLUDED.complaint_rate,
			synced_at = NOW(),
			updated_at = NOW()
	`, c.ID, c.ClientID, c.ExternalID, c.Name, c.Subject, c.FromName, c.FromEmail,
		c.PreviewText, c.Status, c.ScheduledAt, c.SentAt, metadata,
		c.Metrics.Sent, c.Metrics.Delivered, c.Metrics.Opens, c.Metrics.UniqueOpens,
		c.Metrics.Clicks, c.Metrics.UniqueClicks, c.Metrics.Bounces,
		c.Metrics.Unsubscribes, c.Metrics.Complaints,
		c.Metrics.OpenRate, c.Metrics.ClickRate, c.Metrics.BounceRate,
		c.Metrics.UnsubscribeRate, c.Metrics.ComplaintRate)
	if err != nil {
		return fmt.Errorf("upsert campaign: %w", err)
	}
	return nil
}

// UpdateMetrics refreshes only the metrics snapshot of an existing mirror row.
func (s *CampaignStore) UpdateMetrics(ctx context.Context, clientID, externalID string, m *domain.Metrics) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE campaigns SET
			sent = $1, delivered = $2, opens = $3, unique_opens = $4,
			clicks = $5, unique_clicks = $6, bounces = $7,
			unsubscribes = $8, complaints = $9,
			open_rate = $10, click_rate = $11, bounce_rate = $12,
			unsubscribe_rate = $13, complaint_rate = $14,
			synced_at = NOW(), updated_at = NOW()
		WHERE client_id = $15 AND external_id = $16
	`, m.Sent, m.Delivered, m.Opens, m.UniqueOpens,
		m.Clicks, m.UniqueClicks, m.Bounces, m.Unsubscribes, m.Complaints,
		m.OpenRate, m.ClickRate, m.BounceRate, m.UnsubscribeRate, m.ComplaintRate,
		clientID, externalID)
	if err != nil {
		return fmt.Errorf("update campaign metrics: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByClient returns mirrored campaigns for one client, optionally filtered
// by status.
func (s *CampaignStore) ListByClient(ctx context.Context, clientID string, status domain.CampaignStatus) ([]domain.Campaign, error) {
	q := `
		SELECT id, client_id, external_id, name, subject, status, scheduled_at, sent_at,
		       sent, delivered, opens, unique_opens, clicks, unique_clicks,
		       bounces, unsubscribes, complaints
		FROM campaigns
		WHERE client_id = $1`
	args := []interface{}{clientID}
	if status != "" {
		q += " AND status = $2"
		args = append(args, status)
	}
	q += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		if err := rows.Scan(
			&c.ID, &c.ClientID, &c.ExternalID, &c.Name, &c.Subject, &c.Status,
			&c.ScheduledAt, &c.SentAt,
			&c.Metrics.Sent, &c.Metrics.Delivered, &c.Metrics.Opens, &c.Metrics.UniqueOpens,
			&c.Metrics.Clicks, &c.Metrics.UniqueClicks, &c.Metrics.Bounces,
			&c.Metrics.Unsubscribes, &c.Metrics.Complaints,
		); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountByClient returns the number of mirrored campaigns for one client.
func (s *CampaignStore) CountByClient(ctx context.Context, clientID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM campaigns WHERE client_id = $1
	`, clientID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count campaigns: %w", err)
	}
	return n, nil
}

// IndustryAggregate is one per-industry average over sent campaigns.
type IndustryAggregate struct {
	Industry      string
	AvgOpenRate   float64
	AvgClickRate  float64
	AvgBounceRate float64
	SampleSize    int
}

// AggregateByIndustry averages metric rates of SENT campaigns per industry
// over the given window.
func (s *CampaignStore) AggregateByIndustry(ctx context.Context, since time.Time) ([]IndustryAggregate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cl.industry,
		       AVG(c.open_rate), AVG(c.click_rate), AVG(c.bounce_rate), COUNT(*)
		FROM campaigns c
		JOIN clients cl ON cl.id = c.client_id
		WHERE c.status = 'SENT' AND c.sent_at >= $1 AND cl.industry <> ''
		GROUP BY cl.industry
	`, since)
	if err != nil {
		return nil, fmt.Errorf("aggregate by industry: %w", err)
	}
	defer rows.Close()

	var out []IndustryAggregate
	for rows.Next() {
		var agg IndustryAggregate
		if err := rows.Scan(&agg.Industry, &agg.AvgOpenRate, &agg.AvgClickRate,
			&agg.AvgBounceRate, &agg.SampleSize); err != nil {
			return nil, fmt.Errorf("scan industry aggregate: %w", err)
		}
		out = append(out, agg)
	}
	return out, rows.Err()
}

// ClientRates returns a client's average open and bounce rate over its SENT
// campaigns, for anomaly detection.
func (s *CampaignStore) ClientRates(ctx context.Context, clientID string) (openRate, bounceRate float64, sampleSize int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(open_rate), 0), COALESCE(AVG(bounce_rate), 0), COUNT(*)
		FROM campaigns
		WHERE client_id = $1 AND status = 'SENT'
	`, clientID).Scan(&openRate, &bounceRate, &sampleSize)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("client rates: %w", err)
	}
	return openRate, bounceRate, sampleSize, nil
}
