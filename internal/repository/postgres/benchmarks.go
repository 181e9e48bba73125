package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/ignite/platform-hub/internal/domain"
)

// BenchmarkStore persists industry benchmark rows keyed by
// (industry, metric, period).
type BenchmarkStore struct{ db *sql.DB }

// NewBenchmarkStore creates a Postgres-backed benchmark store.
func NewBenchmarkStore(db *sql.DB) *BenchmarkStore { return &BenchmarkStore{db: db} }

func (s *BenchmarkStore) Upsert(ctx context.Context, b *domain.Benchmark) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO benchmarks (id, industry, metric, period, value, sample_size, calculated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (industry, metric, period) DO UPDATE SET
			value = EXCLUDED.value,
			sample_size = EXCLUDED.sample_size,
			calculated_at = NOW()
	`, b.ID, b.Industry, b.Metric, b.Period, b.Value, b.SampleSize)
	if err != nil {
		return fmt.Errorf("upsert benchmark: %w", err)
	}
	return nil
}

func (s *BenchmarkStore) Get(ctx context.Context, industry, metric, period string) (*domain.Benchmark, error) {
	b := &domain.Benchmark{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, industry, metric, period, value, sample_size, calculated_at
		FROM benchmarks
		WHERE industry = $1 AND metric = $2 AND period = $3
	`, industry, metric, period).Scan(
		&b.ID, &b.Industry, &b.Metric, &b.Period, &b.Value, &b.SampleSize, &b.CalculatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get benchmark: %w", err)
	}
	return b, nil
}
