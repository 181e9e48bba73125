package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/platform-hub/internal/domain"
	"github.com/ignite/platform-hub/internal/jobs"
	"github.com/ignite/platform-hub/internal/pkg/logger"
	"github.com/ignite/platform-hub/internal/repository/postgres"
)

// periodWindow maps a benchmark period to its lookback window.
func periodWindow(period string) (time.Duration, error) {
	switch period {
	case "weekly":
		return 7 * 24 * time.Hour, nil
	case "monthly":
		return 30 * 24 * time.Hour, nil
	case "quarterly":
		return 90 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown benchmark period %q", period)
	}
}

// CalculateBenchmarks aggregates SENT-campaign metrics per industry into
// benchmark rows for the given period. Industries with too few campaigns
// to be statistically useful are skipped.
func (p *Processor) CalculateBenchmarks(ctx context.Context, period string) error {
	input := mustJSON(map[string]string{"period": period})
	return p.runWrapped(ctx, JobBenchmarks, jobs.QueueAnalytics, input, func(ctx context.Context) (string, error) {
		window, err := periodWindow(period)
		if err != nil {
			return "", err
		}

		aggs, err := p.stores.Campaigns.AggregateByIndustry(ctx, time.Now().Add(-window))
		if err != nil {
			return "", err
		}

		written := 0
		skipped := 0
		for _, agg := range aggs {
			if agg.SampleSize < p.analytics.MinCampaignsForStats {
				skipped++
				continue
			}
			for metric, value := range map[string]float64{
				"open_rate":   agg.AvgOpenRate,
				"click_rate":  agg.AvgClickRate,
				"bounce_rate": agg.AvgBounceRate,
			} {
				if err := p.stores.Benchmarks.Upsert(ctx, &domain.Benchmark{
					Industry:   agg.Industry,
					Metric:     metric,
					Period:     period,
					Value:      value,
					SampleSize: agg.SampleSize,
				}); err != nil {
					return "", fmt.Errorf("upsert %s/%s benchmark: %w", agg.Industry, metric, err)
				}
				written++
			}
		}
		return mustJSON(map[string]int{"benchmarks": written, "skippedIndustries": skipped}), nil
	})
}

// DetectAnomalies flags clients whose open rate sits far below or bounce
// rate far above their industry benchmark. An empty clientID scans every
// active client. The unresolved-alert check keeps repeated scans from
// storming the same alert.
func (p *Processor) DetectAnomalies(ctx context.Context, clientID string) error {
	input := "{}"
	if clientID != "" {
		input = mustJSON(map[string]string{"clientId": clientID})
	}
	return p.runWrapped(ctx, JobAnomalies, jobs.QueueAnalytics, input, func(ctx context.Context) (string, error) {
		var clients []domain.Client
		if clientID != "" {
			c, err := p.stores.Clients.Get(ctx, clientID)
			if err != nil {
				return "", err
			}
			clients = []domain.Client{*c}
		} else {
			var err error
			clients, err = p.stores.Clients.ListByStatus(ctx, domain.ClientActive)
			if err != nil {
				return "", err
			}
		}

		raised := 0
		for i := range clients {
			n, err := p.detectClientAnomalies(ctx, &clients[i])
			if err != nil {
				logger.Warn("anomaly scan failed", "client_id", clients[i].ID, "error", err.Error())
				continue
			}
			raised += n
		}
		return mustJSON(map[string]int{"alertsRaised": raised}), nil
	})
}

func (p *Processor) detectClientAnomalies(ctx context.Context, client *domain.Client) (int, error) {
	if client.Industry == "" {
		return 0, nil
	}

	openRate, bounceRate, sampleSize, err := p.stores.Campaigns.ClientRates(ctx, client.ID)
	if err != nil {
		return 0, err
	}
	if sampleSize < p.analytics.MinCampaignsForStats {
		return 0, nil
	}

	raised := 0

	openBench, err := p.stores.Benchmarks.Get(ctx, client.Industry, "open_rate", "monthly")
	if err != nil && err != postgres.ErrNotFound {
		return raised, err
	}
	if openBench != nil && openRate < openBench.Value*p.analytics.OpenRateFloorRatio {
		created, err := p.raiseAlert(ctx, &domain.Alert{
			ClientID: client.ID,
			Type:     domain.AlertAnomaly,
			Metric:   "open_rate",
			Severity: domain.SeverityMedium,
			Message: fmt.Sprintf("open rate %.1f%% is well below the %s industry benchmark of %.1f%%",
				openRate*100, client.Industry, openBench.Value*100),
		})
		if err != nil {
			return raised, err
		}
		if created {
			raised++
		}
	}

	bounceBench, err := p.stores.Benchmarks.Get(ctx, client.Industry, "bounce_rate", "monthly")
	if err != nil && err != postgres.ErrNotFound {
		return raised, err
	}
	if bounceBench != nil && bounceRate > bounceBench.Value*p.analytics.BounceRateCeilRatio {
		created, err := p.raiseAlert(ctx, &domain.Alert{
			ClientID: client.ID,
			Type:     domain.AlertAnomaly,
			Metric:   "bounce_rate",
			Severity: domain.SeverityMedium,
			Message: fmt.Sprintf("bounce rate %.1f%% is well above the %s industry benchmark of %.1f%%",
				bounceRate*100, client.Industry, bounceBench.Value*100),
		})
		if err != nil {
			return raised, err
		}
		if created {
			raised++
		}
	}

	return raised, nil
}
