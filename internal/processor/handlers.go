package processor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ignite/platform-hub/internal/jobs"
)

// Job names as they appear in queue payloads and scheduler registrations.
const (
	JobSyncCampaigns    = "sync:campaigns"
	JobSyncAllCampaigns = "sync:all-campaigns"
	JobSyncLists        = "sync:lists"
	JobSyncMetrics      = "sync:metrics"
	JobVerifyClient     = "verify:credentials"
	JobVerifyAll        = "verify:all-credentials"
	JobBenchmarks       = "calculate:benchmarks"
	JobAnomalies        = "detect:anomalies"
	JobCleanup          = "cleanup:old-alerts"
)

type clientPayload struct {
	ClientID string `json:"clientId"`
}

type metricsPayload struct {
	ClientID   string `json:"clientId"`
	CampaignID string `json:"campaignId,omitempty"`
}

type benchmarkPayload struct {
	Period string `json:"period"`
}

type anomalyPayload struct {
	ClientID string `json:"clientId,omitempty"`
}

type cleanupPayload struct {
	OlderThanDays int  `json:"olderThanDays"`
	OnlyResolved  bool `json:"onlyResolved,omitempty"`
}

func decodePayload(job *jobs.Job, v interface{}) error {
	if job.Payload == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(job.Payload), v); err != nil {
		return fmt.Errorf("decode %s payload: %w", job.Name, err)
	}
	return nil
}

// Pools groups the four worker pools so processors can be registered in one
// place.
type Pools struct {
	Sync         *jobs.Pool
	Verification *jobs.Pool
	Analytics    *jobs.Pool
	Maintenance  *jobs.Pool
}

// Register binds every job name to its processor method on the owning pool.
func (p *Processor) Register(pools Pools) {
	pools.Sync.Register(JobSyncCampaigns, func(ctx context.Context, job *jobs.Job) error {
		var payload clientPayload
		if err := decodePayload(job, &payload); err != nil {
			return err
		}
		return p.SyncCampaigns(ctx, payload.ClientID)
	})
	pools.Sync.Register(JobSyncAllCampaigns, func(ctx context.Context, job *jobs.Job) error {
		return p.SyncAllCampaigns(ctx)
	})
	pools.Sync.Register(JobSyncLists, func(ctx context.Context, job *jobs.Job) error {
		var payload clientPayload
		if err := decodePayload(job, &payload); err != nil {
			return err
		}
		return p.SyncLists(ctx, payload.ClientID)
	})
	pools.Sync.Register(JobSyncMetrics, func(ctx context.Context, job *jobs.Job) error {
		var payload metricsPayload
		if err := decodePayload(job, &payload); err != nil {
			return err
		}
		return p.SyncMetrics(ctx, payload.ClientID, payload.CampaignID)
	})

	pools.Verification.Register(JobVerifyClient, func(ctx context.Context, job *jobs.Job) error {
		var payload clientPayload
		if err := decodePayload(job, &payload); err != nil {
			return err
		}
		return p.VerifyCredentials(ctx, payload.ClientID)
	})
	pools.Verification.Register(JobVerifyAll, func(ctx context.Context, job *jobs.Job) error {
		return p.VerifyAllCredentials(ctx)
	})

	pools.Analytics.Register(JobBenchmarks, func(ctx context.Context, job *jobs.Job) error {
		var payload benchmarkPayload
		if err := decodePayload(job, &payload); err != nil {
			return err
		}
		return p.CalculateBenchmarks(ctx, payload.Period)
	})
	pools.Analytics.Register(JobAnomalies, func(ctx context.Context, job *jobs.Job) error {
		var payload anomalyPayload
		if err := decodePayload(job, &payload); err != nil {
			return err
		}
		return p.DetectAnomalies(ctx, payload.ClientID)
	})

	pools.Maintenance.Register(JobCleanup, func(ctx context.Context, job *jobs.Job) error {
		var payload cleanupPayload
		if err := decodePayload(job, &payload); err != nil {
			return err
		}
		return p.CleanupOldRecords(ctx, payload.OlderThanDays, payload.OnlyResolved)
	})
}
