package processor

import (
	"context"

	"github.com/ignite/platform-hub/internal/jobs"
)

// CleanupOldRecords sweeps aged resolved alerts, terminal job runs, and
// expired sessions. olderThanDays overrides the configured alert retention
// when positive; onlyResolved false also sweeps aged open alerts.
func (p *Processor) CleanupOldRecords(ctx context.Context, olderThanDays int, onlyResolved bool) error {
	input := mustJSON(map[string]interface{}{"olderThanDays": olderThanDays, "onlyResolved": onlyResolved})
	return p.runWrapped(ctx, JobCleanup, jobs.QueueMaintenance, input, func(ctx context.Context) (string, error) {
		alertDays := olderThanDays
		if alertDays <= 0 {
			alertDays = p.cleanup.AlertRetentionDays
		}

		alerts, err := p.stores.Alerts.DeleteResolvedOlderThan(ctx, alertDays, onlyResolved)
		if err != nil {
			return "", err
		}
		runs, err := p.stores.JobRuns.DeleteTerminalOlderThan(ctx, p.cleanup.JobRunRetentionDays)
		if err != nil {
			return "", err
		}
		sessions, err := p.stores.Sessions.DeleteExpired(ctx, p.cleanup.SessionRetentionDays)
		if err != nil {
			return "", err
		}

		requeued := 0
		if p.staleQueue != nil {
			requeued, err = p.staleQueue.RequeueStale(ctx, p.staleAfter)
			if err != nil {
				return "", err
			}
		}

		return mustJSON(map[string]int{
			"alertsDeleted":   alerts,
			"jobRunsDeleted":  runs,
			"sessionsDeleted": sessions,
			"jobsRequeued":    requeued,
		}), nil
	})
}
