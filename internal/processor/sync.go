package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/platform-hub/internal/domain"
	"github.com/ignite/platform-hub/internal/jobs"
	"github.com/ignite/platform-hub/internal/pkg/logger"
	"github.com/ignite/platform-hub/internal/platform"
)

type syncResult struct {
	Synced  int  `json:"synced"`
	Errors  int  `json:"errors"`
	Skipped bool `json:"skipped,omitempty"`
}

// SyncCampaigns mirrors one client's campaigns. Per-item failures are
// counted and logged without aborting the batch; the client's sync status
// ends fully synced only on a clean run.
func (p *Processor) SyncCampaigns(ctx context.Context, clientID string) error {
	input := mustJSON(map[string]string{"clientId": clientID})
	return p.runWrapped(ctx, JobSyncCampaigns, jobs.QueueSync, input, func(ctx context.Context) (string, error) {
		res, err := p.syncClientCampaigns(ctx, clientID)
		if err != nil {
			return "", err
		}
		return mustJSON(res), nil
	})
}

func (p *Processor) syncClientCampaigns(ctx context.Context, clientID string) (*syncResult, error) {
	if p.lockForClient != nil {
		lock := p.lockForClient(clientID)
		ok, err := lock.Acquire(ctx)
		if err != nil {
			logger.Warn("sync lock unavailable, proceeding unlocked", "client_id", clientID, "error", err.Error())
		} else if !ok {
			logger.Info("sync already running for client, skipping", "client_id", clientID)
			return &syncResult{Skipped: true}, nil
		} else {
			defer func() {
				if err := lock.Release(context.Background()); err != nil {
					logger.Warn("sync lock release failed", "client_id", clientID, "error", err.Error())
				}
			}()
		}
	}

	client, err := p.stores.Clients.Get(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("load client %s: %w", clientID, err)
	}

	adapter, err := p.buildAdapter(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("build adapter for client %s: %w", clientID, err)
	}

	if err := p.stores.Clients.UpdateSyncStatus(ctx, clientID, domain.SyncRunning, time.Now()); err != nil {
		return nil, err
	}

	res := &syncResult{}
	page := platform.Page{Limit: p.pageLimit}
	for i := 0; i < p.maxPages; i++ {
		cp, err := adapter.GetCampaigns(ctx, page)
		if err != nil {
			p.finishSync(ctx, clientID, res, true)
			return nil, fmt.Errorf("fetch campaigns for client %s: %w", clientID, err)
		}

		for j := range cp.Campaigns {
			c := cp.Campaigns[j]
			if err := p.stores.Campaigns.Upsert(ctx, &c); err != nil {
				res.Errors++
				logger.Warn("campaign upsert failed", "client_id", clientID,
					"external_id", c.ExternalID, "error", err.Error())
				continue
			}
			res.Synced++
		}

		if !cp.HasMore {
			break
		}
		page.Offset = cp.NextOffset
		page.Cursor = cp.NextCursor
	}

	p.finishSync(ctx, clientID, res, false)
	return res, nil
}

func (p *Processor) finishSync(ctx context.Context, clientID string, res *syncResult, failed bool) {
	status := domain.SyncFull
	switch {
	case failed:
		status = domain.SyncFailed
	case res.Errors > 0:
		status = domain.SyncPartial
	}
	if err := p.stores.Clients.UpdateSyncStatus(ctx, clientID, status, time.Now()); err != nil {
		logger.Error("sync status update failed", "client_id", clientID, "error", err.Error())
	}
}

type fleetResult struct {
	Clients int `json:"clients"`
	Failed  int `json:"failed"`
}

// SyncAllCampaigns mirrors campaigns for every active client, isolating one
// client's failure from the rest.
func (p *Processor) SyncAllCampaigns(ctx context.Context) error {
	return p.runWrapped(ctx, JobSyncAllCampaigns, jobs.QueueSync, "{}", func(ctx context.Context) (string, error) {
		clients, err := p.stores.Clients.ListByStatus(ctx, domain.ClientActive)
		if err != nil {
			return "", err
		}

		res := fleetResult{Clients: len(clients)}
		for i := range clients {
			if _, err := p.syncClientCampaigns(ctx, clients[i].ID); err != nil {
				res.Failed++
				logger.Error("fleet sync: client failed", "client_id", clients[i].ID, "error", err.Error())
			}
		}
		return mustJSON(res), nil
	})
}

// SyncLists mirrors one client's audience lists.
func (p *Processor) SyncLists(ctx context.Context, clientID string) error {
	input := mustJSON(map[string]string{"clientId": clientID})
	return p.runWrapped(ctx, JobSyncLists, jobs.QueueSync, input, func(ctx context.Context) (string, error) {
		client, err := p.stores.Clients.Get(ctx, clientID)
		if err != nil {
			return "", fmt.Errorf("load client %s: %w", clientID, err)
		}

		adapter, err := p.buildAdapter(ctx, client)
		if err != nil {
			return "", fmt.Errorf("build adapter for client %s: %w", clientID, err)
		}

		lists, err := adapter.GetLists(ctx)
		if err != nil {
			return "", fmt.Errorf("fetch lists for client %s: %w", clientID, err)
		}

		res := syncResult{}
		for i := range lists {
			if err := p.stores.Lists.Upsert(ctx, &lists[i]); err != nil {
				res.Errors++
				logger.Warn("list upsert failed", "client_id", clientID,
					"external_id", lists[i].ExternalID, "error", err.Error())
				continue
			}
			res.Synced++
		}
		return mustJSON(res), nil
	})
}

// SyncMetrics refreshes metric snapshots for a client's SENT campaigns. An
// optional campaignID restricts the refresh to one campaign.
func (p *Processor) SyncMetrics(ctx context.Context, clientID, campaignID string) error {
	input := mustJSON(map[string]string{"clientId": clientID, "campaignId": campaignID})
	return p.runWrapped(ctx, JobSyncMetrics, jobs.QueueSync, input, func(ctx context.Context) (string, error) {
		client, err := p.stores.Clients.Get(ctx, clientID)
		if err != nil {
			return "", fmt.Errorf("load client %s: %w", clientID, err)
		}

		adapter, err := p.buildAdapter(ctx, client)
		if err != nil {
			return "", fmt.Errorf("build adapter for client %s: %w", clientID, err)
		}

		sent, err := p.stores.Campaigns.ListByClient(ctx, clientID, domain.StatusSent)
		if err != nil {
			return "", err
		}

		res := syncResult{}
		for i := range sent {
			if campaignID != "" && sent[i].ExternalID != campaignID {
				continue
			}
			m, err := adapter.GetCampaignMetrics(ctx, sent[i].ExternalID)
			if err != nil {
				res.Errors++
				logger.Warn("metrics fetch failed", "client_id", clientID,
					"external_id", sent[i].ExternalID, "error", err.Error())
				continue
			}
			if err := p.stores.Campaigns.UpdateMetrics(ctx, clientID, sent[i].ExternalID, m); err != nil {
				res.Errors++
				logger.Warn("metrics update failed", "client_id", clientID,
					"external_id", sent[i].ExternalID, "error", err.Error())
				continue
			}
			res.Synced++
		}
		return mustJSON(res), nil
	})
}
