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

// VerifyCredentials checks one client's stored credential against the live
// vendor API. A client with no credential is demoted to pending with a
// credential alert. A failed decrypt or connection test marks the credential
// invalid, raises a high-severity alert, and fails the job so the queue
// retries it. Success marks the credential valid, restores a pending client
// to active, and auto-resolves open credential alerts.
func (p *Processor) VerifyCredentials(ctx context.Context, clientID string) error {
	input := mustJSON(map[string]string{"clientId": clientID})
	return p.runWrapped(ctx, JobVerifyClient, jobs.QueueVerification, input, func(ctx context.Context) (string, error) {
		return p.verifyClient(ctx, clientID)
	})
}

func (p *Processor) verifyClient(ctx context.Context, clientID string) (string, error) {
	client, err := p.stores.Clients.Get(ctx, clientID)
	if err != nil {
		return "", fmt.Errorf("load client %s: %w", clientID, err)
	}

	_, err = p.stores.Credentials.Get(ctx, clientID)
	if err == postgres.ErrNotFound {
		if err := p.stores.Clients.UpdateStatus(ctx, clientID, domain.ClientPending); err != nil {
			return "", err
		}
		if _, err := p.raiseAlert(ctx, &domain.Alert{
			ClientID: clientID,
			Type:     domain.AlertCredentialIssue,
			Severity: domain.SeverityHigh,
			Message:  fmt.Sprintf("no credentials stored for %s", client.Platform),
		}); err != nil {
			return "", err
		}
		return "", fmt.Errorf("client %s has no stored credentials", clientID)
	}
	if err != nil {
		return "", err
	}

	adapter, err := p.buildAdapter(ctx, client)
	if err != nil {
		return "", p.recordVerifyFailure(ctx, clientID, err)
	}

	if err := adapter.TestConnection(ctx); err != nil {
		return "", p.recordVerifyFailure(ctx, clientID, err)
	}

	if err := p.stores.Credentials.SetValidity(ctx, clientID, true, time.Now()); err != nil {
		return "", err
	}
	if client.Status == domain.ClientPending {
		if err := p.stores.Clients.UpdateStatus(ctx, clientID, domain.ClientActive); err != nil {
			return "", err
		}
	}
	resolved, err := p.stores.Alerts.ResolveByClientType(ctx, clientID, domain.AlertCredentialIssue)
	if err != nil {
		return "", err
	}

	return mustJSON(map[string]interface{}{"valid": true, "alertsResolved": resolved}), nil
}

// recordVerifyFailure marks the credential invalid and raises (or keeps
// open) a high-severity alert carrying the vendor's error text, then passes
// the original failure through.
func (p *Processor) recordVerifyFailure(ctx context.Context, clientID string, cause error) error {
	if err := p.stores.Credentials.SetValidity(ctx, clientID, false, time.Now()); err != nil {
		logger.Error("credential invalidation failed", "client_id", clientID, "error", err.Error())
	}
	if _, err := p.raiseAlert(ctx, &domain.Alert{
		ClientID: clientID,
		Type:     domain.AlertCredentialIssue,
		Severity: domain.SeverityHigh,
		Message:  fmt.Sprintf("credential verification failed: %v", cause),
	}); err != nil {
		logger.Error("credential alert failed", "client_id", clientID, "error", err.Error())
	}
	return cause
}

// VerifyAllCredentials verifies every active and pending client, isolating
// failures per client.
func (p *Processor) VerifyAllCredentials(ctx context.Context) error {
	return p.runWrapped(ctx, JobVerifyAll, jobs.QueueVerification, "{}", func(ctx context.Context) (string, error) {
		clients, err := p.stores.Clients.ListByStatus(ctx, domain.ClientActive, domain.ClientPending)
		if err != nil {
			return "", err
		}

		res := fleetResult{Clients: len(clients)}
		for i := range clients {
			if _, err := p.verifyClient(ctx, clients[i].ID); err != nil {
				res.Failed++
				logger.Warn("fleet verify: client failed", "client_id", clients[i].ID, "error", err.Error())
			}
		}
		return mustJSON(res), nil
	})
}
