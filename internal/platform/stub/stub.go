// Package stub provides the placeholder adapter for platforms the factory
// knows about but has no real implementation for yet. It satisfies the full
// contract and fails every operation, so registry and job code treat all
// platforms uniformly instead of special-casing unimplemented ones.
package stub

import (
	"context"
	"time"

	"github.com/ignite/platform-hub/internal/domain"
	"github.com/ignite/platform-hub/internal/platform"
)

// Adapter fails every operation with a "not yet implemented" platform error.
type Adapter struct {
	platformName string
	clientID     string
}

// New creates a stub adapter for the named platform.
func New(platformName, clientID string) *Adapter {
	return &Adapter{platformName: platformName, clientID: clientID}
}

var _ platform.Adapter = (*Adapter)(nil)

func (a *Adapter) err(operation string) error {
	return platform.NewPlatformError(a.platformName, operation,
		"integration not yet implemented for this platform")
}

func (a *Adapter) Platform() string { return a.platformName }

func (a *Adapter) TestConnection(ctx context.Context) error {
	return a.err("testConnection")
}

func (a *Adapter) GetCampaigns(ctx context.Context, page platform.Page) (*platform.CampaignPage, error) {
	return nil, a.err("getCampaigns")
}

func (a *Adapter) GetCampaign(ctx context.Context, externalID string) (*domain.Campaign, error) {
	return nil, a.err("getCampaign")
}

func (a *Adapter) CreateCampaign(ctx context.Context, input platform.CampaignInput) (*domain.Campaign, error) {
	return nil, a.err("createCampaign")
}

func (a *Adapter) UpdateCampaign(ctx context.Context, externalID string, patch platform.CampaignPatch) (*domain.Campaign, error) {
	return nil, a.err("updateCampaign")
}

func (a *Adapter) ScheduleCampaign(ctx context.Context, externalID string, when time.Time) error {
	return a.err("scheduleCampaign")
}

func (a *Adapter) SendCampaign(ctx context.Context, externalID string) error {
	return a.err("sendCampaign")
}

func (a *Adapter) GetCampaignMetrics(ctx context.Context, externalID string) (*domain.Metrics, error) {
	return nil, a.err("getCampaignMetrics")
}

func (a *Adapter) GetLists(ctx context.Context) ([]domain.AudienceList, error) {
	return nil, a.err("getLists")
}

func (a *Adapter) GetList(ctx context.Context, externalID string) (*domain.AudienceList, error) {
	return nil, a.err("getList")
}
