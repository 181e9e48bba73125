// Package platform defines the unified capability contract every vendor
// adapter implements, plus the shared error taxonomy and classification
// helpers. Adapters are pure translation boundaries: auth shape, pagination
// style, status vocabulary and metric field names differ per vendor, but
// everything behind this interface speaks one language.
package platform

import (
	"context"
	"time"

	"github.com/ignite/platform-hub/internal/domain"
)

// Page is the caller-side pagination request. Offset-style vendors use
// Offset/Limit; cursor-style vendors use Cursor and ignore Offset.
type Page struct {
	Offset int
	Limit  int
	Cursor string
}

// CampaignPage is one page of campaigns plus continuation state.
type CampaignPage struct {
	Campaigns  []domain.Campaign
	HasMore    bool
	NextCursor string
	NextOffset int
}

// CampaignInput is the normalized shape for creating a campaign.
type CampaignInput struct {
	Name        string
	Subject     string
	FromName    string
	FromEmail   string
	PreviewText string
	HTMLContent string
	TextContent string
	ListID      string
}

// CampaignPatch carries partial updates; nil fields are left untouched.
type CampaignPatch struct {
	Name        *string
	Subject     *string
	FromName    *string
	FromEmail   *string
	PreviewText *string
	HTMLContent *string
	TextContent *string
}

// Adapter is the unified contract all eight vendors are normalized into.
//
// Absence semantics: GetCampaign and GetList return (nil, nil) for a
// 404-equivalent. All other vendor failures are classified and returned as
// *RateLimitError or *PlatformError; adapters never swallow failures.
//
// Write-then-read: CreateCampaign and UpdateCampaign always return the
// canonical object re-fetched from the vendor, even when the vendor's write
// endpoint responds with a partial object or 204.
type Adapter interface {
	Platform() string
	TestConnection(ctx context.Context) error
	GetCampaigns(ctx context.Context, page Page) (*CampaignPage, error)
	GetCampaign(ctx context.Context, externalID string) (*domain.Campaign, error)
	CreateCampaign(ctx context.Context, input CampaignInput) (*domain.Campaign, error)
	UpdateCampaign(ctx context.Context, externalID string, patch CampaignPatch) (*domain.Campaign, error)
	ScheduleCampaign(ctx context.Context, externalID string, when time.Time) error
	SendCampaign(ctx context.Context, externalID string) error
	GetCampaignMetrics(ctx context.Context, externalID string) (*domain.Metrics, error)
	GetLists(ctx context.Context) ([]domain.AudienceList, error)
	GetList(ctx context.Context, externalID string) (*domain.AudienceList, error)
}

// Options carries shared adapter tuning derived from configuration.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	PageSize   int
}

// WithDefaults fills zero fields with safe values.
func (o Options) WithDefaults() Options {
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 3
	}
	if o.PageSize == 0 {
		o.PageSize = 100
	}
	return o
}
