// Package convertkit translates the unified platform contract to the
// ConvertKit API v3.
//
// Dialect notes: auth is an `api_secret` query parameter on every request.
// Broadcasts have no status field at all; the normalized status is derived
// from the public flag, send_at, and published_at. Stats come back as
// precomputed percentages, so counts are derived against the recipient
// total. List pages are 1-based and capped at fifty entries by the vendor.
package convertkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ignite/platform-hub/internal/domain"
	"github.com/ignite/platform-hub/internal/pkg/httpretry"
	"github.com/ignite/platform-hub/internal/platform"
)

const (
	platformName   = "convertkit"
	defaultBaseURL = "https://api.convertkit.com/v3"

	// Broadcast pages always come back fifty at a time.
	vendorPageSize = 50
)

// Adapter is a ConvertKit API adapter for one client.
type Adapter struct {
	clientID   string
	baseURL    string
	apiSecret  string
	pageSize   int
	httpClient httpretry.HTTPDoer

	now func() time.Time
}

// New creates a ConvertKit adapter.
func New(clientID string, credentials map[string]string, opts platform.Options) (*Adapter, error) {
	return &Adapter{
		clientID:  clientID,
		baseURL:   defaultBaseURL,
		apiSecret: credentials["api_secret"],
		pageSize:  opts.PageSize,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: opts.Timeout,
		}, opts.MaxRetries),
		now: time.Now,
	}, nil
}

var _ platform.Adapter = (*Adapter)(nil)

// Platform returns the platform identifier.
func (a *Adapter) Platform() string { return platformName }

func (a *Adapter) do(ctx context.Context, operation, method, path string, params url.Values, body interface{}) ([]byte, int, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_secret", a.apiSecret)
	fullURL := a.baseURL + path + "?" + params.Encode()

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, platform.NewPlatformError(platformName, operation, err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, platform.NewPlatformError(platformName, operation, fmt.Sprintf("reading response: %v", err))
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, http.StatusNotFound, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, platform.ClassifyResponse(platformName, operation, resp, respBody)
	}

	return respBody, resp.StatusCode, nil
}

// TestConnection reads the account endpoint.
func (a *Adapter) TestConnection(ctx context.Context) error {
	body, status, err := a.do(ctx, "testConnection", http.MethodGet, "/account", nil, nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, "testConnection", "account endpoint not found")
	}

	var resp accountEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return platform.NewPlatformError(platformName, "testConnection", fmt.Sprintf("decoding response: %v", err))
	}
	return nil
}

// GetCampaigns fetches one vendor page of broadcasts. ConvertKit pages are
// 1-based and fixed at fifty entries, so the offset is translated and the
// caller's limit is ignored.
func (a *Adapter) GetCampaigns(ctx context.Context, page platform.Page) (*platform.CampaignPage, error) {
	pageNum := page.Offset/vendorPageSize + 1

	params := url.Values{}
	params.Set("page", strconv.Itoa(pageNum))

	body, _, err := a.do(ctx, "getCampaigns", http.MethodGet, "/broadcasts", params, nil)
	if err != nil {
		return nil, err
	}

	var envelope broadcastListEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaigns", fmt.Sprintf("decoding response: %v", err))
	}

	hasMore := len(envelope.Broadcasts) == vendorPageSize
	if envelope.TotalPages > 0 {
		hasMore = pageNum < envelope.TotalPages
	}

	result := &platform.CampaignPage{
		Campaigns:  make([]domain.Campaign, 0, len(envelope.Broadcasts)),
		HasMore:    hasMore,
		NextOffset: page.Offset + len(envelope.Broadcasts),
	}
	for i := range envelope.Broadcasts {
		result.Campaigns = append(result.Campaigns, a.toCampaign(&envelope.Broadcasts[i]))
	}
	return result, nil
}

// GetCampaign fetches one broadcast; (nil, nil) when absent.
func (a *Adapter) GetCampaign(ctx context.Context, externalID string) (*domain.Campaign, error) {
	body, status, err := a.do(ctx, "getCampaign", http.MethodGet, "/broadcasts/"+externalID, nil, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	var resp broadcastEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaign", fmt.Sprintf("decoding response: %v", err))
	}
	c := a.toCampaign(&resp.Broadcast)
	return &c, nil
}

// CreateCampaign creates a draft broadcast and re-fetches it.
func (a *Adapter) CreateCampaign(ctx context.Context, input platform.CampaignInput) (*domain.Campaign, error) {
	public := false
	write := broadcastWrite{
		Subject:      input.Subject,
		Description:  input.Name,
		Content:      input.HTMLContent,
		Public:       &public,
		EmailAddress: input.FromEmail,
	}

	body, _, err := a.do(ctx, "createCampaign", http.MethodPost, "/broadcasts", nil, write)
	if err != nil {
		return nil, err
	}

	var created broadcastEnvelope
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, platform.NewPlatformError(platformName, "createCampaign", fmt.Sprintf("decoding response: %v", err))
	}
	if created.Broadcast.ID == 0 {
		return nil, platform.NewPlatformError(platformName, "createCampaign", "vendor returned no id for created broadcast")
	}
	return a.refetch(ctx, "createCampaign", strconv.FormatInt(created.Broadcast.ID, 10))
}

// UpdateCampaign patches a broadcast and re-fetches.
func (a *Adapter) UpdateCampaign(ctx context.Context, externalID string, patch platform.CampaignPatch) (*domain.Campaign, error) {
	write := broadcastWrite{}
	if patch.Subject != nil {
		write.Subject = *patch.Subject
	}
	if patch.Name != nil {
		write.Description = *patch.Name
	}
	if patch.HTMLContent != nil {
		write.Content = *patch.HTMLContent
	}
	if patch.FromEmail != nil {
		write.EmailAddress = *patch.FromEmail
	}

	_, status, err := a.do(ctx, "updateCampaign", http.MethodPut, "/broadcasts/"+externalID, nil, write)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, platform.NewPlatformError(platformName, "updateCampaign",
			fmt.Sprintf("broadcast %s not found", externalID))
	}
	return a.refetch(ctx, "updateCampaign", externalID)
}

// ScheduleCampaign sets a future send_at on the broadcast.
func (a *Adapter) ScheduleCampaign(ctx context.Context, externalID string, when time.Time) error {
	public := true
	write := broadcastWrite{Public: &public, SendAt: when.UTC().Format(time.RFC3339)}
	_, status, err := a.do(ctx, "scheduleCampaign", http.MethodPut, "/broadcasts/"+externalID, nil, write)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, "scheduleCampaign",
			fmt.Sprintf("broadcast %s not found", externalID))
	}
	return nil
}

// SendCampaign sends immediately. ConvertKit has no dedicated send endpoint;
// setting send_at to now and making the broadcast public triggers delivery.
func (a *Adapter) SendCampaign(ctx context.Context, externalID string) error {
	public := true
	write := broadcastWrite{Public: &public, SendAt: a.now().UTC().Format(time.RFC3339)}
	_, status, err := a.do(ctx, "sendCampaign", http.MethodPut, "/broadcasts/"+externalID, nil, write)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, "sendCampaign",
			fmt.Sprintf("broadcast %s not found", externalID))
	}
	return nil
}

// GetCampaignMetrics reads broadcast stats and derives counts from the
// vendor's percentages.
func (a *Adapter) GetCampaignMetrics(ctx context.Context, externalID string) (*domain.Metrics, error) {
	body, status, err := a.do(ctx, "getCampaignMetrics", http.MethodGet, "/broadcasts/"+externalID+"/stats", nil, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, platform.NewPlatformError(platformName, "getCampaignMetrics",
			fmt.Sprintf("broadcast %s not found", externalID))
	}

	var resp broadcastStatsEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaignMetrics", fmt.Sprintf("decoding response: %v", err))
	}

	m := statsToMetrics(resp.Broadcast.Stats)
	return &m, nil
}

func statsToMetrics(s broadcastStats) domain.Metrics {
	m := domain.Metrics{
		Sent:         s.Recipients,
		UniqueOpens:  percentToCount(s.OpenRate, s.Recipients),
		UniqueClicks: percentToCount(s.ClickRate, s.Recipients),
		Clicks:       s.TotalClicks,
		Unsubscribes: s.Unsubscribes,
	}
	m.Opens = m.UniqueOpens
	if m.Clicks == 0 {
		m.Clicks = m.UniqueClicks
	}
	m.ComputeDerived()
	return m
}

// percentToCount converts a vendor percentage back into an absolute count.
func percentToCount(percent float64, total int) int {
	if percent <= 0 || total <= 0 {
		return 0
	}
	return int(math.Round(percent / 100 * float64(total)))
}

// GetLists fetches all forms. The forms endpoint is not paginated.
func (a *Adapter) GetLists(ctx context.Context) ([]domain.AudienceList, error) {
	body, _, err := a.do(ctx, "getLists", http.MethodGet, "/forms", nil, nil)
	if err != nil {
		return nil, err
	}

	var envelope formListEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, platform.NewPlatformError(platformName, "getLists", fmt.Sprintf("decoding response: %v", err))
	}

	lists := make([]domain.AudienceList, 0, len(envelope.Forms))
	for i := range envelope.Forms {
		lists = append(lists, a.toList(&envelope.Forms[i]))
	}
	return lists, nil
}

// GetList fetches one form; (nil, nil) when absent.
func (a *Adapter) GetList(ctx context.Context, externalID string) (*domain.AudienceList, error) {
	body, status, err := a.do(ctx, "getList", http.MethodGet, "/forms/"+externalID, nil, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	var resp formEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewPlatformError(platformName, "getList", fmt.Sprintf("decoding response: %v", err))
	}
	l := a.toList(&resp.Form)
	return &l, nil
}

func (a *Adapter) refetch(ctx context.Context, operation, externalID string) (*domain.Campaign, error) {
	c, err := a.GetCampaign(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, platform.NewPlatformError(platformName, operation,
			fmt.Sprintf("broadcast %s missing after write", externalID))
	}
	return c, nil
}

// normalizeStatus derives the status. Broadcasts carry no status field:
// no send_at means a draft, a future send_at means scheduled, anything
// published or past-due counts as sent.
func (a *Adapter) normalizeStatus(b *broadcast) domain.CampaignStatus {
	if b.PublishedAt != "" {
		return domain.StatusSent
	}
	if b.SendAt == "" {
		return domain.StatusDraft
	}
	sendAt, err := time.Parse(time.RFC3339, b.SendAt)
	if err != nil {
		return domain.StatusUnknown
	}
	if sendAt.After(a.now()) {
		return domain.StatusScheduled
	}
	return domain.StatusSent
}

func (a *Adapter) toCampaign(b *broadcast) domain.Campaign {
	name := b.Description
	if name == "" {
		name = b.Subject
	}
	c := domain.Campaign{
		ClientID:   a.clientID,
		ExternalID: strconv.FormatInt(b.ID, 10),
		Name:       name,
		Subject:    b.Subject,
		FromEmail:  b.EmailAddress,
		Status:     a.normalizeStatus(b),
		Metadata: map[string]interface{}{
			"public": b.Public,
		},
	}
	if t, err := time.Parse(time.RFC3339, b.SendAt); err == nil {
		c.ScheduledAt = &t
	}
	if t, err := time.Parse(time.RFC3339, b.PublishedAt); err == nil {
		c.SentAt = &t
	}
	return c
}

func (a *Adapter) toList(f *form) domain.AudienceList {
	return domain.AudienceList{
		ClientID:    a.clientID,
		ExternalID:  strconv.FormatInt(f.ID, 10),
		Name:        f.Name,
		MemberCount: f.TotalSubscriptions,
	}
}
