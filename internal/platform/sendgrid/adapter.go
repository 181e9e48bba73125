// Package sendgrid translates the unified platform contract to the SendGrid
// Marketing Campaigns API (single sends).
//
// Dialect notes: Bearer auth; pagination is a next-page URL embedded in
// `_metadata.next` carrying a page_token; single-send write endpoints answer
// 204 or partial objects, so every write is followed by a canonical re-fetch;
// stats carry delivered but not sent, which is derived locally.
package sendgrid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ignite/platform-hub/internal/domain"
	"github.com/ignite/platform-hub/internal/pkg/httpretry"
	"github.com/ignite/platform-hub/internal/platform"
)

const (
	platformName   = "sendgrid"
	defaultBaseURL = "https://api.sendgrid.com/v3"
)

// Adapter is a SendGrid API adapter for one client.
type Adapter struct {
	clientID   string
	baseURL    string
	apiKey     string
	pageSize   int
	httpClient httpretry.HTTPDoer
}

// New creates a SendGrid adapter.
func New(clientID string, credentials map[string]string, opts platform.Options) (*Adapter, error) {
	return &Adapter{
		clientID: clientID,
		baseURL:  defaultBaseURL,
		apiKey:   credentials["api_key"],
		pageSize: opts.PageSize,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: opts.Timeout,
		}, opts.MaxRetries),
	}, nil
}

var _ platform.Adapter = (*Adapter)(nil)

// Platform returns the platform identifier.
func (a *Adapter) Platform() string { return platformName }

func (a *Adapter) do(ctx context.Context, operation, method, path string, body interface{}) ([]byte, int, error) {
	fullURL := a.baseURL + path

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

	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

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

// TestConnection lists one page of contact lists; any 2xx means the key works.
func (a *Adapter) TestConnection(ctx context.Context) error {
	_, status, err := a.do(ctx, "testConnection", http.MethodGet, "/marketing/lists?page_size=1", nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, "testConnection", "marketing API unavailable")
	}
	return nil
}

// GetCampaigns pages through single sends. The vendor returns a full next-page
// URL; only its page_token survives into the continuation cursor.
func (a *Adapter) GetCampaigns(ctx context.Context, page platform.Page) (*platform.CampaignPage, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = a.pageSize
	}

	params := url.Values{}
	params.Set("page_size", fmt.Sprintf("%d", limit))
	if page.Cursor != "" {
		params.Set("page_token", page.Cursor)
	}

	body, _, err := a.do(ctx, "getCampaigns", http.MethodGet, "/marketing/singlesends?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var envelope singleSendPage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaigns", fmt.Sprintf("decoding response: %v", err))
	}

	next := extractPageToken(envelope.Metadata.Next)
	result := &platform.CampaignPage{
		Campaigns:  make([]domain.Campaign, 0, len(envelope.Result)),
		HasMore:    next != "",
		NextCursor: next,
	}
	for i := range envelope.Result {
		result.Campaigns = append(result.Campaigns, a.toCampaign(&envelope.Result[i]))
	}
	return result, nil
}

// extractPageToken pulls the page_token out of a vendor next-page URL.
// A malformed or token-less URL terminates the loop rather than looping on a
// cursor that never advances.
func extractPageToken(next string) string {
	if next == "" {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil {
		return ""
	}
	return u.Query().Get("page_token")
}

// GetCampaign fetches one single send; (nil, nil) when absent.
func (a *Adapter) GetCampaign(ctx context.Context, externalID string) (*domain.Campaign, error) {
	body, status, err := a.do(ctx, "getCampaign", http.MethodGet, "/marketing/singlesends/"+externalID, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	var resp singleSend
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaign", fmt.Sprintf("decoding response: %v", err))
	}
	c := a.toCampaign(&resp)
	return &c, nil
}

// CreateCampaign creates a single send and re-fetches the canonical object.
func (a *Adapter) CreateCampaign(ctx context.Context, input platform.CampaignInput) (*domain.Campaign, error) {
	write := singleSendWrite{
		Name: input.Name,
		EmailConfig: &singleSendConfig{
			Subject:      input.Subject,
			HTMLContent:  input.HTMLContent,
			PlainContent: input.TextContent,
		},
	}
	if input.ListID != "" {
		write.SendTo = &singleSendAudience{ListIDs: []string{input.ListID}}
	}

	body, _, err := a.do(ctx, "createCampaign", http.MethodPost, "/marketing/singlesends", write)
	if err != nil {
		return nil, err
	}

	var created singleSend
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, platform.NewPlatformError(platformName, "createCampaign", fmt.Sprintf("decoding response: %v", err))
	}
	if created.ID == "" {
		return nil, platform.NewPlatformError(platformName, "createCampaign", "vendor returned no id for created single send")
	}
	return a.refetch(ctx, "createCampaign", created.ID)
}

// UpdateCampaign patches a single send and re-fetches the canonical object.
func (a *Adapter) UpdateCampaign(ctx context.Context, externalID string, patch platform.CampaignPatch) (*domain.Campaign, error) {
	existing, err := a.GetCampaign(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, platform.NewPlatformError(platformName, "updateCampaign",
			fmt.Sprintf("single send %s not found", externalID))
	}

	write := singleSendWrite{Name: existing.Name, EmailConfig: &singleSendConfig{Subject: existing.Subject}}
	if patch.Name != nil {
		write.Name = *patch.Name
	}
	if patch.Subject != nil {
		write.EmailConfig.Subject = *patch.Subject
	}
	if patch.HTMLContent != nil {
		write.EmailConfig.HTMLContent = *patch.HTMLContent
	}
	if patch.TextContent != nil {
		write.EmailConfig.PlainContent = *patch.TextContent
	}

	if _, _, err := a.do(ctx, "updateCampaign", http.MethodPatch, "/marketing/singlesends/"+externalID, write); err != nil {
		return nil, err
	}
	return a.refetch(ctx, "updateCampaign", externalID)
}

// ScheduleCampaign sets the send time. SendGrid answers 204 here.
func (a *Adapter) ScheduleCampaign(ctx context.Context, externalID string, when time.Time) error {
	write := scheduleWrite{SendAt: when.UTC().Format(time.RFC3339)}
	_, status, err := a.do(ctx, "scheduleCampaign", http.MethodPut, "/marketing/singlesends/"+externalID+"/schedule", write)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, "scheduleCampaign",
			fmt.Sprintf("single send %s not found", externalID))
	}
	return nil
}

// SendCampaign schedules the single send for "now".
func (a *Adapter) SendCampaign(ctx context.Context, externalID string) error {
	write := scheduleWrite{SendAt: "now"}
	_, status, err := a.do(ctx, "sendCampaign", http.MethodPut, "/marketing/singlesends/"+externalID+"/schedule", write)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, "sendCampaign",
			fmt.Sprintf("single send %s not found", externalID))
	}
	return nil
}

// GetCampaignMetrics fetches single-send stats. SendGrid never reports a raw
// "sent" counter, so sent = delivered + bounces.
func (a *Adapter) GetCampaignMetrics(ctx context.Context, externalID string) (*domain.Metrics, error) {
	body, status, err := a.do(ctx, "getCampaignMetrics", http.MethodGet, "/marketing/stats/singlesends/"+externalID, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, platform.NewPlatformError(platformName, "getCampaignMetrics",
			fmt.Sprintf("no stats for single send %s", externalID))
	}

	var stats singleSendStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaignMetrics", fmt.Sprintf("decoding response: %v", err))
	}

	m := &domain.Metrics{}
	for _, r := range stats.Results {
		m.Delivered += r.Stats.Delivered
		m.Opens += r.Stats.Opens
		m.UniqueOpens += r.Stats.UniqueOpens
		m.Clicks += r.Stats.Clicks
		m.UniqueClicks += r.Stats.UniqueClicks
		m.Bounces += r.Stats.Bounces
		m.Unsubscribes += r.Stats.Unsubscribes
		m.Complaints += r.Stats.SpamReports
	}
	m.Sent = m.Delivered + m.Bounces
	m.ComputeDerived()
	return m, nil
}

// GetLists fetches all contact lists, following next-page URLs to the end.
func (a *Adapter) GetLists(ctx context.Context) ([]domain.AudienceList, error) {
	var lists []domain.AudienceList
	token := ""

	// Bounded: a repeated or token-less next URL terminates the loop.
	for i := 0; i < 100; i++ {
		params := url.Values{}
		params.Set("page_size", fmt.Sprintf("%d", a.pageSize))
		if token != "" {
			params.Set("page_token", token)
		}

		body, _, err := a.do(ctx, "getLists", http.MethodGet, "/marketing/lists?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}

		var envelope contactListPage
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, platform.NewPlatformError(platformName, "getLists", fmt.Sprintf("decoding response: %v", err))
		}

		for _, l := range envelope.Result {
			lists = append(lists, domain.AudienceList{
				ClientID:    a.clientID,
				ExternalID:  l.ID,
				Name:        l.Name,
				MemberCount: l.ContactCount,
			})
		}

		next := extractPageToken(envelope.Metadata.Next)
		if next == "" || next == token {
			break
		}
		token = next
	}
	return lists, nil
}

// GetList fetches one contact list; (nil, nil) when absent.
func (a *Adapter) GetList(ctx context.Context, externalID string) (*domain.AudienceList, error) {
	body, status, err := a.do(ctx, "getList", http.MethodGet, "/marketing/lists/"+externalID, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	var resp contactList
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewPlatformError(platformName, "getList", fmt.Sprintf("decoding response: %v", err))
	}
	return &domain.AudienceList{
		ClientID:    a.clientID,
		ExternalID:  resp.ID,
		Name:        resp.Name,
		MemberCount: resp.ContactCount,
	}, nil
}

func (a *Adapter) refetch(ctx context.Context, operation, externalID string) (*domain.Campaign, error) {
	c, err := a.GetCampaign(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, platform.NewPlatformError(platformName, operation,
			fmt.Sprintf("single send %s missing after write", externalID))
	}
	return c, nil
}

// normalizeStatus maps SendGrid's single-send vocabulary.
func normalizeStatus(status string) domain.CampaignStatus {
	switch status {
	case "draft":
		return domain.StatusDraft
	case "scheduled":
		return domain.StatusScheduled
	case "triggered":
		return domain.StatusSent
	default:
		return domain.StatusUnknown
	}
}

// denormalizeStatus maps the normalized enumeration back to SendGrid's.
func denormalizeStatus(status domain.CampaignStatus) string {
	switch status {
	case domain.StatusDraft:
		return "draft"
	case domain.StatusScheduled:
		return "scheduled"
	case domain.StatusSent:
		return "triggered"
	default:
		return ""
	}
}

func (a *Adapter) toCampaign(resp *singleSend) domain.Campaign {
	c := domain.Campaign{
		ClientID:   a.clientID,
		ExternalID: resp.ID,
		Name:       resp.Name,
		Subject:    resp.EmailConfig.Subject,
		Status:     normalizeStatus(resp.Status),
		Metadata: map[string]interface{}{
			"categories": resp.Categories,
			"list_ids":   resp.SendTo.ListIDs,
			"sender_id":  resp.EmailConfig.SenderID,
		},
	}
	if t, err := time.Parse(time.RFC3339, resp.SendAt); err == nil {
		if c.Status == domain.StatusSent {
			c.SentAt = &t
		} else {
			c.ScheduledAt = &t
		}
	}
	return c
}
