// Package mailchimp translates the unified platform contract to the
// Mailchimp Marketing API v3.
//
// Dialect notes: Basic auth with "anystring" as username; the API key's
// "-usNN" suffix names the datacenter that hosts the account; pagination is
// offset/count with a returned total_items.
package mailchimp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ignite/platform-hub/internal/domain"
	"github.com/ignite/platform-hub/internal/pkg/httpretry"
	"github.com/ignite/platform-hub/internal/platform"
)

const platformName = "mailchimp"

// Adapter is a Mailchimp API adapter for one client.
type Adapter struct {
	clientID   string
	baseURL    string
	apiKey     string
	pageSize   int
	httpClient httpretry.HTTPDoer
}

// New creates a Mailchimp adapter. The datacenter is derived from the API
// key suffix ("xxxx-us21" → us21.api.mailchimp.com).
func New(clientID string, credentials map[string]string, opts platform.Options) (*Adapter, error) {
	apiKey := credentials["api_key"]
	idx := strings.LastIndex(apiKey, "-")
	if idx < 0 || idx == len(apiKey)-1 {
		return nil, platform.NewValidationError("mailchimp api_key has no datacenter suffix")
	}
	dc := apiKey[idx+1:]

	return &Adapter{
		clientID: clientID,
		baseURL:  fmt.Sprintf("https://%s.api.mailchimp.com/3.0", dc),
		apiKey:   apiKey,
		pageSize: opts.PageSize,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: opts.Timeout,
		}, opts.MaxRetries),
	}, nil
}

var _ platform.Adapter = (*Adapter)(nil)

// Platform returns the platform identifier.
func (a *Adapter) Platform() string { return platformName }

// do makes an HTTP request to the Mailchimp API. A 404 is reported through
// the returned status code with a nil error so callers can normalize absence.
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

	// Mailchimp uses Basic Auth; the username is ignored
	req.SetBasicAuth("anystring", a.apiKey)
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

// TestConnection pings the API root.
func (a *Adapter) TestConnection(ctx context.Context) error {
	_, status, err := a.do(ctx, "testConnection", http.MethodGet, "/ping", nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, "testConnection", "ping endpoint not found")
	}
	return nil
}

// GetCampaigns fetches one page of campaigns using offset/count pagination.
func (a *Adapter) GetCampaigns(ctx context.Context, page platform.Page) (*platform.CampaignPage, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = a.pageSize
	}

	params := url.Values{}
	params.Set("offset", fmt.Sprintf("%d", page.Offset))
	params.Set("count", fmt.Sprintf("%d", limit))

	body, _, err := a.do(ctx, "getCampaigns", http.MethodGet, "/campaigns?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var envelope campaignListResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaigns", fmt.Sprintf("decoding response: %v", err))
	}

	result := &platform.CampaignPage{
		Campaigns:  make([]domain.Campaign, 0, len(envelope.Campaigns)),
		HasMore:    page.Offset+len(envelope.Campaigns) < envelope.TotalItems,
		NextOffset: page.Offset + len(envelope.Campaigns),
	}
	for i := range envelope.Campaigns {
		result.Campaigns = append(result.Campaigns, a.toCampaign(&envelope.Campaigns[i]))
	}
	return result, nil
}

// GetCampaign fetches one campaign; (nil, nil) when the vendor has no such id.
func (a *Adapter) GetCampaign(ctx context.Context, externalID string) (*domain.Campaign, error) {
	body, status, err := a.do(ctx, "getCampaign", http.MethodGet, "/campaigns/"+externalID, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	var resp campaignResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaign", fmt.Sprintf("decoding response: %v", err))
	}
	c := a.toCampaign(&resp)
	return &c, nil
}

// CreateCampaign creates a regular campaign, sets its content, and re-fetches
// the canonical object.
func (a *Adapter) CreateCampaign(ctx context.Context, input platform.CampaignInput) (*domain.Campaign, error) {
	req := createCampaignRequest{
		Type: "regular",
		Settings: campaignSettings{
			SubjectLine: input.Subject,
			PreviewText: input.PreviewText,
			Title:       input.Name,
			FromName:    input.FromName,
			ReplyTo:     input.FromEmail,
		},
	}
	if input.ListID != "" {
		req.Recipients = &campaignAudience{ListID: input.ListID}
	}

	body, _, err := a.do(ctx, "createCampaign", http.MethodPost, "/campaigns", req)
	if err != nil {
		return nil, err
	}

	var created campaignResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, platform.NewPlatformError(platformName, "createCampaign", fmt.Sprintf("decoding response: %v", err))
	}

	if input.HTMLContent != "" || input.TextContent != "" {
		content := contentRequest{HTML: input.HTMLContent, PlainText: input.TextContent}
		if _, _, err := a.do(ctx, "createCampaign", http.MethodPut, "/campaigns/"+created.ID+"/content", content); err != nil {
			return nil, err
		}
	}

	return a.refetch(ctx, "createCampaign", created.ID)
}

// UpdateCampaign patches campaign settings and re-fetches the canonical object.
func (a *Adapter) UpdateCampaign(ctx context.Context, externalID string, patch platform.CampaignPatch) (*domain.Campaign, error) {
	settings := map[string]string{}
	if patch.Subject != nil {
		settings["subject_line"] = *patch.Subject
	}
	if patch.Name != nil {
		settings["title"] = *patch.Name
	}
	if patch.FromName != nil {
		settings["from_name"] = *patch.FromName
	}
	if patch.FromEmail != nil {
		settings["reply_to"] = *patch.FromEmail
	}
	if patch.PreviewText != nil {
		settings["preview_text"] = *patch.PreviewText
	}

	if len(settings) > 0 {
		_, status, err := a.do(ctx, "updateCampaign", http.MethodPatch, "/campaigns/"+externalID, patchCampaignRequest{Settings: settings})
		if err != nil {
			return nil, err
		}
		if status == http.StatusNotFound {
			return nil, platform.NewPlatformError(platformName, "updateCampaign",
				fmt.Sprintf("campaign %s not found", externalID))
		}
	}

	if patch.HTMLContent != nil || patch.TextContent != nil {
		content := contentRequest{}
		if patch.HTMLContent != nil {
			content.HTML = *patch.HTMLContent
		}
		if patch.TextContent != nil {
			content.PlainText = *patch.TextContent
		}
		if _, _, err := a.do(ctx, "updateCampaign", http.MethodPut, "/campaigns/"+externalID+"/content", content); err != nil {
			return nil, err
		}
	}

	return a.refetch(ctx, "updateCampaign", externalID)
}

// ScheduleCampaign schedules the campaign for a future send time.
func (a *Adapter) ScheduleCampaign(ctx context.Context, externalID string, when time.Time) error {
	req := scheduleRequest{ScheduleTime: when.UTC().Format(time.RFC3339)}
	_, status, err := a.do(ctx, "scheduleCampaign", http.MethodPost, "/campaigns/"+externalID+"/actions/schedule", req)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, "scheduleCampaign",
			fmt.Sprintf("campaign %s not found", externalID))
	}
	return nil
}

// SendCampaign triggers an immediate send.
func (a *Adapter) SendCampaign(ctx context.Context, externalID string) error {
	_, status, err := a.do(ctx, "sendCampaign", http.MethodPost, "/campaigns/"+externalID+"/actions/send", nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, "sendCampaign",
			fmt.Sprintf("campaign %s not found", externalID))
	}
	return nil
}

// GetCampaignMetrics fetches the campaign report and normalizes the counters.
func (a *Adapter) GetCampaignMetrics(ctx context.Context, externalID string) (*domain.Metrics, error) {
	body, status, err := a.do(ctx, "getCampaignMetrics", http.MethodGet, "/reports/"+externalID, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, platform.NewPlatformError(platformName, "getCampaignMetrics",
			fmt.Sprintf("no report for campaign %s", externalID))
	}

	var report reportResponse
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaignMetrics", fmt.Sprintf("decoding response: %v", err))
	}

	m := &domain.Metrics{
		Sent:         report.EmailsSent,
		Opens:        report.Opens.OpensTotal,
		UniqueOpens:  report.Opens.UniqueOpens,
		Clicks:       report.Clicks.ClicksTotal,
		UniqueClicks: report.Clicks.UniqueClicks,
		Bounces:      report.Bounces.HardBounces + report.Bounces.SoftBounces,
		Unsubscribes: report.Unsubscribed,
		Complaints:   report.AbuseReports,
	}
	m.ComputeDerived()
	return m, nil
}

// GetLists fetches all audience lists.
func (a *Adapter) GetLists(ctx context.Context) ([]domain.AudienceList, error) {
	params := url.Values{}
	params.Set("count", fmt.Sprintf("%d", a.pageSize))

	body, _, err := a.do(ctx, "getLists", http.MethodGet, "/lists?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var envelope listsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, platform.NewPlatformError(platformName, "getLists", fmt.Sprintf("decoding response: %v", err))
	}

	lists := make([]domain.AudienceList, 0, len(envelope.Lists))
	for i := range envelope.Lists {
		lists = append(lists, a.toList(&envelope.Lists[i]))
	}
	return lists, nil
}

// GetList fetches one list; (nil, nil) when absent.
func (a *Adapter) GetList(ctx context.Context, externalID string) (*domain.AudienceList, error) {
	body, status, err := a.do(ctx, "getList", http.MethodGet, "/lists/"+externalID, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewPlatformError(platformName, "getList", fmt.Sprintf("decoding response: %v", err))
	}
	l := a.toList(&resp)
	return &l, nil
}

// refetch reads back the canonical object after a write. Absence after a
// write is a hard error: the vendor acknowledged an object it cannot return.
func (a *Adapter) refetch(ctx context.Context, operation, externalID string) (*domain.Campaign, error) {
	c, err := a.GetCampaign(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, platform.NewPlatformError(platformName, operation,
			fmt.Sprintf("campaign %s missing after write", externalID))
	}
	return c, nil
}

// normalizeStatus maps Mailchimp's status vocabulary to the normalized
// enumeration. Unknown values map to UNKNOWN, never fail.
func normalizeStatus(status string) domain.CampaignStatus {
	switch status {
	case "save", "paused":
		return domain.StatusDraft
	case "schedule":
		return domain.StatusScheduled
	case "sending":
		return domain.StatusSending
	case "sent":
		return domain.StatusSent
	case "canceled":
		return domain.StatusCancelled
	case "archived":
		return domain.StatusArchived
	default:
		return domain.StatusUnknown
	}
}

// denormalizeStatus maps the normalized enumeration back to Mailchimp's
// vocabulary, for status filters on list queries.
func denormalizeStatus(status domain.CampaignStatus) string {
	switch status {
	case domain.StatusDraft:
		return "save"
	case domain.StatusScheduled:
		return "schedule"
	case domain.StatusSending:
		return "sending"
	case domain.StatusSent:
		return "sent"
	case domain.StatusCancelled:
		return "canceled"
	case domain.StatusArchived:
		return "archived"
	default:
		return ""
	}
}

func (a *Adapter) toCampaign(resp *campaignResponse) domain.Campaign {
	c := domain.Campaign{
		ClientID:    a.clientID,
		ExternalID:  resp.ID,
		Name:        resp.Settings.Title,
		Subject:     resp.Settings.SubjectLine,
		FromName:    resp.Settings.FromName,
		FromEmail:   resp.Settings.ReplyTo,
		PreviewText: resp.Settings.PreviewText,
		Status:      normalizeStatus(resp.Status),
		Metadata: map[string]interface{}{
			"web_id":  resp.WebID,
			"type":    resp.Type,
			"list_id": resp.Recipients.ListID,
		},
	}
	if t, err := time.Parse(time.RFC3339, resp.SendTime); err == nil {
		if c.Status == domain.StatusScheduled {
			c.ScheduledAt = &t
		} else if c.Status == domain.StatusSent {
			c.SentAt = &t
		}
	}
	c.Metrics = domain.Metrics{Sent: resp.EmailsSent}
	return c
}

func (a *Adapter) toList(resp *listResponse) domain.AudienceList {
	return domain.AudienceList{
		ClientID:         a.clientID,
		ExternalID:       resp.ID,
		Name:             resp.Name,
		MemberCount:      resp.Stats.MemberCount,
		UnsubscribeCount: resp.Stats.UnsubscribeCount,
		CleanedCount:     resp.Stats.CleanedCount,
		AvgOpenRate:      resp.Stats.OpenRate / 100,
		AvgClickRate:     resp.Stats.ClickRate / 100,
	}
}
