// Package brevo translates the unified platform contract to the Brevo
// (ex-Sendinblue) API v3.
//
// Dialect notes: auth is an `api-key` header; pagination is offset/limit with
// a returned count; campaign ids and list ids are integers on the wire and
// stringified for the mirror; create answers with just {"id": N}, so the
// canonical object is always re-fetched.
package brevo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ignite/platform-hub/internal/domain"
	"github.com/ignite/platform-hub/internal/pkg/httpretry"
	"github.com/ignite/platform-hub/internal/platform"
)

const (
	platformName   = "brevo"
	defaultBaseURL = "https://api.brevo.com/v3"
)

// Adapter is a Brevo API adapter for one client.
type Adapter struct {
	clientID   string
	baseURL    string
	apiKey     string
	pageSize   int
	httpClient httpretry.HTTPDoer
}

// New creates a Brevo adapter.
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

	req.Header.Set("api-key", a.apiKey)
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
	_, status, err := a.do(ctx, "testConnection", http.MethodGet, "/account", nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, "testConnection", "account endpoint not found")
	}
	return nil
}

// GetCampaigns fetches one offset page of email campaigns.
func (a *Adapter) GetCampaigns(ctx context.Context, page platform.Page) (*platform.CampaignPage, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = a.pageSize
	}

	params := url.Values{}
	params.Set("offset", strconv.Itoa(page.Offset))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("statistics", "globalStats")

	body, _, err := a.do(ctx, "getCampaigns", http.MethodGet, "/emailCampaigns?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var envelope campaignPage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaigns", fmt.Sprintf("decoding response: %v", err))
	}

	result := &platform.CampaignPage{
		Campaigns:  make([]domain.Campaign, 0, len(envelope.Campaigns)),
		HasMore:    page.Offset+len(envelope.Campaigns) < envelope.Count,
		NextOffset: page.Offset + len(envelope.Campaigns),
	}
	for i := range envelope.Campaigns {
		result.Campaigns = append(result.Campaigns, a.toCampaign(&envelope.Campaigns[i]))
	}
	return result, nil
}

// GetCampaign fetches one campaign; (nil, nil) when absent.
func (a *Adapter) GetCampaign(ctx context.Context, externalID string) (*domain.Campaign, error) {
	body, status, err := a.do(ctx, "getCampaign", http.MethodGet, "/emailCampaigns/"+externalID, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	var resp emailCampaign
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaign", fmt.Sprintf("decoding response: %v", err))
	}
	c := a.toCampaign(&resp)
	return &c, nil
}

// CreateCampaign creates a campaign; Brevo answers {"id": N} only, so the
// canonical object is re-fetched.
func (a *Adapter) CreateCampaign(ctx context.Context, input platform.CampaignInput) (*domain.Campaign, error) {
	write := campaignWrite{
		Name:        input.Name,
		Subject:     input.Subject,
		PreviewText: input.PreviewText,
		HTMLContent: input.HTMLContent,
	}
	if input.FromEmail != "" {
		write.Sender = &campaignSender{Name: input.FromName, Email: input.FromEmail}
	}
	if input.ListID != "" {
		if id, err := strconv.ParseInt(input.ListID, 10, 64); err == nil {
			write.Recipients = &writeLists{ListIDs: []int64{id}}
		}
	}

	body, _, err := a.do(ctx, "createCampaign", http.MethodPost, "/emailCampaigns", write)
	if err != nil {
		return nil, err
	}

	var created createResponse
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, platform.NewPlatformError(platformName, "createCampaign", fmt.Sprintf("decoding response: %v", err))
	}
	if created.ID == 0 {
		return nil, platform.NewPlatformError(platformName, "createCampaign", "vendor returned no id for created campaign")
	}
	return a.refetch(ctx, "createCampaign", strconv.FormatInt(created.ID, 10))
}

// UpdateCampaign patches a campaign (204 response) and re-fetches.
func (a *Adapter) UpdateCampaign(ctx context.Context, externalID string, patch platform.CampaignPatch) (*domain.Campaign, error) {
	write := campaignWrite{}
	if patch.Name != nil {
		write.Name = *patch.Name
	}
	if patch.Subject != nil {
		write.Subject = *patch.Subject
	}
	if patch.PreviewText != nil {
		write.PreviewText = *patch.PreviewText
	}
	if patch.HTMLContent != nil {
		write.HTMLContent = *patch.HTMLContent
	}
	if patch.FromEmail != nil || patch.FromName != nil {
		write.Sender = &campaignSender{}
		if patch.FromName != nil {
			write.Sender.Name = *patch.FromName
		}
		if patch.FromEmail != nil {
			write.Sender.Email = *patch.FromEmail
		}
	}

	_, status, err := a.do(ctx, "updateCampaign", http.MethodPut, "/emailCampaigns/"+externalID, write)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, platform.NewPlatformError(platformName, "updateCampaign",
			fmt.Sprintf("campaign %s not found", externalID))
	}
	return a.refetch(ctx, "updateCampaign", externalID)
}

// ScheduleCampaign updates scheduledAt on the campaign.
func (a *Adapter) ScheduleCampaign(ctx context.Context, externalID string, when time.Time) error {
	write := campaignWrite{ScheduledAt: when.UTC().Format("2006-01-02T15:04:05.000-07:00")}
	_, status, err := a.do(ctx, "scheduleCampaign", http.MethodPut, "/emailCampaigns/"+externalID, write)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, "scheduleCampaign",
			fmt.Sprintf("campaign %s not found", externalID))
	}
	return nil
}

// SendCampaign triggers an immediate send (204 response).
func (a *Adapter) SendCampaign(ctx context.Context, externalID string) error {
	_, status, err := a.do(ctx, "sendCampaign", http.MethodPost, "/emailCampaigns/"+externalID+"/sendNow", nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, "sendCampaign",
			fmt.Sprintf("campaign %s not found", externalID))
	}
	return nil
}

// GetCampaignMetrics reads the campaign's globalStats block.
func (a *Adapter) GetCampaignMetrics(ctx context.Context, externalID string) (*domain.Metrics, error) {
	body, status, err := a.do(ctx, "getCampaignMetrics", http.MethodGet, "/emailCampaigns/"+externalID+"?statistics=globalStats", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, platform.NewPlatformError(platformName, "getCampaignMetrics",
			fmt.Sprintf("campaign %s not found", externalID))
	}

	var resp emailCampaign
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaignMetrics", fmt.Sprintf("decoding response: %v", err))
	}

	m := statsToMetrics(resp.Statistics.GlobalStats)
	return &m, nil
}

func statsToMetrics(s globalStats) domain.Metrics {
	m := domain.Metrics{
		Sent:         s.Sent,
		Delivered:    s.Delivered,
		Opens:        s.Viewed,
		UniqueOpens:  s.UniqueViews,
		Clicks:       s.UniqueClicks,
		UniqueClicks: s.Clickers,
		Bounces:      s.SoftBounces + s.HardBounces,
		Unsubscribes: s.Unsubscriptions,
		Complaints:   s.Complaints,
	}
	m.ComputeDerived()
	return m
}

// GetLists fetches all contact lists page by page.
func (a *Adapter) GetLists(ctx context.Context) ([]domain.AudienceList, error) {
	var lists []domain.AudienceList

	for offset := 0; ; {
		params := url.Values{}
		params.Set("offset", strconv.Itoa(offset))
		params.Set("limit", strconv.Itoa(a.pageSize))

		body, _, err := a.do(ctx, "getLists", http.MethodGet, "/contacts/lists?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}

		var envelope listPage
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, platform.NewPlatformError(platformName, "getLists", fmt.Sprintf("decoding response: %v", err))
		}

		for i := range envelope.Lists {
			lists = append(lists, a.toList(&envelope.Lists[i]))
		}

		offset += len(envelope.Lists)
		if len(envelope.Lists) == 0 || offset >= envelope.Count {
			break
		}
	}
	return lists, nil
}

// GetList fetches one contact list; (nil, nil) when absent.
func (a *Adapter) GetList(ctx context.Context, externalID string) (*domain.AudienceList, error) {
	body, status, err := a.do(ctx, "getList", http.MethodGet, "/contacts/lists/"+externalID, nil)
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
	l := a.toList(&resp)
	return &l, nil
}

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

// normalizeStatus maps Brevo's status vocabulary.
func normalizeStatus(status string) domain.CampaignStatus {
	switch status {
	case "draft":
		return domain.StatusDraft
	case "queued":
		return domain.StatusScheduled
	case "inProcess", "in_process":
		return domain.StatusSending
	case "sent":
		return domain.StatusSent
	case "suspended":
		return domain.StatusCancelled
	case "archive":
		return domain.StatusArchived
	default:
		return domain.StatusUnknown
	}
}

// denormalizeStatus maps the normalized enumeration back to Brevo's.
func denormalizeStatus(status domain.CampaignStatus) string {
	switch status {
	case domain.StatusDraft:
		return "draft"
	case domain.StatusScheduled:
		return "queued"
	case domain.StatusSending:
		return "inProcess"
	case domain.StatusSent:
		return "sent"
	case domain.StatusCancelled:
		return "suspended"
	case domain.StatusArchived:
		return "archive"
	default:
		return ""
	}
}

func (a *Adapter) toCampaign(resp *emailCampaign) domain.Campaign {
	c := domain.Campaign{
		ClientID:    a.clientID,
		ExternalID:  strconv.FormatInt(resp.ID, 10),
		Name:        resp.Name,
		Subject:     resp.Subject,
		PreviewText: resp.PreviewText,
		FromName:    resp.Sender.Name,
		FromEmail:   resp.Sender.Email,
		Status:      normalizeStatus(resp.Status),
		Metadata: map[string]interface{}{
			"type":     resp.Type,
			"list_ids": resp.Recipients.Lists,
		},
	}
	if t, err := time.Parse(time.RFC3339, resp.ScheduledAt); err == nil {
		c.ScheduledAt = &t
	}
	if t, err := time.Parse(time.RFC3339, resp.SentDate); err == nil {
		c.SentAt = &t
	}
	c.Metrics = statsToMetrics(resp.Statistics.GlobalStats)
	return c
}

func (a *Adapter) toList(resp *contactList) domain.AudienceList {
	return domain.AudienceList{
		ClientID:         a.clientID,
		ExternalID:       strconv.FormatInt(resp.ID, 10),
		Name:             resp.Name,
		MemberCount:      resp.TotalSubscribers,
		UnsubscribeCount: resp.TotalBlacklisted,
	}
}
