// Package klaviyo translates the unified platform contract to the Klaviyo
// API.
//
// Dialect notes: auth is a `Klaviyo-API-Key` Authorization header plus a
// pinned `revision` date header; resources are JSON:API envelopes; pagination
// is a cursor embedded in a links.next URL (`page[cursor]`); the loop
// terminates on cursor absence or a cursor that stops advancing.
package klaviyo

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
	platformName   = "klaviyo"
	defaultBaseURL = "https://a.klaviyo.com/api"
	apiRevision    = "2024-10-15"
)

// Adapter is a Klaviyo API adapter for one client.
type Adapter struct {
	clientID   string
	baseURL    string
	apiKey     string
	pageSize   int
	httpClient httpretry.HTTPDoer
}

// New creates a Klaviyo adapter.
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

	req.Header.Set("Authorization", "Klaviyo-API-Key "+a.apiKey)
	req.Header.Set("revision", apiRevision)
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

// TestConnection fetches account metadata.
func (a *Adapter) TestConnection(ctx context.Context) error {
	_, status, err := a.do(ctx, "testConnection", http.MethodGet, "/accounts/", nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, "testConnection", "accounts endpoint not found")
	}
	return nil
}

// GetCampaigns fetches one cursor page of email campaigns.
func (a *Adapter) GetCampaigns(ctx context.Context, page platform.Page) (*platform.CampaignPage, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = a.pageSize
	}

	params := url.Values{}
	params.Set("filter", "equals(messages.channel,'email')")
	params.Set("page[size]", fmt.Sprintf("%d", limit))
	if page.Cursor != "" {
		params.Set("page[cursor]", page.Cursor)
	}

	body, _, err := a.do(ctx, "getCampaigns", http.MethodGet, "/campaigns/?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var envelope campaignCollection
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaigns", fmt.Sprintf("decoding response: %v", err))
	}

	next := extractCursor(envelope.Links.Next)
	if next == page.Cursor {
		// A cursor that does not advance would loop forever; treat it as the end.
		next = ""
	}

	result := &platform.CampaignPage{
		Campaigns:  make([]domain.Campaign, 0, len(envelope.Data)),
		HasMore:    next != "",
		NextCursor: next,
	}
	for i := range envelope.Data {
		result.Campaigns = append(result.Campaigns, a.toCampaign(&envelope.Data[i]))
	}
	return result, nil
}

// extractCursor pulls page[cursor] out of a links.next URL.
func extractCursor(next string) string {
	if next == "" {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil {
		return ""
	}
	return u.Query().Get("page[cursor]")
}

// GetCampaign fetches one campaign; (nil, nil) when absent.
func (a *Adapter) GetCampaign(ctx context.Context, externalID string) (*domain.Campaign, error) {
	body, status, err := a.do(ctx, "getCampaign", http.MethodGet, "/campaigns/"+externalID+"/", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	var envelope campaignSingle
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaign", fmt.Sprintf("decoding response: %v", err))
	}
	c := a.toCampaign(&envelope.Data)
	return &c, nil
}

// CreateCampaign creates a campaign and re-fetches the canonical object.
func (a *Adapter) CreateCampaign(ctx context.Context, input platform.CampaignInput) (*domain.Campaign, error) {
	write := writeEnvelope{
		Data: writeResource{
			Type: "campaign",
			Attributes: map[string]interface{}{
				"name": input.Name,
				"campaign-messages": map[string]interface{}{
					"data": []map[string]interface{}{{
						"type": "campaign-message",
						"attributes": map[string]interface{}{
							"channel": "email",
							"content": map[string]interface{}{
								"subject":      input.Subject,
								"preview_text": input.PreviewText,
								"from_email":   input.FromEmail,
								"from_label":   input.FromName,
							},
						},
					}},
				},
			},
		},
	}

	body, _, err := a.do(ctx, "createCampaign", http.MethodPost, "/campaigns/", write)
	if err != nil {
		return nil, err
	}

	var created campaignSingle
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, platform.NewPlatformError(platformName, "createCampaign", fmt.Sprintf("decoding response: %v", err))
	}
	if created.Data.ID == "" {
		return nil, platform.NewPlatformError(platformName, "createCampaign", "vendor returned no id for created campaign")
	}
	return a.refetch(ctx, "createCampaign", created.Data.ID)
}

// UpdateCampaign patches campaign attributes and re-fetches.
func (a *Adapter) UpdateCampaign(ctx context.Context, externalID string, patch platform.CampaignPatch) (*domain.Campaign, error) {
	attrs := map[string]interface{}{}
	if patch.Name != nil {
		attrs["name"] = *patch.Name
	}
	content := map[string]interface{}{}
	if patch.Subject != nil {
		content["subject"] = *patch.Subject
	}
	if patch.PreviewText != nil {
		content["preview_text"] = *patch.PreviewText
	}
	if patch.FromEmail != nil {
		content["from_email"] = *patch.FromEmail
	}
	if patch.FromName != nil {
		content["from_label"] = *patch.FromName
	}
	if len(content) > 0 {
		attrs["campaign-messages"] = map[string]interface{}{"content": content}
	}

	write := writeEnvelope{Data: writeResource{Type: "campaign", ID: externalID, Attributes: attrs}}

	_, status, err := a.do(ctx, "updateCampaign", http.MethodPatch, "/campaigns/"+externalID+"/", write)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, platform.NewPlatformError(platformName, "updateCampaign",
			fmt.Sprintf("campaign %s not found", externalID))
	}
	return a.refetch(ctx, "updateCampaign", externalID)
}

// ScheduleCampaign sets the campaign send strategy to a static time and
// triggers a send job.
func (a *Adapter) ScheduleCampaign(ctx context.Context, externalID string, when time.Time) error {
	write := writeEnvelope{
		Data: writeResource{
			Type: "campaign",
			ID:   externalID,
			Attributes: map[string]interface{}{
				"send_strategy": map[string]interface{}{
					"method": "static",
					"options_static": map[string]interface{}{
						"datetime": when.UTC().Format(time.RFC3339),
					},
				},
			},
		},
	}
	_, status, err := a.do(ctx, "scheduleCampaign", http.MethodPatch, "/campaigns/"+externalID+"/", write)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, "scheduleCampaign",
			fmt.Sprintf("campaign %s not found", externalID))
	}
	return a.triggerSendJob(ctx, "scheduleCampaign", externalID)
}

// SendCampaign triggers an immediate send job.
func (a *Adapter) SendCampaign(ctx context.Context, externalID string) error {
	return a.triggerSendJob(ctx, "sendCampaign", externalID)
}

func (a *Adapter) triggerSendJob(ctx context.Context, operation, externalID string) error {
	write := writeEnvelope{Data: writeResource{Type: "campaign-send-job", ID: externalID,
		Attributes: map[string]interface{}{}}}
	_, status, err := a.do(ctx, operation, http.MethodPost, "/campaign-send-jobs/", write)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, operation,
			fmt.Sprintf("campaign %s not found", externalID))
	}
	return nil
}

// GetCampaignMetrics runs a campaign values report and normalizes the
// statistics block.
func (a *Adapter) GetCampaignMetrics(ctx context.Context, externalID string) (*domain.Metrics, error) {
	write := writeEnvelope{
		Data: writeResource{
			Type: "campaign-values-report",
			Attributes: map[string]interface{}{
				"statistics": []string{
					"recipients", "delivered", "opens", "opens_unique",
					"clicks", "clicks_unique", "bounced", "unsubscribes", "spam_complaints",
				},
				"filter": fmt.Sprintf("equals(campaign_id,'%s')", externalID),
			},
		},
	}

	body, status, err := a.do(ctx, "getCampaignMetrics", http.MethodPost, "/campaign-values-reports/", write)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, platform.NewPlatformError(platformName, "getCampaignMetrics",
			fmt.Sprintf("no report for campaign %s", externalID))
	}

	var report valuesReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaignMetrics", fmt.Sprintf("decoding response: %v", err))
	}

	m := &domain.Metrics{}
	for _, r := range report.Data.Attributes.Results {
		m.Sent += r.Statistics.Recipients
		m.Delivered += r.Statistics.Delivered
		m.Opens += r.Statistics.Opens
		m.UniqueOpens += r.Statistics.OpensUnique
		m.Clicks += r.Statistics.Clicks
		m.UniqueClicks += r.Statistics.ClicksUnique
		m.Bounces += r.Statistics.Bounced
		m.Unsubscribes += r.Statistics.Unsubscribes
		m.Complaints += r.Statistics.SpamComplaints
	}
	m.ComputeDerived()
	return m, nil
}

// GetLists fetches all lists, following cursor links to the end.
func (a *Adapter) GetLists(ctx context.Context) ([]domain.AudienceList, error) {
	var lists []domain.AudienceList
	cursor := ""

	for i := 0; i < 100; i++ {
		params := url.Values{}
		params.Set("page[size]", fmt.Sprintf("%d", a.pageSize))
		if cursor != "" {
			params.Set("page[cursor]", cursor)
		}

		body, _, err := a.do(ctx, "getLists", http.MethodGet, "/lists/?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}

		var envelope listCollection
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, platform.NewPlatformError(platformName, "getLists", fmt.Sprintf("decoding response: %v", err))
		}

		for _, l := range envelope.Data {
			lists = append(lists, domain.AudienceList{
				ClientID:    a.clientID,
				ExternalID:  l.ID,
				Name:        l.Attributes.Name,
				MemberCount: l.Attributes.ProfileCount,
			})
		}

		next := extractCursor(envelope.Links.Next)
		if next == "" || next == cursor {
			break
		}
		cursor = next
	}
	return lists, nil
}

// GetList fetches one list; (nil, nil) when absent.
func (a *Adapter) GetList(ctx context.Context, externalID string) (*domain.AudienceList, error) {
	body, status, err := a.do(ctx, "getList", http.MethodGet, "/lists/"+externalID+"/", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	var envelope listSingle
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, platform.NewPlatformError(platformName, "getList", fmt.Sprintf("decoding response: %v", err))
	}
	return &domain.AudienceList{
		ClientID:    a.clientID,
		ExternalID:  envelope.Data.ID,
		Name:        envelope.Data.Attributes.Name,
		MemberCount: envelope.Data.Attributes.ProfileCount,
	}, nil
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

// normalizeStatus maps Klaviyo's status vocabulary. Klaviyo also carries an
// archived flag outside the status field, handled in toCampaign.
func normalizeStatus(status string) domain.CampaignStatus {
	switch status {
	case "Draft", "Queued without Recipients":
		return domain.StatusDraft
	case "Scheduled", "Queued":
		return domain.StatusScheduled
	case "Sending", "Preparing to send":
		return domain.StatusSending
	case "Sent":
		return domain.StatusSent
	case "Cancelled":
		return domain.StatusCancelled
	default:
		return domain.StatusUnknown
	}
}

// denormalizeStatus maps the normalized enumeration back to Klaviyo's.
func denormalizeStatus(status domain.CampaignStatus) string {
	switch status {
	case domain.StatusDraft:
		return "Draft"
	case domain.StatusScheduled:
		return "Scheduled"
	case domain.StatusSending:
		return "Sending"
	case domain.StatusSent:
		return "Sent"
	case domain.StatusCancelled:
		return "Cancelled"
	default:
		return ""
	}
}

func (a *Adapter) toCampaign(resp *resource) domain.Campaign {
	status := normalizeStatus(resp.Attributes.Status)
	if resp.Attributes.Archived {
		status = domain.StatusArchived
	}

	c := domain.Campaign{
		ClientID:    a.clientID,
		ExternalID:  resp.ID,
		Name:        resp.Attributes.Name,
		Subject:     resp.Attributes.Message.Subject,
		PreviewText: resp.Attributes.Message.PreviewText,
		FromEmail:   resp.Attributes.Message.FromEmail,
		FromName:    resp.Attributes.Message.FromLabel,
		Status:      status,
		Metadata: map[string]interface{}{
			"audiences_included": resp.Attributes.Audiences.Included,
			"vendor_status":      resp.Attributes.Status,
		},
	}
	if t, err := time.Parse(time.RFC3339, resp.Attributes.SendTime); err == nil {
		if status == domain.StatusSent {
			c.SentAt = &t
		} else if status == domain.StatusScheduled {
			c.ScheduledAt = &t
		}
	}
	return c
}
