// Package activecampaign translates the unified platform contract to the
// ActiveCampaign API v3.
//
// Dialect notes: the base URL is account-scoped
// (https://{account}.api-us1.com/api/3) and derived from a credential field;
// auth is an Api-Token header; statuses are numeric codes serialized as
// strings; every counter is a numeric string; pagination is offset/limit
// with a meta.total that is itself a string.
package activecampaign

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

const platformName = "activecampaign"

// Vendor status codes.
const (
	statusDraft     = "0"
	statusScheduled = "1"
	statusSending   = "2"
	statusPaused    = "3"
	statusStopped   = "4"
	statusCompleted = "5"
)

// Adapter is an ActiveCampaign API adapter for one client.
type Adapter struct {
	clientID   string
	baseURL    string
	apiToken   string
	pageSize   int
	httpClient httpretry.HTTPDoer
}

// New creates an ActiveCampaign adapter scoped to the account named in the
// credentials.
func New(clientID string, credentials map[string]string, opts platform.Options) (*Adapter, error) {
	account := credentials["account_name"]
	return &Adapter{
		clientID: clientID,
		baseURL:  fmt.Sprintf("https://%s.api-us1.com/api/3", account),
		apiToken: credentials["api_key"],
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

	req.Header.Set("Api-Token", a.apiToken)
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

// TestConnection reads account metadata.
func (a *Adapter) TestConnection(ctx context.Context) error {
	_, status, err := a.do(ctx, "testConnection", http.MethodGet, "/users/me", nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, "testConnection", "account endpoint not found")
	}
	return nil
}

// GetCampaigns fetches one offset page of campaigns.
func (a *Adapter) GetCampaigns(ctx context.Context, page platform.Page) (*platform.CampaignPage, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = a.pageSize
	}

	params := url.Values{}
	params.Set("offset", strconv.Itoa(page.Offset))
	params.Set("limit", strconv.Itoa(limit))

	body, _, err := a.do(ctx, "getCampaigns", http.MethodGet, "/campaigns?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var envelope campaignListEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaigns", fmt.Sprintf("decoding response: %v", err))
	}

	total := atoi(envelope.Meta.Total)
	result := &platform.CampaignPage{
		Campaigns:  make([]domain.Campaign, 0, len(envelope.Campaigns)),
		HasMore:    page.Offset+len(envelope.Campaigns) < total,
		NextOffset: page.Offset + len(envelope.Campaigns),
	}
	for i := range envelope.Campaigns {
		result.Campaigns = append(result.Campaigns, a.toCampaign(&envelope.Campaigns[i]))
	}
	return result, nil
}

// GetCampaign fetches one campaign; (nil, nil) when absent.
func (a *Adapter) GetCampaign(ctx context.Context, externalID string) (*domain.Campaign, error) {
	body, status, err := a.do(ctx, "getCampaign", http.MethodGet, "/campaigns/"+externalID, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	var envelope campaignSingleEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaign", fmt.Sprintf("decoding response: %v", err))
	}
	c := a.toCampaign(&envelope.Campaign)
	return &c, nil
}

// CreateCampaign creates the message body, then the campaign, then re-fetches
// the canonical object.
func (a *Adapter) CreateCampaign(ctx context.Context, input platform.CampaignInput) (*domain.Campaign, error) {
	msg := messageWrite{Message: messageBody{
		Subject:   input.Subject,
		FromName:  input.FromName,
		FromEmail: input.FromEmail,
		HTML:      input.HTMLContent,
		Text:      input.TextContent,
	}}
	if _, _, err := a.do(ctx, "createCampaign", http.MethodPost, "/messages", msg); err != nil {
		return nil, err
	}

	write := campaignWrite{Campaign: campaignWriteBody{
		Name:   input.Name,
		Type:   "single",
		Status: statusDraft,
		ListID: input.ListID,
	}}
	body, _, err := a.do(ctx, "createCampaign", http.MethodPost, "/campaigns", write)
	if err != nil {
		return nil, err
	}

	var created campaignSingleEnvelope
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, platform.NewPlatformError(platformName, "createCampaign", fmt.Sprintf("decoding response: %v", err))
	}
	if created.Campaign.ID == "" {
		return nil, platform.NewPlatformError(platformName, "createCampaign", "vendor returned no id for created campaign")
	}
	return a.refetch(ctx, "createCampaign", created.Campaign.ID)
}

// UpdateCampaign patches the campaign and re-fetches the canonical object.
func (a *Adapter) UpdateCampaign(ctx context.Context, externalID string, patch platform.CampaignPatch) (*domain.Campaign, error) {
	write := campaignWrite{}
	if patch.Name != nil {
		write.Campaign.Name = *patch.Name
	}

	if patch.Subject != nil || patch.FromName != nil || patch.FromEmail != nil ||
		patch.HTMLContent != nil || patch.TextContent != nil {
		msg := messageWrite{}
		if patch.Subject != nil {
			msg.Message.Subject = *patch.Subject
		}
		if patch.FromName != nil {
			msg.Message.FromName = *patch.FromName
		}
		if patch.FromEmail != nil {
			msg.Message.FromEmail = *patch.FromEmail
		}
		if patch.HTMLContent != nil {
			msg.Message.HTML = *patch.HTMLContent
		}
		if patch.TextContent != nil {
			msg.Message.Text = *patch.TextContent
		}
		if _, _, err := a.do(ctx, "updateCampaign", http.MethodPut, "/campaigns/"+externalID+"/message", msg); err != nil {
			return nil, err
		}
	}

	if write.Campaign.Name != "" {
		_, status, err := a.do(ctx, "updateCampaign", http.MethodPut, "/campaigns/"+externalID, write)
		if err != nil {
			return nil, err
		}
		if status == http.StatusNotFound {
			return nil, platform.NewPlatformError(platformName, "updateCampaign",
				fmt.Sprintf("campaign %s not found", externalID))
		}
	}

	return a.refetch(ctx, "updateCampaign", externalID)
}

// ScheduleCampaign sets the scheduled status and send date.
func (a *Adapter) ScheduleCampaign(ctx context.Context, externalID string, when time.Time) error {
	write := campaignWrite{Campaign: campaignWriteBody{
		Status: statusScheduled,
		SDate:  when.UTC().Format("2006-01-02 15:04:05"),
	}}
	_, status, err := a.do(ctx, "scheduleCampaign", http.MethodPut, "/campaigns/"+externalID, write)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, "scheduleCampaign",
			fmt.Sprintf("campaign %s not found", externalID))
	}
	return nil
}

// SendCampaign flips the campaign straight to sending.
func (a *Adapter) SendCampaign(ctx context.Context, externalID string) error {
	write := campaignWrite{Campaign: campaignWriteBody{Status: statusSending}}
	_, status, err := a.do(ctx, "sendCampaign", http.MethodPut, "/campaigns/"+externalID, write)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, "sendCampaign",
			fmt.Sprintf("campaign %s not found", externalID))
	}
	return nil
}

// GetCampaignMetrics reads the campaign record's embedded counters.
func (a *Adapter) GetCampaignMetrics(ctx context.Context, externalID string) (*domain.Metrics, error) {
	body, status, err := a.do(ctx, "getCampaignMetrics", http.MethodGet, "/campaigns/"+externalID, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, platform.NewPlatformError(platformName, "getCampaignMetrics",
			fmt.Sprintf("campaign %s not found", externalID))
	}

	var envelope campaignSingleEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaignMetrics", fmt.Sprintf("decoding response: %v", err))
	}

	r := envelope.Campaign
	m := &domain.Metrics{
		Sent:         atoi(r.SendAmt),
		Opens:        atoi(r.Opens),
		UniqueOpens:  atoi(r.UniqueOpens),
		Clicks:       atoi(r.LinkClicks),
		UniqueClicks: atoi(r.UniqueLinkClicks),
		Bounces:      atoi(r.HardBounces) + atoi(r.SoftBounces),
		Unsubscribes: atoi(r.Unsubscribes),
		Complaints:   atoi(r.SpamComplaints),
	}
	m.ComputeDerived()
	return m, nil
}

// GetLists fetches all lists page by page until a short page.
func (a *Adapter) GetLists(ctx context.Context) ([]domain.AudienceList, error) {
	var lists []domain.AudienceList

	for offset := 0; ; offset += a.pageSize {
		params := url.Values{}
		params.Set("offset", strconv.Itoa(offset))
		params.Set("limit", strconv.Itoa(a.pageSize))

		body, _, err := a.do(ctx, "getLists", http.MethodGet, "/lists?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}

		var envelope listListEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, platform.NewPlatformError(platformName, "getLists", fmt.Sprintf("decoding response: %v", err))
		}

		for _, l := range envelope.Lists {
			lists = append(lists, a.toList(&l))
		}

		if len(envelope.Lists) < a.pageSize {
			break
		}
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

	var envelope listSingleEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, platform.NewPlatformError(platformName, "getList", fmt.Sprintf("decoding response: %v", err))
	}
	l := a.toList(&envelope.List)
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

// normalizeStatus maps ActiveCampaign's numeric codes.
func normalizeStatus(code string) domain.CampaignStatus {
	switch code {
	case statusDraft:
		return domain.StatusDraft
	case statusScheduled:
		return domain.StatusScheduled
	case statusSending:
		return domain.StatusSending
	case statusPaused, statusStopped:
		return domain.StatusCancelled
	case statusCompleted:
		return domain.StatusSent
	default:
		return domain.StatusUnknown
	}
}

// denormalizeStatus maps the normalized enumeration back to vendor codes.
func denormalizeStatus(status domain.CampaignStatus) string {
	switch status {
	case domain.StatusDraft:
		return statusDraft
	case domain.StatusScheduled:
		return statusScheduled
	case domain.StatusSending:
		return statusSending
	case domain.StatusCancelled:
		return statusStopped
	case domain.StatusSent:
		return statusCompleted
	default:
		return ""
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func (a *Adapter) toCampaign(r *campaignRecord) domain.Campaign {
	c := domain.Campaign{
		ClientID:   a.clientID,
		ExternalID: r.ID,
		Name:       r.Name,
		Status:     normalizeStatus(r.Status),
		Metadata: map[string]interface{}{
			"type":          r.Type,
			"vendor_status": r.Status,
		},
	}
	if t, err := time.Parse("2006-01-02 15:04:05", r.SendDate); err == nil {
		if c.Status == domain.StatusSent {
			c.SentAt = &t
		} else if c.Status == domain.StatusScheduled {
			c.ScheduledAt = &t
		}
	}
	c.Metrics = domain.Metrics{Sent: atoi(r.SendAmt)}
	return c
}

func (a *Adapter) toList(r *listRecord) domain.AudienceList {
	count := atoi(r.SubscriberCount)
	if count == 0 {
		count = atoi(r.ActiveSubscribers)
	}
	return domain.AudienceList{
		ClientID:    a.clientID,
		ExternalID:  r.ID,
		Name:        r.Name,
		MemberCount: count,
	}
}
