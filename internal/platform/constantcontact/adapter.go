// Package constantcontact translates the unified platform contract to the
// Constant Contact API v3.
//
// Dialect notes: auth is an OAuth2 bearer token with a refresh flow. A 401
// triggers exactly one token refresh and retry, never a loop. A campaign's
// subject and sender live on its primary campaign activity, a separate
// resource, so writes and metric reads go through the activity id. Pages are
// cursor links under `_links.next.href`.
package constantcontact

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/ignite/platform-hub/internal/domain"
	"github.com/ignite/platform-hub/internal/pkg/httpretry"
	"github.com/ignite/platform-hub/internal/platform"
)

const (
	platformName    = "constantcontact"
	defaultBaseURL  = "https://api.cc.email/v3"
	defaultTokenURL = "https://authz.constantcontact.com/oauth2/default/v1/token"

	rolePrimaryEmail = "primary_email"
)

// Adapter is a Constant Contact API adapter for one client.
type Adapter struct {
	clientID   string
	baseURL    string
	pageSize   int
	httpClient httpretry.HTTPDoer

	oauthConfig  *oauth2.Config
	refreshToken string

	mu          sync.Mutex
	accessToken string
}

// New creates a Constant Contact adapter. Credentials carry the OAuth2
// app's client id/secret plus the access and refresh tokens obtained during
// onboarding.
func New(clientID string, credentials map[string]string, opts platform.Options) (*Adapter, error) {
	return &Adapter{
		clientID: clientID,
		baseURL:  defaultBaseURL,
		pageSize: opts.PageSize,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: opts.Timeout,
		}, opts.MaxRetries),
		oauthConfig: &oauth2.Config{
			ClientID:     credentials["client_id"],
			ClientSecret: credentials["client_secret"],
			Endpoint:     oauth2.Endpoint{TokenURL: defaultTokenURL},
		},
		refreshToken: credentials["refresh_token"],
		accessToken:  credentials["access_token"],
	}, nil
}

var _ platform.Adapter = (*Adapter)(nil)

// Platform returns the platform identifier.
func (a *Adapter) Platform() string { return platformName }

func (a *Adapter) currentToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.accessToken
}

// refreshAccessToken exchanges the refresh token for a new access token.
// The token source is built fresh each time so the exchange always hits the
// token endpoint instead of a cached token.
func (a *Adapter) refreshAccessToken(ctx context.Context) error {
	src := a.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: a.refreshToken})
	tok, err := src.Token()
	if err != nil {
		return platform.NewPlatformError(platformName, "refreshToken",
			fmt.Sprintf("oauth token refresh failed: %v", err))
	}

	a.mu.Lock()
	a.accessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		a.refreshToken = tok.RefreshToken
	}
	a.mu.Unlock()
	return nil
}

func (a *Adapter) do(ctx context.Context, operation, method, path string, body interface{}) ([]byte, int, error) {
	var jsonBody []byte
	if body != nil {
		var err error
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("marshaling request body: %w", err)
		}
	}

	respBody, status, err := a.send(ctx, operation, method, path, jsonBody)
	if status == http.StatusUnauthorized {
		if refreshErr := a.refreshAccessToken(ctx); refreshErr != nil {
			return nil, status, refreshErr
		}
		respBody, status, err = a.send(ctx, operation, method, path, jsonBody)
	}
	return respBody, status, err
}

func (a *Adapter) send(ctx context.Context, operation, method, path string, jsonBody []byte) ([]byte, int, error) {
	fullURL := path
	if !isAbsoluteURL(path) {
		// Cursor hrefs come back prefixed with the API version segment.
		fullURL = a.baseURL + strings.TrimPrefix(path, "/v3")
	}

	var reqBody io.Reader
	if jsonBody != nil {
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+a.currentToken())
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
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, http.StatusUnauthorized, platform.ClassifyResponse(platformName, operation, resp, respBody)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, resp.StatusCode, platform.ClassifyResponse(platformName, operation, resp, respBody)
	}

	return respBody, resp.StatusCode, nil
}

func isAbsoluteURL(path string) bool {
	u, err := url.Parse(path)
	return err == nil && u.IsAbs()
}

// TestConnection reads the account summary.
func (a *Adapter) TestConnection(ctx context.Context) error {
	body, status, err := a.do(ctx, "testConnection", http.MethodGet, "/account/summary", nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, "testConnection", "account summary not found")
	}

	var resp accountSummary
	if err := json.Unmarshal(body, &resp); err != nil {
		return platform.NewPlatformError(platformName, "testConnection", fmt.Sprintf("decoding response: %v", err))
	}
	return nil
}

// GetCampaigns fetches one cursor page of email campaigns. The cursor is the
// whole next-page href from the previous response.
func (a *Adapter) GetCampaigns(ctx context.Context, page platform.Page) (*platform.CampaignPage, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = a.pageSize
	}

	path := page.Cursor
	if path == "" {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(limit))
		path = "/emails?" + params.Encode()
	}

	body, _, err := a.do(ctx, "getCampaigns", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var envelope campaignPage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaigns", fmt.Sprintf("decoding response: %v", err))
	}

	result := &platform.CampaignPage{
		Campaigns: make([]domain.Campaign, 0, len(envelope.Campaigns)),
	}
	if envelope.Links.Next != nil && envelope.Links.Next.Href != "" && envelope.Links.Next.Href != page.Cursor {
		result.HasMore = true
		result.NextCursor = envelope.Links.Next.Href
	}
	for i := range envelope.Campaigns {
		result.Campaigns = append(result.Campaigns, a.toCampaign(&envelope.Campaigns[i]))
	}
	return result, nil
}

// GetCampaign fetches one campaign with its activities; (nil, nil) when
// absent.
func (a *Adapter) GetCampaign(ctx context.Context, externalID string) (*domain.Campaign, error) {
	body, status, err := a.do(ctx, "getCampaign", http.MethodGet, "/emails/"+externalID, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	var resp campaign
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaign", fmt.Sprintf("decoding response: %v", err))
	}

	c := a.toCampaign(&resp)
	if act := primaryActivity(&resp); act != nil && act.Subject == "" {
		// List and detail responses omit activity content fields.
		full, err := a.getActivity(ctx, "getCampaign", act.CampaignActivityID)
		if err != nil {
			return nil, err
		}
		if full != nil {
			applyActivity(&c, full)
		}
	} else if act != nil {
		applyActivity(&c, act)
	}
	return &c, nil
}

func (a *Adapter) getActivity(ctx context.Context, operation, activityID string) (*activity, error) {
	body, status, err := a.do(ctx, operation, http.MethodGet, "/emails/activities/"+activityID, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	var act activity
	if err := json.Unmarshal(body, &act); err != nil {
		return nil, platform.NewPlatformError(platformName, operation, fmt.Sprintf("decoding response: %v", err))
	}
	return &act, nil
}

// CreateCampaign creates a campaign with one primary email activity and
// re-fetches the canonical object.
func (a *Adapter) CreateCampaign(ctx context.Context, input platform.CampaignInput) (*domain.Campaign, error) {
	create := campaignCreate{
		Name: input.Name,
		Activities: []activityWrite{{
			FormatType:  5,
			FromName:    input.FromName,
			FromEmail:   input.FromEmail,
			ReplyTo:     input.FromEmail,
			Subject:     input.Subject,
			Preheader:   input.PreviewText,
			HTMLContent: input.HTMLContent,
		}},
	}

	body, _, err := a.do(ctx, "createCampaign", http.MethodPost, "/emails", create)
	if err != nil {
		return nil, err
	}

	var created campaign
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, platform.NewPlatformError(platformName, "createCampaign", fmt.Sprintf("decoding response: %v", err))
	}
	if created.CampaignID == "" {
		return nil, platform.NewPlatformError(platformName, "createCampaign", "vendor returned no id for created campaign")
	}
	return a.refetch(ctx, "createCampaign", created.CampaignID)
}

// UpdateCampaign renames the campaign and/or rewrites its primary activity,
// then re-fetches.
func (a *Adapter) UpdateCampaign(ctx context.Context, externalID string, patch platform.CampaignPatch) (*domain.Campaign, error) {
	current, err := a.GetCampaign(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, platform.NewPlatformError(platformName, "updateCampaign",
			fmt.Sprintf("campaign %s not found", externalID))
	}

	if patch.Name != nil {
		_, _, err := a.do(ctx, "updateCampaign", http.MethodPatch, "/emails/"+externalID, campaignRename{Name: *patch.Name})
		if err != nil {
			return nil, err
		}
	}

	if patch.Subject != nil || patch.FromName != nil || patch.FromEmail != nil ||
		patch.PreviewText != nil || patch.HTMLContent != nil {
		activityID, _ := current.Metadata["primary_activity_id"].(string)
		if activityID == "" {
			return nil, platform.NewPlatformError(platformName, "updateCampaign",
				fmt.Sprintf("campaign %s has no primary email activity", externalID))
		}

		write := activityWrite{
			FormatType: 5,
			FromName:   current.FromName,
			FromEmail:  current.FromEmail,
			ReplyTo:    current.FromEmail,
			Subject:    current.Subject,
			Preheader:  current.PreviewText,
		}
		if patch.Subject != nil {
			write.Subject = *patch.Subject
		}
		if patch.FromName != nil {
			write.FromName = *patch.FromName
		}
		if patch.FromEmail != nil {
			write.FromEmail = *patch.FromEmail
			write.ReplyTo = *patch.FromEmail
		}
		if patch.PreviewText != nil {
			write.Preheader = *patch.PreviewText
		}
		if patch.HTMLContent != nil {
			write.HTMLContent = *patch.HTMLContent
		}

		_, _, err := a.do(ctx, "updateCampaign", http.MethodPut, "/emails/activities/"+activityID, write)
		if err != nil {
			return nil, err
		}
	}

	return a.refetch(ctx, "updateCampaign", externalID)
}

// ScheduleCampaign schedules the primary activity for a future date.
func (a *Adapter) ScheduleCampaign(ctx context.Context, externalID string, when time.Time) error {
	return a.schedule(ctx, "scheduleCampaign", externalID, when.UTC().Format(time.RFC3339))
}

// SendCampaign schedules the primary activity for immediate delivery, which
// the vendor spells as scheduled_date "0".
func (a *Adapter) SendCampaign(ctx context.Context, externalID string) error {
	return a.schedule(ctx, "sendCampaign", externalID, "0")
}

func (a *Adapter) schedule(ctx context.Context, operation, externalID, scheduledDate string) error {
	activityID, err := a.primaryActivityID(ctx, operation, externalID)
	if err != nil {
		return err
	}

	_, status, err := a.do(ctx, operation, http.MethodPost, "/emails/activities/"+activityID+"/schedules",
		scheduleWrite{ScheduledDate: scheduledDate})
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, operation,
			fmt.Sprintf("campaign activity %s not found", activityID))
	}
	return nil
}

func (a *Adapter) primaryActivityID(ctx context.Context, operation, externalID string) (string, error) {
	c, err := a.GetCampaign(ctx, externalID)
	if err != nil {
		return "", err
	}
	if c == nil {
		return "", platform.NewPlatformError(platformName, operation,
			fmt.Sprintf("campaign %s not found", externalID))
	}
	activityID, _ := c.Metadata["primary_activity_id"].(string)
	if activityID == "" {
		return "", platform.NewPlatformError(platformName, operation,
			fmt.Sprintf("campaign %s has no primary email activity", externalID))
	}
	return activityID, nil
}

// GetCampaignMetrics reads the tracking counts of the primary activity.
func (a *Adapter) GetCampaignMetrics(ctx context.Context, externalID string) (*domain.Metrics, error) {
	activityID, err := a.primaryActivityID(ctx, "getCampaignMetrics", externalID)
	if err != nil {
		return nil, err
	}

	body, status, err := a.do(ctx, "getCampaignMetrics", http.MethodGet,
		"/reports/email_reports/"+activityID+"/tracking/counts", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, platform.NewPlatformError(platformName, "getCampaignMetrics",
			fmt.Sprintf("tracking counts for activity %s not found", activityID))
	}

	var counts trackingCounts
	if err := json.Unmarshal(body, &counts); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaignMetrics", fmt.Sprintf("decoding response: %v", err))
	}

	m := domain.Metrics{
		Sent:         counts.Sends,
		Opens:        counts.Opens,
		UniqueOpens:  counts.UniqueOpens,
		Clicks:       counts.Clicks,
		UniqueClicks: counts.UniqueClicks,
		Bounces:      counts.Bounces,
		Unsubscribes: counts.Optouts,
		Complaints:   counts.Abuse,
	}
	m.ComputeDerived()
	return &m, nil
}

// GetLists fetches all contact lists, following cursor links.
func (a *Adapter) GetLists(ctx context.Context) ([]domain.AudienceList, error) {
	var lists []domain.AudienceList

	params := url.Values{}
	params.Set("include_count", "true")
	params.Set("limit", strconv.Itoa(a.pageSize))
	path := "/contact_lists?" + params.Encode()

	seen := map[string]bool{}
	for path != "" && !seen[path] {
		seen[path] = true

		body, _, err := a.do(ctx, "getLists", http.MethodGet, path, nil)
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

		path = ""
		if envelope.Links.Next != nil {
			path = envelope.Links.Next.Href
		}
	}
	return lists, nil
}

// GetList fetches one contact list; (nil, nil) when absent.
func (a *Adapter) GetList(ctx context.Context, externalID string) (*domain.AudienceList, error) {
	body, status, err := a.do(ctx, "getList", http.MethodGet, "/contact_lists/"+externalID+"?include_count=true", nil)
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

// normalizeStatus maps Constant Contact's status vocabulary.
func normalizeStatus(status string) domain.CampaignStatus {
	switch status {
	case "DRAFT", "Draft":
		return domain.StatusDraft
	case "SCHEDULED", "Scheduled":
		return domain.StatusScheduled
	case "EXECUTING", "Executing":
		return domain.StatusSending
	case "DONE", "Done":
		return domain.StatusSent
	case "REMOVED", "Removed":
		return domain.StatusArchived
	case "ERROR", "Error":
		return domain.StatusUnknown
	default:
		return domain.StatusUnknown
	}
}

// denormalizeStatus maps the normalized enumeration back to the vendor's.
func denormalizeStatus(status domain.CampaignStatus) string {
	switch status {
	case domain.StatusDraft:
		return "DRAFT"
	case domain.StatusScheduled:
		return "SCHEDULED"
	case domain.StatusSending:
		return "EXECUTING"
	case domain.StatusSent:
		return "DONE"
	case domain.StatusArchived:
		return "REMOVED"
	default:
		return ""
	}
}

func primaryActivity(c *campaign) *activity {
	for i := range c.Activities {
		if c.Activities[i].Role == rolePrimaryEmail {
			return &c.Activities[i]
		}
	}
	return nil
}

func applyActivity(c *domain.Campaign, act *activity) {
	c.Subject = act.Subject
	c.FromName = act.FromName
	c.FromEmail = act.FromEmail
	c.PreviewText = act.PreheaderText
}

func (a *Adapter) toCampaign(resp *campaign) domain.Campaign {
	c := domain.Campaign{
		ClientID:   a.clientID,
		ExternalID: resp.CampaignID,
		Name:       resp.Name,
		Status:     normalizeStatus(resp.CurrentStatus),
		Metadata:   map[string]interface{}{},
	}
	if act := primaryActivity(resp); act != nil {
		c.Metadata["primary_activity_id"] = act.CampaignActivityID
	}
	if t, err := time.Parse(time.RFC3339, resp.UpdatedAt); err == nil && c.Status == domain.StatusSent {
		c.SentAt = &t
	}
	return c
}

func (a *Adapter) toList(resp *contactList) domain.AudienceList {
	return domain.AudienceList{
		ClientID:    a.clientID,
		ExternalID:  resp.ListID,
		Name:        resp.Name,
		MemberCount: resp.MembershipCount,
	}
}
