// Package beehiiv translates the unified platform contract to the beehiiv
// API v2.
//
// Dialect notes: auth is a bearer token and every URL is scoped to a
// publication id taken from the credentials. Posts carry only three wire
// statuses (draft, confirmed, archived); a confirmed post is SCHEDULED while
// its scheduled_at is still in the future and SENT once it has passed. Dates
// are unix timestamps. The email stats block has no bounce counter, so
// bounces are derived as recipients minus delivered. Content updates are
// gated by subscription tier and come back as a 403.
package beehiiv

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
	platformName   = "beehiiv"
	defaultAPIRoot = "https://api.beehiiv.com/v2"
)

// Adapter is a beehiiv API adapter for one client's publication.
type Adapter struct {
	clientID   string
	baseURL    string
	apiKey     string
	pageSize   int
	httpClient httpretry.HTTPDoer

	now func() time.Time
}

// New creates a beehiiv adapter scoped to the publication named in the
// credentials.
func New(clientID string, credentials map[string]string, opts platform.Options) (*Adapter, error) {
	publicationID := credentials["publication_id"]
	if publicationID == "" {
		return nil, platform.NewValidationError("beehiiv credentials require publication_id")
	}
	return &Adapter{
		clientID: clientID,
		baseURL:  defaultAPIRoot + "/publications/" + publicationID,
		apiKey:   credentials["api_key"],
		pageSize: opts.PageSize,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: opts.Timeout,
		}, opts.MaxRetries),
		now: time.Now,
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

// TestConnection reads the publication resource itself.
func (a *Adapter) TestConnection(ctx context.Context) error {
	body, status, err := a.do(ctx, "testConnection", http.MethodGet, "", nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, "testConnection", "publication not found, check publication_id")
	}

	var resp publicationEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return platform.NewPlatformError(platformName, "testConnection", fmt.Sprintf("decoding response: %v", err))
	}
	return nil
}

// GetCampaigns fetches one page of posts. beehiiv pages are 1-based, so the
// offset is translated to a page number.
func (a *Adapter) GetCampaigns(ctx context.Context, page platform.Page) (*platform.CampaignPage, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = a.pageSize
	}
	pageNum := page.Offset/limit + 1

	params := url.Values{}
	params.Set("page", strconv.Itoa(pageNum))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("expand[]", "stats")

	body, _, err := a.do(ctx, "getCampaigns", http.MethodGet, "/posts?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var envelope postPage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaigns", fmt.Sprintf("decoding response: %v", err))
	}

	hasMore := len(envelope.Data) == limit
	if envelope.TotalPages > 0 {
		hasMore = pageNum < envelope.TotalPages
	}

	result := &platform.CampaignPage{
		Campaigns:  make([]domain.Campaign, 0, len(envelope.Data)),
		HasMore:    hasMore,
		NextOffset: page.Offset + len(envelope.Data),
	}
	for i := range envelope.Data {
		result.Campaigns = append(result.Campaigns, a.toCampaign(&envelope.Data[i]))
	}
	return result, nil
}

// GetCampaign fetches one post; (nil, nil) when absent.
func (a *Adapter) GetCampaign(ctx context.Context, externalID string) (*domain.Campaign, error) {
	body, status, err := a.do(ctx, "getCampaign", http.MethodGet, "/posts/"+externalID+"?expand[]=stats", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	var resp postEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaign", fmt.Sprintf("decoding response: %v", err))
	}
	c := a.toCampaign(&resp.Data)
	return &c, nil
}

// CreateCampaign creates a draft post and re-fetches the canonical object.
func (a *Adapter) CreateCampaign(ctx context.Context, input platform.CampaignInput) (*domain.Campaign, error) {
	write := postWrite{
		Title:        input.Name,
		Subtitle:     input.PreviewText,
		EmailSubject: input.Subject,
		BodyContent:  input.HTMLContent,
		Status:       "draft",
	}

	body, _, err := a.do(ctx, "createCampaign", http.MethodPost, "/posts", write)
	if err != nil {
		return nil, err
	}

	var created postEnvelope
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, platform.NewPlatformError(platformName, "createCampaign", fmt.Sprintf("decoding response: %v", err))
	}
	if created.Data.ID == "" {
		return nil, platform.NewPlatformError(platformName, "createCampaign", "vendor returned no id for created post")
	}
	return a.refetch(ctx, "createCampaign", created.Data.ID)
}

// UpdateCampaign patches a post and re-fetches. Content updates are not
// available on every beehiiv plan; the tier gate is surfaced as an
// actionable error instead of the generic classification.
func (a *Adapter) UpdateCampaign(ctx context.Context, externalID string, patch platform.CampaignPatch) (*domain.Campaign, error) {
	write := postWrite{}
	if patch.Name != nil {
		write.Title = *patch.Name
	}
	if patch.PreviewText != nil {
		write.Subtitle = *patch.PreviewText
	}
	if patch.Subject != nil {
		write.EmailSubject = *patch.Subject
	}
	if patch.HTMLContent != nil {
		write.BodyContent = *patch.HTMLContent
	}

	_, status, err := a.do(ctx, "updateCampaign", http.MethodPatch, "/posts/"+externalID, write)
	if err != nil {
		if status == http.StatusForbidden && patch.HTMLContent != nil {
			return nil, platform.NewPlatformError(platformName, "updateCampaign",
				"post content updates require a higher beehiiv subscription tier; upgrade the publication plan or edit the post in the beehiiv dashboard")
		}
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, platform.NewPlatformError(platformName, "updateCampaign",
			fmt.Sprintf("post %s not found", externalID))
	}
	return a.refetch(ctx, "updateCampaign", externalID)
}

// ScheduleCampaign confirms the post with a future scheduled_at.
func (a *Adapter) ScheduleCampaign(ctx context.Context, externalID string, when time.Time) error {
	write := postWrite{Status: "confirmed", ScheduledAt: when.UTC().Unix()}
	_, status, err := a.do(ctx, "scheduleCampaign", http.MethodPatch, "/posts/"+externalID, write)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, "scheduleCampaign",
			fmt.Sprintf("post %s not found", externalID))
	}
	return nil
}

// SendCampaign confirms the post for immediate sending.
func (a *Adapter) SendCampaign(ctx context.Context, externalID string) error {
	write := postWrite{Status: "confirmed"}
	_, status, err := a.do(ctx, "sendCampaign", http.MethodPatch, "/posts/"+externalID, write)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return platform.NewPlatformError(platformName, "sendCampaign",
			fmt.Sprintf("post %s not found", externalID))
	}
	return nil
}

// GetCampaignMetrics reads the post's email stats block.
func (a *Adapter) GetCampaignMetrics(ctx context.Context, externalID string) (*domain.Metrics, error) {
	body, status, err := a.do(ctx, "getCampaignMetrics", http.MethodGet, "/posts/"+externalID+"?expand[]=stats", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, platform.NewPlatformError(platformName, "getCampaignMetrics",
			fmt.Sprintf("post %s not found", externalID))
	}

	var resp postEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewPlatformError(platformName, "getCampaignMetrics", fmt.Sprintf("decoding response: %v", err))
	}

	m := statsToMetrics(resp.Data.Stats.Email)
	return &m, nil
}

func statsToMetrics(s emailStats) domain.Metrics {
	bounces := s.Recipients - s.Delivered
	if bounces < 0 {
		bounces = 0
	}
	m := domain.Metrics{
		Sent:         s.Recipients,
		Delivered:    s.Delivered,
		Opens:        s.Opens,
		UniqueOpens:  s.UniqueOpens,
		Clicks:       s.Clicks,
		UniqueClicks: s.UniqueClicks,
		Bounces:      bounces,
		Unsubscribes: s.Unsubscribes,
		Complaints:   s.SpamReports,
	}
	m.ComputeDerived()
	return m
}

// GetLists fetches all segments, walking 1-based pages until a short page.
func (a *Adapter) GetLists(ctx context.Context) ([]domain.AudienceList, error) {
	var lists []domain.AudienceList

	for pageNum := 1; ; pageNum++ {
		params := url.Values{}
		params.Set("page", strconv.Itoa(pageNum))
		params.Set("limit", strconv.Itoa(a.pageSize))

		body, _, err := a.do(ctx, "getLists", http.MethodGet, "/segments?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}

		var envelope segmentPage
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, platform.NewPlatformError(platformName, "getLists", fmt.Sprintf("decoding response: %v", err))
		}

		for i := range envelope.Data {
			lists = append(lists, a.toList(&envelope.Data[i]))
		}

		if len(envelope.Data) < a.pageSize {
			break
		}
		if envelope.TotalPages > 0 && pageNum >= envelope.TotalPages {
			break
		}
	}
	return lists, nil
}

// GetList fetches one segment; (nil, nil) when absent.
func (a *Adapter) GetList(ctx context.Context, externalID string) (*domain.AudienceList, error) {
	body, status, err := a.do(ctx, "getList", http.MethodGet, "/segments/"+externalID, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}

	var resp struct {
		Data segment `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, platform.NewPlatformError(platformName, "getList", fmt.Sprintf("decoding response: %v", err))
	}
	l := a.toList(&resp.Data)
	return &l, nil
}

func (a *Adapter) refetch(ctx context.Context, operation, externalID string) (*domain.Campaign, error) {
	c, err := a.GetCampaign(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, platform.NewPlatformError(platformName, operation,
			fmt.Sprintf("post %s missing after write", externalID))
	}
	return c, nil
}

// normalizeStatus maps beehiiv's three wire statuses. A confirmed post is
// SCHEDULED while scheduled_at is still ahead of now, SENT otherwise.
func (a *Adapter) normalizeStatus(p *post) domain.CampaignStatus {
	switch p.Status {
	case "draft":
		return domain.StatusDraft
	case "confirmed":
		if p.ScheduledAt > 0 && time.Unix(p.ScheduledAt, 0).After(a.now()) {
			return domain.StatusScheduled
		}
		return domain.StatusSent
	case "archived":
		return domain.StatusArchived
	default:
		return domain.StatusUnknown
	}
}

// denormalizeStatus maps the normalized enumeration back to beehiiv's.
func denormalizeStatus(status domain.CampaignStatus) string {
	switch status {
	case domain.StatusDraft:
		return "draft"
	case domain.StatusScheduled, domain.StatusSending, domain.StatusSent:
		return "confirmed"
	case domain.StatusArchived:
		return "archived"
	default:
		return ""
	}
}

func (a *Adapter) toCampaign(p *post) domain.Campaign {
	c := domain.Campaign{
		ClientID:    a.clientID,
		ExternalID:  p.ID,
		Name:        p.Title,
		Subject:     p.EmailSubject,
		PreviewText: p.Subtitle,
		Status:      a.normalizeStatus(p),
		Metadata: map[string]interface{}{
			"audience":     p.Audience,
			"web_url":      p.WebURL,
			"content_tags": p.ContentTags,
		},
	}
	if c.Subject == "" {
		c.Subject = p.Title
	}
	if p.ScheduledAt > 0 {
		t := time.Unix(p.ScheduledAt, 0).UTC()
		c.ScheduledAt = &t
	}
	if p.PublishDate > 0 {
		t := time.Unix(p.PublishDate, 0).UTC()
		c.SentAt = &t
	}
	c.Metrics = statsToMetrics(p.Stats.Email)
	return c
}

func (a *Adapter) toList(s *segment) domain.AudienceList {
	return domain.AudienceList{
		ClientID:    a.clientID,
		ExternalID:  s.ID,
		Name:        s.Name,
		MemberCount: s.TotalResults,
	}
}
