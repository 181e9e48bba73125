package mailchimp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ignite/platform-hub/internal/domain"
	"github.com/ignite/platform-hub/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(server *httptest.Server) *Adapter {
	return &Adapter{
		clientID:   "client-1",
		baseURL:    server.URL,
		apiKey:     "test-key-us21",
		pageSize:   100,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestNewDerivesDatacenter(t *testing.T) {
	a, err := New("client-1", map[string]string{"api_key": "abc123-us21"}, platform.Options{}.WithDefaults())
	require.NoError(t, err)
	assert.Equal(t, "https://us21.api.mailchimp.com/3.0", a.baseURL)
}

func TestNewRejectsKeyWithoutDatacenter(t *testing.T) {
	_, err := New("client-1", map[string]string{"api_key": "nodc"}, platform.Options{}.WithDefaults())
	var ve *platform.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestTestConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ping", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "anystring", user)
		assert.Equal(t, "test-key-us21", pass)
		json.NewEncoder(w).Encode(map[string]string{"health_status": "Everything's Chimpy!"})
	}))
	defer server.Close()

	assert.NoError(t, newTestAdapter(server).TestConnection(context.Background()))
}

func TestGetCampaignsPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/campaigns", r.URL.Path)
		assert.Equal(t, "40", r.URL.Query().Get("offset"))
		assert.Equal(t, "20", r.URL.Query().Get("count"))

		resp := campaignListResponse{TotalItems: 100}
		for i := 0; i < 20; i++ {
			resp.Campaigns = append(resp.Campaigns, campaignResponse{
				ID:     "c1",
				Status: "sent",
				Settings: campaignSettings{
					SubjectLine: "Hello",
					Title:       "March newsletter",
				},
			})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	page, err := newTestAdapter(server).GetCampaigns(context.Background(), platform.Page{Offset: 40, Limit: 20})
	require.NoError(t, err)

	assert.Len(t, page.Campaigns, 20)
	assert.True(t, page.HasMore)
	assert.Equal(t, 60, page.NextOffset)
	assert.Equal(t, domain.StatusSent, page.Campaigns[0].Status)
	assert.Equal(t, "March newsletter", page.Campaigns[0].Name)
}

func TestGetCampaignsLastPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(campaignListResponse{
			Campaigns:  []campaignResponse{{ID: "c9", Status: "save"}},
			TotalItems: 91,
		})
	}))
	defer server.Close()

	page, err := newTestAdapter(server).GetCampaigns(context.Background(), platform.Page{Offset: 90, Limit: 20})
	require.NoError(t, err)
	assert.False(t, page.HasMore)
}

func TestGetCampaignAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c, err := newTestAdapter(server).GetCampaign(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestGetCampaignRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestAdapter(server).GetCampaign(context.Background(), "c1")
	var rle *platform.RateLimitError
	require.ErrorAs(t, err, &rle)
	assert.Equal(t, 30, rle.RetryAfter)
}

func TestCreateCampaignRefetchesCanonical(t *testing.T) {
	var createdContent bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/campaigns":
			// Vendor returns a partial object on create
			json.NewEncoder(w).Encode(campaignResponse{ID: "new-1", Status: "save"})
		case r.Method == http.MethodPut && r.URL.Path == "/campaigns/new-1/content":
			createdContent = true
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{}`))
		case r.Method == http.MethodGet && r.URL.Path == "/campaigns/new-1":
			json.NewEncoder(w).Encode(campaignResponse{
				ID:     "new-1",
				Status: "save",
				Settings: campaignSettings{
					SubjectLine: "Welcome",
					Title:       "Onboarding",
				},
			})
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	c, err := newTestAdapter(server).CreateCampaign(context.Background(), platform.CampaignInput{
		Name:        "Onboarding",
		Subject:     "Welcome",
		HTMLContent: "<p>hi</p>",
	})
	require.NoError(t, err)
	assert.True(t, createdContent)
	assert.Equal(t, "new-1", c.ExternalID)
	assert.Equal(t, "Welcome", c.Subject)
	assert.Equal(t, domain.StatusDraft, c.Status)
}

func TestCreateCampaignMissingAfterWrite(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(campaignResponse{ID: "ghost"})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestAdapter(server).CreateCampaign(context.Background(), platform.CampaignInput{Name: "x"})
	var pe *platform.PlatformError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Message, "missing after write")
}

func TestScheduleCampaign(t *testing.T) {
	when := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/campaigns/c1/actions/schedule", r.URL.Path)
		var req scheduleRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2026-09-15T10:00:00Z", req.ScheduleTime)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	assert.NoError(t, newTestAdapter(server).ScheduleCampaign(context.Background(), "c1", when))
}

func TestGetCampaignMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reports/c1", r.URL.Path)
		json.NewEncoder(w).Encode(reportResponse{
			EmailsSent:   1000,
			Opens:        reportOpens{OpensTotal: 400, UniqueOpens: 300},
			Clicks:       reportClicks{ClicksTotal: 90, UniqueClicks: 70},
			Bounces:      reportBounces{HardBounces: 25, SoftBounces: 15},
			Unsubscribed: 5,
			AbuseReports: 1,
		})
	}))
	defer server.Close()

	m, err := newTestAdapter(server).GetCampaignMetrics(context.Background(), "c1")
	require.NoError(t, err)

	assert.Equal(t, 1000, m.Sent)
	assert.Equal(t, 960, m.Delivered) // derived: sent - bounces
	assert.Equal(t, 40, m.Bounces)
	assert.InDelta(t, 0.4, m.OpenRate, 1e-9)
	assert.InDelta(t, 0.04, m.BounceRate, 1e-9)
}

func TestGetLists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(listsEnvelope{
			Lists: []listResponse{{
				ID:   "l1",
				Name: "Newsletter",
				Stats: listStats{
					MemberCount:      5000,
					UnsubscribeCount: 120,
					CleanedCount:     30,
					OpenRate:         42.5,
				},
			}},
			TotalItems: 1,
		})
	}))
	defer server.Close()

	lists, err := newTestAdapter(server).GetLists(context.Background())
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, "l1", lists[0].ExternalID)
	assert.Equal(t, 5000, lists[0].MemberCount)
	assert.InDelta(t, 0.425, lists[0].AvgOpenRate, 1e-9)
}

func TestNormalizeStatusTotal(t *testing.T) {
	known := map[string]domain.CampaignStatus{
		"save":     domain.StatusDraft,
		"paused":   domain.StatusDraft,
		"schedule": domain.StatusScheduled,
		"sending":  domain.StatusSending,
		"sent":     domain.StatusSent,
		"canceled": domain.StatusCancelled,
		"archived": domain.StatusArchived,
	}
	for vendor, want := range known {
		assert.Equal(t, want, normalizeStatus(vendor), vendor)
	}
	assert.Equal(t, domain.StatusUnknown, normalizeStatus("variate"))
	assert.Equal(t, domain.StatusUnknown, normalizeStatus(""))
}

func TestDenormalizeStatusRoundTrip(t *testing.T) {
	for _, s := range []domain.CampaignStatus{
		domain.StatusDraft, domain.StatusScheduled, domain.StatusSending,
		domain.StatusSent, domain.StatusCancelled, domain.StatusArchived,
	} {
		assert.Equal(t, s, normalizeStatus(denormalizeStatus(s)), s)
	}
	assert.Equal(t, "", denormalizeStatus(domain.StatusUnknown))
}
