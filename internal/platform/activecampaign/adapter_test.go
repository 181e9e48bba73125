package activecampaign

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
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
		apiToken:   "ac-token",
		pageSize:   20,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestNewDerivesAccountBaseURL(t *testing.T) {
	a, err := New("client-1", map[string]string{
		"api_key":      "tok",
		"account_name": "acmecorp",
	}, platform.Options{}.WithDefaults())
	require.NoError(t, err)
	assert.Equal(t, "https://acmecorp.api-us1.com/api/3", a.baseURL)
}

func TestGetCampaignsParsesStringTotal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ac-token", r.Header.Get("Api-Token"))
		json.NewEncoder(w).Encode(campaignListEnvelope{
			Campaigns: []campaignRecord{
				{ID: "1", Name: "Spring promo", Status: "5", SendAmt: "1200"},
				{ID: "2", Name: "Draft promo", Status: "0"},
			},
			Meta: listMeta{Total: "45"},
		})
	}))
	defer server.Close()

	page, err := newTestAdapter(server).GetCampaigns(context.Background(), platform.Page{Offset: 0, Limit: 2})
	require.NoError(t, err)

	assert.True(t, page.HasMore)
	assert.Equal(t, 2, page.NextOffset)
	assert.Equal(t, domain.StatusSent, page.Campaigns[0].Status)
	assert.Equal(t, domain.StatusDraft, page.Campaigns[1].Status)
	assert.Equal(t, 1200, page.Campaigns[0].Metrics.Sent)
}

func TestNormalizeStatusNumericCodes(t *testing.T) {
	cases := map[string]domain.CampaignStatus{
		"0":  domain.StatusDraft,
		"1":  domain.StatusScheduled,
		"2":  domain.StatusSending,
		"3":  domain.StatusCancelled,
		"4":  domain.StatusCancelled,
		"5":  domain.StatusSent,
		"6":  domain.StatusUnknown,
		"":   domain.StatusUnknown,
		"99": domain.StatusUnknown,
	}
	for code, want := range cases {
		assert.Equal(t, want, normalizeStatus(code), "code %q", code)
	}
}

func TestGetCampaignMetricsParsesStringCounters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(campaignSingleEnvelope{
			Campaign: campaignRecord{
				ID:               "1",
				Status:           "5",
				SendAmt:          "1000",
				Opens:            "410",
				UniqueOpens:      "380",
				LinkClicks:       "120",
				UniqueLinkClicks: "95",
				HardBounces:      "12",
				SoftBounces:      "8",
				Unsubscribes:     "6",
				SpamComplaints:   "1",
			},
		})
	}))
	defer server.Close()

	m, err := newTestAdapter(server).GetCampaignMetrics(context.Background(), "1")
	require.NoError(t, err)

	assert.Equal(t, 1000, m.Sent)
	assert.Equal(t, 20, m.Bounces)
	assert.Equal(t, 980, m.Delivered)
	assert.InDelta(t, 0.41, m.OpenRate, 1e-9)
	assert.InDelta(t, 0.02, m.BounceRate, 1e-9)
}

func TestGetListsStopsOnShortPage(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		env := listListEnvelope{}
		if offset == 0 {
			for i := 0; i < 20; i++ {
				env.Lists = append(env.Lists, listRecord{ID: strconv.Itoa(i), Name: "L", SubscriberCount: "10"})
			}
		} else {
			env.Lists = []listRecord{{ID: "final", Name: "Last", SubscriberCount: "3"}}
		}
		json.NewEncoder(w).Encode(env)
	}))
	defer server.Close()

	lists, err := newTestAdapter(server).GetLists(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Len(t, lists, 21)
}

func TestScheduleCampaign(t *testing.T) {
	when := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var req campaignWrite
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "1", req.Campaign.Status)
		assert.Equal(t, "2026-10-01 09:30:00", req.Campaign.SDate)
		w.Write([]byte(`{"campaign":{"id":"1"}}`))
	}))
	defer server.Close()

	assert.NoError(t, newTestAdapter(server).ScheduleCampaign(context.Background(), "1", when))
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

func TestDenormalizeStatusRoundTrip(t *testing.T) {
	for _, s := range []domain.CampaignStatus{
		domain.StatusDraft, domain.StatusScheduled, domain.StatusSending,
		domain.StatusCancelled, domain.StatusSent,
	} {
		assert.Equal(t, s, normalizeStatus(denormalizeStatus(s)), s)
	}
}
