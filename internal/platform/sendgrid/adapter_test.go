package sendgrid

import (
	"context"
	"encoding/json"
	"fmt"
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
		apiKey:     "SG.test-key",
		pageSize:   50,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestGetCampaignsCursorPagination(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer SG.test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "/marketing/singlesends", r.URL.Path)

		token := r.URL.Query().Get("page_token")
		switch token {
		case "":
			json.NewEncoder(w).Encode(singleSendPage{
				Result: []singleSend{{ID: "s1", Name: "One", Status: "draft"}},
				Metadata: pageMetadata{
					Next: server.URL + "/marketing/singlesends?page_token=tok2",
				},
			})
		case "tok2":
			json.NewEncoder(w).Encode(singleSendPage{
				Result: []singleSend{{ID: "s2", Name: "Two", Status: "triggered"}},
			})
		default:
			t.Fatalf("unexpected token %q", token)
		}
	}))
	defer server.Close()

	a := newTestAdapter(server)

	first, err := a.GetCampaigns(context.Background(), platform.Page{})
	require.NoError(t, err)
	assert.True(t, first.HasMore)
	assert.Equal(t, "tok2", first.NextCursor)

	second, err := a.GetCampaigns(context.Background(), platform.Page{Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.False(t, second.HasMore)
	assert.Empty(t, second.NextCursor)
	assert.Equal(t, domain.StatusSent, second.Campaigns[0].Status)
}

func TestExtractPageTokenTerminates(t *testing.T) {
	assert.Empty(t, extractPageToken(""))
	assert.Empty(t, extractPageToken("https://api.sendgrid.com/v3/marketing/singlesends"))
	assert.Empty(t, extractPageToken("://bad"))
	assert.Equal(t, "abc", extractPageToken("https://api.sendgrid.com/v3/marketing/singlesends?page_token=abc"))
}

func TestGetListsBoundedUnderLyingVendor(t *testing.T) {
	// Vendor always claims another page with the same token; the loop must
	// still terminate.
	var server *httptest.Server
	var calls int
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(contactListPage{
			Result:   []contactList{{ID: fmt.Sprintf("l%d", calls), Name: "L"}},
			Metadata: pageMetadata{Next: server.URL + "/marketing/lists?page_token=same"},
		})
	}))
	defer server.Close()

	lists, err := newTestAdapter(server).GetLists(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "identical cursor must stop the loop")
	assert.Len(t, lists, 2)
}

func TestSendCampaignSchedulesNow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/marketing/singlesends/s1/schedule", r.URL.Path)
		var req scheduleWrite
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "now", req.SendAt)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	assert.NoError(t, newTestAdapter(server).SendCampaign(context.Background(), "s1"))
}

func TestUpdateCampaignRefetches(t *testing.T) {
	subject := "New subject"
	gets := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			gets++
			s := singleSend{ID: "s1", Name: "N", Status: "draft"}
			if gets > 1 {
				s.EmailConfig.Subject = subject
			}
			json.NewEncoder(w).Encode(s)
		case http.MethodPatch:
			// Partial response on write
			w.WriteHeader(http.StatusAccepted)
			w.Write([]byte(`{"id":"s1"}`))
		}
	}))
	defer server.Close()

	c, err := newTestAdapter(server).UpdateCampaign(context.Background(), "s1", platform.CampaignPatch{Subject: &subject})
	require.NoError(t, err)
	assert.Equal(t, 2, gets)
	assert.Equal(t, subject, c.Subject)
}

func TestGetCampaignMetricsDerivesSent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(singleSendStats{
			Results: []statsResult{{
				ID: "s1",
				Stats: statsBlock{
					Delivered:    950,
					Opens:        300,
					UniqueOpens:  250,
					Bounces:      50,
					Unsubscribes: 4,
					SpamReports:  1,
				},
			}},
		})
	}))
	defer server.Close()

	m, err := newTestAdapter(server).GetCampaignMetrics(context.Background(), "s1")
	require.NoError(t, err)

	assert.Equal(t, 1000, m.Sent) // delivered + bounces
	assert.Equal(t, 950, m.Delivered)
	assert.InDelta(t, 0.3, m.OpenRate, 1e-9)
}

func TestGetCampaignMetricsZeroSent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(singleSendStats{})
	}))
	defer server.Close()

	m, err := newTestAdapter(server).GetCampaignMetrics(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 0, m.Sent)
	assert.Equal(t, 0.0, m.OpenRate)
	assert.Equal(t, 0.0, m.BounceRate)
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

func TestNormalizeStatusTotal(t *testing.T) {
	assert.Equal(t, domain.StatusDraft, normalizeStatus("draft"))
	assert.Equal(t, domain.StatusScheduled, normalizeStatus("scheduled"))
	assert.Equal(t, domain.StatusSent, normalizeStatus("triggered"))
	assert.Equal(t, domain.StatusUnknown, normalizeStatus("weird"))
	assert.Equal(t, domain.StatusUnknown, normalizeStatus(""))
}

func TestDenormalizeStatus(t *testing.T) {
	assert.Equal(t, "triggered", denormalizeStatus(domain.StatusSent))
	assert.Equal(t, "", denormalizeStatus(domain.StatusArchived))
}
