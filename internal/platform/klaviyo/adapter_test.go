package klaviyo

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
		apiKey:     "pk_test",
		pageSize:   50,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestAuthHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Klaviyo-API-Key pk_test", r.Header.Get("Authorization"))
		assert.Equal(t, apiRevision, r.Header.Get("revision"))
		json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}})
	}))
	defer server.Close()

	assert.NoError(t, newTestAdapter(server).TestConnection(context.Background()))
}

func TestGetCampaignsCursor(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cursor := r.URL.Query().Get("page[cursor]")
		switch cursor {
		case "":
			json.NewEncoder(w).Encode(campaignCollection{
				Data: []resource{{ID: "k1", Attributes: campaignAttributes{Name: "A", Status: "Sent"}}},
				Links: collectionLinks{
					Next: server.URL + "/campaigns/?page%5Bcursor%5D=cur2",
				},
			})
		case "cur2":
			json.NewEncoder(w).Encode(campaignCollection{
				Data: []resource{{ID: "k2", Attributes: campaignAttributes{Name: "B", Status: "Draft"}}},
			})
		default:
			t.Fatalf("unexpected cursor %q", cursor)
		}
	}))
	defer server.Close()

	a := newTestAdapter(server)

	first, err := a.GetCampaigns(context.Background(), platform.Page{})
	require.NoError(t, err)
	assert.True(t, first.HasMore)
	assert.Equal(t, "cur2", first.NextCursor)

	second, err := a.GetCampaigns(context.Background(), platform.Page{Cursor: "cur2"})
	require.NoError(t, err)
	assert.False(t, second.HasMore)
}

func TestGetCampaignsStuckCursorTerminates(t *testing.T) {
	// Vendor always claims more with the same cursor
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(campaignCollection{
			Data:  []resource{{ID: "k1", Attributes: campaignAttributes{Status: "Sent"}}},
			Links: collectionLinks{Next: server.URL + "/campaigns/?page%5Bcursor%5D=stuck"},
		})
	}))
	defer server.Close()

	a := newTestAdapter(server)

	page, err := a.GetCampaigns(context.Background(), platform.Page{Cursor: "stuck"})
	require.NoError(t, err)
	assert.False(t, page.HasMore, "non-advancing cursor must end the loop")
	assert.Empty(t, page.NextCursor)
}

func TestNormalizeStatusTotal(t *testing.T) {
	cases := map[string]domain.CampaignStatus{
		"Draft":                     domain.StatusDraft,
		"Queued without Recipients": domain.StatusDraft,
		"Scheduled":                 domain.StatusScheduled,
		"Sending":                   domain.StatusSending,
		"Sent":                      domain.StatusSent,
		"Cancelled":                 domain.StatusCancelled,
		"Something New":             domain.StatusUnknown,
		"":                          domain.StatusUnknown,
	}
	for vendor, want := range cases {
		assert.Equal(t, want, normalizeStatus(vendor), vendor)
	}
}

func TestArchivedFlagOverridesStatus(t *testing.T) {
	a := &Adapter{clientID: "client-1"}
	c := a.toCampaign(&resource{
		ID:         "k1",
		Attributes: campaignAttributes{Status: "Sent", Archived: true},
	})
	assert.Equal(t, domain.StatusArchived, c.Status)
	assert.Equal(t, "Sent", c.Metadata["vendor_status"])
}

func TestGetCampaignMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/campaign-values-reports/", r.URL.Path)

		var req writeEnvelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "campaign-values-report", req.Data.Type)

		json.NewEncoder(w).Encode(valuesReport{
			Data: valuesReportData{
				Attributes: valuesReportAttributes{
					Results: []valuesResult{{
						Statistics: valuesStatistics{
							Recipients:   2000,
							Delivered:    1940,
							Opens:        800,
							OpensUnique:  650,
							Bounced:      60,
							Unsubscribes: 10,
						},
					}},
				},
			},
		})
	}))
	defer server.Close()

	m, err := newTestAdapter(server).GetCampaignMetrics(context.Background(), "k1")
	require.NoError(t, err)
	assert.Equal(t, 2000, m.Sent)
	assert.Equal(t, 1940, m.Delivered)
	assert.InDelta(t, 0.4, m.OpenRate, 1e-9)
	assert.InDelta(t, 0.03, m.BounceRate, 1e-9)
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

func TestGetListsFollowsCursors(t *testing.T) {
	var server *httptest.Server
	pages := 0
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		env := listCollection{
			Data: []listResource{{ID: "l1", Attributes: listAttributes{Name: "Main", ProfileCount: 1200}}},
		}
		if pages == 1 {
			env.Links.Next = server.URL + "/lists/?page%5Bcursor%5D=c2"
		}
		json.NewEncoder(w).Encode(env)
	}))
	defer server.Close()

	lists, err := newTestAdapter(server).GetLists(context.Background())
	require.NoError(t, err)
	assert.Len(t, lists, 2)
	assert.Equal(t, 1200, lists[0].MemberCount)
}
