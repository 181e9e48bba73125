package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/platform-hub/internal/domain"
	"github.com/ignite/platform-hub/internal/repository/postgres"
)

type fakeClients struct {
	clients map[string]*domain.Client
}

func (f *fakeClients) Get(ctx context.Context, id string) (*domain.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	return c, nil
}

type fakeJobRuns struct {
	runs      []domain.JobRun
	lastLimit int
}

func (f *fakeJobRuns) List(ctx context.Context, limit int) ([]domain.JobRun, error) {
	f.lastLimit = limit
	return f.runs, nil
}

type fakeAlerts struct {
	alerts   []domain.Alert
	resolved []string
}

func (f *fakeAlerts) List(ctx context.Context, limit int) ([]domain.Alert, error) {
	return f.alerts, nil
}

func (f *fakeAlerts) Resolve(ctx context.Context, id string) error {
	for _, a := range f.alerts {
		if a.ID == id {
			f.resolved = append(f.resolved, id)
			return nil
		}
	}
	return postgres.ErrNotFound
}

type enqueued struct {
	Queue   string
	Name    string
	Payload string
}

type fakeQueue struct {
	jobs []enqueued
}

func (f *fakeQueue) Enqueue(ctx context.Context, queue, name, payload string, maxAttempts int) (string, error) {
	f.jobs = append(f.jobs, enqueued{Queue: queue, Name: name, Payload: payload})
	return "job-1", nil
}

func newTestServer(clients *fakeClients, jobRuns *fakeJobRuns, alerts *fakeAlerts, queue *fakeQueue) *httptest.Server {
	h := NewHandlers(clients, jobRuns, alerts, queue, 3)
	return httptest.NewServer(SetupRoutes(h))
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(&fakeClients{}, &fakeJobRuns{}, &fakeAlerts{}, &fakeQueue{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestListJobRuns(t *testing.T) {
	jobRuns := &fakeJobRuns{runs: []domain.JobRun{
		{ID: "run-1", JobName: "sync:campaigns", Queue: "sync", Status: domain.JobRunCompleted, StartedAt: time.Now()},
	}}
	srv := newTestServer(&fakeClients{}, jobRuns, &fakeAlerts{}, &fakeQueue{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/job-runs?limit=25")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 25, jobRuns.lastLimit)

	var body struct {
		JobRuns []domain.JobRun `json:"jobRuns"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.JobRuns, 1)
	assert.Equal(t, "sync:campaigns", body.JobRuns[0].JobName)
}

func TestListJobRunsDefaultsBadLimit(t *testing.T) {
	jobRuns := &fakeJobRuns{}
	srv := newTestServer(&fakeClients{}, jobRuns, &fakeAlerts{}, &fakeQueue{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/job-runs?limit=banana")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, defaultListLimit, jobRuns.lastLimit)
}

func TestResolveAlert(t *testing.T) {
	alerts := &fakeAlerts{alerts: []domain.Alert{{ID: "alert-1", ClientID: "c-1"}}}
	srv := newTestServer(&fakeClients{}, &fakeJobRuns{}, alerts, &fakeQueue{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/alerts/alert-1/resolve", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"alert-1"}, alerts.resolved)

	resp, err = http.Post(srv.URL+"/api/alerts/missing/resolve", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTriggerClientSync(t *testing.T) {
	clients := &fakeClients{clients: map[string]*domain.Client{
		"c-1": {ID: "c-1", Platform: "mailchimp", Status: domain.ClientActive},
	}}
	queue := &fakeQueue{}
	srv := newTestServer(clients, &fakeJobRuns{}, &fakeAlerts{}, queue)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/clients/c-1/sync", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "sync", queue.jobs[0].Queue)
	assert.Equal(t, "sync:campaigns", queue.jobs[0].Name)
	assert.JSONEq(t, `{"clientId":"c-1"}`, queue.jobs[0].Payload)
}

func TestTriggerClientSyncUnknownClient(t *testing.T) {
	queue := &fakeQueue{}
	srv := newTestServer(&fakeClients{}, &fakeJobRuns{}, &fakeAlerts{}, queue)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/clients/ghost/sync", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, queue.jobs)
}

func TestListPlatforms(t *testing.T) {
	srv := newTestServer(&fakeClients{}, &fakeJobRuns{}, &fakeAlerts{}, &fakeQueue{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/platforms")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Platforms []PlatformInfo `json:"platforms"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Platforms, 10)

	byName := map[string]PlatformInfo{}
	for _, p := range body.Platforms {
		byName[p.Name] = p
	}
	assert.True(t, byName["mailchimp"].Implemented)
	assert.False(t, byName["hubspot"].Implemented)
	assert.Equal(t, []string{"api_key", "publication_id"}, byName["beehiiv"].RequiredCredKeys)
}
