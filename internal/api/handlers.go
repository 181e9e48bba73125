// Package api exposes the ops HTTP surface: health, job-run and alert
// inspection, manual sync triggers, and the platform capability listing.
// Handlers stay a thin layer over the stores and queue; business logic
// lives in the processors.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/platform-hub/internal/domain"
	"github.com/ignite/platform-hub/internal/jobs"
	"github.com/ignite/platform-hub/internal/platform/factory"
	"github.com/ignite/platform-hub/internal/processor"
	"github.com/ignite/platform-hub/internal/repository/postgres"
)

const defaultListLimit = 100

// ClientGetter loads one client row.
type ClientGetter interface {
	Get(ctx context.Context, id string) (*domain.Client, error)
}

// JobRunLister lists recent job-run audit records.
type JobRunLister interface {
	List(ctx context.Context, limit int) ([]domain.JobRun, error)
}

// AlertStore lists and resolves operator alerts.
type AlertStore interface {
	List(ctx context.Context, limit int) ([]domain.Alert, error)
	Resolve(ctx context.Context, id string) error
}

// Enqueuer pushes a job onto a named queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, queue, name, payload string, maxAttempts int) (string, error)
}

// Handlers holds the HTTP handlers and their collaborators.
type Handlers struct {
	clients     ClientGetter
	jobRuns     JobRunLister
	alerts      AlertStore
	queue       Enqueuer
	maxAttempts int
	startedAt   time.Time
}

// NewHandlers creates the handler set.
func NewHandlers(clients ClientGetter, jobRuns JobRunLister, alerts AlertStore, queue Enqueuer, maxAttempts int) *Handlers {
	return &Handlers{
		clients:     clients,
		jobRuns:     jobRuns,
		alerts:      alerts,
		queue:       queue,
		maxAttempts: maxAttempts,
		startedAt:   time.Now(),
	}
}

// HealthCheck reports liveness and uptime.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// ListJobRuns returns recent job-run records, newest first.
func (h *Handlers) ListJobRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.jobRuns.List(r.Context(), limitParam(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list job runs: "+err.Error())
		return
	}
	if runs == nil {
		runs = []domain.JobRun{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"jobRuns": runs})
}

// ListAlerts returns alerts, open ones first.
func (h *Handlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.alerts.List(r.Context(), limitParam(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list alerts: "+err.Error())
		return
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"alerts": alerts})
}

// ResolveAlert closes one alert by id.
func (h *Handlers) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.alerts.Resolve(r.Context(), id); err != nil {
		if err == postgres.ErrNotFound {
			respondError(w, http.StatusNotFound, "alert not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "resolve alert: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "resolved", "id": id})
}

// TriggerClientSync enqueues a campaign sync for one client.
func (h *Handlers) TriggerClientSync(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "id")
	if _, err := h.clients.Get(r.Context(), clientID); err != nil {
		if err == postgres.ErrNotFound {
			respondError(w, http.StatusNotFound, "client not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "load client: "+err.Error())
		return
	}

	payload, _ := json.Marshal(map[string]string{"clientId": clientID})
	jobID, err := h.queue.Enqueue(r.Context(), jobs.QueueSync, processor.JobSyncCampaigns, string(payload), h.maxAttempts)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "enqueue sync: "+err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID, "clientId": clientID})
}

// PlatformInfo is one row of the capability listing.
type PlatformInfo struct {
	Name             string   `json:"name"`
	Implemented      bool     `json:"implemented"`
	RequiredCredKeys []string `json:"requiredCredentialFields"`
}

// ListPlatforms returns every known platform with its implementation state
// and required credential fields.
func (h *Handlers) ListPlatforms(w http.ResponseWriter, r *http.Request) {
	names := factory.SupportedPlatforms()
	out := make([]PlatformInfo, 0, len(names))
	for _, name := range names {
		out = append(out, PlatformInfo{
			Name:             name,
			Implemented:      factory.IsImplemented(name),
			RequiredCredKeys: factory.RequiredCredentialFields(name),
		})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"platforms": out})
}

func limitParam(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultListLimit
	}
	return n
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
