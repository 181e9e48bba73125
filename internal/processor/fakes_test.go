package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ignite/platform-hub/internal/crypto"
	"github.com/ignite/platform-hub/internal/domain"
	"github.com/ignite/platform-hub/internal/platform"
	"github.com/ignite/platform-hub/internal/repository/postgres"
)

// In-memory store fakes. Each mirrors the matching postgres store's
// contract, including the ErrNotFound sentinel.

type fakeClients struct {
	mu      sync.Mutex
	clients map[string]*domain.Client
}

func newFakeClients(clients ...*domain.Client) *fakeClients {
	f := &fakeClients{clients: map[string]*domain.Client{}}
	for _, c := range clients {
		f.clients[c.ID] = c
	}
	return f
}

func (f *fakeClients) Get(ctx context.Context, id string) (*domain.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[id]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeClients) ListByStatus(ctx context.Context, statuses ...domain.ClientStatus) ([]domain.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Client
	for _, c := range f.clients {
		for _, s := range statuses {
			if c.Status == s {
				out = append(out, *c)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeClients) UpdateStatus(ctx context.Context, id string, status domain.ClientStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[id]
	if !ok {
		return postgres.ErrNotFound
	}
	c.Status = status
	return nil
}

func (f *fakeClients) UpdateSyncStatus(ctx context.Context, id string, status domain.SyncStatus, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[id]
	if !ok {
		return postgres.ErrNotFound
	}
	c.SyncStatus = status
	c.LastSyncAt = &at
	return nil
}

type fakeCredentials struct {
	mu    sync.Mutex
	creds map[string]*domain.Credential
}

func newFakeCredentials() *fakeCredentials {
	return &fakeCredentials{creds: map[string]*domain.Credential{}}
}

func (f *fakeCredentials) put(clientID string, rec *crypto.EncryptedRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creds[clientID] = &domain.Credential{
		ClientID:   clientID,
		Ciphertext: rec.Ciphertext,
		IV:         rec.IV,
		AuthTag:    rec.AuthTag,
	}
}

func (f *fakeCredentials) Get(ctx context.Context, clientID string) (*domain.Credential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.creds[clientID]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCredentials) SetValidity(ctx context.Context, clientID string, valid bool, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.creds[clientID]
	if !ok {
		return postgres.ErrNotFound
	}
	c.Valid = valid
	c.LastVerifiedAt = &at
	return nil
}

type fakeCampaigns struct {
	mu   sync.Mutex
	rows map[string]*domain.Campaign

	upsertErrFor map[string]error
	aggregates   []postgres.IndustryAggregate
	openRate     float64
	bounceRate   float64
	sampleSize   int
}

func newFakeCampaigns() *fakeCampaigns {
	return &fakeCampaigns{rows: map[string]*domain.Campaign{}, upsertErrFor: map[string]error{}}
}

func campaignKey(clientID, externalID string) string {
	return clientID + "/" + externalID
}

func (f *fakeCampaigns) Upsert(ctx context.Context, c *domain.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.upsertErrFor[c.ExternalID]; err != nil {
		return err
	}
	cp := *c
	cp.SyncedAt = time.Now()
	f.rows[campaignKey(c.ClientID, c.ExternalID)] = &cp
	return nil
}

func (f *fakeCampaigns) UpdateMetrics(ctx context.Context, clientID, externalID string, m *domain.Metrics) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[campaignKey(clientID, externalID)]
	if !ok {
		return postgres.ErrNotFound
	}
	row.Metrics = *m
	return nil
}

func (f *fakeCampaigns) ListByClient(ctx context.Context, clientID string, status domain.CampaignStatus) ([]domain.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Campaign
	for _, c := range f.rows {
		if c.ClientID != clientID {
			continue
		}
		if status != "" && c.Status != status {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCampaigns) AggregateByIndustry(ctx context.Context, since time.Time) ([]postgres.IndustryAggregate, error) {
	return f.aggregates, nil
}

func (f *fakeCampaigns) ClientRates(ctx context.Context, clientID string) (float64, float64, int, error) {
	return f.openRate, f.bounceRate, f.sampleSize, nil
}

type fakeLists struct {
	mu   sync.Mutex
	rows map[string]*domain.AudienceList
}

func newFakeLists() *fakeLists {
	return &fakeLists{rows: map[string]*domain.AudienceList{}}
}

func (f *fakeLists) Upsert(ctx context.Context, l *domain.AudienceList) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *l
	f.rows[campaignKey(l.ClientID, l.ExternalID)] = &cp
	return nil
}

type fakeAlerts struct {
	mu     sync.Mutex
	nextID int
	alerts []*domain.Alert
}

func newFakeAlerts() *fakeAlerts { return &fakeAlerts{} }

func (f *fakeAlerts) FindUnresolved(ctx context.Context, clientID string, alertType domain.AlertType, metric string) (*domain.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.alerts {
		if a.ClientID == clientID && a.Type == alertType && a.Metric == metric && a.ResolvedAt == nil {
			cp := *a
			return &cp, nil
		}
	}
	return nil, postgres.ErrNotFound
}

func (f *fakeAlerts) Create(ctx context.Context, a *domain.Alert) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	cp := *a
	cp.ID = fmt.Sprintf("alert-%d", f.nextID)
	cp.CreatedAt = time.Now()
	f.alerts = append(f.alerts, &cp)
	return cp.ID, nil
}

func (f *fakeAlerts) ResolveByClientType(ctx context.Context, clientID string, alertType domain.AlertType) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	n := 0
	for _, a := range f.alerts {
		if a.ClientID == clientID && a.Type == alertType && a.ResolvedAt == nil {
			a.ResolvedAt = &now
			n++
		}
	}
	return n, nil
}

func (f *fakeAlerts) DeleteResolvedOlderThan(ctx context.Context, days int, onlyResolved bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().AddDate(0, 0, -days)
	var kept []*domain.Alert
	deleted := 0
	for _, a := range f.alerts {
		old := a.CreatedAt.Before(cutoff)
		if old && (!onlyResolved || a.ResolvedAt != nil) {
			deleted++
			continue
		}
		kept = append(kept, a)
	}
	f.alerts = kept
	return deleted, nil
}

func (f *fakeAlerts) open(clientID string, alertType domain.AlertType) []*domain.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Alert
	for _, a := range f.alerts {
		if a.ClientID == clientID && a.Type == alertType && a.ResolvedAt == nil {
			out = append(out, a)
		}
	}
	return out
}

type recordedRun struct {
	ID       string
	JobName  string
	Queue    string
	Input    string
	Status   domain.JobRunStatus
	Output   string
	ErrText  string
	Finished bool
}

type fakeJobRuns struct {
	mu   sync.Mutex
	runs []*recordedRun
}

func newFakeJobRuns() *fakeJobRuns { return &fakeJobRuns{} }

func (f *fakeJobRuns) Start(ctx context.Context, jobName, queue, input string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run := &recordedRun{
		ID:      fmt.Sprintf("run-%d", len(f.runs)+1),
		JobName: jobName,
		Queue:   queue,
		Input:   input,
		Status:  domain.JobRunRunning,
	}
	f.runs = append(f.runs, run)
	return run.ID, nil
}

func (f *fakeJobRuns) Finish(ctx context.Context, id string, status domain.JobRunStatus, output, errText string, duration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.runs {
		if r.ID == id {
			r.Status = status
			r.Output = output
			r.ErrText = errText
			r.Finished = true
			return nil
		}
	}
	return postgres.ErrNotFound
}

func (f *fakeJobRuns) DeleteTerminalOlderThan(ctx context.Context, days int) (int, error) {
	return 0, nil
}

func (f *fakeJobRuns) last() *recordedRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.runs) == 0 {
		return nil
	}
	cp := *f.runs[len(f.runs)-1]
	return &cp
}

type fakeBenchmarks struct {
	mu   sync.Mutex
	rows map[string]*domain.Benchmark
}

func newFakeBenchmarks() *fakeBenchmarks {
	return &fakeBenchmarks{rows: map[string]*domain.Benchmark{}}
}

func benchKey(industry, metric, period string) string {
	return industry + "/" + metric + "/" + period
}

func (f *fakeBenchmarks) Upsert(ctx context.Context, b *domain.Benchmark) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *b
	f.rows[benchKey(b.Industry, b.Metric, b.Period)] = &cp
	return nil
}

func (f *fakeBenchmarks) Get(ctx context.Context, industry, metric, period string) (*domain.Benchmark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.rows[benchKey(industry, metric, period)]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

type fakeSessions struct{ deleted int }

func (f *fakeSessions) DeleteExpired(ctx context.Context, maxAgeDays int) (int, error) {
	return f.deleted, nil
}

// fakeAdapter satisfies platform.Adapter with canned pages, metrics, and
// lists; errTestConn fails TestConnection.
type fakeAdapter struct {
	platformName string
	pages        []platform.CampaignPage
	pageCalls    int
	metrics      map[string]*domain.Metrics
	lists        []domain.AudienceList
	errTestConn  error
}

var _ platform.Adapter = (*fakeAdapter)(nil)

func (a *fakeAdapter) Platform() string { return a.platformName }

func (a *fakeAdapter) TestConnection(ctx context.Context) error { return a.errTestConn }

func (a *fakeAdapter) GetCampaigns(ctx context.Context, page platform.Page) (*platform.CampaignPage, error) {
	if a.pageCalls >= len(a.pages) {
		return &platform.CampaignPage{}, nil
	}
	p := a.pages[a.pageCalls]
	a.pageCalls++
	return &p, nil
}

func (a *fakeAdapter) GetCampaign(ctx context.Context, externalID string) (*domain.Campaign, error) {
	return nil, nil
}

func (a *fakeAdapter) CreateCampaign(ctx context.Context, input platform.CampaignInput) (*domain.Campaign, error) {
	return nil, errors.New("not supported")
}

func (a *fakeAdapter) UpdateCampaign(ctx context.Context, externalID string, patch platform.CampaignPatch) (*domain.Campaign, error) {
	return nil, errors.New("not supported")
}

func (a *fakeAdapter) ScheduleCampaign(ctx context.Context, externalID string, when time.Time) error {
	return errors.New("not supported")
}

func (a *fakeAdapter) SendCampaign(ctx context.Context, externalID string) error {
	return errors.New("not supported")
}

func (a *fakeAdapter) GetCampaignMetrics(ctx context.Context, externalID string) (*domain.Metrics, error) {
	m, ok := a.metrics[externalID]
	if !ok {
		return nil, platform.NewPlatformError(a.platformName, "getCampaignMetrics", "campaign not found")
	}
	cp := *m
	return &cp, nil
}

func (a *fakeAdapter) GetLists(ctx context.Context) ([]domain.AudienceList, error) {
	return a.lists, nil
}

func (a *fakeAdapter) GetList(ctx context.Context, externalID string) (*domain.AudienceList, error) {
	return nil, nil
}

type fakeLock struct {
	held     bool
	acquired bool
	released bool
	err      error
}

func (l *fakeLock) Acquire(ctx context.Context) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	if l.held {
		return false, nil
	}
	l.acquired = true
	return true, nil
}

func (l *fakeLock) Release(ctx context.Context) error {
	l.released = true
	return nil
}

type fakeStaleQueue struct {
	requeued  int
	olderThan time.Duration
	err       error
}

func (q *fakeStaleQueue) RequeueStale(ctx context.Context, olderThan time.Duration) (int, error) {
	q.olderThan = olderThan
	if q.err != nil {
		return 0, q.err
	}
	return q.requeued, nil
}
