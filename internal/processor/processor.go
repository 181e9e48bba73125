// Package processor holds the business logic behind each queued job: mirror
// sync, credential verification, analytics, and maintenance. Every processor
// entry point wraps its work in a job-run audit record and re-throws
// failures so the queue's retry policy still applies.
package processor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ignite/platform-hub/internal/config"
	"github.com/ignite/platform-hub/internal/crypto"
	"github.com/ignite/platform-hub/internal/domain"
	"github.com/ignite/platform-hub/internal/pkg/logger"
	"github.com/ignite/platform-hub/internal/platform"
	"github.com/ignite/platform-hub/internal/platform/factory"
	"github.com/ignite/platform-hub/internal/repository/postgres"
)

// Store interfaces are satisfied by the postgres repositories; processors
// depend on them so tests can substitute fakes.

type ClientStore interface {
	Get(ctx context.Context, id string) (*domain.Client, error)
	ListByStatus(ctx context.Context, statuses ...domain.ClientStatus) ([]domain.Client, error)
	UpdateStatus(ctx context.Context, id string, status domain.ClientStatus) error
	UpdateSyncStatus(ctx context.Context, id string, status domain.SyncStatus, at time.Time) error
}

type CredentialStore interface {
	Get(ctx context.Context, clientID string) (*domain.Credential, error)
	SetValidity(ctx context.Context, clientID string, valid bool, at time.Time) error
}

type CampaignStore interface {
	Upsert(ctx context.Context, c *domain.Campaign) error
	UpdateMetrics(ctx context.Context, clientID, externalID string, m *domain.Metrics) error
	ListByClient(ctx context.Context, clientID string, status domain.CampaignStatus) ([]domain.Campaign, error)
	AggregateByIndustry(ctx context.Context, since time.Time) ([]postgres.IndustryAggregate, error)
	ClientRates(ctx context.Context, clientID string) (openRate, bounceRate float64, sampleSize int, err error)
}

type ListStore interface {
	Upsert(ctx context.Context, l *domain.AudienceList) error
}

type AlertStore interface {
	FindUnresolved(ctx context.Context, clientID string, alertType domain.AlertType, metric string) (*domain.Alert, error)
	Create(ctx context.Context, a *domain.Alert) (string, error)
	ResolveByClientType(ctx context.Context, clientID string, alertType domain.AlertType) (int, error)
	DeleteResolvedOlderThan(ctx context.Context, days int, onlyResolved bool) (int, error)
}

type JobRunStore interface {
	Start(ctx context.Context, jobName, queue, input string) (string, error)
	Finish(ctx context.Context, id string, status domain.JobRunStatus, output, errText string, duration time.Duration) error
	DeleteTerminalOlderThan(ctx context.Context, days int) (int, error)
}

type BenchmarkStore interface {
	Upsert(ctx context.Context, b *domain.Benchmark) error
	Get(ctx context.Context, industry, metric, period string) (*domain.Benchmark, error)
}

type SessionStore interface {
	DeleteExpired(ctx context.Context, maxAgeDays int) (int, error)
}

// Locker is a best-effort mutual exclusion handle, held for the duration of
// one client's sync.
type Locker interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// StaleJobQueue releases queue claims abandoned by crashed workers.
type StaleJobQueue interface {
	RequeueStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// AdapterFactory builds a vendor adapter from decrypted credentials.
type AdapterFactory func(name, clientID string, credentials map[string]string, opts platform.Options) (platform.Adapter, error)

// Stores bundles the persistence handles a Processor needs.
type Stores struct {
	Clients     ClientStore
	Credentials CredentialStore
	Campaigns   CampaignStore
	Lists       ListStore
	Alerts      AlertStore
	JobRuns     JobRunStore
	Benchmarks  BenchmarkStore
	Sessions    SessionStore
}

// Processor executes queued jobs against the mirror.
type Processor struct {
	stores Stores
	cipher *crypto.Cipher

	newAdapter  AdapterFactory
	adapterOpts platform.Options

	// lockForClient is optional; nil disables cross-process sync locking.
	lockForClient func(clientID string) Locker
	lockTTL       time.Duration

	// staleQueue is optional; nil disables the cleanup job's stale-claim
	// sweep.
	staleQueue StaleJobQueue
	staleAfter time.Duration

	analytics config.AnalyticsConfig
	cleanup   config.CleanupConfig
	pageLimit int
	maxPages  int
}

// Option customizes a Processor.
type Option func(*Processor)

// WithAdapterFactory replaces the vendor adapter constructor.
func WithAdapterFactory(f AdapterFactory) Option {
	return func(p *Processor) { p.newAdapter = f }
}

// WithClientLock enables best-effort per-client sync locking.
func WithClientLock(lockFor func(clientID string) Locker, ttl time.Duration) Option {
	return func(p *Processor) {
		p.lockForClient = lockFor
		p.lockTTL = ttl
	}
}

// WithStaleJobSweep makes the cleanup job release queue claims that have
// been RUNNING longer than olderThan.
func WithStaleJobSweep(queue StaleJobQueue, olderThan time.Duration) Option {
	return func(p *Processor) {
		p.staleQueue = queue
		p.staleAfter = olderThan
	}
}

// New creates a Processor.
func New(stores Stores, cipher *crypto.Cipher, platforms config.PlatformsConfig,
	analytics config.AnalyticsConfig, cleanup config.CleanupConfig, options ...Option) *Processor {

	p := &Processor{
		stores:     stores,
		cipher:     cipher,
		newAdapter: factory.New,
		adapterOpts: platform.Options{
			Timeout:    platforms.Timeout(),
			MaxRetries: platforms.MaxRetries,
			PageSize:   platforms.PageSize,
		}.WithDefaults(),
		analytics: analytics,
		cleanup:   cleanup,
		pageLimit: platforms.PageSize,
		maxPages:  100,
	}
	if p.pageLimit <= 0 {
		p.pageLimit = 50
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// runWrapped records one job-run audit row around fn. The row starts
// RUNNING before any work and is finalized with duration and, on failure,
// the error text. fn's error is returned unchanged so the queue retries it.
func (p *Processor) runWrapped(ctx context.Context, jobName, queue, input string, fn func(ctx context.Context) (string, error)) error {
	runID, err := p.stores.JobRuns.Start(ctx, jobName, queue, input)
	if err != nil {
		return err
	}

	started := time.Now()
	output, fnErr := fn(ctx)
	duration := time.Since(started)

	status := domain.JobRunCompleted
	errText := ""
	if fnErr != nil {
		status = domain.JobRunFailed
		errText = fnErr.Error()
	}
	if finishErr := p.stores.JobRuns.Finish(ctx, runID, status, output, errText, duration); finishErr != nil {
		logger.Error("job run finalize failed", "run_id", runID, "job", jobName, "error", finishErr.Error())
	}
	return fnErr
}

// buildAdapter loads and decrypts the client's credentials and constructs
// the vendor adapter. The decrypted bag never leaves this call chain.
func (p *Processor) buildAdapter(ctx context.Context, client *domain.Client) (platform.Adapter, error) {
	cred, err := p.stores.Credentials.Get(ctx, client.ID)
	if err != nil {
		return nil, err
	}

	plain, err := p.cipher.Decrypt(&crypto.EncryptedRecord{
		Ciphertext: cred.Ciphertext,
		IV:         cred.IV,
		AuthTag:    cred.AuthTag,
	})
	if err != nil {
		return nil, err
	}

	return p.newAdapter(client.Platform, client.ID, plain, p.adapterOpts)
}

// raiseAlert creates an alert unless an unresolved one with the same
// (client, type, metric) already exists. Reports whether a new alert was
// created.
func (p *Processor) raiseAlert(ctx context.Context, a *domain.Alert) (bool, error) {
	existing, err := p.stores.Alerts.FindUnresolved(ctx, a.ClientID, a.Type, a.Metric)
	if err != nil && err != postgres.ErrNotFound {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	if _, err := p.stores.Alerts.Create(ctx, a); err != nil {
		return false, err
	}
	return true, nil
}

func mustJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
