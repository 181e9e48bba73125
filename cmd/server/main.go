package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/platform-hub/internal/api"
	"github.com/ignite/platform-hub/internal/config"
	"github.com/ignite/platform-hub/internal/crypto"
	"github.com/ignite/platform-hub/internal/jobs"
	"github.com/ignite/platform-hub/internal/pkg/distlock"
	"github.com/ignite/platform-hub/internal/pkg/logger"
	"github.com/ignite/platform-hub/internal/processor"
	"github.com/ignite/platform-hub/internal/repository/postgres"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	db, err := postgres.Open(cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	cipher, err := crypto.NewCipher(cfg.Encryption.Key)
	if err != nil {
		log.Fatalf("init credential cipher: %v", err)
	}

	stores := processor.Stores{
		Clients:     postgres.NewClientStore(db),
		Credentials: postgres.NewCredentialStore(db),
		Campaigns:   postgres.NewCampaignStore(db),
		Lists:       postgres.NewListStore(db),
		Alerts:      postgres.NewAlertStore(db),
		JobRuns:     postgres.NewJobRunStore(db),
		Benchmarks:  postgres.NewBenchmarkStore(db),
		Sessions:    postgres.NewSessionStore(db),
	}

	queue := jobs.NewQueue(db)

	options := []processor.Option{
		processor.WithStaleJobSweep(queue, cfg.Queues.StaleJobAge()),
	}
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		lockTTL := 10 * time.Minute
		options = append(options, processor.WithClientLock(func(clientID string) processor.Locker {
			return distlock.ForClientSync(rdb, clientID, lockTTL)
		}, lockTTL))
		logger.Info("per-client sync locking enabled", "redis_addr", cfg.Redis.Addr)
	}

	proc := processor.New(stores, cipher, cfg.Platforms, cfg.Analytics, cfg.Cleanup, options...)

	policy := jobs.DefaultRetryPolicy(cfg.Queues.MaxAttempts)
	poll := cfg.Queues.PollInterval()
	pools := processor.Pools{
		Sync:         jobs.NewPool(queue, jobs.QueueSync, cfg.Queues.SyncWorkers, poll, policy),
		Verification: jobs.NewPool(queue, jobs.QueueVerification, cfg.Queues.VerificationWorkers, poll, policy),
		Analytics:    jobs.NewPool(queue, jobs.QueueAnalytics, cfg.Queues.AnalyticsWorkers, poll, policy),
		Maintenance:  jobs.NewPool(queue, jobs.QueueMaintenance, cfg.Queues.MaintenanceWorkers, poll, policy),
	}
	proc.Register(pools)

	for _, pool := range []*jobs.Pool{pools.Sync, pools.Verification, pools.Analytics, pools.Maintenance} {
		if err := pool.Start(); err != nil {
			log.Fatalf("start worker pool: %v", err)
		}
	}

	var scheduler *jobs.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler = jobs.NewScheduler(db, queue, cfg.Scheduler.TickInterval(), cfg.Queues.MaxAttempts)
		if err := registerSchedules(scheduler, cfg.Scheduler); err != nil {
			log.Fatalf("register schedules: %v", err)
		}
		if err := scheduler.Start(); err != nil {
			log.Fatalf("start scheduler: %v", err)
		}
	}

	handlers := api.NewHandlers(postgres.NewClientStore(db), postgres.NewJobRunStore(db),
		postgres.NewAlertStore(db), queue, cfg.Queues.MaxAttempts)
	router := api.SetupRoutes(handlers)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err.Error())
	}

	if scheduler != nil {
		scheduler.Stop()
	}
	for _, pool := range []*jobs.Pool{pools.Sync, pools.Verification, pools.Analytics, pools.Maintenance} {
		pool.Stop()
	}

	logger.Info("shutdown complete")
}

// registerSchedules upserts the recurring jobs. Registration is idempotent,
// so every boot reasserts the schedule set without resetting next-run times.
func registerSchedules(s *jobs.Scheduler, cfg config.SchedulerConfig) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	schedules := []jobs.Schedule{
		{Name: "sync-all-campaigns", Queue: jobs.QueueSync, JobName: processor.JobSyncAllCampaigns,
			Payload: "{}", Interval: time.Duration(cfg.SyncIntervalMinutes) * time.Minute},
		{Name: "verify-all-credentials", Queue: jobs.QueueVerification, JobName: processor.JobVerifyAll,
			Payload: "{}", Interval: time.Duration(cfg.VerifyIntervalMinutes) * time.Minute},
		{Name: "calculate-benchmarks", Queue: jobs.QueueAnalytics, JobName: processor.JobBenchmarks,
			Payload: `{"period":"monthly"}`, Interval: time.Duration(cfg.BenchmarkIntervalHours) * time.Hour},
		{Name: "detect-anomalies", Queue: jobs.QueueAnalytics, JobName: processor.JobAnomalies,
			Payload: "{}", Interval: time.Duration(cfg.AnomalyIntervalHours) * time.Hour},
		{Name: "cleanup-old-records", Queue: jobs.QueueMaintenance, JobName: processor.JobCleanup,
			Payload: `{"olderThanDays":0,"onlyResolved":true}`, Interval: time.Duration(cfg.CleanupIntervalHours) * time.Hour},
	}

	for _, sched := range schedules {
		if err := s.Register(ctx, sched); err != nil {
			return fmt.Errorf("register %s: %w", sched.Name, err)
		}
	}
	return nil
}
