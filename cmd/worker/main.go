// Worker-only process: pulls from the same durable queues as cmd/server but
// serves no HTTP. Run extra copies to scale sync throughput horizontally;
// FOR UPDATE SKIP LOCKED claims keep concurrent processes from double-running
// a job.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

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
	logger.Info("worker pools started",
		"sync", cfg.Queues.SyncWorkers,
		"verification", cfg.Queues.VerificationWorkers,
		"analytics", cfg.Queues.AnalyticsWorkers,
		"maintenance", cfg.Queues.MaintenanceWorkers)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("draining worker pools")
	for _, pool := range []*jobs.Pool{pools.Sync, pools.Verification, pools.Analytics, pools.Maintenance} {
		pool.Stop()
	}
	logger.Info("shutdown complete")
}
