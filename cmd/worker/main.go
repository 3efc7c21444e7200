package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/lifelink/donor-api/internal/config"
	"github.com/lifelink/donor-api/internal/email"
	"github.com/lifelink/donor-api/internal/repository/postgres"
	auditService "github.com/lifelink/donor-api/internal/service/audit"
	"github.com/lifelink/donor-api/internal/worker"
	"github.com/lifelink/donor-api/pkg/logger"
	"github.com/lifelink/donor-api/pkg/messaging"
	redisbroker "github.com/lifelink/donor-api/pkg/messaging/redis"
	"github.com/lifelink/donor-api/pkg/metrics"
)

// EnvOverrides are worker knobs that may be tuned per deployment
// without touching the config file.
type EnvOverrides struct {
	BatchSize     int `envconfig:"QUEUE_BATCH_SIZE" default:"0"`
	Concurrency   int `envconfig:"QUEUE_CONCURRENCY" default:"0"`
	RatePerSecond int `envconfig:"QUEUE_RATE_PER_SECOND" default:"0"`
}

func main() {
	processQueueOnce := flag.Bool("process-queue-once", false, "drain one queue batch, print the processed count, and exit")
	reminderSweepOnce := flag.Bool("reminder-sweep-once", false, "run one reminder sweep, print the sent count, and exit")
	sweepDate := flag.String("date", "", "sweep 'today' as YYYY-MM-DD (default: current date)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	var env EnvOverrides
	if err := envconfig.Process("", &env); err != nil {
		log.Fatal().Err(err).Msg("failed to read environment overrides")
	}
	if env.BatchSize > 0 {
		cfg.Queue.BatchSize = env.BatchSize
	}
	if env.Concurrency > 0 {
		cfg.Queue.Concurrency = env.Concurrency
	}
	if env.RatePerSecond > 0 {
		cfg.Queue.RatePerSecond = env.RatePerSecond
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		broker, err = redisbroker.NewRedisBroker(redisbroker.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, appLogger.Zerolog())
		if err != nil {
			appLogger.Fatal(err, "failed to connect to Redis")
		}
		defer broker.Close()
	}

	baseRepo := postgres.NewBaseRepository(db)
	queueRepo := postgres.NewEmailQueueRepository(baseRepo)
	donorRepo := postgres.NewDonorRepository(baseRepo)
	auditRepo := postgres.NewAuditRepository(baseRepo)
	auditSvc := auditService.NewService(auditRepo)

	providers, err := email.BuildProviders(cfg.Email)
	if err != nil {
		appLogger.Fatal(err, "failed to build email providers")
	}
	appMetrics := metrics.New("donor_worker")
	deliveryRouter := email.NewRouter(providers, appLogger, appMetrics)

	processor := worker.NewQueueProcessor(queueRepo, deliveryRouter, broker, auditSvc,
		worker.QueueProcessorConfig{
			BatchSize:     cfg.Queue.BatchSize,
			PollInterval:  cfg.Queue.PollInterval(),
			Concurrency:   cfg.Queue.Concurrency,
			RatePerSecond: cfg.Queue.RatePerSecond,
			ClaimGrace:    cfg.Queue.ClaimGrace(),
		}, appLogger, appMetrics)

	scheduler := worker.NewReminderScheduler(donorRepo, deliveryRouter, broker, auditSvc,
		worker.ReminderSchedulerConfig{
			Window:        cfg.Reminder.Window(),
			SweepInterval: cfg.Reminder.SweepInterval(),
		}, appLogger, appMetrics)

	// One-shot modes for external schedulers. Individual job failures
	// never affect the exit code; only setup faults do.
	if *processQueueOnce {
		count, err := processor.RunOnce(context.Background())
		if err != nil {
			appLogger.Error(err, "queue run failed")
			os.Exit(1)
		}
		fmt.Printf("processed %d jobs\n", count)
		return
	}
	if *reminderSweepOnce {
		today := time.Now()
		if *sweepDate != "" {
			today, err = time.Parse("2006-01-02", *sweepDate)
			if err != nil {
				appLogger.Fatal(err, "invalid -date value")
			}
		}
		count, err := scheduler.RunOnce(context.Background(), today)
		if err != nil {
			appLogger.Error(err, "reminder sweep failed")
			os.Exit(1)
		}
		fmt.Printf("sent %d reminders\n", count)
		return
	}

	setupHealthCheck(appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("shutting down worker")
		cancel()
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		scheduler.Start(ctx)
	}()
	wg.Wait()
}

func setupHealthCheck(logger *logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			logger.Error(err, "health check server failed")
			os.Exit(1)
		}
	}()
}
