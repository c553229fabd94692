package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wchic_backend/internal/alert"
	"wchic_backend/internal/email"
	"wchic_backend/internal/events"
	"wchic_backend/internal/jobs"
	"wchic_backend/internal/notification"
	"wchic_backend/internal/podio"
	"wchic_backend/internal/podiosync"
	"wchic_backend/internal/scheduler"
	"wchic_backend/internal/statussync"
	"wchic_backend/internal/whatsapp"
	"wchic_backend/platform/config"
	"wchic_backend/platform/db"
	"wchic_backend/platform/logger"
	"wchic_backend/platform/retry"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if dsn := cfg.GetSentryDSN(); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Environment: cfg.Env}); err != nil {
			log.Error("failed to initialize sentry", "error", err)
		} else {
			defer alert.Flush(2 * time.Second)
		}
	}

	var pool *pgxpool.Pool
	if err := retry.Do(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	registry, err := podio.LoadRegistry()
	if err != nil {
		panic("failed to load podio mappings: " + err.Error())
	}
	if err := registry.CheckAppIDs(cfg.GetPodioApps()); err != nil {
		panic(err.Error())
	}
	podioClient := podio.NewClient(cfg, log)

	eventBus := events.NewInMemoryBus(log)

	whatsappClient := whatsapp.NewClient(cfg, log)
	var opsMessenger alert.OpsMessenger
	if whatsappClient != nil {
		opsMessenger = whatsappClient
	}
	var mailer alert.Mailer
	if sender := email.NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUser(), cfg.GetSMTPPass()); sender != nil {
		mailer = sender
	}
	alerts := alert.FromConfig(cfg, opsMessenger, mailer, sentry.CurrentHub(), log)

	podioSync := podiosync.NewModule(pool, registry, podioClient, log).Service()
	statusSync, err := statussync.NewModule(pool, registry, podioClient, nil, log)
	if err != nil {
		panic("failed to initialize status sync: " + err.Error())
	}

	jobsRepo := jobs.NewRepository(pool)

	// Sync failures published by the worker become ops alerts here.
	notification.New(notification.Deps{
		Syncer:    podioSync,
		Jobs:      jobs.NewScheduler(jobsRepo, log),
		Alerts:    alerts,
		SyncDelay: cfg.GetPodioSyncDelay(),
		Log:       log,
	}).RegisterHandlers(eventBus)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.GetRedisURL() != "" {
		worker, err := scheduler.NewWorker(cfg, podioSync, statusSync.Service(), eventBus, log)
		if err != nil {
			log.Error("failed to initialize scheduler worker", "error", err)
			panic("failed to initialize scheduler worker: " + err.Error())
		}
		g.Go(func() error { return worker.Run(gctx) })
	} else {
		log.Warn("REDIS_URL not configured; task worker disabled")
	}

	var chargeMessenger jobs.Messenger
	if whatsappClient != nil {
		chargeMessenger = whatsappClient
	}
	if poller := initPoller(cfg, jobsRepo, registry, podioClient, chargeMessenger, log); poller != nil {
		g.Go(func() error { return poller.Run(gctx) })
	}

	if err := g.Wait(); err != nil {
		log.Error("scheduler stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("scheduler stopped")
}

// initPoller returns nil when Podio is disabled, since every SLA check reads
// the franchise item.
func initPoller(cfg config.JobsConfig, repo *jobs.Repository, registry *podio.Registry, client *podio.Client, messenger jobs.Messenger, log *logger.Logger) *jobs.Poller {
	if client == nil {
		log.Warn("podio not configured; SLA jobs disabled")
		return nil
	}

	mapper, err := statussync.NewMapper(registry)
	if err != nil {
		panic("failed to build status mapper: " + err.Error())
	}

	if messenger == nil {
		log.Warn("whatsapp not configured; SLA charges will be skipped")
	}
	runner := jobs.NewRunner(repo, registry, jobs.NewChecker(client, mapper), messenger, cfg.GetJobsBatchSize(), cfg.GetJobsRetryDelay(), log)
	return jobs.NewPoller(runner, repo, cfg.GetJobsPollInterval(), log)
}
