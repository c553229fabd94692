package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wchic_backend/internal/adapters"
	"wchic_backend/internal/adapters/storage"
	"wchic_backend/internal/alert"
	"wchic_backend/internal/auth"
	"wchic_backend/internal/dashboard"
	"wchic_backend/internal/email"
	"wchic_backend/internal/events"
	"wchic_backend/internal/franchises"
	apphttp "wchic_backend/internal/http"
	"wchic_backend/internal/http/router"
	"wchic_backend/internal/ibge"
	"wchic_backend/internal/jobs"
	"wchic_backend/internal/leads"
	"wchic_backend/internal/notification"
	"wchic_backend/internal/podio"
	"wchic_backend/internal/podioapps"
	"wchic_backend/internal/podiosync"
	"wchic_backend/internal/qualification"
	"wchic_backend/internal/scheduler"
	"wchic_backend/internal/statussync"
	"wchic_backend/internal/whatsapp"
	"wchic_backend/migrations"
	"wchic_backend/platform/cache"
	"wchic_backend/platform/config"
	"wchic_backend/platform/db"
	"wchic_backend/platform/logger"
	"wchic_backend/platform/retry"
	"wchic_backend/platform/validator"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if dsn := cfg.GetSentryDSN(); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: dsn, Environment: cfg.Env}); err != nil {
			log.Error("failed to initialize sentry", "error", err)
		} else {
			defer alert.Flush(2 * time.Second)
		}
	}

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := retry.Do(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	rdb, err := cache.NewRedis(ctx, cfg)
	if err != nil {
		log.Warn("redis unavailable; message dedupe and task queue disabled", "error", err)
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	registry, err := podio.LoadRegistry()
	if err != nil {
		panic("failed to load podio mappings: " + err.Error())
	}
	if err := registry.CheckAppIDs(cfg.GetPodioApps()); err != nil {
		panic(err.Error())
	}
	podioClient := podio.NewClient(cfg, log)
	if podioClient == nil {
		log.Warn("PODIO_CLIENT_ID/PODIO_CLIENT_SECRET not configured; podio sync disabled")
	}

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

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

	queue, closeQueue := initQueue(cfg, rdb != nil, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	franchisesModule := franchises.NewModule(pool, adapters.NewPodioWorkspaces(registry), val, log)
	leadsModule := leads.NewModule(pool, adapters.NewFranchiseRouter(franchisesModule.Service()), eventBus, val, log)
	podioSyncModule := podiosync.NewModule(pool, registry, podioClient, log)

	var reconcileQueue statussync.ReconcileEnqueuer
	var syncQueue notification.SyncEnqueuer
	if queue != nil {
		reconcileQueue = queue
		syncQueue = queue
	}
	statusSyncModule, err := statussync.NewModule(pool, registry, podioClient, reconcileQueue, log)
	if err != nil {
		panic("failed to initialize status sync: " + err.Error())
	}

	completer, err := qualification.NewCompleter(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize llm provider; qualification disabled", "error", err)
		completer = nil
	}
	qualifier := qualification.NewService(qualification.Deps{
		Store:     leadsModule.Repository(),
		Completer: completer,
		Locator:   ibge.NewClient(log),
		Sender:    whatsappClient,
		Bus:       eventBus,
		Alerts:    alerts,
		Log:       log,
	})

	whatsappModule := whatsapp.NewModule(whatsapp.HandlerDeps{
		AppSecret:    cfg.GetWhatsAppAppSecret(),
		VerifyTokens: cfg.GetWhatsAppVerifyTokens(),
		Dedupe:       whatsapp.NewDeduper(rdb),
		Leads:        leadsModule.Service(),
		Qualifier:    qualifier,
		Alerts:       alerts,
		Log:          log,
	})

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(notification.Deps{
		Queue:     syncQueue,
		Syncer:    podioSyncModule.Service(),
		Jobs:      jobs.NewScheduler(jobs.NewRepository(pool), log),
		Alerts:    alerts,
		SyncDelay: cfg.GetPodioSyncDelay(),
		Log:       log,
	})
	notificationModule.RegisterHandlers(eventBus)

	podioAppsModule := podioapps.NewModule(initPodioApps(cfg, podioClient, registry, log), cfg.GetPodioWebhookURL())

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: pool,
		Modules: []apphttp.Module{
			auth.NewModule(cfg, val, log),
			leadsModule,
			franchisesModule,
			podioSyncModule,
			statusSyncModule,
			whatsappModule,
			dashboard.NewModule(pool, cfg, log),
			podioAppsModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initQueue(cfg config.SchedulerConfig, redisUp bool, log *logger.Logger) (*scheduler.Client, func()) {
	if !redisUp {
		log.Warn("REDIS_URL not configured or unreachable; podio sync runs inline")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task queue client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

// initPodioApps returns nil when Podio is disabled, which makes the admin
// Podio routes answer 503.
func initPodioApps(cfg config.MinIOConfig, client *podio.Client, registry *podio.Registry, log *logger.Logger) *podioapps.Service {
	if client == nil {
		return nil
	}

	var store storage.StorageService
	if cfg.IsMinIOEnabled() {
		minioSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service; app export disabled", "error", err)
		} else {
			store = minioSvc
			log.Info("storage service initialized", "bucket", cfg.GetMinioBucketPodioApps())
		}
	}

	return podioapps.NewService(client, store, cfg.GetMinioBucketPodioApps(), registry, log)
}
