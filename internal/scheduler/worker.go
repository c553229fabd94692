package scheduler

import (
	"context"
	"fmt"

	"wchic_backend/internal/events"
	"wchic_backend/internal/podiosync"
	"wchic_backend/internal/statussync"
	"wchic_backend/platform/config"
	"wchic_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// LeadSyncer runs the Podio dual write for one lead.
type LeadSyncer interface {
	SyncLead(ctx context.Context, leadID uuid.UUID) (podiosync.Result, error)
}

// HookReconciler applies one inbound Podio item event.
type HookReconciler interface {
	Reconcile(ctx context.Context, hook statussync.InboundHook) string
}

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	syncer     LeadSyncer
	reconciler HookReconciler
	bus        events.Bus
	log        *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, syncer LeadSyncer, reconciler HookReconciler, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(syncer, reconciler, bus, log)
	w.server = server
	return w, nil
}

func newWorker(syncer LeadSyncer, reconciler HookReconciler, bus events.Bus, log *logger.Logger) *Worker {
	w := &Worker{
		mux:        asynq.NewServeMux(),
		syncer:     syncer,
		reconciler: reconciler,
		bus:        bus,
		log:        log,
	}
	w.mux.HandleFunc(TaskPodioSyncLead, w.handlePodioSyncLead)
	w.mux.HandleFunc(TaskPodioHookReconcile, w.handlePodioHookReconcile)
	return w
}

// Run processes tasks until ctx is cancelled, then drains in-flight tasks.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start asynq server: %w", err)
	}
	w.log.Info("scheduler worker started")

	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info("scheduler worker stopped")
	return nil
}

func (w *Worker) handlePodioSyncLead(ctx context.Context, task *asynq.Task) error {
	payload, err := ParsePodioSyncLeadPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	ctx = logger.ContextWithLeadID(ctx, leadID.String())
	res, err := w.syncer.SyncLead(ctx, leadID)
	if podiosync.IsLeadNotFound(err) {
		w.log.WithContext(ctx).Warn("podio sync skipped, lead gone")
		return nil
	}
	if err != nil {
		w.log.WithContext(ctx).Error("podio sync failed", "reason", payload.Reason, "error", err)
		if w.bus != nil && isLastAttempt(ctx) {
			w.bus.Publish(ctx, events.PodioSyncFailed{
				BaseEvent: events.NewBaseEvent(),
				LeadID:    leadID,
				Error:     err.Error(),
			})
		}
		return err
	}

	w.log.WithContext(ctx).Info("podio sync finished", "reason", payload.Reason, "action", res.Action, "skip", res.Reason)
	return nil
}

func (w *Worker) handlePodioHookReconcile(ctx context.Context, task *asynq.Task) error {
	hook, err := ParsePodioHookReconcilePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	outcome := w.reconciler.Reconcile(ctx, hook)
	w.log.Debug("podio hook reconciled", "item_id", hook.ItemID, "outcome", outcome)
	return nil
}

// isLastAttempt reports whether asynq will not retry the task again. Outside
// a worker context there is no retry to wait for.
func isLastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= maxRetry
}
