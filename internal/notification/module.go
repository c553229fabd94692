// Package notification reacts to lead and Podio domain events: it schedules
// the Podio sync and SLA jobs of located leads and raises ops alerts.
package notification

import (
	"context"
	"time"

	"wchic_backend/internal/alert"
	"wchic_backend/internal/events"
	"wchic_backend/internal/podiosync"
	"wchic_backend/platform/logger"

	"github.com/google/uuid"
)

// SyncEnqueuer hands a lead sync to the background worker.
type SyncEnqueuer interface {
	EnqueueLeadSync(ctx context.Context, leadID uuid.UUID, reason string) error
}

// LeadSyncer runs a sync in-process when the worker queue is unavailable.
type LeadSyncer interface {
	SyncLead(ctx context.Context, leadID uuid.UUID) (podiosync.Result, error)
}

// JobScheduler plans the SLA jobs of a lead.
type JobScheduler interface {
	ScheduleLeadJobs(ctx context.Context, leadID uuid.UUID) error
}

type Alerter interface {
	Send(ctx context.Context, kind, message string, details map[string]any) error
}

type Deps struct {
	Queue     SyncEnqueuer
	Syncer    LeadSyncer
	Jobs      JobScheduler
	Alerts    Alerter
	SyncDelay time.Duration
	Log       *logger.Logger
}

type Module struct {
	queue     SyncEnqueuer
	syncer    LeadSyncer
	jobs      JobScheduler
	alerts    Alerter
	syncDelay time.Duration
	log       *logger.Logger
}

func New(deps Deps) *Module {
	return &Module{
		queue:     deps.Queue,
		syncer:    deps.Syncer,
		jobs:      deps.Jobs,
		alerts:    deps.Alerts,
		syncDelay: deps.SyncDelay,
		log:       deps.Log,
	}
}

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadLocated{}.EventName(), m)
	bus.Subscribe(events.LeadNotRouted{}.EventName(), m)
	bus.Subscribe(events.PodioSyncFailed{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadLocated:
		return m.handleLeadLocated(ctx, e)
	case events.LeadNotRouted:
		return m.handleLeadNotRouted(ctx, e)
	case events.PodioSyncFailed:
		return m.handlePodioSyncFailed(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleLeadLocated(ctx context.Context, e events.LeadLocated) error {
	ctx = logger.ContextWithLeadID(ctx, e.LeadID.String())
	log := m.log.WithContext(ctx)

	if m.jobs != nil {
		if err := m.jobs.ScheduleLeadJobs(ctx, e.LeadID); err != nil {
			log.Error("schedule lead jobs failed", "error", err)
		}
	}

	if m.queue != nil {
		err := m.queue.EnqueueLeadSync(ctx, e.LeadID, e.Source)
		if err == nil {
			log.Info("podio sync enqueued", "source", e.Source)
			return nil
		}
		log.Warn("podio sync enqueue failed, running inline", "error", err)
	}
	return m.syncInline(ctx, e)
}

// syncInline waits for the routing trigger, then syncs in this goroutine.
func (m *Module) syncInline(ctx context.Context, e events.LeadLocated) error {
	if m.syncer == nil {
		return nil
	}
	if m.syncDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.syncDelay):
		}
	}

	res, err := m.syncer.SyncLead(ctx, e.LeadID)
	if err != nil {
		return m.handlePodioSyncFailed(ctx, events.PodioSyncFailed{LeadID: e.LeadID, Error: err.Error()})
	}
	m.log.WithContext(ctx).Info("podio sync finished", "source", e.Source, "action", res.Action, "skip", res.Reason)
	return nil
}

func (m *Module) handleLeadNotRouted(ctx context.Context, e events.LeadNotRouted) error {
	return m.alert(ctx, alert.LeadNotRouted, "Lead sem franquia para a cidade informada", map[string]any{
		"lead_id": e.LeadID.String(),
		"cidade":  e.Cidade,
		"estado":  e.Estado,
	})
}

func (m *Module) handlePodioSyncFailed(ctx context.Context, e events.PodioSyncFailed) error {
	return m.alert(ctx, alert.PodioSyncError, "Podio sync falhou", map[string]any{
		"lead_id": e.LeadID.String(),
		"error":   e.Error,
	})
}

func (m *Module) alert(ctx context.Context, kind, message string, details map[string]any) error {
	if m.alerts == nil {
		m.log.WithContext(ctx).Warn("alert dropped, no channels", "kind", kind, "message", message)
		return nil
	}
	if err := m.alerts.Send(ctx, kind, message, details); err != nil {
		m.log.WithContext(ctx).Error("alert delivery failed", "kind", kind, "error", err)
	}
	return nil
}
