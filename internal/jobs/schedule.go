package jobs

import (
	"context"
	"errors"
	"time"

	"wchic_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	day = 24 * time.Hour
)

type scheduleStore interface {
	LeadTimes(ctx context.Context, leadID uuid.UUID) (LeadTimes, error)
	Schedule(ctx context.Context, leadID uuid.UUID, jobType string, runAt time.Time) error
}

// Scheduler plans the SLA jobs of a lead.
type Scheduler struct {
	store scheduleStore
	log   *logger.Logger
}

func NewScheduler(store scheduleStore, log *logger.Logger) *Scheduler {
	return &Scheduler{store: store, log: log}
}

// ScheduleLeadJobs plans SLA_24H one day after creation, SLA_7D a week
// before the event and POST_EVENTO one day after it ends. The event start
// stands in for a missing end date. Calling it again moves pending jobs.
func (s *Scheduler) ScheduleLeadJobs(ctx context.Context, leadID uuid.UUID) error {
	times, err := s.store.LeadTimes(ctx, leadID)
	if errors.Is(err, ErrLeadNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	plan := map[string]time.Time{TypeSLA24h: times.CreatedAt.Add(day)}
	if times.EventStart != nil {
		plan[TypeSLA7d] = times.EventStart.Add(-7 * day)
	}
	end := times.EventEnd
	if end == nil {
		end = times.EventStart
	}
	if end != nil {
		plan[TypePostEvento] = end.Add(day)
	}

	for _, t := range []string{TypeSLA24h, TypeSLA7d, TypePostEvento} {
		runAt, ok := plan[t]
		if !ok {
			continue
		}
		if err := s.store.Schedule(ctx, leadID, t, runAt); err != nil {
			return err
		}
	}
	s.log.WithContext(ctx).Info("lead jobs scheduled", "lead_id", leadID, "jobs", len(plan))
	return nil
}
