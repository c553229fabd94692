package jobs

import (
	"context"
	"time"

	"wchic_backend/internal/podio"
	"wchic_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeDone    = "done"
	outcomeCharged = "charged"
	outcomeSkipped = "skipped"
	outcomeRetry   = "retry"
)

var jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sla_jobs_total",
	Help: "SLA jobs processed by type and outcome.",
}, []string{"type", "outcome"})

// Store is the job persistence the runner needs.
type Store interface {
	Claim(ctx context.Context, limit int) ([]Job, error)
	Finish(ctx context.Context, job Job, status string) error
	Retry(ctx context.Context, job Job, runAt time.Time, lastError string) error
	Log(ctx context.Context, jobID int64, message string) error
	Target(ctx context.Context, leadID uuid.UUID) (Target, error)
}

// Messenger delivers charges to franchise phones from the ops number. A nil
// Messenger skips jobs that would charge.
type Messenger interface {
	SendToOps(ctx context.Context, to, text string) error
}

type Runner struct {
	store      Store
	registry   *podio.Registry
	checker    *Checker
	messenger  Messenger
	batchSize  int
	retryDelay time.Duration
	log        *logger.Logger
	now        func() time.Time
}

func NewRunner(store Store, registry *podio.Registry, checker *Checker, messenger Messenger, batchSize int, retryDelay time.Duration, log *logger.Logger) *Runner {
	if batchSize < 1 {
		batchSize = 20
	}
	if retryDelay <= 0 {
		retryDelay = time.Hour
	}
	return &Runner{
		store:      store,
		registry:   registry,
		checker:    checker,
		messenger:  messenger,
		batchSize:  batchSize,
		retryDelay: retryDelay,
		log:        log,
		now:        time.Now,
	}
}

// RunDue claims one batch of due jobs and processes it. It returns how
// many jobs were claimed.
func (r *Runner) RunDue(ctx context.Context) (int, error) {
	jobs, err := r.store.Claim(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	for _, job := range jobs {
		outcome := r.runOne(ctx, job)
		jobsTotal.WithLabelValues(job.Type, outcome).Inc()
	}
	return len(jobs), nil
}

func (r *Runner) runOne(ctx context.Context, job Job) string {
	ctx = logger.ContextWithLeadID(ctx, job.LeadID.String())
	log := r.log.WithContext(ctx).With("job_id", job.ID, "job_type", job.Type)

	target, err := r.store.Target(ctx, job.LeadID)
	if err != nil {
		return r.retry(ctx, job, err)
	}

	switch {
	case target.FranchisePhone == nil || *target.FranchisePhone == "":
		return r.skip(ctx, job, "No franchise phone configured")
	case target.PodioItemIDFranquia == nil:
		return r.skip(ctx, job, "No Podio item id for franchise")
	case target.FranchisePodioAppID == nil:
		return r.skip(ctx, job, "No Podio app for franchise")
	}
	ws, ok := r.registry.ByAppIDString(*target.FranchisePodioAppID)
	if !ok {
		return r.skip(ctx, job, "Unknown Podio app "+*target.FranchisePodioAppID)
	}

	verdict, err := r.checker.Check(ctx, job, ws, *target.PodioItemIDFranquia)
	if err != nil {
		return r.retry(ctx, job, err)
	}

	outcome := outcomeDone
	if verdict.Charge != "" {
		if r.messenger == nil {
			r.logJob(ctx, job, verdict.Log)
			return r.skip(ctx, job, "WhatsApp not configured; charge not sent")
		}
		if err := r.messenger.SendToOps(ctx, *target.FranchisePhone, verdict.Charge); err != nil {
			return r.retry(ctx, job, err)
		}
		outcome = outcomeCharged
	}
	r.logJob(ctx, job, verdict.Log)
	if err := r.store.Finish(ctx, job, StatusDone); err != nil {
		log.Error("job finish failed", "error", err)
	}
	log.Info("job completed", "outcome", outcome)
	return outcome
}

func (r *Runner) skip(ctx context.Context, job Job, reason string) string {
	r.logJob(ctx, job, reason)
	if err := r.store.Finish(ctx, job, StatusSkipped); err != nil {
		r.log.WithContext(ctx).Error("job skip failed", "job_id", job.ID, "error", err)
	}
	r.log.WithContext(ctx).Info("job skipped", "job_id", job.ID, "reason", reason)
	return outcomeSkipped
}

func (r *Runner) retry(ctx context.Context, job Job, cause error) string {
	next := r.now().Add(r.retryDelay)
	r.log.WithContext(ctx).Error("job failed", "job_id", job.ID, "job_type", job.Type, "next_run", next, "error", cause)
	if err := r.store.Retry(ctx, job, next, cause.Error()); err != nil {
		r.log.WithContext(ctx).Error("job retry failed", "job_id", job.ID, "error", err)
	}
	return outcomeRetry
}

func (r *Runner) logJob(ctx context.Context, job Job, message string) {
	if message == "" {
		return
	}
	if err := r.store.Log(ctx, job.ID, message); err != nil {
		r.log.WithContext(ctx).Warn("job log failed", "job_id", job.ID, "error", err)
	}
}
