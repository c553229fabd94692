package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Job types.
const (
	TypeSLA24h     = "SLA_24H"
	TypeSLA7d      = "SLA_7D"
	TypePostEvento = "POST_EVENTO"
)

// Job statuses.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusSkipped = "skipped"
)

var ErrLeadNotFound = errors.New("lead not found")

type Job struct {
	ID         int64
	Type       string
	LeadID     uuid.UUID
	Attempts   int
	RunAt      time.Time
	ClaimToken uuid.UUID
}

// Target is the franchise side of a lead, which the SLA checks inspect.
type Target struct {
	LeadID              uuid.UUID
	FranchisePhone      *string
	PodioItemIDFranquia *int64
	FranchisePodioAppID *string
}

// LeadTimes are the anchors job run times are computed from.
type LeadTimes struct {
	CreatedAt  time.Time
	EventStart *time.Time
	EventEnd   *time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Claim moves up to limit due jobs to running under a fresh claim token.
// Concurrent pollers skip rows another poller has locked.
func (r *Repository) Claim(ctx context.Context, limit int) ([]Job, error) {
	token := uuid.New()

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `WITH due AS (
		SELECT id
		FROM jobs
		WHERE status = 'pending' AND run_at <= NOW()
		ORDER BY run_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	)
	UPDATE jobs j
	SET status = 'running', claim_token = $2, claimed_at = NOW(), updated_at = NOW()
	FROM due
	WHERE j.id = due.id
	RETURNING j.id, j.type, j.lead_id, j.attempts, j.run_at`, limit, token)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claimed []Job
	for rows.Next() {
		j := Job{ClaimToken: token}
		if err := rows.Scan(&j.ID, &j.Type, &j.LeadID, &j.Attempts, &j.RunAt); err != nil {
			return nil, err
		}
		claimed = append(claimed, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return claimed, nil
}

// Finish closes a claimed job. Rows claimed by another token are left alone.
func (r *Repository) Finish(ctx context.Context, job Job, status string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = $3, last_error = NULL, claim_token = NULL, updated_at = NOW()
		WHERE id = $1 AND claim_token = $2
	`, job.ID, job.ClaimToken, status)
	return err
}

// Retry returns a claimed job to pending at runAt and counts the attempt.
func (r *Repository) Retry(ctx context.Context, job Job, runAt time.Time, lastError string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'pending', attempts = attempts + 1, run_at = $3, last_error = $4,
			claim_token = NULL, updated_at = NOW()
		WHERE id = $1 AND claim_token = $2
	`, job.ID, job.ClaimToken, runAt, lastError)
	return err
}

// ReleaseStale returns jobs stuck in running, e.g. after a crash, to pending.
func (r *Repository) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET status = 'pending', claim_token = NULL, updated_at = NOW()
		WHERE status = 'running' AND claimed_at < NOW() - make_interval(secs => $1)
	`, olderThan.Seconds())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) Log(ctx context.Context, jobID int64, message string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO job_logs (job_id, message) VALUES ($1, $2)`, jobID, message)
	return err
}

func (r *Repository) Target(ctx context.Context, leadID uuid.UUID) (Target, error) {
	t := Target{LeadID: leadID}
	err := r.pool.QueryRow(ctx, `
		SELECT f.whatsapp_phone, l.podio_item_id_franquia, f.podio_app_id
		FROM leads l
		LEFT JOIN franchises f ON f.id = l.franchise_id
		WHERE l.id = $1
	`, leadID).Scan(&t.FranchisePhone, &t.PodioItemIDFranquia, &t.FranchisePodioAppID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Target{}, ErrLeadNotFound
	}
	return t, err
}

func (r *Repository) LeadTimes(ctx context.Context, leadID uuid.UUID) (LeadTimes, error) {
	var t LeadTimes
	err := r.pool.QueryRow(ctx, `
		SELECT l.created_at, e.event_start_date, e.event_end_date
		FROM leads l
		LEFT JOIN lead_events e ON e.lead_id = l.id
		WHERE l.id = $1
	`, leadID).Scan(&t.CreatedAt, &t.EventStart, &t.EventEnd)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeadTimes{}, ErrLeadNotFound
	}
	return t, err
}

// Schedule inserts a job or moves a still-pending one to runAt.
func (r *Repository) Schedule(ctx context.Context, leadID uuid.UUID, jobType string, runAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO jobs (type, lead_id, run_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (lead_id, type) DO UPDATE
		SET run_at = EXCLUDED.run_at, updated_at = NOW()
		WHERE jobs.status = 'pending'
	`, jobType, leadID, runAt)
	return err
}
