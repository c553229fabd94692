package statussync

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrLeadNotFound = errors.New("lead not found")

// LeadRef is what status sync needs to know about a lead.
type LeadRef struct {
	ID                      uuid.UUID
	Status                  string
	PodioItemIDFranqueadora *int64
	PodioItemIDFranquia     *int64
	FranchisePodioAppID     *string
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadRefSelect = `
	SELECT l.id, l.status, l.podio_item_id_franqueadora, l.podio_item_id_franquia, f.podio_app_id
	FROM leads l
	LEFT JOIN franchises f ON f.id = l.franchise_id`

func scanLeadRef(row pgx.Row) (LeadRef, error) {
	var ref LeadRef
	err := row.Scan(&ref.ID, &ref.Status, &ref.PodioItemIDFranqueadora, &ref.PodioItemIDFranquia, &ref.FranchisePodioAppID)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeadRef{}, ErrLeadNotFound
	}
	return ref, err
}

func (r *Repository) GetLeadRef(ctx context.Context, leadID uuid.UUID) (LeadRef, error) {
	return scanLeadRef(r.pool.QueryRow(ctx, leadRefSelect+` WHERE l.id = $1`, leadID))
}

// FindByItemID matches an item id against both item columns.
func (r *Repository) FindByItemID(ctx context.Context, itemID int64) (LeadRef, error) {
	return scanLeadRef(r.pool.QueryRow(ctx, leadRefSelect+`
		WHERE l.podio_item_id_franqueadora = $1 OR l.podio_item_id_franquia = $1
		ORDER BY l.updated_at DESC
		LIMIT 1`, itemID))
}

func (r *Repository) UpdateStatus(ctx context.Context, leadID uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE leads SET status = $2, updated_at = NOW() WHERE id = $1`, leadID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}
