package podiosync

import (
	"context"
	"errors"

	"wchic_backend/internal/podio"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrLeadNotFound is returned when the synced lead does not exist.
var ErrLeadNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetSnapshot(ctx context.Context, leadID uuid.UUID) (Snapshot, error) {
	var s Snapshot
	err := r.pool.QueryRow(ctx, `
		SELECT l.id, l.external_id, l.phone_e164, l.source, l.franchise_id, l.status,
			le.cidade, le.estado, le.ibge_code, le.event_start_date, le.event_end_date,
			le.perfil_evento_universal, le.pessoas_estimadas, le.decisor,
			f.franchise_name, f.podio_app_id
		FROM leads l
		LEFT JOIN lead_events le ON le.lead_id = l.id
		LEFT JOIN franchises f ON f.id = l.franchise_id
		WHERE l.id = $1`, leadID,
	).Scan(
		&s.LeadID, &s.ExternalID, &s.PhoneE164, &s.Source, &s.FranchiseID, &s.Status,
		&s.Cidade, &s.Estado, &s.IBGECode, &s.EventStartDate, &s.EventEndDate,
		&s.PerfilEvento, &s.PessoasEstimadas, &s.Decisor,
		&s.FranchiseName, &s.PodioAppID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, ErrLeadNotFound
	}
	return s, err
}

// SaveItemID stores the item created or found in a workspace. The head office
// has its own column; every franchise workspace shares the franchise column.
func (r *Repository) SaveItemID(ctx context.Context, leadID uuid.UUID, key podio.WorkspaceKey, itemID int64) error {
	query := `UPDATE leads SET podio_item_id_franquia = $2, updated_at = NOW() WHERE id = $1`
	if key == podio.HeadOffice {
		query = `UPDATE leads SET podio_item_id_franqueadora = $2, updated_at = NOW() WHERE id = $1`
	}
	_, err := r.pool.Exec(ctx, query, leadID, itemID)
	return err
}
