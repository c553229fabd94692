package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID                      uuid.UUID
	ExternalID              string
	PhoneE164               *string
	Source                  string
	FranchiseID             *uuid.UUID
	Status                  string
	TerritoryStatus         *string
	RoutedAt                *time.Time
	PodioItemIDFranqueadora *int64
	PodioItemIDFranquia     *int64
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

const leadColumns = `id, external_id, phone_e164, source, franchise_id, status, territory_status, routed_at,
	podio_item_id_franqueadora, podio_item_id_franquia, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(&l.ID, &l.ExternalID, &l.PhoneE164, &l.Source, &l.FranchiseID, &l.Status, &l.TerritoryStatus,
		&l.RoutedAt, &l.PodioItemIDFranqueadora, &l.PodioItemIDFranquia, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

// FindOrCreate returns the lead owning externalID, inserting it first when absent.
// created reports whether this call inserted the row.
func (r *Repository) FindOrCreate(ctx context.Context, externalID, phoneE164, source string) (Lead, bool, error) {
	var created bool
	var l Lead
	err := r.pool.QueryRow(ctx, `
		INSERT INTO leads (external_id, phone_e164, source)
		VALUES ($1, $2, $3)
		ON CONFLICT (external_id) DO UPDATE SET external_id = EXCLUDED.external_id
		RETURNING `+leadColumns+`, (xmax = 0) AS inserted
	`, externalID, phoneE164, source).Scan(&l.ID, &l.ExternalID, &l.PhoneE164, &l.Source, &l.FranchiseID, &l.Status,
		&l.TerritoryStatus, &l.RoutedAt, &l.PodioItemIDFranqueadora, &l.PodioItemIDFranquia, &l.CreatedAt, &l.UpdatedAt, &created)
	if err != nil {
		return Lead{}, false, fmt.Errorf("find or create lead: %w", err)
	}
	return l, created, nil
}

// FindLatestByPhone returns the most recent lead for a phone number.
func (r *Repository) FindLatestByPhone(ctx context.Context, phoneE164 string) (Lead, error) {
	l, err := scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE phone_e164 = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, phoneE164))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return l, err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	l, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return l, err
}

// UpdateRouting assigns the lead to a franchise and promotes new leads to routed.
func (r *Repository) UpdateRouting(ctx context.Context, id uuid.UUID, franchiseID *uuid.UUID, territoryStatus *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET franchise_id = $1,
			territory_status = $2,
			routed_at = NOW(),
			status = CASE WHEN $1::uuid IS NOT NULL AND status = 'new' THEN 'routed' ELSE status END,
			updated_at = NOW()
		WHERE id = $3
	`, franchiseID, territoryStatus, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE leads SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type Message struct {
	ID        int64
	LeadID    uuid.UUID
	Role      string
	Content   string
	Stage     *string
	CreatedAt time.Time
}

func (r *Repository) InsertMessage(ctx context.Context, leadID uuid.UUID, role, content string, stage *string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_messages (lead_id, role, content, stage)
		VALUES ($1, $2, $3, $4)
	`, leadID, role, content, stage)
	return err
}

// ListRecentMessages returns the last limit messages in chronological order.
func (r *Repository) ListRecentMessages(ctx context.Context, leadID uuid.UUID, limit int) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, role, content, stage, created_at FROM (
			SELECT id, lead_id, role, content, stage, created_at
			FROM lead_messages
			WHERE lead_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, id ASC
	`, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]Message, 0, limit)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.LeadID, &m.Role, &m.Content, &m.Stage, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// EventUpdate carries the qualification attributes. Nil fields keep the stored value.
type EventUpdate struct {
	Cidade               *string
	Estado               *string
	IBGECode             *string
	EventStartDate       *time.Time
	EventEndDate         *time.Time
	PerfilEvento         *string
	PessoasEstimadas     *int
	Decisor              *bool
	QualificacaoCompleta bool
}

// UpsertEvent writes lead_events; the routing trigger fires on ibge_code, cidade and estado.
func (r *Repository) UpsertEvent(ctx context.Context, leadID uuid.UUID, ev EventUpdate) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_events (lead_id, cidade, estado, ibge_code, event_start_date, event_end_date,
			perfil_evento_universal, pessoas_estimadas, decisor, qualificacao_completa)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (lead_id) DO UPDATE SET
			cidade = COALESCE(EXCLUDED.cidade, lead_events.cidade),
			estado = COALESCE(EXCLUDED.estado, lead_events.estado),
			ibge_code = COALESCE(EXCLUDED.ibge_code, lead_events.ibge_code),
			event_start_date = COALESCE(EXCLUDED.event_start_date, lead_events.event_start_date),
			event_end_date = COALESCE(EXCLUDED.event_end_date, lead_events.event_end_date),
			perfil_evento_universal = COALESCE(EXCLUDED.perfil_evento_universal, lead_events.perfil_evento_universal),
			pessoas_estimadas = COALESCE(EXCLUDED.pessoas_estimadas, lead_events.pessoas_estimadas),
			decisor = COALESCE(EXCLUDED.decisor, lead_events.decisor),
			qualificacao_completa = lead_events.qualificacao_completa OR EXCLUDED.qualificacao_completa,
			updated_at = NOW()
	`, leadID, ev.Cidade, ev.Estado, ev.IBGECode, ev.EventStartDate, ev.EventEndDate,
		ev.PerfilEvento, ev.PessoasEstimadas, ev.Decisor, ev.QualificacaoCompleta)
	return err
}

// ListFilter narrows the admin lead list. Empty fields do not filter.
type ListFilter struct {
	Cidade      string
	Estado      string
	FranchiseID *uuid.UUID
	Limit       int
}

type LeadListItem struct {
	Lead
	Cidade        *string
	Estado        *string
	IBGECode      *string
	EventStart    *time.Time
	FranchiseName *string
}

func (r *Repository) List(ctx context.Context, f ListFilter) ([]LeadListItem, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.Cidade != "" {
		args = append(args, f.Cidade)
		where = append(where, fmt.Sprintf("LOWER(le.cidade) = LOWER($%d)", len(args)))
	}
	if f.Estado != "" {
		args = append(args, f.Estado)
		where = append(where, fmt.Sprintf("LOWER(le.estado) = LOWER($%d)", len(args)))
	}
	if f.FranchiseID != nil {
		args = append(args, *f.FranchiseID)
		where = append(where, fmt.Sprintf("l.franchise_id = $%d", len(args)))
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	args = append(args, limit)

	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.external_id, l.phone_e164, l.source, l.franchise_id, l.status, l.territory_status, l.routed_at,
			l.podio_item_id_franqueadora, l.podio_item_id_franquia, l.created_at, l.updated_at,
			le.cidade, le.estado, le.ibge_code, le.event_start_date, f.franchise_name
		FROM leads l
		LEFT JOIN lead_events le ON le.lead_id = l.id
		LEFT JOIN franchises f ON f.id = l.franchise_id
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY l.created_at DESC
		LIMIT $`+fmt.Sprint(len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]LeadListItem, 0)
	for rows.Next() {
		var it LeadListItem
		if err := rows.Scan(&it.ID, &it.ExternalID, &it.PhoneE164, &it.Source, &it.FranchiseID, &it.Status,
			&it.TerritoryStatus, &it.RoutedAt, &it.PodioItemIDFranqueadora, &it.PodioItemIDFranquia,
			&it.CreatedAt, &it.UpdatedAt, &it.Cidade, &it.Estado, &it.IBGECode, &it.EventStart, &it.FranchiseName); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
