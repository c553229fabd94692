package dashboard

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

var ErrLeadNotFound = errors.New("lead not found")

const notRouted = "Não roteado"

// qualified is the predicate the funnel counts as a qualified lead.
const qualified = `(le.cidade IS NOT NULL
	AND le.event_start_date IS NOT NULL
	AND le.perfil_evento_universal IS NOT NULL
	AND le.pessoas_estimadas IS NOT NULL)`

type Totals struct {
	TotalLeads   int `json:"total_leads"`
	ComCidade    int `json:"com_cidade"`
	ComData      int `json:"com_data"`
	ComPerfil    int `json:"com_perfil"`
	Qualificados int `json:"qualificados"`
}

type FranchiseStat struct {
	FranchiseID   *uuid.UUID `json:"franchise_id"`
	FranchiseName string     `json:"franchise_name"`
	Total         int        `json:"total"`
	Qualificados  int        `json:"qualificados"`
}

type DailyCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

type Stats struct {
	Totals      Totals          `json:"totals"`
	ByFranchise []FranchiseStat `json:"byFranchise"`
	Daily       []DailyCount    `json:"daily"`
}

type LeadFilter struct {
	FranchiseID *uuid.UUID
	Status      string
	Query       string
	Limit       int
	Offset      int
}

type LeadRow struct {
	ID               uuid.UUID  `json:"id"`
	PhoneE164        *string    `json:"phone_e164"`
	Source           string     `json:"source"`
	Status           string     `json:"status"`
	TerritoryStatus  *string    `json:"territory_status"`
	FranchiseID      *uuid.UUID `json:"franchise_id"`
	FranchiseName    string     `json:"franchise_name"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Cidade           *string    `json:"cidade"`
	Estado           *string    `json:"estado"`
	EventStartDate   *time.Time `json:"event_start_date"`
	PerfilEvento     *string    `json:"perfil_evento_universal"`
	PessoasEstimadas *int       `json:"pessoas_estimadas"`
	Qualificado      bool       `json:"qualificado"`
	MsgCount         int        `json:"msg_count"`
}

type LeadDetail struct {
	ID                      uuid.UUID  `json:"id"`
	ExternalID              string     `json:"external_id"`
	PhoneE164               *string    `json:"phone_e164"`
	Source                  string     `json:"source"`
	Status                  string     `json:"status"`
	TerritoryStatus         *string    `json:"territory_status"`
	FranchiseID             *uuid.UUID `json:"franchise_id"`
	FranchiseName           string     `json:"franchise_name"`
	PodioItemIDFranqueadora *int64     `json:"podio_item_id_franqueadora"`
	PodioItemIDFranquia     *int64     `json:"podio_item_id_franquia"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
	Cidade                  *string    `json:"cidade"`
	Estado                  *string    `json:"estado"`
	IBGECode                *string    `json:"ibge_code"`
	EventStartDate          *time.Time `json:"event_start_date"`
	EventEndDate            *time.Time `json:"event_end_date"`
	PerfilEvento            *string    `json:"perfil_evento_universal"`
	PessoasEstimadas        *int       `json:"pessoas_estimadas"`
	Decisor                 *bool      `json:"decisor"`
}

type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Stage     *string   `json:"stage"`
	CreatedAt time.Time `json:"created_at"`
}

type FranchiseOption struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	PodioAppID *string   `json:"podio_app_id"`
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*)::int,
			COUNT(*) FILTER (WHERE le.cidade IS NOT NULL)::int,
			COUNT(*) FILTER (WHERE le.event_start_date IS NOT NULL)::int,
			COUNT(*) FILTER (WHERE le.perfil_evento_universal IS NOT NULL)::int,
			COUNT(*) FILTER (WHERE `+qualified+`)::int
		FROM leads l
		LEFT JOIN lead_events le ON le.lead_id = l.id
	`).Scan(&s.Totals.TotalLeads, &s.Totals.ComCidade, &s.Totals.ComData, &s.Totals.ComPerfil, &s.Totals.Qualificados)
	if err != nil {
		return Stats{}, fmt.Errorf("totals: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT f.id, COALESCE(f.franchise_name, $1), COUNT(*)::int,
			COUNT(*) FILTER (WHERE `+qualified+`)::int
		FROM leads l
		LEFT JOIN franchises f ON f.id = l.franchise_id
		LEFT JOIN lead_events le ON le.lead_id = l.id
		GROUP BY f.id, f.franchise_name
		ORDER BY 3 DESC
	`, notRouted)
	if err != nil {
		return Stats{}, fmt.Errorf("by franchise: %w", err)
	}
	s.ByFranchise, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (FranchiseStat, error) {
		var fs FranchiseStat
		err := row.Scan(&fs.FranchiseID, &fs.FranchiseName, &fs.Total, &fs.Qualificados)
		return fs, err
	})
	if err != nil {
		return Stats{}, fmt.Errorf("by franchise: %w", err)
	}

	rows, err = r.pool.Query(ctx, `
		SELECT TO_CHAR(DATE(created_at), 'YYYY-MM-DD'), COUNT(*)::int
		FROM leads
		WHERE created_at >= NOW() - INTERVAL '30 days'
		GROUP BY DATE(created_at)
		ORDER BY DATE(created_at)
	`)
	if err != nil {
		return Stats{}, fmt.Errorf("daily: %w", err)
	}
	s.Daily, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (DailyCount, error) {
		var d DailyCount
		err := row.Scan(&d.Day, &d.Count)
		return d, err
	})
	if err != nil {
		return Stats{}, fmt.Errorf("daily: %w", err)
	}
	return s, nil
}

func (f LeadFilter) where() (string, []any) {
	var conds []string
	var args []any
	if f.FranchiseID != nil {
		args = append(args, *f.FranchiseID)
		conds = append(conds, fmt.Sprintf("l.franchise_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("l.status = $%d", len(args)))
	}
	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		conds = append(conds, fmt.Sprintf("(l.phone_e164 ILIKE $%d OR le.cidade ILIKE $%d)", len(args), len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// ListLeads returns one page of leads, newest first, and the filtered total.
func (r *Repository) ListLeads(ctx context.Context, f LeadFilter) ([]LeadRow, int, error) {
	where, args := f.where()

	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)::int
		FROM leads l
		LEFT JOIN lead_events le ON le.lead_id = l.id
		`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count leads: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT l.id, l.phone_e164, l.source, l.status, l.territory_status, l.franchise_id,
			COALESCE(f.franchise_name, '%s'), l.created_at, l.updated_at,
			le.cidade, le.estado, le.event_start_date, le.perfil_evento_universal, le.pessoas_estimadas,
			COALESCE(%s, FALSE),
			(SELECT COUNT(*)::int FROM lead_messages lm WHERE lm.lead_id = l.id)
		FROM leads l
		LEFT JOIN lead_events le ON le.lead_id = l.id
		LEFT JOIN franchises f ON f.id = l.franchise_id
		%s
		ORDER BY l.created_at DESC
		LIMIT $%d OFFSET $%d
	`, notRouted, qualified, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	leads, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (LeadRow, error) {
		var l LeadRow
		err := row.Scan(&l.ID, &l.PhoneE164, &l.Source, &l.Status, &l.TerritoryStatus, &l.FranchiseID,
			&l.FranchiseName, &l.CreatedAt, &l.UpdatedAt,
			&l.Cidade, &l.Estado, &l.EventStartDate, &l.PerfilEvento, &l.PessoasEstimadas,
			&l.Qualificado, &l.MsgCount)
		return l, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	return leads, total, nil
}

func (r *Repository) GetLead(ctx context.Context, id uuid.UUID) (LeadDetail, error) {
	var d LeadDetail
	err := r.pool.QueryRow(ctx, `
		SELECT l.id, l.external_id, l.phone_e164, l.source, l.status, l.territory_status, l.franchise_id,
			COALESCE(f.franchise_name, $2), l.podio_item_id_franqueadora, l.podio_item_id_franquia,
			l.created_at, l.updated_at,
			le.cidade, le.estado, le.ibge_code, le.event_start_date, le.event_end_date,
			le.perfil_evento_universal, le.pessoas_estimadas, le.decisor
		FROM leads l
		LEFT JOIN lead_events le ON le.lead_id = l.id
		LEFT JOIN franchises f ON f.id = l.franchise_id
		WHERE l.id = $1
	`, id, notRouted).Scan(&d.ID, &d.ExternalID, &d.PhoneE164, &d.Source, &d.Status, &d.TerritoryStatus,
		&d.FranchiseID, &d.FranchiseName, &d.PodioItemIDFranqueadora, &d.PodioItemIDFranquia,
		&d.CreatedAt, &d.UpdatedAt,
		&d.Cidade, &d.Estado, &d.IBGECode, &d.EventStartDate, &d.EventEndDate,
		&d.PerfilEvento, &d.PessoasEstimadas, &d.Decisor)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeadDetail{}, ErrLeadNotFound
	}
	return d, err
}

func (r *Repository) ListMessages(ctx context.Context, leadID uuid.UUID) ([]Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT role, content, stage, created_at
		FROM lead_messages
		WHERE lead_id = $1
		ORDER BY created_at ASC, id ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Message])
}

func (r *Repository) ListFranchises(ctx context.Context) ([]FranchiseOption, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, franchise_name, podio_app_id FROM franchises ORDER BY franchise_name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[FranchiseOption])
}
