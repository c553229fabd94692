package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("franchise not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Franchise struct {
	ID            uuid.UUID
	Name          string
	Cidade        *string
	Estado        *string
	WhatsAppPhone *string
	PodioAppID    *string
	PodioViewURL  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type FranchiseInput struct {
	Name          string
	Cidade        *string
	Estado        *string
	WhatsAppPhone *string
	PodioAppID    *string
	PodioViewURL  *string
}

type Territory struct {
	ID          uuid.UUID
	FranchiseID uuid.UUID
	Cidade      string
	Estado      string
	IBGECode    *string
	Active      bool
	CreatedAt   time.Time
}

const franchiseColumns = `id, franchise_name, cidade, estado, whatsapp_phone, podio_app_id, podio_view_url, created_at, updated_at`

func scanFranchise(row pgx.Row) (Franchise, error) {
	var f Franchise
	err := row.Scan(&f.ID, &f.Name, &f.Cidade, &f.Estado, &f.WhatsAppPhone, &f.PodioAppID, &f.PodioViewURL, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Franchise{}, ErrNotFound
	}
	return f, err
}

func (r *Repository) List(ctx context.Context) ([]Franchise, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+franchiseColumns+` FROM franchises ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Franchise, 0)
	for rows.Next() {
		f, err := scanFranchise(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Franchise, error) {
	return scanFranchise(r.pool.QueryRow(ctx, `SELECT `+franchiseColumns+` FROM franchises WHERE id = $1`, id))
}

func (r *Repository) Create(ctx context.Context, in FranchiseInput) (Franchise, error) {
	return scanFranchise(r.pool.QueryRow(ctx, `
		INSERT INTO franchises (franchise_name, cidade, estado, whatsapp_phone, podio_app_id, podio_view_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+franchiseColumns,
		in.Name, in.Cidade, in.Estado, in.WhatsAppPhone, in.PodioAppID, in.PodioViewURL))
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, in FranchiseInput) (Franchise, error) {
	return scanFranchise(r.pool.QueryRow(ctx, `
		UPDATE franchises
		SET franchise_name = $2, cidade = $3, estado = $4, whatsapp_phone = $5,
			podio_app_id = $6, podio_view_url = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING `+franchiseColumns,
		id, in.Name, in.Cidade, in.Estado, in.WhatsAppPhone, in.PodioAppID, in.PodioViewURL))
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM franchises WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListTerritories(ctx context.Context, franchiseID uuid.UUID) ([]Territory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, franchise_id, cidade, estado, ibge_code, active, created_at
		FROM franchise_territories
		WHERE franchise_id = $1
		ORDER BY estado, cidade`, franchiseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Territory, 0)
	for rows.Next() {
		var t Territory
		if err := rows.Scan(&t.ID, &t.FranchiseID, &t.Cidade, &t.Estado, &t.IBGECode, &t.Active, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpsertTerritory assigns a city/state pair to a franchise, moving it if another
// franchise held it.
func (r *Repository) UpsertTerritory(ctx context.Context, franchiseID uuid.UUID, cidade, estado string, ibgeCode *string) (Territory, error) {
	var t Territory
	err := r.pool.QueryRow(ctx, `
		INSERT INTO franchise_territories (franchise_id, cidade, estado, ibge_code)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (LOWER(cidade), LOWER(estado))
		DO UPDATE SET franchise_id = EXCLUDED.franchise_id,
			ibge_code = COALESCE(EXCLUDED.ibge_code, franchise_territories.ibge_code),
			active = TRUE
		RETURNING id, franchise_id, cidade, estado, ibge_code, active, created_at`,
		franchiseID, cidade, estado, ibgeCode,
	).Scan(&t.ID, &t.FranchiseID, &t.Cidade, &t.Estado, &t.IBGECode, &t.Active, &t.CreatedAt)
	return t, err
}

func (r *Repository) DeleteTerritory(ctx context.Context, franchiseID, territoryID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM franchise_territories WHERE id = $1 AND franchise_id = $2`, territoryID, franchiseID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByCityState returns the franchise owning an active territory for the
// pair, matched case-insensitively.
func (r *Repository) FindByCityState(ctx context.Context, cidade, estado string) (Franchise, error) {
	return scanFranchise(r.pool.QueryRow(ctx, `
		SELECT f.id, f.franchise_name, f.cidade, f.estado, f.whatsapp_phone, f.podio_app_id, f.podio_view_url, f.created_at, f.updated_at
		FROM franchise_territories t
		JOIN franchises f ON f.id = t.franchise_id
		WHERE t.active AND LOWER(t.cidade) = LOWER($1) AND LOWER(t.estado) = LOWER($2)
		LIMIT 1`, cidade, estado))
}
