package service

import (
	"context"
	"errors"
	"strings"

	"wchic_backend/internal/franchises/repository"
	"wchic_backend/internal/franchises/transport"
	"wchic_backend/platform/apperr"
	"wchic_backend/platform/logger"

	"github.com/google/uuid"
)

var ErrFranchiseNotFound = errors.New("franchise not found")

const msgFranchiseNotFound = "Franquia não encontrada"

type Repository interface {
	List(ctx context.Context) ([]repository.Franchise, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Franchise, error)
	Create(ctx context.Context, in repository.FranchiseInput) (repository.Franchise, error)
	Update(ctx context.Context, id uuid.UUID, in repository.FranchiseInput) (repository.Franchise, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListTerritories(ctx context.Context, franchiseID uuid.UUID) ([]repository.Territory, error)
	UpsertTerritory(ctx context.Context, franchiseID uuid.UUID, cidade, estado string, ibgeCode *string) (repository.Territory, error)
	DeleteTerritory(ctx context.Context, franchiseID, territoryID uuid.UUID) error
	FindByCityState(ctx context.Context, cidade, estado string) (repository.Franchise, error)
}

// WorkspaceResolver maps a franchise's Podio app id to its workspace key.
type WorkspaceResolver interface {
	WorkspaceKeyFor(podioAppID string) (string, bool)
}

type Service struct {
	repo       Repository
	workspaces WorkspaceResolver
	log        *logger.Logger
}

func New(repo Repository, workspaces WorkspaceResolver, log *logger.Logger) *Service {
	return &Service{repo: repo, workspaces: workspaces, log: log}
}

func (s *Service) List(ctx context.Context) ([]transport.FranchiseResponse, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]transport.FranchiseResponse, 0, len(items))
	for _, f := range items {
		out = append(out, s.toResponse(f))
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.FranchiseResponse, error) {
	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.FranchiseResponse{}, mapNotFound(err, "franchises.Get")
	}
	return s.toResponse(f), nil
}

func (s *Service) Create(ctx context.Context, req transport.FranchiseRequest) (transport.FranchiseResponse, error) {
	if err := s.checkAppID(req.PodioAppID); err != nil {
		return transport.FranchiseResponse{}, err
	}
	f, err := s.repo.Create(ctx, toInput(req))
	if err != nil {
		return transport.FranchiseResponse{}, err
	}
	s.log.Info("franchise created", "franchise_id", f.ID, "name", f.Name)
	return s.toResponse(f), nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.FranchiseRequest) (transport.FranchiseResponse, error) {
	if err := s.checkAppID(req.PodioAppID); err != nil {
		return transport.FranchiseResponse{}, err
	}
	f, err := s.repo.Update(ctx, id, toInput(req))
	if err != nil {
		return transport.FranchiseResponse{}, mapNotFound(err, "franchises.Update")
	}
	return s.toResponse(f), nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return mapNotFound(s.repo.Delete(ctx, id), "franchises.Delete")
}

func (s *Service) ListTerritories(ctx context.Context, franchiseID uuid.UUID) ([]transport.TerritoryResponse, error) {
	if _, err := s.repo.GetByID(ctx, franchiseID); err != nil {
		return nil, mapNotFound(err, "franchises.ListTerritories")
	}
	items, err := s.repo.ListTerritories(ctx, franchiseID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.TerritoryResponse, 0, len(items))
	for _, t := range items {
		out = append(out, toTerritoryResponse(t))
	}
	return out, nil
}

func (s *Service) AddTerritory(ctx context.Context, franchiseID uuid.UUID, req transport.TerritoryRequest) (transport.TerritoryResponse, error) {
	if _, err := s.repo.GetByID(ctx, franchiseID); err != nil {
		return transport.TerritoryResponse{}, mapNotFound(err, "franchises.AddTerritory")
	}
	t, err := s.repo.UpsertTerritory(ctx, franchiseID, strings.TrimSpace(req.Cidade), strings.ToUpper(strings.TrimSpace(req.Estado)), req.IBGECode)
	if err != nil {
		return transport.TerritoryResponse{}, err
	}
	s.log.Info("territory assigned", "franchise_id", franchiseID, "cidade", t.Cidade, "estado", t.Estado)
	return toTerritoryResponse(t), nil
}

func (s *Service) DeleteTerritory(ctx context.Context, franchiseID, territoryID uuid.UUID) error {
	return mapNotFound(s.repo.DeleteTerritory(ctx, franchiseID, territoryID), "franchises.DeleteTerritory")
}

// FindByCityState returns the routed franchise, or nil when no active territory
// covers the pair.
func (s *Service) FindByCityState(ctx context.Context, cidade, estado string) (*transport.FranchiseResponse, error) {
	f, err := s.repo.FindByCityState(ctx, strings.TrimSpace(cidade), strings.TrimSpace(estado))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	resp := s.toResponse(f)
	return &resp, nil
}

func (s *Service) checkAppID(appID *string) error {
	if appID == nil || *appID == "" || s.workspaces == nil {
		return nil
	}
	if _, ok := s.workspaces.WorkspaceKeyFor(*appID); !ok {
		return apperr.Validation("podio_app_id não pertence a nenhum workspace conhecido").
			WithDetails(map[string]string{"podio_app_id": *appID})
	}
	return nil
}

func (s *Service) toResponse(f repository.Franchise) transport.FranchiseResponse {
	resp := transport.FranchiseResponse{
		ID:            f.ID,
		Name:          f.Name,
		Cidade:        f.Cidade,
		Estado:        f.Estado,
		WhatsAppPhone: f.WhatsAppPhone,
		PodioAppID:    f.PodioAppID,
		PodioViewURL:  f.PodioViewURL,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
	}
	if f.PodioAppID != nil && s.workspaces != nil {
		if key, ok := s.workspaces.WorkspaceKeyFor(*f.PodioAppID); ok {
			resp.WorkspaceKey = &key
		}
	}
	return resp
}

func toInput(req transport.FranchiseRequest) repository.FranchiseInput {
	return repository.FranchiseInput{
		Name:          strings.TrimSpace(req.Name),
		Cidade:        req.Cidade,
		Estado:        req.Estado,
		WhatsAppPhone: req.WhatsAppPhone,
		PodioAppID:    req.PodioAppID,
		PodioViewURL:  req.PodioViewURL,
	}
}

func toTerritoryResponse(t repository.Territory) transport.TerritoryResponse {
	return transport.TerritoryResponse{
		ID:          t.ID,
		FranchiseID: t.FranchiseID,
		Cidade:      t.Cidade,
		Estado:      t.Estado,
		IBGECode:    t.IBGECode,
		Active:      t.Active,
		CreatedAt:   t.CreatedAt,
	}
}

func mapNotFound(err error, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Wrap(apperr.KindNotFound, msgFranchiseNotFound, ErrFranchiseNotFound).WithOp(op)
	}
	return err
}
