package service

import (
	"context"
	"testing"

	"wchic_backend/internal/franchises/repository"
	"wchic_backend/internal/franchises/transport"
	"wchic_backend/platform/apperr"
	"wchic_backend/platform/logger"

	"github.com/google/uuid"
)

type testRepo struct {
	franchises map[uuid.UUID]repository.Franchise
	byCity     map[string]uuid.UUID
}

func newTestRepo() *testRepo {
	return &testRepo{franchises: map[uuid.UUID]repository.Franchise{}, byCity: map[string]uuid.UUID{}}
}

func (r *testRepo) List(context.Context) ([]repository.Franchise, error) {
	out := make([]repository.Franchise, 0, len(r.franchises))
	for _, f := range r.franchises {
		out = append(out, f)
	}
	return out, nil
}

func (r *testRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Franchise, error) {
	f, ok := r.franchises[id]
	if !ok {
		return repository.Franchise{}, repository.ErrNotFound
	}
	return f, nil
}

func (r *testRepo) Create(_ context.Context, in repository.FranchiseInput) (repository.Franchise, error) {
	f := repository.Franchise{ID: uuid.New(), Name: in.Name, PodioAppID: in.PodioAppID}
	r.franchises[f.ID] = f
	return f, nil
}

func (r *testRepo) Update(_ context.Context, id uuid.UUID, in repository.FranchiseInput) (repository.Franchise, error) {
	if _, ok := r.franchises[id]; !ok {
		return repository.Franchise{}, repository.ErrNotFound
	}
	f := repository.Franchise{ID: id, Name: in.Name, PodioAppID: in.PodioAppID}
	r.franchises[id] = f
	return f, nil
}

func (r *testRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.franchises[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.franchises, id)
	return nil
}

func (r *testRepo) ListTerritories(context.Context, uuid.UUID) ([]repository.Territory, error) {
	return nil, nil
}

func (r *testRepo) UpsertTerritory(_ context.Context, franchiseID uuid.UUID, cidade, estado string, ibgeCode *string) (repository.Territory, error) {
	r.byCity[cidade+"/"+estado] = franchiseID
	return repository.Territory{ID: uuid.New(), FranchiseID: franchiseID, Cidade: cidade, Estado: estado, IBGECode: ibgeCode, Active: true}, nil
}

func (r *testRepo) DeleteTerritory(context.Context, uuid.UUID, uuid.UUID) error {
	return repository.ErrNotFound
}

func (r *testRepo) FindByCityState(_ context.Context, cidade, estado string) (repository.Franchise, error) {
	id, ok := r.byCity[cidade+"/"+estado]
	if !ok {
		return repository.Franchise{}, repository.ErrNotFound
	}
	return r.franchises[id], nil
}

type testWorkspaces map[string]string

func (w testWorkspaces) WorkspaceKeyFor(appID string) (string, bool) {
	key, ok := w[appID]
	return key, ok
}

func newTestService() (*Service, *testRepo) {
	repo := newTestRepo()
	return New(repo, testWorkspaces{"10777978": "campinas"}, logger.New("development")), repo
}

func TestCreateResolvesWorkspaceKey(t *testing.T) {
	svc, _ := newTestService()
	appID := "10777978"

	f, err := svc.Create(context.Background(), transport.FranchiseRequest{Name: " Campinas ", PodioAppID: &appID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Name != "Campinas" {
		t.Errorf("expected trimmed name, got %q", f.Name)
	}
	if f.WorkspaceKey == nil || *f.WorkspaceKey != "campinas" {
		t.Errorf("expected workspace key campinas, got %v", f.WorkspaceKey)
	}
}

func TestCreateRejectsUnknownAppID(t *testing.T) {
	svc, _ := newTestService()
	appID := "999"

	_, err := svc.Create(context.Background(), transport.FranchiseRequest{Name: "X", PodioAppID: &appID})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteUnknownFranchiseIsNotFound(t *testing.T) {
	svc, _ := newTestService()

	err := svc.Delete(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFindByCityStateAfterTerritoryAssignment(t *testing.T) {
	svc, _ := newTestService()
	appID := "10777978"
	f, err := svc.Create(context.Background(), transport.FranchiseRequest{Name: "Campinas", PodioAppID: &appID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.AddTerritory(context.Background(), f.ID, transport.TerritoryRequest{Cidade: "Valinhos", Estado: "sp"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found, err := svc.FindByCityState(context.Background(), "Valinhos", "SP")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found == nil || found.ID != f.ID {
		t.Fatalf("expected franchise %s, got %+v", f.ID, found)
	}

	missing, err := svc.FindByCityState(context.Background(), "Manaus", "AM")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unrouted city")
	}
}
