package adapters

import (
	"context"

	franchisesvc "wchic_backend/internal/franchises/service"
	leadsvc "wchic_backend/internal/leads/service"
)

// FranchiseRouter adapts the franchise territory lookup to the lead intake port.
type FranchiseRouter struct {
	franchises *franchisesvc.Service
}

func NewFranchiseRouter(franchises *franchisesvc.Service) *FranchiseRouter {
	return &FranchiseRouter{franchises: franchises}
}

func (a *FranchiseRouter) FindByCityState(ctx context.Context, cidade, estado string) (*leadsvc.RoutedFranchise, error) {
	f, err := a.franchises.FindByCityState(ctx, cidade, estado)
	if err != nil || f == nil {
		return nil, err
	}
	return &leadsvc.RoutedFranchise{
		ID:           f.ID,
		WorkspaceKey: f.WorkspaceKey,
		PodioAppID:   f.PodioAppID,
	}, nil
}

var _ leadsvc.FranchiseRouter = (*FranchiseRouter)(nil)
