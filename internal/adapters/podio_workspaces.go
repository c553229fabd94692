package adapters

import (
	"wchic_backend/internal/podio"
)

// PodioWorkspaces exposes the mapping registry as a franchise workspace resolver.
type PodioWorkspaces struct {
	registry *podio.Registry
}

func NewPodioWorkspaces(registry *podio.Registry) *PodioWorkspaces {
	return &PodioWorkspaces{registry: registry}
}

func (a *PodioWorkspaces) WorkspaceKeyFor(podioAppID string) (string, bool) {
	m, ok := a.registry.ByAppIDString(podioAppID)
	if !ok {
		return "", false
	}
	return string(m.WorkspaceKey), true
}
