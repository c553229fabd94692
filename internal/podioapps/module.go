// Package podioapps exports Podio app definitions to object storage,
// regenerates workspace mappings from them and registers the item webhooks.
package podioapps

import (
	apphttp "wchic_backend/internal/http"
)

type Module struct {
	handler *Handler
}

// NewModule wires the admin routes. A nil service answers 503.
func NewModule(svc *Service, hookURL string) *Module {
	return &Module{handler: NewHandler(svc, hookURL)}
}

func (m *Module) Name() string {
	return "podioapps"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin.Group("/podio"))
}

var _ apphttp.Module = (*Module)(nil)
