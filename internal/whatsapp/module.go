package whatsapp

import (
	apphttp "wchic_backend/internal/http"
)

type Module struct {
	handler *Handler
}

func NewModule(deps HandlerDeps) *Module {
	return &Module{handler: NewHandler(deps)}
}

func (m *Module) Name() string {
	return "whatsapp"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	wa := ctx.Engine.Group("/webhook/whatsapp")
	wa.GET("", m.handler.Verify)
	wa.POST("", m.handler.Receive)
}

var _ apphttp.Module = (*Module)(nil)
