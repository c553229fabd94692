// Package dashboard serves the read-only lead dashboard under /dash.
package dashboard

import (
	apphttp "wchic_backend/internal/http"
	"wchic_backend/platform/config"
	"wchic_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *Handler
}

func NewModule(pool *pgxpool.Pool, cfg config.DashboardConfig, log *logger.Logger) *Module {
	return &Module{handler: NewHandler(NewRepository(pool), cfg, log)}
}

func (m *Module) Name() string {
	return "dashboard"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Engine.Group("/dash"), ctx.LoginRateLimiter)
}

var _ apphttp.Module = (*Module)(nil)
