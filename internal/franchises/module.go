// Package franchises provides franchise and territory management.
package franchises

import (
	"wchic_backend/internal/franchises/handler"
	"wchic_backend/internal/franchises/repository"
	"wchic_backend/internal/franchises/service"
	apphttp "wchic_backend/internal/http"
	"wchic_backend/platform/logger"
	"wchic_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(pool *pgxpool.Pool, workspaces service.WorkspaceResolver, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), workspaces, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

func (m *Module) Name() string {
	return "franchises"
}

// Service returns the franchise service used for territory routing.
func (m *Module) Service() *service.Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin.Group("/franchises"))
}

var _ apphttp.Module = (*Module)(nil)
