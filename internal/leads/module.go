// Package leads provides the lead intake bounded context module.
package leads

import (
	"wchic_backend/internal/events"
	apphttp "wchic_backend/internal/http"
	"wchic_backend/internal/leads/handler"
	"wchic_backend/internal/leads/repository"
	"wchic_backend/internal/leads/service"
	"wchic_backend/platform/logger"
	"wchic_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule wires the lead repository, service and handler. The router
// resolves territories and is provided by the franchises adapter.
func NewModule(pool *pgxpool.Pool, router service.FranchiseRouter, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, router, eventBus, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

func (m *Module) Name() string {
	return "leads"
}

// Service returns the lead service for the WhatsApp inbound flow.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the lead repository for qualification.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterGateway(ctx.Engine.Group("/gateway"))
	m.handler.RegisterAdmin(ctx.Admin.Group("/leads"))
}

var _ apphttp.Module = (*Module)(nil)
