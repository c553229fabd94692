package podiosync

import (
	apphttp "wchic_backend/internal/http"
	"wchic_backend/internal/podio"
	"wchic_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	handler *Handler
	service *Service
}

// NewModule wires the orchestrator. client may be nil when Podio is disabled.
func NewModule(pool *pgxpool.Pool, registry *podio.Registry, client *podio.Client, log *logger.Logger) *Module {
	var upserter Upserter
	if client != nil {
		upserter = podio.NewUpserter(client, registry, log)
	}
	svc := NewService(NewRepository(pool), registry, upserter, log)
	return &Module{handler: NewHandler(svc), service: svc}
}

func (m *Module) Name() string {
	return "podiosync"
}

func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin.Group("/leads"))
}

var _ apphttp.Module = (*Module)(nil)
