package statussync

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

// NewModule wires status sync. client is nil when Podio is disabled and queue
// is nil when Redis is not configured.
func NewModule(pool *pgxpool.Pool, registry *podio.Registry, client *podio.Client, queue ReconcileEnqueuer, log *logger.Logger) (*Module, error) {
	mapper, err := NewMapper(registry)
	if err != nil {
		return nil, err
	}
	var api ItemAPI
	if client != nil {
		api = client
	}
	svc := NewService(NewRepository(pool), registry, mapper, api, log)
	return &Module{handler: NewHandler(svc, queue, log), service: svc}, nil
}

func (m *Module) Name() string {
	return "statussync"
}

func (m *Module) Service() *Service {
	return m.service
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Engine.POST("/webhook/podio", m.handler.Webhook)
	ctx.Admin.POST("/leads/:id/status", m.handler.SetStatus)
}

var _ apphttp.Module = (*Module)(nil)
