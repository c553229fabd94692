// Package auth provides the admin login that issues bearer tokens for the
// /api/v1/admin routes.
package auth

import (
	"wchic_backend/internal/auth/handler"
	"wchic_backend/internal/auth/service"
	apphttp "wchic_backend/internal/http"
	"wchic_backend/platform/config"
	"wchic_backend/platform/logger"
	"wchic_backend/platform/validator"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

func NewModule(cfg config.AdminConfig, val *validator.Validator, log *logger.Logger) *Module {
	return &Module{handler: handler.New(service.New(cfg, log), val)}
}

func (m *Module) Name() string {
	return "auth"
}

// RegisterRoutes mounts /auth with the stricter login rate limit.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	authGroup := ctx.Engine.Group("/auth")
	if ctx.LoginRateLimiter != nil {
		authGroup.Use(ctx.LoginRateLimiter.RateLimit())
	}
	m.handler.RegisterRoutes(authGroup)
}

var _ apphttp.Module = (*Module)(nil)
