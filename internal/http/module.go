// Package http provides HTTP server infrastructure including the Module interface
// that all domain modules must implement for route registration.
package http

import (
	"wchic_backend/platform/config"
	"wchic_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module represents a bounded context that can register its HTTP routes.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the provided router context.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared dependencies for module route registration.
type RouterContext struct {
	// Engine is the root engine, used by webhooks and the public gateway.
	Engine *gin.Engine
	// V1 is the /api/v1 route group.
	V1 *gin.RouterGroup
	// Admin is /api/v1/admin behind an admin-role token.
	Admin *gin.RouterGroup
	// Config is the JWT configuration for modules that issue or check their own tokens.
	Config config.JWTConfig
	// LoginRateLimiter guards the login endpoints.
	LoginRateLimiter *httpkit.IPRateLimiter
}
