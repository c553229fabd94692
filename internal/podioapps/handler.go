package podioapps

import (
	"net/http"

	"wchic_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc     *Service
	hookURL string
}

func NewHandler(svc *Service, hookURL string) *Handler {
	return &Handler{svc: svc, hookURL: hookURL}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/apps/export", h.Export)
	rg.POST("/hooks", h.RegisterHooks)
}

func (h *Handler) Export(c *gin.Context) {
	if h.svc == nil || h.svc.storage == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "exportação indisponível", nil)
		return
	}
	apps, err := h.svc.ExportApps(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	httpkit.OK(c, gin.H{"ok": true, "files": apps})
}

func (h *Handler) RegisterHooks(c *gin.Context) {
	if h.svc == nil || h.hookURL == "" {
		httpkit.Error(c, http.StatusServiceUnavailable, "PODIO_WEBHOOK_URL não configurado", nil)
		return
	}
	results := h.svc.RegisterHooks(c.Request.Context(), h.hookURL)
	ok := true
	for _, r := range results {
		if r.Outcome == HookFailed {
			ok = false
		}
	}
	httpkit.OK(c, gin.H{"ok": ok, "results": results})
}
