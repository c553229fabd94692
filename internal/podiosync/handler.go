package podiosync

import (
	"net/http"

	"wchic_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/sync-podio", h.Sync)
}

// Sync runs a manual sync and reports the per-workspace result.
func (h *Handler) Sync(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "Lead não encontrado"})
		return
	}

	res, err := h.svc.SyncLead(c.Request.Context(), id)
	if IsLeadNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "Lead não encontrado"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	httpkit.OK(c, res)
}
