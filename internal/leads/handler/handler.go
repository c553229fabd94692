package handler

import (
	"net/http"
	"strings"

	"wchic_backend/internal/leads/service"
	"wchic_backend/internal/leads/transport"
	"wchic_backend/platform/httpkit"
	"wchic_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgMissingFields    = "Envie telefone, cidade e estado"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterGateway mounts the public intake endpoint.
func (h *Handler) RegisterGateway(rg *gin.RouterGroup) {
	rg.POST("/intake", h.Intake)
}

// RegisterAdmin mounts the admin lead listing.
func (h *Handler) RegisterAdmin(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
}

func (h *Handler) Intake(c *gin.Context) {
	var req transport.IntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, transport.IntakeError{Error: msgMissingFields})
		return
	}
	if strings.TrimSpace(req.Telefone) == "" || strings.TrimSpace(req.Cidade) == "" || strings.TrimSpace(req.Estado) == "" {
		c.JSON(http.StatusBadRequest, transport.IntakeError{Error: msgMissingFields})
		return
	}
	if err := h.val.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, transport.IntakeError{Error: "event_date deve ser YYYY-MM-DD"})
		return
	}

	resp, err := h.svc.Intake(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, transport.IntakeError{Error: err.Error()})
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) List(c *gin.Context) {
	var q transport.ListLeadsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	leads, err := h.svc.List(c.Request.Context(), q)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"ok": true, "leads": leads})
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}
