package handler

import (
	"errors"
	"net/http"

	"wchic_backend/internal/auth/service"
	"wchic_backend/internal/auth/transport"
	"wchic_backend/platform/httpkit"
	"wchic_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest     = "invalid request"
	msgInvalidCredentials = "Invalid credentials"
)

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/login", h.Login)
}

func (h *Handler) Login(c *gin.Context) {
	var req transport.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusUnauthorized, msgInvalidCredentials, nil)
		return
	}

	token, expiresAt, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		httpkit.Error(c, http.StatusUnauthorized, msgInvalidCredentials, nil)
		return
	}
	if err != nil {
		_ = c.Error(err)
		httpkit.Error(c, http.StatusInternalServerError, "could not issue token", nil)
		return
	}

	httpkit.OK(c, transport.LoginResponse{Token: token, ExpiresAt: expiresAt})
}
