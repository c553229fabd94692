package dashboard

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"wchic_backend/platform/config"
	"wchic_backend/platform/httpkit"
	"wchic_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	realmDashboard = "dashboard"

	defaultPageSize = 25
	maxPageSize     = 100
	maxExportRows   = 5000
	defaultTokenTTL = 24 * time.Hour

	msgNotConfigured = "Dashboard não configurado (DASHBOARD_PASSWORD ausente)"
	msgWrongPassword = "Senha incorreta"
	msgLeadNotFound  = "Lead não encontrado"
)

// Store is the read model behind the dashboard.
type Store interface {
	Stats(ctx context.Context) (Stats, error)
	ListLeads(ctx context.Context, f LeadFilter) ([]LeadRow, int, error)
	GetLead(ctx context.Context, id uuid.UUID) (LeadDetail, error)
	ListMessages(ctx context.Context, leadID uuid.UUID) ([]Message, error)
	ListFranchises(ctx context.Context) ([]FranchiseOption, error)
}

type Handler struct {
	store Store
	cfg   config.DashboardConfig
	log   *logger.Logger
}

func NewHandler(store Store, cfg config.DashboardConfig, log *logger.Logger) *Handler {
	return &Handler{store: store, cfg: cfg, log: log}
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expiresIn"`
}

type leadsPage struct {
	Leads      []LeadRow `json:"leads"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"totalPages"`
}

type leadWithMessages struct {
	Lead     LeadDetail `json:"lead"`
	Messages []Message  `json:"messages"`
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, loginLimiter *httpkit.IPRateLimiter) {
	login := []gin.HandlerFunc{h.Login}
	if loginLimiter != nil {
		login = append([]gin.HandlerFunc{loginLimiter.RateLimit()}, login...)
	}
	rg.POST("/login", login...)

	protected := rg.Group("", h.requireConfigured, httpkit.AuthRequired(h.cfg, httpkit.RoleDashboard, httpkit.RoleAdmin))
	protected.GET("/stats", h.Stats)
	protected.GET("/leads", h.ListLeads)
	protected.GET("/export.xlsx", h.ExportLeads)
	protected.GET("/leads/:id", h.GetLead)
	protected.GET("/franchises", h.ListFranchises)
}

func (h *Handler) requireConfigured(c *gin.Context) {
	if h.cfg.GetDashboardPassword() == "" {
		httpkit.Error(c, http.StatusServiceUnavailable, msgNotConfigured, nil)
		return
	}
	c.Next()
}

func (h *Handler) Login(c *gin.Context) {
	expected := h.cfg.GetDashboardPassword()
	if expected == "" {
		httpkit.Error(c, http.StatusServiceUnavailable, "Dashboard não configurado", nil)
		return
	}

	var req loginRequest
	_ = c.ShouldBindJSON(&req)
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(expected)) != 1 {
		h.log.AuthEvent(realmDashboard, c.ClientIP(), false, "wrong password")
		httpkit.Error(c, http.StatusUnauthorized, msgWrongPassword, nil)
		return
	}

	ttl := h.cfg.GetDashboardTokenTTL()
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	token, _, err := httpkit.IssueToken(h.cfg.GetJWTSecret(), realmDashboard, httpkit.RoleDashboard, ttl)
	if err != nil {
		_ = c.Error(err)
		httpkit.Error(c, http.StatusInternalServerError, "could not issue token", nil)
		return
	}

	h.log.AuthEvent(realmDashboard, c.ClientIP(), true, "")
	httpkit.OK(c, loginResponse{Token: token, ExpiresIn: ttl.Milliseconds()})
}

func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, "Erro ao buscar estatísticas", err)
		return
	}
	httpkit.OK(c, stats)
}

func (h *Handler) ListLeads(c *gin.Context) {
	filter, ok := parseFilter(c)
	if !ok {
		return
	}
	page := clamp(queryInt(c, "page", 1), 1, math.MaxInt32)
	filter.Limit = clamp(queryInt(c, "limit", defaultPageSize), 1, maxPageSize)
	filter.Offset = (page - 1) * filter.Limit

	leads, total, err := h.store.ListLeads(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "Erro ao buscar leads", err)
		return
	}
	httpkit.OK(c, leadsPage{
		Leads:      leads,
		Total:      total,
		Page:       page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
	})
}

// ExportLeads streams the filtered leads as an XLSX workbook.
func (h *Handler) ExportLeads(c *gin.Context) {
	filter, ok := parseFilter(c)
	if !ok {
		return
	}
	filter.Limit = maxExportRows

	leads, _, err := h.store.ListLeads(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "Erro ao buscar leads", err)
		return
	}
	buf, err := WriteLeadsXLSX(leads)
	if err != nil {
		h.fail(c, "Erro ao gerar planilha", err)
		return
	}

	filename := fmt.Sprintf("leads-%s.xlsx", time.Now().Format("20060102-1504"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *Handler) GetLead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusNotFound, msgLeadNotFound, nil)
		return
	}

	lead, err := h.store.GetLead(c.Request.Context(), id)
	if errors.Is(err, ErrLeadNotFound) {
		httpkit.Error(c, http.StatusNotFound, msgLeadNotFound, nil)
		return
	}
	if err != nil {
		h.fail(c, "Erro ao buscar lead", err)
		return
	}
	messages, err := h.store.ListMessages(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Erro ao buscar lead", err)
		return
	}
	if messages == nil {
		messages = []Message{}
	}
	httpkit.OK(c, leadWithMessages{Lead: lead, Messages: messages})
}

func (h *Handler) ListFranchises(c *gin.Context) {
	franchises, err := h.store.ListFranchises(c.Request.Context())
	if err != nil {
		h.fail(c, "Erro ao buscar franquias", err)
		return
	}
	httpkit.OK(c, franchises)
}

func (h *Handler) fail(c *gin.Context, message string, err error) {
	_ = c.Error(err)
	h.log.WithContext(c.Request.Context()).Error("dashboard query failed", "path", c.FullPath(), "error", err)
	httpkit.Error(c, http.StatusInternalServerError, message, nil)
}

func parseFilter(c *gin.Context) (LeadFilter, bool) {
	f := LeadFilter{Status: c.Query("status"), Query: c.Query("q")}
	if raw := c.Query("franchise"); raw != "" && raw != "all" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "franchise inválida", nil)
			return LeadFilter{}, false
		}
		f.FranchiseID = &id
	}
	return f, true
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
