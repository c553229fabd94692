package statussync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"wchic_backend/internal/leads/domain"
	"wchic_backend/platform/httpkit"
	"wchic_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	hookTypeVerify    = "hook.verify"
	reconcileTimeout  = 30 * time.Second
	msgMissingHookID  = "missing hook_id"
	msgInvalidStatus  = "status inválido"
	msgInvalidRequest = "invalid request"
)

var webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "podio_webhook_events_total",
	Help: "Podio webhook deliveries by type.",
}, []string{"type"})

// ReconcileEnqueuer hands inbound hooks to the background worker.
type ReconcileEnqueuer interface {
	EnqueueHookReconcile(ctx context.Context, hook InboundHook) error
}

type Handler struct {
	svc   *Service
	queue ReconcileEnqueuer
	log   *logger.Logger
}

func NewHandler(svc *Service, queue ReconcileEnqueuer, log *logger.Logger) *Handler {
	return &Handler{svc: svc, queue: queue, log: log}
}

type hookPayload struct {
	Type   string
	HookID string
	Code   string
	ItemID string
	AppID  string
}

type statusRequest struct {
	Status string `json:"status"`
}

// Webhook receives Podio hook deliveries. Verification is answered inline;
// item events are acknowledged first and reconciled in the background.
func (h *Handler) Webhook(c *gin.Context) {
	p := readHookPayload(c)
	webhookEventsTotal.WithLabelValues(p.Type).Inc()
	log := h.log.WithContext(c.Request.Context())
	log.Info("podio webhook received", "type", p.Type, "item_id", p.ItemID)

	if p.Type == hookTypeVerify {
		hookID, err := strconv.ParseInt(p.HookID, 10, 64)
		if err != nil || hookID == 0 {
			log.Warn("podio hook.verify without hook_id")
			c.String(http.StatusBadRequest, msgMissingHookID)
			return
		}
		if err := h.svc.ValidateHook(c.Request.Context(), c.Query("workspace"), hookID, p.Code); err != nil {
			log.Error("podio hook verification failed", "hook_id", hookID, "error", err)
		}
		c.String(http.StatusOK, "OK")
		return
	}

	c.String(http.StatusOK, "OK")

	itemID, err := strconv.ParseInt(p.ItemID, 10, 64)
	if err != nil || itemID == 0 {
		return
	}
	appID, _ := strconv.ParseInt(p.AppID, 10, 64)
	hook := InboundHook{ItemID: itemID, AppID: appID, Workspace: c.Query("workspace")}

	ctx := context.WithoutCancel(c.Request.Context())
	if h.queue != nil {
		err := h.queue.EnqueueHookReconcile(ctx, hook)
		if err == nil {
			return
		}
		log.Warn("podio reconcile enqueue failed, running inline", "error", err)
	}
	go func() {
		ctx, cancel := context.WithTimeout(ctx, reconcileTimeout)
		defer cancel()
		h.svc.Reconcile(ctx, hook)
	}()
}

// SetStatus changes a lead's status and pushes it to Podio.
func (h *Handler) SetStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	status, ok := domain.ParseStatus(req.Status)
	if !ok {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidStatus, domain.Statuses())
		return
	}

	res, err := h.svc.PushStatus(c.Request.Context(), id, status)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, res)
}

// readHookPayload accepts the form encoding Podio uses as well as JSON, with
// fields either at the top level or under "data".
func readHookPayload(c *gin.Context) hookPayload {
	if strings.HasPrefix(c.ContentType(), "application/json") {
		var body map[string]any
		if err := json.NewDecoder(c.Request.Body).Decode(&body); err != nil {
			return hookPayload{}
		}
		data, _ := body["data"].(map[string]any)
		get := func(key string) string {
			if v, ok := body[key]; ok && v != nil {
				return stringify(v)
			}
			if v, ok := data[key]; ok && v != nil {
				return stringify(v)
			}
			return ""
		}
		return hookPayload{Type: get("type"), HookID: get("hook_id"), Code: get("code"), ItemID: get("item_id"), AppID: get("app_id")}
	}

	return hookPayload{
		Type:   c.PostForm("type"),
		HookID: c.PostForm("hook_id"),
		Code:   c.PostForm("code"),
		ItemID: c.PostForm("item_id"),
		AppID:  c.PostForm("app_id"),
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatInt(int64(t), 10)
	default:
		return fmt.Sprint(t)
	}
}
