package whatsapp

import (
	"context"
	"net/http"
	"slices"
	"time"

	"wchic_backend/internal/leads/repository"
	"wchic_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	alertWebhookError = "whatsapp_webhook_error"
	qualifyTimeout    = 60 * time.Second
	msgInvalidSig     = "invalid signature"
	msgInvalidPayload = "invalid payload"
	resultProcessed   = "processed"
	resultDuplicate   = "duplicate"
	resultIgnored     = "ignored"
	resultFailed      = "failed"
)

var messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "whatsapp_inbound_messages_total",
	Help: "Inbound WhatsApp messages by handling result.",
}, []string{"result"})

// LeadCapture records an inbound message against the sender's lead.
type LeadCapture interface {
	CaptureInbound(ctx context.Context, rawPhone, text string) (repository.Lead, error)
}

// Qualifier continues the conversation once a message is stored.
type Qualifier interface {
	Process(ctx context.Context, leadID uuid.UUID, phoneE164 string) error
}

type Alerter interface {
	Send(ctx context.Context, kind, message string, details map[string]any) error
}

type Handler struct {
	appSecret    string
	verifyTokens []string
	dedupe       *Deduper
	leads        LeadCapture
	qualifier    Qualifier
	alerts       Alerter
	log          *logger.Logger
}

type HandlerDeps struct {
	AppSecret    string
	VerifyTokens []string
	Dedupe       *Deduper
	Leads        LeadCapture
	Qualifier    Qualifier
	Alerts       Alerter
	Log          *logger.Logger
}

func NewHandler(d HandlerDeps) *Handler {
	return &Handler{
		appSecret:    d.AppSecret,
		verifyTokens: d.VerifyTokens,
		dedupe:       d.Dedupe,
		leads:        d.Leads,
		qualifier:    d.Qualifier,
		alerts:       d.Alerts,
		log:          d.Log,
	}
}

// Verify answers Meta's subscription handshake.
func (h *Handler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	if mode == "subscribe" && token != "" && slices.Contains(h.verifyTokens, token) {
		c.String(http.StatusOK, c.Query("hub.challenge"))
		return
	}
	h.log.Warn("whatsapp webhook verification rejected", "mode", mode)
	c.Status(http.StatusForbidden)
}

// Receive stores each new text message and hands the lead to qualification.
func (h *Handler) Receive(c *gin.Context) {
	ctx := c.Request.Context()
	log := h.log.WithContext(ctx)

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msgInvalidPayload})
		return
	}
	if !VerifySignature(h.appSecret, body, c.GetHeader("X-Hub-Signature-256")) {
		log.Warn("whatsapp webhook signature mismatch")
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": msgInvalidSig})
		return
	}

	messages, err := ParseIncomingMessages(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": msgInvalidPayload})
		return
	}

	for _, m := range messages {
		result := h.handleMessage(ctx, m)
		messagesTotal.WithLabelValues(result).Inc()
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) handleMessage(ctx context.Context, m IncomingMessage) string {
	log := h.log.WithContext(ctx)
	if m.Type != "text" || m.Text == "" {
		log.Debug("whatsapp message ignored", "type", m.Type, "message_id", m.ID)
		return resultIgnored
	}

	first, err := h.dedupe.FirstSeen(ctx, m.ID)
	if err != nil {
		log.Warn("whatsapp dedupe unavailable", "message_id", m.ID, "error", err)
	} else if !first {
		log.Info("whatsapp duplicate delivery", "message_id", m.ID)
		return resultDuplicate
	}

	lead, err := h.leads.CaptureInbound(ctx, m.From, m.Text)
	if err != nil {
		log.Error("whatsapp message capture failed", "message_id", m.ID, "error", err)
		go h.raise(context.WithoutCancel(ctx), "Falha ao registrar mensagem do WhatsApp", map[string]any{
			"message_id": m.ID,
			"error":      err.Error(),
		})
		return resultFailed
	}
	log.Info("whatsapp message captured", "lead_id", lead.ID, "message_id", m.ID)

	if h.qualifier != nil {
		phone := "+" + m.From
		if lead.PhoneE164 != nil {
			phone = *lead.PhoneE164
		}
		go h.qualify(context.WithoutCancel(ctx), lead.ID, phone)
	}
	return resultProcessed
}

func (h *Handler) qualify(ctx context.Context, leadID uuid.UUID, phone string) {
	ctx, cancel := context.WithTimeout(ctx, qualifyTimeout)
	defer cancel()
	if err := h.qualifier.Process(ctx, leadID, phone); err != nil {
		h.log.WithContext(ctx).Error("qualification failed", "lead_id", leadID, "error", err)
	}
}

func (h *Handler) raise(ctx context.Context, message string, details map[string]any) {
	if h.alerts == nil {
		return
	}
	if err := h.alerts.Send(ctx, alertWebhookError, message, details); err != nil {
		h.log.WithContext(ctx).Warn("alert dispatch failed", "error", err)
	}
}
