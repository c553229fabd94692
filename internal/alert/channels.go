package alert

import (
	"context"
	"time"

	"wchic_backend/internal/email"
	"wchic_backend/platform/config"
	"wchic_backend/platform/logger"

	"github.com/getsentry/sentry-go"
)

// OpsMessenger sends WhatsApp text from the operations number.
type OpsMessenger interface {
	SendToOps(ctx context.Context, to, text string) error
}

type whatsAppChannel struct {
	messenger OpsMessenger
	to        string
}

func NewWhatsAppChannel(messenger OpsMessenger, to string) Channel {
	return &whatsAppChannel{messenger: messenger, to: to}
}

func (c *whatsAppChannel) Name() string { return "whatsapp" }

func (c *whatsAppChannel) Deliver(ctx context.Context, a Alert) error {
	return c.messenger.SendToOps(ctx, c.to, a.Text())
}

// Mailer sends one HTML e-mail.
type Mailer interface {
	Send(ctx context.Context, toEmail, subject, htmlContent string) error
}

type emailChannel struct {
	mailer Mailer
	to     string
}

func NewEmailChannel(mailer Mailer, to string) Channel {
	return &emailChannel{mailer: mailer, to: to}
}

func (c *emailChannel) Name() string { return "email" }

func (c *emailChannel) Deliver(ctx context.Context, a Alert) error {
	body, err := email.RenderAlert(email.AlertData{
		Label:     a.Label,
		Timestamp: a.Timestamp(),
		Message:   a.Message,
		Details:   a.DetailsJSON(),
	})
	if err != nil {
		return err
	}
	return c.mailer.Send(ctx, c.to, a.Subject(), body)
}

type sentryChannel struct {
	hub *sentry.Hub
}

// NewSentryChannel captures alerts as Sentry events on hub.
func NewSentryChannel(hub *sentry.Hub) Channel {
	return &sentryChannel{hub: hub}
}

func (c *sentryChannel) Name() string { return "sentry" }

func (c *sentryChannel) Deliver(_ context.Context, a Alert) error {
	hub := c.hub.Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelError)
		scope.SetTag("alert_kind", a.Kind)
		if len(a.Details) > 0 {
			scope.SetContext("alert", sentry.Context(a.Details))
		}
		hub.CaptureMessage(a.Label + ": " + a.Message)
	})
	return nil
}

// FromConfig builds the service with the channels whose settings are
// present. ops may be nil when WhatsApp is not configured.
func FromConfig(cfg config.AlertConfig, ops OpsMessenger, mailer Mailer, hub *sentry.Hub, log *logger.Logger) *Service {
	var channels []Channel
	if ops != nil && cfg.GetAlertWhatsAppTo() != "" {
		channels = append(channels, NewWhatsAppChannel(ops, cfg.GetAlertWhatsAppTo()))
	} else {
		log.Warn("whatsapp alerts disabled")
	}
	if mailer != nil && cfg.GetAlertEmailTo() != "" {
		channels = append(channels, NewEmailChannel(mailer, cfg.GetAlertEmailTo()))
	} else {
		log.Warn("e-mail alerts disabled")
	}
	if hub != nil && hub.Client() != nil {
		channels = append(channels, NewSentryChannel(hub))
	}
	return New(log, channels...)
}

// Flush waits for buffered Sentry events.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}
