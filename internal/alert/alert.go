// Package alert notifies operations about failures over every configured
// channel. Delivery is settle-all: one channel failing never blocks another.
package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"wchic_backend/platform/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"
)

// Alert kinds.
const (
	PodioSyncError       = "podio_sync_error"
	LeadNotRouted        = "lead_not_routed"
	WhatsAppWebhookError = "whatsapp_webhook_error"
	DatabaseError        = "database_error"
	GenericError         = "generic_error"
)

var labels = map[string]string{
	PodioSyncError:       "🔴 Podio Sync Falhou",
	LeadNotRouted:        "🟡 Lead Sem Roteamento",
	WhatsAppWebhookError: "🔴 Erro no Webhook WhatsApp",
	DatabaseError:        "🔴 Erro de Banco de Dados",
	GenericError:         "🔴 Erro no Sistema",
}

const deliverTimeout = 20 * time.Second

var deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "alert_deliveries_total",
	Help: "Alert deliveries by channel and result.",
}, []string{"channel", "result"})

var saoPaulo = loadSaoPaulo()

func loadSaoPaulo() *time.Location {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		return time.FixedZone("BRT", -3*60*60)
	}
	return loc
}

// Alert is one notification as every channel sees it.
type Alert struct {
	Kind    string
	Label   string
	Message string
	Details map[string]any
	At      time.Time
}

// Timestamp renders At in São Paulo time, pt-BR style.
func (a Alert) Timestamp() string {
	return a.At.In(saoPaulo).Format("02/01/2006, 15:04:05")
}

// Text is the chat rendering used by WhatsApp.
func (a Alert) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "*[WChic Alert]*\n%s\n📅 %s\n📝 %s", a.Label, a.Timestamp(), a.Message)
	if len(a.Details) == 0 {
		return b.String()
	}
	b.WriteString("\n")
	for _, k := range sortedKeys(a.Details) {
		fmt.Fprintf(&b, "\n• *%s:* %s", k, detailValue(a.Details[k]))
	}
	return b.String()
}

// Subject is the e-mail subject line.
func (a Alert) Subject() string {
	return "[WChic] " + a.Label
}

// DetailsJSON is the indented details block, empty without details.
func (a Alert) DetailsJSON() string {
	if len(a.Details) == 0 {
		return ""
	}
	out, err := json.MarshalIndent(a.Details, "", "  ")
	if err != nil {
		return fmt.Sprint(a.Details)
	}
	return string(out)
}

// Channel delivers alerts to one destination.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, a Alert) error
}

type Service struct {
	channels []Channel
	log      *logger.Logger
	now      func() time.Time
}

func New(log *logger.Logger, channels ...Channel) *Service {
	return &Service{channels: channels, log: log, now: time.Now}
}

// Send fans the alert out to every channel and waits for all of them.
// The returned error joins the channel failures.
func (s *Service) Send(ctx context.Context, kind, message string, details map[string]any) error {
	label, ok := labels[kind]
	if !ok {
		kind, label = GenericError, labels[GenericError]
	}
	a := Alert{Kind: kind, Label: label, Message: message, Details: details, At: s.now()}
	log := s.log.WithContext(ctx)
	log.Warn("alert raised", "kind", kind, "message", message)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliverTimeout)
	defer cancel()

	errs := make([]error, len(s.channels))
	var g errgroup.Group
	for i, ch := range s.channels {
		g.Go(func() error {
			if err := ch.Deliver(ctx, a); err != nil {
				deliveriesTotal.WithLabelValues(ch.Name(), "failed").Inc()
				log.Error("alert delivery failed", "channel", ch.Name(), "kind", kind, "error", err)
				errs[i] = fmt.Errorf("%s: %w", ch.Name(), err)
				return nil
			}
			deliveriesTotal.WithLabelValues(ch.Name(), "sent").Inc()
			log.Info("alert delivered", "channel", ch.Name(), "kind", kind)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func detailValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case map[string]any, []any:
		out, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(out)
	default:
		return fmt.Sprint(t)
	}
}
