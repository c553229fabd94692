// Package qualification runs the WhatsApp qualification conversation: it asks
// the model for the next reply, sends it, and stores the event data the
// model extracted.
package qualification

import (
	"context"
	"fmt"

	"wchic_backend/internal/events"
	"wchic_backend/internal/ibge"
	"wchic_backend/internal/leads/domain"
	"wchic_backend/internal/leads/repository"
	"wchic_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	historyLimit      = 30
	alertGenericError = "generic_error"
	maxAlertDetail    = 200
)

var turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "qualification_turns_total",
	Help: "Qualification turns by result.",
}, []string{"result"})

type LeadStore interface {
	ListRecentMessages(ctx context.Context, leadID uuid.UUID, limit int) ([]repository.Message, error)
	InsertMessage(ctx context.Context, leadID uuid.UUID, role, content string, stage *string) error
	UpsertEvent(ctx context.Context, leadID uuid.UUID, ev repository.EventUpdate) error
}

type Locator interface {
	Find(ctx context.Context, cidade, uf string) (*ibge.Municipio, error)
}

type Sender interface {
	SendToClient(ctx context.Context, to, text string) error
}

type Alerter interface {
	Send(ctx context.Context, kind, message string, details map[string]any) error
}

type Service struct {
	store     LeadStore
	completer Completer
	locator   Locator
	sender    Sender
	bus       events.Bus
	alerts    Alerter
	log       *logger.Logger
}

type Deps struct {
	Store     LeadStore
	Completer Completer
	Locator   Locator
	Sender    Sender
	Bus       events.Bus
	Alerts    Alerter
	Log       *logger.Logger
}

func NewService(d Deps) *Service {
	return &Service{
		store:     d.Store,
		completer: d.Completer,
		locator:   d.Locator,
		sender:    d.Sender,
		bus:       d.Bus,
		alerts:    d.Alerts,
		log:       d.Log,
	}
}

// Process answers the latest customer message of a lead. Failures raise a
// generic_error alert and are returned.
func (s *Service) Process(ctx context.Context, leadID uuid.UUID, phoneE164 string) error {
	ctx = logger.ContextWithLeadID(ctx, leadID.String())
	log := s.log.WithContext(ctx)

	if s.completer == nil {
		log.Warn("qualification skipped, no model configured")
		turnsTotal.WithLabelValues("disabled").Inc()
		return nil
	}

	if err := s.process(ctx, leadID, phoneE164); err != nil {
		turnsTotal.WithLabelValues("failed").Inc()
		log.Error("qualification turn failed", "error", err)
		s.raise(ctx, leadID, err)
		return err
	}
	turnsTotal.WithLabelValues("answered").Inc()
	return nil
}

func (s *Service) process(ctx context.Context, leadID uuid.UUID, phoneE164 string) error {
	log := s.log.WithContext(ctx)

	history, err := s.store.ListRecentMessages(ctx, leadID, historyLimit)
	if err != nil {
		return fmt.Errorf("load conversation: %w", err)
	}
	if len(history) == 0 {
		return nil
	}

	turns := make([]Turn, 0, len(history))
	for _, m := range history {
		turns = append(turns, Turn{FromAgent: m.Role == domain.RoleAgent, Content: m.Content})
	}

	raw, err := s.completer.Complete(ctx, systemPrompt, turns)
	if err != nil {
		return err
	}
	message, data := ParseReply(raw)
	log.Info("qualification reply generated", "preview", preview(message), "has_data", data != nil)

	stage := domain.StageQualification
	if err := s.store.InsertMessage(ctx, leadID, domain.RoleAgent, message, &stage); err != nil {
		return fmt.Errorf("store agent reply: %w", err)
	}
	if err := s.sender.SendToClient(ctx, phoneE164, message); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}

	if data != nil && data.HasData() {
		return s.applyExtracted(ctx, leadID, data)
	}
	return nil
}

// applyExtracted writes lead_events; the routing trigger fires once the IBGE
// code lands, after which the lead is announced for Podio sync.
func (s *Service) applyExtracted(ctx context.Context, leadID uuid.UUID, data *Extracted) error {
	log := s.log.WithContext(ctx)
	ev := repository.EventUpdate{QualificacaoCompleta: data.QualificacaoCompleta}

	if data.Cidade != "" {
		cidade := string(data.Cidade)
		ev.Cidade = &cidade
	}
	if data.UF != "" {
		estado := ibge.ExpandUF(string(data.UF))
		ev.Estado = &estado
	}
	if data.Cidade != "" && s.locator != nil {
		m, err := s.locator.Find(ctx, string(data.Cidade), string(data.UF))
		if err != nil {
			log.Warn("ibge lookup failed", "cidade", data.Cidade, "error", err)
		} else if m != nil {
			ev.IBGECode = &m.IBGECode
			log.Info("ibge code found", "cidade", data.Cidade, "ibge_code", m.IBGECode)
		}
	}
	if d, ok := data.EventDate(); ok {
		ev.EventStartDate = &d
	}
	if data.PerfilEvento != "" {
		perfil := string(data.PerfilEvento)
		ev.PerfilEvento = &perfil
	}
	if n, ok := data.Guests(); ok {
		ev.PessoasEstimadas = &n
	}

	if err := s.store.UpsertEvent(ctx, leadID, ev); err != nil {
		return fmt.Errorf("store extracted data: %w", err)
	}
	log.Info("lead updated from qualification", "qualificacao_completa", data.QualificacaoCompleta, "has_ibge", ev.IBGECode != nil)

	if ev.IBGECode != nil && s.bus != nil {
		s.bus.Publish(ctx, events.LeadLocated{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
			Source:    domain.SourceWhatsApp,
			IBGECode:  *ev.IBGECode,
		})
	}
	return nil
}

func (s *Service) raise(ctx context.Context, leadID uuid.UUID, cause error) {
	if s.alerts == nil {
		return
	}
	detail := cause.Error()
	if len(detail) > maxAlertDetail {
		detail = detail[:maxAlertDetail]
	}
	err := s.alerts.Send(ctx, alertGenericError, "Erro na IA ao processar mensagem do WhatsApp", map[string]any{
		"lead_id": leadID.String(),
		"error":   detail,
	})
	if err != nil {
		s.log.WithContext(ctx).Warn("alert dispatch failed", "error", err)
	}
}

func preview(s string) string {
	r := []rune(s)
	if len(r) > 80 {
		return string(r[:80])
	}
	return s
}
