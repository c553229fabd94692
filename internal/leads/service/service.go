package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"wchic_backend/internal/events"
	"wchic_backend/internal/leads/domain"
	"wchic_backend/internal/leads/repository"
	"wchic_backend/internal/leads/transport"
	"wchic_backend/platform/apperr"
	"wchic_backend/platform/logger"
	"wchic_backend/platform/phone"
	"wchic_backend/platform/sanitize"

	"github.com/google/uuid"
)

var ErrLeadNotFound = errors.New("lead not found")

// Repository is the persistence the lead services need.
type Repository interface {
	FindOrCreate(ctx context.Context, externalID, phoneE164, source string) (repository.Lead, bool, error)
	FindLatestByPhone(ctx context.Context, phoneE164 string) (repository.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	UpdateRouting(ctx context.Context, id uuid.UUID, franchiseID *uuid.UUID, territoryStatus *string) error
	InsertMessage(ctx context.Context, leadID uuid.UUID, role, content string, stage *string) error
	UpsertEvent(ctx context.Context, leadID uuid.UUID, ev repository.EventUpdate) error
	List(ctx context.Context, f repository.ListFilter) ([]repository.LeadListItem, error)
}

// RoutedFranchise is the franchise a city/state pair belongs to.
type RoutedFranchise struct {
	ID           uuid.UUID
	WorkspaceKey *string
	PodioAppID   *string
}

// FranchiseRouter resolves territories.
type FranchiseRouter interface {
	FindByCityState(ctx context.Context, cidade, estado string) (*RoutedFranchise, error)
}

type Service struct {
	repo   Repository
	router FranchiseRouter
	bus    events.Bus
	log    *logger.Logger
}

func New(repo Repository, router FranchiseRouter, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, router: router, bus: bus, log: log}
}

// Intake registers a lead coming through the gateway and routes it by city and state.
func (s *Service) Intake(ctx context.Context, req transport.IntakeRequest) (transport.IntakeResponse, error) {
	phoneE164 := phone.NormalizeE164(req.Telefone)
	if phoneE164 == "" {
		return transport.IntakeResponse{}, apperr.Validation("telefone inválido")
	}
	eventDate := strings.TrimSpace(req.EventDate)
	externalID := domain.ExternalID(phoneE164, eventDate)

	lead, created, err := s.repo.FindOrCreate(ctx, externalID, phoneE164, domain.SourceWhatsApp)
	if err != nil {
		return transport.IntakeResponse{}, err
	}
	ctx = logger.ContextWithLeadID(ctx, lead.ID.String())
	log := s.log.WithContext(ctx)

	if msg := sanitize.Text(req.Mensagem); msg != "" {
		stage := domain.StageIntake
		if err := s.repo.InsertMessage(ctx, lead.ID, domain.RoleUser, msg, &stage); err != nil {
			return transport.IntakeResponse{}, err
		}
	}

	cidade := sanitize.Line(req.Cidade)
	estado := sanitize.Line(req.Estado)
	ev := repository.EventUpdate{Cidade: &cidade, Estado: &estado}
	if eventDate != "" {
		if d, err := time.Parse(time.DateOnly, eventDate); err == nil {
			ev.EventStartDate = &d
		}
	}
	if err := s.repo.UpsertEvent(ctx, lead.ID, ev); err != nil {
		return transport.IntakeResponse{}, err
	}

	franchise, err := s.router.FindByCityState(ctx, cidade, estado)
	if err != nil {
		return transport.IntakeResponse{}, err
	}

	resp := transport.IntakeResponse{OK: true, LeadID: lead.ID, ExternalID: lead.ExternalID}
	if franchise == nil {
		log.Info("intake lead not routed", "cidade", cidade, "estado", estado, "created", created)
		s.bus.Publish(ctx, events.LeadNotRouted{BaseEvent: events.NewBaseEvent(), LeadID: lead.ID, Cidade: cidade, Estado: estado})
		return resp, nil
	}

	territory := domain.TerritoryActive
	if err := s.repo.UpdateRouting(ctx, lead.ID, &franchise.ID, &territory); err != nil {
		return transport.IntakeResponse{}, err
	}
	resp.RoutedTo = &transport.RoutedTo{
		FranchiseID:  franchise.ID,
		WorkspaceKey: franchise.WorkspaceKey,
		PodioAppID:   franchise.PodioAppID,
	}

	log.Info("intake lead routed", "franchise_id", franchise.ID, "created", created)
	s.bus.Publish(ctx, events.LeadLocated{BaseEvent: events.NewBaseEvent(), LeadID: lead.ID, Source: domain.SourceGateway})
	return resp, nil
}

// CaptureInbound stores an inbound WhatsApp text on the caller's current lead,
// creating a date-less lead for first contacts.
func (s *Service) CaptureInbound(ctx context.Context, rawPhone, text string) (repository.Lead, error) {
	phoneE164 := phone.NormalizeE164(rawPhone)
	if phoneE164 == "" {
		return repository.Lead{}, apperr.Validation("invalid sender phone")
	}

	lead, err := s.repo.FindLatestByPhone(ctx, phoneE164)
	stage := domain.StageQualification
	if errors.Is(err, repository.ErrNotFound) {
		lead, _, err = s.repo.FindOrCreate(ctx, domain.ExternalID(phoneE164, ""), phoneE164, domain.SourceWhatsApp)
		stage = domain.StageIntake
	}
	if err != nil {
		return repository.Lead{}, err
	}

	if err := s.repo.InsertMessage(ctx, lead.ID, domain.RoleUser, sanitize.Text(text), &stage); err != nil {
		return repository.Lead{}, err
	}
	return lead, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.LeadResponse{}, apperr.NotFound("Lead não encontrado").WithOp("leads.GetByID")
	}
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toResponse(repository.LeadListItem{Lead: lead}), nil
}

func (s *Service) List(ctx context.Context, q transport.ListLeadsQuery) ([]transport.LeadResponse, error) {
	filter := repository.ListFilter{Cidade: strings.TrimSpace(q.Cidade), Estado: strings.TrimSpace(q.Estado)}
	if q.FranchiseID != "" {
		id, err := uuid.Parse(q.FranchiseID)
		if err != nil {
			return nil, apperr.Validation("franchise_id inválido")
		}
		filter.FranchiseID = &id
	}

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]transport.LeadResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toResponse(it))
	}
	return out, nil
}

func toResponse(it repository.LeadListItem) transport.LeadResponse {
	resp := transport.LeadResponse{
		ID:                      it.ID,
		ExternalID:              it.ExternalID,
		PhoneE164:               it.PhoneE164,
		Source:                  it.Source,
		FranchiseID:             it.FranchiseID,
		FranchiseName:           it.FranchiseName,
		Status:                  it.Status,
		TerritoryStatus:         it.TerritoryStatus,
		RoutedAt:                it.RoutedAt,
		PodioItemIDFranqueadora: it.PodioItemIDFranqueadora,
		PodioItemIDFranquia:     it.PodioItemIDFranquia,
		Cidade:                  it.Cidade,
		Estado:                  it.Estado,
		IBGECode:                it.IBGECode,
		CreatedAt:               it.CreatedAt,
		UpdatedAt:               it.UpdatedAt,
	}
	if it.EventStart != nil {
		d := it.EventStart.Format(time.DateOnly)
		resp.EventStartDate = &d
	}
	return resp
}
