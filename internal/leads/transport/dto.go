package transport

import (
	"time"

	"github.com/google/uuid"
)

// IntakeRequest is the lead-first gateway payload. Required fields are checked
// by the handler so the gateway keeps its Portuguese error message.
type IntakeRequest struct {
	Telefone  string `json:"telefone"`
	Cidade    string `json:"cidade"`
	Estado    string `json:"estado"`
	Mensagem  string `json:"mensagem"`
	EventDate string `json:"event_date" validate:"omitempty,isodate"`
}

type RoutedTo struct {
	FranchiseID  uuid.UUID `json:"franchise_id"`
	WorkspaceKey *string   `json:"workspace_key"`
	PodioAppID   *string   `json:"podio_app_id"`
}

type IntakeResponse struct {
	OK         bool      `json:"ok"`
	LeadID     uuid.UUID `json:"lead_id"`
	ExternalID string    `json:"external_id"`
	RoutedTo   *RoutedTo `json:"routed_to"`
}

type IntakeError struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

type ListLeadsQuery struct {
	Cidade      string `form:"cidade"`
	Estado      string `form:"estado"`
	FranchiseID string `form:"franchise_id" validate:"omitempty,uuid"`
}

type LeadResponse struct {
	ID                      uuid.UUID  `json:"id"`
	ExternalID              string     `json:"external_id"`
	PhoneE164               *string    `json:"phone_e164"`
	Source                  string     `json:"source"`
	FranchiseID             *uuid.UUID `json:"franchise_id"`
	FranchiseName           *string    `json:"franchise_name,omitempty"`
	Status                  string     `json:"status"`
	TerritoryStatus         *string    `json:"territory_status"`
	RoutedAt                *time.Time `json:"routed_at"`
	PodioItemIDFranqueadora *int64     `json:"podio_item_id_franqueadora"`
	PodioItemIDFranquia     *int64     `json:"podio_item_id_franquia"`
	Cidade                  *string    `json:"cidade,omitempty"`
	Estado                  *string    `json:"estado,omitempty"`
	IBGECode                *string    `json:"ibge_code,omitempty"`
	EventStartDate          *string    `json:"event_start_date,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}
