package transport

import (
	"time"

	"github.com/google/uuid"
)

type FranchiseRequest struct {
	Name          string  `json:"franchise_name" validate:"required,min=2,max=200"`
	Cidade        *string `json:"cidade" validate:"omitempty,max=120"`
	Estado        *string `json:"estado" validate:"omitempty,uf"`
	WhatsAppPhone *string `json:"whatsapp_phone" validate:"omitempty,max=32"`
	PodioAppID    *string `json:"podio_app_id" validate:"omitempty,numeric"`
	PodioViewURL  *string `json:"podio_view_url" validate:"omitempty,url"`
}

type FranchiseResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"franchise_name"`
	Cidade        *string   `json:"cidade"`
	Estado        *string   `json:"estado"`
	WhatsAppPhone *string   `json:"whatsapp_phone"`
	PodioAppID    *string   `json:"podio_app_id"`
	PodioViewURL  *string   `json:"podio_view_url"`
	WorkspaceKey  *string   `json:"workspace_key"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type TerritoryRequest struct {
	Cidade   string  `json:"cidade" validate:"required,max=120"`
	Estado   string  `json:"estado" validate:"required,uf"`
	IBGECode *string `json:"ibge_code" validate:"omitempty,numeric,len=7"`
}

type TerritoryResponse struct {
	ID          uuid.UUID `json:"id"`
	FranchiseID uuid.UUID `json:"franchise_id"`
	Cidade      string    `json:"cidade"`
	Estado      string    `json:"estado"`
	IBGECode    *string   `json:"ibge_code"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}
