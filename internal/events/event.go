// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"wchic_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event     = events.Event
	Bus       = events.Bus
	Handler   = events.Handler
	BaseEvent = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadLocated is published once a lead has a geographic destination: the
// intake gateway routed it, or qualification found an IBGE code that the
// routing trigger can act on.
type LeadLocated struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	Source   string    `json:"source"`
	IBGECode string    `json:"ibgeCode,omitempty"`
}

func (e LeadLocated) EventName() string { return "leads.lead.located" }

// LeadNotRouted is published when the intake gateway found no franchise territory.
type LeadNotRouted struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Cidade string    `json:"cidade"`
	Estado string    `json:"estado"`
}

func (e LeadNotRouted) EventName() string { return "leads.lead.not_routed" }

// =============================================================================
// Podio Domain Events
// =============================================================================

// PodioSyncFailed is published when a background sync of a lead failed.
type PodioSyncFailed struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Error  string    `json:"error"`
}

func (e PodioSyncFailed) EventName() string { return "podio.sync.failed" }
