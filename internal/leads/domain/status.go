// Package domain holds the lead lifecycle vocabulary shared by intake, status
// sync and the dashboards.
package domain

import "strings"

// Status is the canonical lead status, independent of any Podio workspace.
type Status string

const (
	StatusNew        Status = "new"
	StatusRouted     Status = "routed"
	StatusIncomplete Status = "incomplete"
	StatusError      Status = "error"
	StatusAbandoned  Status = "abandoned"
	StatusContacted  Status = "contacted"
	StatusQuoted     Status = "quoted"
	StatusNoResponse Status = "no_response"
	StatusRejected   Status = "rejected"
	StatusCancelled  Status = "cancelled"
	StatusClosed     Status = "closed"
)

var allStatuses = []Status{
	StatusNew, StatusRouted, StatusIncomplete, StatusError, StatusAbandoned,
	StatusContacted, StatusQuoted, StatusNoResponse, StatusRejected, StatusCancelled, StatusClosed,
}

// Statuses lists every canonical status.
func Statuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus accepts a canonical status in any case.
func ParseStatus(raw string) (Status, bool) {
	candidate := Status(strings.ToLower(strings.TrimSpace(raw)))
	for _, s := range allStatuses {
		if s == candidate {
			return s, true
		}
	}
	return "", false
}

// Message roles stored in lead_messages.
const (
	RoleUser   = "user"
	RoleAgent  = "agent"
	RoleSystem = "system"
)

// Message stages.
const (
	StageIntake        = "intake"
	StageQualification = "qualification"
)

// Lead sources.
const (
	SourceWhatsApp = "whatsapp"
	SourceGateway  = "gateway"
)

// Territory status values written when a lead is routed.
const (
	TerritoryActive   = "ativo"
	TerritoryInactive = "inativo"
	TerritoryFallback = "fallback"
)
