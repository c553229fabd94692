package podiosync

import (
	"maps"
	"strconv"
	"strings"
	"time"

	"wchic_backend/internal/ibge"
	"wchic_backend/internal/podio"

	"github.com/google/uuid"
)

// Snapshot is the lead, event and franchise data a sync reads in one query.
type Snapshot struct {
	LeadID           uuid.UUID
	ExternalID       string
	PhoneE164        *string
	Source           string
	FranchiseID      *uuid.UUID
	Status           string
	Cidade           *string
	Estado           *string
	IBGECode         *string
	EventStartDate   *time.Time
	EventEndDate     *time.Time
	PerfilEvento     *string
	PessoasEstimadas *int
	Decisor          *bool
	FranchiseName    *string
	PodioAppID       *string
}

type canonicalBuilder struct {
	fields map[string]any
}

func (b canonicalBuilder) set(key string, value any) {
	for _, target := range FieldAliases[key] {
		b.fields[target.Field] = value
	}
}

// BuildCanonical assembles the record written to every workspace of a sync.
// routed is the franchise workspace and only affects the head-office area field.
func BuildCanonical(s Snapshot, routed podio.WorkspaceKey, now time.Time) podio.CanonicalLead {
	b := canonicalBuilder{fields: make(map[string]any)}
	today := podio.DayStart(now)

	phone := ""
	if s.PhoneE164 != nil {
		phone = *s.PhoneE164
	}

	b.set(KeyTitle, buildTitle(s))
	b.set(KeyExternalID, s.ExternalID)
	b.set(KeyPhone, phone)
	b.set(KeyStatus, podio.DefaultStatusLabel)
	b.set(KeyInterest, "Evento")
	b.set(KeyOrigin, "WhatsApp")
	b.set(KeyContactDate, today)

	if label, ok := franchiseAreaLabels[routed]; ok {
		b.set(KeyFranchiseArea, label)
	}
	if v := nonEmpty(s.Cidade); v != "" {
		b.set(KeyCity, v)
	}
	if v := nonEmpty(s.Estado); v != "" {
		b.set(KeyState, ibge.ExpandUF(v))
	}
	if v := nonEmpty(s.IBGECode); v != "" {
		b.set(KeyIBGE, v)
	}
	if s.EventStartDate != nil {
		b.set(KeyEventDate, podio.DayStart(*s.EventStartDate))
		b.set(KeyFirstContactDate, today)
	}
	if v := nonEmpty(s.PerfilEvento); v != "" {
		b.set(KeyEventProfile, v)
	}
	if s.PessoasEstimadas != nil && *s.PessoasEstimadas > 0 {
		b.set(KeyGuests, strconv.Itoa(*s.PessoasEstimadas))
	}
	if s.Decisor != nil {
		if *s.Decisor {
			b.set(KeyDecisionMaker, "Sim")
		} else {
			b.set(KeyDecisionMaker, "Não")
		}
	}

	return podio.CanonicalLead{ExternalID: s.ExternalID, Fields: b.fields}
}

// ForWorkspace sets the status label ws uses for status on a copy of lead.
// Only a status field the canonical record already carries is replaced, so a
// workspace whose status is managed by hand keeps it.
func ForWorkspace(lead podio.CanonicalLead, ws *podio.WorkspaceMapping, status string) podio.CanonicalLead {
	if ws == nil || ws.Status == nil {
		return lead
	}
	if _, ok := lead.Fields[ws.Status.Field]; !ok {
		return lead
	}
	fields := maps.Clone(lead.Fields)
	fields[ws.Status.Field] = ws.WrittenStatusLabel(status)
	return podio.CanonicalLead{ExternalID: lead.ExternalID, Fields: fields}
}

func buildTitle(s Snapshot) string {
	phone := "sem-telefone"
	if v := nonEmpty(s.PhoneE164); v != "" {
		phone = v
	}
	title := "Lead WA " + phone
	if v := nonEmpty(s.Cidade); v != "" {
		title += " — " + v
	}
	if s.EventStartDate != nil {
		title += " (" + s.EventStartDate.Format(time.DateOnly) + ")"
	}
	return title
}

func nonEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
