package podio

import (
	"fmt"
	"sort"
	"strings"
)

// WorkspaceKey names one Podio app this backend writes to.
type WorkspaceKey string

const (
	Franqueadora WorkspaceKey = "franqueadora"
	Campinas     WorkspaceKey = "campinas"
	LitoralNorte WorkspaceKey = "litoral_norte"
	RioBH        WorkspaceKey = "rio_bh"
)

// HeadOffice is the workspace every sync writes to.
const HeadOffice = Franqueadora

// Podio field types the translator distinguishes.
const (
	FieldTypeText     = "text"
	FieldTypeCategory = "category"
	FieldTypeDate     = "date"
	FieldTypeNumber   = "number"
	FieldTypePhone    = "phone"
	FieldTypeEmail    = "email"
)

// FieldMeta describes one app field, keyed in the mapping by its Podio external id.
type FieldMeta struct {
	FieldID  int64  `json:"field_id"`
	Type     string `json:"type"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
}

// CategoryOptions maps option text to option id for one category field.
type CategoryOptions struct {
	Options map[string]int64 `json:"options"`
}

// StatusMapping binds canonical lead statuses to one category field of the app.
// Values is the outbound table. Inbound holds explicit reverse entries for
// labels shared by more than one canonical status.
type StatusMapping struct {
	Field   string            `json:"field"`
	Values  map[string]string `json:"values"`
	Inbound map[string]string `json:"inbound,omitempty"`

	reverse map[string]string
}

// SLAMapping names the fields the SLA job checker reads on franchise items.
type SLAMapping struct {
	StageField      string   `json:"stage_field"`
	PostEventFields []string `json:"post_event_fields"`
}

// WorkspaceMapping is the static field schema of one workspace app.
type WorkspaceMapping struct {
	WorkspaceKey  WorkspaceKey               `json:"workspace_key"`
	WorkspaceName string                     `json:"workspace_name"`
	AppID         int64                      `json:"app_id"`
	GeneratedAt   string                     `json:"generated_at"`
	Fields        map[string]FieldMeta       `json:"fields"`
	Categories    map[string]CategoryOptions `json:"categories"`
	Status        *StatusMapping             `json:"status,omitempty"`
	SLA           *SLAMapping                `json:"sla,omitempty"`

	titleKey string
}

// TitleKey returns the field that holds the item title, resolved at load time.
func (m *WorkspaceMapping) TitleKey() string {
	return m.titleKey
}

// Field returns the metadata for an external id.
func (m *WorkspaceMapping) Field(key string) (FieldMeta, bool) {
	meta, ok := m.Fields[key]
	return meta, ok
}

// OptionID resolves a category label.
func (m *WorkspaceMapping) OptionID(field, label string) (int64, bool) {
	cat, ok := m.Categories[field]
	if !ok {
		return 0, false
	}
	id, ok := cat.Options[label]
	return id, ok
}

// StatusLabel returns the vendor label for a canonical status.
func (m *WorkspaceMapping) StatusLabel(canonical string) (string, bool) {
	if m.Status == nil {
		return "", false
	}
	label, ok := m.Status.Values[canonical]
	return label, ok
}

// DefaultStatusLabel is what a sync writes to a status field that has no
// label for the lead's current status.
const DefaultStatusLabel = "Novo"

// WrittenStatusLabel is the label a sync writes for canonical in this workspace.
func (m *WorkspaceMapping) WrittenStatusLabel(canonical string) string {
	if label, ok := m.StatusLabel(canonical); ok {
		return label
	}
	return DefaultStatusLabel
}

// CanonicalStatus maps a vendor label back to the canonical status of this workspace.
func (m *WorkspaceMapping) CanonicalStatus(label string) (string, bool) {
	if m.Status == nil {
		return "", false
	}
	status, ok := m.Status.reverse[label]
	return status, ok
}

// resolveTitleKey prefers "title", then a text field labeled Nome, then the
// first required text field in key order.
func (m *WorkspaceMapping) resolveTitleKey() string {
	if _, ok := m.Fields["title"]; ok {
		return "title"
	}

	keys := m.sortedFieldKeys()
	for _, key := range keys {
		meta := m.Fields[key]
		if meta.Type == FieldTypeText && meta.Label == "Nome" {
			return key
		}
	}
	for _, key := range keys {
		meta := m.Fields[key]
		if meta.Type == FieldTypeText && meta.Required {
			return key
		}
	}
	return ""
}

func (m *WorkspaceMapping) sortedFieldKeys() []string {
	keys := make([]string, 0, len(m.Fields))
	for key := range m.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// validate checks the structure the translator, status sync and SLA jobs rely on
// and resolves the derived lookups.
func (m *WorkspaceMapping) validate() error {
	var problems []string

	if m.WorkspaceKey == "" {
		problems = append(problems, "workspace_key is empty")
	}
	if m.AppID <= 0 {
		problems = append(problems, "app_id is missing")
	}

	m.titleKey = m.resolveTitleKey()
	if m.titleKey == "" {
		problems = append(problems, "no title-capable text field")
	}

	for key, meta := range m.Fields {
		if meta.Type != FieldTypeCategory {
			continue
		}
		if _, ok := m.Categories[key]; !ok {
			problems = append(problems, fmt.Sprintf("category field %q has no options table", key))
		}
	}

	if m.Status != nil {
		problems = append(problems, m.validateStatus()...)
	}

	if m.SLA != nil {
		if _, ok := m.Fields[m.SLA.StageField]; !ok {
			problems = append(problems, fmt.Sprintf("sla stage field %q not in app", m.SLA.StageField))
		}
		for _, key := range m.SLA.PostEventFields {
			if _, ok := m.Fields[key]; !ok {
				problems = append(problems, fmt.Sprintf("sla post-event field %q not in app", key))
			}
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("workspace %s: %s", m.WorkspaceKey, strings.Join(problems, "; "))
	}
	return nil
}

func (m *WorkspaceMapping) validateStatus() []string {
	var problems []string
	st := m.Status

	meta, ok := m.Fields[st.Field]
	if !ok {
		return []string{fmt.Sprintf("status field %q not in app", st.Field)}
	}
	if meta.Type != FieldTypeCategory {
		return []string{fmt.Sprintf("status field %q is %s, want category", st.Field, meta.Type)}
	}

	byLabel := make(map[string][]string)
	for canonical, label := range st.Values {
		if _, ok := m.OptionID(st.Field, label); !ok {
			problems = append(problems, fmt.Sprintf("status label %q is not an option of %q", label, st.Field))
		}
		byLabel[label] = append(byLabel[label], canonical)
	}

	st.reverse = make(map[string]string, len(byLabel))
	for label, canonicals := range byLabel {
		if explicit, ok := st.Inbound[label]; ok {
			st.reverse[label] = explicit
			continue
		}
		if len(canonicals) > 1 {
			sort.Strings(canonicals)
			problems = append(problems, fmt.Sprintf("status label %q is shared by %s without an inbound entry", label, strings.Join(canonicals, ", ")))
			continue
		}
		st.reverse[label] = canonicals[0]
	}
	for label, canonical := range st.Inbound {
		if _, ok := m.OptionID(st.Field, label); !ok {
			problems = append(problems, fmt.Sprintf("inbound label %q is not an option of %q", label, st.Field))
		}
		st.reverse[label] = canonical
	}
	return problems
}
