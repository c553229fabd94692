// Package statussync keeps the canonical lead status and the status fields of
// the Podio workspaces in step, in both directions.
package statussync

import (
	"fmt"
	"sort"
	"strings"

	"wchic_backend/internal/leads/domain"
	"wchic_backend/internal/podio"
)

// Mapper translates canonical statuses to workspace labels and back. Reverse
// lookups are scoped to the workspace that emitted the label.
type Mapper struct {
	registry *podio.Registry
}

// NewMapper checks that every status table in the registry only names
// canonical statuses.
func NewMapper(registry *podio.Registry) (*Mapper, error) {
	var problems []string
	for _, key := range registry.Keys() {
		m, err := registry.Workspace(key)
		if err != nil {
			return nil, err
		}
		if m.Status == nil {
			continue
		}
		for canonical := range m.Status.Values {
			if _, ok := domain.ParseStatus(canonical); !ok {
				problems = append(problems, fmt.Sprintf("%s: unknown status %q", key, canonical))
			}
		}
		for label, canonical := range m.Status.Inbound {
			if _, ok := domain.ParseStatus(canonical); !ok {
				problems = append(problems, fmt.Sprintf("%s: inbound %q maps to unknown status %q", key, label, canonical))
			}
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, fmt.Errorf("invalid status mappings: %s", strings.Join(problems, "; "))
	}
	return &Mapper{registry: registry}, nil
}

// Outbound is the field write that represents a canonical status in one workspace.
type Outbound struct {
	Field    string
	Label    string
	OptionID int64
}

func (m *Mapper) Outbound(key podio.WorkspaceKey, status domain.Status) (Outbound, bool) {
	ws, err := m.registry.Workspace(key)
	if err != nil || ws.Status == nil {
		return Outbound{}, false
	}
	label, ok := ws.StatusLabel(string(status))
	if !ok {
		return Outbound{}, false
	}
	id, ok := ws.OptionID(ws.Status.Field, label)
	if !ok {
		return Outbound{}, false
	}
	return Outbound{Field: ws.Status.Field, Label: label, OptionID: id}, true
}

// Inbound resolves a label read from one workspace.
func (m *Mapper) Inbound(key podio.WorkspaceKey, label string) (domain.Status, bool) {
	ws, err := m.registry.Workspace(key)
	if err != nil {
		return "", false
	}
	raw, ok := ws.CanonicalStatus(strings.TrimSpace(label))
	if !ok {
		return "", false
	}
	return domain.ParseStatus(raw)
}

// WrittenLabel is the label this system writes for status in one workspace,
// either by a status push or by a lead sync.
func (m *Mapper) WrittenLabel(key podio.WorkspaceKey, status domain.Status) (string, bool) {
	ws, err := m.registry.Workspace(key)
	if err != nil || ws.Status == nil {
		return "", false
	}
	return ws.WrittenStatusLabel(string(status)), true
}

// StatusField names the status field of a workspace, empty when it has none.
func (m *Mapper) StatusField(key podio.WorkspaceKey) string {
	ws, err := m.registry.Workspace(key)
	if err != nil || ws.Status == nil {
		return ""
	}
	return ws.Status.Field
}
