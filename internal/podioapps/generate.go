package podioapps

import (
	"encoding/json"
	"fmt"
	"time"

	"wchic_backend/internal/podio"
)

const statusDeleted = "deleted"

// appDefinition is the part of GET /app/{id} the mapping generator reads.
type appDefinition struct {
	AppID  int64      `json:"app_id"`
	Fields []appField `json:"fields"`
}

type appField struct {
	FieldID    int64  `json:"field_id"`
	ExternalID string `json:"external_id"`
	Type       string `json:"type"`
	Status     string `json:"status"`
	Config     struct {
		Label    string `json:"label"`
		Required bool   `json:"required"`
		Settings struct {
			Options []appOption `json:"options"`
		} `json:"settings"`
	} `json:"config"`
}

type appOption struct {
	ID     int64  `json:"id"`
	Text   string `json:"text"`
	Status string `json:"status"`
}

// GenerateMapping rebuilds the fields and categories of a workspace mapping
// from an exported app definition. The status and SLA sections of previous
// are carried over, and the result is validated like the embedded files.
func GenerateMapping(raw []byte, key podio.WorkspaceKey, name string, previous *podio.WorkspaceMapping, now time.Time) (*podio.WorkspaceMapping, []byte, error) {
	var app appDefinition
	if err := json.Unmarshal(raw, &app); err != nil {
		return nil, nil, fmt.Errorf("decode app %s: %w", key, err)
	}
	if len(app.Fields) == 0 {
		return nil, nil, fmt.Errorf("app %s has no fields", key)
	}

	m := &podio.WorkspaceMapping{
		WorkspaceKey:  key,
		WorkspaceName: name,
		AppID:         app.AppID,
		GeneratedAt:   now.UTC().Format(time.RFC3339),
		Fields:        make(map[string]podio.FieldMeta, len(app.Fields)),
		Categories:    make(map[string]podio.CategoryOptions),
	}
	if previous != nil {
		m.Status = previous.Status
		m.SLA = previous.SLA
		if name == "" {
			m.WorkspaceName = previous.WorkspaceName
		}
	}

	for _, f := range app.Fields {
		if f.ExternalID == "" || f.Status == statusDeleted {
			continue
		}
		m.Fields[f.ExternalID] = podio.FieldMeta{
			FieldID:  f.FieldID,
			Type:     f.Type,
			Label:    f.Config.Label,
			Required: f.Config.Required,
		}
		if f.Type != podio.FieldTypeCategory {
			continue
		}
		options := make(map[string]int64, len(f.Config.Settings.Options))
		for _, o := range f.Config.Settings.Options {
			if o.Text == "" || o.Status == statusDeleted {
				continue
			}
			options[o.Text] = o.ID
		}
		m.Categories[f.ExternalID] = podio.CategoryOptions{Options: options}
	}

	out, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, nil, err
	}
	validated, err := podio.ParseMapping(out)
	if err != nil {
		return nil, nil, fmt.Errorf("generated mapping for %s: %w", key, err)
	}
	return validated, append(out, '\n'), nil
}
