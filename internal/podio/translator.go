package podio

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Drop reasons recorded on a Translation.
const (
	DropUnmappedField    = "unmapped_field"
	DropUnknownOption    = "unknown_option"
	DropUnsupportedValue = "unsupported_value"
)

// DroppedField is a canonical value that did not make it into the payload.
type DroppedField struct {
	Field  string
	Reason string
	Value  any
}

// Translation is the payload for one workspace plus whatever had to be left out.
type Translation struct {
	Fields  map[string]any
	Dropped []DroppedField
}

// DroppedFor filters Dropped to the given reasons.
func (t Translation) DroppedFor(reasons ...string) []DroppedField {
	out := make([]DroppedField, 0, len(t.Dropped))
	for _, d := range t.Dropped {
		for _, r := range reasons {
			if d.Reason == r {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

// Translate converts a canonical lead into the Podio field payload of one workspace.
// Values that cannot be encoded are dropped and reported, never returned as errors.
func Translate(m *WorkspaceMapping, lead CanonicalLead) Translation {
	out := Translation{Fields: make(map[string]any, len(lead.Fields))}

	keys := make([]string, 0, len(lead.Fields))
	for key := range lead.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := lead.Fields[key]
		meta, ok := m.Fields[key]
		if !ok {
			out.drop(key, DropUnmappedField, value)
			continue
		}
		if meta.Type != FieldTypeCategory {
			out.Fields[key] = value
			continue
		}

		switch v := value.(type) {
		case []string:
			out.setOptionList(m, key, anySlice(v))
		case []int64:
			out.setOptionList(m, key, anySlice(v))
		case []any:
			out.setOptionList(m, key, v)
		default:
			if id, ok := out.optionValue(m, key, value); ok {
				out.Fields[key] = id
			}
		}
	}

	out.ensureTitle(m.TitleKey(), lead)
	return out
}

// setOptionList resolves each element on its own and keeps the ones that resolve.
func (t *Translation) setOptionList(m *WorkspaceMapping, key string, values []any) {
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		resolved, ok := t.optionValue(m, key, v)
		if !ok {
			continue
		}
		if id, ok := optionInt(resolved); ok {
			ids = append(ids, id)
		} else {
			t.drop(key, DropUnsupportedValue, resolved)
		}
	}
	if len(ids) > 0 {
		t.Fields[key] = ids
	}
}

func optionInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), n == float64(int64(n))
	case json.Number:
		id, err := n.Int64()
		return id, err == nil
	}
	return 0, false
}

// optionValue resolves a label to its option id; numbers are ids already.
func (t *Translation) optionValue(m *WorkspaceMapping, key string, value any) (any, bool) {
	switch v := value.(type) {
	case string:
		id, ok := m.OptionID(key, v)
		if !ok {
			t.drop(key, DropUnknownOption, v)
		}
		return id, ok
	case int, int32, int64, float64, json.Number:
		return v, true
	default:
		t.drop(key, DropUnsupportedValue, fmt.Sprintf("%T", value))
		return nil, false
	}
}

func anySlice[T any](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func (t *Translation) drop(field, reason string, value any) {
	t.Dropped = append(t.Dropped, DroppedField{Field: field, Reason: reason, Value: value})
}

func (t *Translation) ensureTitle(titleKey string, lead CanonicalLead) {
	if titleKey == "" {
		return
	}
	if current, ok := t.Fields[titleKey].(string); ok && strings.TrimSpace(current) != "" {
		return
	}
	if title, ok := lead.Fields["title"].(string); ok && strings.TrimSpace(title) != "" {
		t.Fields[titleKey] = title
		return
	}
	t.Fields[titleKey] = "Lead WhatsApp - " + lead.ExternalID
}
