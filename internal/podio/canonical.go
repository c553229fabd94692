package podio

import "time"

// CanonicalLead is the vendor-agnostic lead record. Fields are keyed by Podio
// external ids; workspaces that lack a key simply ignore it.
type CanonicalLead struct {
	ExternalID string
	Fields     map[string]any
}

// DateValue is the Podio date field payload.
type DateValue struct {
	Start string `json:"start"`
}

// ContactValue is one entry of a Podio phone or email field.
type ContactValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

const podioDateLayout = "2006-01-02 15:04:05"

// DayStart wraps the calendar day of t at midnight.
func DayStart(t time.Time) DateValue {
	return DateValue{Start: t.Format(time.DateOnly) + " 00:00:00"}
}

// DateFromISO wraps a YYYY-MM-DD string, accepting full timestamps too.
func DateFromISO(day string) (DateValue, bool) {
	if len(day) >= len(time.DateOnly) {
		day = day[:len(time.DateOnly)]
	}
	t, err := time.Parse(time.DateOnly, day)
	if err != nil {
		return DateValue{}, false
	}
	return DateValue{Start: t.Format(podioDateLayout)}, true
}
