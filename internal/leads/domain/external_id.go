package domain

import "strings"

const externalIDPrefix = "wchic:wa:"

// ExternalID builds the idempotency key shared by every Podio workspace:
// wchic:wa:{phone} with ":{date}" appended when the event date is known.
func ExternalID(phoneE164, eventDate string) string {
	id := externalIDPrefix + phoneE164
	if d := strings.TrimSpace(eventDate); d != "" {
		id += ":" + d
	}
	return id
}
