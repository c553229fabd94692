// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const (
	defaultRegion = "BR"
	countryPrefix = "55"
)

// Digits strips everything except 0-9.
func Digits(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeE164 formats a Brazilian phone number to E.164. Inputs that
// libphonenumber rejects fall back to "+" followed by the digits, with the
// 55 country code prepended when missing. Empty input returns "".
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	candidate := trimmed
	if !strings.HasPrefix(candidate, "+") && strings.HasPrefix(Digits(candidate), countryPrefix) {
		candidate = "+" + Digits(candidate)
	}
	if number, err := phonenumbers.Parse(candidate, defaultRegion); err == nil && phonenumbers.IsValidNumber(number) {
		return phonenumbers.Format(number, phonenumbers.E164)
	}

	digits := Digits(trimmed)
	if digits == "" {
		return ""
	}
	if !strings.HasPrefix(digits, countryPrefix) {
		digits = countryPrefix + digits
	}
	return "+" + digits
}
