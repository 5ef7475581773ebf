// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "BR"

// NormalizeE164 formats a phone number to E.164. Returns "" when the input
// does not parse as a valid number, so callers can treat "" as failure.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return ""
	}

	if !phonenumbers.IsValidNumber(number) {
		return ""
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// FromJID extracts the phone number from a WhatsApp JID such as
// "5511999999999@s.whatsapp.net" or "5511999999999@c.us" and normalizes it.
// Bare digit strings without a suffix are handled the same way.
func FromJID(jid string) string {
	number := jid
	if at := strings.IndexByte(jid, '@'); at >= 0 {
		number = jid[:at]
	}

	// Group and device suffixes ("5511999999999:12") are not dialable numbers.
	if colon := strings.IndexByte(number, ':'); colon >= 0 {
		number = number[:colon]
	}

	number = strings.TrimSpace(number)
	if number == "" {
		return ""
	}

	if !strings.HasPrefix(number, "+") {
		number = "+" + number
	}

	return NormalizeE164(number)
}
