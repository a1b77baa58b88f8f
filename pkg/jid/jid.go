// Package jid canonicalizes WhatsApp contact addresses.
package jid

import (
	"strings"
)

const (
	// Suffix is the domain of a canonical WhatsApp user address
	Suffix = "@s.whatsapp.net"
	// DefaultCountryCode is prepended to national numbers (area code + 9 digits)
	DefaultCountryCode = "55"

	nationalNumberLength = 11
)

// Normalize returns the canonical JID for a raw contact identifier.
// Canonical input is returned unchanged, so Normalize is idempotent.
func Normalize(raw string) string {
	if strings.HasSuffix(raw, Suffix) {
		return raw
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if len(digits) == nationalNumberLength {
		digits = DefaultCountryCode + digits
	}
	return digits + Suffix
}

// HasNumber reports whether a canonical JID carries a non-empty user part
func HasNumber(canonical string) bool {
	return strings.TrimSuffix(canonical, Suffix) != ""
}
