package models

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName trims and NFC-normalises a teacher name. Every name that is
// stored, matched or used as an allow-list key goes through it, so names typed
// with different Khmer code point sequences compare equal.
func NormalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
