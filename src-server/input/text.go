package input

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Normalize trims s and composes it to NFC, so a Hangul syllable typed
// as separate jamo counts as one character.
func Normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Len counts characters of the normalized form of s.
func Len(s string) int {
	return utf8.RuneCountInString(Normalize(s))
}
