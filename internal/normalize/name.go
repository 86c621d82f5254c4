// Package normalize turns raw text from bulk files and remote documents into
// the canonical values stored by the ingestion pipeline.
//
// Every function here is pure and idempotent: applying it to its own output
// returns that output unchanged.
package normalize

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrEmpty is returned when a value that must carry text is empty or only
// whitespace.
var ErrEmpty = errors.New("value cannot be empty")

// Name title-cases each whitespace-separated token of s and joins the tokens
// with single spaces. "  jANE   doe " becomes "Jane Doe".
func Name(s string) (string, error) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return "", ErrEmpty
	}
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " "), nil
}

// capitalize upper-cases the first rune of a token and lower-cases the rest.
func capitalize(token string) string {
	r, size := utf8.DecodeRuneInString(token)
	if r == utf8.RuneError && size <= 1 {
		return strings.ToLower(token)
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(token[size:])
}
