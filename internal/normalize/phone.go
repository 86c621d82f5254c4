package normalize

import (
	"errors"
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

// ErrInvalidPhone is returned when a phone number cannot be canonicalized.
var ErrInvalidPhone = errors.New("invalid phone number")

// DomesticDigits is the digit count treated as a national number without a
// country code by the fallback path.
const DomesticDigits = 10

// PhoneNormalizer canonicalizes phone numbers to E.164.
//
// Region is the ISO 3166-1 alpha-2 region used when the input carries no
// country code. DomesticPrefix is prepended to bare ten-digit numbers that the
// region-aware parser rejects.
type PhoneNormalizer struct {
	Region         string
	DomesticPrefix string
}

// NewPhoneNormalizer returns a normalizer with the given defaults.
func NewPhoneNormalizer(region, domesticPrefix string) PhoneNormalizer {
	return PhoneNormalizer{
		Region:         strings.ToUpper(strings.TrimSpace(region)),
		DomesticPrefix: domesticPrefix,
	}
}

// Normalize returns s in E.164 form.
//
// The region-aware parser is tried first. When it fails or yields a number it
// considers invalid, the digits are extracted: exactly ten digits are treated
// as domestic and prefixed with DomesticPrefix, more than ten are treated as
// already international and prefixed with "+", fewer are rejected.
func (p PhoneNormalizer) Normalize(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrEmpty
	}

	if num, err := phonenumbers.Parse(s, p.Region); err == nil && phonenumbers.IsValidNumber(num) {
		return phonenumbers.Format(num, phonenumbers.E164), nil
	}

	digits := digitsOnly(s)
	switch {
	case len(digits) == DomesticDigits:
		return p.domesticPrefix() + digits, nil
	case len(digits) > DomesticDigits:
		return "+" + digits, nil
	default:
		return "", ErrInvalidPhone
	}
}

func (p PhoneNormalizer) domesticPrefix() string {
	prefix := strings.TrimSpace(p.DomesticPrefix)
	if prefix == "" {
		return "+1"
	}
	if !strings.HasPrefix(prefix, "+") {
		prefix = "+" + prefix
	}
	return prefix
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
