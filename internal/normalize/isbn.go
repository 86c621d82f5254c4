package normalize

import (
	"errors"
	"strings"
)

// ErrInvalidISBN is returned for values that are not checksum-valid ISBN-10 or
// ISBN-13 identifiers.
var ErrInvalidISBN = errors.New("invalid ISBN")

// ISBN strips hyphens and spaces from s and returns the remaining characters
// when they form a checksum-valid ISBN-10 or ISBN-13. A trailing ISBN-10 check
// character "x" is returned upper-cased.
func ISBN(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", ErrEmpty
	}

	cleaned := strings.ToUpper(strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, s))

	switch len(cleaned) {
	case 10:
		if isISBN10(cleaned) {
			return cleaned, nil
		}
	case 13:
		if isISBN13(cleaned) {
			return cleaned, nil
		}
	}
	return "", ErrInvalidISBN
}

// isISBN10 checks the mod-11 weighted sum; only the last position may be X.
func isISBN10(s string) bool {
	sum := 0
	for i := 0; i < 10; i++ {
		c := s[i]
		var d int
		switch {
		case c >= '0' && c <= '9':
			d = int(c - '0')
		case c == 'X' && i == 9:
			d = 10
		default:
			return false
		}
		sum += (10 - i) * d
	}
	return sum%11 == 0
}

// isISBN13 checks the alternating 1/3 weighted sum modulo 10.
func isISBN13(s string) bool {
	sum := 0
	for i := 0; i < 13; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return sum%10 == 0
}
