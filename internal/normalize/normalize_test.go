package normalize

import (
	"errors"
	"testing"
	"time"
)

// ============================================================================
// Name Tests
// ============================================================================

func TestName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lower case", input: "george orwell", want: "George Orwell"},
		{name: "mixed case", input: "jANE dOE", want: "Jane Doe"},
		{name: "extra whitespace", input: "  westside \t library  ", want: "Westside Library"},
		{name: "single token", input: "ORWELL", want: "Orwell"},
		{name: "apostrophe kept", input: "o'brien", want: "O'brien"},
		{name: "unicode", input: "émile zola", want: "Émile Zola"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Name(tt.input)
			if err != nil {
				t.Fatalf("Name(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestName_Empty(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		if _, err := Name(input); !errors.Is(err, ErrEmpty) {
			t.Errorf("Name(%q) error = %v, want ErrEmpty", input, err)
		}
	}
}

func TestName_Idempotent(t *testing.T) {
	for _, input := range []string{"george orwell", "MARY   ann evans", "x"} {
		once, err := Name(input)
		if err != nil {
			t.Fatalf("Name(%q) error = %v", input, err)
		}
		twice, err := Name(once)
		if err != nil {
			t.Fatalf("Name(%q) error = %v", once, err)
		}
		if once != twice {
			t.Errorf("Name not idempotent: %q -> %q -> %q", input, once, twice)
		}
	}
}

// ============================================================================
// Phone Tests
// ============================================================================

func TestPhoneNormalizer_Normalize(t *testing.T) {
	tests := []struct {
		name   string
		region string
		input  string
		want   string
	}{
		{name: "US domestic with punctuation", region: "US", input: "(650) 253-0000", want: "+16502530000"},
		{name: "international input ignores region", region: "IN", input: "+1 650 253 0000", want: "+16502530000"},
		{name: "indian number with country code", region: "IN", input: "+91 98765 43210", want: "+919876543210"},
		{name: "fallback ten digits gets domestic prefix", region: "IN", input: "000-000-1234", want: "+10000001234"},
		{name: "fallback long number treated as international", region: "IN", input: "+999 1234 5678 90", want: "+9991234567890"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPhoneNormalizer(tt.region, "+1")
			got, err := p.Normalize(tt.input)
			if err != nil {
				t.Fatalf("Normalize(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPhoneNormalizer_TooShort(t *testing.T) {
	p := NewPhoneNormalizer("IN", "+1")
	for _, input := range []string{"12345", "555-0199", "abc"} {
		if _, err := p.Normalize(input); !errors.Is(err, ErrInvalidPhone) {
			t.Errorf("Normalize(%q) error = %v, want ErrInvalidPhone", input, err)
		}
	}
	if _, err := p.Normalize("  "); !errors.Is(err, ErrEmpty) {
		t.Errorf("Normalize(blank) error = %v, want ErrEmpty", err)
	}
}

func TestPhoneNormalizer_Idempotent(t *testing.T) {
	p := NewPhoneNormalizer("IN", "+1")
	inputs := []string{
		"+91 98765 43210",
		"000-000-1234",
		"+1 (650) 253-0000",
		"+999 1234 5678 90",
	}

	for _, input := range inputs {
		once, err := p.Normalize(input)
		if err != nil {
			t.Fatalf("Normalize(%q) error = %v", input, err)
		}
		twice, err := p.Normalize(once)
		if err != nil {
			t.Fatalf("Normalize(%q) error = %v", once, err)
		}
		if once != twice {
			t.Errorf("Normalize not idempotent: %q -> %q -> %q", input, once, twice)
		}
	}
}

func TestPhoneNormalizer_DomesticPrefixWithoutPlus(t *testing.T) {
	p := NewPhoneNormalizer("IN", "44")
	got, err := p.Normalize("000 000 1234")
	if err != nil {
		t.Fatalf("Normalize error = %v", err)
	}
	if got != "+440000001234" {
		t.Errorf("got %q, want %q", got, "+440000001234")
	}
}

// ============================================================================
// ISBN Tests
// ============================================================================

func TestISBN_Valid(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "9780451524935", want: "9780451524935"},
		{input: "978-0-451-52493-5", want: "9780451524935"},
		{input: "978 0 451 52493 5", want: "9780451524935"},
		{input: "0451524934", want: "0451524934"},
		{input: "0-451-52493-4", want: "0451524934"},
		{input: "080442957X", want: "080442957X"},
		{input: "0-8044-2957-x", want: "080442957X"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ISBN(tt.input)
			if err != nil {
				t.Fatalf("ISBN(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ISBN(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestISBN_Invalid(t *testing.T) {
	inputs := []string{
		"9780451524936",  // bad ISBN-13 check digit
		"0451524935",     // bad ISBN-10 check digit
		"X",              // too short
		"97804515249",    // eleven digits
		"978045152493X",  // X only allowed in ISBN-10
		"X451524934",     // X only allowed in last position
		"97804515249355", // fourteen digits
		"978-0-451-ABCDE",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			if _, err := ISBN(input); !errors.Is(err, ErrInvalidISBN) {
				t.Errorf("ISBN(%q) error = %v, want ErrInvalidISBN", input, err)
			}
		})
	}
}

func TestISBN_Empty(t *testing.T) {
	if _, err := ISBN(" "); !errors.Is(err, ErrEmpty) {
		t.Errorf("ISBN(blank) error = %v, want ErrEmpty", err)
	}
}

// ============================================================================
// ParseDate Tests
// ============================================================================

func TestParseDate(t *testing.T) {
	want1949 := time.Date(1949, time.June, 8, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		input string
		want  time.Time
	}{
		{input: "1949-06-08", want: want1949},
		{input: "June 8, 1949", want: want1949},
		{input: "Jun 8, 1949", want: want1949},
		{input: "8 June 1949", want: want1949},
		{input: "06/08/1949", want: want1949},
		{input: "1949", want: time.Date(1949, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{input: "June 1949", want: time.Date(1949, time.June, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if err != nil {
				t.Fatalf("ParseDate(%q) error = %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDate_Invalid(t *testing.T) {
	for _, input := range []string{"not a date", "1949-13-40", "someday"} {
		if _, err := ParseDate(input); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseDate(%q) error = %v, want ErrInvalidDate", input, err)
		}
	}
}
