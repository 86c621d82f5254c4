package schema

// validation.go runs a row through its FieldSpecs.
//
// Every spec is checked, in order:
//  1. Presence: required fields must exist and carry non-blank text
//  2. Normalization: the value is canonicalized for its type (names, phones, ISBNs, dates)
//  3. Constraints: length limits, enum membership, non-negative integers
//
// Cross-field rules run afterwards, and only when the fields they read parsed
// cleanly. All failures are collected into a single *Failure.

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/libingest/internal/normalize"
)

// Validator validates raw rows for every entity kind.
type Validator struct {
	Phone normalize.PhoneNormalizer

	check *validator.Validate
}

// NewValidator creates a validator that canonicalizes phones with phone.
func NewValidator(phone normalize.PhoneNormalizer) *Validator {
	return &Validator{
		Phone: phone,
		check: validator.New(),
	}
}

// values holds the normalized output of a row, keyed by field name.
// Absent optional fields have no entry.
type values struct {
	text  map[string]string
	dates map[string]time.Time
	ints  map[string]int64
}

func (v values) datePtr(name string) *time.Time {
	d, ok := v.dates[name]
	if !ok {
		return nil
	}
	return &d
}

// Library validates a library row.
func (v *Validator) Library(row Row) (Library, error) {
	vals, errs := v.validateFields(LibraryFields, row)
	if len(errs) > 0 {
		return Library{}, &Failure{Entity: EntityLibrary, Errors: errs}
	}

	lib := Library{
		Name:           vals.text["name"],
		CampusLocation: vals.text["campus_location"],
		ContactEmail:   vals.text["contact_email"],
		PhoneNumber:    vals.text["phone_number"],
	}
	if id, ok := vals.ints["library_id"]; ok {
		lib.ID = &id
	}
	return lib, nil
}

// Author validates an author row.
func (v *Validator) Author(row Row) (Author, error) {
	vals, errs := v.validateFields(AuthorFields, row)
	if len(errs) > 0 {
		return Author{}, &Failure{Entity: EntityAuthor, Errors: errs}
	}

	return Author{
		FirstName:   vals.text["first_name"],
		LastName:    vals.text["last_name"],
		BirthDate:   vals.datePtr("birth_date"),
		Nationality: vals.text["nationality"],
		Biography:   vals.text["biography"],
	}, nil
}

// Book validates a book row, including the rule that available copies never
// exceed total copies.
func (v *Validator) Book(row Row) (Book, error) {
	vals, errs := v.validateFields(BookFields, row)

	total, okTotal := vals.ints["total_copies"]
	avail, okAvail := vals.ints["available_copies"]
	if okTotal && okAvail && avail > total {
		errs = append(errs, ValidationError{
			Field:   "available_copies",
			Value:   strconv.FormatInt(avail, 10),
			Message: fmt.Sprintf("cannot exceed total_copies (%d)", total),
		})
	}
	if len(errs) > 0 {
		return Book{}, &Failure{Entity: EntityBook, Errors: errs}
	}

	return Book{
		Title:           vals.text["title"],
		ISBN:            vals.text["isbn"],
		PublicationDate: vals.datePtr("publication_date"),
		TotalCopies:     total,
		AvailableCopies: avail,
		LibraryID:       vals.ints["library_id"],
	}, nil
}

// Member validates a member row.
func (v *Validator) Member(row Row) (Member, error) {
	vals, errs := v.validateFields(MemberFields, row)
	if len(errs) > 0 {
		return Member{}, &Failure{Entity: EntityMember, Errors: errs}
	}

	return Member{
		FirstName:        vals.text["first_name"],
		LastName:         vals.text["last_name"],
		ContactEmail:     vals.text["contact_email"],
		PhoneNumber:      vals.text["phone_number"],
		MemberType:       vals.text["member_type"],
		RegistrationDate: vals.dates["registration_date"],
	}, nil
}

// validateFields checks every spec against row and returns the normalized
// values together with all validation errors.
func (v *Validator) validateFields(specs []FieldSpec, row Row) (values, []ValidationError) {
	vals := values{
		text:  make(map[string]string, len(specs)),
		dates: make(map[string]time.Time),
		ints:  make(map[string]int64),
	}
	var errs []ValidationError

	for _, spec := range specs {
		raw, present := row[spec.Name]
		raw = strings.TrimSpace(raw)

		if raw == "" {
			if spec.Required {
				msg := "required field is empty"
				if !present {
					msg = "missing required field"
				}
				errs = append(errs, ValidationError{Field: spec.Name, Message: msg})
			}
			continue
		}

		if err := v.validateCell(spec, raw, &vals); err != nil {
			errs = append(errs, ValidationError{Field: spec.Name, Value: raw, Message: err.Error()})
		}
	}

	return vals, errs
}

// validateCell normalizes a non-empty value and stores it in vals.
func (v *Validator) validateCell(spec FieldSpec, raw string, vals *values) error {
	var (
		out string
		err error
	)

	switch spec.Type {
	case FieldName:
		out, err = normalize.Name(raw)
	case FieldEmail:
		out = canonicalEmail(raw)
		if v.validate().Var(out, "email") != nil {
			err = errors.New("invalid email address")
		}
	case FieldPhone:
		out, err = v.Phone.Normalize(raw)
		if err == nil && v.validate().Var(out, "e164") != nil {
			err = fmt.Errorf("%w: %s is not E.164", normalize.ErrInvalidPhone, out)
		}
	case FieldISBN:
		out, err = normalize.ISBN(raw)
	case FieldDate:
		var d time.Time
		if d, err = normalize.ParseDate(raw); err == nil {
			vals.dates[spec.Name] = d
			out = d.Format(DateLayout)
		}
	case FieldInt:
		var n int64
		n, err = strconv.ParseInt(raw, 10, 64)
		switch {
		case err != nil:
			err = errors.New("must be a whole number")
		case n < 0:
			err = errors.New("must not be negative")
		default:
			vals.ints[spec.Name] = n
			out = raw
		}
	case FieldEnum:
		out, err = matchEnum(raw, spec.EnumValues)
	default:
		out = raw
	}
	if err != nil {
		return err
	}

	if spec.MaxLen > 0 && utf8.RuneCountInString(out) > spec.MaxLen {
		delete(vals.dates, spec.Name)
		delete(vals.ints, spec.Name)
		return fmt.Errorf("exceeds maximum length of %d", spec.MaxLen)
	}

	vals.text[spec.Name] = out
	return nil
}

// validate returns the struct-tag validator, creating it for zero-value
// Validators.
func (v *Validator) validate() *validator.Validate {
	if v.check == nil {
		v.check = validator.New()
	}
	return v.check
}

// matchEnum returns the canonical spelling of raw from allowed.
func matchEnum(raw string, allowed []string) (string, error) {
	for _, ev := range allowed {
		if strings.EqualFold(ev, raw) {
			return ev, nil
		}
	}
	return "", fmt.Errorf("value must be one of: %s", strings.Join(allowed, ", "))
}

// canonicalEmail lower-cases the domain of an address and keeps the local
// part as written.
func canonicalEmail(raw string) string {
	at := strings.LastIndexByte(raw, '@')
	if at < 0 {
		return raw
	}
	return raw[:at+1] + strings.ToLower(raw[at+1:])
}
