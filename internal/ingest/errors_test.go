package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/libingest/internal/normalize"
	"github.com/JonMunkholm/libingest/internal/openlibrary"
	"github.com/JonMunkholm/libingest/internal/schema"
	"github.com/JonMunkholm/libingest/internal/source"
	"github.com/JonMunkholm/libingest/internal/store"
)

func failure(errs ...schema.ValidationError) error {
	return &schema.Failure{Entity: schema.EntityBook, Errors: errs}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:     "missing library",
			err:      fmt.Errorf("%w: library 99", ErrReferential),
			wantCode: "REF001",
		},
		{
			name:     "foreign key violation",
			err:      &store.ConstraintError{Kind: store.ErrForeignKey, Constraint: "book_library_id_fkey", Err: errors.New("fk")},
			wantCode: "REF002",
		},
		{
			name:     "author pre-check duplicate",
			err:      fmt.Errorf("%w: author", ErrDuplicateRecord),
			wantCode: "DUP001",
		},
		{
			name:     "unique violation",
			err:      &store.ConstraintError{Kind: store.ErrDuplicate, Constraint: "book.isbn", Err: errors.New("dup")},
			wantCode: "DUP002",
		},
		{
			name:     "check violation",
			err:      &store.ConstraintError{Kind: store.ErrCheck, Constraint: "chk_member_type", Err: errors.New("check")},
			wantCode: "DB001",
		},
		{
			name:     "network failure",
			err:      fmt.Errorf("fetch works: %w", &openlibrary.NetworkError{Op: "list works", URL: "/authors/x", StatusCode: 503}),
			wantCode: "NET001",
		},
		{
			name:     "author not found",
			err:      fmt.Errorf("search author: %w", openlibrary.ErrNotFound),
			wantCode: "NET002",
		},
		{
			name:     "missing source",
			err:      fmt.Errorf("%w: %w", ErrMissingSource, source.ErrMissingFile),
			wantCode: "SRC001",
		},
		{
			name:     "unparseable row",
			err:      &source.RowError{File: "books.csv", Line: 4, Err: errors.New("bare quote")},
			wantCode: "SRC002",
		},
		{
			name:     "cancelled",
			err:      fmt.Errorf("begin batch: %w", context.Canceled),
			wantCode: "ERR001",
		},
		{
			name:     "first field error decides",
			err:      failure(schema.ValidationError{Field: "isbn", Message: normalize.ErrInvalidISBN.Error()}, schema.ValidationError{Field: "title", Message: "required field is empty"}),
			wantCode: "VAL005",
		},
		{
			name:     "missing column",
			err:      failure(schema.ValidationError{Field: "title", Message: "missing required field"}),
			wantCode: "VAL001",
		},
		{
			name:     "bad email",
			err:      failure(schema.ValidationError{Field: "contact_email", Message: "invalid email address"}),
			wantCode: "VAL003",
		},
		{
			name:     "bad phone",
			err:      failure(schema.ValidationError{Field: "phone_number", Message: normalize.ErrInvalidPhone.Error()}),
			wantCode: "VAL004",
		},
		{
			name:     "bad date",
			err:      failure(schema.ValidationError{Field: "birth_date", Message: normalize.ErrInvalidDate.Error()}),
			wantCode: "VAL006",
		},
		{
			name:     "copies exceed total",
			err:      failure(schema.ValidationError{Field: "available_copies", Message: "cannot exceed total_copies (1)"}),
			wantCode: "VAL009",
		},
		{
			name:     "too long",
			err:      failure(schema.ValidationError{Field: "name", Message: "exceeds maximum length of 30"}),
			wantCode: "VAL011",
		},
		{
			name:     "connection refused",
			err:      errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"),
			wantCode: "DB002",
		},
		{
			name:     "unknown error returns default",
			err:      errors.New("something unexpected"),
			wantCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}

	got := FormatUserError(fmt.Errorf("%w: library 3", ErrReferential))
	want := "Referenced library does not exist (Code: REF001). Load the library first or fix library_id"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
}

// ============================================================================
// Registry Tests
// ============================================================================

func TestOrdered(t *testing.T) {
	var kinds []string
	for _, def := range Ordered() {
		kinds = append(kinds, def.Kind)
	}
	want := []string{schema.EntityLibrary, schema.EntityAuthor, schema.EntityBook, schema.EntityMember}
	if len(kinds) != len(want) {
		t.Fatalf("Ordered() = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("Ordered()[%d] = %q, want %q", i, kinds[i], want[i])
		}
	}
}

func TestRegister_Panics(t *testing.T) {
	tests := []struct {
		name string
		def  EntityDefinition
	}{
		{"duplicate kind", EntityDefinition{Kind: schema.EntityBook}},
		{"missing functions", EntityDefinition{Kind: "loan"}},
		{
			name: "precheck without exists",
			def: EntityDefinition{
				Kind:       "review",
				Duplicates: DuplicatePrecheck,
				Validate:   func(*schema.Validator, schema.Row) (any, error) { return nil, nil },
				Insert:     func(context.Context, store.Queries, any) (int64, error) { return 0, nil },
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("Register() did not panic")
				}
			}()
			Register(tt.def)
		})
	}

	if _, ok := Get("review"); ok {
		t.Error("incomplete definition was registered")
	}
}
