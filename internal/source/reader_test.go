package source

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/libingest/internal/schema"
)

// ============================================================================
// Reader Tests
// ============================================================================

func TestReader_Rows(t *testing.T) {
	input := "Name, Campus_Location ,contact_email\n" +
		"Central,North,central@example.edu\n" +
		"\n" +
		",,\n" +
		"\"Science\nAnnex\",South,sci@example.edu\n" +
		"Short\n"

	r, err := NewReader(strings.NewReader(input), "libraries.csv", Options{})
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}

	if diff := cmp.Diff([]string{"name", "campus_location", "contact_email"}, r.Header()); diff != "" {
		t.Errorf("Header() mismatch (-want +got):\n%s", diff)
	}

	var got []Record
	for rec, err := range r.Rows() {
		if err != nil {
			t.Fatalf("Rows() error = %v", err)
		}
		got = append(got, rec)
	}

	want := []Record{
		{Line: 2, Fields: schema.Row{"name": "Central", "campus_location": "North", "contact_email": "central@example.edu"}},
		{Line: 5, Fields: schema.Row{"name": "Science\nAnnex", "campus_location": "South", "contact_email": "sci@example.edu"}},
		{Line: 7, Fields: schema.Row{"name": "Short"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Rows() mismatch (-want +got):\n%s", diff)
	}
}

func TestReader_NextAfterEOF(t *testing.T) {
	r, err := NewReader(strings.NewReader("a,b\n1,2\n"), "x.csv", Options{})
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}

	if _, err := r.Next(); err != nil {
		t.Fatalf("first Next() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := r.Next(); err != io.EOF {
			t.Errorf("Next() after end = %v, want io.EOF", err)
		}
	}
}

func TestReader_Delimiter(t *testing.T) {
	r, err := NewReader(strings.NewReader("title;isbn\nAnimal Farm;0451524934\n"), "books.csv", Options{Delimiter: ';'})
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if got := rec.Fields["isbn"]; got != "0451524934" {
		t.Errorf("isbn = %q, want %q", got, "0451524934")
	}
}

func TestReader_BOMAndInvalidUTF8(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("name,city\nCaf\xe9,Zürich\n")...)

	r, err := NewReader(bytes.NewReader(input), "bom.csv", Options{})
	if err != nil {
		t.Fatalf("NewReader() error = %v", err)
	}
	if r.Header()[0] != "name" {
		t.Errorf("first header = %q, want %q", r.Header()[0], "name")
	}

	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	want := schema.Row{"name": "Caf?", "city": "Zürich"}
	if diff := cmp.Diff(want, rec.Fields); diff != "" {
		t.Errorf("Fields mismatch (-want +got):\n%s", diff)
	}
}

func TestReader_EmptyFile(t *testing.T) {
	_, err := NewReader(strings.NewReader(""), "empty.csv", Options{})
	if !errors.Is(err, ErrNoHeader) {
		t.Errorf("NewReader(empty) error = %v, want ErrNoHeader", err)
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authors.csv")
	if err := os.WriteFile(path, []byte("first_name,last_name\ngeorge,orwell\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if rec.Line != 2 || rec.Fields["last_name"] != "orwell" {
		t.Errorf("got %+v, want line 2 with last_name orwell", rec)
	}
	if r.Name() != path {
		t.Errorf("Name() = %q, want %q", r.Name(), path)
	}
}

// ============================================================================
// Sanitizer Tests
// ============================================================================

func TestUTF8Sanitizer(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{name: "ascii", input: []byte("hello"), want: "hello"},
		{name: "valid multibyte", input: []byte("héllo wörld"), want: "héllo wörld"},
		{name: "invalid byte", input: []byte{'a', 0xFF, 'b'}, want: "a?b"},
		{name: "truncated at eof", input: []byte{'a', 0xE2, 0x82}, want: "a??"},
		{name: "emoji", input: []byte("ok 👍"), want: "ok 👍"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// One byte per Read forces sequences to split across calls.
			got, err := io.ReadAll(newUTF8Sanitizer(iotest.OneByteReader(bytes.NewReader(tt.input))))
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "  plain  ", want: "plain"},
		{input: `="00123"`, want: "00123"},
		{input: "=42", want: "42"},
		{input: `'quoted'`, want: "quoted"},
		{input: "", want: ""},
	}

	for _, tt := range tests {
		if got := CleanCell(tt.input); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// ============================================================================
// RequiredFiles Tests
// ============================================================================

func TestRequiredFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"libraries.csv", "books.csv"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	paths, err := RequiredFiles(dir, "csv", "libraries", "books")
	if err != nil {
		t.Fatalf("RequiredFiles() error = %v", err)
	}
	if got := paths["books"]; got != filepath.Join(dir, "books.csv") {
		t.Errorf("books path = %q", got)
	}

	_, err = RequiredFiles(dir, ".csv", "libraries", "authors", "members")
	if !errors.Is(err, ErrMissingFile) {
		t.Fatalf("RequiredFiles() error = %v, want ErrMissingFile", err)
	}
	for _, stem := range []string{"authors.csv", "members.csv"} {
		if !strings.Contains(err.Error(), stem) {
			t.Errorf("error %q does not mention %s", err, stem)
		}
	}
}
