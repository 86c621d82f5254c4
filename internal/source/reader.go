// Package source reads delimited bulk files as a lazy stream of raw records.
//
// A Reader yields one Record per non-blank data row, keyed by the lower-cased
// header. Records carry the physical line number of the row so failures can be
// reported against the file a person will open.
package source

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/JonMunkholm/libingest/internal/schema"
)

// ErrNoHeader is returned when a file has no header row.
var ErrNoHeader = errors.New("file has no header row")

// Options controls how bulk files are parsed.
type Options struct {
	Delimiter rune // Field delimiter; ',' when zero
}

// Record is one data row of a bulk file.
type Record struct {
	Line   int        // 1-based line of the row's first field
	Fields schema.Row // Lower-cased header name to cleaned cell text
}

// RowError reports a row the parser could not split into fields. The reader
// stays usable after a RowError.
type RowError struct {
	File string
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Reader streams records from a delimited file. It is not restartable and
// not safe for concurrent use.
type Reader struct {
	name   string
	csv    *csv.Reader
	header []string
	closer io.Closer
}

// Open opens the file at path and reads its header.
func Open(path string, opts Options) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r, err := NewReader(f, path, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewReader reads the header from in and returns a reader positioned at the
// first data row. name is used in errors.
func NewReader(in io.Reader, name string, opts Options) (*Reader, error) {
	br := bufio.NewReader(in)
	if err := skipBOM(br); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	cr := csv.NewReader(newUTF8Sanitizer(br))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: %w", name, ErrNoHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", name, err)
	}

	cleaned := make([]string, len(header))
	for i, h := range header {
		cleaned[i] = strings.ToLower(CleanCell(h))
	}

	return &Reader{name: name, csv: cr, header: cleaned}, nil
}

// Name returns the name the reader was created with.
func (r *Reader) Name() string { return r.name }

// Header returns the cleaned, lower-cased header.
func (r *Reader) Header() []string { return r.header }

// Next returns the next non-blank record, or io.EOF when the file is
// exhausted. Rows shorter than the header yield a mapping without the
// missing fields; extra trailing cells are ignored.
func (r *Reader) Next() (Record, error) {
	for {
		cells, err := r.csv.Read()
		if err == io.EOF {
			return Record{}, io.EOF
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				return Record{}, &RowError{File: r.name, Line: pe.StartLine, Err: pe.Err}
			}
			return Record{}, fmt.Errorf("read %s: %w", r.name, err)
		}

		if isBlank(cells) {
			continue
		}

		line, _ := r.csv.FieldPos(0)
		fields := make(schema.Row, len(r.header))
		for i, name := range r.header {
			if name == "" || i >= len(cells) {
				continue
			}
			fields[name] = CleanCell(cells[i])
		}
		return Record{Line: line, Fields: fields}, nil
	}
}

// Rows returns the remaining records as a single-use sequence. Iteration
// stops after the first error that is not a *RowError.
func (r *Reader) Rows() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for {
			rec, err := r.Next()
			if err == io.EOF {
				return
			}
			if !yield(rec, err) {
				return
			}
			var rowErr *RowError
			if err != nil && !errors.As(err, &rowErr) {
				return
			}
		}
	}
}

// Close releases the underlying file, if the reader owns one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// CleanCell removes common spreadsheet export artifacts from a cell value:
// surrounding whitespace, an Excel formula prefix (="...") and stray quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}
