package source

// sanitize.go cleans the byte stream before it reaches the CSV parser:
//
//   - skipBOM drops a leading UTF-8 byte order mark written by spreadsheet tools
//   - utf8Sanitizer replaces invalid UTF-8 bytes with '?' without buffering the file
//
// Bulk files are read in one fixed encoding (UTF-8); anything else is
// sanitized rather than rejected so a single bad byte cannot sink a file.

import (
	"bufio"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM discards a UTF-8 BOM at the head of r, if present.
func skipBOM(r *bufio.Reader) error {
	head, err := r.Peek(len(utf8BOM))
	if err != nil && err != io.EOF {
		return err
	}
	if len(head) == len(utf8BOM) && head[0] == utf8BOM[0] && head[1] == utf8BOM[1] && head[2] == utf8BOM[2] {
		_, err = r.Discard(len(utf8BOM))
		return err
	}
	return nil
}

// utf8Sanitizer wraps an io.Reader and rewrites invalid UTF-8 in place.
// A multi-byte sequence split across reads is carried to the next call.
type utf8Sanitizer struct {
	r     io.Reader
	carry []byte
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r, carry: make([]byte, 0, utf8.UTFMax)}
}

// Read implements io.Reader.
func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	off := copy(p, s.carry)
	s.carry = s.carry[:0]

	n, err := s.r.Read(p[off:])
	n += off
	if n == 0 {
		return 0, err
	}

	return s.clean(p[:n], err == io.EOF), err
}

// clean sanitizes buf and returns how many bytes of it are ready. Unless
// atEOF, a truncated trailing sequence is moved to carry.
func (s *utf8Sanitizer) clean(buf []byte, atEOF bool) int {
	w := 0
	for r := 0; r < len(buf); {
		if buf[r] < utf8.RuneSelf {
			buf[w] = buf[r]
			w++
			r++
			continue
		}

		if !atEOF && !utf8.FullRune(buf[r:]) {
			s.carry = append(s.carry, buf[r:]...)
			return w
		}

		ch, size := utf8.DecodeRune(buf[r:])
		if ch == utf8.RuneError && size == 1 {
			buf[w] = '?'
			w++
			r++
			continue
		}
		w += copy(buf[w:], buf[r:r+size])
		r += size
	}
	return w
}
