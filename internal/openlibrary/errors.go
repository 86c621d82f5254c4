package openlibrary

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork matches every transport failure and non-2xx response.
	ErrNetwork = errors.New("open library request failed")

	// ErrNotFound is returned when a search yields no match.
	ErrNotFound = errors.New("not found")
)

// NetworkError describes a failed request to the remote catalogue.
type NetworkError struct {
	Op         string // Client operation, e.g. "search author"
	URL        string
	StatusCode int // Zero for transport failures
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: GET %s: unexpected status %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: GET %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is reports whether target is ErrNetwork.
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }
