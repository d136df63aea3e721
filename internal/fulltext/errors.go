package fulltext

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateSource is returned when a source key is registered twice.
	ErrDuplicateSource = errors.New("fulltext: duplicate source key")

	// ErrNoSourceResolved is returned when no identifying input could
	// produce a single candidate endpoint.
	ErrNoSourceResolved = errors.New("fulltext: no source resolved, provide at least one of name/index/pinyin")

	// ErrEmptyExtraction marks an attempt whose extracted text was empty
	// or whitespace-only. It is retried like a network failure and only
	// surfaces wrapped inside an ExhaustedError.
	ErrEmptyExtraction = errors.New("fulltext: extracted text is empty")
)

// StatusError reports a non-2xx response on one fetch attempt.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fulltext: unexpected status %d from %s", e.StatusCode, e.URL)
}

// ExhaustedError is returned when every candidate exhausted its retries.
// It carries all attempted URLs and the most recent underlying cause.
type ExhaustedError struct {
	Attempted []string
	Last      error
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("fulltext: all sources exhausted, attempted: %s", strings.Join(e.Attempted, ", "))
	if e.Last != nil {
		msg += fmt.Sprintf(" (last error: %v)", e.Last)
	}
	return msg
}

func (e *ExhaustedError) Unwrap() error { return e.Last }
