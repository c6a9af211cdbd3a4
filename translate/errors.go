package translate

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrMissingCredential is returned before any request is made when no API key
// is configured.
var ErrMissingCredential = errors.New("translation API key is not configured")

// TransportError is a failed request for one chunk: the connection failed or
// the backend answered with a non-2xx status.
type TransportError struct {
	Chunk  int
	Status int
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("chunk %d: API returned status %d: %s", e.Chunk, e.Status, e.Body)
	}
	return fmt.Sprintf("chunk %d: API request failed: %v", e.Chunk, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError is a response for one chunk that could not be turned into
// translations.
type ParseError struct {
	Chunk   int
	Content string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("chunk %d: parsing response: %v\nResponse: %s", e.Chunk, e.Err, truncate(e.Content, 300))
}

func (e *ParseError) Unwrap() error { return e.Err }

// PartialCoverageError lists requested keys that are still untranslated after
// a full pass. It is reported, never retried.
type PartialCoverageError struct {
	Missing []string
}

func (e *PartialCoverageError) Error() string {
	const show = 5
	list := e.Missing
	suffix := ""
	if len(list) > show {
		list = list[:show]
		suffix = fmt.Sprintf(", ... (%d more)", len(e.Missing)-show)
	}
	return fmt.Sprintf("%d keys not translated: %s%s", len(e.Missing), strings.Join(list, ", "), suffix)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	// Back up to a rune boundary.
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen] + "..."
}
