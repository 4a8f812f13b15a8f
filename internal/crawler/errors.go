package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrSoftSkip marks a page that was deliberately not processed.
	ErrSoftSkip = errors.New("page skipped")
	// ErrInvalidBaseURL is returned when the crawl root cannot be parsed.
	ErrInvalidBaseURL = errors.New("invalid base url")
	// ErrBlobNotFound is returned by blob stores for missing objects.
	ErrBlobNotFound = errors.New("blob not found")
	// ErrUnsupportedScheme is returned for non-http(s) links.
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
)

// SkipReason classifies why a page was soft-skipped.
type SkipReason string

// Skip reasons reported in logs and metrics.
const (
	SkipRobots      SkipReason = "robots"
	SkipContentType SkipReason = "content_type"
	SkipTooLarge    SkipReason = "too_large"
	SkipNoContent   SkipReason = "no_content"
)

// SkipError reports a soft skip. errors.Is(err, ErrSoftSkip) holds for it.
type SkipError struct {
	URL    string
	Reason SkipReason
	Detail string
}

func (e *SkipError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("skip %s: %s", e.URL, e.Reason)
	}
	return fmt.Sprintf("skip %s: %s (%s)", e.URL, e.Reason, e.Detail)
}

// Is reports whether target is ErrSoftSkip.
func (e *SkipError) Is(target error) bool {
	return target == ErrSoftSkip
}

// NewSkip builds a SkipError.
func NewSkip(url string, reason SkipReason, detail string) *SkipError {
	return &SkipError{URL: url, Reason: reason, Detail: detail}
}

// FetchError reports a page that could not be retrieved or parsed after all
// retries were exhausted.
type FetchError struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d after %d attempt(s): %v", e.URL, e.StatusCode, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// SkipReasonOf extracts the skip reason from err, if any.
func SkipReasonOf(err error) (SkipReason, bool) {
	var skip *SkipError
	if errors.As(err, &skip) {
		return skip.Reason, true
	}
	return "", false
}
