package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// TransportError is a failed call: network error, non-2xx status, or an
// undecodable response body.
type TransportError struct {
	Provider   string
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: request failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: request failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RateLimited reports whether the backend answered 429.
func (e *TransportError) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// ContentError is a call that succeeded on the wire but whose payload is not
// usable: an embedded error message, a blocked response, or a request the
// backend cannot serve.
type ContentError struct {
	Provider string
	Reason   string
	// Permanent marks a request the backend can never serve, such as a
	// translation sent to an OCR-only provider.
	Permanent bool
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("%s: unusable response: %s", e.Provider, e.Reason)
}

// IsPermanent reports whether retrying err cannot succeed.
func IsPermanent(err error) bool {
	var ce *ContentError
	return errors.As(err, &ce) && ce.Permanent
}

// IsRateLimited reports whether err is a 429 from any provider.
func IsRateLimited(err error) bool {
	te, ok := asTransportError(err)
	return ok && te.RateLimited()
}

func asTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	ok := errors.As(err, &te)
	return te, ok
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
