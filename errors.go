package redditstream

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jamesprial/go-reddit-stream/internal"
)

// ConfigError indicates missing or malformed configuration. It is returned
// before any network call is made and is never retried.
type ConfigError struct {
	// Field contains the name of the configuration field that caused the error
	Field string
	// Message contains the detailed error message
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// AuthError indicates that Reddit rejected the credentials, either during the
// initial verification or mid-stream. It is never retried; the credentials
// need to be rotated. The underlying cause is preserved for diagnosis.
type AuthError struct {
	// Message describes when authentication failed
	Message string
	// Err contains the underlying error
	Err error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("authentication error: %s", e.Message)
}

func (e *AuthError) Unwrap() error { return e.Err }

// AccessError indicates the watched subreddits are forbidden or do not exist.
// Retrying cannot fix this without operator action, so the stream stops.
type AccessError struct {
	// Subreddits is the combined subreddit token the stream was opened with
	Subreddits string
	// StatusCode is the HTTP status Reddit answered with, if available
	StatusCode int
	// Err contains the underlying error
	Err error
}

func (e *AccessError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("access error for subreddits %q (status %d): %v", e.Subreddits, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("access error for subreddits %q: %v", e.Subreddits, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// statusCodeOf extracts the HTTP status code from an error chain, or 0 when
// the error did not come from an API response.
func statusCodeOf(err error) int {
	var apiErr *internal.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// failureKind is the closed classification every connect or streaming error
// is reduced to. The retry policy is a pure function of the kind.
type failureKind int

const (
	// failureTransient covers network hiccups, timeouts, rate limiting, and
	// upstream server errors. Retried with exponential backoff.
	failureTransient failureKind = iota
	// failureUnexpected covers errors that match nothing else. Retried after
	// a fixed delay, without growing the backoff state.
	failureUnexpected
	// failureAccess covers forbidden or missing subreddits. Terminal.
	failureAccess
	// failureAuth covers token and credential rejections. Terminal.
	failureAuth
)

func (k failureKind) String() string {
	switch k {
	case failureTransient:
		return "transient"
	case failureUnexpected:
		return "unexpected"
	case failureAccess:
		return "access"
	case failureAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// classifyFailure maps an error raised while connecting or streaming onto the
// closed taxonomy. Classification happens once, here, at the boundary where
// the underlying call is made.
func classifyFailure(err error) failureKind {
	var apiErr *internal.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return failureAuth
		case http.StatusForbidden, http.StatusNotFound:
			return failureAccess
		default:
			// Any other HTTP failure (429, 5xx, malformed 4xx) self-heals.
			return failureTransient
		}
	}

	var tokenErr *internal.AuthError
	if errors.As(err, &tokenErr) {
		// A token refresh that died on the network is a blip, whether the
		// connection failed outright or the response body was cut off
		// mid-read. A rejection whose body actually arrived is terminal.
		if tokenErr.Body == "" && (tokenErr.StatusCode == 0 || tokenErr.Err != nil) {
			return failureTransient
		}
		return failureAuth
	}

	var clientErr *internal.ClientError
	if errors.As(err, &clientErr) {
		return failureTransient
	}

	return failureUnexpected
}
