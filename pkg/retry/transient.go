package retry

import (
	"errors"
	"strings"
	"time"
)

// transientMarkers are substrings (matched case-insensitively against an
// error's Error() text) that identify a provider failure as transient:
// worth retrying rather than surfacing immediately. This mirrors how
// provider SDKs bury the useful signal in an HTTP status code or a vendor
// error string rather than a typed error value.
var transientMarkers = []string{
	"timeout",
	"rate_limit",
	"ratelimit",
	"connection",
	"503",
	"529",
	"internalserver",
}

// IsTransient reports whether err looks like a transient provider failure
// that is worth retrying: its message contains one of transientMarkers
// (a timeout, a rate limit, a connection failure, a 503 or 529, or an
// internal server error). Anything else (auth failures, bad requests,
// context cancellation) is treated as fatal. An error wrapped with
// NonRetryable is always fatal, regardless of its message.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if isNonRetryable(err) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// nonRetryableError marks err as fatal no matter what RetryableFunc would
// otherwise decide from its message — used once a caller has already
// delivered output it cannot safely replay.
type nonRetryableError struct{ err error }

func (e *nonRetryableError) Error() string { return e.err.Error() }
func (e *nonRetryableError) Unwrap() error { return e.err }

// NonRetryable wraps err so it is never retried by Do, even under a
// RetryableFunc that would otherwise treat its message as transient.
// streamToSink uses this once any chunk has reached the caller: replaying
// the call at that point would duplicate already-delivered output.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &nonRetryableError{err: err}
}

func isNonRetryable(err error) bool {
	var nre *nonRetryableError
	return errors.As(err, &nre)
}

// GenerateConfig returns the retry policy used when calling a provider's
// Generate method: exponential backoff gated on IsTransient, capped at
// maxRetries additional attempts beyond the first.
func GenerateConfig(maxRetries int) Config {
	return Config{
		MaxAttempts:   maxRetries + 1,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      20 * time.Second,
		Multiplier:    2.0,
		Jitter:        0.2,
		RetryableFunc: IsTransient,
	}
}

// StreamConfig returns the retry policy used when opening a provider's
// Stream. It only governs the attempt to establish the stream: once the
// first chunk has been read successfully, callers must not retry the
// same call through this package, since replaying it would duplicate
// already-delivered output.
func StreamConfig(maxRetries int) Config {
	return GenerateConfig(maxRetries)
}
