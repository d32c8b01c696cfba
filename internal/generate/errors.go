package generate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// Class buckets a generation failure by how the pipeline should react to it.
type Class string

const (
	// ClassTransient errors (network blips, 5xx, overload) are worth retrying.
	ClassTransient Class = "transient"

	// ClassQuota errors (billing, rate-limit exhaustion) must fail fast so the
	// fallback path engages immediately instead of burning the retry budget.
	ClassQuota Class = "quota"

	// ClassFatal errors (malformed request/response) will not improve on retry.
	ClassFatal Class = "fatal"

	// ClassDeadline is synthetic: produced by timeout/cancellation, terminal.
	ClassDeadline Class = "deadline_exceeded"
)

// Retryable reports whether an error of this class should be retried.
func (c Class) Retryable() bool { return c == ClassTransient }

// Error is a classified generation failure. It wraps the vendor error so
// callers can still errors.Is/As into the cause.
type Error struct {
	Class  Class
	Status int // HTTP status when known, 0 otherwise
	cause  error
}

// NewError wraps cause with an explicit class.
func NewError(class Class, cause error) *Error {
	return &Error{Class: class, cause: cause}
}

// StatusError wraps an HTTP-level failure, classifying it by status code.
func StatusError(status int, cause error) *Error {
	return &Error{Class: classForStatus(status), Status: status, cause: cause}
}

func (e *Error) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("generation failed (%s)", e.Class)
	}
	return fmt.Sprintf("generation failed (%s): %v", e.Class, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// ErrNotAttempted marks an asset whose worker never started because the
// job-level deadline expired first. It classifies as deadline_exceeded so the
// forced fallback carries an honest cause instead of a silent gap.
var ErrNotAttempted = NewError(ClassDeadline, errors.New("generation not attempted before job deadline"))

// quotaKeywords are the vendor error fragments that indicate quota or billing
// exhaustion. Matched case-insensitively against the innermost error message.
var quotaKeywords = []string{
	"quota",
	"rate limit",
	"rate_limited",
	"too many requests",
	"resource_exhausted",
	"throttled",
	"billing",
}

// transientKeywords indicate overload or availability problems worth retrying.
var transientKeywords = []string{
	"overload",
	"unavailable",
	"internal error",
	"timeout",
	"connection reset",
	"eof",
}

// ClassOf classifies an arbitrary error for retry/fallback decisions.
// A pre-classified *Error wins; otherwise the error chain is inspected for
// context cancellation, vendor API status codes, network failures, and
// finally keyword matching on the innermost message.
func ClassOf(err error) Class {
	if err == nil {
		return ClassFatal
	}

	var ge *Error
	if errors.As(err, &ge) {
		return ge.Class
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ClassDeadline
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classForStatus(apiErr.Code)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassTransient
	}

	// Unwrap to the innermost error for better signal before keyword matching.
	inner := err
	for {
		unwrapped := errors.Unwrap(inner)
		if unwrapped == nil {
			break
		}
		inner = unwrapped
	}

	msg := strings.ToLower(inner.Error())
	for _, kw := range quotaKeywords {
		if strings.Contains(msg, kw) {
			return ClassQuota
		}
	}
	for _, kw := range transientKeywords {
		if strings.Contains(msg, kw) {
			return ClassTransient
		}
	}

	return ClassFatal
}

// classForStatus maps an HTTP status code to an error class.
func classForStatus(status int) Class {
	switch {
	case status == http.StatusTooManyRequests || status == http.StatusPaymentRequired:
		return ClassQuota
	case status >= 500:
		return ClassTransient
	case status == http.StatusRequestTimeout:
		return ClassTransient
	default:
		return ClassFatal
	}
}
