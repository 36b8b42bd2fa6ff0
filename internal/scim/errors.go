package scim

import "fmt"

// ValidationError reports malformed client-side input: a missing id or
// body, a non-URL endpoint, a disallowed host, or a response whose shape
// does not match the SCIM contract. It is raised before any network call
// (or, for shape mismatches, after a successful one) and is never logged
// as a request of its own.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

func newValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ErrorKind classifies request failures.
type ErrorKind string

const (
	// KindTimeout means the configured timeout elapsed before a response.
	KindTimeout ErrorKind = "timeout"
	// KindCanceled means the caller's context was canceled mid-flight.
	KindCanceled ErrorKind = "canceled"
	// KindTransport covers DNS, connection, and TLS failures.
	KindTransport ErrorKind = "transport"
	// KindHTTP means the server answered with a non-2xx status.
	KindHTTP ErrorKind = "http"
	// KindBadResponse means the body could not be decoded as declared.
	KindBadResponse ErrorKind = "bad_response"
)

// RequestError is the client's single error type for failed round trips.
// Status is 0 for client-side failures such as timeouts. SCIM carries
// the parsed SCIM error with RFC context when the server supplied one.
type RequestError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Details map[string]any
	SCIM    *ParsedError
	cause   error
}

func (e *RequestError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("scim request failed (%s, HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("scim request failed (%s): %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying transport error, if any.
func (e *RequestError) Unwrap() error { return e.cause }
