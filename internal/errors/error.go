package errors

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var (
	// common errors
	ErrMissingToken  = errors.New("authorization token is missing")
	ErrMissingEmail  = errors.New("authorization token has no email claim")
	ErrEmptyResponse = errors.New("empty response body")

	// listener errors
	ErrUnexpectedEventType = errors.New("unable to cast to event type")
	ErrEventDataMissing    = errors.New("message data is nil")
	ErrInvalidEventData    = errors.New("invalid event data")
)

// Kind groups classified errors by cause.
type Kind int

const (
	Unclassified Kind = iota
	ValidationFailure
	AuthTokenInvalid
	AuthRejected
	DependencyUnavailable
	BackendRejected
)

func (k Kind) String() string {
	switch k {
	case ValidationFailure:
		return "ValidationFailure"
	case AuthTokenInvalid:
		return "AuthTokenInvalid"
	case AuthRejected:
		return "AuthRejected"
	case DependencyUnavailable:
		return "DependencyUnavailable"
	case BackendRejected:
		return "BackendRejected"
	default:
		return "Unclassified"
	}
}

// ClassifiedError carries the status code and client facing message for a failure.
// Cause is kept for server side logging only and never sent to the client.
type ClassifiedError struct {
	Kind       Kind
	StatusCode int
	Message    string
	Cause      error
}

func (e *ClassifiedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%d): %s: %v", e.Kind, e.StatusCode, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

func newClassified(kind Kind, status int, message string, cause error) *ClassifiedError {
	return &ClassifiedError{Kind: kind, StatusCode: status, Message: message, Cause: cause}
}

func Validation(message string) *ClassifiedError {
	return newClassified(ValidationFailure, http.StatusBadRequest, message, nil)
}

func InvalidToken(cause error) *ClassifiedError {
	return newClassified(AuthTokenInvalid, http.StatusUnauthorized, "Invalid authorization token", cause)
}

func Unauthorized() *ClassifiedError {
	return newClassified(AuthRejected, http.StatusUnauthorized, "Unauthorized", nil)
}

func Forbidden() *ClassifiedError {
	return newClassified(AuthRejected, http.StatusForbidden, "Forbidden", nil)
}

// Unreachable is returned when the request to a dependency could not be made at all.
func Unreachable(serviceName string, cause error) *ClassifiedError {
	return newClassified(DependencyUnavailable, http.StatusServiceUnavailable,
		fmt.Sprintf("Unable to contact %s service", serviceName), cause)
}

// QueryFailed is returned when a dependency answered with a non success status.
func QueryFailed(serviceName string, cause error) *ClassifiedError {
	return newClassified(DependencyUnavailable, http.StatusServiceUnavailable,
		fmt.Sprintf("Failed to query %s service", serviceName), cause)
}

func SinkFailed(cause error) *ClassifiedError {
	return newClassified(DependencyUnavailable, http.StatusServiceUnavailable, "Failed to write to log sink", cause)
}

// BodyUnreadable classifies a failed request body read. Bodies over the size limit get 413.
func BodyUnreadable(cause error) *ClassifiedError {
	var tooLarge *http.MaxBytesError
	if errors.As(cause, &tooLarge) {
		return newClassified(ValidationFailure, http.StatusRequestEntityTooLarge, "Request body too large", cause)
	}
	return newClassified(ValidationFailure, http.StatusBadRequest, "Unable to read request body", cause)
}

func MetricsRejected(cause error) *ClassifiedError {
	return newClassified(BackendRejected, http.StatusBadRequest, "Error saving metrics data", cause)
}

// AsClassified returns the first ClassifiedError in err's chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified, true
	}
	return nil, false
}

// IsKind reports whether err carries a classification of the given kind.
func IsKind(err error, kind Kind) bool {
	classified, ok := AsClassified(err)
	return ok && classified.Kind == kind
}
