package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
)

var ErrSchemaMismatch = errors.New("response did not match expected schema")

// ErrorKind is a best-effort classification used for logs and key checks.
// Callers treat every ServiceError the same way.
type ErrorKind string

const (
	KindInvalidKey    ErrorKind = "invalid_key"
	KindQuotaExceeded ErrorKind = "quota_exceeded"
	KindTimeout       ErrorKind = "timeout"
	KindOther         ErrorKind = "other"
)

type ServiceError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// NewServiceError classifies a failed call from its status code and message.
func NewServiceError(statusCode int, message string, err error) *ServiceError {
	if message == "" && err != nil {
		message = err.Error()
	}
	return &ServiceError{
		Kind:       classify(statusCode, message, err),
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

func classify(statusCode int, message string, err error) ErrorKind {
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return KindTimeout
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return KindTimeout
		}
	}

	lower := strings.ToLower(message)
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden,
		strings.Contains(lower, "api key not valid"),
		strings.Contains(lower, "api_key_invalid"),
		strings.Contains(lower, "invalid api key"):
		return KindInvalidKey
	case statusCode == http.StatusTooManyRequests,
		strings.Contains(lower, "resource_exhausted"),
		strings.Contains(lower, "quota"):
		return KindQuotaExceeded
	}
	return KindOther
}
