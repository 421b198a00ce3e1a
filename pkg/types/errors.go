package types

import (
	"errors"
	"fmt"
)

// ConfigurationError reports malformed configuration, or a record that
// survived filtering but cannot be resolved to a rule.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// TransportError is a network or timeout failure talking to a registrar or node
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RegistrarAPIError is a non-network error returned by the registrar,
// e.g. a rejected status update.
type RegistrarAPIError struct {
	Op         string
	Code       string
	HTTPStatus int
	Message    string
}

func (e *RegistrarAPIError) Error() string {
	return fmt.Sprintf("%s: registrar error %s (HTTP %d): %s", e.Op, e.Code, e.HTTPStatus, e.Message)
}

// ErrorKind returns a short label for err, used for logs and metrics
func ErrorKind(err error) string {
	var cfgErr *ConfigurationError
	var transportErr *TransportError
	var apiErr *RegistrarAPIError

	switch {
	case err == nil:
		return "none"
	case errors.As(err, &cfgErr):
		return "configuration"
	case errors.As(err, &transportErr):
		return "transport"
	case errors.As(err, &apiErr):
		return "registrar"
	default:
		return "unknown"
	}
}
