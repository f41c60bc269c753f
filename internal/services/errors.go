package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidTransition         = errors.New("invalid transition")
	ErrMalformedProviderResponse = errors.New("malformed provider response")
	ErrMalformedCallback         = errors.New("malformed callback")
	ErrTransport                 = errors.New("transport failure")
	ErrUnresolvedCallback        = errors.New("unresolved callback")
	ErrValidation                = errors.New("validation error")
	ErrConfiguration             = errors.New("configuration error")
	ErrNotFound                  = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Escalates reports whether err must be surfaced to the caller as a failure.
// Only rejected state transitions and malformed external documents escalate;
// transport and provider failures are absorbed into the job's error state.
func Escalates(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrMalformedProviderResponse),
		errors.Is(err, ErrMalformedCallback):
		return true
	default:
		return false
	}
}

// Kind returns a short classification label used in structured logs.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrMalformedProviderResponse):
		return "malformed_provider_response"
	case errors.Is(err, ErrMalformedCallback):
		return "malformed_callback"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrUnresolvedCallback):
		return "unresolved_callback"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "unknown"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
