package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrMalformedOutput = errors.New("malformed agent output")
	ErrSchemaViolation = errors.New("schema violation")
	ErrExternalCall    = errors.New("external call error")
	ErrTimeout         = errors.New("timeout")
	ErrConfiguration   = errors.New("configuration error")
	ErrNotFound        = errors.New("not found")
	ErrStoreIntegrity  = errors.New("store integrity error")
	ErrTransient       = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTerminal reports whether the error should halt a pipeline run without
// retry. Malformed output, schema violations, validation, and configuration
// failures never resolve on their own.
func IsTerminal(err error) bool {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrMalformedOutput),
		errors.Is(err, ErrSchemaViolation),
		errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrStoreIntegrity):
		return true
	default:
		return false
	}
}

// IsTransient reports whether the error stems from a dependency that may
// recover, such as an external service or a timeout.
func IsTransient(err error) bool {
	switch {
	case errors.Is(err, ErrExternalCall),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrTransient):
		return true
	default:
		return false
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
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
