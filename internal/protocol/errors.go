package protocol

import (
	"fmt"
	"sort"
	"strings"

	"cliplift/internal/services"
)

// MissingVariableError reports every required input variable absent from a
// Format call. Variables are sorted for stable messages.
type MissingVariableError struct {
	Prompt    string
	Variables []string
}

func (e *MissingVariableError) Error() string {
	vars := append([]string(nil), e.Variables...)
	sort.Strings(vars)
	return fmt.Sprintf("prompt %q missing required variables: %s", e.Prompt, strings.Join(vars, ", "))
}

func (e *MissingVariableError) Unwrap() error {
	return services.ErrValidation
}

// MalformedOutputError reports model output that is not syntactically valid
// structured data after fence stripping.
type MalformedOutputError struct {
	Prompt  string
	Snippet string
	Err     error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("prompt %q output is not valid JSON: %v (payload snippet: %s)", e.Prompt, e.Err, e.Snippet)
}

func (e *MalformedOutputError) Unwrap() error {
	return services.ErrMalformedOutput
}

// SchemaViolationError reports syntactically valid output that fails the
// output schema, naming the offending field and the violated constraint.
type SchemaViolationError struct {
	Field      string
	Constraint string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation: field %q %s", e.Field, e.Constraint)
}

func (e *SchemaViolationError) Unwrap() error {
	return services.ErrSchemaViolation
}
