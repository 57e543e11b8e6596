package agent

import "context"

// Result is the uniform envelope every agent returns. Success with Errs set,
// or failure with Data set, is a contract violation; the orchestrator trusts
// the Success flag alone.
type Result struct {
	Success  bool
	Data     map[string]any
	Errs     []error
	Metadata map[string]string
}

// OK builds a success envelope.
func OK(data map[string]any) Result {
	return Result{Success: true, Data: data}
}

// Fail builds a failure envelope.
func Fail(errs ...error) Result {
	return Result{Success: false, Errs: errs}
}

// Agent is one pipeline stage. Execute blocks until the stage completes or
// the context is done; all persistence of stage outputs happens inside
// Execute, while state transitions belong to the orchestrator.
type Agent interface {
	// Name returns the stage name used in logs and the audit trail.
	Name() string
	// Execute runs the stage against the supplied execution context.
	Execute(ctx context.Context, ec Context) Result
}
