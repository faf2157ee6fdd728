package pipeline

import (
	"errors"
	"strings"
)

// Failure is an operation that started but could not finish. Message and
// the wrapped cause are kept separate so the cause's own words survive
// all the way to the user.
type Failure struct {
	// Op is the operation that failed, e.g. "profile".
	Op string
	// Stage names the step inside the operation, empty when the failure
	// precedes the first step.
	Stage string
	Err   error
}

func (f *Failure) Error() string {
	parts := make([]string, 0, 3)
	if f.Op != "" {
		parts = append(parts, f.Op)
	}
	if f.Stage != "" {
		parts = append(parts, f.Stage)
	}
	if f.Err != nil {
		parts = append(parts, f.Err.Error())
	}
	if len(parts) == 0 {
		return "operation failed"
	}
	return strings.Join(parts, ": ")
}

func (f *Failure) Unwrap() error { return f.Err }

// AsFailure unwraps err to a *Failure when one is in the chain.
func AsFailure(err error) (*Failure, bool) {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure, true
	}
	return nil, false
}

// fail wraps err with operation and stage context. An error that already
// carries Failure context passes through untouched, keeping the innermost
// stage attribution.
func fail(op, stage string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsFailure(err); ok {
		return err
	}
	return &Failure{Op: op, Stage: stage, Err: err}
}
