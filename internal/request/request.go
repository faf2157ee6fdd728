package request

import (
	"errors"
	"fmt"
)

// Operation identifies which analysis a request drives.
type Operation string

const (
	OpProfile      Operation = "profile"
	OpCompare      Operation = "compare"
	OpFilterReads  Operation = "filter_reads"
	OpProfileGenes Operation = "profile_genes"
	OpGenomeWide   Operation = "genome_wide"
	OpQuickProfile Operation = "quick_profile"
	OpPlot         Operation = "plot"
	OpOther        Operation = "other"
)

// Request is implemented by every fully validated command request.
type Request interface {
	Operation() Operation
}

// UsageError reports arguments that could not be translated into a valid
// request. The top-level error handler maps it to the usage exit code.
type UsageError struct {
	Op      string
	Message string
}

func (e *UsageError) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Usagef builds a UsageError for the named command.
func Usagef(op Operation, format string, args ...any) *UsageError {
	return &UsageError{Op: string(op), Message: fmt.Sprintf(format, args...)}
}

// AsUsage unwraps err to a UsageError when one is present.
func AsUsage(err error) (*UsageError, bool) {
	var usage *UsageError
	if errors.As(err, &usage) {
		return usage, true
	}
	return nil, false
}
