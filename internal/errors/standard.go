// Package errors provides the standardized error classes raised by the
// Vesper IR generation stage. Semantic errors are rejected by the type
// checker before lowering starts, so only two fatal classes remain here:
// unimplemented language constructs and internal invariant violations.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// Category classifies a fatal lowering error.
type Category string

const (
	// CategoryUnimplemented marks a recognized but unsupported construct.
	CategoryUnimplemented Category = "UNIMPLEMENTED"
	// CategoryInvariant marks an internal inconsistency, i.e. a bug in an
	// earlier phase or in the lowering stage itself.
	CategoryInvariant Category = "INVARIANT"
)

// CompilerError is the error type produced by the lowering stage. Any
// CompilerError aborts the whole compilation unit; there is no recovery.
type CompilerError struct {
	Category Category
	Message  string
	Caller   string
}

// Error implements the error interface.
func (e *CompilerError) Error() string {
	return fmt.Sprintf("[%s] %s (at %s)", e.Category, e.Message, e.Caller)
}

func newError(category Category, format string, args ...interface{}) *CompilerError {
	caller := "unknown"
	if pc, _, _, ok := runtime.Caller(2); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			caller = fn.Name()
		}
	}

	return &CompilerError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
		Caller:   caller,
	}
}

// Unimplementedf reports a recognized but unsupported construct.
func Unimplementedf(format string, args ...interface{}) *CompilerError {
	return newError(CategoryUnimplemented, format, args...)
}

// Invariantf reports an internal inconsistency.
func Invariantf(format string, args ...interface{}) *CompilerError {
	return newError(CategoryInvariant, format, args...)
}

// IsUnimplemented reports whether err is an unimplemented-feature error.
func IsUnimplemented(err error) bool {
	var ce *CompilerError
	return errors.As(err, &ce) && ce.Category == CategoryUnimplemented
}

// IsInvariant reports whether err is an invariant violation.
func IsInvariant(err error) bool {
	var ce *CompilerError
	return errors.As(err, &ce) && ce.Category == CategoryInvariant
}
