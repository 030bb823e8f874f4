// Package errors provides the error helpers used across agentwire. Errors are
// annotated with the file and line of the call site so that a failure deep in
// the protocol stack still points at the code that raised it. Wrapped errors
// keep their chain intact for errors.Is / errors.As matching against the
// transport and client sentinels.
package errors

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// New creates an error annotated with the caller's file and line.
func New(format string, a ...any) error {
	return fmt.Errorf("[%s] %s", caller(), fmt.Sprintf(format, a...))
}

// Wrapf adds context (including the caller's file and line) to an existing
// error. Returns nil when err is nil. The original error stays reachable via
// the %w chain.
func Wrapf(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[%s] %s: %w", caller(), fmt.Sprintf(format, a...), err)
}

func caller() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "???:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
