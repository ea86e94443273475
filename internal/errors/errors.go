package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/blairfrandeen/titr/internal/logger"
)

// InputError reports a problem with user input. It is always recoverable:
// the console prints the message and prompts again.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

// Input returns an InputError with the given message.
func Input(msg string) error {
	return &InputError{Msg: msg}
}

// Inputf returns an InputError with a formatted message.
func Inputf(format string, args ...interface{}) error {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

// IsInput reports whether err is (or wraps) an InputError.
func IsInput(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	os.Exit(1)
}
