package schedule

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure categories surfaced by this package.
var (
	// ErrInvalidPeriodUnit indicates a period expression used an unknown unit keyword
	ErrInvalidPeriodUnit = errors.New("invalid period unit")

	// ErrInvalidTimeFormat indicates a time expression could not be interpreted
	ErrInvalidTimeFormat = errors.New("invalid time format")

	// ErrMalformedArguments indicates an argument list that could not be folded into a specification
	ErrMalformedArguments = errors.New("malformed arguments")

	// ErrUnrecognizedOption indicates an option key outside the allow-list for the operation
	ErrUnrecognizedOption = errors.New("unrecognized option")

	// ErrEngineReject indicates the execution engine refused the job
	ErrEngineReject = errors.New("engine rejected job")
)

// ValidationError represents a validation error during specification resolution.
// Error messages follow the format "schedule: <field> <message>. <action>".
type ValidationError struct {
	Field   string
	Message string
	Action  string
	Err     error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("schedule: %s %s", e.Field, e.Message)
	if e.Action != "" {
		msg += ". " + e.Action
	}
	return msg
}

// Unwrap exposes the sentinel error so callers can match with errors.Is.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
