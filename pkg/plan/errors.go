package plan

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Parse and Validate.
var (
	ErrMalformedPlan           = errors.New("malformed plan")
	ErrUnknownAction           = errors.New("unknown action")
	ErrInvalidActionShape      = errors.New("invalid action shape")
	ErrUnsupportedSelectorKind = errors.New("unsupported selector kind")
)

// MalformedPlanError reports planner output that is not a JSON array of
// records. Raw holds the text after fence stripping.
type MalformedPlanError struct {
	Raw string
	Err error
}

func (e *MalformedPlanError) Error() string {
	return fmt.Sprintf("malformed plan: %v\nraw response:\n%s", e.Err, e.Raw)
}

func (e *MalformedPlanError) Unwrap() error { return e.Err }

func (e *MalformedPlanError) Is(target error) bool { return target == ErrMalformedPlan }

// ActionError reports a record that names an unknown action or lacks the
// fields its action requires.
type ActionError struct {
	Index  int // zero-based position in the plan
	Action string
	Field  string
	Reason string
	Err    error // ErrUnknownAction or ErrInvalidActionShape
	Cause  error // optional, e.g. ErrUnsupportedSelectorKind
}

func (e *ActionError) Error() string {
	msg := fmt.Sprintf("step %d", e.Index+1)
	if e.Action != "" {
		msg += fmt.Sprintf(" (%s)", e.Action)
	}
	msg += ": " + e.Err.Error()
	if e.Field != "" {
		msg += fmt.Sprintf(": field %q", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ActionError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

func unknownAction(index int, name string) error {
	return &ActionError{Index: index, Action: name, Err: ErrUnknownAction,
		Reason: fmt.Sprintf("%q is not one of %v", name, Kinds)}
}

func invalidShape(index int, kind Kind, field, reason string) error {
	return &ActionError{Index: index, Action: string(kind), Field: field, Reason: reason, Err: ErrInvalidActionShape}
}
