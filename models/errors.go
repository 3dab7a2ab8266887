package models

import (
	"errors"
	"fmt"
)

var (
	// ErrExit is returned by an action to end the sequence.
	// Steps after it never fire.
	ErrExit = errors.New("sequence exit requested")

	// ErrActionTimeout is reported when an action outlives its step timeout
	ErrActionTimeout = errors.New("action timed out")

	// ErrConnectTimeout is reported when the device never becomes ready
	ErrConnectTimeout = errors.New("timed out waiting for device connection")
)

type MissingConfigError struct {
	Key string
}

func (e *MissingConfigError) Error() string {
	return "missing required configuration key: " + e.Key
}

func ErrMissingConfig(key string) error {
	return &MissingConfigError{Key: key}
}

// ActionError wraps the failure of a single step
type ActionError struct {
	StepID string
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("step '%s' failed: %v", e.StepID, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func ErrAction(stepID string, err error) error {
	return &ActionError{StepID: stepID, Err: err}
}

// PanicError carries a value recovered from a panicking action
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("action panicked: %v", e.Value)
}
