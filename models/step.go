package models

import (
	"context"
	"fmt"
	"time"
)

// Action is the executable part of a step.
// It may mutate external device state and may fail.
type Action func(ctx context.Context) error

// ErrorPolicy decides what the runner does when a step's action fails
type ErrorPolicy string

const (
	// OnErrorContinue records the failure and proceeds to the next step
	OnErrorContinue ErrorPolicy = "continue"
	// OnErrorAbort skips the remaining steps and runs the finally steps
	OnErrorAbort ErrorPolicy = "abort"
)

// ParseErrorPolicy converts a config string into an ErrorPolicy.
// An empty string yields def.
func ParseErrorPolicy(s string, def ErrorPolicy) (ErrorPolicy, error) {
	switch ErrorPolicy(s) {
	case "":
		return def, nil
	case OnErrorContinue, OnErrorAbort:
		return ErrorPolicy(s), nil
	default:
		return "", fmt.Errorf("invalid error policy %q (expected %q or %q)", s, OnErrorContinue, OnErrorAbort)
	}
}

// Step is one (delay, action) unit of a sequence
type Step struct {
	ID      string        // Unique identifier of the step
	Delay   time.Duration // Wait before the action is invoked
	Action  Action        // The action to invoke
	Timeout time.Duration // Upper bound for the action, 0 = unbounded
	OnError ErrorPolicy   // Failure handling, empty = continue
}

// NewStep creates a step that continues on failure and has no timeout
func NewStep(id string, delay time.Duration, action Action) *Step {
	return &Step{
		ID:      id,
		Delay:   delay,
		Action:  action,
		OnError: OnErrorContinue,
	}
}

// Chain combines actions into one that runs them in order.
// The first error stops the chain.
func Chain(actions ...Action) Action {
	return func(ctx context.Context) error {
		for _, a := range actions {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := a(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}
