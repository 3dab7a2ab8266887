package config

import (
	"errors"
	"fmt"

	"github.com/simon020286/go-flightplan/models"
)

// Validate checks the structure of the plan.
// Action types are checked later, when the builder resolves them.
func (p *PlanConfig) Validate() error {
	if p.Name == "" {
		return errors.New("plan name is required")
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("plan %s must have at least one step", p.Name)
	}
	if p.Device.ConnectTimeout < 0 {
		return fmt.Errorf("plan %s: connect_timeout must not be negative", p.Name)
	}
	if p.FinallyTimeout < 0 {
		return fmt.Errorf("plan %s: finally_timeout must not be negative", p.Name)
	}

	for i, a := range p.Setup {
		if err := validateAction(a); err != nil {
			return fmt.Errorf("setup action %d: %w", i+1, err)
		}
	}

	seen := make(map[string]bool, len(p.Steps))
	for _, step := range p.Steps {
		if seen[step.ID] {
			return fmt.Errorf("duplicate step id '%s'", step.ID)
		}
		seen[step.ID] = true

		if err := validateStep(step); err != nil {
			return fmt.Errorf("invalid step '%s': %w", step.ID, err)
		}
	}

	for i, a := range p.Finally {
		if err := validateAction(a); err != nil {
			return fmt.Errorf("finally action %d: %w", i+1, err)
		}
	}

	return nil
}

// validateStep checks delays, timeouts, error policy and actions of one step
func validateStep(step StepConfig) error {
	if step.Delay < 0 {
		return fmt.Errorf("delay must not be negative, got %s", step.Delay.Std())
	}
	if step.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", step.Timeout.Std())
	}
	if _, err := models.ParseErrorPolicy(step.OnError, models.OnErrorContinue); err != nil {
		return err
	}
	if len(step.Actions) == 0 {
		return errors.New("at least one action is required")
	}
	for i, a := range step.Actions {
		if err := validateAction(a); err != nil {
			return fmt.Errorf("action %d: %w", i+1, err)
		}
	}
	return nil
}

func validateAction(a ActionConfig) error {
	if a.Type == "" {
		return models.ErrMissingConfig("action")
	}
	return nil
}
