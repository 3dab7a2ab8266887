package coordinator

import (
	"fmt"
	"slices"
	"time"

	"github.com/simon020286/go-flightplan/config"
)

// DefaultStepDelay separates the steps of a plan built from an assignment
const DefaultStepDelay = 5 * time.Second

// AssignableActions are the action types a pilot may post.
// They take no parameters, so a name is enough to build them.
var AssignableActions = []string{"calibrate", "keep_alive", "takeoff", "land", "exit"}

// ValidateActions checks a pilot's action list
func ValidateActions(actions []string) error {
	if len(actions) == 0 {
		return fmt.Errorf("no actions")
	}
	for i, a := range actions {
		if !slices.Contains(AssignableActions, a) {
			return fmt.Errorf("action %d: unsupported action %q (expected one of %v)", i+1, a, AssignableActions)
		}
	}
	return nil
}

// PlanFromActions turns a list of action names into a plan.
// The drone is prepared the way the default plan does it, each action
// becomes a step after delay, the plan ends with an exit step and lands
// when interrupted.
func PlanFromActions(name string, actions []string, delay time.Duration) (*config.PlanConfig, error) {
	if err := ValidateActions(actions); err != nil {
		return nil, err
	}
	if delay <= 0 {
		delay = DefaultStepDelay
	}

	plan := &config.PlanConfig{
		Name:        name,
		Description: "Assigned by the coordinator",
		Device: config.DeviceConfig{
			Driver:         config.DefaultDriver,
			ConnectTimeout: config.Duration(config.DefaultConnectTimeout),
		},
		Setup: []config.ActionConfig{
			config.Action("calibrate", nil),
			config.Action("keep_alive", nil),
			config.Action("calibrate", nil),
		},
		Finally:        []config.ActionConfig{config.Action("land", nil)},
		FinallyTimeout: config.Duration(config.DefaultFinallyTimeout),
	}

	for i, a := range actions {
		plan.Steps = append(plan.Steps, config.StepConfig{
			ID:      fmt.Sprintf("%d-%s", i+1, a),
			Delay:   config.Duration(delay),
			Actions: []config.ActionConfig{config.Action(a, nil)},
		})
		if a == "exit" {
			break
		}
	}
	if last := plan.Steps[len(plan.Steps)-1]; last.Actions[0].Type != "exit" {
		plan.Steps = append(plan.Steps, config.StepConfig{
			ID:      "exit",
			Delay:   config.Duration(delay),
			Actions: []config.ActionConfig{config.Action("exit", map[string]any{"message": "Exiting process"})},
		})
	}

	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

// PlanFromAssignment names the plan after the assignment's item
func PlanFromAssignment(a *Assignment, delay time.Duration) (*config.PlanConfig, error) {
	return PlanFromActions(fmt.Sprintf("item-%d", a.ItemID), a.Actions, delay)
}
