package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/simon020286/go-flightplan/config"
)

// FlyFunc flies a plan and returns once the drone is released
type FlyFunc func(ctx context.Context, plan *config.PlanConfig) error

// Agent runs on the drone side: it waits for an assignment, flies it,
// then goes back to waiting.
type Agent struct {
	Client  *Client
	DroneID string
	Delay   time.Duration
	Device  config.DeviceConfig // overrides the plan's device section
	Fly     FlyFunc
	Logger  *slog.Logger
}

// Run loops until ctx ends or the coordinator cannot be reached.
// A failed flight is logged and does not stop the loop.
func (a *Agent) Run(ctx context.Context) error {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for {
		logger.Info("waiting for assignment", "drone", a.DroneID, "coordinator", a.Client.BaseURL)
		assignment, err := a.Client.Connect(ctx, a.DroneID)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := a.flyAssignment(ctx, assignment, logger); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			logger.Error("flight failed", "item", assignment.ItemID, "error", err)
		}
	}
}

func (a *Agent) flyAssignment(ctx context.Context, assignment *Assignment, logger *slog.Logger) error {
	plan, err := PlanFromAssignment(assignment, a.Delay)
	if err != nil {
		return err
	}
	if a.Device.Driver != "" {
		plan.Device = a.Device
	}

	logger.Info("running drone runner", "item", assignment.ItemID, "actions", assignment.Actions)
	return a.Fly(ctx, plan)
}
