package flightplan

import (
	"fmt"
	"log/slog"

	"github.com/simon020286/go-flightplan/builder"
	"github.com/simon020286/go-flightplan/config"
	"github.com/simon020286/go-flightplan/device"
	"github.com/simon020286/go-flightplan/models"
	_ "github.com/simon020286/go-flightplan/actions"
)

// BuildFromConfig builds a runner from a plan.
// Setup actions become zero-delay steps that abort on failure, followed by
// the timed steps; finally actions run on abort or cancellation.
func BuildFromConfig(cfg *config.PlanConfig, env *builder.Env) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	if env == nil {
		env = &builder.Env{}
	}
	if env.Logger == nil {
		env.Logger = slog.Default()
	}

	runner := NewRunner()
	runner.SetLogger(env.Logger)
	runner.SetFinallyTimeout(cfg.FinallyTimeout.Std())

	// Phase 1: setup, one step per action
	for i, actionConfig := range cfg.Setup {
		action, err := builder.CreateAction(actionConfig.Type, actionConfig.Params, env)
		if err != nil {
			return nil, fmt.Errorf("setup %d: %w", i+1, err)
		}
		step := models.NewStep(fmt.Sprintf("setup-%d", i+1), 0, action)
		step.OnError = models.OnErrorAbort
		runner.AddStep(step)
	}

	// Phase 2: timed steps
	for _, stepConfig := range cfg.Steps {
		action, err := builder.BuildAction(stepConfig.Actions, env)
		if err != nil {
			return nil, fmt.Errorf("step '%s': %w", stepConfig.ID, err)
		}
		policy, err := models.ParseErrorPolicy(stepConfig.OnError, models.OnErrorContinue)
		if err != nil {
			return nil, fmt.Errorf("step '%s': %w", stepConfig.ID, err)
		}

		step := models.NewStep(stepConfig.ID, stepConfig.Delay.Std(), action)
		step.Timeout = stepConfig.Timeout.Std()
		step.OnError = policy
		runner.AddStep(step)
	}

	// Phase 3: finally
	for i, actionConfig := range cfg.Finally {
		action, err := builder.CreateAction(actionConfig.Type, actionConfig.Params, env)
		if err != nil {
			return nil, fmt.Errorf("finally %d: %w", i+1, err)
		}
		runner.AddFinally(models.NewStep(fmt.Sprintf("finally-%d", i+1), 0, action))
	}

	if err := runner.Validate(); err != nil {
		return nil, err
	}
	return runner, nil
}

// BuildMission opens the plan's device and builds the runner that flies it
func BuildMission(cfg *config.PlanConfig, logger *slog.Logger) (*Mission, error) {
	if logger == nil {
		logger = slog.Default()
	}

	deviceConfig := cfg.DeviceConfig()
	dev, err := device.Open(deviceConfig, logger)
	if err != nil {
		return nil, err
	}

	runner, err := BuildFromConfig(cfg, &builder.Env{
		Device: dev,
		Logger: logger.With("plan", cfg.Name),
	})
	if err != nil {
		return nil, err
	}

	mission := NewMission(dev, runner, deviceConfig.ConnectTimeout)
	mission.Logger = logger
	return mission, nil
}
