package main

import (
	"log/slog"

	"github.com/simon020286/go-flightplan/models"
)

// ConsoleLogger writes run events to the process logger
type ConsoleLogger struct {
	logger *slog.Logger
}

func (cl *ConsoleLogger) OnEvent(event models.Event) {
	switch event.Type {
	case models.EventRunStarted:
		cl.logger.Debug("run started", "run", event.RunID, "steps", event.Data["steps"])

	case models.EventRunCompleted:
		cl.logger.Info("run finished",
			"state", event.String("state"),
			"duration", event.Duration("duration"))

	case models.EventStepScheduled:
		if d := event.Duration("delay"); d > 0 {
			cl.logger.Debug("waiting", "step", event.String("step_id"), "delay", d)
		}

	case models.EventStepStarted:
		cl.logger.Debug("step started", "step", event.String("step_id"), "phase", event.String("phase"))

	case models.EventStepCompleted:
		cl.logger.Debug("step completed", "step", event.String("step_id"), "duration", event.Duration("duration"))

	case models.EventStepSkipped:
		cl.logger.Info("step skipped", "step", event.String("step_id"))

	case models.EventDeviceClosed:
		cl.logger.Debug("device released", "device", event.String("device"))
	}
}
