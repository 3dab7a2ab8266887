package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	flightplan "github.com/simon020286/go-flightplan"
	"github.com/simon020286/go-flightplan/builder"
	"github.com/simon020286/go-flightplan/config"
	"github.com/simon020286/go-flightplan/recorder"
)

// deviceFlags are the device overrides shared by fly and agent
type deviceFlags struct {
	driver         string
	address        string
	port           string
	connectTimeout time.Duration
}

func (d *deviceFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&d.driver, "driver", "", "Device driver: minidrone, tello or sim (default: from plan)")
	fs.StringVar(&d.address, "address", "", "BLE address or advertised name of the drone")
	fs.StringVar(&d.port, "port", "", "UDP port of the drone (tello)")
	fs.DurationVar(&d.connectTimeout, "connect-timeout", 0, "Give up connecting after this long (default: from plan)")
}

// apply overrides the plan's device section with the flags that were set
func (d *deviceFlags) apply(dev *config.DeviceConfig) {
	if d.driver != "" {
		dev.Driver = d.driver
	}
	if d.address != "" {
		dev.Address = d.address
	}
	if d.port != "" {
		dev.Port = d.port
	}
	if d.connectTimeout > 0 {
		dev.ConnectTimeout = config.Duration(d.connectTimeout)
	}
}

func runFly(args []string) int {
	fs := flag.NewFlagSet("fly", flag.ExitOnError)
	planName := fs.String("plan", "default", "Plan name from the library, or path to a YAML plan")
	record := fs.String("record", "", "Append run events to this CBOR flight log")
	verbose := fs.Bool("v", false, "Log every step")
	var dev deviceFlags
	dev.register(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: flightplan fly [flags]

Connect to the drone and run a flight plan. Ctrl-C cancels the run;
the plan's finally actions (land) still run.

Exit codes: 0 completed, 1 failed or aborted, 130 interrupted.

Flags:
`)
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	logger := newLogger(*verbose)

	plan, err := resolvePlan(*planName)
	if err != nil {
		logger.Error("failed to load plan", "error", err)
		return exitFailure
	}
	dev.apply(&plan.Device)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := flyPlan(ctx, plan, *record, logger)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return exitInterrupted
		}
		logger.Error("flight failed", "error", err)
		return exitFailure
	}
	return exitCode(report)
}

// resolvePlan loads a plan file, or looks the name up in the plan library
func resolvePlan(nameOrPath string) (*config.PlanConfig, error) {
	if _, err := os.Stat(nameOrPath); err == nil {
		return config.LoadFile(nameOrPath)
	}

	lib := builder.GetGlobalPlanLibrary()
	if lib == nil {
		return nil, fmt.Errorf("plan library unavailable")
	}
	plan, ok := lib.Get(nameOrPath)
	if !ok {
		return nil, fmt.Errorf("unknown plan '%s' (see 'flightplan plans')", nameOrPath)
	}
	return plan, nil
}

// flyPlan builds the mission for plan and flies it, recording events to
// recordPath when set.
func flyPlan(ctx context.Context, plan *config.PlanConfig, recordPath string, logger *slog.Logger) (*flightplan.Report, error) {
	mission, err := flightplan.BuildMission(plan, logger)
	if err != nil {
		return nil, err
	}
	mission.Runner.AddListener(&ConsoleLogger{logger: logger})

	if recordPath != "" {
		rec, err := recorder.NewFileRecorder(recordPath, logger)
		if err != nil {
			return nil, fmt.Errorf("open flight log: %w", err)
		}
		defer rec.Close()
		mission.Runner.AddListener(rec)
	}

	logger.Info("flying plan", "plan", plan.Name, "driver", plan.Device.Driver, "run", mission.Runner.RunID())
	return mission.Fly(ctx)
}

func exitCode(report *flightplan.Report) int {
	switch report.State {
	case flightplan.StateCompleted, flightplan.StateExited:
		return exitOK
	case flightplan.StateCancelled:
		return exitInterrupted
	default:
		return exitFailure
	}
}
