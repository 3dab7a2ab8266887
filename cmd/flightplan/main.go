// Command flightplan flies a toy quadcopter through a timed flight plan.
//
// Usage:
//
//	flightplan <command> [flags]
//
// Commands:
//
//	fly          Connect and run a flight plan (default: the built-in "default" plan)
//	scan         Scan for Bluetooth minidrones
//	plans        List or show available flight plans
//	actions      List action types usable in plans
//	replay       Print a recorded flight log
//	coordinator  Serve the drone coordinator API
//	agent        Wait for assignments from a coordinator and fly them
//	pilot        Interactive shell to assign actions through a coordinator
//
// Examples:
//
//	# Take off, hover five seconds, land
//	flightplan fly
//
//	# Dry run on the simulator, recording the flight
//	flightplan fly -driver sim -record flight.cbor
//
//	# Replay the recording
//	flightplan replay flight.cbor
package main

import (
	"fmt"
	"log/slog"
	"os"
)

// Process exit codes
const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

const usage = `flightplan - timed flight sequences for toy quadcopters

Usage:
  flightplan <command> [flags]

Commands:
  fly          Connect and run a flight plan
  scan         Scan for Bluetooth minidrones
  plans        List or show available flight plans
  actions      List action types usable in plans
  replay       Print a recorded flight log
  coordinator  Serve the drone coordinator API
  agent        Wait for assignments from a coordinator and fly them
  pilot        Interactive shell to assign actions through a coordinator

Use "flightplan <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		os.Exit(runFly(nil))
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var code int
	switch cmd {
	case "fly":
		code = runFly(args)
	case "scan":
		code = runScan(args)
	case "plans":
		code = runPlans(args)
	case "actions":
		code = runActions(args)
	case "replay":
		code = runReplay(args)
	case "coordinator":
		code = runCoordinator(args)
	case "agent":
		code = runAgent(args)
	case "pilot":
		code = runPilot(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		code = exitFailure
	}
	os.Exit(code)
}

// newLogger installs and returns the process logger
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
