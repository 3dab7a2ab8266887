package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/uuid"

	"github.com/simon020286/go-flightplan/config"
	"github.com/simon020286/go-flightplan/coordinator"
)

func runCoordinator(args []string) int {
	fs := flag.NewFlagSet("coordinator", flag.ExitOnError)
	listen := fs.String("listen", fmt.Sprintf(":%d", coordinator.DefaultPort), "Address to serve the coordinator API on")
	advertise := fs.Bool("advertise", true, "Advertise the coordinator over mDNS")
	name := fs.String("name", "flightplan", "mDNS instance name")
	verbose := fs.Bool("v", false, "Verbose logging")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: flightplan coordinator [flags]

Serve the coordinator API. Drones queue with POST /connect and are
handed the actions pilots submit with POST /actions.

Flags:
`)
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	logger := newLogger(*verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		logger.Error("failed to listen", "addr", *listen, "error", err)
		return exitFailure
	}

	if *advertise {
		port := ln.Addr().(*net.TCPAddr).Port
		adv, err := coordinator.Advertise(*name, port)
		if err != nil {
			logger.Warn("mDNS advertisement failed", "error", err)
		} else {
			defer adv.Shutdown()
			logger.Info("advertising", "service", coordinator.ServiceType, "port", port)
		}
	}

	server := &http.Server{
		Handler:           coordinator.NewHandler(logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("coordinator listening", "addr", ln.Addr().String())
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		logger.Error("server stopped", "error", err)
		return exitFailure
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}
	return exitOK
}

func runAgent(args []string) int {
	fs := flag.NewFlagSet("agent", flag.ExitOnError)
	addr := fs.String("coordinator", "", "Coordinator address (default: discover over mDNS)")
	id := fs.String("id", "", "Drone ID to queue under (default: random)")
	delay := fs.Duration("delay", coordinator.DefaultStepDelay, "Delay before each assigned action")
	record := fs.String("record", "", "Append run events to this CBOR flight log")
	discoverTimeout := fs.Duration("discover-timeout", 10*time.Second, "How long to browse for a coordinator")
	verbose := fs.Bool("v", false, "Log every step")
	var dev deviceFlags
	dev.register(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: flightplan agent [flags]

Queue at a coordinator, fly each assignment it hands out, then queue
again. Runs until interrupted.

Flags:
`)
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	logger := newLogger(*verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	base, err := coordinatorAddress(ctx, *addr, *discoverTimeout, logger)
	if err != nil {
		logger.Error("no coordinator", "error", err)
		return exitFailure
	}

	droneID := *id
	if droneID == "" {
		droneID = uuid.NewString()
	}

	var device config.DeviceConfig
	dev.apply(&device)

	agent := &coordinator.Agent{
		Client:  coordinator.NewClient(base),
		DroneID: droneID,
		Delay:   *delay,
		Device:  device,
		Logger:  logger,
		Fly: func(ctx context.Context, plan *config.PlanConfig) error {
			report, err := flyPlan(ctx, plan, *record, logger)
			if err != nil {
				return err
			}
			if !report.Ran() {
				return fmt.Errorf("run %s: %s", report.RunID, report.State)
			}
			return nil
		},
	}

	if err := agent.Run(ctx); err != nil {
		logger.Error("agent stopped", "error", err)
		return exitFailure
	}
	return exitOK
}

func runPilot(args []string) int {
	fs := flag.NewFlagSet("pilot", flag.ExitOnError)
	addr := fs.String("coordinator", "", "Coordinator address (default: discover over mDNS)")
	discoverTimeout := fs.Duration("discover-timeout", 10*time.Second, "How long to browse for a coordinator")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: flightplan pilot [flags]

Interactive shell that assigns action lists to waiting drones.

Flags:
`)
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	logger := newLogger(false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	base, err := coordinatorAddress(ctx, *addr, *discoverTimeout, logger)
	if err != nil {
		logger.Error("no coordinator", "error", err)
		return exitFailure
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "pilot> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		logger.Error("failed to create readline", "error", err)
		return exitFailure
	}
	defer rl.Close()

	p := &pilot{client: coordinator.NewClient(base), out: rl.Stdout()}
	fmt.Fprintf(p.out, "Connected to %s\n", base)
	p.printHelp()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return exitOK
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch strings.ToLower(parts[0]) {
		case "help", "?":
			p.printHelp()
		case "post", "p":
			p.cmdPost(ctx, parts[1:])
		case "drones", "d":
			p.cmdDrones(ctx)
		case "quit", "exit", "q":
			return exitOK
		default:
			fmt.Fprintf(p.out, "Unknown command: %s (type 'help')\n", parts[0])
		}
	}
}

// pilot is the state of the interactive pilot shell
type pilot struct {
	client *coordinator.Client
	out    io.Writer
}

func (p *pilot) printHelp() {
	fmt.Fprintf(p.out, `Commands:
  post <item> <action>...   Assign actions to the first waiting drone
                            actions: %s
  drones                    List drones waiting at the coordinator
  help                      Show this help
  exit                      Leave the shell
`, strings.Join(coordinator.AssignableActions, ", "))
}

func (p *pilot) cmdPost(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(p.out, "Usage: post <item> <action>...")
		return
	}
	itemID, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(p.out, "Invalid item ID: %s\n", args[0])
		return
	}
	if err := coordinator.ValidateActions(args[1:]); err != nil {
		fmt.Fprintf(p.out, "Error: %v\n", err)
		return
	}

	resp, err := p.client.PostActions(ctx, itemID, args[1:])
	if err != nil {
		var statusErr *coordinator.StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusServiceUnavailable {
			fmt.Fprintln(p.out, "No drone is waiting")
			return
		}
		fmt.Fprintf(p.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(p.out, "Item %d assigned to drone %s\n", resp.ItemID, resp.DroneID)
}

func (p *pilot) cmdDrones(ctx context.Context) {
	drones, err := p.client.Drones(ctx)
	if err != nil {
		fmt.Fprintf(p.out, "Error: %v\n", err)
		return
	}
	if len(drones) == 0 {
		fmt.Fprintln(p.out, "No drones waiting")
		return
	}

	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DRONE\tSTATUS\tWAITING")
	for _, d := range drones {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.DroneID, d.Status, time.Since(d.Since).Truncate(time.Second))
	}
	w.Flush()
}

// coordinatorAddress returns addr, or browses mDNS for a coordinator when
// addr is empty.
func coordinatorAddress(ctx context.Context, addr string, timeout time.Duration, logger *slog.Logger) (string, error) {
	if addr != "" {
		return addr, nil
	}

	logger.Info("browsing for coordinator", "service", coordinator.ServiceType, "timeout", timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	svc, err := coordinator.Discover(ctx)
	if err != nil {
		return "", err
	}
	logger.Info("found coordinator", "instance", svc.Instance, "addr", svc.Address())
	return svc.Address(), nil
}
