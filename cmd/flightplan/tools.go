package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/simon020286/go-flightplan/actions"
	"github.com/simon020286/go-flightplan/builder"
	"github.com/simon020286/go-flightplan/device"
	"github.com/simon020286/go-flightplan/recorder"
)

func runScan(args []string) int {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	timeout := fs.Duration("timeout", 10*time.Second, "How long to listen for advertisements")
	limit := fs.Int("limit", 0, "Stop after this many drones (0: no limit)")
	prefixes := fs.String("prefix", strings.Join(device.MinidronePrefixes, ","), "Comma-separated name prefixes to match")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: flightplan scan [flags]

Listen for Bluetooth LE advertisements and list matching drones.

Flags:
`)
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	logger := newLogger(false)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	logger.Info("scanning", "timeout", *timeout)
	found, err := device.Scan(ctx, strings.Split(*prefixes, ","), *limit)
	if err != nil {
		logger.Error("scan failed", "error", err)
		return exitFailure
	}

	if len(found) == 0 {
		fmt.Println("No drones found")
		return exitOK
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tRSSI")
	for _, adv := range found {
		fmt.Fprintf(w, "%s\t%s\t%d dBm\n", adv.Name, adv.Address, adv.RSSI)
	}
	w.Flush()
	return exitOK
}

func runPlans(args []string) int {
	fs := flag.NewFlagSet("plans", flag.ExitOnError)
	show := fs.String("show", "", "Print the YAML of this plan")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: flightplan plans [flags]

List the built-in plans and the ones in the user plans directory
(%s).

Flags:
`, builder.GetPlansPath())
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	lib := builder.GetGlobalPlanLibrary()
	if lib == nil {
		fmt.Fprintln(os.Stderr, "Error: plan library unavailable")
		return exitFailure
	}

	if *show != "" {
		plan, ok := lib.Get(*show)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown plan '%s'\n", *show)
			return exitFailure
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		if err := enc.Encode(plan); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitFailure
		}
		return exitOK
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTEPS\tDESCRIPTION")
	for _, name := range lib.List() {
		plan, _ := lib.Get(name)
		fmt.Fprintf(w, "%s\t%d\t%s\n", name, len(plan.Steps), plan.Description)
	}
	w.Flush()
	return exitOK
}

func runActions(args []string) int {
	fs := flag.NewFlagSet("actions", flag.ExitOnError)
	category := fs.String("category", "", "Only list actions of this category")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: flightplan actions [flags]

List the action types a plan step can use, with their parameters.

Flags:
`)
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	list := actions.GetActionsMetadata()
	if *category != "" {
		list = actions.GetActionsByCategory(*category)
	}

	for _, meta := range list {
		fmt.Printf("%-12s [%s] %s\n", meta.Name, meta.Category, meta.Description)
		for _, p := range meta.Params {
			var attrs []string
			if p.Required {
				attrs = append(attrs, "required")
			}
			if p.Default != "" {
				attrs = append(attrs, "default "+p.Default)
			}
			line := fmt.Sprintf("    %-10s %s", p.Name, p.Type)
			if len(attrs) > 0 {
				line += " (" + strings.Join(attrs, ", ") + ")"
			}
			if p.Description != "" {
				line += "  " + p.Description
			}
			fmt.Println(line)
		}
	}
	return exitOK
}

func runReplay(args []string) int {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	runID := fs.String("run", "", "Only show this run")
	eventType := fs.String("type", "", "Only show this event type (e.g. step.error)")
	stepID := fs.String("step", "", "Only show this step")
	asJSON := fs.Bool("json", false, "Print one JSON object per record")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: flightplan replay [flags] <flight.cbor>

Print the events of a flight log written by "flightplan fly -record".

Flags:
`)
		fs.PrintDefaults()
	}
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: flight log file required")
		fs.Usage()
		return exitFailure
	}

	reader, err := recorder.NewFilteredReader(fs.Arg(0), recorder.Filter{
		RunID:  *runID,
		Type:   *eventType,
		StepID: *stepID,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer reader.Close()

	enc := json.NewEncoder(os.Stdout)
	count := 0
	for {
		record, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading record %d: %v\n", count+1, err)
			return exitFailure
		}
		count++

		if *asJSON {
			_ = enc.Encode(record)
			continue
		}
		fmt.Println(record.String())
	}

	if !*asJSON {
		fmt.Fprintf(os.Stderr, "%d records\n", count)
	}
	return exitOK
}
