// Package device defines the flying device collaborator and its drivers.
//
// Drivers register themselves from init() and are opened by name:
//
//	dev, err := device.Open(device.Config{Driver: "minidrone", Address: "RS_W123456"}, logger)
//
// Transport and command encoding stay inside the third-party drivers.
package device

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Device is a stateful flying device.
// Every command is fire-and-forget from the runner's point of view except
// Connect, which gates everything else.
type Device interface {
	Name() string
	Connect(ctx context.Context) error
	Calibrate() error
	StartKeepAlive() error
	TakeOff() error
	Land() error
	Close() error
}

// Config selects and parameterises a driver
type Config struct {
	Driver         string        `yaml:"driver"`
	Address        string        `yaml:"address,omitempty"` // BLE address or advertised name
	Port           string        `yaml:"port,omitempty"`    // UDP port (tello)
	ConnectTimeout time.Duration `yaml:"-"`
}

// Factory creates a device from its configuration
type Factory func(cfg Config, logger *slog.Logger) (Device, error)

var (
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

// Register makes a driver available under name.
// It is called from init() in driver files.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = factory
}

// Open creates the device for cfg.Driver
func Open(cfg Config, logger *slog.Logger) (Device, error) {
	mu.RLock()
	factory, exists := registry[cfg.Driver]
	mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown device driver: %s", cfg.Driver)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return factory(cfg, logger.With("driver", cfg.Driver))
}

// Drivers returns the registered driver names, sorted
func Drivers() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// waitReady runs connect in the background and returns when it finishes
// or ctx ends. The driver calls used here take no context, so an
// abandoned connect keeps running; if it succeeds after waitReady gave
// up, release is called to drop the late link.
func waitReady(ctx context.Context, connect func() error, release func()) error {
	var (
		mu     sync.Mutex
		gaveUp bool
	)
	done := make(chan error, 1)

	go func() {
		err := connect()

		mu.Lock()
		defer mu.Unlock()
		if !gaveUp {
			done <- err
			return
		}
		if err == nil && release != nil {
			release()
		}
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	select {
	case err := <-done:
		// Finished while ctx ended; the caller owns the link
		return err
	default:
	}
	gaveUp = true
	return ctx.Err()
}
