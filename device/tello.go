package device

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gobot.io/x/gobot/platforms/dji/tello"
)

const defaultTelloPort = "8888"

// telloDriver is the part of gobot's tello.Driver this package uses
type telloDriver interface {
	On(name string, f func(data interface{})) error
	Start() error
	TakeOff() error
	Land() error
	Halt() error
}

// Tello drives a Ryze/DJI Tello over Wi-Fi through gobot.
// The Tello trims itself and gobot's driver streams stick updates, so
// Calibrate and StartKeepAlive have nothing to send.
type Tello struct {
	port   string
	logger *slog.Logger

	mu        sync.Mutex
	driver    telloDriver
	started   bool // driver sockets and loops are up, Halt is owed
	connected bool // the drone acknowledged
}

// NewTello creates a driver listening for drone replies on port
func NewTello(port string, logger *slog.Logger) *Tello {
	if port == "" {
		port = defaultTelloPort
	}
	return newTello(port, tello.NewDriver(port), logger)
}

func newTello(port string, driver telloDriver, logger *slog.Logger) *Tello {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tello{port: port, logger: logger, driver: driver}
}

func (t *Tello) Name() string {
	return "tello:" + t.port
}

// Connect starts the driver and waits for the drone's connection ack.
// The driver stays started when the wait is cut short; Close halts it.
func (t *Tello) Connect(ctx context.Context) error {
	ready := make(chan struct{})
	var once sync.Once
	if err := t.driver.On(tello.ConnectedEvent, func(data interface{}) {
		once.Do(func() { close(ready) })
	}); err != nil {
		return fmt.Errorf("subscribe to connected event: %w", err)
	}

	if err := t.driver.Start(); err != nil {
		return fmt.Errorf("start tello driver: %w", err)
	}
	t.mu.Lock()
	t.started = true
	t.mu.Unlock()

	select {
	case <-ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	t.mu.Lock()
	t.connected = true
	t.mu.Unlock()
	return nil
}

func (t *Tello) Calibrate() error {
	if err := t.requireConnection(); err != nil {
		return err
	}
	t.logger.Debug("flat trim is automatic on tello, nothing sent")
	return nil
}

func (t *Tello) StartKeepAlive() error {
	return t.requireConnection()
}

func (t *Tello) TakeOff() error {
	if err := t.requireConnection(); err != nil {
		return err
	}
	return t.driver.TakeOff()
}

func (t *Tello) Land() error {
	if err := t.requireConnection(); err != nil {
		return err
	}
	return t.driver.Land()
}

// Close halts the driver if it was started, acknowledged or not
func (t *Tello) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return nil
	}
	t.started = false
	t.connected = false
	return t.driver.Halt()
}

func (t *Tello) requireConnection() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.connected {
		return ErrNotConnected
	}
	return nil
}

func init() {
	Register("tello", func(cfg Config, logger *slog.Logger) (Device, error) {
		return NewTello(cfg.Port, logger), nil
	})
}
