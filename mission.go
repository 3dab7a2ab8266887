package flightplan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/simon020286/go-flightplan/device"
	"github.com/simon020286/go-flightplan/models"
)

// DefaultConnectTimeout bounds Connect when none is configured
const DefaultConnectTimeout = 30 * time.Second

// Mission owns a device for the lifetime of one run:
// connect, execute the runner, close the device on every path.
type Mission struct {
	Device         device.Device
	Runner         *Runner
	ConnectTimeout time.Duration
	Logger         *slog.Logger
}

// NewMission creates a mission flying runner on dev
func NewMission(dev device.Device, runner *Runner, connectTimeout time.Duration) *Mission {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	return &Mission{
		Device:         dev,
		Runner:         runner,
		ConnectTimeout: connectTimeout,
		Logger:         slog.Default(),
	}
}

// Fly connects the device and runs the sequence.
// When the device never connects no action is issued and the error wraps
// models.ErrConnectTimeout (or the context error).
func (m *Mission) Fly(ctx context.Context) (*Report, error) {
	bus := m.Runner.eventBus
	name := m.Device.Name()

	defer func() {
		if err := m.Device.Close(); err != nil {
			m.Logger.Warn("failed to close device", "device", name, "error", err)
		}
		bus.EmitDeviceClosed(name)
	}()

	m.Logger.Info("connecting", "device", name, "timeout", m.ConnectTimeout)
	if err := m.connect(ctx); err != nil {
		bus.EmitDeviceError(name, err)
		return nil, fmt.Errorf("connect %s: %w", name, err)
	}
	bus.EmitDeviceConnected(name)
	m.Logger.Info("connected", "device", name)

	return m.Runner.Execute(ctx)
}

// connect waits for the device on the runner's clock
func (m *Mission) connect(ctx context.Context) error {
	connectCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- m.Device.Connect(connectCtx)
	}()

	timer := m.Runner.Clock().NewTimer(m.ConnectTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.Chan():
		return models.ErrConnectTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
