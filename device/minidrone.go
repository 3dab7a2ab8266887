package device

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"gobot.io/x/gobot/platforms/ble"
	"gobot.io/x/gobot/platforms/parrot/minidrone"
)

// Minidrone drives a Parrot Rolling Spider / Mambo over BLE through gobot
type Minidrone struct {
	address string
	logger  *slog.Logger

	mu      sync.Mutex
	adaptor *ble.ClientAdaptor
	driver  *minidrone.Driver
}

// NewMinidrone creates a driver for the drone at address.
// An empty address means the first minidrone found by a BLE scan.
func NewMinidrone(address string, logger *slog.Logger) *Minidrone {
	if logger == nil {
		logger = slog.Default()
	}
	return &Minidrone{address: address, logger: logger}
}

func (m *Minidrone) Name() string {
	if m.address == "" {
		return "minidrone"
	}
	return m.address
}

// Connect resolves the address, opens the BLE link and subscribes to
// the drone's notifications
func (m *Minidrone) Connect(ctx context.Context) error {
	if m.address == "" {
		m.logger.Info("scanning for minidrones")
		found, err := Scan(ctx, MinidronePrefixes, 1)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fmt.Errorf("no minidrone found")
		}
		m.address = found[0].Address
		m.logger.Info("found minidrone", "name", found[0].Name, "address", found[0].Address)
	}

	adaptor := ble.NewClientAdaptor(m.address)
	driver := minidrone.NewDriver(adaptor)

	err := waitReady(ctx, func() error {
		if err := adaptor.Connect(); err != nil {
			return fmt.Errorf("ble connect to %s: %w", m.address, err)
		}
		if err := driver.Init(); err != nil {
			_ = adaptor.Finalize()
			return fmt.Errorf("minidrone init: %w", err)
		}
		return nil
	}, func() {
		m.logger.Warn("link came up after connect gave up, dropping it", "address", m.address)
		_ = driver.Halt()
		_ = adaptor.Finalize()
	})
	if err != nil {
		return err
	}

	_ = driver.On(minidrone.Battery, func(data interface{}) {
		m.logger.Debug("battery", "percent", data)
	})
	_ = driver.On(minidrone.FlightStatus, func(data interface{}) {
		m.logger.Debug("flight status", "status", data)
	})

	m.mu.Lock()
	m.adaptor = adaptor
	m.driver = driver
	m.mu.Unlock()
	return nil
}

func (m *Minidrone) Calibrate() error {
	d, err := m.connected()
	if err != nil {
		return err
	}
	return d.FlatTrim()
}

// StartKeepAlive starts the driver's piloting command loop, which doubles
// as the firmware keep-alive
func (m *Minidrone) StartKeepAlive() error {
	d, err := m.connected()
	if err != nil {
		return err
	}
	d.StartPcmd()
	return nil
}

func (m *Minidrone) TakeOff() error {
	d, err := m.connected()
	if err != nil {
		return err
	}
	return d.TakeOff()
}

func (m *Minidrone) Land() error {
	d, err := m.connected()
	if err != nil {
		return err
	}
	return d.Land()
}

// Close lands the drone (gobot's Halt) and drops the BLE link
func (m *Minidrone) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.driver == nil {
		return nil
	}
	haltErr := m.driver.Halt()
	finErr := m.adaptor.Finalize()
	m.driver = nil
	m.adaptor = nil

	if haltErr != nil {
		return fmt.Errorf("halt: %w", haltErr)
	}
	return finErr
}

func (m *Minidrone) connected() (*minidrone.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.driver == nil {
		return nil, ErrNotConnected
	}
	return m.driver, nil
}

func init() {
	Register("minidrone", func(cfg Config, logger *slog.Logger) (Device, error) {
		return NewMinidrone(cfg.Address, logger), nil
	})
}
