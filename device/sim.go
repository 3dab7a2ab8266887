package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// SimState is the flight state of a simulated drone
type SimState string

const (
	SimDisconnected SimState = "disconnected"
	SimConnected    SimState = "connected"
	SimFlying       SimState = "flying"
	SimLanded       SimState = "landed"
	SimClosed       SimState = "closed"
)

var (
	ErrNotConnected  = errors.New("device not connected")
	ErrDeviceClosed  = errors.New("device closed")
	ErrAlreadyFlying = errors.New("device already flying")
)

// Sim is an in-process drone used for dry runs and tests.
// It follows the same rules a real minidrone enforces: commands need a
// connection, takeoff needs the drone on the ground.
type Sim struct {
	name    string
	logger  *slog.Logger
	latency time.Duration

	mu         sync.Mutex
	state      SimState
	keepAlive  bool
	calibrated int
	faults     map[string]error
	calls      []string
}

// NewSim creates a simulator that answers every command after latency
func NewSim(name string, latency time.Duration, logger *slog.Logger) *Sim {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sim{
		name:    name,
		logger:  logger,
		latency: latency,
		state:   SimDisconnected,
		faults:  make(map[string]error),
	}
}

// FailOn makes the named operation ("connect", "calibrate", "keep_alive",
// "takeoff", "land") return err from now on. A nil err clears the fault.
func (s *Sim) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// State returns the current flight state
func (s *Sim) State() SimState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Calls returns the operations received so far, in order
func (s *Sim) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Calibrations returns how many flat trims were issued
func (s *Sim) Calibrations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calibrated
}

func (s *Sim) Name() string {
	return s.name
}

func (s *Sim) Connect(ctx context.Context) error {
	if s.latency > 0 {
		select {
		case <-time.After(s.latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.apply("connect", func() error {
		if s.state == SimClosed {
			return ErrDeviceClosed
		}
		if s.state == SimDisconnected {
			s.state = SimConnected
		}
		return nil
	})
}

func (s *Sim) Calibrate() error {
	return s.apply("calibrate", func() error {
		if err := s.requireConnection(); err != nil {
			return err
		}
		s.calibrated++
		return nil
	})
}

func (s *Sim) StartKeepAlive() error {
	return s.apply("keep_alive", func() error {
		if err := s.requireConnection(); err != nil {
			return err
		}
		s.keepAlive = true
		return nil
	})
}

func (s *Sim) TakeOff() error {
	return s.apply("takeoff", func() error {
		if err := s.requireConnection(); err != nil {
			return err
		}
		if s.state == SimFlying {
			return ErrAlreadyFlying
		}
		if !s.keepAlive {
			s.logger.Warn("takeoff without keep-alive, the firmware will drop the command")
		}
		s.state = SimFlying
		return nil
	})
}

// Land is accepted in any connected state; landing a grounded drone is a no-op
func (s *Sim) Land() error {
	return s.apply("land", func() error {
		if err := s.requireConnection(); err != nil {
			return err
		}
		if s.state == SimFlying {
			s.state = SimLanded
		}
		return nil
	})
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "close")
	s.state = SimClosed
	s.keepAlive = false
	return nil
}

func (s *Sim) requireConnection() error {
	switch s.state {
	case SimDisconnected:
		return ErrNotConnected
	case SimClosed:
		return ErrDeviceClosed
	}
	return nil
}

// apply records op, honours injected faults and runs the state transition
func (s *Sim) apply(op string, transition func() error) error {
	if s.latency > 0 && op != "connect" {
		time.Sleep(s.latency)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, op)
	if err, ok := s.faults[op]; ok {
		s.logger.Debug("injected fault", "op", op, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := transition(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.logger.Debug("sim command", "op", op, "state", s.state)
	return nil
}

func init() {
	Register("sim", func(cfg Config, logger *slog.Logger) (Device, error) {
		name := cfg.Address
		if name == "" {
			name = "sim"
		}
		return NewSim(name, 0, logger), nil
	})
}
