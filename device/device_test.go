package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gobot.io/x/gobot/platforms/dji/tello"
)

func TestDrivers_Registered(t *testing.T) {
	drivers := Drivers()
	assert.Contains(t, drivers, "sim")
	assert.Contains(t, drivers, "minidrone")
	assert.Contains(t, drivers, "tello")
	assert.IsIncreasing(t, drivers)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "zeppelin"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown device driver: zeppelin")
}

func TestOpen_Sim(t *testing.T) {
	dev, err := Open(Config{Driver: "sim", Address: "bench"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "bench", dev.Name())
	_, ok := dev.(*Sim)
	assert.True(t, ok)
}

func TestMinidrone_CommandsBeforeConnect(t *testing.T) {
	m := NewMinidrone("RS_W000000", nil)
	assert.Equal(t, "RS_W000000", m.Name())
	assert.ErrorIs(t, m.TakeOff(), ErrNotConnected)
	assert.ErrorIs(t, m.Calibrate(), ErrNotConnected)
	assert.NoError(t, m.Close())
}

func TestMatchesPrefix(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"RS_W123456", true},
		{"Mambo_612345", true},
		{"Swat_1", true},
		{"JBL Flip 5", false},
		{"", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MatchesPrefix(tc.name, MinidronePrefixes))
		})
	}
}

func TestWaitReady(t *testing.T) {
	boom := errors.New("boom")
	assert.ErrorIs(t, waitReady(context.Background(), func() error { return boom }, nil), boom)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	block := make(chan struct{})
	defer close(block)
	err := waitReady(ctx, func() error {
		<-block
		return nil
	}, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWaitReady_ReleasesLateLink(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	finish := make(chan struct{})
	released := make(chan struct{})
	err := waitReady(ctx, func() error {
		<-finish
		return nil
	}, func() { close(released) })
	require.ErrorIs(t, err, context.Canceled)

	close(finish)
	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("late link was not released")
	}
}

func TestWaitReady_LateFailureNotReleased(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	finish := make(chan struct{})
	released := make(chan struct{}, 1)
	err := waitReady(ctx, func() error {
		<-finish
		return errors.New("link refused")
	}, func() { released <- struct{}{} })
	require.ErrorIs(t, err, context.Canceled)

	close(finish)
	select {
	case <-released:
		t.Fatal("failed link should not be released")
	case <-time.After(50 * time.Millisecond):
	}
}

// fakeTello stands in for gobot's tello driver
type fakeTello struct {
	mu       sync.Mutex
	handlers map[string]func(data interface{})
	ack      bool
	calls    []string
}

func (f *fakeTello) On(name string, fn func(data interface{})) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handlers == nil {
		f.handlers = make(map[string]func(data interface{}))
	}
	f.handlers[name] = fn
	return nil
}

func (f *fakeTello) Start() error {
	f.record("start")
	if f.ack {
		f.mu.Lock()
		fn := f.handlers[tello.ConnectedEvent]
		f.mu.Unlock()
		go fn(nil)
	}
	return nil
}

func (f *fakeTello) TakeOff() error { f.record("takeoff"); return nil }
func (f *fakeTello) Land() error    { f.record("land"); return nil }
func (f *fakeTello) Halt() error    { f.record("halt"); return nil }

func (f *fakeTello) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
}

func (f *fakeTello) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func TestTello_ConnectAndFly(t *testing.T) {
	driver := &fakeTello{ack: true}
	dev := newTello("8888", driver, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, dev.Connect(ctx))
	require.NoError(t, dev.Calibrate())
	require.NoError(t, dev.TakeOff())
	require.NoError(t, dev.Land())
	require.NoError(t, dev.Close())

	assert.Equal(t, []string{"start", "takeoff", "land", "halt"}, driver.ops())
	assert.ErrorIs(t, dev.TakeOff(), ErrNotConnected)
}

func TestTello_CloseHaltsUnacknowledgedConnect(t *testing.T) {
	driver := &fakeTello{}
	dev := newTello("8888", driver, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, dev.Connect(ctx), context.Canceled)
	assert.ErrorIs(t, dev.TakeOff(), ErrNotConnected)

	require.NoError(t, dev.Close())
	assert.Equal(t, []string{"start", "halt"}, driver.ops())

	require.NoError(t, dev.Close())
	assert.Equal(t, []string{"start", "halt"}, driver.ops(), "second Close halts nothing")
}

func TestTello_CloseBeforeConnect(t *testing.T) {
	driver := &fakeTello{}
	require.NoError(t, newTello("8888", driver, nil).Close())
	assert.Empty(t, driver.ops())
}
