package actions

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simon020286/go-flightplan/builder"
	"github.com/simon020286/go-flightplan/device"
	"github.com/simon020286/go-flightplan/models"
)

func connectedSim(t *testing.T) *device.Sim {
	t.Helper()
	sim := device.NewSim("test-drone", 0, nil)
	require.NoError(t, sim.Connect(context.Background()))
	return sim
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestActionTypesRegistered(t *testing.T) {
	types := builder.ListActionTypes()
	for _, name := range []string{"calibrate", "keep_alive", "takeoff", "land", "log", "exit", "js"} {
		assert.Contains(t, types, name)
	}
}

func TestDeviceCommands(t *testing.T) {
	sim := connectedSim(t)
	env := &builder.Env{Device: sim}

	for _, name := range []string{"calibrate", "keep_alive", "calibrate", "takeoff", "land"} {
		action, err := builder.CreateAction(name, nil, env)
		require.NoError(t, err, name)
		require.NoError(t, action(context.Background()), name)
	}

	assert.Equal(t, []string{"connect", "calibrate", "keep_alive", "calibrate", "takeoff", "land"}, sim.Calls())
	assert.Equal(t, 2, sim.Calibrations())
	assert.Equal(t, device.SimLanded, sim.State())
}

func TestDeviceCommand_NoDevice(t *testing.T) {
	_, err := builder.CreateAction("takeoff", nil, &builder.Env{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errNoDevice)
}

func TestDeviceCommand_CancelledContext(t *testing.T) {
	sim := connectedSim(t)
	action, err := builder.CreateAction("takeoff", nil, &builder.Env{Device: sim})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, action(ctx), context.Canceled)
	assert.Equal(t, []string{"connect"}, sim.Calls())
}

func TestDeviceCommand_PropagatesFault(t *testing.T) {
	sim := connectedSim(t)
	boom := errors.New("motor stalled")
	sim.FailOn("takeoff", boom)

	action, err := builder.CreateAction("takeoff", nil, &builder.Env{Device: sim})
	require.NoError(t, err)
	assert.ErrorIs(t, action(context.Background()), boom)
}

func TestLogAction(t *testing.T) {
	var buf bytes.Buffer
	env := &builder.Env{Logger: bufferLogger(&buf)}

	action, err := builder.CreateAction("log", map[string]any{"message": "Prep for take off"}, env)
	require.NoError(t, err)
	require.NoError(t, action(context.Background()))

	assert.Contains(t, buf.String(), "level=INFO")
	assert.Contains(t, buf.String(), `msg="Prep for take off"`)
}

func TestLogAction_Level(t *testing.T) {
	var buf bytes.Buffer
	env := &builder.Env{Logger: bufferLogger(&buf)}

	action, err := builder.CreateAction("log", map[string]any{"message": "low battery", "level": "warn"}, env)
	require.NoError(t, err)
	require.NoError(t, action(context.Background()))
	assert.Contains(t, buf.String(), "level=WARN")
}

func TestLogAction_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  map[string]any
	}{
		{"missing message", map[string]any{}},
		{"message not a string", map[string]any{"message": 42}},
		{"unknown level", map[string]any{"message": "hi", "level": "loud"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := builder.CreateAction("log", tt.cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestExitAction(t *testing.T) {
	var buf bytes.Buffer
	env := &builder.Env{Logger: bufferLogger(&buf)}

	action, err := builder.CreateAction("exit", map[string]any{"message": "Exiting process"}, env)
	require.NoError(t, err)

	err = action(context.Background())
	assert.ErrorIs(t, err, models.ErrExit)
	assert.Contains(t, buf.String(), "Exiting process")
}

func TestExitAction_NoMessage(t *testing.T) {
	var buf bytes.Buffer
	action, err := builder.CreateAction("exit", nil, &builder.Env{Logger: bufferLogger(&buf)})
	require.NoError(t, err)

	assert.ErrorIs(t, action(context.Background()), models.ErrExit)
	assert.Empty(t, buf.String())
}

func TestJsAction_DroneBindings(t *testing.T) {
	sim := connectedSim(t)
	var buf bytes.Buffer
	env := &builder.Env{Device: sim, Logger: bufferLogger(&buf)}

	code := `
drone.calibrate();
drone.keepAlive();
drone.takeOff();
log("airborne on " + drone.name());
drone.land();
`
	action, err := builder.CreateAction("js", map[string]any{"code": code}, env)
	require.NoError(t, err)
	require.NoError(t, action(context.Background()))

	assert.Equal(t, []string{"connect", "calibrate", "keep_alive", "takeoff", "land"}, sim.Calls())
	assert.Contains(t, buf.String(), "airborne on test-drone")
}

func TestJsAction_DeviceErrorThrows(t *testing.T) {
	sim := connectedSim(t)
	sim.FailOn("takeoff", errors.New("motor stalled"))

	action, err := builder.CreateAction("js", map[string]any{"code": "drone.takeOff();"}, &builder.Env{Device: sim})
	require.NoError(t, err)

	err = action(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "motor stalled")
}

func TestJsAction_CatchDeviceError(t *testing.T) {
	sim := connectedSim(t)
	sim.FailOn("takeoff", errors.New("motor stalled"))

	code := `
try {
  drone.takeOff();
} catch (e) {
  drone.land();
}
`
	action, err := builder.CreateAction("js", map[string]any{"code": code}, &builder.Env{Device: sim})
	require.NoError(t, err)
	require.NoError(t, action(context.Background()))
	assert.Equal(t, []string{"connect", "takeoff", "land"}, sim.Calls())
}

func TestJsAction_ReturnFalse(t *testing.T) {
	action, err := builder.CreateAction("js", map[string]any{"code": "return 1 > 2;"}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, action(context.Background()), errScriptFalse)

	action, err = builder.CreateAction("js", map[string]any{"code": "return 'ok';"}, nil)
	require.NoError(t, err)
	assert.NoError(t, action(context.Background()))
}

func TestJsAction_NoDeviceHasNoDroneBinding(t *testing.T) {
	action, err := builder.CreateAction("js", map[string]any{"code": "return typeof drone === 'undefined';"}, nil)
	require.NoError(t, err)
	assert.NoError(t, action(context.Background()))
}

func TestJsAction_InterruptedByContext(t *testing.T) {
	action, err := builder.CreateAction("js", map[string]any{"code": "while (true) {}"}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- action(ctx) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(5 * time.Second):
		t.Fatal("script was not interrupted")
	}
}

func TestJsAction_InvalidConfig(t *testing.T) {
	_, err := builder.CreateAction("js", map[string]any{}, nil)
	var missing *models.MissingConfigError
	assert.ErrorAs(t, err, &missing)

	_, err = builder.CreateAction("js", map[string]any{"code": "function ("}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid script")
}

func TestActionsMetadata_MatchesRegistry(t *testing.T) {
	for _, meta := range GetActionsMetadata() {
		_, err := builder.GetActionFactory(meta.Name)
		assert.NoError(t, err, "metadata for unregistered action %s", meta.Name)
	}

	logMeta, ok := GetActionMetadata("log")
	require.True(t, ok)
	require.Len(t, logMeta.Params, 2)
	assert.True(t, logMeta.Params[0].Required)
	assert.Equal(t, "info", logMeta.Params[1].Default)

	assert.Len(t, GetActionsByCategory("device"), 4)
	assert.ElementsMatch(t, []string{"device", "flow", "script"}, GetCategories())
}
