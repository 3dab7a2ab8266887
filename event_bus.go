package flightplan

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/simon020286/go-flightplan/models"
)

// eventBus distributes run events to registered listeners (private).
// Listeners are called synchronously, in registration order, so a recorder
// sees events exactly in run order.
type eventBus struct {
	listeners []models.EventListener
	mutex     sync.RWMutex
	runID     string
	clock     clockwork.Clock
}

// newEventBus creates a new eventBus stamping events with runID
func newEventBus(runID string, clock clockwork.Clock) *eventBus {
	return &eventBus{
		listeners: make([]models.EventListener, 0),
		runID:     runID,
		clock:     clock,
	}
}

// addListener registers a new listener
func (eb *eventBus) addListener(listener models.EventListener) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()
	eb.listeners = append(eb.listeners, listener)
}

// RemoveAllListeners removes all listeners
func (eb *eventBus) RemoveAllListeners() {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()
	eb.listeners = make([]models.EventListener, 0)
}

func (eb *eventBus) setClock(clock clockwork.Clock) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()
	eb.clock = clock
}

// Emit sends an event to all registered listeners
func (eb *eventBus) Emit(eventType models.EventType, data map[string]any) {
	eb.mutex.RLock()
	listeners := make([]models.EventListener, len(eb.listeners))
	copy(listeners, eb.listeners)
	now := eb.clock.Now()
	eb.mutex.RUnlock()

	event := models.Event{
		Type:      eventType,
		RunID:     eb.runID,
		Timestamp: now,
		Data:      data,
	}

	for _, listener := range listeners {
		listener.OnEvent(event)
	}
}

// EmitRunStarted emits a run start event
func (eb *eventBus) EmitRunStarted(steps int) {
	eb.Emit(models.EventRunStarted, map[string]any{
		"steps": steps,
	})
}

// EmitRunCompleted emits a run completion event
func (eb *eventBus) EmitRunCompleted(state RunState, duration time.Duration) {
	eb.Emit(models.EventRunCompleted, map[string]any{
		"state":    string(state),
		"duration": duration,
	})
}

// EmitRunError emits a run error event
func (eb *eventBus) EmitRunError(state RunState, err error) {
	eb.Emit(models.EventRunError, map[string]any{
		"state": string(state),
		"error": err.Error(),
	})
}

// EmitStepScheduled emits an event when a step's delay starts
func (eb *eventBus) EmitStepScheduled(stepID string, phase models.Phase, delay time.Duration) {
	eb.Emit(models.EventStepScheduled, map[string]any{
		"step_id": stepID,
		"phase":   string(phase),
		"delay":   delay,
	})
}

// EmitStepStarted emits a step start event
func (eb *eventBus) EmitStepStarted(stepID string, phase models.Phase) {
	eb.Emit(models.EventStepStarted, map[string]any{
		"step_id": stepID,
		"phase":   string(phase),
	})
}

// EmitStepCompleted emits a step completion event
func (eb *eventBus) EmitStepCompleted(stepID string, phase models.Phase, duration time.Duration) {
	eb.Emit(models.EventStepCompleted, map[string]any{
		"step_id":  stepID,
		"phase":    string(phase),
		"duration": duration,
	})
}

// EmitStepError emits a step error event
func (eb *eventBus) EmitStepError(stepID string, phase models.Phase, err error) {
	eb.Emit(models.EventStepError, map[string]any{
		"step_id": stepID,
		"phase":   string(phase),
		"error":   err.Error(),
	})
}

// EmitStepSkipped emits an event for a step that will never run
func (eb *eventBus) EmitStepSkipped(stepID string, phase models.Phase) {
	eb.Emit(models.EventStepSkipped, map[string]any{
		"step_id": stepID,
		"phase":   string(phase),
	})
}

// EmitDeviceConnected emits a device connection event
func (eb *eventBus) EmitDeviceConnected(name string) {
	eb.Emit(models.EventDeviceConnected, map[string]any{
		"device": name,
	})
}

// EmitDeviceError emits a device error event
func (eb *eventBus) EmitDeviceError(name string, err error) {
	eb.Emit(models.EventDeviceError, map[string]any{
		"device": name,
		"error":  err.Error(),
	})
}

// EmitDeviceClosed emits a device close event
func (eb *eventBus) EmitDeviceClosed(name string) {
	eb.Emit(models.EventDeviceClosed, map[string]any{
		"device": name,
	})
}
