package models

import (
	"time"
)

// EventType is the kind of event emitted by a run
type EventType string

const (
	// Run events
	EventRunStarted   EventType = "run.started"
	EventRunCompleted EventType = "run.completed"
	EventRunError     EventType = "run.error"

	// Step events
	EventStepScheduled EventType = "step.scheduled"
	EventStepStarted   EventType = "step.started"
	EventStepCompleted EventType = "step.completed"
	EventStepError     EventType = "step.error"
	EventStepSkipped   EventType = "step.skipped"

	// Device events
	EventDeviceConnected EventType = "device.connected"
	EventDeviceError     EventType = "device.error"
	EventDeviceClosed    EventType = "device.closed"
)

// Phase tells which part of the run a step belongs to
type Phase string

const (
	PhaseMain    Phase = "main"
	PhaseFinally Phase = "finally"
)

// Event is a generic run event
type Event struct {
	Type      EventType      `json:"type"`
	RunID     string         `json:"run_id"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// String returns the value stored under key, or "" when missing
func (e Event) String(key string) string {
	s, _ := e.Data[key].(string)
	return s
}

// Duration returns the duration stored under key, or 0 when missing
func (e Event) Duration(key string) time.Duration {
	d, _ := e.Data[key].(time.Duration)
	return d
}

// EventListener is implemented by anything that wants run events
type EventListener interface {
	OnEvent(event Event)
}

// EventListenerFunc adapts a function to EventListener
type EventListenerFunc func(event Event)

func (f EventListenerFunc) OnEvent(event Event) {
	f(event)
}
