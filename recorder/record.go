// Package recorder persists run events as a CBOR flight log and reads them back.
//
// A flight log is a plain sequence of CBOR-encoded Records, one per event,
// in the order the runner emitted them.
package recorder

import (
	"fmt"
	"strings"
	"time"

	"github.com/simon020286/go-flightplan/models"
)

// Record is one run event as stored in a flight log.
// CBOR encoding uses integer keys for compactness.
type Record struct {
	Timestamp time.Time     `cbor:"1,keyasint"`
	RunID     string        `cbor:"2,keyasint"`
	Type      string        `cbor:"3,keyasint"`
	StepID    string        `cbor:"4,keyasint,omitempty"`
	Phase     string        `cbor:"5,keyasint,omitempty"`
	Device    string        `cbor:"6,keyasint,omitempty"`
	State     string        `cbor:"7,keyasint,omitempty"`
	Delay     time.Duration `cbor:"8,keyasint,omitempty"`
	Duration  time.Duration `cbor:"9,keyasint,omitempty"`
	Error     string        `cbor:"10,keyasint,omitempty"`
}

// FromEvent flattens a run event into a Record
func FromEvent(event models.Event) Record {
	return Record{
		Timestamp: event.Timestamp,
		RunID:     event.RunID,
		Type:      string(event.Type),
		StepID:    event.String("step_id"),
		Phase:     event.String("phase"),
		Device:    event.String("device"),
		State:     event.String("state"),
		Delay:     event.Duration("delay"),
		Duration:  event.Duration("duration"),
		Error:     event.String("error"),
	}
}

// String renders the record as a single console line
func (r Record) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-15s", r.Timestamp.Format("15:04:05.000"), r.Type)

	if r.StepID != "" {
		fmt.Fprintf(&b, " step=%s", r.StepID)
	}
	if r.Phase != "" && r.Phase != string(models.PhaseMain) {
		fmt.Fprintf(&b, " phase=%s", r.Phase)
	}
	if r.Device != "" {
		fmt.Fprintf(&b, " device=%s", r.Device)
	}
	if r.State != "" {
		fmt.Fprintf(&b, " state=%s", r.State)
	}
	if r.Delay > 0 {
		fmt.Fprintf(&b, " delay=%s", r.Delay)
	}
	if r.Duration > 0 {
		fmt.Fprintf(&b, " duration=%s", r.Duration)
	}
	if r.Error != "" {
		fmt.Fprintf(&b, " error=%q", r.Error)
	}
	return b.String()
}
