package flightplan

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simon020286/go-flightplan/models"
	"github.com/simon020286/go-flightplan/recorder"
)

func TestRunner_RecordsFlightLog(t *testing.T) {
	r, clock := newFakeRunner()
	dev := newFakeDevice(clock)
	dev.failures["takeoff"] = errors.New("rotor blocked")

	path := filepath.Join(t.TempDir(), "flight.cbor")
	rec, err := recorder.NewFileRecorder(path, quietLogger())
	require.NoError(t, err)
	r.AddListener(rec)

	r.AddStep(deviceStep("takeoff", time.Second, dev.TakeOff))
	r.AddStep(deviceStep("land", 2*time.Second, dev.Land))

	done := make(chan *Report, 1)
	go func() {
		report, _ := r.Execute(context.Background())
		done <- report
	}()
	advanceSteps(clock, time.Second, 2*time.Second)
	report := <-done

	require.NoError(t, rec.Close())
	require.Equal(t, StateCompleted, report.State)

	records, err := recorder.ReadAll(path, recorder.Filter{})
	require.NoError(t, err)

	wantTypes := []string{
		string(models.EventRunStarted),
		string(models.EventStepScheduled),
		string(models.EventStepStarted),
		string(models.EventStepError),
		string(models.EventStepScheduled),
		string(models.EventStepStarted),
		string(models.EventStepCompleted),
		string(models.EventRunCompleted),
	}
	require.Len(t, records, len(wantTypes))
	for i, want := range wantTypes {
		assert.Equal(t, want, records[i].Type, "record %d", i)
		assert.Equal(t, r.RunID(), records[i].RunID, "record %d", i)
	}

	assert.Equal(t, "takeoff", records[3].StepID)
	assert.NotEmpty(t, records[3].Error)
	assert.Equal(t, string(StateCompleted), records[7].State)
	assert.Equal(t, 3*time.Second, records[7].Duration)

	errorsOnly, err := recorder.ReadAll(path, recorder.Filter{Type: string(models.EventStepError)})
	require.NoError(t, err)
	assert.Len(t, errorsOnly, 1)
}
