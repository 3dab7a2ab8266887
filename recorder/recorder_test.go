package recorder

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simon020286/go-flightplan/models"
)

func createTestLog(t *testing.T, events []models.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flight.cbor")

	rec, err := NewFileRecorder(path, nil)
	require.NoError(t, err)
	for _, e := range events {
		rec.OnEvent(e)
	}
	require.NoError(t, rec.Close())
	return path
}

func testEvents(runID string) []models.Event {
	now := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.UTC)
	return []models.Event{
		{Type: models.EventRunStarted, RunID: runID, Timestamp: now, Data: map[string]any{"steps": 2}},
		{Type: models.EventStepScheduled, RunID: runID, Timestamp: now, Data: map[string]any{"step_id": "takeoff", "phase": "main", "delay": 5 * time.Second}},
		{Type: models.EventStepError, RunID: runID, Timestamp: now.Add(5 * time.Second), Data: map[string]any{"step_id": "takeoff", "phase": "main", "error": "rotor jammed"}},
		{Type: models.EventRunCompleted, RunID: runID, Timestamp: now.Add(10 * time.Second), Data: map[string]any{"state": "completed", "duration": 10 * time.Second}},
	}
}

func TestFromEvent(t *testing.T) {
	events := testEvents("run-1")

	r := FromEvent(events[1])
	assert.Equal(t, "step.scheduled", r.Type)
	assert.Equal(t, "takeoff", r.StepID)
	assert.Equal(t, 5*time.Second, r.Delay)

	r = FromEvent(events[3])
	assert.Equal(t, "completed", r.State)
	assert.Equal(t, 10*time.Second, r.Duration)
}

func TestEncodeDecodeRecord(t *testing.T) {
	in := FromEvent(testEvents("run-1")[2])

	data, err := EncodeRecord(in)
	require.NoError(t, err)
	out, err := DecodeRecord(data)
	require.NoError(t, err)

	assert.True(t, out.Timestamp.Equal(in.Timestamp), "timestamp: got %v, want %v", out.Timestamp, in.Timestamp)
	assert.Equal(t, "rotor jammed", out.Error)
	assert.Equal(t, "takeoff", out.StepID)
	assert.Equal(t, "run-1", out.RunID)
}

func TestRecordWireFormat(t *testing.T) {
	in := FromEvent(testEvents("run-1")[3])
	require.Equal(t, 123456789, in.Timestamp.Nanosecond())

	data, err := EncodeRecord(in)
	require.NoError(t, err)

	// key 1 followed by tag 0, an RFC 3339 string
	assert.True(t, bytes.Contains(data, []byte{0x01, 0xc0}), "timestamp not tagged: %x", data)

	out, err := DecodeRecord(data)
	require.NoError(t, err)
	assert.Equal(t, 123456789, out.Timestamp.Nanosecond())
	assert.Equal(t, 10*time.Second, out.Duration)
	assert.Equal(t, "completed", out.State)
}

func TestDecodeRecordRejectsDuplicateKeys(t *testing.T) {
	// map(2) { 3: "a", 3: "b" }
	data := []byte{0xa2, 0x03, 0x61, 'a', 0x03, 0x61, 'b'}

	_, err := DecodeRecord(data)
	assert.Error(t, err)
}

func TestDecodeRecordRejectsIndefiniteLength(t *testing.T) {
	// map(_) { 3: "a" }
	data := []byte{0xbf, 0x03, 0x61, 'a', 0xff}

	_, err := DecodeRecord(data)
	assert.Error(t, err)
}

func TestReaderIteratesRecords(t *testing.T) {
	path := createTestLog(t, testEvents("run-1"))

	reader, err := NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	var types []string
	for {
		record, err := reader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		types = append(types, record.Type)
	}

	assert.Equal(t, []string{"run.started", "step.scheduled", "step.error", "run.completed"}, types)
}

func TestReadAllFiltered(t *testing.T) {
	path := createTestLog(t, append(testEvents("run-1"), testEvents("run-2")...))

	records, err := ReadAll(path, Filter{RunID: "run-2"})
	require.NoError(t, err)
	assert.Len(t, records, 4)

	records, err = ReadAll(path, Filter{Type: "step.error", StepID: "takeoff"})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestFileRecorderAppends(t *testing.T) {
	path := createTestLog(t, testEvents("run-1"))

	rec, err := NewFileRecorder(path, nil)
	require.NoError(t, err)
	rec.OnEvent(testEvents("run-2")[0])
	rec.Close()

	records, err := ReadAll(path, Filter{})
	require.NoError(t, err)
	assert.Len(t, records, 5)
}

func TestFileRecorderIgnoresWritesAfterClose(t *testing.T) {
	path := createTestLog(t, nil)

	rec, err := NewFileRecorder(path, nil)
	require.NoError(t, err)
	rec.Close()
	rec.OnEvent(testEvents("run-1")[0])

	assert.NoError(t, rec.Close(), "second Close should be a no-op")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestRecordString(t *testing.T) {
	line := FromEvent(testEvents("run-1")[2]).String()
	for _, part := range []string{"step.error", "step=takeoff", `error="rotor jammed"`} {
		assert.Contains(t, line, part)
	}
	assert.NotContains(t, line, "phase=", "main phase should be implicit")
}

func TestNewReaderMissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "missing.cbor"))
	assert.Error(t, err)
}
