package recorder

import (
	"log/slog"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/simon020286/go-flightplan/models"
)

// FileRecorder writes run events to a flight log.
// It is an event listener and is safe for concurrent use.
type FileRecorder struct {
	file    *os.File
	encoder *cbor.Encoder
	logger  *slog.Logger
	mu      sync.Mutex
	closed  bool
	errors  int
}

// NewFileRecorder opens path for appending, creating it with 0644 if needed
func NewFileRecorder(path string, logger *slog.Logger) (*FileRecorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileRecorder{
		file:    f,
		encoder: NewEncoder(f),
		logger:  logger,
	}, nil
}

// OnEvent records the event. Write failures are logged once and counted;
// they never disturb the run.
func (r *FileRecorder) OnEvent(event models.Event) {
	r.Write(FromEvent(event))
}

// Write appends a record. Records written after Close are dropped.
func (r *FileRecorder) Write(record Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if err := r.encoder.Encode(record); err != nil {
		if r.errors == 0 {
			r.logger.Warn("flight recorder write failed", "file", r.file.Name(), "error", err)
		}
		r.errors++
	}
}

// Errors returns how many records failed to be written
func (r *FileRecorder) Errors() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errors
}

// Close closes the log file. It is safe to call Close multiple times.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}

var _ models.EventListener = (*FileRecorder)(nil)
