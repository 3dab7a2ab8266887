package recorder

import (
	"errors"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects records. Empty fields match everything.
type Filter struct {
	RunID  string
	Type   string
	StepID string
}

func (f *Filter) matches(record Record) bool {
	if f.RunID != "" && record.RunID != f.RunID {
		return false
	}
	if f.Type != "" && record.Type != f.Type {
		return false
	}
	if f.StepID != "" && record.StepID != f.StepID {
		return false
	}
	return true
}

// Reader streams records from a flight log
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader creates a Reader over every record of the log at path
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader creates a Reader that yields records matching filter
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:    f,
		decoder: NewDecoder(f),
		filter:  filter,
	}, nil
}

// Next returns the next matching record, or io.EOF at the end of the log
func (r *Reader) Next() (Record, error) {
	for {
		var record Record
		if err := r.decoder.Decode(&record); err != nil {
			if errors.Is(err, io.EOF) {
				return Record{}, io.EOF
			}
			return Record{}, err
		}
		if r.filter.matches(record) {
			return record, nil
		}
	}
}

// Close closes the underlying file
func (r *Reader) Close() error {
	return r.file.Close()
}

// ReadAll returns every record of the log at path matching filter
func ReadAll(path string, filter Filter) ([]Record, error) {
	reader, err := NewFilteredReader(path, filter)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var records []Record
	for {
		record, err := reader.Next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, record)
	}
}
