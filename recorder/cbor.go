package recorder

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Record is a flat map of at most ten integer keys. Timestamps keep
// nanoseconds as tagged RFC 3339 strings; durations are plain
// nanosecond integers.
const (
	maxRecordPairs  = 16 // smallest limit the decoder accepts
	maxRecordNested = 4  // record map, timestamp tag
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:        cbor.SortCoreDeterministic,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
		TimeTag:     cbor.EncTagRequired,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create recorder CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		IndefLength:     cbor.IndefLengthForbidden,
		TimeTag:         cbor.DecTagOptional,
		MaxMapPairs:     maxRecordPairs,
		MaxNestedLevels: maxRecordNested,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create recorder CBOR decoder mode: %v", err))
	}
}

// EncodeRecord encodes a Record to CBOR bytes
func EncodeRecord(record Record) ([]byte, error) {
	return encMode.Marshal(record)
}

// DecodeRecord decodes CBOR bytes into a Record
func DecodeRecord(data []byte) (Record, error) {
	var record Record
	if err := decMode.Unmarshal(data, &record); err != nil {
		return Record{}, err
	}
	return record, nil
}

// NewEncoder creates a CBOR encoder for records that writes to w
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder creates a CBOR decoder for records that reads from r
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}
