package persistence

import (
	"fmt"

	"github.com/golang/snappy"

	"github.com/mezonai/accounting/jsonx"
)

const (
	formatJSON   byte = 0x01
	formatSnappy byte = 0x02
)

// Codec encodes persisted state as JSON, optionally snappy-compressed. The
// first byte records the format so either setting decodes both.
type Codec struct {
	Compress bool
}

func (c Codec) Encode(v interface{}) ([]byte, error) {
	raw, err := jsonx.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}
	if !c.Compress {
		return append([]byte{formatJSON}, raw...), nil
	}
	compressed := snappy.Encode(nil, raw)
	return append([]byte{formatSnappy}, compressed...), nil
}

func (c Codec) Decode(data []byte, v interface{}) error {
	if len(data) == 0 {
		return fmt.Errorf("empty state")
	}
	payload := data[1:]
	switch data[0] {
	case formatJSON:
	case formatSnappy:
		raw, err := snappy.Decode(nil, payload)
		if err != nil {
			return fmt.Errorf("failed to decompress state: %w", err)
		}
		payload = raw
	default:
		return fmt.Errorf("unknown state format 0x%02x", data[0])
	}
	if err := jsonx.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return nil
}
