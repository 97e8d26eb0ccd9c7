package governance

import (
	"encoding/binary"
	"fmt"

	"github.com/mezonai/accounting/db"
	"github.com/mezonai/accounting/logx"
)

const (
	// PrefixParam keys are param:<name>:<8-byte big-endian height>
	PrefixParam = "param:"

	paramValueLen = 16
)

// ParamStore keeps the activated changes of governance params in a
// database provider.
type ParamStore struct {
	provider db.IterableProvider
}

func NewParamStore(provider db.IterableProvider) (*ParamStore, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	return &ParamStore{provider: provider}, nil
}

func paramPrefix(param Param) []byte {
	return []byte(PrefixParam + string(param) + ":")
}

func paramKey(param Param, height uint64) []byte {
	prefix := paramPrefix(param)
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], height)
	return key
}

// values carry the height as well, so decoding does not depend on the
// provider's key format
func encodeParamValue(height uint64, value int64) []byte {
	buf := make([]byte, paramValueLen)
	binary.BigEndian.PutUint64(buf[:8], height)
	binary.BigEndian.PutUint64(buf[8:], uint64(value))
	return buf
}

func decodeParamValue(data []byte) (uint64, int64, error) {
	if len(data) != paramValueLen {
		return 0, 0, fmt.Errorf("invalid param value length %d", len(data))
	}
	return binary.BigEndian.Uint64(data[:8]), int64(binary.BigEndian.Uint64(data[8:])), nil
}

// SetParamChange activates value for param from height on. A later call for
// the same height replaces the earlier value.
func (s *ParamStore) SetParamChange(param Param, height uint64, value int64) error {
	if !param.Valid() {
		return fmt.Errorf("unknown param: %s", param)
	}
	if err := s.provider.Put(paramKey(param, height), encodeParamValue(height, value)); err != nil {
		return fmt.Errorf("failed to store param change: %w", err)
	}
	return nil
}

// ApplyChanges stores every change in one batch.
func (s *ParamStore) ApplyChanges(changes []ParamChange) error {
	batch := s.provider.Batch()
	defer batch.Close()

	for _, c := range changes {
		if !c.Param.Valid() {
			return fmt.Errorf("unknown param: %s", c.Param)
		}
		batch.Put(paramKey(c.Param, c.Height), encodeParamValue(c.Height, c.Value))
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("failed to store param changes: %w", err)
	}
	return nil
}

// GetParamValue returns the value of the change with the greatest activation
// height not above height, or the default value when there is none.
func (s *ParamStore) GetParamValue(param Param, height uint64) (int64, error) {
	value := param.DefaultValue()
	var (
		found     bool
		best      uint64
		decodeErr error
	)
	err := s.provider.IteratePrefix(paramPrefix(param), func(key, data []byte) bool {
		h, v, err := decodeParamValue(data)
		if err != nil {
			decodeErr = fmt.Errorf("param %s: %w", param, err)
			return false
		}
		if h <= height && (!found || h >= best) {
			found, best, value = true, h, v
		}
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read param changes: %w", err)
	}
	if decodeErr != nil {
		return 0, decodeErr
	}
	return value, nil
}

// GetParamValueAsCoin returns the satoshi value of param at height. Storage
// failures are logged and the default value is returned.
func (s *ParamStore) GetParamValueAsCoin(param Param, height uint64) int64 {
	value, err := s.GetParamValue(param, height)
	if err != nil {
		logx.Error("GOVERNANCE", "Failed to read ", param, " at height ", height, ": ", err)
		return param.DefaultValue()
	}
	return value
}
