package store

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/mezonai/accounting/db"
	"github.com/mezonai/accounting/jsonx"
)

// Payload is a value kept in a MapStore, addressed by its hash.
type Payload interface {
	Hash() []byte
}

// MapStore is an append-only map of payloads of one concrete type, stored
// under a key prefix in a database provider.
type MapStore[P Payload] struct {
	provider db.IterableProvider
	prefix   string
	// serializes add-if-absent
	mu sync.Mutex
}

func NewMapStore[P Payload](provider db.IterableProvider, prefix string) (*MapStore[P], error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	if prefix == "" {
		return nil, fmt.Errorf("prefix cannot be empty")
	}
	return &MapStore[P]{provider: provider, prefix: prefix}, nil
}

func (s *MapStore[P]) key(hash []byte) []byte {
	return []byte(s.prefix + hex.EncodeToString(hash))
}

// CanHandle reports whether payload has the type stored here.
func (s *MapStore[P]) CanHandle(payload Payload) bool {
	_, ok := payload.(P)
	return ok
}

// Put stores p unless a payload with the same hash exists. It reports
// whether p was added.
func (s *MapStore[P]) Put(p P) (bool, error) {
	hash := p.Hash()
	if len(hash) == 0 {
		return false, fmt.Errorf("payload hash cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := s.key(hash)
	exists, err := s.provider.Has(key)
	if err != nil {
		return false, fmt.Errorf("failed to check payload existence: %w", err)
	}
	if exists {
		return false, nil
	}

	value, err := jsonx.Marshal(p)
	if err != nil {
		return false, fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := s.provider.Put(key, value); err != nil {
		return false, fmt.Errorf("failed to store payload: %w", err)
	}
	return true, nil
}

func (s *MapStore[P]) Get(hash []byte) (P, bool, error) {
	var p P
	value, err := s.provider.Get(s.key(hash))
	if err != nil {
		return p, false, fmt.Errorf("failed to get payload: %w", err)
	}
	if value == nil {
		return p, false, nil
	}
	if err := jsonx.Unmarshal(value, &p); err != nil {
		return p, false, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return p, true, nil
}

// GetMany looks up several payloads in one provider read. Absent hashes are
// left out of the result, which is keyed by hex encoded hash.
func (s *MapStore[P]) GetMany(hashes [][]byte) (map[string]P, error) {
	keys := make([][]byte, len(hashes))
	for i, hash := range hashes {
		keys[i] = s.key(hash)
	}
	values, err := s.provider.GetBatch(keys)
	if err != nil {
		return nil, fmt.Errorf("failed to get payloads: %w", err)
	}

	result := make(map[string]P, len(values))
	for key, value := range values {
		var p P
		if err := jsonx.Unmarshal(value, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload %s: %w", key, err)
		}
		result[hex.EncodeToString(p.Hash())] = p
	}
	return result, nil
}

func (s *MapStore[P]) Has(hash []byte) (bool, error) {
	return s.provider.Has(s.key(hash))
}

// Map returns every payload keyed by its hex encoded hash.
func (s *MapStore[P]) Map() (map[string]P, error) {
	result := make(map[string]P)
	var decodeErr error
	err := s.provider.IteratePrefix([]byte(s.prefix), func(key, value []byte) bool {
		var p P
		if err := jsonx.Unmarshal(value, &p); err != nil {
			decodeErr = fmt.Errorf("failed to unmarshal payload %s: %w", key, err)
			return false
		}
		result[hex.EncodeToString(p.Hash())] = p
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate payloads: %w", err)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return result, nil
}

func (s *MapStore[P]) Len() (int, error) {
	count := 0
	err := s.provider.IteratePrefix([]byte(s.prefix), func(key, value []byte) bool {
		count++
		return true
	})
	return count, err
}
