package db

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openProviders(t *testing.T) map[string]IterableProvider {
	t.Helper()

	mem, err := NewMemLevelDBProvider()
	require.NoError(t, err)

	level, err := NewLevelDBProvider(filepath.Join(t.TempDir(), "leveldb"))
	require.NoError(t, err)

	bolt, err := NewBoltProvider(filepath.Join(t.TempDir(), "store.bolt"))
	require.NoError(t, err)

	providers := map[string]IterableProvider{
		"memleveldb": mem,
		"leveldb":    level,
		"bolt":       bolt,
	}
	t.Cleanup(func() {
		for _, p := range providers {
			_ = p.Close()
		}
	})
	return providers
}

func TestProviderGetPutDelete(t *testing.T) {
	for name, p := range openProviders(t) {
		t.Run(name, func(t *testing.T) {
			value, err := p.Get([]byte("missing"))
			require.NoError(t, err)
			assert.Nil(t, value)

			require.NoError(t, p.Put([]byte("k1"), []byte("v1")))
			value, err = p.Get([]byte("k1"))
			require.NoError(t, err)
			assert.Equal(t, []byte("v1"), value)

			has, err := p.Has([]byte("k1"))
			require.NoError(t, err)
			assert.True(t, has)

			require.NoError(t, p.Delete([]byte("k1")))
			has, err = p.Has([]byte("k1"))
			require.NoError(t, err)
			assert.False(t, has)

			// deleting a missing key is not an error
			assert.NoError(t, p.Delete([]byte("k1")))
		})
	}
}

func TestProviderBatchAndGetBatch(t *testing.T) {
	for name, p := range openProviders(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, p.Put([]byte("old"), []byte("x")))

			batch := p.Batch()
			batch.Put([]byte("a"), []byte("1"))
			batch.Put([]byte("b"), []byte("2"))
			batch.Delete([]byte("old"))
			require.NoError(t, batch.Write())
			batch.Close()

			values, err := p.GetBatch([][]byte{[]byte("a"), []byte("b"), []byte("old")})
			require.NoError(t, err)
			assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, values)
		})
	}
}

func TestProviderIteratePrefixIsOrdered(t *testing.T) {
	for name, p := range openProviders(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, p.Put([]byte("w:3"), []byte("c")))
			require.NoError(t, p.Put([]byte("w:1"), []byte("a")))
			require.NoError(t, p.Put([]byte("w:2"), []byte("b")))
			require.NoError(t, p.Put([]byte("x:1"), []byte("z")))

			var keys, values []string
			err := p.IteratePrefix([]byte("w:"), func(key, value []byte) bool {
				keys = append(keys, string(key))
				values = append(values, string(value))
				return true
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"w:1", "w:2", "w:3"}, keys)
			assert.Equal(t, []string{"a", "b", "c"}, values)

			count := 0
			err = p.IteratePrefix([]byte("w:"), func(key, value []byte) bool {
				count++
				return false
			})
			require.NoError(t, err)
			assert.Equal(t, 1, count)
		})
	}
}

func TestConvertKeyToHumanReadable(t *testing.T) {
	key := []byte("param:MAX_TRADE_LIMIT:")
	height := make([]byte, 8)
	binary.BigEndian.PutUint64(height, 820000)
	key = append(key, height...)

	assert.Equal(t, "param:MAX_TRADE_LIMIT:820000", convertKeyToHumanReadable(key))
	assert.Equal(t, "store:BurningManAccountingStore_v3", convertKeyToHumanReadable([]byte("store:BurningManAccountingStore_v3")))
}
