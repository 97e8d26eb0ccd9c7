package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezonai/accounting/governance"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultNodeConfig(t *testing.T) {
	cfg := DefaultNodeConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "BurningManAccountingStore_v3", cfg.Storage.FileName)
	assert.Equal(t, []string{"BurningManAccountingStore", "BurningManAccountingStore_v2"}, cfg.Storage.LegacyFileNames)
	assert.Equal(t, 5*time.Second, cfg.Cleanup.Delay())
	assert.Equal(t, 200*time.Millisecond, cfg.Persistence.FlushDelay())

	// callers cannot alter the package defaults
	cfg.Storage.LegacyFileNames[0] = "changed"
	assert.Equal(t, "BurningManAccountingStore", DefaultLegacyFileNames[0])
}

func TestLoadNodeConfig_Ini(t *testing.T) {
	path := writeFile(t, "config.ini", `
[storage]
backend = bolt
dir = /var/lib/accounting
legacy_file_names = OldStore,OlderStore

[persistence]
flush_delay_ms = 50
compress = true

[metrics]
listen_addr = 127.0.0.1:9200
`)

	cfg, err := LoadNodeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "bolt", cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/accounting", cfg.Storage.Dir)
	assert.Equal(t, []string{"OldStore", "OlderStore"}, cfg.Storage.LegacyFileNames)
	assert.Equal(t, 50*time.Millisecond, cfg.Persistence.FlushDelay())
	assert.True(t, cfg.Persistence.Compress)
	assert.Equal(t, "127.0.0.1:9200", cfg.Metrics.ListenAddr)

	// untouched keys keep their defaults
	assert.Equal(t, DefaultStoreFileName, cfg.Storage.FileName)
	assert.Equal(t, DefaultStateBackend, cfg.Storage.StateBackend)
	assert.Equal(t, DefaultCleanupDelay, cfg.Cleanup.DelaySec)
}

func TestLoadNodeConfig_Yaml(t *testing.T) {
	path := writeFile(t, "config.yml", `
storage:
  backend: memory
  state_backend: provider
cleanup:
  delay_sec: 1
trade_limits:
  params_file: params.yml
log:
  stdout: true
`)

	cfg, err := LoadNodeConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "provider", cfg.Storage.StateBackend)
	assert.Equal(t, time.Second, cfg.Cleanup.Delay())
	assert.Equal(t, "params.yml", cfg.TradeLimits.ParamsFile)
	assert.True(t, cfg.Log.Stdout)
	assert.Equal(t, DefaultLogDir, cfg.Log.Dir)
	assert.Equal(t, DefaultStoreFileName, cfg.Storage.FileName)
}

func TestLoadNodeConfig_EmptyYamlKeepsDefaults(t *testing.T) {
	cfg, err := LoadNodeConfig(writeFile(t, "config.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultNodeConfig(), cfg)
}

func TestLoadNodeConfig_Errors(t *testing.T) {
	_, err := LoadNodeConfig(writeFile(t, "config.toml", "x = 1"))
	assert.Error(t, err)

	_, err = LoadNodeConfig(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)

	_, err = LoadNodeConfig(writeFile(t, "bad.ini", "[cleanup]\ndelay_sec = -1\n"))
	assert.Error(t, err)

	_, err = LoadNodeConfig(writeFile(t, "clash.ini", "[storage]\nfile_name = Store\nlegacy_file_names = Store\n"))
	assert.Error(t, err)
}

func TestLoadParamChanges(t *testing.T) {
	path := writeFile(t, "params.yml", `
param_changes:
  - param: MAX_TRADE_LIMIT
    height: 10
    value: 100000000
  - param: MIN_TAKER_FEE_BTC
    height: 20
    value: 5000
`)

	changes, err := LoadParamChanges(path)
	require.NoError(t, err)
	assert.Equal(t, []governance.ParamChange{
		{Param: governance.MaxTradeLimit, Height: 10, Value: 100_000_000},
		{Param: governance.MinTakerFeeBtc, Height: 20, Value: 5000},
	}, changes)

	_, err = LoadParamChanges(writeFile(t, "bad.yml", "param_changes:\n  - param: NOPE\n    height: 1\n    value: 1\n"))
	assert.Error(t, err)
}
