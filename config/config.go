package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/mezonai/accounting/governance"
	"github.com/mezonai/accounting/logx"
)

// DefaultNodeConfig returns the configuration used for every missing key.
// Log sizes are left zero so the LOGFILE_* environment still applies.
func DefaultNodeConfig() *NodeConfig {
	return &NodeConfig{
		Storage: StorageConfig{
			Backend:         DefaultStorageBackend,
			StateBackend:    DefaultStateBackend,
			Dir:             DefaultStorageDir,
			FileName:        DefaultStoreFileName,
			LegacyFileNames: append([]string{}, DefaultLegacyFileNames...),
		},
		Persistence: PersistenceConfig{
			FlushDelayMs: DefaultFlushDelayMs,
		},
		Cleanup: CleanupConfig{
			DelaySec: DefaultCleanupDelay,
		},
		Log: LogConfig{
			Dir: DefaultLogDir,
		},
		Metrics: MetricsConfig{
			ListenAddr: DefaultMetricsAddr,
		},
	}
}

// LoadNodeConfig reads an .ini or .yml/.yaml node config on top of the defaults
func LoadNodeConfig(path string) (*NodeConfig, error) {
	var (
		cfg *NodeConfig
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ini":
		cfg, err = loadIniNodeConfig(path)
	case ".yml", ".yaml":
		cfg, err = loadYamlNodeConfig(path)
	default:
		return nil, fmt.Errorf("unsupported config file extension: %s", path)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	logx.Info("CONFIG", "Loaded node config from ", path)
	return cfg, nil
}

func loadIniNodeConfig(path string) (*NodeConfig, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load ini config: %w", err)
	}

	cfg := DefaultNodeConfig()
	sections := []struct {
		name   string
		target interface{}
	}{
		{"storage", &cfg.Storage},
		{"persistence", &cfg.Persistence},
		{"cleanup", &cfg.Cleanup},
		{"trade_limits", &cfg.TradeLimits},
		{"log", &cfg.Log},
		{"metrics", &cfg.Metrics},
	}
	for _, s := range sections {
		if !file.HasSection(s.name) {
			continue
		}
		if err := file.Section(s.name).MapTo(s.target); err != nil {
			return nil, fmt.Errorf("failed to map section %s: %w", s.name, err)
		}
	}
	return cfg, nil
}

func loadYamlNodeConfig(path string) (*NodeConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	cfg := DefaultNodeConfig()
	// an empty file keeps the defaults
	if err := yaml.NewDecoder(file).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode yaml config: %w", err)
	}
	return cfg, nil
}

func (c *NodeConfig) Validate() error {
	if c.Storage.Backend == "" {
		return fmt.Errorf("storage backend cannot be empty")
	}
	if c.Storage.FileName == "" {
		return fmt.Errorf("store file name cannot be empty")
	}
	for _, name := range c.Storage.LegacyFileNames {
		if name == c.Storage.FileName {
			return fmt.Errorf("legacy file name %s equals the store file name", name)
		}
	}
	if c.Persistence.FlushDelayMs < 0 {
		return fmt.Errorf("flush_delay_ms cannot be negative")
	}
	if c.Cleanup.DelaySec < 0 {
		return fmt.Errorf("cleanup delay_sec cannot be negative")
	}
	return nil
}

// LoadParamChanges reads governance param changes from a yaml file
func LoadParamChanges(path string) ([]governance.ParamChange, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var changes ParamChangesFile
	if err := yaml.NewDecoder(file).Decode(&changes); err != nil {
		return nil, fmt.Errorf("failed to decode param changes: %w", err)
	}
	for _, c := range changes.ParamChanges {
		if !c.Param.Valid() {
			return nil, fmt.Errorf("unknown param %q in %s", c.Param, path)
		}
	}
	return changes.ParamChanges, nil
}
