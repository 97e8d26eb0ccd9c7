package config

import (
	"time"

	"github.com/mezonai/accounting/governance"
)

// NodeConfig is the configuration of an accounting node
type NodeConfig struct {
	Storage     StorageConfig     `yaml:"storage"`
	Persistence PersistenceConfig `yaml:"persistence"`
	Cleanup     CleanupConfig     `yaml:"cleanup"`
	TradeLimits TradeLimitsConfig `yaml:"trade_limits"`
	Log         LogConfig         `yaml:"log"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type StorageConfig struct {
	// Backend is one of leveldb, bolt, redis, memory
	Backend string `ini:"backend" yaml:"backend"`
	// StateBackend is file or provider
	StateBackend    string   `ini:"state_backend" yaml:"state_backend"`
	Dir             string   `ini:"dir" yaml:"dir"`
	FileName        string   `ini:"file_name" yaml:"file_name"`
	RedisAddr       string   `ini:"redis_addr" yaml:"redis_addr"`
	LegacyFileNames []string `ini:"legacy_file_names" delim:"," yaml:"legacy_file_names"`
}

type PersistenceConfig struct {
	FlushDelayMs int  `ini:"flush_delay_ms" yaml:"flush_delay_ms"`
	Compress     bool `ini:"compress" yaml:"compress"`
}

func (c PersistenceConfig) FlushDelay() time.Duration {
	return time.Duration(c.FlushDelayMs) * time.Millisecond
}

type CleanupConfig struct {
	DelaySec int `ini:"delay_sec" yaml:"delay_sec"`
}

func (c CleanupConfig) Delay() time.Duration {
	return time.Duration(c.DelaySec) * time.Second
}

type TradeLimitsConfig struct {
	// ParamsFile lists governance param changes, see LoadParamChanges
	ParamsFile string `ini:"params_file" yaml:"params_file"`
}

type LogConfig struct {
	Dir        string `ini:"dir" yaml:"dir"`
	File       string `ini:"file" yaml:"file"`
	MaxSizeMB  int    `ini:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int    `ini:"max_age_days" yaml:"max_age_days"`
	MaxBackups int    `ini:"max_backups" yaml:"max_backups"`
	Stdout     bool   `ini:"stdout" yaml:"stdout"`
}

type MetricsConfig struct {
	ListenAddr string `ini:"listen_addr" yaml:"listen_addr"`
}

// ParamChangesFile is the top-level structure of a param changes yaml file
type ParamChangesFile struct {
	ParamChanges []governance.ParamChange `yaml:"param_changes"`
}
