package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mezonai/accounting/db"
	"github.com/mezonai/accounting/persistence"
)

// StoreType represents the type of database provider
type StoreType string

const (
	// LevelDBStoreType uses the LevelDB implementation
	LevelDBStoreType StoreType = "leveldb"

	// BoltStoreType uses the bbolt implementation
	BoltStoreType StoreType = "bolt"

	// RedisStoreType uses the Redis implementation
	RedisStoreType StoreType = "redis"

	// MemoryStoreType uses an in-memory LevelDB, nothing survives Close
	MemoryStoreType StoreType = "memory"
)

// StateBackendType selects where the accounting chain file is written
type StateBackendType string

const (
	// FileStateBackend writes one file per store in Directory
	FileStateBackend StateBackendType = "file"

	// ProviderStateBackend writes the store blob into the database provider
	ProviderStateBackend StateBackendType = "provider"
)

const (
	levelDBDirName = "leveldb"
	boltFileName   = "accounting.db"
)

// StoreConfig holds configuration for creating store instances
type StoreConfig struct {
	// Type specifies which database provider to use
	Type StoreType `json:"type" yaml:"type"`

	// Directory is the storage directory path
	Directory string `json:"directory" yaml:"directory"`

	// RedisAddr is only used by RedisStoreType
	RedisAddr string `json:"redis_addr" yaml:"redis_addr"`

	// StateBackend defaults to FileStateBackend
	StateBackend StateBackendType `json:"state_backend" yaml:"state_backend"`
}

// Validate validates the store configuration
func (sc *StoreConfig) Validate() error {
	if sc.Type == "" {
		return fmt.Errorf("store type cannot be empty")
	}

	switch sc.Type {
	case LevelDBStoreType, BoltStoreType:
		if sc.Directory == "" {
			return fmt.Errorf("directory cannot be empty")
		}
	case RedisStoreType:
		if sc.RedisAddr == "" {
			return fmt.Errorf("redis address cannot be empty")
		}
	case MemoryStoreType:
	default:
		return fmt.Errorf("unsupported store type: %s", sc.Type)
	}

	switch sc.stateBackend() {
	case ProviderStateBackend:
	case FileStateBackend:
		if sc.Directory == "" {
			return fmt.Errorf("directory cannot be empty for file state backend")
		}
	default:
		return fmt.Errorf("unsupported state backend: %s", sc.StateBackend)
	}
	return nil
}

func (sc *StoreConfig) stateBackend() StateBackendType {
	if sc.StateBackend == "" {
		return FileStateBackend
	}
	return sc.StateBackend
}

// StoreFactory take responsibility to create store instances
type StoreFactory struct{}

// NewStoreFactory creates a new store factory
func NewStoreFactory() *StoreFactory {
	return &StoreFactory{}
}

// Stores groups everything opened from one StoreConfig. Closing the
// accounting store service also closes the provider.
type Stores struct {
	Provider            db.IterableProvider
	AccountingStore     *AccountingStoreService
	AccountAgeWitnesses *AccountAgeWitnessStore
}

// CreateStores opens the provider, the accounting store service and the
// witness store. Backend and Closers in svcOpts are filled from config.
func (sf *StoreFactory) CreateStores(config *StoreConfig, svcOpts AccountingStoreServiceOptions) (*Stores, error) {
	provider, err := sf.CreateProvider(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	backend, err := sf.CreateStateBackend(config, provider)
	if err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("failed to create state backend: %w", err)
	}

	witnesses, err := NewAccountAgeWitnessStore(provider)
	if err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("failed to create account age witness store: %w", err)
	}

	svcOpts.Backend = backend
	svcOpts.Closers = append([]io.Closer{}, svcOpts.Closers...)
	svcOpts.Closers = append(svcOpts.Closers, provider)
	service, err := NewAccountingStoreService(svcOpts)
	if err != nil {
		_ = provider.Close()
		return nil, fmt.Errorf("failed to create accounting store service: %w", err)
	}

	return &Stores{
		Provider:            provider,
		AccountingStore:     service,
		AccountAgeWitnesses: witnesses,
	}, nil
}

// CreateProvider creates a database provider based on the configuration
func (sf *StoreFactory) CreateProvider(config *StoreConfig) (db.IterableProvider, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch config.Type {
	case LevelDBStoreType:
		return db.NewLevelDBProvider(filepath.Join(config.Directory, levelDBDirName))

	case BoltStoreType:
		if err := os.MkdirAll(config.Directory, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		return db.NewBoltProvider(filepath.Join(config.Directory, boltFileName))

	case RedisStoreType:
		return db.NewRedisProvider(config.RedisAddr)

	case MemoryStoreType:
		return db.NewMemLevelDBProvider()

	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// CreateStateBackend returns the backend the accounting chain is persisted to.
func (sf *StoreFactory) CreateStateBackend(config *StoreConfig, provider db.DatabaseProvider) (persistence.Backend, error) {
	switch config.stateBackend() {
	case FileStateBackend:
		return persistence.NewFileBackend(config.Directory)
	case ProviderStateBackend:
		return persistence.NewProviderBackend(provider)
	default:
		return nil, fmt.Errorf("unsupported state backend: %s", config.StateBackend)
	}
}

// Global factory instance
var globalFactory = NewStoreFactory()

// CreateStores opens store instances using the global factory
func CreateStores(config *StoreConfig, svcOpts AccountingStoreServiceOptions) (*Stores, error) {
	return globalFactory.CreateStores(config, svcOpts)
}
