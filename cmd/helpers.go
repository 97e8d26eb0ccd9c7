package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/mezonai/accounting/block"
	"github.com/mezonai/accounting/config"
	"github.com/mezonai/accounting/db"
	"github.com/mezonai/accounting/events"
	"github.com/mezonai/accounting/governance"
	"github.com/mezonai/accounting/jsonx"
	"github.com/mezonai/accounting/logx"
	"github.com/mezonai/accounting/persistence"
	"github.com/mezonai/accounting/store"
)

// maxImportLineSize bounds a single JSON block line
const maxImportLineSize = 16 * 1024 * 1024

func storeConfig(cfg *config.NodeConfig) *store.StoreConfig {
	return &store.StoreConfig{
		Type:         store.StoreType(cfg.Storage.Backend),
		Directory:    cfg.Storage.Dir,
		RedisAddr:    cfg.Storage.RedisAddr,
		StateBackend: store.StateBackendType(cfg.Storage.StateBackend),
	}
}

// openStores opens the configured provider and accounting store service.
// Closing the service also closes the provider.
func openStores(cfg *config.NodeConfig, bus *events.EventBus) (*store.Stores, error) {
	stores, err := store.CreateStores(storeConfig(cfg), store.AccountingStoreServiceOptions{
		FileName:        cfg.Storage.FileName,
		LegacyFileNames: cfg.Storage.LegacyFileNames,
		CleanupDelay:    cfg.Cleanup.Delay(),
		Persistence: persistence.Options{
			FlushDelay: cfg.Persistence.FlushDelay(),
			Codec:      persistence.Codec{Compress: cfg.Persistence.Compress},
		},
		EventBus: bus,
	})
	if err != nil {
		return nil, err
	}
	logx.Info("CMD", fmt.Sprintf("Opened %s store in %s with %d accounting blocks",
		cfg.Storage.Backend, cfg.Storage.Dir, stores.AccountingStore.Len()))
	return stores, nil
}

// openParamStore loads the param changes file, when configured, into the
// provider and returns the param store.
func openParamStore(provider db.IterableProvider, paramsFile string) (*governance.ParamStore, error) {
	params, err := governance.NewParamStore(provider)
	if err != nil {
		return nil, err
	}
	if paramsFile == "" {
		return params, nil
	}

	changes, err := config.LoadParamChanges(paramsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load param changes: %w", err)
	}
	if err := params.ApplyChanges(changes); err != nil {
		return nil, err
	}
	logx.Info("CMD", fmt.Sprintf("Applied %d param changes from %s", len(changes), paramsFile))
	return params, nil
}

// blockSink is the part of the accounting store service used by imports
type blockSink interface {
	AddIfNewBlock(b *block.AccountingBlock) error
}

// importBlocks appends the JSON-lines blocks in path and publishes a
// ParseBlockComplete event after each accepted block. With verifyHash a
// block whose hash does not match its content is rejected. The first
// rejected block stops the import.
func importBlocks(ctx context.Context, sink blockSink, bus *events.EventBus, path string, verifyHash bool) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLineSize)

	imported, line := 0, 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return imported, err
		}
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var b block.AccountingBlock
		if err := jsonx.Unmarshal(raw, &b); err != nil {
			return imported, fmt.Errorf("line %d: invalid block: %w", line, err)
		}
		if verifyHash && b.ComputeHash() != b.Hash {
			return imported, fmt.Errorf("line %d: block %d hash does not match its content", line, b.Height)
		}
		if err := sink.AddIfNewBlock(&b); err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		imported++
		bus.Publish(events.NewParseBlockComplete(b.Height))
	}
	if err := scanner.Err(); err != nil {
		return imported, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return imported, nil
}
