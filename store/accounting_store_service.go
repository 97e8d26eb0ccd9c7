package store

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/mezonai/accounting/block"
	"github.com/mezonai/accounting/events"
	"github.com/mezonai/accounting/exception"
	"github.com/mezonai/accounting/logx"
	"github.com/mezonai/accounting/monitoring"
	"github.com/mezonai/accounting/persistence"
)

const (
	AccountingStoreFileName = "BurningManAccountingStore_v3"
	DefaultCleanupDelay     = 5 * time.Second
)

// DefaultLegacyFileNames are superseded versions of the accounting store file
// that were missing some data.
var DefaultLegacyFileNames = []string{
	"BurningManAccountingStore",
	"BurningManAccountingStore_v2",
}

// serviceState is the lifecycle of the service. The only transition is
// stateActive -> stateReset and it is never undone.
type serviceState int32

const (
	stateActive serviceState = iota
	stateReset
)

type AccountingStoreServiceOptions struct {
	Backend         persistence.Backend
	FileName        string
	LegacyFileNames []string
	CleanupDelay    time.Duration
	Persistence     persistence.Options
	EventBus        *events.EventBus
	// Closers are closed by Close after the final flush, e.g. the database
	// provider behind Backend.
	Closers []io.Closer
}

// AccountingStoreService owns the accounting chain for the process lifetime.
// It validates and appends blocks, asks for persistence after every
// mutation and permanently stops accepting mutations once RemoveAllBlocks
// was called.
type AccountingStoreService struct {
	store       *AccountingStore
	persistence *persistence.Manager[AccountingStoreState]
	backend     persistence.Backend
	eventBus    *events.EventBus

	fileName        string
	legacyFileNames []string
	cleanupDelay    time.Duration
	closers         []io.Closer

	// writeMu serializes mutations with the state transition.
	writeMu sync.Mutex
	state   atomic.Int32

	startOnce    sync.Once
	cleanupMu    sync.Mutex
	cleanupTimer *time.Timer
	cleanupDone  chan struct{}
	closed       bool
	closeOnce    sync.Once
}

func NewAccountingStoreService(opts AccountingStoreServiceOptions) (*AccountingStoreService, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("backend cannot be nil")
	}
	if opts.FileName == "" {
		opts.FileName = AccountingStoreFileName
	}
	if opts.LegacyFileNames == nil {
		opts.LegacyFileNames = DefaultLegacyFileNames
	}
	if opts.CleanupDelay < 0 {
		opts.CleanupDelay = 0
	}

	s := &AccountingStoreService{
		backend:         opts.Backend,
		eventBus:        opts.EventBus,
		fileName:        opts.FileName,
		legacyFileNames: opts.LegacyFileNames,
		cleanupDelay:    opts.CleanupDelay,
		closers:         opts.Closers,
		cleanupDone:     make(chan struct{}),
	}

	s.persistence = persistence.NewManager[AccountingStoreState](opts.Backend, opts.Persistence)
	s.persistence.Initialize(opts.FileName, func() AccountingStoreState {
		return s.store.State()
	})

	if err := s.readStore(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *AccountingStoreService) readStore() error {
	state, found, err := s.persistence.ReadPersisted()
	if errors.Is(err, persistence.ErrCorruptedState) {
		// unreadable content is replaced on the next write
		logx.Error("ACCOUNTING_STORE", "Ignoring unreadable store file: ", err)
		s.store = NewAccountingStore()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read accounting store: %w", err)
	}
	if !found {
		s.store = NewAccountingStore()
		logx.Info("ACCOUNTING_STORE", "No persisted ", s.fileName, ", starting with an empty chain")
		return nil
	}

	store, dropped := RestoreAccountingStore(state)
	s.store = store
	if dropped > 0 {
		s.persistence.RequestPersistence()
	}
	s.updateChainMetrics()
	logx.Info("ACCOUNTING_STORE", fmt.Sprintf("Loaded %d accounting blocks from %s", store.Len(), s.fileName))
	return nil
}

// Start schedules the removal of legacy store files after the cleanup delay.
// Calling it again, or after Close, has no effect.
func (s *AccountingStoreService) Start() {
	s.startOnce.Do(func() {
		s.cleanupMu.Lock()
		defer s.cleanupMu.Unlock()
		if s.closed {
			return
		}
		s.cleanupTimer = time.AfterFunc(s.cleanupDelay, func() {
			defer close(s.cleanupDone)
			exception.Run("legacy store cleanup", func() {
				if err := s.CleanupLegacyFiles(); err != nil {
					logx.Error("ACCOUNTING_STORE", "Legacy file cleanup failed: ", err)
				}
			})
		})
	})
}

// CleanupDone is closed once the cleanup scheduled by Start finished, or
// when Close ran before it could.
func (s *AccountingStoreService) CleanupDone() <-chan struct{} {
	return s.cleanupDone
}

// CleanupLegacyFiles deletes superseded store files. The first failure ends
// the attempt.
func (s *AccountingStoreService) CleanupLegacyFiles() error {
	for _, name := range s.legacyFileNames {
		exists, err := s.backend.Exists(name)
		if err != nil {
			return fmt.Errorf("failed to check legacy file %s: %w", name, err)
		}
		if !exists {
			continue
		}
		if err := s.backend.Delete(name); err != nil {
			return fmt.Errorf("failed to delete legacy file %s: %w", name, err)
		}
		logx.Info("ACCOUNTING_STORE", "Deleted legacy store file ", s.backend.Location(name))
	}
	return nil
}

func (s *AccountingStoreService) isReset() bool {
	return serviceState(s.state.Load()) == stateReset
}

// IsReset reports whether RemoveAllBlocks was called.
func (s *AccountingStoreService) IsReset() bool {
	return s.isReset()
}

func (s *AccountingStoreService) RequestPersistence() {
	s.persistence.RequestPersistence()
}

// AddIfNewBlock validates and appends b, then requests an asynchronous write.
// After a reset it does nothing and returns nil.
func (s *AccountingStoreService) AddIfNewBlock(b *block.AccountingBlock) error {
	s.writeMu.Lock()
	if s.isReset() {
		s.writeMu.Unlock()
		return nil
	}
	if err := s.store.AddIfNewBlock(b); err != nil {
		s.writeMu.Unlock()
		recordRejectedBlock(err)
		return err
	}
	s.writeMu.Unlock()

	s.RequestPersistence()
	monitoring.IncreaseAddedBlockCount()
	s.updateChainMetrics()
	s.eventBus.Publish(events.NewAccountingBlockAdded(b.Height, b.HashString()))
	return nil
}

func recordRejectedBlock(err error) {
	switch {
	case errors.Is(err, ErrBlockHeightNotConnecting):
		monitoring.RecordRejectedBlock(monitoring.BlockHeightNotConnecting)
	case errors.Is(err, ErrBlockHashNotConnecting):
		monitoring.RecordRejectedBlock(monitoring.BlockHashNotConnecting)
	default:
		monitoring.RecordRejectedBlock(monitoring.BlockRejectedUnknown)
	}
}

// PurgeLastTenBlocks removes up to ten trailing blocks and requests an
// asynchronous write. After a reset it does nothing.
func (s *AccountingStoreService) PurgeLastTenBlocks() int {
	s.writeMu.Lock()
	if s.isReset() {
		s.writeMu.Unlock()
		return 0
	}
	removed := s.store.PurgeLastTenBlocks()
	s.writeMu.Unlock()

	s.RequestPersistence()
	monitoring.RecordPurgedBlocks(removed)
	s.updateChainMetrics()
	s.eventBus.Publish(events.NewAccountingBlocksPurged(s.ChainHeight(), removed))
	logx.Info("ACCOUNTING_STORE", fmt.Sprintf("Purged %d blocks, chain height is now %d", removed, s.ChainHeight()))
	return removed
}

// RemoveAllBlocks permanently disables further mutations, clears the chain
// and returns once the empty chain was durably written.
func (s *AccountingStoreService) RemoveAllBlocks() error {
	s.writeMu.Lock()
	s.state.Store(int32(stateReset))
	s.store.RemoveAllBlocks()
	s.writeMu.Unlock()

	monitoring.IncreaseResetCount()
	s.updateChainMetrics()

	if err := s.persistence.PersistNow(); err != nil {
		return logx.Errorf("failed to persist removal of all blocks: %w", err)
	}
	s.eventBus.Publish(events.NewAccountingBlocksRemoved())
	logx.Info("ACCOUNTING_STORE", "Removed all accounting blocks")
	return nil
}

// DeleteStorageFile removes the persisted store file.
func (s *AccountingStoreService) DeleteStorageFile() error {
	if err := s.backend.Delete(s.fileName); err != nil {
		logx.Error("ACCOUNTING_STORE", "Failed to delete ", s.fileName, ": ", err)
		return err
	}
	return nil
}

func (s *AccountingStoreService) ForEachBlock(fn func(b *block.AccountingBlock)) {
	s.store.ForEachBlock(fn)
}

func (s *AccountingStoreService) GetLastBlock() (*block.AccountingBlock, bool) {
	return s.store.GetLastBlock()
}

func (s *AccountingStoreService) GetBlockAtHeight(height uint64) (*block.AccountingBlock, bool) {
	return s.store.GetBlockAtHeight(height)
}

func (s *AccountingStoreService) GetBlocksAtLeastWithHeight(minHeight uint64) []*block.AccountingBlock {
	return s.store.GetBlocksAtLeastWithHeight(minHeight)
}

// ChainHeight returns the height of the last block, or 0 for an empty chain.
func (s *AccountingStoreService) ChainHeight() uint64 {
	if last, ok := s.store.GetLastBlock(); ok {
		return last.Height
	}
	return 0
}

func (s *AccountingStoreService) Len() int {
	return s.store.Len()
}

func (s *AccountingStoreService) FileName() string {
	return s.fileName
}

func (s *AccountingStoreService) updateChainMetrics() {
	monitoring.SetChainHeight(s.ChainHeight(), s.store.Len())
}

// Close stops a pending cleanup, flushes a scheduled write and closes the
// configured closers.
func (s *AccountingStoreService) Close() error {
	var result *multierror.Error
	s.closeOnce.Do(func() {
		s.cleanupMu.Lock()
		s.closed = true
		if s.cleanupTimer == nil || s.cleanupTimer.Stop() {
			close(s.cleanupDone)
		}
		s.cleanupMu.Unlock()

		if err := s.persistence.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		for _, c := range s.closers {
			if err := c.Close(); err != nil {
				result = multierror.Append(result, err)
			}
		}
	})
	return result.ErrorOrNil()
}
