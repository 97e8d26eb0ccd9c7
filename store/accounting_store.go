package store

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/mezonai/accounting/block"
	"github.com/mezonai/accounting/logx"
)

const purgeBlockCount = 10

var (
	ErrBlockHeightNotConnecting = errors.New("block height not connecting")
	ErrBlockHashNotConnecting   = errors.New("block hash not connecting")
)

// AccountingStoreState is the unit of persistence of an AccountingStore.
type AccountingStoreState struct {
	Blocks []*block.AccountingBlock `json:"blocks"`
}

// AccountingStore holds the accounting chain in memory.
//
// Blocks are kept sorted by contiguous height, each block's PrevHash equals
// the hash of its predecessor and no height appears twice. Every mutation is
// applied under the write lock, so readers never see a partial append, purge
// or clear.
type AccountingStore struct {
	mu     sync.RWMutex
	blocks []*block.AccountingBlock
}

func NewAccountingStore() *AccountingStore {
	return &AccountingStore{
		blocks: make([]*block.AccountingBlock, 0),
	}
}

// RestoreAccountingStore rebuilds a store from persisted state. Blocks are
// re-validated in order and the longest connecting prefix is kept; the
// number of dropped blocks is returned.
func RestoreAccountingStore(state AccountingStoreState) (*AccountingStore, int) {
	s := NewAccountingStore()
	for i, b := range state.Blocks {
		if err := s.AddIfNewBlock(b); err != nil {
			dropped := len(state.Blocks) - i
			logx.Warn("ACCOUNTING_STORE", fmt.Sprintf("Persisted chain broken at index %d, dropping %d blocks: %v", i, dropped, err))
			return s, dropped
		}
	}
	return s, 0
}

// validateConnection checks that b extends last. The height check runs
// first, so a block that is wrong in both ways reports the height error.
func validateConnection(last, b *block.AccountingBlock) error {
	if last == nil {
		return nil
	}
	if last.Height == math.MaxUint64 || b.Height != last.Height+1 {
		return fmt.Errorf("%w: last block height is %d, new block height is %d",
			ErrBlockHeightNotConnecting, last.Height, b.Height)
	}
	if b.PrevHash != last.Hash {
		return fmt.Errorf("%w: last block hash is %s, new block previous hash is %s",
			ErrBlockHashNotConnecting, last.Hash, b.PrevHash)
	}
	return nil
}

// AddIfNewBlock appends b if it connects to the last block. Any block is
// accepted on an empty chain. On error the chain is unchanged.
func (s *AccountingStore) AddIfNewBlock(b *block.AccountingBlock) error {
	if b == nil {
		return fmt.Errorf("block cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateConnection(s.lastBlockUnsafe(), b); err != nil {
		return err
	}
	s.blocks = append(s.blocks, b)
	return nil
}

// PurgeLastTenBlocks removes the last 10 blocks, or all of them if fewer exist.
func (s *AccountingStore) PurgeLastTenBlocks() int {
	return s.PurgeLastBlocks(purgeBlockCount)
}

// PurgeLastBlocks removes min(n, Len()) trailing blocks and returns how many
// were removed.
func (s *AccountingStore) PurgeLastBlocks(n int) int {
	if n <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n = min(n, len(s.blocks))
	keep := len(s.blocks) - n
	// drop references so purged blocks can be collected
	clear(s.blocks[keep:])
	s.blocks = s.blocks[:keep]
	return n
}

func (s *AccountingStore) RemoveAllBlocks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks = make([]*block.AccountingBlock, 0)
}

func (s *AccountingStore) lastBlockUnsafe() *block.AccountingBlock {
	if len(s.blocks) == 0 {
		return nil
	}
	return s.blocks[len(s.blocks)-1]
}

// GetLastBlock returns the block with the highest height.
func (s *AccountingStore) GetLastBlock() (*block.AccountingBlock, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	last := s.lastBlockUnsafe()
	return last, last != nil
}

// indexOfHeightUnsafe maps a height to its slice index using the offset
// from the first block. Heights are contiguous, so no search is needed.
func (s *AccountingStore) indexOfHeightUnsafe(height uint64) (int, bool) {
	if len(s.blocks) == 0 {
		return 0, false
	}
	first := s.blocks[0].Height
	if height < first {
		return 0, false
	}
	offset := height - first
	if offset >= uint64(len(s.blocks)) {
		return 0, false
	}
	return int(offset), true
}

func (s *AccountingStore) GetBlockAtHeight(height uint64) (*block.AccountingBlock, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.indexOfHeightUnsafe(height)
	if !ok {
		return nil, false
	}
	return s.blocks[idx], true
}

// GetBlocksAtLeastWithHeight returns, in chain order, every block whose
// height is at least minHeight. The returned slice is a copy.
func (s *AccountingStore) GetBlocksAtLeastWithHeight(minHeight uint64) []*block.AccountingBlock {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.blocks) == 0 {
		return []*block.AccountingBlock{}
	}
	start := 0
	if minHeight > s.blocks[0].Height {
		idx, ok := s.indexOfHeightUnsafe(minHeight)
		if !ok {
			return []*block.AccountingBlock{}
		}
		start = idx
	}

	out := make([]*block.AccountingBlock, len(s.blocks)-start)
	copy(out, s.blocks[start:])
	return out
}

// ForEachBlock calls fn for every block in chain order. It iterates over a
// snapshot, so fn may call back into the store.
func (s *AccountingStore) ForEachBlock(fn func(b *block.AccountingBlock)) {
	for _, b := range s.State().Blocks {
		fn(b)
	}
}

func (s *AccountingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocks)
}

// State returns a snapshot of the chain for persistence.
func (s *AccountingStore) State() AccountingStoreState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blocks := make([]*block.AccountingBlock, len(s.blocks))
	copy(blocks, s.blocks)
	return AccountingStoreState{Blocks: blocks}
}
