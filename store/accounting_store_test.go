package store

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mezonai/accounting/block"
)

func nextBlock(prev *block.AccountingBlock) *block.AccountingBlock {
	if prev == nil {
		return block.AssembleBlock(0, block.ZeroHash, 1_700_000_000, nil)
	}
	return block.AssembleBlock(prev.Height+1, prev.Hash, prev.TimeInSec+600, []block.AccountingTx{{
		Type:    block.TxTypeBtcTradeFee,
		TxID:    "tx-" + prev.Hash.String(),
		Outputs: []block.AccountingTxOutput{{Value: int64(prev.Height) + 1000, Name: "receiver"}},
	}})
}

// buildChain returns n connected blocks starting at genesis height 0.
func buildChain(n int) []*block.AccountingBlock {
	blocks := make([]*block.AccountingBlock, 0, n)
	var prev *block.AccountingBlock
	for i := 0; i < n; i++ {
		prev = nextBlock(prev)
		blocks = append(blocks, prev)
	}
	return blocks
}

func newFilledStore(t *testing.T, n int) (*AccountingStore, []*block.AccountingBlock) {
	t.Helper()
	s := NewAccountingStore()
	blocks := buildChain(n)
	for _, b := range blocks {
		require.NoError(t, s.AddIfNewBlock(b))
	}
	return s, blocks
}

func assertChainValid(t require.TestingT, blocks []*block.AccountingBlock) {
	for i := 1; i < len(blocks); i++ {
		require.Equal(t, blocks[i-1].Height+1, blocks[i].Height, "heights must be contiguous at index %d", i)
		require.Equal(t, blocks[i-1].Hash, blocks[i].PrevHash, "prev hash must link at index %d", i)
	}
}

func chainValid(blocks []*block.AccountingBlock) bool {
	for i := 1; i < len(blocks); i++ {
		if blocks[i-1].Height+1 != blocks[i].Height || blocks[i-1].Hash != blocks[i].PrevHash {
			return false
		}
	}
	return true
}

func TestAccountingStore_EmptyChainAcceptsAnyGenesis(t *testing.T) {
	s := NewAccountingStore()
	_, ok := s.GetLastBlock()
	assert.False(t, ok)

	b := block.AssembleBlock(42, block.Hash{1, 2, 3}, 100, nil)
	require.NoError(t, s.AddIfNewBlock(b))

	last, ok := s.GetLastBlock()
	require.True(t, ok)
	assert.Same(t, b, last)
}

func TestAccountingStore_AppendConnectingBlock(t *testing.T) {
	s, blocks := newFilledStore(t, 3)
	assert.Equal(t, 3, s.Len())

	last, ok := s.GetLastBlock()
	require.True(t, ok)
	assert.Equal(t, blocks[2], last)
	assert.Equal(t, uint64(2), last.Height)
}

func TestAccountingStore_RejectsHeightGap(t *testing.T) {
	s, blocks := newFilledStore(t, 3)

	gap := block.AssembleBlock(4, blocks[2].Hash, 0, nil)
	err := s.AddIfNewBlock(gap)
	require.ErrorIs(t, err, ErrBlockHeightNotConnecting)
	assert.Equal(t, 3, s.Len())
}

func TestAccountingStore_RejectsWrongPrevHash(t *testing.T) {
	s, _ := newFilledStore(t, 3)

	wrong := block.AssembleBlock(3, block.Hash{0xff}, 0, nil)
	err := s.AddIfNewBlock(wrong)
	require.ErrorIs(t, err, ErrBlockHashNotConnecting)
	assert.Equal(t, 3, s.Len())
}

func TestAccountingStore_HeightCheckedBeforeHash(t *testing.T) {
	s, _ := newFilledStore(t, 2)

	bothWrong := block.AssembleBlock(7, block.Hash{0xee}, 0, nil)
	err := s.AddIfNewBlock(bothWrong)
	require.ErrorIs(t, err, ErrBlockHeightNotConnecting)
	assert.NotErrorIs(t, err, ErrBlockHashNotConnecting)
}

func TestAccountingStore_ResubmittedLastBlockIsRejected(t *testing.T) {
	s, blocks := newFilledStore(t, 4)

	err := s.AddIfNewBlock(blocks[3])
	require.ErrorIs(t, err, ErrBlockHeightNotConnecting)
	assert.Equal(t, 4, s.Len())
}

func TestAccountingStore_RejectsHeightOverflow(t *testing.T) {
	s := NewAccountingStore()
	top := block.AssembleBlock(math.MaxUint64, block.ZeroHash, 0, nil)
	require.NoError(t, s.AddIfNewBlock(top))

	wrapped := block.AssembleBlock(0, top.Hash, 0, nil)
	err := s.AddIfNewBlock(wrapped)
	require.ErrorIs(t, err, ErrBlockHeightNotConnecting)
	assert.Equal(t, 1, s.Len())
	last, ok := s.GetLastBlock()
	require.True(t, ok)
	assert.Equal(t, top, last)
}

func TestAccountingStore_NilBlock(t *testing.T) {
	s := NewAccountingStore()
	require.Error(t, s.AddIfNewBlock(nil))
	assert.Equal(t, 0, s.Len())
}

func TestAccountingStore_PurgeLastTenBlocks(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		wantPurge int
		wantLen   int
	}{
		{name: "empty", size: 0, wantPurge: 0, wantLen: 0},
		{name: "fewer than ten", size: 4, wantPurge: 4, wantLen: 0},
		{name: "exactly ten", size: 10, wantPurge: 10, wantLen: 0},
		{name: "more than ten", size: 25, wantPurge: 10, wantLen: 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, blocks := newFilledStore(t, tt.size)
			assert.Equal(t, tt.wantPurge, s.PurgeLastTenBlocks())
			assert.Equal(t, tt.wantLen, s.Len())

			last, ok := s.GetLastBlock()
			if tt.wantLen == 0 {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, blocks[tt.wantLen-1], last)
		})
	}
}

func TestAccountingStore_ChainCanBeExtendedAfterPurge(t *testing.T) {
	s, blocks := newFilledStore(t, 15)
	s.PurgeLastTenBlocks()

	require.NoError(t, s.AddIfNewBlock(blocks[5]))
	last, ok := s.GetLastBlock()
	require.True(t, ok)
	assert.Equal(t, uint64(5), last.Height)
}

func TestAccountingStore_RemoveAllBlocks(t *testing.T) {
	s, _ := newFilledStore(t, 5)
	s.RemoveAllBlocks()

	assert.Equal(t, 0, s.Len())
	_, ok := s.GetLastBlock()
	assert.False(t, ok)

	// an empty chain takes a new genesis
	require.NoError(t, s.AddIfNewBlock(block.AssembleBlock(100, block.ZeroHash, 0, nil)))
}

func TestAccountingStore_GetBlockAtHeight(t *testing.T) {
	s := NewAccountingStore()
	genesis := block.AssembleBlock(100, block.ZeroHash, 0, nil)
	require.NoError(t, s.AddIfNewBlock(genesis))
	second := block.AssembleBlock(101, genesis.Hash, 0, nil)
	require.NoError(t, s.AddIfNewBlock(second))

	b, ok := s.GetBlockAtHeight(101)
	require.True(t, ok)
	assert.Equal(t, second, b)

	b, ok = s.GetBlockAtHeight(100)
	require.True(t, ok)
	assert.Equal(t, genesis, b)

	_, ok = s.GetBlockAtHeight(99)
	assert.False(t, ok)
	_, ok = s.GetBlockAtHeight(102)
	assert.False(t, ok)
	_, ok = NewAccountingStore().GetBlockAtHeight(0)
	assert.False(t, ok)
}

func TestAccountingStore_GetBlocksAtLeastWithHeight(t *testing.T) {
	s, blocks := newFilledStore(t, 6)

	assert.Equal(t, blocks, s.GetBlocksAtLeastWithHeight(0))
	assert.Equal(t, blocks[3:], s.GetBlocksAtLeastWithHeight(3))
	assert.Equal(t, blocks[5:], s.GetBlocksAtLeastWithHeight(5))

	none := s.GetBlocksAtLeastWithHeight(6)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	empty := NewAccountingStore().GetBlocksAtLeastWithHeight(0)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestAccountingStore_ReturnedSlicesAreCopies(t *testing.T) {
	s, _ := newFilledStore(t, 3)

	suffix := s.GetBlocksAtLeastWithHeight(0)
	suffix[0] = nil
	state := s.State()
	state.Blocks[1] = nil

	b, ok := s.GetBlockAtHeight(0)
	require.True(t, ok)
	assert.NotNil(t, b)
	b, ok = s.GetBlockAtHeight(1)
	require.True(t, ok)
	assert.NotNil(t, b)
}

func TestAccountingStore_ForEachBlock(t *testing.T) {
	s, blocks := newFilledStore(t, 4)

	var seen []uint64
	s.ForEachBlock(func(b *block.AccountingBlock) {
		seen = append(seen, b.Height)
		// reentrant reads do not deadlock
		_ = s.Len()
	})
	require.Len(t, seen, len(blocks))
	assert.Equal(t, []uint64{0, 1, 2, 3}, seen)
}

func TestRestoreAccountingStore(t *testing.T) {
	blocks := buildChain(5)

	s, dropped := RestoreAccountingStore(AccountingStoreState{Blocks: blocks})
	assert.Equal(t, 0, dropped)
	assert.Equal(t, 5, s.Len())

	broken := append([]*block.AccountingBlock{}, blocks[:3]...)
	broken = append(broken, block.AssembleBlock(3, block.Hash{9}, 0, nil), blocks[4])
	s, dropped = RestoreAccountingStore(AccountingStoreState{Blocks: broken})
	assert.Equal(t, 2, dropped)
	assert.Equal(t, 3, s.Len())
	assertChainValid(t, s.State().Blocks)

	s, dropped = RestoreAccountingStore(AccountingStoreState{})
	assert.Equal(t, 0, dropped)
	assert.Equal(t, 0, s.Len())
}

func TestAccountingStore_ConcurrentReadersSeeValidChain(t *testing.T) {
	s := NewAccountingStore()
	blocks := buildChain(200)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i, b := range blocks {
			assert.NoError(t, s.AddIfNewBlock(b))
			if i%50 == 49 {
				s.PurgeLastTenBlocks()
				for _, again := range blocks[i-9 : i+1] {
					assert.NoError(t, s.AddIfNewBlock(again))
				}
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				assert.True(t, chainValid(s.GetBlocksAtLeastWithHeight(0)))
				if last, ok := s.GetLastBlock(); ok {
					b, found := s.GetBlockAtHeight(last.Height)
					if found {
						assert.Equal(t, last.Height, b.Height)
					}
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, len(blocks), s.Len())
}

// chainOp is one step of a random operation sequence.
type chainOp int

const (
	opAppendValid chainOp = iota
	opAppendGap
	opAppendWrongHash
	opPurge
	opRemoveAll
)

func TestAccountingStore_RandomOperationsKeepInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewAccountingStore()
		ops := rapid.SliceOfN(rapid.SampledFrom([]chainOp{
			opAppendValid, opAppendValid, opAppendValid, opAppendGap, opAppendWrongHash, opPurge, opRemoveAll,
		}), 1, 80).Draw(t, "ops")

		for _, op := range ops {
			before := s.State().Blocks
			last, hasLast := s.GetLastBlock()

			switch op {
			case opAppendValid:
				require.NoError(t, s.AddIfNewBlock(nextBlock(last)))
				require.Equal(t, len(before)+1, s.Len())
			case opAppendGap:
				if !hasLast {
					continue
				}
				gap := rapid.Uint64Range(2, 50).Draw(t, "gap")
				err := s.AddIfNewBlock(block.AssembleBlock(last.Height+gap, last.Hash, 0, nil))
				require.ErrorIs(t, err, ErrBlockHeightNotConnecting)
				require.Equal(t, before, s.State().Blocks)
			case opAppendWrongHash:
				if !hasLast {
					continue
				}
				err := s.AddIfNewBlock(block.AssembleBlock(last.Height+1, last.PrevHash, 0, nil))
				require.ErrorIs(t, err, ErrBlockHashNotConnecting)
				require.Equal(t, before, s.State().Blocks)
			case opPurge:
				removed := s.PurgeLastTenBlocks()
				require.Equal(t, min(len(before), 10), removed)
				require.Equal(t, before[:len(before)-removed], s.State().Blocks)
			case opRemoveAll:
				s.RemoveAllBlocks()
				require.Equal(t, 0, s.Len())
			}

			assertChainValid(t, s.State().Blocks)
		}
	})
}

func TestAccountingStore_QueriesMatchLinearScan(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 60).Draw(t, "n")
		s := NewAccountingStore()
		var prev *block.AccountingBlock
		if n > 0 {
			start := rapid.Uint64Range(0, 1000).Draw(t, "start")
			prev = block.AssembleBlock(start, block.ZeroHash, 0, nil)
			require.NoError(t, s.AddIfNewBlock(prev))
		}
		for i := 1; i < n; i++ {
			prev = nextBlock(prev)
			require.NoError(t, s.AddIfNewBlock(prev))
		}
		chain := s.State().Blocks

		h := rapid.Uint64Range(0, 1100).Draw(t, "height")

		var want *block.AccountingBlock
		for _, b := range chain {
			if b.Height == h {
				want = b
			}
		}
		got, ok := s.GetBlockAtHeight(h)
		require.Equal(t, want != nil, ok)
		require.Equal(t, want, got)

		wantSuffix := []*block.AccountingBlock{}
		for _, b := range chain {
			if b.Height >= h {
				wantSuffix = append(wantSuffix, b)
			}
		}
		require.Equal(t, wantSuffix, s.GetBlocksAtLeastWithHeight(h))
	})
}
