package events

import (
	"time"
)

// EventType is an enum-like string type for accounting events
type EventType string

const (
	EventAccountingBlockAdded    EventType = "AccountingBlockAdded"
	EventAccountingBlocksPurged  EventType = "AccountingBlocksPurged"
	EventAccountingBlocksRemoved EventType = "AccountingBlocksRemoved"
	EventParseBlockComplete      EventType = "ParseBlockComplete"
)

// Event represents anything published on the bus
type Event interface {
	Type() EventType
	Timestamp() time.Time
	Height() uint64
}

// AccountingBlockAdded event when the store accepted a new block
type AccountingBlockAdded struct {
	height    uint64
	blockHash string
	timestamp time.Time
}

func NewAccountingBlockAdded(height uint64, blockHash string) *AccountingBlockAdded {
	return &AccountingBlockAdded{
		height:    height,
		blockHash: blockHash,
		timestamp: time.Now(),
	}
}

func (e *AccountingBlockAdded) Type() EventType {
	return EventAccountingBlockAdded
}

func (e *AccountingBlockAdded) Timestamp() time.Time {
	return e.timestamp
}

func (e *AccountingBlockAdded) Height() uint64 {
	return e.height
}

func (e *AccountingBlockAdded) BlockHash() string {
	return e.blockHash
}

// AccountingBlocksPurged event when trailing blocks were removed. Height is
// the new chain tip, or 0 when the chain became empty.
type AccountingBlocksPurged struct {
	height    uint64
	removed   int
	timestamp time.Time
}

func NewAccountingBlocksPurged(height uint64, removed int) *AccountingBlocksPurged {
	return &AccountingBlocksPurged{
		height:    height,
		removed:   removed,
		timestamp: time.Now(),
	}
}

func (e *AccountingBlocksPurged) Type() EventType {
	return EventAccountingBlocksPurged
}

func (e *AccountingBlocksPurged) Timestamp() time.Time {
	return e.timestamp
}

func (e *AccountingBlocksPurged) Height() uint64 {
	return e.height
}

func (e *AccountingBlocksPurged) Removed() int {
	return e.removed
}

// AccountingBlocksRemoved event when the whole chain was wiped and persisted
type AccountingBlocksRemoved struct {
	timestamp time.Time
}

func NewAccountingBlocksRemoved() *AccountingBlocksRemoved {
	return &AccountingBlocksRemoved{timestamp: time.Now()}
}

func (e *AccountingBlocksRemoved) Type() EventType {
	return EventAccountingBlocksRemoved
}

func (e *AccountingBlocksRemoved) Timestamp() time.Time {
	return e.timestamp
}

func (e *AccountingBlocksRemoved) Height() uint64 {
	return 0
}

// ParseBlockComplete event when the block-processing pipeline finished a
// block, after batch processing
type ParseBlockComplete struct {
	height    uint64
	timestamp time.Time
}

func NewParseBlockComplete(height uint64) *ParseBlockComplete {
	return &ParseBlockComplete{
		height:    height,
		timestamp: time.Now(),
	}
}

func (e *ParseBlockComplete) Type() EventType {
	return EventParseBlockComplete
}

func (e *ParseBlockComplete) Timestamp() time.Time {
	return e.timestamp
}

func (e *ParseBlockComplete) Height() uint64 {
	return e.height
}
