package persistence

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mezonai/accounting/exception"
	"github.com/mezonai/accounting/logx"
	"github.com/mezonai/accounting/monitoring"
)

const DefaultFlushDelay = 200 * time.Millisecond

// ErrCorruptedState is returned by ReadPersisted when the stored data cannot
// be decoded.
var ErrCorruptedState = errors.New("corrupted persisted state")

type Options struct {
	// FlushDelay debounces RequestPersistence; requests arriving while a write
	// is scheduled are merged into it.
	FlushDelay time.Duration
	Codec      Codec
}

// Manager persists the full state of one store under a single name.
//
// RequestPersistence is fire-and-forget: it schedules a write and returns
// at once, failures are logged and counted but never reported to the caller.
// PersistNow writes synchronously and returns only once the backend accepted
// the data, reporting any I/O failure.
//
// The state is read from the source function inside the write lock, so writes
// land in the order their snapshots were taken.
type Manager[T any] struct {
	backend    Backend
	codec      Codec
	flushDelay time.Duration

	name   string
	source func() T

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	closed  bool
	wg      sync.WaitGroup

	writeMu sync.Mutex
}

func NewManager[T any](backend Backend, opts Options) *Manager[T] {
	if opts.FlushDelay < 0 {
		opts.FlushDelay = 0
	}
	return &Manager[T]{
		backend:    backend,
		codec:      opts.Codec,
		flushDelay: opts.FlushDelay,
	}
}

// Initialize binds the manager to the store file name and the function
// returning the state to persist. It must be called before any write.
func (m *Manager[T]) Initialize(name string, source func() T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
	m.source = source
}

func (m *Manager[T]) FileName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

func (m *Manager[T]) Backend() Backend {
	return m.backend
}

// ReadPersisted loads the last persisted state. The boolean is false when
// nothing was persisted yet.
func (m *Manager[T]) ReadPersisted() (T, bool, error) {
	var state T
	name := m.FileName()
	if name == "" {
		return state, false, fmt.Errorf("persistence manager not initialized")
	}

	data, err := m.backend.Read(name)
	if err != nil {
		return state, false, err
	}
	if data == nil {
		return state, false, nil
	}
	if err := m.codec.Decode(data, &state); err != nil {
		return state, false, fmt.Errorf("%w: %s: %v", ErrCorruptedState, name, err)
	}
	return state, true, nil
}

// RequestPersistence schedules an asynchronous write of the current state.
func (m *Manager[T]) RequestPersistence() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.source == nil || m.pending {
		return
	}
	m.pending = true
	m.wg.Add(1)
	m.timer = time.AfterFunc(m.flushDelay, func() {
		defer m.wg.Done()
		exception.Run("persistence "+m.name, m.flushScheduled)
	})
}

// PersistNow cancels any scheduled write and writes the current state
// synchronously.
func (m *Manager[T]) PersistNow() error {
	m.mu.Lock()
	if m.source == nil {
		m.mu.Unlock()
		return fmt.Errorf("persistence manager not initialized")
	}
	m.cancelScheduledLocked()
	m.mu.Unlock()

	return m.write()
}

// Flush writes the state if a write is scheduled.
func (m *Manager[T]) Flush() error {
	m.mu.Lock()
	wasPending := m.cancelScheduledLocked()
	m.mu.Unlock()

	if !wasPending {
		return nil
	}
	return m.write()
}

// Close flushes a scheduled write, waits for in-flight writes and ignores
// later requests.
func (m *Manager[T]) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	err := m.Flush()
	m.wg.Wait()
	return err
}

func (m *Manager[T]) cancelScheduledLocked() bool {
	wasPending := m.pending
	if m.timer != nil && m.timer.Stop() {
		// the callback will never run
		m.wg.Done()
	}
	m.timer = nil
	m.pending = false
	return wasPending
}

func (m *Manager[T]) flushScheduled() {
	m.mu.Lock()
	if !m.pending {
		m.mu.Unlock()
		return
	}
	m.pending = false
	m.timer = nil
	m.mu.Unlock()

	if err := m.write(); err != nil {
		logx.Error("PERSISTENCE", "Scheduled write of ", m.name, " failed: ", err)
	}
}

func (m *Manager[T]) write() error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	start := time.Now()
	data, err := m.codec.Encode(m.source())
	if err != nil {
		monitoring.IncreasePersistFailureCount()
		return fmt.Errorf("failed to encode %s: %w", m.name, err)
	}
	if err := m.backend.Write(m.name, data); err != nil {
		monitoring.IncreasePersistFailureCount()
		return fmt.Errorf("failed to persist %s: %w", m.name, err)
	}

	monitoring.RecordPersist(time.Since(start), len(data))
	logx.Debug("PERSISTENCE", "Persisted ", m.name, " (", len(data), " bytes) to ", m.backend.Location(m.name))
	return nil
}
