// Package engine implements the core storage engine: memtable rotation,
// table publication and layered lookups.
package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/MikhailWahib/zynk/internal/config"
	"github.com/MikhailWahib/zynk/internal/diskmanager"
	"github.com/MikhailWahib/zynk/internal/memtable"
	"github.com/MikhailWahib/zynk/internal/record"
	"github.com/MikhailWahib/zynk/internal/sstable"
	"github.com/MikhailWahib/zynk/internal/wal"
)

// Table is a published sstable.
type Table struct {
	ID     sstable.TableID
	Path   string
	Reader *sstable.Reader
}

// Engine owns the memtable set and the table list. Writes and flushes hold
// the lock exclusively; reads share it.
type Engine struct {
	mu sync.RWMutex

	config config.EngineConfig
	dm     diskmanager.DiskManager
	log    zerolog.Logger

	dataDir string
	sstDir  string
	walDir  string

	mem         *memtable.Set
	wal         *wal.WAL
	tables      []*Table // newest last
	nextTableID sstable.TableID

	flusher *flushManager // nil when flushing synchronously
	fatal   error
	opened  bool
	closed  bool
}

// NewEngine creates an engine with the given configuration. Call OpenDB
// before use.
func NewEngine(cfg *config.Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	c := *cfg
	c.FillDefaults()

	e := &Engine{
		config: c.Engine,
		dm:     diskmanager.NewDiskManager(),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OpenDB opens or creates the database under dataDir, recovering published
// tables and replaying the write-ahead log.
func (e *Engine) OpenDB(dataDir string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.opened {
		return fmt.Errorf("engine: %s already open", e.dataDir)
	}
	if err := e.config.Validate(); err != nil {
		return err
	}

	e.dataDir = dataDir
	e.sstDir = filepath.Join(dataDir, SSTDir)
	e.walDir = filepath.Join(dataDir, WALDir)

	for _, dir := range []string{e.sstDir, e.walDir} {
		if err := e.dm.MkdirAll(dir); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	if err := e.loadTables(); err != nil {
		_ = e.closeReaders()
		return err
	}
	if err := e.replayWAL(); err != nil {
		_ = e.closeReaders()
		return err
	}

	if e.config.FlushQueueDepth > 0 {
		e.flusher = newFlushManager(e, e.config.FlushQueueDepth)
		e.flusher.start()
	}
	e.opened = true

	e.log.Info().
		Str("dir", dataDir).
		Int("tables", len(e.tables)).
		Uint64("next_table", e.nextTableID).
		Bool("background_flush", e.flusher != nil).
		Msg("engine opened")
	return nil
}

// writable reports why the engine cannot accept a write, reopening the log
// if an earlier roll failed. Must be called with mu held exclusively.
func (e *Engine) writable() error {
	switch {
	case !e.opened:
		return ErrNotOpen
	case e.closed:
		return ErrClosed
	case e.fatal != nil:
		return e.fatal
	case e.wal == nil:
		return e.openWAL()
	}
	return nil
}

// Put writes key with value. Overwrites any earlier value.
func (e *Engine) Put(key, value []byte) error {
	return e.write(record.Put(key, value))
}

// Delete writes a tombstone for key.
func (e *Engine) Delete(key []byte) error {
	return e.write(record.Delete(key))
}

func (e *Engine) write(entry record.Entry) error {
	e.mu.Lock()

	if err := e.writable(); err != nil {
		e.mu.Unlock()
		return err
	}

	var (
		frozen *memtable.Memtable
		err    error
	)
	if entry.IsTombstone() {
		if err = e.wal.AppendDelete(entry.Key); err == nil {
			frozen, err = e.mem.Delete(entry.Key)
		}
	} else {
		if err = e.wal.AppendPut(entry.Key, entry.Value); err == nil {
			frozen, err = e.mem.Put(entry.Key, entry.Value)
		}
	}
	if err != nil || frozen == nil {
		e.mu.Unlock()
		return err
	}

	if err := e.rollWAL(); err != nil {
		e.mu.Unlock()
		return err
	}

	if e.flusher == nil {
		err = e.flushPendingLocked()
		e.mu.Unlock()
		return err
	}

	e.mu.Unlock()
	e.flusher.schedule()
	return nil
}

// Get returns the value for key. The memtables are consulted first, then
// tables newest to oldest; the first entry found decides, and a tombstone
// reads as absent.
func (e *Engine) Get(key []byte) ([]byte, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.opened {
		return nil, false, ErrNotOpen
	}
	if e.closed {
		return nil, false, ErrClosed
	}

	if entry, ok := e.mem.Get(key); ok {
		if entry.IsTombstone() {
			return nil, false, nil
		}
		return append([]byte{}, entry.Value...), true, nil
	}

	for i := len(e.tables) - 1; i >= 0; i-- {
		t := e.tables[i]
		entry, found, err := t.Reader.Lookup(key)
		if err != nil {
			return nil, false, fmt.Errorf("table %06d: %w", t.ID, err)
		}
		if found {
			if entry.IsTombstone() {
				return nil, false, nil
			}
			return entry.Value, true, nil
		}
	}

	return nil, false, nil
}

// Flush rotates the active memtable and publishes every pending memtable,
// including ones left by earlier failed flushes. It returns once they are
// all durable as tables.
func (e *Engine) Flush() error {
	if e.flusher != nil {
		e.flusher.mu.Lock()
		defer e.flusher.mu.Unlock()
	}

	e.mu.Lock()
	if err := e.writable(); err != nil {
		e.mu.Unlock()
		return err
	}
	if e.mem.Rotate() != nil {
		if err := e.rollWAL(); err != nil {
			e.mu.Unlock()
			return err
		}
	}

	if e.flusher == nil {
		defer e.mu.Unlock()
		return e.flushPendingLocked()
	}

	e.mu.Unlock()
	return e.flusher.drainLocked()
}

// Tables returns a snapshot of the published tables, oldest first.
func (e *Engine) Tables() []Table {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Table, 0, len(e.tables))
	for _, t := range e.tables {
		out = append(out, *t)
	}
	return out
}

// Close stops the background flusher, flushes what remains in memory and
// releases every file. Later calls return ErrClosed.
func (e *Engine) Close() error {
	e.mu.Lock()
	if !e.opened {
		e.mu.Unlock()
		return ErrNotOpen
	}
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.closed = true
	e.mu.Unlock()

	if e.flusher != nil {
		e.flusher.stop()
		// A Flush that passed its closed check may still be draining.
		e.flusher.mu.Lock()
		defer e.flusher.mu.Unlock()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	if e.fatal == nil {
		e.mem.Rotate()
		if e.wal != nil {
			errs = append(errs, e.wal.Close())
			e.wal = nil
		}
		if err := e.flushPendingLocked(); err != nil {
			errs = append(errs, fmt.Errorf("final flush: %w", err))
		}
	} else if e.wal != nil {
		errs = append(errs, e.wal.Close())
		e.wal = nil
	}

	errs = append(errs, e.closeReaders())

	err := errors.Join(errs...)
	if err != nil {
		e.log.Error().Err(err).Msg("engine closed with errors")
	} else {
		e.log.Info().Str("dir", e.dataDir).Msg("engine closed")
	}
	return err
}

func (e *Engine) closeReaders() error {
	var errs []error
	for _, t := range e.tables {
		if err := t.Reader.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close table %06d: %w", t.ID, err))
		}
	}
	return errors.Join(errs...)
}
