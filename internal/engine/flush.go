package engine

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/MikhailWahib/zynk/internal/memtable"
	"github.com/MikhailWahib/zynk/internal/sstable"
	"github.com/MikhailWahib/zynk/internal/wal"
)

// writeTable builds m under a temporary name and renames it into place.
// Nothing is left behind on failure. It touches no engine state guarded by mu.
func (e *Engine) writeTable(m *memtable.Memtable, id sstable.TableID) (string, sstable.TableMeta, error) {
	tmp := filepath.Join(e.sstDir, sstable.TempFileName(id))
	path := filepath.Join(e.sstDir, sstable.FileName(id))

	meta, err := sstable.Build(e.dm, tmp, e.config.BlockBytes, m.Entries())
	if err != nil {
		return "", meta, fmt.Errorf("failed to build table %06d: %w", id, err)
	}

	if err := e.dm.Rename(tmp, path); err != nil {
		_ = e.dm.Delete(tmp)
		return "", meta, fmt.Errorf("failed to publish table %06d: %w", id, err)
	}
	// The table is visible once renamed; a failed directory sync is only logged.
	if err := e.dm.SyncDir(e.sstDir); err != nil {
		e.log.Warn().Err(err).Str("dir", e.sstDir).Msg("failed to sync table directory")
	}
	return path, meta, nil
}

// installTable opens a published table, appends it to the table list and
// retires the memtable and its log segments. Must be called with mu held
// exclusively.
func (e *Engine) installTable(m *memtable.Memtable, id sstable.TableID, path string, meta sstable.TableMeta) error {
	r, err := sstable.Open(e.dm, path)
	if err != nil {
		e.fatal = fmt.Errorf("%w: %s: %v", ErrInconsistent, path, err)
		e.log.Error().Err(err).Str("path", path).Msg("published table cannot be opened")
		return e.fatal
	}

	tables := make([]*Table, len(e.tables), len(e.tables)+1)
	copy(tables, e.tables)
	e.tables = append(tables, &Table{ID: id, Path: path, Reader: r})
	e.mem.Release(m)

	if err := wal.RemoveSegmentsThrough(e.dm, e.walDir, m.ID()); err != nil {
		e.log.Warn().Err(err).Uint64("memtable", m.ID()).Msg("failed to remove flushed wal segments")
	}

	e.log.Info().
		Uint64("table", id).
		Int("entries", meta.Entries).
		Int("blocks", meta.Blocks).
		Int64("size", meta.Size).
		Str("path", path).
		Msg("table published")
	return nil
}

// flushPendingLocked publishes every frozen memtable, oldest first, stopping
// at the first failure. Must be called with mu held exclusively.
func (e *Engine) flushPendingLocked() error {
	for m := e.mem.Oldest(); m != nil; m = e.mem.Oldest() {
		if e.fatal != nil {
			return e.fatal
		}

		id := e.nextTableID
		e.nextTableID++

		path, meta, err := e.writeTable(m, id)
		if err != nil {
			e.log.Error().Err(err).Uint64("table", id).Msg("flush failed")
			return err
		}
		if err := e.installTable(m, id, path, meta); err != nil {
			return err
		}
	}
	return nil
}

// flushManager runs flushes on a background goroutine. Rotation enqueues a
// token; the worker publishes the oldest frozen memtables while writers keep
// going, and writers block only when the queue is full.
//
// Lock order: flushManager.mu, then Engine.mu.
type flushManager struct {
	mu     sync.Mutex // serializes flush pipelines
	engine *Engine
	queue  chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
}

func newFlushManager(e *Engine, depth int) *flushManager {
	return &flushManager{
		engine: e,
		queue:  make(chan struct{}, depth),
		done:   make(chan struct{}),
	}
}

func (fm *flushManager) start() {
	fm.wg.Add(1)
	go fm.run()
}

func (fm *flushManager) run() {
	defer fm.wg.Done()
	for {
		select {
		case <-fm.queue:
			fm.mu.Lock()
			err := fm.drainLocked()
			fm.mu.Unlock()
			if err != nil {
				// The memtable stays pending; the next Flush or Close retries it.
				fm.engine.log.Error().Err(err).Msg("background flush failed")
			}
		case <-fm.done:
			return
		}
	}
}

// schedule queues a flush, blocking while the queue is full.
func (fm *flushManager) schedule() {
	select {
	case fm.queue <- struct{}{}:
	case <-fm.done:
	}
}

// drainLocked publishes every frozen memtable. Tables are built without the
// engine lock so reads and writes proceed meanwhile. Must be called with
// fm.mu held.
func (fm *flushManager) drainLocked() error {
	e := fm.engine
	for {
		e.mu.Lock()
		if e.fatal != nil {
			e.mu.Unlock()
			return e.fatal
		}
		m := e.mem.Oldest()
		if m == nil {
			e.mu.Unlock()
			return nil
		}
		id := e.nextTableID
		e.nextTableID++
		e.mu.Unlock()

		path, meta, err := e.writeTable(m, id)
		if err != nil {
			return err
		}

		e.mu.Lock()
		err = e.installTable(m, id, path, meta)
		e.mu.Unlock()
		if err != nil {
			return err
		}
	}
}

// stop shuts the worker down and waits for an in-flight flush to finish.
func (fm *flushManager) stop() {
	close(fm.done)
	fm.wg.Wait()
}
