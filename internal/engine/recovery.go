package engine

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/MikhailWahib/zynk/internal/memtable"
	"github.com/MikhailWahib/zynk/internal/sstable"
	"github.com/MikhailWahib/zynk/internal/wal"
)

// loadTables opens every published table in id order and removes temp files
// left by a crash before rename. Table ids resume after the largest seen.
func (e *Engine) loadTables() error {
	names, err := e.dm.List(e.sstDir, "")
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", e.sstDir, err)
	}

	var (
		ids   []sstable.TableID
		maxID sstable.TableID
	)
	for _, name := range names {
		if tmp, ok := strings.CutSuffix(name, sstable.TempExt); ok {
			if id, ok := sstable.ParseFileName(tmp); ok {
				maxID = max(maxID, id)
			}
			path := filepath.Join(e.sstDir, name)
			if err := e.dm.Delete(path); err != nil {
				return fmt.Errorf("failed to remove orphan %s: %w", path, err)
			}
			e.log.Warn().Str("path", path).Msg("removed unpublished table")
			continue
		}

		id, ok := sstable.ParseFileName(name)
		if !ok {
			continue
		}
		ids = append(ids, id)
		maxID = max(maxID, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		path := filepath.Join(e.sstDir, sstable.FileName(id))
		r, err := sstable.Open(e.dm, path)
		if err != nil {
			return fmt.Errorf("failed to load table %06d: %w", id, err)
		}
		e.tables = append(e.tables, &Table{ID: id, Path: path, Reader: r})
		e.log.Debug().Uint64("table", id).Int64("size", r.Size()).Msg("table loaded")
	}

	e.nextTableID = max(maxID+1, firstTableID)
	return nil
}

// replayWAL rebuilds the active memtable from the log segments that were not
// yet covered by a published table. Those segments are kept until the active
// memtable is flushed; empty ones are removed right away.
func (e *Engine) replayWAL() error {
	segments, err := wal.ListSegments(e.dm, e.walDir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", e.walDir, err)
	}

	activeID := firstLogID
	if n := len(segments); n > 0 {
		activeID = segments[n-1] + 1
	}
	e.mem = memtable.NewSet(e.config.MemtableMaxBytes, activeID)
	active := e.mem.Active()

	replayed := 0
	for _, seg := range segments {
		path := filepath.Join(e.walDir, wal.SegmentName(seg))
		w, err := wal.NewWAL(e.dm, path, false)
		if err != nil {
			return fmt.Errorf("failed to open wal segment %d: %w", seg, err)
		}
		entries, err := w.Replay()
		_ = w.Close()
		if err != nil {
			return fmt.Errorf("failed to replay wal segment %d: %w", seg, err)
		}

		for _, entry := range entries {
			if entry.IsTombstone() {
				err = active.Delete(entry.Key)
			} else {
				err = active.Put(entry.Key, entry.Value)
			}
			if err != nil {
				return err
			}
		}
		replayed += len(entries)
	}

	if replayed == 0 && len(segments) > 0 {
		if err := wal.RemoveSegmentsThrough(e.dm, e.walDir, segments[len(segments)-1]); err != nil {
			return err
		}
	}
	if replayed > 0 {
		e.log.Info().
			Int("segments", len(segments)).
			Int("entries", replayed).
			Int("keys", active.Len()).
			Msg("wal replayed")
	}

	return e.openWAL()
}

// openWAL opens the log segment for the active memtable.
func (e *Engine) openWAL() error {
	id := e.mem.Active().ID()
	w, err := wal.NewWAL(e.dm, filepath.Join(e.walDir, wal.SegmentName(id)), e.config.WALSync)
	if err != nil {
		return fmt.Errorf("failed to open wal segment %d: %w", id, err)
	}
	e.wal = w
	return nil
}

// rollWAL closes the current segment after a rotation and opens the one for
// the new active memtable. If the new segment cannot be opened, the next
// write retries before appending anything.
func (e *Engine) rollWAL() error {
	if e.wal != nil {
		if err := e.wal.Close(); err != nil {
			e.log.Error().Err(err).Str("path", e.wal.Path()).Msg("failed to close wal segment")
		}
		e.wal = nil
	}
	if err := e.openWAL(); err != nil {
		return err
	}
	e.log.Debug().Str("path", e.wal.Path()).Msg("wal rolled")
	return nil
}
