// Package memtable implements an in-memory table structure for the database,
// providing fast access to recently written data before it is persisted to disk.
package memtable

import (
	"bytes"
	"errors"
	"sync/atomic"

	"github.com/zhangyunhao116/skipmap"

	"github.com/MikhailWahib/zynk/internal/record"
)

// ErrFrozen is returned when mutating a memtable that was rotated out.
var ErrFrozen = errors.New("memtable: frozen")

type orderedMap = skipmap.FuncMap[[]byte, record.Entry]

// Memtable is an ordered map from key to the latest entry for that key.
// Deletes are stored as tombstone entries and count toward the size.
type Memtable struct {
	id     uint64
	data   *orderedMap
	size   atomic.Int64
	frozen atomic.Bool
}

// New creates an empty, active memtable. The id names the write-ahead log
// segment holding its writes.
func New(id uint64) *Memtable {
	return &Memtable{
		id: id,
		data: skipmap.NewFunc[[]byte, record.Entry](func(a, b []byte) bool {
			return bytes.Compare(a, b) < 0
		}),
	}
}

// ID returns the memtable's id.
func (m *Memtable) ID() uint64 {
	return m.id
}

// Put inserts or overwrites key with value.
func (m *Memtable) Put(key, value []byte) error {
	return m.apply(record.Entry{
		Type:  record.PutEntry,
		Key:   append([]byte(nil), key...),
		Value: append([]byte{}, value...),
	})
}

// Delete inserts or overwrites key with a tombstone.
func (m *Memtable) Delete(key []byte) error {
	return m.apply(record.Delete(append([]byte(nil), key...)))
}

func (m *Memtable) apply(e record.Entry) error {
	if m.frozen.Load() {
		return ErrFrozen
	}
	m.data.Store(e.Key, e)
	m.size.Add(int64(record.EncodedSize(e)))
	return nil
}

// Get returns the entry for key, tombstones included.
func (m *Memtable) Get(key []byte) (record.Entry, bool) {
	return m.data.Load(key)
}

// Size returns the accumulated encoded size of every mutation applied.
// Overwrites are not subtracted.
func (m *Memtable) Size() int {
	return int(m.size.Load())
}

// Len returns the number of distinct keys.
func (m *Memtable) Len() int {
	return m.data.Len()
}

// Entries returns all entries in ascending key order.
func (m *Memtable) Entries() []record.Entry {
	entries := make([]record.Entry, 0, m.data.Len())
	m.data.Range(func(_ []byte, e record.Entry) bool {
		entries = append(entries, e)
		return true
	})
	return entries
}

// Freeze makes the memtable read-only.
func (m *Memtable) Freeze() {
	m.frozen.Store(true)
}

// Frozen reports whether the memtable stopped accepting writes.
func (m *Memtable) Frozen() bool {
	return m.frozen.Load()
}
