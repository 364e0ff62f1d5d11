package sstable

import (
	"bytes"
	"sort"

	"github.com/MikhailWahib/zynk/internal/record"
)

// Iterator walks a table's entries in ascending key order, decoding one block
// at a time. Tombstones are yielded and flagged so callers can apply shadowing.
// An iterator is not safe for concurrent use; create one per goroutine.
type Iterator struct {
	r *Reader

	next    int // index of the next block to load
	entries []record.Entry
	pos     int // position of the next entry within entries
	cur     record.Entry
	valid   bool
	err     error
}

// NewIterator returns an iterator positioned before the first entry.
func (r *Reader) NewIterator() *Iterator {
	it := &Iterator{r: r}
	it.SeekToFirst()
	return it
}

// SeekToFirst repositions the iterator before the first entry.
func (it *Iterator) SeekToFirst() {
	it.reset(0)
}

// Seek repositions the iterator so that the next call to Next yields the first
// entry with key >= start.
func (it *Iterator) Seek(start []byte) {
	i := it.r.index.search(start)
	it.reset(i)
	if i == it.r.index.Len() {
		return
	}

	if !it.loadBlock() {
		return
	}
	it.pos = sort.Search(len(it.entries), func(j int) bool {
		return bytes.Compare(it.entries[j].Key, start) >= 0
	})
}

func (it *Iterator) reset(block int) {
	it.next = block
	it.entries = nil
	it.pos = 0
	it.cur = record.Entry{}
	it.valid = false
	it.err = nil
}

func (it *Iterator) loadBlock() bool {
	entries, err := it.r.readBlock(it.r.index.entries[it.next].Handle)
	if err != nil {
		it.err = err
		return false
	}
	it.entries = entries
	it.pos = 0
	it.next++
	return true
}

// Next advances to the next entry and reports whether one exists.
func (it *Iterator) Next() bool {
	it.valid = false
	if it.err != nil {
		return false
	}

	for it.pos >= len(it.entries) {
		if it.next >= it.r.index.Len() {
			return false
		}
		if !it.loadBlock() {
			return false
		}
	}

	it.cur = it.entries[it.pos]
	it.pos++
	it.valid = true
	return true
}

// Valid reports whether the iterator is positioned on an entry.
func (it *Iterator) Valid() bool {
	return it.valid
}

// Key returns the current entry's key
func (it *Iterator) Key() []byte {
	if !it.valid {
		return nil
	}
	return it.cur.Key
}

// Value returns the current entry's value; nil for tombstones.
func (it *Iterator) Value() []byte {
	if !it.valid {
		return nil
	}
	return it.cur.Value
}

// Tombstone reports whether the current entry is a deletion marker.
func (it *Iterator) Tombstone() bool {
	return it.valid && it.cur.IsTombstone()
}

// Entry returns the current entry.
func (it *Iterator) Entry() record.Entry {
	return it.cur
}

// Err returns the first error met while loading blocks.
func (it *Iterator) Err() error {
	return it.err
}
