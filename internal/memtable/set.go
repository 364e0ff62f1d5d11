package memtable

import "github.com/MikhailWahib/zynk/internal/record"

// Set holds exactly one active memtable plus the frozen memtables awaiting
// flush, oldest first. It owns the rotation threshold.
//
// A Set is not safe for concurrent mutation; the engine serializes access.
type Set struct {
	maxBytes int
	nextID   uint64
	active   *Memtable
	frozen   []*Memtable
}

// NewSet returns a set whose first active memtable has id firstID. A memtable
// is rotated once its size reaches maxBytes.
func NewSet(maxBytes int, firstID uint64) *Set {
	return &Set{
		maxBytes: maxBytes,
		nextID:   firstID + 1,
		active:   New(firstID),
	}
}

// Active returns the memtable currently accepting writes.
func (s *Set) Active() *Memtable {
	return s.active
}

// Put writes to the active memtable and returns the memtable it froze, if
// the write pushed it to the threshold.
func (s *Set) Put(key, value []byte) (*Memtable, error) {
	if err := s.active.Put(key, value); err != nil {
		return nil, err
	}
	return s.maybeRotate(), nil
}

// Delete writes a tombstone and rotates like Put.
func (s *Set) Delete(key []byte) (*Memtable, error) {
	if err := s.active.Delete(key); err != nil {
		return nil, err
	}
	return s.maybeRotate(), nil
}

func (s *Set) maybeRotate() *Memtable {
	if s.active.Size() < s.maxBytes {
		return nil
	}
	return s.Rotate()
}

// Rotate freezes the active memtable, queues it and installs a fresh one.
// An empty active memtable is left in place and nil is returned.
func (s *Set) Rotate() *Memtable {
	if s.active.Len() == 0 {
		return nil
	}

	old := s.active
	old.Freeze()
	s.frozen = append(s.frozen, old)

	s.active = New(s.nextID)
	s.nextID++
	return old
}

// Get returns the most recent entry for key: the active memtable first, then
// frozen memtables newest to oldest.
func (s *Set) Get(key []byte) (record.Entry, bool) {
	if e, ok := s.active.Get(key); ok {
		return e, true
	}
	for i := len(s.frozen) - 1; i >= 0; i-- {
		if e, ok := s.frozen[i].Get(key); ok {
			return e, true
		}
	}
	return record.Entry{}, false
}

// Pending returns the frozen memtables awaiting flush, oldest first.
func (s *Set) Pending() []*Memtable {
	return append([]*Memtable(nil), s.frozen...)
}

// Oldest returns the next memtable to flush, or nil.
func (s *Set) Oldest() *Memtable {
	if len(s.frozen) == 0 {
		return nil
	}
	return s.frozen[0]
}

// Release drops m from the frozen queue once its table is published.
func (s *Set) Release(m *Memtable) bool {
	for i, f := range s.frozen {
		if f == m {
			s.frozen = append(s.frozen[:i:i], s.frozen[i+1:]...)
			return true
		}
	}
	return false
}
