// Package crdt holds conflict-free replicated data types a replication layer
// can merge without coordination. Nothing in the engine depends on it.
package crdt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
)

// ErrTruncated is returned when decoding runs out of input.
var ErrTruncated = errors.New("crdt: truncated encoding")

// GSet is a grow-only set of byte strings kept sorted and unique. The zero
// value is an empty set.
type GSet struct {
	elems [][]byte
}

// NewGSet returns a set holding elems.
func NewGSet(elems ...[]byte) *GSet {
	s := &GSet{}
	for _, e := range elems {
		s.Insert(e)
	}
	return s
}

func (s *GSet) search(k []byte) (int, bool) {
	return slices.BinarySearchFunc(s.elems, k, bytes.Compare)
}

// Insert adds a copy of k.
func (s *GSet) Insert(k []byte) {
	i, found := s.search(k)
	if found {
		return
	}
	s.elems = slices.Insert(s.elems, i, append([]byte{}, k...))
}

// Contains reports whether k is in the set.
func (s *GSet) Contains(k []byte) bool {
	_, found := s.search(k)
	return found
}

// Len returns the number of elements.
func (s *GSet) Len() int {
	return len(s.elems)
}

// Elements returns a copy of the elements in ascending order.
func (s *GSet) Elements() [][]byte {
	out := make([][]byte, len(s.elems))
	for i, e := range s.elems {
		out[i] = append([]byte{}, e...)
	}
	return out
}

// Merge makes s the union of s and other. Merging is commutative,
// associative and idempotent.
func (s *GSet) Merge(other *GSet) {
	a, b := s.elems, other.elems
	out := make([][]byte, 0, len(a)+len(b))

	for len(a) > 0 && len(b) > 0 {
		switch c := bytes.Compare(a[0], b[0]); {
		case c < 0:
			out = append(out, a[0])
			a = a[1:]
		case c > 0:
			out = append(out, append([]byte{}, b[0]...))
			b = b[1:]
		default:
			out = append(out, a[0])
			a, b = a[1:], b[1:]
		}
	}
	out = append(out, a...)
	for _, e := range b {
		out = append(out, append([]byte{}, e...))
	}

	s.elems = out
}

// Equal reports whether both sets hold the same elements.
func (s *GSet) Equal(other *GSet) bool {
	return slices.EqualFunc(s.elems, other.elems, bytes.Equal)
}

// MarshalBinary encodes the set as count(u32 LE) followed by
// len(u32 LE) | bytes per element, ascending.
func (s *GSet) MarshalBinary() ([]byte, error) {
	size := 4
	for _, e := range s.elems {
		size += 4 + len(e)
	}

	out := make([]byte, 0, size)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(s.elems)))
	for _, e := range s.elems {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(e)))
		out = append(out, e...)
	}
	return out, nil
}

// UnmarshalBinary replaces the set with the decoded elements. Input from an
// older or foreign writer need not be sorted or unique; it is normalized.
func (s *GSet) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return fmt.Errorf("%w: missing count", ErrTruncated)
	}
	count := binary.LittleEndian.Uint32(data)
	data = data[4:]

	if uint64(count)*4 > uint64(len(data)) {
		return fmt.Errorf("%w: %d elements in %d bytes", ErrTruncated, count, len(data))
	}

	elems := make([][]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(data) < 4 {
			return fmt.Errorf("%w: element %d", ErrTruncated, i)
		}
		n := uint64(binary.LittleEndian.Uint32(data))
		data = data[4:]
		if n > uint64(len(data)) {
			return fmt.Errorf("%w: element %d", ErrTruncated, i)
		}
		elems = append(elems, append([]byte{}, data[:n]...))
		data = data[n:]
	}
	if len(data) != 0 {
		return fmt.Errorf("crdt: %d trailing bytes", len(data))
	}

	slices.SortFunc(elems, bytes.Compare)
	s.elems = slices.CompactFunc(elems, bytes.Equal)
	return nil
}
