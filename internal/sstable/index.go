package sstable

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"sort"
)

// Index maps each block's separator (its largest key) to the block location.
// Separators are strictly increasing.
type Index struct {
	entries []IndexEntry
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Add appends a separator and its block handle. The builder guarantees separators
// arrive in increasing order. sep is copied.
func (ix *Index) Add(sep []byte, handle BlockHandle) {
	ix.entries = append(ix.entries, IndexEntry{
		Separator: append([]byte(nil), sep...),
		Handle:    handle,
	})
}

// Len returns the number of blocks referenced by the index.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Entries returns the index entries in separator order.
func (ix *Index) Entries() []IndexEntry {
	return ix.entries
}

// search returns the position of the first separator >= key, or Len() when key
// is past every separator.
func (ix *Index) search(key []byte) int {
	return sort.Search(len(ix.entries), func(i int) bool {
		return bytes.Compare(ix.entries[i].Separator, key) >= 0
	})
}

// FindBlock returns the only block that can contain key: the first block whose
// separator is >= key. Keys past the last separator fall back to the last block.
// An empty index has no candidate.
func (ix *Index) FindBlock(key []byte) (BlockHandle, bool) {
	if len(ix.entries) == 0 {
		return BlockHandle{}, false
	}

	i := ix.search(key)
	if i == len(ix.entries) {
		i = len(ix.entries) - 1
	}

	return ix.entries[i].Handle, true
}

// Encode serializes the index:
// count(u32) | { sep_len(u32) | sep | offset(u64) | length(u32) }* | crc32(u32), all LE.
func (ix *Index) Encode() []byte {
	size := 4 + crcSize
	for _, e := range ix.entries {
		size += 4 + len(e.Separator) + 8 + 4
	}

	out := make([]byte, 0, size)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(ix.entries)))
	for _, e := range ix.entries {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(e.Separator)))
		out = append(out, e.Separator...)
		out = binary.LittleEndian.AppendUint64(out, e.Handle.Offset)
		out = binary.LittleEndian.AppendUint32(out, e.Handle.Length)
	}

	return binary.LittleEndian.AppendUint32(out, crc32.ChecksumIEEE(out))
}

// DecodeIndex verifies the checksum and parses an encoded index.
func DecodeIndex(buf []byte) (*Index, error) {
	if len(buf) < 4+crcSize {
		return nil, fmt.Errorf("%w: index of %d bytes", ErrShortRead, len(buf))
	}

	payload := buf[:len(buf)-crcSize]
	stored := binary.LittleEndian.Uint32(buf[len(buf)-crcSize:])
	if crc32.ChecksumIEEE(payload) != stored {
		return nil, fmt.Errorf("%w: index", ErrCorruption)
	}

	count := binary.LittleEndian.Uint32(payload)
	p := payload[4:]

	// Each entry needs at least 16 bytes, so a count beyond that is malformed.
	if uint64(count)*16 > uint64(len(p)) {
		return nil, fmt.Errorf("%w: index count %d", ErrShortRead, count)
	}

	ix := &Index{entries: make([]IndexEntry, 0, count)}
	for i := uint32(0); i < count; i++ {
		if len(p) < 4 {
			return nil, fmt.Errorf("%w: index entry %d", ErrShortRead, i)
		}
		sepLen := uint64(binary.LittleEndian.Uint32(p))
		p = p[4:]
		if uint64(len(p)) < sepLen+12 {
			return nil, fmt.Errorf("%w: index entry %d", ErrShortRead, i)
		}

		sep := p[:sepLen]
		p = p[sepLen:]
		handle := BlockHandle{
			Offset: binary.LittleEndian.Uint64(p),
			Length: binary.LittleEndian.Uint32(p[8:]),
		}
		p = p[12:]

		if n := len(ix.entries); n > 0 && bytes.Compare(ix.entries[n-1].Separator, sep) >= 0 {
			return nil, fmt.Errorf("%w: index separators not increasing at %d", ErrFormat, i)
		}
		ix.entries = append(ix.entries, IndexEntry{Separator: sep, Handle: handle})
	}

	if len(p) != 0 {
		return nil, fmt.Errorf("%w: %d trailing index bytes", ErrFormat, len(p))
	}

	return ix, nil
}
