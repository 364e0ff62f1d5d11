package sstable

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/MikhailWahib/zynk/internal/record"
)

// Block accumulates encoded entries until it reaches its target size.
// The target is advisory: IsFull is checked between entries, so a single
// oversized entry yields one oversized block.
type Block struct {
	target  int
	payload []byte
	entries int
	lastKey []byte
	sealed  bool
}

// NewBlock returns an empty block with the given target payload size.
func NewBlock(target int) *Block {
	return &Block{
		target:  target,
		payload: make([]byte, 0, target),
	}
}

// Add appends e to the block.
func (b *Block) Add(e record.Entry) {
	if b.sealed {
		panic("sstable: add to encoded block")
	}
	b.payload = record.AppendEntry(b.payload, e)
	b.lastKey = e.Key
	b.entries++
}

// AddPut appends a put entry.
func (b *Block) AddPut(key, value []byte) {
	b.Add(record.Put(key, value))
}

// AddDelete appends a tombstone.
func (b *Block) AddDelete(key []byte) {
	b.Add(record.Delete(key))
}

// IsFull reports whether the payload reached the target and holds at least one entry.
func (b *Block) IsFull() bool {
	return len(b.payload) >= b.target && b.entries > 0
}

// Len returns the number of entries.
func (b *Block) Len() int {
	return b.entries
}

// Empty reports whether no entry was added.
func (b *Block) Empty() bool {
	return b.entries == 0
}

// Size returns the current payload size in bytes, excluding the checksum.
func (b *Block) Size() int {
	return len(b.payload)
}

// LastKey returns the last key appended, which becomes the block's separator.
func (b *Block) LastKey() []byte {
	return b.lastKey
}

// Encode seals the block and returns payload followed by its CRC32 (LE).
func (b *Block) Encode() []byte {
	b.sealed = true
	out := binary.LittleEndian.AppendUint32(b.payload, crc32.ChecksumIEEE(b.payload))
	b.payload = nil
	return out
}

// DecodeBlock verifies the trailing checksum and decodes the entries in order.
// Returned keys and values alias buf.
func DecodeBlock(buf []byte) ([]record.Entry, error) {
	if len(buf) < crcSize {
		return nil, fmt.Errorf("%w: block of %d bytes", ErrShortRead, len(buf))
	}

	payload := buf[:len(buf)-crcSize]
	stored := binary.LittleEndian.Uint32(buf[len(buf)-crcSize:])
	if crc32.ChecksumIEEE(payload) != stored {
		return nil, fmt.Errorf("%w: block", ErrCorruption)
	}

	var entries []record.Entry
	for len(payload) > 0 {
		e, n, err := record.DecodeEntry(payload)
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("%w: block entry %d", ErrShortRead, len(entries))
			}
			return nil, fmt.Errorf("%w: block entry %d: %v", ErrFormat, len(entries), err)
		}
		entries = append(entries, e)
		payload = payload[n:]
	}

	return entries, nil
}
