package sstable

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/MikhailWahib/zynk/internal/diskmanager"
	"github.com/MikhailWahib/zynk/internal/record"
)

// Builder writes a sorted stream of entries as one sstable file:
// data blocks, then the index, then the footer.
type Builder struct {
	dm         diskmanager.DiskManager
	path       string
	file       diskmanager.FileHandle
	blockBytes int

	block   *Block
	index   *Index
	offset  int64
	lastKey []byte
	meta    TableMeta
	done    bool
}

// NewBuilder creates (or truncates) the file at path and returns a builder
// targeting blocks of blockBytes.
func NewBuilder(dm diskmanager.DiskManager, path string, blockBytes int) (*Builder, error) {
	file, err := dm.Open(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create sstable %s: %w", path, err)
	}

	return &Builder{
		dm:         dm,
		path:       path,
		file:       file,
		blockBytes: blockBytes,
		block:      NewBlock(blockBytes),
		index:      NewIndex(),
	}, nil
}

// Add appends e. Keys must be strictly increasing.
func (b *Builder) Add(e record.Entry) error {
	if b.done {
		return ErrFinished
	}
	if b.meta.Entries > 0 && bytes.Compare(e.Key, b.lastKey) <= 0 {
		return fmt.Errorf("%w: %q after %q", ErrOutOfOrder, e.Key, b.lastKey)
	}

	if b.meta.Entries == 0 {
		b.meta.Smallest = append([]byte(nil), e.Key...)
	}
	b.lastKey = append(b.lastKey[:0], e.Key...)
	b.meta.Entries++

	b.block.Add(e)
	if b.block.IsFull() {
		return b.flushBlock()
	}
	return nil
}

// flushBlock encodes the current block, writes it and records it in the index.
func (b *Builder) flushBlock() error {
	if b.block.Empty() {
		return nil
	}

	sep := append([]byte(nil), b.block.LastKey()...)
	data := b.block.Encode()
	if uint64(len(data)) > math.MaxUint32 {
		return fmt.Errorf("%w: block of %d bytes exceeds u32 length", ErrFormat, len(data))
	}

	if err := b.write(data); err != nil {
		return fmt.Errorf("failed to write block: %w", err)
	}

	b.index.Add(sep, BlockHandle{
		Offset: uint64(b.offset - int64(len(data))),
		Length: uint32(len(data)),
	})
	b.meta.Blocks++
	b.block = NewBlock(b.blockBytes)
	return nil
}

func (b *Builder) write(data []byte) error {
	n, err := b.file.WriteAt(data, b.offset)
	b.offset += int64(n)
	return err
}

// Finish writes the trailing block, the index and the footer, syncs and closes
// the file. On error the partially written file is left for the caller to remove.
func (b *Builder) Finish() (TableMeta, error) {
	if b.done {
		return TableMeta{}, ErrFinished
	}
	b.done = true

	if err := b.flushBlock(); err != nil {
		_ = b.file.Close()
		return TableMeta{}, err
	}

	indexOffset := b.offset
	indexData := b.index.Encode()
	if uint64(len(indexData)) > math.MaxUint32 {
		_ = b.file.Close()
		return TableMeta{}, fmt.Errorf("%w: index of %d bytes exceeds u32 length", ErrFormat, len(indexData))
	}
	if err := b.write(indexData); err != nil {
		_ = b.file.Close()
		return TableMeta{}, fmt.Errorf("failed to write index: %w", err)
	}

	footer := Footer{
		Version:     Version,
		IndexLength: uint32(len(indexData)),
		IndexOffset: uint64(indexOffset),
	}
	if err := b.write(footer.Encode()); err != nil {
		_ = b.file.Close()
		return TableMeta{}, fmt.Errorf("failed to write footer: %w", err)
	}

	// sync the file to make sure everything is written to disk
	if err := b.file.Sync(); err != nil {
		_ = b.file.Close()
		return TableMeta{}, fmt.Errorf("failed to sync file: %w", err)
	}
	if err := b.file.Close(); err != nil {
		return TableMeta{}, fmt.Errorf("failed to close file: %w", err)
	}

	if b.meta.Entries > 0 {
		b.meta.Largest = append([]byte(nil), b.lastKey...)
	}
	b.meta.Size = b.offset
	return b.meta, nil
}

// Abort closes and removes the partially written file.
func (b *Builder) Abort() error {
	if !b.done {
		b.done = true
		_ = b.file.Close()
	}
	return b.dm.Delete(b.path)
}

// Build writes entries, which must be sorted by key, to a new table at path.
// The file is removed if building fails.
func Build(dm diskmanager.DiskManager, path string, blockBytes int, entries []record.Entry) (TableMeta, error) {
	b, err := NewBuilder(dm, path, blockBytes)
	if err != nil {
		return TableMeta{}, err
	}

	for _, e := range entries {
		if err := b.Add(e); err != nil {
			_ = b.Abort()
			return TableMeta{}, err
		}
	}

	meta, err := b.Finish()
	if err != nil {
		_ = b.Abort()
		return TableMeta{}, err
	}
	return meta, nil
}
