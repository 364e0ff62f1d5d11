package sstable

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/MikhailWahib/zynk/internal/diskmanager"
	"github.com/MikhailWahib/zynk/internal/record"
)

// Reader answers point lookups against one published sstable. It is immutable
// after Open and safe for concurrent use.
type Reader struct {
	path   string
	file   diskmanager.FileHandle
	size   int64
	footer Footer
	index  *Index
	closed atomic.Bool
}

// Open reads the footer from the file tail, validates magic and version, and
// loads the checksummed index.
func Open(dm diskmanager.DiskManager, path string) (*Reader, error) {
	file, err := dm.Open(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open SST file: %w", err)
	}

	r, err := newReader(path, file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return r, nil
}

func newReader(path string, file diskmanager.FileHandle) (*Reader, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat SST file: %w", err)
	}

	size := stat.Size()
	if size < FooterSize {
		return nil, fmt.Errorf("%w: file of %d bytes has no footer", ErrShortRead, size)
	}

	buf := make([]byte, FooterSize)
	if err := readFull(file, buf, size-FooterSize); err != nil {
		return nil, fmt.Errorf("failed to read footer: %w", err)
	}
	footer, err := DecodeFooter(buf)
	if err != nil {
		return nil, err
	}

	dataEnd := uint64(size - FooterSize)
	if footer.IndexOffset > dataEnd || uint64(footer.IndexLength) > dataEnd-footer.IndexOffset {
		return nil, fmt.Errorf("%w: index [%d,+%d) beyond file of %d bytes",
			ErrShortRead, footer.IndexOffset, footer.IndexLength, size)
	}

	indexBuf := make([]byte, footer.IndexLength)
	if err := readFull(file, indexBuf, int64(footer.IndexOffset)); err != nil {
		return nil, fmt.Errorf("failed to read index: %w", err)
	}
	index, err := DecodeIndex(indexBuf)
	if err != nil {
		return nil, err
	}

	for i, e := range index.Entries() {
		if e.Handle.Offset > footer.IndexOffset || uint64(e.Handle.Length) > footer.IndexOffset-e.Handle.Offset {
			return nil, fmt.Errorf("%w: block %d overlaps index", ErrFormat, i)
		}
	}

	return &Reader{
		path:   path,
		file:   file,
		size:   size,
		footer: footer,
		index:  index,
	}, nil
}

// readFull reads exactly len(buf) bytes at off, mapping truncation to ErrShortRead.
func readFull(f diskmanager.FileHandle, buf []byte, off int64) error {
	n, err := f.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: read %d of %d bytes at %d", ErrShortRead, n, len(buf), off)
	}
	return err
}

// Path returns the file path of the table.
func (r *Reader) Path() string {
	return r.path
}

// Size returns the file size in bytes.
func (r *Reader) Size() int64 {
	return r.size
}

// Index returns the decoded block index.
func (r *Reader) Index() *Index {
	return r.index
}

// readBlock loads and decodes one block, verifying its checksum.
func (r *Reader) readBlock(h BlockHandle) ([]record.Entry, error) {
	if r.closed.Load() {
		return nil, ErrClosed
	}
	buf := make([]byte, h.Length)
	if err := readFull(r.file, buf, int64(h.Offset)); err != nil {
		return nil, fmt.Errorf("failed to read block at %d: %w", h.Offset, err)
	}
	entries, err := DecodeBlock(buf)
	if err != nil {
		return nil, fmt.Errorf("%s block at %d: %w", r.path, h.Offset, err)
	}
	return entries, nil
}

// Lookup returns the entry stored for key in this table, tombstones included.
// found is false only when the table holds no entry for key.
func (r *Reader) Lookup(key []byte) (record.Entry, bool, error) {
	h, ok := r.index.FindBlock(key)
	if !ok {
		return record.Entry{}, false, nil
	}

	entries, err := r.readBlock(h)
	if err != nil {
		return record.Entry{}, false, err
	}

	for _, e := range entries {
		cmp := bytes.Compare(e.Key, key)
		if cmp == 0 {
			return e, true, nil
		}
		if cmp > 0 {
			break
		}
	}
	return record.Entry{}, false, nil
}

// Get returns the value for key. A tombstone in this table reads as not found;
// layering across tables is the engine's job.
func (r *Reader) Get(key []byte) ([]byte, bool, error) {
	e, found, err := r.Lookup(key)
	if err != nil || !found || e.IsTombstone() {
		return nil, false, err
	}
	return e.Value, true, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return r.file.Close()
}
