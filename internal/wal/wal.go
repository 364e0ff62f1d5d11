// Package wal implements Write-Ahead Logging for durability
package wal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sync"

	"github.com/MikhailWahib/zynk/internal/diskmanager"
	"github.com/MikhailWahib/zynk/internal/record"
)

const (
	crcSize    = 4
	lengthSize = 4
	// headerSize covers body length, body CRC and the CRC of those two fields.
	headerSize = lengthSize + 2*crcSize
)

var (
	// ErrCorruption is returned by Replay when a record header fails its
	// checksum, or a record other than the last one fails its body checksum.
	ErrCorruption = errors.New("wal: corrupt record")
	// ErrClosed is returned when appending to a closed log.
	ErrClosed = errors.New("wal: closed")
)

// WAL manages one write-ahead log file. Each record is
// [body len u32 LE][CRC32 of body u32 LE][CRC32 of the previous 8 bytes u32 LE][body],
// where body is the record entry encoding.
type WAL struct {
	mu sync.Mutex

	path        string
	file        diskmanager.FileHandle
	writeOffset int64
	syncWrites  bool
	closed      bool
}

// NewWAL opens or creates the log at path. When syncWrites is set every
// append is fsynced before returning.
func NewWAL(dm diskmanager.DiskManager, path string, syncWrites bool) (*WAL, error) {
	file, err := dm.Open(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}

	// Get current file size to set initial write offset
	fileInfo, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}

	return &WAL{
		path:        path,
		file:        file,
		writeOffset: fileInfo.Size(),
		syncWrites:  syncWrites,
	}, nil
}

// Path returns the log file path.
func (w *WAL) Path() string {
	return w.path
}

// Size returns the number of bytes written so far.
func (w *WAL) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeOffset
}

// AppendPut appends a put operation to the WAL
func (w *WAL) AppendPut(key, value []byte) error {
	return w.writeEntry(record.Put(key, value))
}

// AppendDelete appends a delete operation to the WAL
func (w *WAL) AppendDelete(key []byte) error {
	return w.writeEntry(record.Delete(key))
}

// writeEntry frames an entry with its checksum and appends it.
func (w *WAL) writeEntry(e record.Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	buf := make([]byte, headerSize, headerSize+record.EncodedSize(e))
	buf = record.AppendEntry(buf, e)
	body := buf[headerSize:]
	binary.LittleEndian.PutUint32(buf, uint32(len(body)))
	binary.LittleEndian.PutUint32(buf[lengthSize:], crc32.ChecksumIEEE(body))
	binary.LittleEndian.PutUint32(buf[lengthSize+crcSize:], crc32.ChecksumIEEE(buf[:lengthSize+crcSize]))

	n, err := w.file.WriteAt(buf, w.writeOffset)
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", w.path, err)
	}
	w.writeOffset += int64(n)

	if w.syncWrites {
		return w.sync()
	}
	return nil
}

// Replay reads every intact record from the beginning. A torn final record,
// left by a crash mid-append, is dropped and the file is truncated so later
// appends follow the last intact record. Damage anywhere else returns
// ErrCorruption and leaves the file untouched.
func (w *WAL) Replay() ([]record.Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	data := make([]byte, w.writeOffset)
	if len(data) > 0 {
		n, err := w.file.ReadAt(data, 0)
		if n != len(data) {
			if err == nil || errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("failed to read %s: %w", w.path, err)
		}
	}

	var (
		offset  int
		entries []record.Entry
	)

	for offset < len(data) {
		rest := data[offset:]
		n, err := frameLen(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: %s at offset %d: %v", ErrCorruption, w.path, offset, err)
		}
		if n == 0 {
			break // torn tail
		}

		body := rest[headerSize:n]
		if crc32.ChecksumIEEE(body) != binary.LittleEndian.Uint32(rest[lengthSize:]) {
			if n == len(rest) {
				break
			}
			return nil, fmt.Errorf("%w: %s at offset %d: body checksum mismatch", ErrCorruption, w.path, offset)
		}

		e, used, err := record.DecodeEntry(body)
		if err == nil && used != len(body) {
			err = fmt.Errorf("entry uses %d of %d bytes", used, len(body))
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s at offset %d: %v", ErrCorruption, w.path, offset, err)
		}
		entries = append(entries, e)
		offset += n
	}

	if int64(offset) < w.writeOffset {
		if err := w.file.Truncate(int64(offset)); err != nil {
			return nil, fmt.Errorf("failed to truncate torn tail of %s: %w", w.path, err)
		}
		w.writeOffset = int64(offset)
	}

	return entries, nil
}

// frameLen returns the framed length of the record at the start of buf, or 0
// when buf ends in a torn record: a partial header, an all-zero tail, or a
// valid header whose body runs past the end. A header failing its checksum
// with more data behind it is an error.
func frameLen(buf []byte) (int, error) {
	if len(buf) < headerSize {
		return 0, nil
	}
	if crc32.ChecksumIEEE(buf[:lengthSize+crcSize]) != binary.LittleEndian.Uint32(buf[lengthSize+crcSize:]) {
		if allZero(buf) {
			return 0, nil
		}
		return 0, errors.New("header checksum mismatch")
	}

	total := uint64(headerSize) + uint64(binary.LittleEndian.Uint32(buf))
	if total > uint64(len(buf)) {
		return 0, nil
	}
	return int(total), nil
}

func allZero(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}

// Sync ensures all data is persisted to disk
func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sync()
}

func (w *WAL) sync() error {
	return w.file.Sync()
}

// Close closes the WAL file
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.sync(); err != nil {
		_ = w.file.Close()
		return err
	}
	return w.file.Close()
}
