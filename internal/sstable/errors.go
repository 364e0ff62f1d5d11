package sstable

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruption is returned when a block or index checksum does not match.
	ErrCorruption = errors.New("sstable: checksum mismatch")
	// ErrFormat is returned for structurally invalid tables.
	ErrFormat = errors.New("sstable: invalid format")
	// ErrShortRead is returned when a section is truncated.
	ErrShortRead = fmt.Errorf("%w: short read", ErrFormat)
	// ErrBadMagic is returned when the footer magic does not match.
	ErrBadMagic = fmt.Errorf("%w: bad magic", ErrFormat)
	// ErrBadVersion is returned for an unsupported format version.
	ErrBadVersion = fmt.Errorf("%w: unsupported version", ErrFormat)
	// ErrOutOfOrder is returned when keys are not added in strictly increasing order.
	ErrOutOfOrder = errors.New("sstable: keys out of order")
	// ErrFinished is returned when adding to a builder after Finish or Abort.
	ErrFinished = errors.New("sstable: builder already finished")
	// ErrClosed is returned when reading from a closed reader.
	ErrClosed = errors.New("sstable: reader closed")
)
