package sstable

import (
	"encoding/binary"
	"fmt"
)

// Footer is the fixed-size trailer locating the index.
type Footer struct {
	Version     uint32
	IndexLength uint32
	IndexOffset uint64
}

// Encode serializes the footer with the magic constant.
func (f Footer) Encode() []byte {
	out := make([]byte, 0, FooterSize)
	out = binary.LittleEndian.AppendUint64(out, Magic)
	out = binary.LittleEndian.AppendUint32(out, f.Version)
	out = binary.LittleEndian.AppendUint32(out, f.IndexLength)
	out = binary.LittleEndian.AppendUint64(out, f.IndexOffset)
	return out
}

// DecodeFooter parses and validates a footer.
func DecodeFooter(buf []byte) (Footer, error) {
	if len(buf) != FooterSize {
		return Footer{}, fmt.Errorf("%w: footer of %d bytes", ErrShortRead, len(buf))
	}

	if magic := binary.LittleEndian.Uint64(buf); magic != Magic {
		return Footer{}, fmt.Errorf("%w: %#x", ErrBadMagic, magic)
	}

	f := Footer{
		Version:     binary.LittleEndian.Uint32(buf[8:]),
		IndexLength: binary.LittleEndian.Uint32(buf[12:]),
		IndexOffset: binary.LittleEndian.Uint64(buf[16:]),
	}
	if f.Version != Version {
		return Footer{}, fmt.Errorf("%w: %d", ErrBadVersion, f.Version)
	}

	return f, nil
}
