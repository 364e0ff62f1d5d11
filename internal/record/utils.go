package record

import (
	"encoding/binary"
	"io"
)

// EncodedSize returns the number of bytes AppendEntry writes for e.
func EncodedSize(e Entry) int {
	if e.Type == DeleteEntry {
		return PrefixSize + len(e.Key)
	}
	return PrefixSize + len(e.Key) + len(e.Value)
}

// AppendEntry appends the length-prefixed encoding of e to dst.
// Format: [1 byte EntryType][4 bytes KeyLen LE][4 bytes ValueLen LE][Key][Value]
// Tombstones are written with ValueLen 0 and no value bytes.
func AppendEntry(dst []byte, e Entry) []byte {
	value := e.Value
	if e.Type == DeleteEntry {
		value = nil
	}

	dst = append(dst, byte(e.Type))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(e.Key)))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(value)))
	dst = append(dst, e.Key...)
	dst = append(dst, value...)
	return dst
}

// SerializeEntry converts an Entry to a byte slice
func SerializeEntry(e Entry) []byte {
	return AppendEntry(make([]byte, 0, EncodedSize(e)), e)
}

// DecodeEntry parses an entry from a byte slice.
// Returns the parsed entry and the number of bytes consumed. Key and Value
// alias buf.
func DecodeEntry(buf []byte) (Entry, int, error) {
	if len(buf) < PrefixSize {
		return Entry{}, 0, io.ErrUnexpectedEOF
	}

	entryType := EntryType(buf[0])
	if entryType != PutEntry && entryType != DeleteEntry {
		return Entry{}, 0, ErrUnknownEntryType
	}

	keyLen := uint64(binary.LittleEndian.Uint32(buf[EntryTypeSize : EntryTypeSize+LengthSize]))
	valLen := uint64(binary.LittleEndian.Uint32(buf[EntryTypeSize+LengthSize : PrefixSize]))
	totalLen := uint64(PrefixSize) + keyLen + valLen

	if uint64(len(buf)) < totalLen {
		return Entry{}, 0, io.ErrUnexpectedEOF
	}

	e := Entry{
		Type: entryType,
		Key:  buf[PrefixSize : PrefixSize+keyLen],
	}
	if entryType == PutEntry {
		e.Value = buf[PrefixSize+keyLen : totalLen]
	}

	return e, int(totalLen), nil
}
