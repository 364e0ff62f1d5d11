package record

import "errors"

// EntryType represents the type of entry stored in the database
type EntryType byte

const (
	// PutEntry indicates a key-value insertion operation
	PutEntry EntryType = iota
	// DeleteEntry indicates a key deletion operation (tombstone)
	DeleteEntry
)

// ErrUnknownEntryType is returned when decoding meets a tag other than Put or Delete.
var ErrUnknownEntryType = errors.New("record: unknown entry type")

func (t EntryType) String() string {
	switch t {
	case PutEntry:
		return "put"
	case DeleteEntry:
		return "delete"
	default:
		return "unknown"
	}
}

// Entry is a tagged value for a single key. A DeleteEntry carries no value.
type Entry struct {
	Type  EntryType
	Key   []byte
	Value []byte
}

// Put builds a PutEntry.
func Put(key, value []byte) Entry {
	return Entry{Type: PutEntry, Key: key, Value: value}
}

// Delete builds a tombstone.
func Delete(key []byte) Entry {
	return Entry{Type: DeleteEntry, Key: key}
}

// IsTombstone reports whether the entry marks a deletion.
func (e Entry) IsTombstone() bool {
	return e.Type == DeleteEntry
}
