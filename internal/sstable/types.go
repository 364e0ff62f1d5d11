package sstable

const (
	// Magic identifies a zynk sstable footer.
	Magic uint64 = 0xF3515A5453544142
	// Version is the only on-disk format version this package reads and writes.
	Version uint32 = 1

	crcSize     = 4
	MagicSize   = 8
	VersionSize = 4
	// FooterSize is the fixed size of the trailing footer:
	// magic(8) | version(4) | index length(4) | index offset(8).
	FooterSize = MagicSize + VersionSize + 4 + 8
)

// TableID identifies a published sstable. IDs are allocated by the engine and
// never reused.
type TableID = uint64

// BlockHandle is a byte range inside an sstable file.
type BlockHandle struct {
	Offset uint64
	Length uint32
}

// IndexEntry maps a block's last key to its location.
type IndexEntry struct {
	Separator []byte
	Handle    BlockHandle
}

// TableMeta summarizes a finished table.
type TableMeta struct {
	Entries  int
	Blocks   int
	Size     int64
	Smallest []byte
	Largest  []byte
}
