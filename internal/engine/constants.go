package engine

const (
	// SSTDir is the directory under the data dir holding published tables.
	SSTDir = "sst"
	// WALDir is the directory under the data dir holding log segments.
	WALDir = "wal"

	firstTableID uint64 = 1
	firstLogID   uint64 = 1
)
