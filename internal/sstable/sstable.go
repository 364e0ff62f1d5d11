// Package sstable implements the immutable on-disk sorted table format:
// checksummed data blocks, a separator index and a fixed-size footer.
//
//	┌──────────────────────────────────────────────────────────────┐
//	│ Block 0 .. Block n-1                                         │
//	│   { tag u8 | key_len u32 | value_len u32 | key | value }*    │
//	│   crc32 u32                                                  │
//	├──────────────────────────────────────────────────────────────┤
//	│ Index                                                        │
//	│   count u32 | { sep_len u32 | sep | offset u64 | len u32 }*  │
//	│   crc32 u32                                                  │
//	├──────────────────────────────────────────────────────────────┤
//	│ Footer (24 bytes)                                            │
//	│   magic u64 | version u32 | index_len u32 | index_off u64    │
//	└──────────────────────────────────────────────────────────────┘
//
// All integers are little-endian.
package sstable

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// FileExt is the extension of a published table.
	FileExt = ".sst"
	// TempExt is appended while a table is being written.
	TempExt = ".tmp"
)

// FileName returns the published file name for id, e.g. 000001.sst.
func FileName(id TableID) string {
	return fmt.Sprintf("%06d%s", id, FileExt)
}

// TempFileName returns the in-progress file name for id, e.g. 000001.sst.tmp.
func TempFileName(id TableID) string {
	return FileName(id) + TempExt
}

// ParseFileName extracts the table id from a published file name.
func ParseFileName(name string) (TableID, bool) {
	if !strings.HasSuffix(name, FileExt) {
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimSuffix(name, FileExt), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
