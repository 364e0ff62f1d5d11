package sstable

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/MikhailWahib/zynk/internal/diskmanager"
	"github.com/MikhailWahib/zynk/internal/diskmanager/mockdm"
	"github.com/MikhailWahib/zynk/internal/record"
)

func writeTable(t testing.TB, dm diskmanager.DiskManager, path string, blockBytes int, entries []record.Entry) TableMeta {
	t.Helper()
	meta, err := Build(dm, path, blockBytes, entries)
	if err != nil {
		t.Fatalf("Failed to build table: %v", err)
	}
	return meta
}

func TestSSTableWriteRead(t *testing.T) {
	dm := mockdm.NewMockDiskManager()
	sstPath := filepath.Join(t.TempDir(), "test.sst")

	testData := []struct {
		key   string
		value string
	}{
		{"apple", "red"},
		{"banana", "yellow"},
		{"cherry", "dark red"},
		{"date", "brown"},
	}

	var entries []record.Entry
	for _, data := range testData {
		entries = append(entries, record.Put([]byte(data.key), []byte(data.value)))
	}
	meta := writeTable(t, dm, sstPath, 32, entries)
	if meta.Entries != len(testData) {
		t.Errorf("Entry count mismatch: got %d, want %d", meta.Entries, len(testData))
	}
	if meta.Blocks < 2 {
		t.Errorf("Expected the small block target to produce several blocks, got %d", meta.Blocks)
	}

	reader, err := Open(dm, sstPath)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer reader.Close()

	for _, data := range testData {
		value, found, err := reader.Get([]byte(data.key))
		if err != nil || !found {
			t.Errorf("Failed to lookup key %s: found=%v err=%v", data.key, found, err)
			continue
		}
		if !bytes.Equal(value, []byte(data.value)) {
			t.Errorf("Value mismatch for %s: got %s, want %s", data.key, string(value), data.value)
		}
	}

	for _, key := range []string{"0", "avocado", "nonexistent", "z"} {
		_, found, err := reader.Get([]byte(key))
		if err != nil {
			t.Errorf("Unexpected error for %s: %v", key, err)
		}
		if found {
			t.Errorf("Expected %s to be absent", key)
		}
	}
}

func TestSSTableTombstone(t *testing.T) {
	dm := mockdm.NewMockDiskManager()
	sstPath := filepath.Join(t.TempDir(), "tombstone.sst")

	writeTable(t, dm, sstPath, 4096, []record.Entry{
		record.Delete([]byte("a")),
		record.Put([]byte("b"), []byte("2")),
	})

	reader, err := Open(dm, sstPath)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer reader.Close()

	if _, found, _ := reader.Get([]byte("a")); found {
		t.Error("Expected tombstoned key to read as not found")
	}

	e, found, err := reader.Lookup([]byte("a"))
	if err != nil || !found {
		t.Fatalf("Expected Lookup to report the tombstone: found=%v err=%v", found, err)
	}
	if !e.IsTombstone() {
		t.Errorf("Expected a delete entry, got %v", e.Type)
	}
}

func TestSSTableEmptyValue(t *testing.T) {
	dm := mockdm.NewMockDiskManager()
	sstPath := filepath.Join(t.TempDir(), "empty_value.sst")

	writeTable(t, dm, sstPath, 4096, []record.Entry{record.Put([]byte("key1"), []byte{})})

	reader, err := Open(dm, sstPath)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer reader.Close()

	value, found, err := reader.Get([]byte("key1"))
	if err != nil || !found {
		t.Errorf("Failed to lookup key with empty value: found=%v err=%v", found, err)
	}
	if len(value) != 0 {
		t.Errorf("Expected empty value, got %v", value)
	}
}

func TestSSTTableLargeKeyValues(t *testing.T) {
	dm := mockdm.NewMockDiskManager()
	sstPath := filepath.Join(t.TempDir(), "large_data.sst")

	// Create a 100KB value
	largeValue := make([]byte, 100*1024)
	for i := range largeValue {
		largeValue[i] = byte(i % 256)
	}

	// Create a 10KB key that sorts before "small-key"
	largeKey := make([]byte, 10*1024)
	for i := range largeKey {
		largeKey[i] = 'a' + byte(i%26)
	}

	meta := writeTable(t, dm, sstPath, 4096, []record.Entry{
		record.Put(largeKey, largeValue),
		record.Put([]byte("small-key"), []byte("small-value")),
	})
	// The oversized entry fills its own block; the target is advisory.
	if meta.Blocks != 2 {
		t.Errorf("Expected 2 blocks, got %d", meta.Blocks)
	}

	reader, err := Open(dm, sstPath)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer reader.Close()

	value, _, err := reader.Get(largeKey)
	if err != nil {
		t.Errorf("Failed to lookup large key: %v", err)
	}
	if !bytes.Equal(value, largeValue) {
		t.Errorf("Large value mismatch: lengths got %d, want %d", len(value), len(largeValue))
	}

	smallValue, _, err := reader.Get([]byte("small-key"))
	if err != nil {
		t.Errorf("Failed to lookup small key after large key: %v", err)
	}
	if !bytes.Equal(smallValue, []byte("small-value")) {
		t.Errorf("Small value mismatch after large key")
	}
}

func TestBuilderRejectsOutOfOrderKeys(t *testing.T) {
	dm := mockdm.NewMockDiskManager()
	sstPath := filepath.Join(t.TempDir(), "unordered.sst")

	_, err := Build(dm, sstPath, 4096, []record.Entry{
		record.Put([]byte("b"), []byte("2")),
		record.Put([]byte("a"), []byte("1")),
	})
	if !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("Expected ErrOutOfOrder, got %v", err)
	}
	if dm.Exists(sstPath) {
		t.Error("Expected the partial table to be removed")
	}
}

func TestSSTableFileLayout(t *testing.T) {
	dm := mockdm.NewMockDiskManager()
	sstPath := filepath.Join(t.TempDir(), "layout.sst")

	writeTable(t, dm, sstPath, 4096, []record.Entry{
		record.Delete([]byte("a")),
		record.Put([]byte("b"), []byte("2")),
	})

	data, err := dm.ReadFile(sstPath)
	if err != nil {
		t.Fatalf("Failed to read table: %v", err)
	}

	block := []byte{
		1, 1, 0, 0, 0, 0, 0, 0, 0, 'a',
		0, 1, 0, 0, 0, 1, 0, 0, 0, 'b', '2',
	}
	if !bytes.HasPrefix(data, block) {
		t.Fatalf("Unexpected block bytes: %v", data[:len(block)])
	}

	footer, err := DecodeFooter(data[len(data)-FooterSize:])
	if err != nil {
		t.Fatalf("Failed to decode footer: %v", err)
	}
	if footer.IndexOffset != uint64(len(block)+4) {
		t.Errorf("Index offset: got %d, want %d", footer.IndexOffset, len(block)+4)
	}
	if int(footer.IndexOffset)+int(footer.IndexLength)+FooterSize != len(data) {
		t.Errorf("Index does not end at footer")
	}
}

func TestCorruptedSSTable(t *testing.T) {
	dm := mockdm.NewMockDiskManager()
	sstPath := filepath.Join(t.TempDir(), "corrupted.sst")

	// Create a corrupted file (too small to be valid)
	file, _ := dm.Open(sstPath, os.O_CREATE|os.O_RDWR, 0644)
	_, _ = file.WriteAt([]byte("corrupted data"), 0)

	_, err := Open(dm, sstPath)
	if !errors.Is(err, ErrShortRead) {
		t.Errorf("Expected ErrShortRead when opening corrupt SSTable, got %v", err)
	}
}

func TestSSTableBadFooter(t *testing.T) {
	dm := mockdm.NewMockDiskManager()
	dir := t.TempDir()
	good := filepath.Join(dir, "good.sst")
	writeTable(t, dm, good, 4096, []record.Entry{record.Put([]byte("k"), []byte("v"))})
	data, _ := dm.ReadFile(good)

	cases := []struct {
		name   string
		offset int
		want   error
	}{
		{"magic", len(data) - FooterSize, ErrBadMagic},
		{"version", len(data) - FooterSize + MagicSize, ErrBadVersion},
		{"index length", len(data) - FooterSize + MagicSize + VersionSize, ErrFormat},
		{"index offset", len(data) - 1, ErrShortRead},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".sst")
			corrupt := append([]byte(nil), data...)
			corrupt[tc.offset] ^= 0x40

			f, _ := dm.Open(path, os.O_CREATE|os.O_RDWR, 0644)
			_, _ = f.WriteAt(corrupt, 0)

			_, err := Open(dm, path)
			if !errors.Is(err, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestSSTableBlockHandleOverflow(t *testing.T) {
	dm := mockdm.NewMockDiskManager()
	path := filepath.Join(t.TempDir(), "overflow.sst")

	// Offset+Length wraps around to 8, inside the data region.
	ix := NewIndex()
	ix.Add([]byte("k"), BlockHandle{Offset: ^uint64(0) - 7, Length: 16})
	indexBuf := ix.Encode()

	data := make([]byte, 16)
	data = append(data, indexBuf...)
	data = append(data, Footer{Version: Version, IndexLength: uint32(len(indexBuf)), IndexOffset: 16}.Encode()...)

	f, _ := dm.Open(path, os.O_CREATE|os.O_RDWR, 0644)
	_, _ = f.WriteAt(data, 0)

	_, err := Open(dm, path)
	if !errors.Is(err, ErrFormat) {
		t.Errorf("Expected ErrFormat for a wrapping block handle, got %v", err)
	}
}

func TestSSTableCorruptBlockFailsLookup(t *testing.T) {
	dm := mockdm.NewMockDiskManager()
	dir := t.TempDir()
	good := filepath.Join(dir, "good.sst")
	writeTable(t, dm, good, 4096, []record.Entry{
		record.Put([]byte("a"), []byte("1")),
		record.Put([]byte("b"), []byte("2")),
	})
	data, _ := dm.ReadFile(good)

	reader, err := Open(dm, good)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	blockLen := int(reader.Index().Entries()[0].Handle.Length)
	_ = reader.Close()

	// Every byte of the payload and the CRC trailer is covered.
	for i := 0; i < blockLen; i++ {
		path := filepath.Join(dir, fmt.Sprintf("flip-%d.sst", i))
		corrupt := append([]byte(nil), data...)
		corrupt[i] ^= 0xFF
		f, _ := dm.Open(path, os.O_CREATE|os.O_RDWR, 0644)
		_, _ = f.WriteAt(corrupt, 0)

		r, err := Open(dm, path)
		if err != nil {
			t.Fatalf("Index should still open with byte %d flipped: %v", i, err)
		}
		_, _, err = r.Get([]byte("a"))
		if !errors.Is(err, ErrCorruption) {
			t.Errorf("Byte %d: expected ErrCorruption, got %v", i, err)
		}
		_ = r.Close()
	}
}

func TestMultipleOpenClose(t *testing.T) {
	dm := mockdm.NewMockDiskManager()
	sstPath := filepath.Join(t.TempDir(), "test_multi.sst")

	writeTable(t, dm, sstPath, 4096, []record.Entry{
		record.Put([]byte("key1"), []byte("value1")),
		record.Put([]byte("key2"), []byte("value2")),
	})

	// Open and close multiple times
	for i := 0; i < 5; i++ {
		reader, err := Open(dm, sstPath)
		if err != nil {
			t.Fatalf("Failed to open reader on iteration %d: %v", i, err)
		}

		v, _, err := reader.Get([]byte("key1"))
		if err != nil || !bytes.Equal(v, []byte("value1")) {
			t.Errorf("Failed lookup on iteration %d", i)
		}

		_ = reader.Close()
		if _, _, err := reader.Get([]byte("key1")); !errors.Is(err, ErrClosed) {
			t.Errorf("Expected ErrClosed after Close, got %v", err)
		}
	}
}

func TestFileNames(t *testing.T) {
	if got := FileName(1); got != "000001.sst" {
		t.Errorf("FileName(1) = %s", got)
	}
	if got := TempFileName(42); got != "000042.sst.tmp" {
		t.Errorf("TempFileName(42) = %s", got)
	}
	if id, ok := ParseFileName("001234.sst"); !ok || id != 1234 {
		t.Errorf("ParseFileName = %d, %v", id, ok)
	}
	for _, name := range []string{"000001.sst.tmp", "actor_id", "x.sst"} {
		if _, ok := ParseFileName(name); ok {
			t.Errorf("ParseFileName(%q) should fail", name)
		}
	}
}

func BenchmarkSSTableWriting(b *testing.B) {
	dm := mockdm.NewMockDiskManager()
	sstPath := filepath.Join(b.TempDir(), "bench_write.sst")

	entries := make([]record.Entry, 1000)
	for j := range entries {
		entries[j] = record.Put(fmt.Appendf(nil, "key-%06d", j), fmt.Appendf(nil, "value-%d", j))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		writeTable(b, dm, sstPath, 4096, entries)
	}
}

func BenchmarkSSTableReading(b *testing.B) {
	dm := mockdm.NewMockDiskManager()
	sstPath := filepath.Join(b.TempDir(), "bench_read.sst")

	entries := make([]record.Entry, 1000)
	for j := range entries {
		entries[j] = record.Put(fmt.Appendf(nil, "key-%06d", j), fmt.Appendf(nil, "value-%d", j))
	}
	writeTable(b, dm, sstPath, 4096, entries)

	reader, err := Open(dm, sstPath)
	if err != nil {
		b.Fatalf("Failed to open reader: %v", err)
	}
	defer reader.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := entries[i%len(entries)].Key
		if _, found, err := reader.Get(key); err != nil || !found {
			b.Fatalf("Failed to read key %s: %v", key, err)
		}
	}
}
