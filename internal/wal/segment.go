package wal

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/MikhailWahib/zynk/internal/diskmanager"
)

// SegmentExt is the extension of a log segment file.
const SegmentExt = ".log"

// SegmentName returns the file name of segment n, e.g. 000003.log. Segment
// numbers match the id of the memtable whose writes they hold.
func SegmentName(n uint64) string {
	return fmt.Sprintf("%06d%s", n, SegmentExt)
}

// ParseSegmentName extracts the segment number from a file name.
func ParseSegmentName(name string) (uint64, bool) {
	if !strings.HasSuffix(name, SegmentExt) {
		return 0, false
	}
	n, err := strconv.ParseUint(strings.TrimSuffix(name, SegmentExt), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ListSegments returns the segment numbers found in dir, ascending.
func ListSegments(dm diskmanager.DiskManager, dir string) ([]uint64, error) {
	names, err := dm.List(dir, SegmentExt)
	if err != nil {
		return nil, err
	}

	var segments []uint64
	for _, name := range names {
		if n, ok := ParseSegmentName(name); ok {
			segments = append(segments, n)
		}
	}
	slices.Sort(segments)
	return segments, nil
}

// RemoveSegmentsThrough deletes every segment numbered at most n.
func RemoveSegmentsThrough(dm diskmanager.DiskManager, dir string, n uint64) error {
	segments, err := ListSegments(dm, dir)
	if err != nil {
		return err
	}
	for _, s := range segments {
		if s > n {
			break
		}
		if err := dm.Delete(filepath.Join(dir, SegmentName(s))); err != nil {
			return fmt.Errorf("failed to remove wal segment %d: %w", s, err)
		}
	}
	return nil
}
