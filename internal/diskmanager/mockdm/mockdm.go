// Package mockdm provides an in-memory disk manager with fault injection for testing
package mockdm

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MikhailWahib/zynk/internal/diskmanager"
)

type mockData struct {
	mu   sync.RWMutex
	data []byte
}

// MockFile implements diskmanager.FileHandle for testing purposes
type MockFile struct {
	*mockData
	name     string
	writeErr error
}

// WriteAt writes len(b) bytes to the file starting at byte offset off
func (m *MockFile) WriteAt(b []byte, off int64) (int, error) {
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	// Extend the slice if needed
	requiredLen := int(off) + len(b)
	if requiredLen > len(m.data) {
		newData := make([]byte, requiredLen)
		copy(newData, m.data)
		m.data = newData
	}
	return copy(m.data[off:], b), nil
}

// ReadAt reads len(b) bytes from the file starting at byte offset off
func (m *MockFile) ReadAt(b []byte, off int64) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(b, m.data[off:])
	if n < len(b) {
		return n, io.EOF
	}
	return n, nil
}

// Truncate resizes the file
func (m *MockFile) Truncate(size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if size <= int64(len(m.data)) {
		m.data = m.data[:size]
		return nil
	}
	m.data = append(m.data, make([]byte, int(size)-len(m.data))...)
	return nil
}

// Close closes the mock file
func (m *MockFile) Close() error {
	return nil
}

// Sync simulates syncing file contents to disk
func (m *MockFile) Sync() error {
	return nil
}

// Stat returns file information
func (m *MockFile) Stat() (os.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &testFileInfo{size: int64(len(m.data)), name: filepath.Base(m.name)}, nil
}

type testFileInfo struct {
	size int64
	name string
}

func (m *testFileInfo) Name() string       { return m.name }
func (m *testFileInfo) Size() int64        { return m.size }
func (m *testFileInfo) Mode() os.FileMode  { return 0644 }
func (m *testFileInfo) ModTime() time.Time { return time.Now() }
func (m *testFileInfo) IsDir() bool        { return false }
func (m *testFileInfo) Sys() any           { return nil }

type pathFault struct {
	match string
	err   error
}

// MockDiskManager implements diskmanager.DiskManager interface for testing.
// Faults are matched against a path suffix and stay armed until cleared.
type MockDiskManager struct {
	mu        sync.Mutex
	files     map[string]*mockData
	renameErr error
	dirSyncs  int
	openErrs  []pathFault
	writeErrs []pathFault
}

var _ diskmanager.DiskManager = (*MockDiskManager)(nil)

// NewMockDiskManager creates a new MockDiskManager instance
func NewMockDiskManager() *MockDiskManager {
	return &MockDiskManager{
		files: make(map[string]*mockData),
	}
}

// FailRename makes every Rename return err. A nil err clears the fault.
func (dm *MockDiskManager) FailRename(err error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.renameErr = err
}

// FailOpen makes Open return err for paths ending in match.
func (dm *MockDiskManager) FailOpen(match string, err error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.openErrs = append(dm.openErrs, pathFault{match: match, err: err})
}

// FailWrite makes writes through handles opened for paths ending in match return err.
func (dm *MockDiskManager) FailWrite(match string, err error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.writeErrs = append(dm.writeErrs, pathFault{match: match, err: err})
}

// ClearFaults disarms all injected faults.
func (dm *MockDiskManager) ClearFaults() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.renameErr = nil
	dm.openErrs = nil
	dm.writeErrs = nil
}

// Exists reports whether path holds a file.
func (dm *MockDiskManager) Exists(path string) bool {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	_, ok := dm.files[path]
	return ok
}

// ReadFile returns a copy of the file contents.
func (dm *MockDiskManager) ReadFile(path string) ([]byte, error) {
	dm.mu.Lock()
	f, ok := dm.files[path]
	dm.mu.Unlock()
	if !ok {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]byte(nil), f.data...), nil
}

func matchFault(faults []pathFault, path string) error {
	for _, f := range faults {
		if strings.HasSuffix(path, f.match) {
			return f.err
		}
	}
	return nil
}

// Open creates or opens a mock file
func (dm *MockDiskManager) Open(path string, flags int, _ os.FileMode) (diskmanager.FileHandle, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if err := matchFault(dm.openErrs, path); err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}

	data, exists := dm.files[path]
	switch {
	case !exists && flags&os.O_CREATE == 0:
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
	case !exists:
		data = &mockData{}
		dm.files[path] = data
	case flags&os.O_TRUNC != 0:
		data.mu.Lock()
		data.data = nil
		data.mu.Unlock()
	}

	return &MockFile{mockData: data, name: path, writeErr: matchFault(dm.writeErrs, path)}, nil
}

// Delete removes a mock file
func (dm *MockDiskManager) Delete(path string) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if _, ok := dm.files[path]; !ok {
		return &os.PathError{Op: "remove", Path: path, Err: os.ErrNotExist}
	}
	delete(dm.files, path)
	return nil
}

// Rename moves a mock file
func (dm *MockDiskManager) Rename(oldpath, newpath string) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.renameErr != nil {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: dm.renameErr}
	}
	data, ok := dm.files[oldpath]
	if !ok {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: os.ErrNotExist}
	}
	delete(dm.files, oldpath)
	dm.files[newpath] = data
	return nil
}

// List returns mock files directly inside dir matching the suffix
func (dm *MockDiskManager) List(dir string, suffix string) ([]string, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	var files []string
	for path := range dm.files {
		if filepath.Dir(path) != filepath.Clean(dir) {
			continue
		}
		name := filepath.Base(path)
		if suffix == "" || strings.HasSuffix(name, suffix) {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files, nil
}

// MkdirAll is a no-op; directories are implied by file paths
func (dm *MockDiskManager) MkdirAll(_ string) error {
	return nil
}

// SyncDir counts directory syncs; see DirSyncs.
func (dm *MockDiskManager) SyncDir(_ string) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.dirSyncs++
	return nil
}

// DirSyncs returns how many times SyncDir was called.
func (dm *MockDiskManager) DirSyncs() int {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.dirSyncs
}
