// Package diskmanager provides interfaces and implementations for managing disk-based file operations.
// It handles file reading, writing, renaming and listing required by the engine, and
// is the seam through which tests inject I/O faults.
package diskmanager

import (
	"os"
	"sort"
	"strings"
)

// FileHandle abstracts file operations with random access and syncing.
type FileHandle interface {
	// ReadAt reads len(b) bytes from the file starting at byte offset off.
	// It returns the number of bytes read and any error encountered.
	ReadAt(b []byte, off int64) (int, error)
	// WriteAt writes len(b) bytes to the file starting at byte offset off.
	// It returns the number of bytes written and any error encountered.
	WriteAt(b []byte, off int64) (int, error)
	// Truncate changes the size of the file.
	Truncate(size int64) error
	// Close closes the file handle, rendering it unusable for I/O.
	Close() error
	// Sync commits the current contents of the file to stable storage.
	Sync() error
	// Stat returns the file stat
	Stat() (os.FileInfo, error)
}

type fileHandle struct {
	file *os.File
}

// NewFileHandle wraps an *os.File into a FileHandle implementation.
func NewFileHandle(file *os.File) FileHandle { return &fileHandle{file: file} }

func (fh *fileHandle) ReadAt(b []byte, off int64) (int, error) { return fh.file.ReadAt(b, off) }

func (fh *fileHandle) WriteAt(b []byte, off int64) (int, error) { return fh.file.WriteAt(b, off) }

func (fh *fileHandle) Truncate(size int64) error { return fh.file.Truncate(size) }

func (fh *fileHandle) Close() error { return fh.file.Close() }

func (fh *fileHandle) Sync() error { return fh.file.Sync() }

func (fh *fileHandle) Stat() (os.FileInfo, error) { return fh.file.Stat() }

// DiskManager defines methods for file operations.
type DiskManager interface {
	// Open opens a file with specified path, flags and permissions.
	// Every call returns a fresh handle owned by the caller.
	Open(path string, flags int, perm os.FileMode) (FileHandle, error)
	// Delete removes the named file.
	Delete(path string) error
	// Rename atomically moves oldpath to newpath, replacing newpath if it exists.
	Rename(oldpath, newpath string) error
	// List returns the sorted names of regular files in dir ending with suffix.
	// Empty suffix matches all files.
	List(dir string, suffix string) ([]string, error)
	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir string) error
	// SyncDir flushes dir's entries so a completed Rename survives a crash.
	SyncDir(dir string) error
}

type diskManager struct{}

// NewDiskManager creates a DiskManager backed by the local file system.
func NewDiskManager() DiskManager {
	return diskManager{}
}

func (diskManager) Open(path string, flags int, perm os.FileMode) (FileHandle, error) {
	file, err := os.OpenFile(path, flags, perm)
	if err != nil {
		return nil, err
	}
	return NewFileHandle(file), nil
}

func (diskManager) Delete(path string) error {
	return os.Remove(path)
}

func (diskManager) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (diskManager) List(dir string, suffix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if suffix == "" || strings.HasSuffix(entry.Name(), suffix) {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func (diskManager) MkdirAll(dir string) error {
	return os.MkdirAll(dir, 0755)
}

func (diskManager) SyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
