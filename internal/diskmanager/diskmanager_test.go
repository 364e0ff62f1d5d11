package diskmanager_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MikhailWahib/zynk/internal/diskmanager"
	"github.com/stretchr/testify/require"
)

func TestDiskManager_Open(t *testing.T) {
	dm := diskmanager.NewDiskManager()
	filePath := filepath.Join(t.TempDir(), "testfile1.txt")

	// Test creating a new file
	handle, err := dm.Open(filePath, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err, "Expected no error on file creation")
	require.NotNil(t, handle, "Expected valid file handle, got nil")
	require.NoError(t, handle.Close())

	handle, err = dm.Open(filePath, os.O_RDONLY, 0644)
	require.NoError(t, err, "Expected no error opening file in read-only mode")
	require.NotNil(t, handle, "Expected valid file handle on read-only opening")
	require.NoError(t, handle.Close())

	// Test opening non-existent file without create flag
	_, err = dm.Open(filepath.Join(t.TempDir(), "nonexistent.txt"), os.O_RDWR, 0644)
	require.Error(t, err, "Expected error opening non-existent file without create flag")
	require.True(t, os.IsNotExist(err), "Expected 'file not exist' error")
}

func TestFileHandle_ReadWriteOperations(t *testing.T) {
	dm := diskmanager.NewDiskManager()
	filePath := filepath.Join(t.TempDir(), "testfile2.txt")

	handle, err := dm.Open(filePath, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	defer func() { _ = handle.Close() }()

	data := []byte("Hello, world!")
	n, err := handle.WriteAt(data, 0)
	require.NoError(t, err, "Expected no error on WriteAt")
	require.Equal(t, len(data), n, "Expected to write %d bytes, wrote %d", len(data), n)

	newData := []byte("\nHiii!")
	_, err = handle.WriteAt(newData, int64(len(data)))
	require.NoError(t, err, "Expected no error on WriteAt")
	require.NoError(t, handle.Sync(), "Expected no error on Sync")

	readData := make([]byte, len(data)+len(newData))
	n, err = handle.ReadAt(readData, 0)
	require.NoError(t, err, "Expected no error on ReadAt")
	require.Equal(t, len(readData), n)
	require.Equal(t, "Hello, world!\nHiii!", string(readData))

	require.NoError(t, handle.Truncate(5))
	info, err := handle.Stat()
	require.NoError(t, err)
	require.Equal(t, int64(5), info.Size())
}

func TestDiskManager_Delete(t *testing.T) {
	dm := diskmanager.NewDiskManager()
	filePath := filepath.Join(t.TempDir(), "testfile3.txt")

	handle, err := dm.Open(filePath, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err, "Expected no error on Open")
	require.NoError(t, handle.Close())

	require.NoError(t, dm.Delete(filePath), "Expected no error on Delete")
	_, err = os.Stat(filePath)
	require.True(t, os.IsNotExist(err), "Expected file %s to be deleted, but it exists", filePath)

	err = dm.Delete(filePath)
	require.Error(t, err, "Expected error when deleting non-existent file")
	require.True(t, os.IsNotExist(err), "Expected 'file not exist' error")
}

func TestDiskManager_Rename(t *testing.T) {
	dm := diskmanager.NewDiskManager()
	dir := t.TempDir()
	tmp := filepath.Join(dir, "000001.sst.tmp")
	final := filepath.Join(dir, "000001.sst")

	handle, err := dm.Open(tmp, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	_, err = handle.WriteAt([]byte("table"), 0)
	require.NoError(t, err)
	require.NoError(t, handle.Close())

	require.NoError(t, dm.Rename(tmp, final))

	_, err = os.Stat(tmp)
	require.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(final)
	require.NoError(t, err)
	require.Equal(t, "table", string(data))
}

func TestDiskManager_List(t *testing.T) {
	dm := diskmanager.NewDiskManager()
	testDir := t.TempDir()

	for _, f := range []string{"file2.log", "file1.txt", "data.txt"} {
		handle, err := dm.Open(filepath.Join(testDir, f), os.O_CREATE|os.O_RDWR, 0644)
		require.NoError(t, err, "Failed to create test file %s", f)
		require.NoError(t, handle.Close())
	}
	require.NoError(t, dm.MkdirAll(filepath.Join(testDir, "sub.txt")))

	files, err := dm.List(testDir, "")
	require.NoError(t, err, "Expected no error listing files")
	require.Equal(t, []string{"data.txt", "file1.txt", "file2.log"}, files)

	txtFiles, err := dm.List(testDir, ".txt")
	require.NoError(t, err, "Expected no error listing .txt files")
	require.Equal(t, []string{"data.txt", "file1.txt"}, txtFiles)

	_, err = dm.List(filepath.Join(testDir, "nonexistent_dir"), "")
	require.Error(t, err, "Expected error listing non-existent directory")
}

func TestDiskManager_SyncDir(t *testing.T) {
	dm := diskmanager.NewDiskManager()
	testDir := t.TempDir()

	require.NoError(t, dm.SyncDir(testDir))
	require.Error(t, dm.SyncDir(filepath.Join(testDir, "missing")))
}

func TestFileHandle_EdgeCases(t *testing.T) {
	dm := diskmanager.NewDiskManager()
	filePath := filepath.Join(t.TempDir(), "testfile5.txt")

	handle, err := dm.Open(filePath, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	defer func() { _ = handle.Close() }()

	n, err := handle.WriteAt([]byte{}, 0)
	require.NoError(t, err, "Expected no error writing empty data")
	require.Zero(t, n, "Expected to write 0 bytes, wrote %d", n)

	_, err = handle.WriteAt([]byte("Hello"), 10)
	require.NoError(t, err, "Expected no error writing at offset")

	fullData := make([]byte, 15)
	_, err = handle.ReadAt(fullData, 0)
	require.NoError(t, err, "Expected no error reading full data")
	for i := 0; i < 10; i++ {
		require.Zero(t, fullData[i], "Expected byte %d to be 0", i)
	}
	require.Equal(t, "Hello", string(fullData[10:15]))
}
