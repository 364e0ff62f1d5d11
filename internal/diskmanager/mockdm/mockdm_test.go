package mockdm_test

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikhailWahib/zynk/internal/diskmanager/mockdm"
)

var errInjected = errors.New("injected")

func TestMockDiskManager_ReadWriteRename(t *testing.T) {
	dm := mockdm.NewMockDiskManager()

	_, err := dm.Open("/db/a", os.O_RDONLY, 0)
	assert.ErrorIs(t, err, os.ErrNotExist)

	f, err := dm.Open("/db/a", os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte("hello"), 2)
	require.NoError(t, err)

	buf := make([]byte, 7)
	n, err := f.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, []byte("\x00\x00hello"), buf)

	n, err = f.ReadAt(buf, 5)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, n)

	require.NoError(t, f.Truncate(3))
	st, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Size())

	require.NoError(t, dm.Rename("/db/a", "/db/b"))
	assert.False(t, dm.Exists("/db/a"))
	data, err := dm.ReadFile("/db/b")
	require.NoError(t, err)
	assert.Equal(t, []byte("\x00\x00h"), data)

	require.NoError(t, dm.Delete("/db/b"))
	assert.ErrorIs(t, dm.Delete("/db/b"), os.ErrNotExist)
}

func TestMockDiskManager_List(t *testing.T) {
	dm := mockdm.NewMockDiskManager()
	for _, p := range []string{"/db/sst/000002.sst", "/db/sst/000001.sst", "/db/sst/000003.sst.tmp", "/db/wal/000001.log"} {
		_, err := dm.Open(p, os.O_CREATE|os.O_RDWR, 0644)
		require.NoError(t, err)
	}

	names, err := dm.List("/db/sst/", ".sst")
	require.NoError(t, err)
	assert.Equal(t, []string{"000001.sst", "000002.sst"}, names)

	names, err = dm.List("/db/sst", "")
	require.NoError(t, err)
	assert.Len(t, names, 3)
}

func TestMockDiskManager_Faults(t *testing.T) {
	dm := mockdm.NewMockDiskManager()
	dm.FailOpen(".sst", errInjected)
	dm.FailWrite(".tmp", errInjected)

	_, err := dm.Open("/db/000001.sst", os.O_CREATE|os.O_RDWR, 0644)
	assert.ErrorIs(t, err, errInjected)

	// suffix match: the temp path is not an open fault
	f, err := dm.Open("/db/000001.sst.tmp", os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte("x"), 0)
	assert.ErrorIs(t, err, errInjected)

	dm.FailRename(errInjected)
	assert.ErrorIs(t, dm.Rename("/db/000001.sst.tmp", "/db/000001.sst"), errInjected)
	assert.True(t, dm.Exists("/db/000001.sst.tmp"))

	dm.ClearFaults()
	require.NoError(t, dm.Rename("/db/000001.sst.tmp", "/db/000001.sst"))
	_, err = dm.Open("/db/000001.sst", os.O_RDONLY, 0)
	assert.NoError(t, err)
}
