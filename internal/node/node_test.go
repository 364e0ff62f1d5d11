package node_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/MikhailWahib/zynk/internal/diskmanager"
	"github.com/MikhailWahib/zynk/internal/diskmanager/mockdm"
	"github.com/MikhailWahib/zynk/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActorID_PersistsAcrossCalls(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	dm := diskmanager.NewDiskManager()

	id, err := node.ActorID(dm, dir)
	require.NoError(t, err)

	again, err := node.ActorID(dm, dir)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	data, err := os.ReadFile(filepath.Join(dir, node.ActorIDFile))
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatUint(id, 10), string(data))
	assert.NoFileExists(t, filepath.Join(dir, node.ActorIDFile+".tmp"))
}

func TestActorID_ReadsExisting(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, node.ActorIDFile), []byte(" 18446744073709551615\n"), 0644))

	id, err := node.ActorID(diskmanager.NewDiskManager(), dir)
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), id)
}

func TestActorID_ReplacesGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, node.ActorIDFile)
	require.NoError(t, os.WriteFile(path, []byte("not-a-number"), 0644))

	id, err := node.ActorID(diskmanager.NewDiskManager(), dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatUint(id, 10), string(data))
}

func TestActorID_WriteFailure(t *testing.T) {
	dm := mockdm.NewMockDiskManager()
	dm.FailRename(os.ErrPermission)

	_, err := node.ActorID(dm, "/data")
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.False(t, dm.Exists("/data/"+node.ActorIDFile))
}
