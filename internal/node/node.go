// Package node manages the identity a zynk node keeps across restarts.
package node

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MikhailWahib/zynk/internal/diskmanager"
)

// ActorIDFile is the file under the data dir holding the actor id in decimal.
const ActorIDFile = "actor_id"

// ActorID returns the node's persistent 64-bit actor id. The id is read from
// <dataDir>/actor_id; when the file is missing or does not parse, a random id
// is generated and written in its place.
func ActorID(dm diskmanager.DiskManager, dataDir string) (uint64, error) {
	path := filepath.Join(dataDir, ActorIDFile)

	if id, err := readActorID(dm, path); err == nil {
		return id, nil
	} else if !errors.Is(err, os.ErrNotExist) && !errors.Is(err, strconv.ErrSyntax) && !errors.Is(err, strconv.ErrRange) {
		return 0, err
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("node: generate actor id: %w", err)
	}
	id := binary.LittleEndian.Uint64(buf[:])

	if err := dm.MkdirAll(dataDir); err != nil {
		return 0, fmt.Errorf("node: %w", err)
	}
	if err := writeActorID(dm, path, id); err != nil {
		return 0, err
	}
	return id, nil
}

func readActorID(dm diskmanager.DiskManager, path string) (uint64, error) {
	f, err := dm.Open(path, os.O_RDONLY, 0)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	buf := make([]byte, info.Size())
	if n, err := f.ReadAt(buf, 0); n != len(buf) && err != nil && err != io.EOF {
		return 0, fmt.Errorf("node: read %s: %w", path, err)
	}

	return strconv.ParseUint(strings.TrimSpace(string(buf)), 10, 64)
}

// writeActorID writes the id to a temp file and renames it into place so a
// crash never leaves a truncated id behind.
func writeActorID(dm diskmanager.DiskManager, path string, id uint64) error {
	tmp := path + ".tmp"
	f, err := dm.Open(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("node: create %s: %w", tmp, err)
	}

	if _, err := f.WriteAt([]byte(strconv.FormatUint(id, 10)), 0); err != nil {
		_ = f.Close()
		return fmt.Errorf("node: write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("node: sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("node: close %s: %w", tmp, err)
	}

	if err := dm.Rename(tmp, path); err != nil {
		return fmt.Errorf("node: publish %s: %w", path, err)
	}
	if err := dm.SyncDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("node: sync %s: %w", filepath.Dir(path), err)
	}
	return nil
}
