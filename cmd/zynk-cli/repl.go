package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/MikhailWahib/zynk"
	"github.com/MikhailWahib/zynk/internal/client"
	"github.com/MikhailWahib/zynk/internal/memkv"
)

const helpText = `Commands:
  put <key> <value>
  get <key>
  del <key>
  exit | quit | Ctrl+D`

// backend is what the shell needs from a store.
type backend interface {
	Put(ctx context.Context, key, value []byte) error
	Get(ctx context.Context, key []byte) ([]byte, bool, error)
	Delete(ctx context.Context, key []byte) (bool, error)
}

type local struct{ s *memkv.Store }

func (l local) Put(_ context.Context, k, v []byte) error { return l.s.Put(k, v) }
func (l local) Get(_ context.Context, k []byte) ([]byte, bool, error) {
	return l.s.Get(k)
}
func (l local) Delete(_ context.Context, k []byte) (bool, error) { return l.s.Remove(k), nil }

// embedded reports every delete as removed: the engine writes a tombstone
// without looking up the old value.
type embedded struct{ db *zynk.DB }

func (e embedded) Put(_ context.Context, k, v []byte) error { return e.db.Put(k, v) }
func (e embedded) Get(_ context.Context, k []byte) ([]byte, bool, error) {
	return e.db.Get(k)
}
func (e embedded) Delete(_ context.Context, k []byte) (bool, error) {
	return true, e.db.Delete(k)
}

type remote struct{ c *client.Client }

func (r remote) Put(ctx context.Context, k, v []byte) error { return r.c.Put(ctx, k, v) }
func (r remote) Get(ctx context.Context, k []byte) ([]byte, bool, error) {
	return r.c.Get(ctx, k)
}
func (r remote) Delete(ctx context.Context, k []byte) (bool, error) { return r.c.Delete(ctx, k) }

// repl reads commands from in until EOF or exit.
func repl(ctx context.Context, in io.Reader, out, errOut io.Writer, kv backend) {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return
		}

		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !execute(ctx, line, out, errOut, kv) {
			return
		}
	}
}

// execute runs one command line and reports whether the shell goes on.
func execute(ctx context.Context, line string, out, errOut io.Writer, kv backend) bool {
	parts := strings.SplitN(line, " ", 3)
	cmd := strings.ToLower(parts[0])

	switch cmd {
	case "put":
		if len(parts) < 3 {
			fmt.Fprintln(errOut, "usage: put <key> <value>")
			return true
		}
		if err := kv.Put(ctx, []byte(parts[1]), []byte(parts[2])); err != nil {
			fmt.Fprintln(errOut, "error:", err)
			return true
		}
		fmt.Fprintln(out, "OK")

	case "get":
		if len(parts) < 2 {
			fmt.Fprintln(errOut, "usage: get <key>")
			return true
		}
		v, ok, err := kv.Get(ctx, []byte(parts[1]))
		switch {
		case err != nil:
			fmt.Fprintln(errOut, "error:", err)
		case !ok:
			fmt.Fprintln(out, "(nil)")
		default:
			fmt.Fprintln(out, string(v))
		}

	case "del", "delete":
		if len(parts) < 2 {
			fmt.Fprintln(errOut, "usage: del <key>")
			return true
		}
		removed, err := kv.Delete(ctx, []byte(parts[1]))
		if err != nil {
			fmt.Fprintln(errOut, "error:", err)
			return true
		}
		if removed {
			fmt.Fprintln(out, 1)
		} else {
			fmt.Fprintln(out, 0)
		}

	case "help":
		fmt.Fprintln(out, helpText)

	case "exit", "quit":
		fmt.Fprintln(out, "bye")
		return false

	default:
		fmt.Fprintln(errOut, "unknown command:", cmd)
	}
	return true
}
