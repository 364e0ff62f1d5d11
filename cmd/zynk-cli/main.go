// Command zynk-cli is an interactive shell for a zynk store: in memory by
// default, embedded on disk with -data, or a remote node with -addr.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/MikhailWahib/zynk"
	"github.com/MikhailWahib/zynk/internal/client"
	"github.com/MikhailWahib/zynk/internal/memkv"
)

func main() {
	var (
		addr    = flag.String("addr", "", "address of a zynkd node (host:port)")
		dataDir = flag.String("data", "", "open an embedded store in this directory")
	)
	flag.Parse()

	var (
		kv     backend
		banner string
	)
	switch {
	case *addr != "":
		kv = remote{client.New(*addr)}
		banner = "zynk remote shell, connected to " + *addr
	case *dataDir != "":
		db, err := zynk.Open(*dataDir, nil)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		defer db.Close()
		kv = embedded{db}
		banner = "zynk embedded store at " + *dataDir
	default:
		kv = local{memkv.New()}
		banner = "zynk in-memory KV store"
	}

	fmt.Println(banner + ". Type 'help' for commands.")
	repl(context.Background(), os.Stdin, os.Stdout, os.Stderr, kv)
}
