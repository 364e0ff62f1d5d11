package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikhailWahib/zynk"
	"github.com/MikhailWahib/zynk/internal/memkv"
)

func runScript(t *testing.T, kv backend, script string) (string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	repl(context.Background(), strings.NewReader(script), &out, &errOut, kv)
	return out.String(), errOut.String()
}

func TestREPL_InMemory(t *testing.T) {
	out, errOut := runScript(t, local{memkv.New()}, strings.Join([]string{
		"put name zynk store",
		"get name",
		"get missing",
		"DEL name",
		"delete name",
		"get name",
		"exit",
		"put after exit",
	}, "\n"))

	assert.Empty(t, errOut)
	assert.Equal(t, "> OK\n> zynk store\n> (nil)\n> 1\n> 0\n> (nil)\n> bye\n", out)
}

func TestREPL_Usage(t *testing.T) {
	out, errOut := runScript(t, local{memkv.New()}, "put k\nget\ndel\nfrobnicate\n\nhelp\n")

	assert.Equal(t,
		"usage: put <key> <value>\nusage: get <key>\nusage: del <key>\nunknown command: frobnicate\n",
		errOut)
	assert.Contains(t, out, helpText)
	assert.True(t, strings.HasSuffix(out, "> \n"), "EOF ends the shell")
}

func TestREPL_Embedded(t *testing.T) {
	db, err := zynk.Open(t.TempDir(), nil)
	require.NoError(t, err)
	defer db.Close()

	out, errOut := runScript(t, embedded{db}, "put k v\nget k\ndel k\nget k\nquit\n")
	assert.Empty(t, errOut)
	assert.Equal(t, "> OK\n> v\n> 1\n> (nil)\n> bye\n", out)
}
