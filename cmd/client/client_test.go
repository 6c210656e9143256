package client

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.miragespace.co/ringstore/kv/memory"
	"go.miragespace.co/ringstore/node"
	"go.miragespace.co/ringstore/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestConfigParsing(t *testing.T) {
	as := assert.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "cluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
virtualNodes: 50
nodes:
  - localhost:8081
  - 10.0.0.2:8082
`), 0644))

	cfg, err := NewConfig(path)
	require.NoError(t, err)
	as.Equal(50, cfg.VirtualNodes)
	as.Equal([]string{"localhost:8081", "10.0.0.2:8082"}, cfg.Nodes)
}

func TestConfigRejectsBadSeed(t *testing.T) {
	as := assert.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "cluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nodes:\n  - not-an-address\n"), 0644))

	_, err := NewConfig(path)
	as.Error(err)
}

func TestReplSession(t *testing.T) {
	as := assert.New(t)

	store := memory.New()
	ts := httptest.NewServer(node.New(zaptest.NewLogger(t), store).Handler())
	defer ts.Close()
	addr := strings.TrimPrefix(ts.URL, "http://")

	rt, err := router.New(router.Config{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	defer rt.Close()
	_, err = rt.Seed(addr)
	require.NoError(t, err)

	session := strings.Join([]string{
		"set greeting hello world",
		"GET greeting",
		"GET missing",
		"DEL greeting",
		"get greeting",
		"STATS",
		"bogus",
		"EXIT",
	}, "\n")

	var out bytes.Buffer
	r := &repl{router: rt, in: strings.NewReader(session), out: &out}
	require.NoError(t, r.Run(context.Background()))

	output := out.String()
	as.Contains(output, "=hello world")
	as.Contains(output, "not found")
	as.Contains(output, "unknown command")
	as.Contains(output, addr)

	// DEL reached the node: the key is gone from its store
	v, ok := store.Get("greeting")
	as.False(ok, "DEL did not reach the node, got %q", v)
}
