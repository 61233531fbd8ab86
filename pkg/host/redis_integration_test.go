//go:build integration

package host

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pingraph/pkg/nodegraph"
)

func TestRedisTransportIntegration(t *testing.T) {
	addr := os.Getenv("PINGRAPH_TEST_REDIS")
	if addr == "" {
		addr = "localhost:6379"
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr, err := NewRedisTransport(ctx, addr, "pingraph-test:"+uuid.NewString(), log.New(io.Discard))
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer tr.Close()

	ch, err := tr.Subscribe(ctx, nodegraph.Server)
	require.NoError(t, err)

	want := Message{ID: "m1", Kind: KindGraph, Scope: "factory", From: nodegraph.Client, Format: "json", Data: []byte(`{"nodes":[]}`)}
	require.NoError(t, tr.Send(ctx, nodegraph.Server, want))

	select {
	case got := <-ch:
		assert.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no message from redis")
	}
}
