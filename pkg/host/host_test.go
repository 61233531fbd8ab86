package host

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pingraph/pkg/codec"
	"github.com/matzehuels/pingraph/pkg/nodegraph"
	"github.com/matzehuels/pingraph/pkg/nodes"
	"github.com/matzehuels/pingraph/pkg/observability"
	"github.com/matzehuels/pingraph/pkg/store"
)

func testRegistry(t *testing.T) *nodegraph.Registry {
	t.Helper()
	reg := nodegraph.NewRegistry()
	require.NoError(t, nodes.Register(reg))
	return reg
}

func newHost(t *testing.T, side nodegraph.Side, opts Options) *Host {
	t.Helper()
	opts.Side = side
	if opts.Scope == "" {
		opts.Scope = "factory"
	}
	if opts.Registry == nil {
		opts.Registry = testRegistry(t)
	}
	opts.Logger = log.New(io.Discard)
	return New(opts)
}

// populate adds a counter and a tick node to the host's graph.
func populate(t *testing.T, h *Host) {
	t.Helper()
	require.NoError(t, h.Do(func(g *nodegraph.Graph) error {
		g.AddNode(nodes.NewTickNode())
		c := nodes.NewCounterNode()
		c.Ticks = 3
		g.AddNode(c)
		return nil
	}))
}

func encoded(t *testing.T, h *Host) nodegraph.GraphRecord {
	t.Helper()
	var rec nodegraph.GraphRecord
	require.NoError(t, h.Do(func(g *nodegraph.Graph) error {
		rec = g.Encode()
		return nil
	}))
	return rec
}

func receive(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func TestGraphCreatedOnFirstAccess(t *testing.T) {
	h := newHost(t, nodegraph.Client, Options{})
	g := h.Graph()
	require.NotNil(t, g)
	assert.Same(t, g, h.Graph())
	assert.Equal(t, nodegraph.Client, g.Side)
	assert.Equal(t, nodegraph.Owner(h), g.Owner())
	assert.NotEmpty(t, h.ID())
	assert.NotEqual(t, h.ID(), New(Options{}).ID())
}

func TestNewDefaultsScope(t *testing.T) {
	h := New(Options{})
	assert.NotEmpty(t, h.Scope())
	assert.Equal(t, nodegraph.Neither, h.Side())
}

func TestUpdateTagRoundTrip(t *testing.T) {
	src := newHost(t, nodegraph.Server, Options{})
	populate(t, src)
	data, err := src.UpdateTag()
	require.NoError(t, err)

	dst := newHost(t, nodegraph.Client, Options{})
	require.NoError(t, dst.ApplyTag(data))
	assert.Equal(t, encoded(t, src), encoded(t, dst))
	assert.Equal(t, nodegraph.Client, dst.Graph().Side, "apply keeps the side")

	err = dst.ApplyTag([]byte("{broken"))
	assert.Error(t, err)
	assert.Equal(t, 2, dst.Graph().Len(), "failed apply leaves the graph alone")
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	yamlCodec, err := codec.ByName("yaml")
	require.NoError(t, err)
	a := newHost(t, nodegraph.Server, Options{Store: s, Codec: yamlCodec})
	populate(t, a)
	require.NoError(t, a.Save(ctx))

	doc, err := s.Get(ctx, "factory")
	require.NoError(t, err)
	assert.Equal(t, "yaml", doc.Format)
	assert.Equal(t, 2, doc.Nodes)

	// The loader uses a different codec; the stored format wins.
	b := newHost(t, nodegraph.Server, Options{Store: s})
	require.NoError(t, b.Load(ctx))
	assert.Equal(t, encoded(t, a), encoded(t, b))

	missing := newHost(t, nodegraph.Server, Options{Store: s, Scope: "other"})
	assert.ErrorIs(t, missing.Load(ctx), store.ErrNotFound)

	bare := newHost(t, nodegraph.Server, Options{})
	assert.ErrorIs(t, bare.Save(ctx), ErrNoStore)
	assert.ErrorIs(t, bare.Load(ctx), ErrNoStore)
}

func TestSyncRequiresSideAndTransport(t *testing.T) {
	ctx := context.Background()
	neither := newHost(t, nodegraph.Neither, Options{Transport: NewMemoryTransport()})
	assert.ErrorIs(t, neither.PushUpdate(ctx), nodegraph.ErrUnsupported)
	assert.ErrorIs(t, neither.RequestUpdate(ctx), nodegraph.ErrUnsupported)
	assert.ErrorIs(t, neither.Run(ctx), nodegraph.ErrUnsupported)

	offline := newHost(t, nodegraph.Client, Options{})
	assert.ErrorIs(t, offline.PushUpdate(ctx), ErrNoTransport)

	n := nodes.NewCounterNode()
	offline.Graph().AddNode(n)
	assert.ErrorIs(t, n.PushUpdate(), ErrNoTransport)
}

func TestPushUpdate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := NewMemoryTransport()
	server := newHost(t, nodegraph.Server, Options{Transport: tr})
	client := newHost(t, nodegraph.Client, Options{Transport: tr})
	populate(t, server)

	toClient, err := tr.Subscribe(ctx, nodegraph.Client)
	require.NoError(t, err)

	require.NoError(t, server.PushUpdate(ctx))
	msg := receive(t, toClient)
	assert.Equal(t, KindGraph, msg.Kind)
	assert.Equal(t, nodegraph.Server, msg.From)
	assert.Equal(t, server.ID(), msg.Origin)
	require.NoError(t, client.Handle(ctx, msg))
	assert.Equal(t, encoded(t, server), encoded(t, client))

	// Unchanged content is not sent twice.
	require.NoError(t, server.PushUpdate(ctx))
	assert.Empty(t, toClient)

	require.NoError(t, server.Do(func(g *nodegraph.Graph) error {
		g.AddNode(nodes.NewVarNode(nodes.VarFloat))
		return nil
	}))
	require.NoError(t, server.PushUpdate(ctx))
	require.NoError(t, client.Handle(ctx, receive(t, toClient)))
	assert.Equal(t, 3, client.Graph().Len())
}

func TestRequestUpdateForcesPush(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := NewMemoryTransport()
	server := newHost(t, nodegraph.Server, Options{Transport: tr})
	client := newHost(t, nodegraph.Client, Options{Transport: tr})
	populate(t, server)

	toServer, err := tr.Subscribe(ctx, nodegraph.Server)
	require.NoError(t, err)
	toClient, err := tr.Subscribe(ctx, nodegraph.Client)
	require.NoError(t, err)

	require.NoError(t, server.PushUpdate(ctx))
	require.NoError(t, client.Handle(ctx, receive(t, toClient)))

	require.NoError(t, client.RequestUpdate(ctx))
	req := receive(t, toServer)
	assert.Equal(t, KindRequest, req.Kind)
	assert.Empty(t, req.Data)

	// The server answers even though its content has not changed.
	require.NoError(t, server.Handle(ctx, req))
	assert.Equal(t, KindGraph, receive(t, toClient).Kind)
}

func TestReceivedSnapshotIsNotEchoed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := NewMemoryTransport()
	server := newHost(t, nodegraph.Server, Options{Transport: tr})
	client := newHost(t, nodegraph.Client, Options{Transport: tr})
	populate(t, server)

	toClient, err := tr.Subscribe(ctx, nodegraph.Client)
	require.NoError(t, err)
	toServer, err := tr.Subscribe(ctx, nodegraph.Server)
	require.NoError(t, err)

	require.NoError(t, server.PushUpdate(ctx))
	require.NoError(t, client.Handle(ctx, receive(t, toClient)))
	require.NoError(t, client.PushUpdate(ctx))
	assert.Empty(t, toServer)
}

func TestNodePushAppliesInPlace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := NewMemoryTransport()
	server := newHost(t, nodegraph.Server, Options{Transport: tr})
	client := newHost(t, nodegraph.Client, Options{Transport: tr})
	populate(t, server)

	toClient, err := tr.Subscribe(ctx, nodegraph.Client)
	require.NoError(t, err)
	toServer, err := tr.Subscribe(ctx, nodegraph.Server)
	require.NoError(t, err)
	require.NoError(t, server.PushUpdate(ctx))
	require.NoError(t, client.Handle(ctx, receive(t, toClient)))

	serverCounter, ok := server.Graph().Node(1).(*nodes.CounterNode)
	require.True(t, ok)

	require.NoError(t, client.Do(func(g *nodegraph.Graph) error {
		c := g.Node(1).(*nodes.CounterNode)
		c.Ticks = 42
		c.Title = "Renamed"
		return c.PushUpdate()
	}))

	msg := receive(t, toServer)
	assert.Equal(t, KindNode, msg.Kind)
	require.NoError(t, server.Handle(ctx, msg))

	assert.Same(t, serverCounter, server.Graph().Node(1), "same-type update keeps the node value")
	assert.Equal(t, 42, serverCounter.Ticks)
	assert.Equal(t, "Renamed", serverCounter.Title)
	assert.Equal(t, 2, server.Graph().Len())
}

type recordingSyncHooks struct {
	mu     sync.Mutex
	pushes int
	drops  []string
	recvs  []error
}

func (r *recordingSyncHooks) OnPush(context.Context, string, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes++
}

func (r *recordingSyncHooks) OnReceive(_ context.Context, _ string, _ int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recvs = append(r.recvs, err)
}

func (r *recordingSyncHooks) OnDrop(_ context.Context, _ string, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drops = append(r.drops, reason)
}

func TestHandleFilters(t *testing.T) {
	hooks := &recordingSyncHooks{}
	observability.SetSyncHooks(hooks)
	defer observability.Reset()

	ctx := context.Background()
	h := newHost(t, nodegraph.Server, Options{Transport: NewMemoryTransport()})
	populate(t, h)
	before := encoded(t, h)

	empty := `{"nodes":[],"center":[0,0]}`
	tests := []struct {
		name    string
		msg     Message
		wantErr bool
	}{
		{"own message", Message{Kind: KindGraph, Scope: "factory", Origin: h.ID(), Format: "json", Data: []byte(empty)}, false},
		{"other scope", Message{Kind: KindGraph, Scope: "elsewhere", Format: "json", Data: []byte(empty)}, false},
		{"unknown kind", Message{Kind: "gossip", Scope: "factory"}, true},
		{"bad format", Message{Kind: KindGraph, Scope: "factory", Format: "xml", Data: []byte(empty)}, true},
		{"node message with two nodes", Message{Kind: KindNode, Scope: "factory", Format: "json",
			Data: []byte(`{"nodes":[{"type":"node","node_id":50},{"type":"node","node_id":60}]}`)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Handle(ctx, tt.msg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
	assert.Equal(t, before, encoded(t, h))
	assert.Equal(t, []string{"self", "scope", "kind"}, hooks.drops)
	require.Len(t, hooks.recvs, 2)
	assert.Error(t, hooks.recvs[0])
}

func TestRunExchangesSnapshots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tr := NewMemoryTransport()
	server := newHost(t, nodegraph.Server, Options{Transport: tr})
	client := newHost(t, nodegraph.Client, Options{Transport: tr})
	populate(t, server)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, h := range []*Host{server, client} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- h.Run(ctx)
		}()
	}
	require.Eventually(t, func() bool {
		return tr.Subscribers(nodegraph.Server) == 1 && tr.Subscribers(nodegraph.Client) == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, client.RequestUpdate(ctx))
	require.Eventually(t, func() bool {
		var n int
		_ = client.Do(func(g *nodegraph.Graph) error {
			n = g.Len()
			return nil
		})
		return n == 2
	}, time.Second, time.Millisecond)

	cancel()
	wg.Wait()
	close(results)
	for err := range results {
		assert.NoError(t, err)
	}
}

func TestOnApplyReportsAppliedMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := NewMemoryTransport()
	var applied []Kind
	server := newHost(t, nodegraph.Server, Options{Transport: tr})
	client := newHost(t, nodegraph.Client, Options{
		Transport: tr,
		OnApply:   func(k Kind) { applied = append(applied, k) },
	})
	populate(t, server)

	toClient, err := tr.Subscribe(ctx, nodegraph.Client)
	require.NoError(t, err)
	require.NoError(t, server.PushUpdate(ctx))
	require.NoError(t, client.Handle(ctx, receive(t, toClient)))

	// Filtered and rejected messages are not reported.
	require.NoError(t, client.Handle(ctx, Message{Kind: KindGraph, Scope: "elsewhere"}))
	require.Error(t, client.Handle(ctx, Message{Kind: KindGraph, Scope: "factory", Format: "xml"}))

	require.NoError(t, server.Do(func(g *nodegraph.Graph) error {
		return g.Node(1).Base().PushUpdate()
	}))
	require.NoError(t, client.Handle(ctx, receive(t, toClient)))

	assert.Equal(t, []Kind{KindGraph, KindNode}, applied)
}
