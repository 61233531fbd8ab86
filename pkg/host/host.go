package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/pingraph/pkg/cache"
	"github.com/matzehuels/pingraph/pkg/codec"
	pgerrors "github.com/matzehuels/pingraph/pkg/errors"
	"github.com/matzehuels/pingraph/pkg/nodegraph"
	"github.com/matzehuels/pingraph/pkg/observability"
	"github.com/matzehuels/pingraph/pkg/store"
)

var (
	// ErrNoStore is returned by Save and Load on a host without a store.
	ErrNoStore = errors.New("host has no store")

	// ErrNoTransport is returned by sync operations on a host without a
	// transport.
	ErrNoTransport = errors.New("host has no transport")
)

// Options configures a [Host]. Only Side is needed for a purely local
// host; Store and Transport enable persistence and sync.
type Options struct {
	Scope     string // Graph id for the store and sync channel; empty means a new UUID
	Side      nodegraph.Side
	Registry  *nodegraph.Registry // nil means nodegraph.DefaultRegistry
	Codec     codec.Codec         // Snapshot encoding; nil means codec.Default
	Store     store.Store
	Transport Transport
	Cache     cache.Cache // Push de-duplication; nil means an in-memory cache
	Keyer     cache.Keyer
	Logger    *log.Logger
	Timeout   time.Duration // Bound on a node push, which has no caller context

	// OnApply, when set, is called after a received graph or node has been
	// applied. It runs on the goroutine handling the message, outside the
	// host lock.
	OnApply func(kind Kind)
}

// DefaultPushTimeout bounds [Host.PushNode] when Options.Timeout is zero.
const DefaultPushTimeout = 5 * time.Second

// Host owns one graph and brokers its persistence and sync.
//
// All graph access through the host is serialized by one mutex. Code that
// mutates the graph directly should do so inside [Host.Do].
type Host struct {
	mu    sync.Mutex
	id    string
	graph *nodegraph.Graph
	opts  Options
}

// New builds a host. The graph is created on first access.
func New(opts Options) *Host {
	if opts.Scope == "" {
		opts.Scope = uuid.NewString()
	}
	if opts.Codec == nil {
		opts.Codec = codec.Default
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewMemoryCache()
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultPushTimeout
	}
	return &Host{id: uuid.NewString(), opts: opts}
}

// ID identifies this host instance in sync messages.
func (h *Host) ID() string { return h.id }

// Scope returns the graph id the host persists and syncs under.
func (h *Host) Scope() string { return h.opts.Scope }

// Side returns the side the host's graph lives on.
func (h *Host) Side() nodegraph.Side { return h.opts.Side }

// Graph returns the host's graph, creating it on first access. The graph
// has the host's side and reports node pushes to the host.
func (h *Host) Graph() *nodegraph.Graph {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.graphLocked()
}

func (h *Host) graphLocked() *nodegraph.Graph {
	if h.graph == nil {
		g := nodegraph.New(h.opts.Registry)
		g.Side = h.opts.Side
		g.SetOwner(h)
		h.graph = g
	}
	return h.graph
}

// Do runs fn with exclusive access to the graph.
func (h *Host) Do(fn func(g *nodegraph.Graph) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.graphLocked())
}

// UpdateTag encodes the current graph with the host's codec.
func (h *Host) UpdateTag() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return codec.EncodeGraph(h.opts.Codec, h.graphLocked())
}

// ApplyTag replaces the graph content with a snapshot in the host's codec
// and runs every node's PostProcess hook.
func (h *Host) ApplyTag(data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.applyLocked(h.opts.Codec, data)
}

func (h *Host) applyLocked(c codec.Codec, data []byte) error {
	g := h.graphLocked()
	if err := codec.DecodeGraph(c, data, g); err != nil {
		return err
	}
	g.PostProcess()
	return nil
}

// =============================================================================
// Persistence
// =============================================================================

// Save writes the current graph to the store under the host's scope.
func (h *Host) Save(ctx context.Context) error {
	if h.opts.Store == nil {
		return ErrNoStore
	}
	h.mu.Lock()
	g := h.graphLocked()
	doc, err := store.NewDocument(h.opts.Scope, h.opts.Codec, g)
	h.mu.Unlock()
	if err != nil {
		return err
	}
	doc.ID = h.opts.Scope
	if err := h.opts.Store.Put(ctx, doc); err != nil {
		return fmt.Errorf("save graph %s: %w", h.opts.Scope, err)
	}
	h.opts.Logger.Debug("saved graph", "id", doc.ID, "nodes", doc.Nodes, "hash", doc.Hash[:12])
	return nil
}

// Load replaces the graph content with the stored snapshot. The stored
// document may use any codec.
func (h *Host) Load(ctx context.Context) error {
	if h.opts.Store == nil {
		return ErrNoStore
	}
	doc, err := h.opts.Store.Get(ctx, h.opts.Scope)
	if err != nil {
		return fmt.Errorf("load graph %s: %w", h.opts.Scope, err)
	}
	c, err := codec.ByName(doc.Format)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.applyLocked(c, doc.Data); err != nil {
		return fmt.Errorf("load graph %s: %w", h.opts.Scope, err)
	}
	h.opts.Logger.Debug("loaded graph", "id", doc.ID, "nodes", doc.Nodes)
	return nil
}

// =============================================================================
// Sync
// =============================================================================

// canSync reports why the host cannot exchange messages, if it cannot.
func (h *Host) canSync(op string) error {
	if h.opts.Side == nodegraph.Neither {
		return fmt.Errorf("%s: graph side is neither: %w", op, nodegraph.ErrUnsupported)
	}
	if h.opts.Transport == nil {
		return fmt.Errorf("%s: %w", op, ErrNoTransport)
	}
	return nil
}

func (h *Host) message(kind Kind, data []byte) Message {
	return Message{
		ID:     uuid.NewString(),
		Kind:   kind,
		Scope:  h.opts.Scope,
		Origin: h.id,
		From:   h.opts.Side,
		Format: h.opts.Codec.Format(),
		Data:   data,
	}
}

func (h *Host) pushKey() string {
	return h.opts.Keyer.PushKey(h.opts.Scope + "/" + h.id + "/" + h.opts.Side.Opposite().String())
}

// PushUpdate sends the whole graph to the opposite side. A snapshot equal
// to the last one pushed is not sent again.
func (h *Host) PushUpdate(ctx context.Context) error {
	return h.push(ctx, false)
}

func (h *Host) push(ctx context.Context, force bool) error {
	if err := h.canSync("push update"); err != nil {
		return err
	}
	data, err := h.UpdateTag()
	if err != nil {
		return err
	}
	hash := cache.Hash(data)
	key := h.pushKey()
	if !force {
		if prev, hit, err := h.opts.Cache.Get(ctx, key); err == nil && hit && string(prev) == hash {
			observability.Sync().OnDrop(ctx, string(KindGraph), "unchanged")
			h.opts.Logger.Debug("skipping unchanged push", "scope", h.opts.Scope)
			return nil
		}
	}

	err = h.opts.Transport.Send(ctx, h.opts.Side.Opposite(), h.message(KindGraph, data))
	observability.Sync().OnPush(ctx, string(KindGraph), len(data), err)
	if err != nil {
		return fmt.Errorf("push update: %w", err)
	}
	h.remember(ctx, key, hash)
	h.opts.Logger.Debug("pushed graph", "scope", h.opts.Scope, "to", h.opts.Side.Opposite(), "bytes", len(data))
	return nil
}

// remember records the last snapshot hash exchanged with the peer. A cache
// failure only costs a redundant push later.
func (h *Host) remember(ctx context.Context, key, hash string) {
	if err := h.opts.Cache.Set(ctx, key, []byte(hash), 0); err != nil {
		h.opts.Logger.Warn("push cache write failed", "key", key, "err", err)
	}
}

// RequestUpdate asks the opposite side to push its graph.
func (h *Host) RequestUpdate(ctx context.Context) error {
	if err := h.canSync("request update"); err != nil {
		return err
	}
	msg := h.message(KindRequest, nil)
	msg.Format = ""
	err := h.opts.Transport.Send(ctx, h.opts.Side.Opposite(), msg)
	observability.Sync().OnPush(ctx, string(KindRequest), 0, err)
	if err != nil {
		return fmt.Errorf("request update: %w", err)
	}
	h.opts.Logger.Debug("requested graph", "scope", h.opts.Scope, "from", h.opts.Side.Opposite())
	return nil
}

// PushNode sends one node to the opposite side. It implements
// [nodegraph.Owner] and is reached through [nodegraph.NodeBase.PushUpdate].
// It does not take the host lock, so nodes may push from inside [Host.Do].
func (h *Host) PushNode(n nodegraph.Node) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.opts.Timeout)
	defer cancel()
	return h.PushNodeContext(ctx, n)
}

// PushNodeContext is PushNode with a caller context.
func (h *Host) PushNodeContext(ctx context.Context, n nodegraph.Node) error {
	if err := h.canSync("push node"); err != nil {
		return err
	}
	rec := nodegraph.EncodeNode(n)
	data, err := codec.Marshal(h.opts.Codec, nodegraph.GraphRecord{Nodes: []nodegraph.NodeRecord{rec}})
	if err != nil {
		return err
	}
	err = h.opts.Transport.Send(ctx, h.opts.Side.Opposite(), h.message(KindNode, data))
	observability.Sync().OnPush(ctx, string(KindNode), len(data), err)
	if err != nil {
		return fmt.Errorf("push node %d: %w", rec.ID, err)
	}
	return nil
}

// Handle applies a message received from the peer. Messages from this host
// or for another scope are ignored.
func (h *Host) Handle(ctx context.Context, msg Message) error {
	switch {
	case msg.Origin == h.id:
		observability.Sync().OnDrop(ctx, string(msg.Kind), "self")
		return nil
	case msg.Scope != h.opts.Scope:
		observability.Sync().OnDrop(ctx, string(msg.Kind), "scope")
		return nil
	}

	var err error
	switch msg.Kind {
	case KindRequest:
		return h.push(ctx, true)
	case KindGraph:
		err = h.receiveGraph(ctx, msg)
	case KindNode:
		err = h.receiveNode(msg)
	default:
		observability.Sync().OnDrop(ctx, "unknown", "kind")
		return pgerrors.New(pgerrors.ErrCodeInvalidInput, "unknown message kind %q", msg.Kind)
	}
	observability.Sync().OnReceive(ctx, string(msg.Kind), len(msg.Data), err)
	if err != nil {
		return err
	}
	h.opts.Logger.Debug("applied sync message", "kind", msg.Kind, "scope", msg.Scope, "from", msg.From)
	if h.opts.OnApply != nil {
		h.opts.OnApply(msg.Kind)
	}
	return nil
}

func (h *Host) receiveGraph(ctx context.Context, msg Message) error {
	c, err := codec.ByName(msg.Format)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.applyLocked(c, msg.Data); err != nil {
		return err
	}
	// Count the received content as already pushed to the peer.
	if data, err := codec.EncodeGraph(h.opts.Codec, h.graph); err == nil {
		h.remember(ctx, h.pushKey(), cache.Hash(data))
	}
	return nil
}

func (h *Host) receiveNode(msg Message) error {
	c, err := codec.ByName(msg.Format)
	if err != nil {
		return err
	}
	rec, err := codec.Unmarshal(c, msg.Data)
	if err != nil {
		return err
	}
	if len(rec.Nodes) != 1 {
		return pgerrors.New(pgerrors.ErrCodeInvalidFormat, "node message carries %d nodes", len(rec.Nodes))
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.graphLocked().ApplyNode(rec.Nodes[0])
	return err
}

// Run handles messages addressed to the host's side until ctx is done.
// Rejected messages are logged and skipped.
func (h *Host) Run(ctx context.Context) error {
	if err := h.canSync("run"); err != nil {
		return err
	}
	ch, err := h.opts.Transport.Subscribe(ctx, h.opts.Side)
	if err != nil {
		return err
	}
	h.opts.Logger.Info("host listening", "scope", h.opts.Scope, "side", h.opts.Side)
	for msg := range ch {
		if err := h.Handle(ctx, msg); err != nil {
			h.opts.Logger.Warn("sync message rejected", "kind", msg.Kind, "id", msg.ID, "err", err)
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return ErrClosed
}

var _ nodegraph.Owner = (*Host)(nil)
