package host

import (
	"context"
	"errors"
	"sync"

	"github.com/matzehuels/pingraph/pkg/nodegraph"
)

// ErrClosed is returned by a transport after Close.
var ErrClosed = errors.New("transport closed")

// Transport delivers messages to the hosts subscribed on a side.
type Transport interface {
	// Send delivers msg to every subscriber on side to.
	Send(ctx context.Context, to nodegraph.Side, msg Message) error

	// Subscribe returns a channel of messages addressed to side. The channel
	// is closed when ctx is done or the transport is closed.
	Subscribe(ctx context.Context, side nodegraph.Side) (<-chan Message, error)

	Close() error
}

// DefaultBuffer is the channel capacity of a [MemoryTransport] subscription.
const DefaultBuffer = 64

// MemoryTransport connects hosts living in the same process.
type MemoryTransport struct {
	mu     sync.RWMutex
	subs   map[nodegraph.Side][]*memorySub
	closed bool
	quit   chan struct{}
}

type memorySub struct {
	ch   chan Message
	done chan struct{}
}

// NewMemoryTransport returns an open in-process transport.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{
		subs: make(map[nodegraph.Side][]*memorySub),
		quit: make(chan struct{}),
	}
}

// Send blocks until every subscriber on side to has room for msg, or ctx
// is done. A side without subscribers drops the message.
func (t *MemoryTransport) Send(ctx context.Context, to nodegraph.Side, msg Message) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return ErrClosed
	}
	for _, sub := range t.subs[to] {
		select {
		case sub.ch <- msg:
		case <-sub.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers a subscription on side with a [DefaultBuffer] slot
// channel. The subscription ends when ctx is done or the transport closes.
func (t *MemoryTransport) Subscribe(ctx context.Context, side nodegraph.Side) (<-chan Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}
	sub := &memorySub{ch: make(chan Message, DefaultBuffer), done: make(chan struct{})}
	t.subs[side] = append(t.subs[side], sub)

	go func() {
		select {
		case <-ctx.Done():
		case <-t.quit:
		}
		close(sub.done)
		t.unsubscribe(side, sub)
	}()
	return sub.ch, nil
}

func (t *MemoryTransport) unsubscribe(side nodegraph.Side, sub *memorySub) {
	t.mu.Lock()
	defer t.mu.Unlock()
	subs := t.subs[side]
	for i, s := range subs {
		if s == sub {
			t.subs[side] = append(subs[:i], subs[i+1:]...)
			close(sub.ch)
			return
		}
	}
}

// Subscribers returns the number of live subscriptions on side.
func (t *MemoryTransport) Subscribers(side nodegraph.Side) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs[side])
}

// Close ends every subscription.
func (t *MemoryTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	close(t.quit)
	return nil
}

var _ Transport = (*MemoryTransport)(nil)
