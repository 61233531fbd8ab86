package host

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pingraph/pkg/nodegraph"
)

func TestMemoryTransportRoutesBySide(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr := NewMemoryTransport()

	a, err := tr.Subscribe(ctx, nodegraph.Client)
	require.NoError(t, err)
	b, err := tr.Subscribe(ctx, nodegraph.Client)
	require.NoError(t, err)
	s, err := tr.Subscribe(ctx, nodegraph.Server)
	require.NoError(t, err)

	require.NoError(t, tr.Send(ctx, nodegraph.Client, Message{ID: "1"}))
	assert.Equal(t, "1", receive(t, a).ID)
	assert.Equal(t, "1", receive(t, b).ID)
	assert.Empty(t, s)

	// No subscriber: the message is dropped without error.
	require.NoError(t, tr.Send(ctx, nodegraph.Neither, Message{ID: "2"}))
}

func TestMemoryTransportUnsubscribe(t *testing.T) {
	tr := NewMemoryTransport()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := tr.Subscribe(ctx, nodegraph.Server)
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Subscribers(nodegraph.Server))

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after cancel")
	}
	assert.Equal(t, 0, tr.Subscribers(nodegraph.Server))
}

func TestMemoryTransportFullSubscriber(t *testing.T) {
	tr := NewMemoryTransport()
	_, err := tr.Subscribe(context.Background(), nodegraph.Server)
	require.NoError(t, err)
	for i := 0; i < DefaultBuffer; i++ {
		require.NoError(t, tr.Send(context.Background(), nodegraph.Server, Message{}))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, tr.Send(ctx, nodegraph.Server, Message{}), context.DeadlineExceeded)
	require.NoError(t, tr.Close())
}

func TestMemoryTransportClose(t *testing.T) {
	tr := NewMemoryTransport()
	ch, err := tr.Subscribe(context.Background(), nodegraph.Client)
	require.NoError(t, err)
	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed by Close")
	}
	_, err = tr.Subscribe(context.Background(), nodegraph.Client)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, tr.Send(context.Background(), nodegraph.Client, Message{}), ErrClosed)
}
