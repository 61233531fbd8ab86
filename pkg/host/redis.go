package host

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/pingraph/pkg/cache"
	"github.com/matzehuels/pingraph/pkg/nodegraph"
)

// DefaultChannel prefixes the pub/sub channels of a [RedisTransport]. The
// full channel name appends ":" and the side name.
const DefaultChannel = "pingraph:sync"

// RedisTransport moves messages over Redis pub/sub.
type RedisTransport struct {
	client  *redis.Client
	channel string
	owned   bool
	logger  *log.Logger
}

// NewRedisTransport connects to addr and checks the server answers.
func NewRedisTransport(ctx context.Context, addr, channel string, logger *log.Logger) (*RedisTransport, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := cache.PingRedis(ctx, client, addr); err != nil {
		_ = client.Close()
		return nil, err
	}
	t := NewRedisTransportFromClient(client, channel, logger)
	t.owned = true
	return t, nil
}

// NewRedisTransportFromClient wraps an existing client. Close leaves the
// client open.
func NewRedisTransportFromClient(client *redis.Client, channel string, logger *log.Logger) *RedisTransport {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RedisTransport{client: client, channel: channel, logger: logger}
}

func (t *RedisTransport) topic(side nodegraph.Side) string {
	return t.channel + ":" + side.String()
}

func (t *RedisTransport) Send(ctx context.Context, to nodegraph.Side, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	err = cache.RetryWithBackoff(ctx, cache.DefaultBackoff, func() error {
		return cache.Retryable(t.client.Publish(ctx, t.topic(to), data).Err())
	})
	if err != nil {
		return fmt.Errorf("redis publish: %w: %v", cache.ErrNetwork, err)
	}
	return nil
}

// Subscribe waits for Redis to confirm the subscription before returning,
// so a message published afterwards is not missed.
func (t *RedisTransport) Subscribe(ctx context.Context, side nodegraph.Side) (<-chan Message, error) {
	ps := t.client.Subscribe(ctx, t.topic(side))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w: %v", cache.ErrNetwork, err)
	}

	out := make(chan Message, DefaultBuffer)
	go func() {
		defer close(out)
		defer ps.Close()
		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-in:
				if !ok {
					return
				}
				var msg Message
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					t.logger.Warn("dropping malformed sync message", "channel", m.Channel, "err", err)
					continue
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (t *RedisTransport) Close() error {
	if t.owned {
		return t.client.Close()
	}
	return nil
}

var _ Transport = (*RedisTransport)(nil)
