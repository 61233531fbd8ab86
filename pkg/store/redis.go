package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/pingraph/pkg/cache"
)

// DefaultRedisPrefix namespaces document keys when no prefix is configured.
const DefaultRedisPrefix = "pingraph:graph:"

// RedisStore keeps each document as a JSON string under prefix+id and
// tracks ids in the set prefix+"index".
type RedisStore struct {
	client *redis.Client
	prefix string
	owned  bool
}

// NewRedisStore connects to addr and checks the server answers.
func NewRedisStore(ctx context.Context, addr, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := cache.PingRedis(ctx, client, addr); err != nil {
		_ = client.Close()
		return nil, err
	}
	s := NewRedisStoreFromClient(client, prefix)
	s.owned = true
	return s, nil
}

// NewRedisStoreFromClient wraps an existing client. Close leaves the
// client open.
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(id string) string { return s.prefix + id }
func (s *RedisStore) index() string       { return s.prefix + "index" }

func (s *RedisStore) Get(ctx context.Context, id string) (*Document, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w: %v", id, cache.ErrNetwork, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse graph %s: %w", id, err)
	}
	return &doc, nil
}

func (s *RedisStore) Put(ctx context.Context, doc *Document) error {
	var created = doc.CreatedAt
	if doc.ID != "" {
		old, err := s.Get(ctx, doc.ID)
		switch {
		case err == nil:
			created = old.CreatedAt
		case !errors.Is(err, ErrNotFound):
			return err
		}
	}
	if err := prepare(doc, created); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal graph: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(doc.ID), data, 0)
		pipe.SAdd(ctx, s.index(), doc.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w: %v", doc.ID, cache.ErrNetwork, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.key(id))
		pipe.SRem(ctx, s.index(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis del %s: %w: %v", id, cache.ErrNetwork, err)
	}
	if del.Val() == 0 {
		return notFound(id)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]Document, error) {
	ids, err := s.client.SMembers(ctx, s.index()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w: %v", cache.ErrNetwork, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget: %w: %v", cache.ErrNetwork, err)
	}
	out := make([]Document, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a document; the key expired or was
			// removed behind our back.
			continue
		}
		var doc Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("parse graph %s: %w", ids[i], err)
		}
		out = append(out, doc.Summary())
	}
	sortByID(out)
	return out, nil
}

func (s *RedisStore) Close() error {
	if s.owned {
		return s.client.Close()
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
