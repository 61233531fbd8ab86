//go:build integration

package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
)

func TestRedisStoreIntegration(t *testing.T) {
	addr := os.Getenv("PINGRAPH_TEST_REDIS")
	if addr == "" {
		addr = "localhost:6379"
	}
	ctx := context.Background()
	s, err := NewRedisStore(ctx, addr, "pingraph-test:"+uuid.NewString()+":")
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer s.Close()
	testStore(t, s)
}

func TestMongoStoreIntegration(t *testing.T) {
	uri := os.Getenv("PINGRAPH_TEST_MONGO")
	if uri == "" {
		uri = DefaultMongoURI
	}
	ctx := context.Background()
	db := "pingraph_test_" + uuid.NewString()[:8]
	s, err := NewMongoStore(ctx, uri, db)
	if err != nil {
		t.Skipf("mongo not available: %v", err)
	}
	defer func() {
		_ = s.client.Database(db).Drop(ctx)
		s.Close()
	}()
	testStore(t, s)
}
