//go:build integration

package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestRedisCacheIntegration(t *testing.T) {
	addr := os.Getenv("PINGRAPH_TEST_REDIS")
	if addr == "" {
		addr = "localhost:6379"
	}
	ctx := context.Background()
	c, err := NewRedisCache(ctx, addr)
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer c.Close()

	key := "artifact:integration-" + Hash([]byte(t.Name()))[:8]
	defer c.Delete(ctx, key)

	if _, hit, err := c.Get(ctx, key); hit || err != nil {
		t.Fatalf("fresh key Get = %v, %v", hit, err)
	}
	if err := c.Set(ctx, key, []byte("<svg/>"), time.Minute); err != nil {
		t.Fatal(err)
	}
	got, hit, err := c.Get(ctx, key)
	if err != nil || !hit || string(got) != "<svg/>" {
		t.Errorf("Get = %q, %v, %v", got, hit, err)
	}
}
