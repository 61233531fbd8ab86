package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/pingraph/pkg/observability"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "push:graph", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "push:graph")
	if err != nil || hit || data != nil {
		t.Errorf("Get = %q, %v, %v; want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "push:graph"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	buf := []byte("abc")
	if err := c.Set(ctx, "k", buf, time.Minute); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'X'
	got, hit, _ := c.Get(ctx, "k")
	if !hit || string(got) != "abc" {
		t.Errorf("Get = %q, %v; want stored copy", got, hit)
	}

	now = now.Add(2 * time.Minute)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d after expiry", c.Len())
	}

	_ = c.Set(ctx, "forever", []byte("x"), 0)
	now = now.Add(100 * time.Hour)
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("entry without ttl should not expire")
	}
	_ = c.Delete(ctx, "forever")
	if _, hit, _ := c.Get(ctx, "forever"); hit {
		t.Error("deleted entry should miss")
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, err := NewFileCache(filepath.Join(dir, "nested"))
	if err != nil {
		t.Fatal(err)
	}

	if _, hit, err := c.Get(ctx, "artifact:a"); hit || err != nil {
		t.Fatalf("empty cache Get = %v, %v", hit, err)
	}
	if err := c.Set(ctx, "artifact:a", []byte("<svg/>"), 0); err != nil {
		t.Fatal(err)
	}
	got, hit, err := c.Get(ctx, "artifact:a")
	if err != nil || !hit || string(got) != "<svg/>" {
		t.Errorf("Get = %q, %v, %v", got, hit, err)
	}

	if err := c.Set(ctx, "artifact:old", []byte("x"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if _, hit, _ := c.Get(ctx, "artifact:old"); hit {
		t.Error("expired entry should miss")
	}

	if err := c.Delete(ctx, "artifact:a"); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, "artifact:a"); err != nil {
		t.Errorf("deleting a missing key: %v", err)
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	_ = c.Set(ctx, "k", []byte("v"), 0)

	path := c.path("k")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry Get = %v, %v; want miss", hit, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt entry should be removed")
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	for _, k := range []string{"a", "b", "c"} {
		_ = c.Set(ctx, k, []byte(k), 0)
	}
	n, err := c.Clear()
	if err != nil || n != 3 {
		t.Errorf("Clear = %d, %v; want 3", n, err)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("Clear left an entry behind")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	if got := k.SnapshotKey("factory"); got != "snapshot:factory" {
		t.Errorf("SnapshotKey = %s", got)
	}
	if got := k.PushKey("server/graph"); got != "push:server/graph" {
		t.Errorf("PushKey = %s", got)
	}
	a1 := k.ArtifactKey("hash", ArtifactKeyOpts{Format: "svg"})
	a2 := k.ArtifactKey("hash", ArtifactKeyOpts{Format: "svg", ShowPins: true})
	if a1 == a2 {
		t.Error("Different ArtifactKeyOpts should produce different keys")
	}
	if !strings.HasPrefix(a1, "artifact:") {
		t.Errorf("ArtifactKey = %s", a1)
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(nil, "tenant:")
	if got := scoped.SnapshotKey("g"); got != "tenant:snapshot:g" {
		t.Errorf("SnapshotKey = %s", got)
	}
	if got := scoped.ArtifactKey("h", ArtifactKeyOpts{}); !strings.HasPrefix(got, "tenant:artifact:") {
		t.Errorf("ArtifactKey = %s", got)
	}
}

type countingHooks struct {
	observability.NoopCacheHooks
	hits, misses map[string]int
}

func (h *countingHooks) OnCacheHit(_ context.Context, kind string)  { h.hits[kind]++ }
func (h *countingHooks) OnCacheMiss(_ context.Context, kind string) { h.misses[kind]++ }

func TestCacheHooks(t *testing.T) {
	hooks := &countingHooks{hits: map[string]int{}, misses: map[string]int{}}
	observability.SetCacheHooks(hooks)
	t.Cleanup(observability.Reset)

	ctx := context.Background()
	c := NewMemoryCache()
	_, _, _ = c.Get(ctx, "push:a")
	_ = c.Set(ctx, "push:a", []byte("1"), 0)
	_, _, _ = c.Get(ctx, "push:a")
	_, _, _ = c.Get(ctx, "nokind")

	if hooks.hits["push"] != 1 || hooks.misses["push"] != 1 || hooks.misses["other"] != 1 {
		t.Errorf("hits=%v misses=%v", hooks.hits, hooks.misses)
	}
}

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}
	err := Retryable(ErrNetwork)
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}
	if IsRetryable(ErrNetwork) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()
	fast := Backoff{Attempts: 3, Delay: time.Millisecond}

	calls := 0
	err := RetryWithBackoff(ctx, fast, func() error {
		calls++
		if calls < 3 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Errorf("err = %v, calls = %d; want success on third call", err, calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, fast, func() error {
		calls++
		return ErrNetwork
	})
	if err != ErrNetwork || calls != 1 {
		t.Errorf("err = %v, calls = %d; non-retryable error should stop at once", err, calls)
	}

	calls = 0
	err = RetryWithBackoff(ctx, fast, func() error {
		calls++
		return Retryable(ErrNetwork)
	})
	if !IsRetryable(err) || calls != 3 {
		t.Errorf("err = %v, calls = %d; want last error after 3 calls", err, calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RetryWithBackoff(ctx, Backoff{Attempts: 2, Delay: time.Hour}, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}
