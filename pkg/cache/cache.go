// Package cache provides byte caches for rendered graphs and sync state.
//
// A [Cache] maps string keys to byte slices with an optional TTL. Three
// implementations ship with the package:
//
//   - [FileCache] keeps entries as JSON files under a directory; the CLI
//     uses it for rendered SVG output.
//   - [MemoryCache] keeps entries in a map; hosts use it to skip pushing
//     a snapshot the other side already has.
//   - [RedisCache] keeps entries in Redis so several server processes
//     share rendered artifacts.
//
// [NullCache] never stores anything and disables caching.
//
// Keys are built by a [Keyer]. Every key starts with its kind ("snapshot",
// "artifact" or "push") followed by a colon; the kind is reported to
// [observability.CacheHooks] on every hit, miss and write.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/matzehuels/pingraph/pkg/observability"
)

// Cache stores byte values by key.
type Cache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero keeps it until deleted.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources held by the cache.
	Close() error
}

// Keyer builds cache keys.
type Keyer interface {
	// SnapshotKey names the encoded snapshot of a stored graph.
	SnapshotKey(graphID string) string
	// ArtifactKey names a rendering of the snapshot with the given hash.
	ArtifactKey(snapshotHash string, opts ArtifactKeyOpts) string
	// PushKey names the last snapshot hash pushed on a channel scope.
	PushKey(scope string) string
}

// ArtifactKeyOpts are the render options that change an artifact.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Rankdir  string `json:"rankdir,omitempty"`
	ShowPins bool   `json:"show_pins,omitempty"`
}

// DefaultKeyer is the standard [Keyer].
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

func (DefaultKeyer) SnapshotKey(graphID string) string {
	return "snapshot:" + graphID
}

func (DefaultKeyer) ArtifactKey(snapshotHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", snapshotHash, opts)
}

func (DefaultKeyer) PushKey(scope string) string {
	return "push:" + scope
}

// keyType returns the kind prefix of key.
func keyType(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "other"
}

func recordGet(ctx context.Context, key string, hit bool) {
	if hit {
		observability.Cache().OnCacheHit(ctx, keyType(key))
	} else {
		observability.Cache().OnCacheMiss(ctx, keyType(key))
	}
}

func recordSet(ctx context.Context, key string, size int) {
	observability.Cache().OnCacheSet(ctx, keyType(key), size)
}
