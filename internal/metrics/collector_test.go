package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/pingraph/pkg/nodegraph"
	"github.com/matzehuels/pingraph/pkg/observability"
	"github.com/matzehuels/pingraph/pkg/store"
)

func TestCollectorRecordsHooks(t *testing.T) {
	c := NewCollector("")
	ctx := context.Background()

	c.OnNodeAdded("tick", 0, 3)
	c.OnNodeAdded("tick", 4, 3)
	c.OnNodeVetoed("var", "remove")
	c.OnDecode(2, nil)
	c.OnLoad(ctx, "sqlite", time.Millisecond, fmt.Errorf("g1: %w", store.ErrNotFound))
	c.OnSave(ctx, "sqlite", 1024, time.Millisecond, nil)
	c.OnCacheHit(ctx, "artifact")
	c.OnCacheMiss(ctx, "artifact")
	c.OnPush(ctx, "graph", 100, nil)
	c.OnPush(ctx, "node", 10, errors.New("offline"))
	c.OnDrop(ctx, "graph", "unchanged")
	c.OnResponse(ctx, "GET", "/graphs/{id}", 404, time.Millisecond)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"nodes added", testutil.ToFloat64(c.NodesAdded.WithLabelValues("tick")), 2},
		{"vetoes", testutil.ToFloat64(c.NodeVetoes.WithLabelValues("var", "remove")), 1},
		{"decodes", testutil.ToFloat64(c.Decodes.WithLabelValues("ok")), 1},
		{"load not found", testutil.ToFloat64(c.StoreOps.WithLabelValues("sqlite", "load", "not_found")), 1},
		{"save ok", testutil.ToFloat64(c.StoreOps.WithLabelValues("sqlite", "save", "ok")), 1},
		{"cache hit", testutil.ToFloat64(c.CacheRequests.WithLabelValues("artifact", "hit")), 1},
		{"cache miss", testutil.ToFloat64(c.CacheRequests.WithLabelValues("artifact", "miss")), 1},
		{"push bytes", testutil.ToFloat64(c.SyncBytes.WithLabelValues("out", "graph")), 100},
		{"push failed", testutil.ToFloat64(c.SyncMessages.WithLabelValues("out", "node", "error")), 1},
		{"drops", testutil.ToFloat64(c.SyncDrops.WithLabelValues("graph", "unchanged")), 1},
		{"http", testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/graphs/{id}", "404")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestInstallRoutesGraphEvents(t *testing.T) {
	c := NewCollector("test")
	c.Install()
	defer observability.Reset()

	g := nodegraph.New(nil)
	n := nodegraph.NewNode("n")
	g.AddNode(n)
	g.RemoveNode(n)

	if got := testutil.ToFloat64(c.NodesAdded.WithLabelValues(nodegraph.NodeType)); got != 1 {
		t.Errorf("nodes added = %v", got)
	}
	if got := testutil.ToFloat64(c.NodesRemoved.WithLabelValues(nodegraph.NodeType)); got != 1 {
		t.Errorf("nodes removed = %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector("")
	c.OnCacheSet(context.Background(), "snapshot", 42)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `pingraph_cache_written_bytes_total{key_type="snapshot"} 42`) {
		t.Errorf("metrics output missing cache bytes:\n%s", body)
	}
}
