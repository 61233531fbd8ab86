// Package metrics exports observability hook events as Prometheus metrics.
//
// A [Collector] implements every hook interface of pkg/observability.
// [Collector.Install] routes all hooks to it; the server exposes
// [Collector.Handler] on /metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/pingraph/pkg/observability"
	"github.com/matzehuels/pingraph/pkg/store"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "pingraph"

// Collector holds all Prometheus metrics for the application.
type Collector struct {
	registry *prometheus.Registry

	// Graph metrics
	NodesAdded   *prometheus.CounterVec
	NodesRemoved *prometheus.CounterVec
	NodeVetoes   *prometheus.CounterVec
	Decodes      *prometheus.CounterVec

	// Store metrics
	StoreOps      *prometheus.CounterVec
	StoreDuration *prometheus.HistogramVec
	StoreBytes    *prometheus.HistogramVec

	// Cache metrics
	CacheRequests *prometheus.CounterVec
	CacheBytes    *prometheus.CounterVec

	// Sync metrics
	SyncMessages *prometheus.CounterVec
	SyncBytes    *prometheus.CounterVec
	SyncDrops    *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry. An empty
// namespace means [DefaultNamespace].
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
	}
	histogram := func(name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: namespace, Name: name, Help: help, Buckets: buckets}, labels)
	}
	sizeBuckets := prometheus.ExponentialBuckets(256, 4, 8)

	c := &Collector{
		registry: prometheus.NewRegistry(),

		NodesAdded:   counter("graph_nodes_added_total", "Nodes added to a graph", "type"),
		NodesRemoved: counter("graph_nodes_removed_total", "Nodes removed from a graph", "type"),
		NodeVetoes:   counter("graph_node_vetoes_total", "Adds and removes refused by a node hook", "type", "op"),
		Decodes:      counter("graph_decodes_total", "Full graph decodes", "status"),

		StoreOps:      counter("store_operations_total", "Graph store operations", "backend", "op", "status"),
		StoreDuration: histogram("store_operation_duration_seconds", "Graph store operation duration in seconds", prometheus.DefBuckets, "backend", "op"),
		StoreBytes:    histogram("store_saved_bytes", "Size of saved graph snapshots", sizeBuckets, "backend"),

		CacheRequests: counter("cache_requests_total", "Cache lookups", "key_type", "result"),
		CacheBytes:    counter("cache_written_bytes_total", "Bytes written to the cache", "key_type"),

		SyncMessages: counter("sync_messages_total", "Sync messages sent and received", "direction", "kind", "status"),
		SyncBytes:    counter("sync_bytes_total", "Sync payload bytes sent and received", "direction", "kind"),
		SyncDrops:    counter("sync_drops_total", "Sync updates that were not sent or applied", "kind", "reason"),

		HTTPRequests: counter("http_requests_total", "Total number of HTTP requests", "method", "route", "status"),
		HTTPDuration: histogram("http_request_duration_seconds", "HTTP request duration in seconds", prometheus.DefBuckets, "method", "route"),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.NodesAdded, c.NodesRemoved, c.NodeVetoes, c.Decodes,
		c.StoreOps, c.StoreDuration, c.StoreBytes,
		c.CacheRequests, c.CacheBytes,
		c.SyncMessages, c.SyncBytes, c.SyncDrops,
		c.HTTPRequests, c.HTTPDuration,
	)
	return c
}

// Registry returns the registry the metrics are registered with.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Install routes every observability hook to c.
func (c *Collector) Install() {
	observability.SetGraphHooks(c)
	observability.SetStoreHooks(c)
	observability.SetCacheHooks(c)
	observability.SetSyncHooks(c)
	observability.SetHTTPHooks(c)
}

func status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// =============================================================================
// Graph hooks
// =============================================================================

func (c *Collector) OnNodeAdded(nodeType string, _, _ int) {
	c.NodesAdded.WithLabelValues(nodeType).Inc()
}

func (c *Collector) OnNodeRemoved(nodeType string, _ int) {
	c.NodesRemoved.WithLabelValues(nodeType).Inc()
}

func (c *Collector) OnNodeVetoed(nodeType, op string) {
	c.NodeVetoes.WithLabelValues(nodeType, op).Inc()
}

func (c *Collector) OnDecode(_ int, err error) {
	c.Decodes.WithLabelValues(status(err)).Inc()
}

// =============================================================================
// Store hooks
// =============================================================================

func (c *Collector) OnLoad(_ context.Context, backend string, d time.Duration, err error) {
	c.StoreOps.WithLabelValues(backend, "load", status(err)).Inc()
	c.StoreDuration.WithLabelValues(backend, "load").Observe(d.Seconds())
}

func (c *Collector) OnSave(_ context.Context, backend string, size int, d time.Duration, err error) {
	c.StoreOps.WithLabelValues(backend, "save", status(err)).Inc()
	c.StoreDuration.WithLabelValues(backend, "save").Observe(d.Seconds())
	if err == nil {
		c.StoreBytes.WithLabelValues(backend).Observe(float64(size))
	}
}

func (c *Collector) OnDelete(_ context.Context, backend string, err error) {
	c.StoreOps.WithLabelValues(backend, "delete", status(err)).Inc()
}

// =============================================================================
// Cache hooks
// =============================================================================

func (c *Collector) OnCacheHit(_ context.Context, keyType string) {
	c.CacheRequests.WithLabelValues(keyType, "hit").Inc()
}

func (c *Collector) OnCacheMiss(_ context.Context, keyType string) {
	c.CacheRequests.WithLabelValues(keyType, "miss").Inc()
}

func (c *Collector) OnCacheSet(_ context.Context, keyType string, size int) {
	c.CacheBytes.WithLabelValues(keyType).Add(float64(size))
}

// =============================================================================
// Sync hooks
// =============================================================================

func (c *Collector) OnPush(_ context.Context, kind string, size int, err error) {
	c.SyncMessages.WithLabelValues("out", kind, status(err)).Inc()
	if err == nil {
		c.SyncBytes.WithLabelValues("out", kind).Add(float64(size))
	}
}

func (c *Collector) OnReceive(_ context.Context, kind string, size int, err error) {
	c.SyncMessages.WithLabelValues("in", kind, status(err)).Inc()
	if err == nil {
		c.SyncBytes.WithLabelValues("in", kind).Add(float64(size))
	}
}

func (c *Collector) OnDrop(_ context.Context, kind, reason string) {
	c.SyncDrops.WithLabelValues(kind, reason).Inc()
}

// =============================================================================
// HTTP hooks
// =============================================================================

func (c *Collector) OnResponse(_ context.Context, method, route string, code int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.GraphHooks = (*Collector)(nil)
	_ observability.StoreHooks = (*Collector)(nil)
	_ observability.CacheHooks = (*Collector)(nil)
	_ observability.SyncHooks  = (*Collector)(nil)
	_ observability.HTTPHooks  = (*Collector)(nil)
)
