package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/pingraph/internal/metrics"
	"github.com/matzehuels/pingraph/pkg/buildinfo"
	"github.com/matzehuels/pingraph/pkg/cache"
	"github.com/matzehuels/pingraph/pkg/codec"
	pgerrors "github.com/matzehuels/pingraph/pkg/errors"
	"github.com/matzehuels/pingraph/pkg/nodegraph"
	"github.com/matzehuels/pingraph/pkg/nodes"
	"github.com/matzehuels/pingraph/pkg/observability"
	"github.com/matzehuels/pingraph/pkg/render/dot"
	"github.com/matzehuels/pingraph/pkg/store"
)

type fixture struct {
	srv   *httptest.Server
	store store.Store
	cache *cache.MemoryCache
}

func newFixture(t *testing.T, metricsHandler http.Handler) *fixture {
	t.Helper()
	reg := nodegraph.NewRegistry()
	require.NoError(t, nodes.Register(reg))
	st := store.NewMemoryStore()
	c := cache.NewMemoryCache()
	s := New(Options{
		Store:    st,
		Registry: reg,
		Renderer: dot.NewRenderer(c, nil, nil),
		Metrics:  metricsHandler,
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, store: st, cache: c}
}

func (f *fixture) do(t *testing.T, method, path, contentType string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return buf.Bytes()
}

func errorCode(t *testing.T, resp *http.Response) pgerrors.Code {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.Error)
	return body.Code
}

// snapshot encodes a two-node graph A.out -> B.in as JSON.
func snapshot(t *testing.T) []byte {
	t.Helper()
	g := nodegraph.New(nil)
	a := nodegraph.NewNode("A", nodegraph.NewPin("out", nodegraph.Output, nodegraph.KindInt))
	b := nodegraph.NewNode("B", nodegraph.NewPin("in", nodegraph.Input, nodegraph.KindInt))
	g.AddNode(a)
	g.AddNode(b)
	g.Link(a.Pin(0), b.Pin(0))
	data, err := codec.EncodeGraph(codec.Default, g)
	require.NoError(t, err)
	return data
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, nil)
	resp := f.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health healthBody
	require.NoError(t, json.Unmarshal(readBody(t, resp), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, buildinfo.Version, health.Build.Version)

	resp = f.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "metrics route only exists when configured")
}

func TestGraphLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	data := snapshot(t)

	resp := f.do(t, http.MethodPut, "/graphs/g1?name=demo", "application/json", data)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var doc store.Document
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, "g1", doc.ID)
	assert.Equal(t, "demo", doc.Name)
	assert.Equal(t, 2, doc.Nodes)
	assert.Empty(t, doc.Data)

	t.Run("ReplaceKeepsName", func(t *testing.T) {
		resp := f.do(t, http.MethodPut, "/graphs/g1", "", data)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var again store.Document
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&again))
		assert.Equal(t, "demo", again.Name)
		assert.Equal(t, doc.CreatedAt.Unix(), again.CreatedAt.Unix())
	})

	t.Run("GetRaw", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/graphs/g1", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		assert.Equal(t, data, readBody(t, resp))
	})

	t.Run("GetConverted", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/graphs/g1?format=yaml", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))
		yc, err := codec.ByName("yaml")
		require.NoError(t, err)
		rec, err := codec.Unmarshal(yc, readBody(t, resp))
		require.NoError(t, err)
		assert.Len(t, rec.Nodes, 2)
	})

	t.Run("List", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/graphs", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var docs []store.Document
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&docs))
		require.Len(t, docs, 1)
		assert.Equal(t, "g1", docs[0].ID)
		assert.Nil(t, docs[0].Data)
	})

	t.Run("Node", func(t *testing.T) {
		resp := f.do(t, http.MethodGet, "/graphs/g1/nodes/0", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var rec nodegraph.NodeRecord
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
		assert.Equal(t, "A", rec.Title)
		assert.Equal(t, nodegraph.NodeType, rec.Type)
		require.Len(t, rec.Pins, 1)
		assert.Equal(t, []int{3}, rec.Pins[0].ToLinks)

		resp = f.do(t, http.MethodGet, "/graphs/g1/nodes/99", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, pgerrors.ErrCodeNotFound, errorCode(t, resp))

		resp = f.do(t, http.MethodGet, "/graphs/g1/nodes/first", "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Delete", func(t *testing.T) {
		resp := f.do(t, http.MethodDelete, "/graphs/g1", "", nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = f.do(t, http.MethodGet, "/graphs/g1", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, pgerrors.ErrCodeNotFound, errorCode(t, resp))

		resp = f.do(t, http.MethodDelete, "/graphs/g1", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestListEmpty(t *testing.T) {
	f := newFixture(t, nil)
	resp := f.do(t, http.MethodGet, "/graphs", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(readBody(t, resp)))
}

func TestPutRejects(t *testing.T) {
	f := newFixture(t, nil)
	ghost := []byte(`{"nodes":[{"type":"ghost","node_id":0,"title":"x","pins":[]}],"center":[0,0]}`)

	tests := []struct {
		name   string
		path   string
		ct     string
		body   []byte
		status int
		code   pgerrors.Code
	}{
		{"bad id", "/graphs/-bad", "", snapshot(t), http.StatusBadRequest, pgerrors.ErrCodeInvalidID},
		{"bad format", "/graphs/g?format=xml", "", snapshot(t), http.StatusBadRequest, pgerrors.ErrCodeInvalidFormat},
		{"garbage", "/graphs/g", "application/json", []byte("not json"), http.StatusBadRequest, pgerrors.ErrCodeInvalidFormat},
		{"wrong content type", "/graphs/g", "application/yaml; charset=utf-8", []byte(`{"nodes": [`), http.StatusBadRequest, pgerrors.ErrCodeInvalidFormat},
		{"unknown type", "/graphs/g", "", ghost, http.StatusUnprocessableEntity, pgerrors.ErrCodeUnknownType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, http.MethodPut, tt.path, tt.ct, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, errorCode(t, resp))
		})
	}

	docs, err := f.store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs, "rejected uploads must not be stored")
}

func TestRender(t *testing.T) {
	f := newFixture(t, nil)
	resp := f.do(t, http.MethodPut, "/graphs/g1", "", snapshot(t))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = f.do(t, http.MethodGet, "/graphs/g1/render.dot?rankdir=tb&pins=true", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/vnd.graphviz", resp.Header.Get("Content-Type"))
	assert.Equal(t, "miss", resp.Header.Get("X-Cache"))
	src := string(readBody(t, resp))
	assert.Contains(t, src, "rankdir=TB")
	assert.Contains(t, src, "n0:p1:e -> n2:p3:w")

	resp = f.do(t, http.MethodGet, "/graphs/g1/render.dot?rankdir=tb&pins=true", "", nil)
	assert.Equal(t, "hit", resp.Header.Get("X-Cache"))
	assert.Equal(t, 1, f.cache.Len())

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"unknown format", "/graphs/g1/render.gif", http.StatusBadRequest},
		{"bad rankdir", "/graphs/g1/render.dot?rankdir=up", http.StatusBadRequest},
		{"bad pins", "/graphs/g1/render.dot?pins=maybe", http.StatusBadRequest},
		{"missing graph", "/graphs/nope/render.dot", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, http.MethodGet, tt.path, "", nil)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

type response struct {
	method, route string
	status        int
}

type recordingHTTPHooks struct {
	observability.NoopHTTPHooks
	mu        sync.Mutex
	responses []response
}

func (h *recordingHTTPHooks) OnResponse(_ context.Context, method, route string, status int, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.responses = append(h.responses, response{method, route, status})
}

func TestRequestHooksUseRoutePattern(t *testing.T) {
	hooks := &recordingHTTPHooks{}
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	f := newFixture(t, nil)
	f.do(t, http.MethodGet, "/graphs/a", "", nil)
	f.do(t, http.MethodGet, "/graphs/b/nodes/1", "", nil)
	f.do(t, http.MethodGet, "/nowhere", "", nil)

	hooks.mu.Lock()
	defer hooks.mu.Unlock()
	assert.Equal(t, []response{
		{http.MethodGet, "/graphs/{id}", http.StatusNotFound},
		{http.MethodGet, "/graphs/{id}/nodes/{nodeID}", http.StatusNotFound},
		{http.MethodGet, "unmatched", http.StatusNotFound},
	}, hooks.responses)
}

func TestMetricsEndpoint(t *testing.T) {
	collector := metrics.NewCollector("")
	collector.Install()
	defer observability.Reset()

	f := newFixture(t, collector.Handler())
	f.do(t, http.MethodGet, "/healthz", "", nil)

	resp := f.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := string(readBody(t, resp))
	assert.True(t, strings.Contains(body, `route="/healthz"`), "healthz request not counted:\n%s", body)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err    error
		code   pgerrors.Code
		status int
	}{
		{store.ErrNotFound, pgerrors.ErrCodeNotFound, http.StatusNotFound},
		{nodegraph.ErrUnsupported, pgerrors.ErrCodeUnsupported, http.StatusNotImplemented},
		{cache.ErrNetwork, pgerrors.ErrCodeNetwork, http.StatusBadGateway},
		{pgerrors.New(pgerrors.ErrCodeTimeout, "slow"), pgerrors.ErrCodeTimeout, http.StatusGatewayTimeout},
		{assert.AnError, pgerrors.ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		code, status := statusOf(tt.err)
		assert.Equal(t, tt.code, code, "%v", tt.err)
		assert.Equal(t, tt.status, status, "%v", tt.err)
	}
}
