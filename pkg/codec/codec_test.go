package codec

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/pingraph/pkg/errors"
	"github.com/matzehuels/pingraph/pkg/nodegraph"
	"github.com/matzehuels/pingraph/pkg/nodes"
)

func sampleGraph(t *testing.T) *nodegraph.Graph {
	t.Helper()
	g := nodegraph.New(nil)
	g.CenterX, g.CenterY = 12.5, -4

	v := nodes.NewVarNode(nodes.VarVec2)
	if err := v.Set("0.25, 8"); err != nil {
		t.Fatal(err)
	}
	tick := nodes.NewTickNode()
	tick.Rate = 5
	tick.SetPosition(100, 40)
	counter := nodes.NewCounterNode()
	counter.Ticks = 3
	plain := nodegraph.NewNode("plain",
		nodegraph.NewPin("in", nodegraph.Input, nodegraph.KindFloat),
		nodegraph.NewPin("out", nodegraph.Output, nodegraph.KindFloat),
	)
	for _, n := range []nodegraph.Node{v, tick, counter, plain} {
		if !g.AddNode(n) {
			t.Fatalf("AddNode(%v) failed", n)
		}
	}
	g.Link(tick.Out(), counter.PinByType(nodes.EventPinType))
	plain.PinByLabel("out").Base().AddLink(plain.PinByLabel("in"))
	return g
}

func TestRoundTrip(t *testing.T) {
	for _, name := range Formats() {
		t.Run(name, func(t *testing.T) {
			c, err := ByName(name)
			if err != nil {
				t.Fatal(err)
			}
			g := sampleGraph(t)
			data, err := EncodeGraph(c, g)
			if err != nil {
				t.Fatal(err)
			}

			h := nodegraph.New(nil)
			if err := DecodeGraph(c, data, h); err != nil {
				t.Fatalf("decode: %v\n%s", err, data)
			}
			if got, want := h.Encode(), g.Encode(); !reflect.DeepEqual(got, want) {
				t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", got, want)
			}
			if h.NextID() != g.NextID() {
				t.Errorf("NextID = %d, want %d", h.NextID(), g.NextID())
			}
			if _, ok := h.Node(1).(*nodes.TickNode); !ok {
				t.Errorf("node 1 decoded as %T", h.Node(1))
			}
		})
	}
}

func TestByName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"json", "json", false},
		{"YAML", "yaml", false},
		{"yml", "yaml", false},
		{" toml ", "toml", false},
		{"xml", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c, err := ByName(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ByName(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, errors.ErrCodeInvalidFormat) {
					t.Errorf("error code = %v", errors.GetCode(err))
				}
				return
			}
			if c.Format() != tt.want {
				t.Errorf("Format() = %q, want %q", c.Format(), tt.want)
			}
		})
	}
}

func TestForPath(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"graph.json", "json", false},
		{"dir/graph.YML", "yaml", false},
		{"/abs/graph.toml", "toml", false},
		{"graph", "", true},
		{"graph.txt", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			c, err := ForPath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ForPath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if err == nil && c.Format() != tt.want {
				t.Errorf("Format() = %q, want %q", c.Format(), tt.want)
			}
		})
	}
}

func TestMalformedInput(t *testing.T) {
	inputs := map[string]string{
		"json": `{"nodes": [`,
		"yaml": "nodes: [\n  - type: node\n    node_id: {",
		"toml": "[[nodes]\n",
	}
	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			c, _ := ByName(name)
			_, err := Unmarshal(c, []byte(in))
			if !errors.Is(err, errors.ErrCodeInvalidFormat) {
				t.Errorf("error = %v, want INVALID_FORMAT", err)
			}
		})
	}
}

func TestDecodeGraphErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		code errors.Code
	}{
		{
			name: "unknown node type",
			in:   `{"nodes": [{"type": "ghost", "node_id": 0, "pins": []}]}`,
			code: errors.ErrCodeUnknownType,
		},
		{
			name: "duplicate id",
			in:   `{"nodes": [{"type": "node", "node_id": 0, "pins": [{"type": "pin", "pin_id": 0, "kind": "int", "io": "input"}]}]}`,
			code: errors.ErrCodeInvalidFormat,
		},
		{
			name: "bad enum",
			in:   `{"nodes": [{"type": "node", "node_id": 0, "pins": [{"type": "pin", "pin_id": 1, "kind": "int", "io": "sideways"}]}]}`,
			code: errors.ErrCodeInvalidFormat,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := nodegraph.New(nil)
			g.AddNode(nodegraph.NewNode("keep"))
			err := DecodeGraph(Default, []byte(tt.in), g)
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
			if g.Len() != 1 || g.Node(0).Base().Title != "keep" {
				t.Error("failed decode changed the graph")
			}
		})
	}
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	g := sampleGraph(t)
	for _, name := range Formats() {
		path := filepath.Join(dir, "graph."+name)
		if err := WriteFile(path, g); err != nil {
			t.Fatal(err)
		}
		h, err := ReadFile(path, nil)
		if err != nil {
			t.Fatal(err)
		}
		if h.Len() != g.Len() {
			t.Errorf("%s: Len = %d, want %d", name, h.Len(), g.Len())
		}
	}
	if _, err := ReadFile(filepath.Join(dir, "missing.json"), nil); err == nil {
		t.Error("missing file should fail")
	}
}

func TestTOMLLayout(t *testing.T) {
	c, _ := ByName("toml")
	data, err := EncodeGraph(c, sampleGraph(t))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"[[nodes]]", "[[nodes.pins]]", `type = "tick"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("toml output missing %q", want)
		}
	}
}
