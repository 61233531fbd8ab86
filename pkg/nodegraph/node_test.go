package nodegraph

import (
	"errors"
	"testing"
)

// flowPin is a minimal pin variant used to exercise type lookups.
type flowPin struct{ PinBase }

func newFlowPin(io IO) *flowPin {
	return &flowPin{PinBase: NewPinBase("flow", io, KindFlow)}
}

func (p *flowPin) TypeTag() string { return "flow" }

// sinkNode is a node variant that linked-node lookups can match.
type sinkNode struct{ NodeBase }

func (s *sinkNode) TypeTag() string { return "sink" }

// recordingOwner captures pushed nodes.
type recordingOwner struct {
	pushed []Node
	err    error
}

func (o *recordingOwner) PushNode(n Node) error {
	o.pushed = append(o.pushed, n)
	return o.err
}

func TestNodeIndexAccess(t *testing.T) {
	p0 := NewPin("a", Input, KindInt)
	p1 := NewPin("b", Output, KindInt)
	n := NewNode("n", p0, p1)

	if n.Count() != 2 || !n.HasPins() {
		t.Fatalf("Count = %d", n.Count())
	}
	if n.Pin(0).Base() != p0 || n.Pin(1).Base() != p1 {
		t.Error("Pin(i) returned wrong pin")
	}
	for _, i := range []int{-1, 2, 100} {
		if !n.Pin(i).IsEmpty() {
			t.Errorf("Pin(%d) should be EmptyPin", i)
		}
	}
	if NewNode("bare").HasPins() {
		t.Error("bare node should have no pins")
	}
}

func TestNodeDefaults(t *testing.T) {
	n := NewNode("n")
	if n.TitleColor != "#ffffff" || n.HeaderColor != "#8c8c8c" {
		t.Errorf("colours = %s %s", n.TitleColor, n.HeaderColor)
	}
	if n.Placed() || n.GraphX != Unset {
		t.Error("new node should be unplaced")
	}
	if n.ID() != NoID || n.Attached() || !n.Graph().IsEmpty() {
		t.Error("new node should be unattached")
	}
}

func TestPinLookups(t *testing.T) {
	g := New(nil)
	in := NewPin("in", Input, KindInt)
	flow := newFlowPin(Input)
	out := NewPin("out", Output, KindInt)
	dup := NewPin("in", Output, KindBool)
	n := NewNode("n", in, flow, out, dup)
	g.AddNode(n)

	tests := []struct {
		name string
		got  Pin
		want Pin
	}{
		{"by id", n.PinByID(out.ID()), out},
		{"by id missing", n.PinByID(999), EmptyPin},
		{"by id negative", n.PinByID(-1), EmptyPin},
		{"by label first wins", n.PinByLabel("in"), in},
		{"by label", n.PinByLabel("out"), out},
		{"by label missing", n.PinByLabel("nope"), EmptyPin},
		{"by type", n.PinByType("flow"), flow},
		{"by base type", n.PinByType(PinType), in},
		{"by type missing", n.PinByType("other"), EmptyPin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.Base() != tt.want.Base() {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	// Second round goes through the caches and must agree.
	if n.PinByLabel("in").Base() != in || n.PinByType("flow").Base() != flow.Base() {
		t.Error("cached lookups disagree with scans")
	}
	if !n.HasPinID(flow.ID()) || !n.HasPinLabel("out") || !n.HasPinType("flow") {
		t.Error("Has* lookups should succeed")
	}

	got, ok := PinOf[*flowPin](n)
	if !ok || got != flow {
		t.Errorf("PinOf = %v, %v", got, ok)
	}
	if _, ok := PinOf[*flowPin](NewNode("none")); ok {
		t.Error("PinOf on a node without the variant should fail")
	}
}

func TestPinLookupCachesFollowMutation(t *testing.T) {
	g := New(nil)
	a := NewPin("a", Input, KindInt)
	n := NewNode("n", a)
	g.AddNode(n)

	// Prime caches with misses and hits.
	_ = n.PinByLabel("b")
	_ = n.PinByType("flow")
	_ = n.PinByID(a.ID())

	b := NewPin("b", Output, KindInt)
	n.AddPin(b)
	if n.PinByLabel("b").Base() != b {
		t.Error("label lookup missed a pin added after caching")
	}
	if b.ID() < 0 || n.PinByID(b.ID()).Base() != b {
		t.Errorf("pin added to attached node should get an id, got %d", b.ID())
	}
	if g.FindPin(b.ID()).Base() != b {
		t.Error("graph should resolve a pin added after attach")
	}
	f := newFlowPin(Input)
	n.AddPin(f)
	if n.PinByType("flow").Base() != &f.PinBase {
		t.Error("type lookup missed a pin added after caching")
	}

	if !n.RemovePin(a) {
		t.Fatal("RemovePin returned false")
	}
	if !n.PinByID(a.ID()).IsEmpty() || !n.PinByLabel("a").IsEmpty() {
		t.Error("lookups returned a removed pin")
	}
	if !g.FindPin(a.ID()).IsEmpty() {
		t.Error("graph still resolves a removed pin")
	}

	// Renaming invalidates the label entry on the next lookup.
	b.Label = "renamed"
	if !n.PinByLabel("b").IsEmpty() {
		t.Error("lookup by old label should miss after rename")
	}
	if n.PinByLabel("renamed").Base() != b {
		t.Error("lookup by new label should hit")
	}
}

func TestRemovePinClearsLinks(t *testing.T) {
	g, a, b, c := chain(t)
	owner := g.FindNode(b.NodeID()).Base()
	if !owner.RemovePin(b) {
		t.Fatal("RemovePin returned false")
	}
	if a.HasToLinks() || c.HasToLinks() {
		t.Error("removing a pin should clear its peers' links")
	}
	if owner.RemovePin(b) {
		t.Error("removing twice should fail")
	}
}

func TestLinkedNode(t *testing.T) {
	g := New(nil)
	src := NewNode("src",
		NewPin("in", Input, KindInt),
		NewPin("out", Output, KindInt),
	)
	plain := NewNode("plain", NewPin("in", Input, KindInt))
	sink := &sinkNode{NodeBase: NewNodeBase("sink")}
	sink.AddPin(NewPin("in", Input, KindInt))
	back := &sinkNode{NodeBase: NewNodeBase("back")}
	back.AddPin(NewPin("out", Output, KindInt))
	for _, n := range []Node{src, plain, sink, back} {
		g.AddNode(n)
	}

	out := src.Pin(1).Base()
	out.AddLink(plain.Pin(0))
	out.AddLink(sink.Pin(0))
	// An incoming link from a sink must not count: only outputs are followed.
	back.Pin(0).Base().AddLink(src.Pin(0))

	if got := src.LinkedNode("sink"); got.Base() != &sink.NodeBase {
		t.Errorf("LinkedNode(sink) = %v", got)
	}
	if got := src.LinkedNode(NodeType); got.Base() != plain {
		t.Errorf("LinkedNode(node) = %v", got)
	}
	if !src.LinkedNode("missing").IsEmpty() || src.HasLinkedNode("missing") {
		t.Error("LinkedNode should miss unknown tags")
	}
	if !plain.LinkedNode("sink").IsEmpty() {
		t.Error("node without outputs should find nothing")
	}

	got, ok := LinkedNodeOf[*sinkNode](src)
	if !ok || got != sink {
		t.Errorf("LinkedNodeOf = %v, %v", got, ok)
	}

	if !NewNode("detached").LinkedNode(NodeType).IsEmpty() {
		t.Error("detached node should find nothing")
	}
}

func TestPushUpdate(t *testing.T) {
	n := NewNode("n")
	if err := n.PushUpdate(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("detached push error = %v, want ErrUnsupported", err)
	}

	g := New(nil)
	g.AddNode(n)
	if err := n.PushUpdate(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("ownerless push error = %v, want ErrUnsupported", err)
	}

	owner := &recordingOwner{}
	g.SetOwner(owner)
	if err := n.PushUpdate(); !errors.Is(err, ErrUnsupported) {
		t.Errorf("side-less push error = %v, want ErrUnsupported", err)
	}

	g.Side = Client
	if err := n.PushUpdate(); err != nil {
		t.Fatalf("push: %v", err)
	}
	if len(owner.pushed) != 1 || owner.pushed[0].Base() != n {
		t.Errorf("owner received %v", owner.pushed)
	}

	owner.err = errors.New("offline")
	defer func() {
		if recover() == nil {
			t.Error("MustPushUpdate should panic on error")
		}
	}()
	n.MustPushUpdate()
}

func TestPushUpdateSendsVariant(t *testing.T) {
	g := New(nil)
	g.Side = Server
	owner := &recordingOwner{}
	g.SetOwner(owner)
	s := &sinkNode{NodeBase: NewNodeBase("s")}
	g.AddNode(s)

	if err := s.PushUpdate(); err != nil {
		t.Fatal(err)
	}
	if _, ok := owner.pushed[0].(*sinkNode); !ok {
		t.Errorf("owner got %T, want *sinkNode", owner.pushed[0])
	}
}

func TestNodeDecodeUnknownPinKeepsNode(t *testing.T) {
	n := NewNode("n", NewPin("keep", Input, KindInt))
	rec := NodeRecord{ID: 4, Title: "other", Pins: []PinRecord{{Type: "ghost"}}}
	if err := n.Decode(rec, nil); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("error = %v, want ErrUnknownType", err)
	}
	if n.Title != "n" || n.PinByLabel("keep").IsEmpty() {
		t.Error("failed decode modified the node")
	}
}

func TestNodeDecodeStampsPins(t *testing.T) {
	n := NewNode("")
	rec := NodeRecord{ID: 4, Title: "t", Pins: []PinRecord{{Type: PinType, NodeID: 99, PinID: 5}}}
	if err := n.Decode(rec, nil); err != nil {
		t.Fatal(err)
	}
	if n.Pin(0).Base().NodeID() != 4 {
		t.Errorf("pin node id = %d, want 4", n.Pin(0).Base().NodeID())
	}
	if EmptyNode.Decode(rec, nil) == nil {
		t.Error("decoding into EmptyNode should fail")
	}
}

func TestEmptyNodeIsInert(t *testing.T) {
	b := EmptyNode.Base()
	if !b.AddPin(NewPin("x", Input, KindInt)).IsEmpty() {
		t.Error("AddPin on EmptyNode should return EmptyPin")
	}
	if b.Count() != 0 {
		t.Error("EmptyNode gained a pin")
	}
	if b.String() != "node(empty)" {
		t.Errorf("String = %q", b.String())
	}
}
