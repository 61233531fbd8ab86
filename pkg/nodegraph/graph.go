package nodegraph

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/matzehuels/pingraph/pkg/observability"
)

// Owner is the capability a graph reports single-node updates to. A host
// that ships graphs between sides installs itself as the owner of every
// graph it hands out.
type Owner interface {
	PushNode(n Node) error
}

// Graph is a mutable collection of nodes whose pins are linked by id.
//
// Node and pin ids come from a single shared space: no two entities in the
// same graph share an id, and ids are never handed out twice in the life of
// a graph, even after removal. Lookups by id are memoized; the memo tables
// are pruned on removal and dropped on decode.
//
// Graph is not safe for concurrent use. Hosts serialize access per graph.
type Graph struct {
	Side    Side    // Which end of a client/server split the graph lives on
	CenterX float32 // Canvas viewport centre, Unset until placed
	CenterY float32

	nodes    []Node
	nextHint int
	registry *Registry
	owner    Owner
	empty    bool

	nodeByID  map[int]Node
	pinByID   map[int]Pin
	nodeByPin map[int]Node
	usedIDs   map[int]struct{}
}

// EmptyGraph stands in for "no graph", for example as the graph of an
// unattached node. Lookups on it find nothing and mutations are refused.
var EmptyGraph = &Graph{empty: true}

// New creates an empty graph that resolves serialized types through reg.
// A nil registry means [DefaultRegistry].
func New(reg *Registry) *Graph {
	if reg == nil {
		reg = DefaultRegistry
	}
	g := &Graph{registry: reg, CenterX: Unset, CenterY: Unset}
	g.resetCaches()
	return g
}

// IsEmpty reports whether g is nil or the [EmptyGraph] sentinel.
func (g *Graph) IsEmpty() bool { return g == nil || g.empty }

// Registry returns the registry used by [Graph.Decode].
func (g *Graph) Registry() *Registry {
	if g.IsEmpty() || g.registry == nil {
		return DefaultRegistry
	}
	return g.registry
}

// Owner returns the installed owner, or nil.
func (g *Graph) Owner() Owner {
	if g.IsEmpty() {
		return nil
	}
	return g.owner
}

// SetOwner installs the owner that [NodeBase.PushUpdate] reports to.
func (g *Graph) SetOwner(o Owner) {
	if !g.IsEmpty() {
		g.owner = o
	}
}

func (g *Graph) resetCaches() {
	g.nodeByID = make(map[int]Node)
	g.pinByID = make(map[int]Pin)
	g.nodeByPin = make(map[int]Node)
	g.usedIDs = make(map[int]struct{})
}

// =============================================================================
// Lookup
// =============================================================================

// FindNode returns the node with the given id, or [EmptyNode].
func (g *Graph) FindNode(id int) Node {
	if g.IsEmpty() || id < 0 {
		return EmptyNode
	}
	if n, ok := g.nodeByID[id]; ok {
		return n
	}
	for _, n := range g.nodes {
		nid := n.Base().id
		if nid >= 0 {
			g.nodeByID[nid] = n
		}
		if nid == id {
			return n
		}
	}
	return EmptyNode
}

// HasNode reports whether a node with the given id belongs to g.
func (g *Graph) HasNode(id int) bool { return !g.FindNode(id).IsEmpty() }

// FindPin returns the pin with the given id on any node, or [EmptyPin].
func (g *Graph) FindPin(id int) Pin {
	if g.IsEmpty() || id < 0 {
		return EmptyPin
	}
	if p, ok := g.pinByID[id]; ok {
		return p
	}
	for _, n := range g.nodes {
		if p := n.Base().PinByID(id); !p.IsEmpty() {
			g.pinByID[id] = p
			return p
		}
	}
	return EmptyPin
}

// HasPin reports whether a pin with the given id belongs to g.
func (g *Graph) HasPin(id int) bool { return !g.FindPin(id).IsEmpty() }

// FindNodeByPin returns the node owning the pin with the given id, provided
// the pin's direction is io. [None] matches any direction. A pin that exists
// with the wrong direction yields [EmptyNode], on a cache hit as on a scan.
func (g *Graph) FindNodeByPin(pinID int, io IO) Node {
	if g.IsEmpty() || pinID < 0 {
		return EmptyNode
	}
	if n, ok := g.nodeByPin[pinID]; ok {
		if p := n.Base().PinByID(pinID); !p.IsEmpty() {
			return matchIO(n, p, io)
		}
		delete(g.nodeByPin, pinID)
	}
	for _, n := range g.nodes {
		if p := n.Base().PinByID(pinID); !p.IsEmpty() {
			g.nodeByPin[pinID] = n
			return matchIO(n, p, io)
		}
	}
	return EmptyNode
}

func matchIO(n Node, p Pin, io IO) Node {
	if io == None || p.Base().IO == io {
		return n
	}
	return EmptyNode
}

// Nodes iterates the nodes in insertion order.
func (g *Graph) Nodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		if g.IsEmpty() {
			return
		}
		for i := 0; i < len(g.nodes); i++ {
			if !yield(g.nodes[i]) {
				return
			}
		}
	}
}

// NodeList returns a copy of the node list.
func (g *Graph) NodeList() []Node {
	if g.IsEmpty() {
		return nil
	}
	return slices.Clone(g.nodes)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	if g.IsEmpty() {
		return 0
	}
	return len(g.nodes)
}

// Node returns the i-th node, or [EmptyNode] when i is out of range.
func (g *Graph) Node(i int) Node {
	if g.IsEmpty() || i < 0 || i >= len(g.nodes) {
		return EmptyNode
	}
	return g.nodes[i]
}

// PinCount returns the number of pins across all nodes.
func (g *Graph) PinCount() int {
	total := 0
	for n := range g.Nodes() {
		total += n.Base().Count()
	}
	return total
}

// =============================================================================
// Id allocation
// =============================================================================

// NextID returns the smallest id at or above the allocation hint that no
// node or pin is currently using. It does not consume the id: calling NextID
// twice without adding anything returns the same id again.
//
// The hint only moves forward, so ids freed by removal are not reused.
func (g *Graph) NextID() int {
	if g.IsEmpty() {
		return NoID
	}
	for g.isIDUsed(g.nextHint) {
		g.nextHint++
	}
	return g.nextHint
}

// claimID returns [Graph.NextID] and moves the hint past it.
func (g *Graph) claimID() int {
	id := g.NextID()
	if id != NoID {
		g.nextHint = id + 1
	}
	return id
}

func (g *Graph) isIDUsed(id int) bool {
	if _, ok := g.usedIDs[id]; ok {
		return true
	}
	if _, ok := g.nodeByID[id]; ok {
		return true
	}
	if _, ok := g.pinByID[id]; ok {
		return true
	}
	for _, n := range g.nodes {
		b := n.Base()
		if b.id == id {
			g.nodeByID[id] = n
			g.usedIDs[id] = struct{}{}
			return true
		}
		for _, p := range b.pins {
			if p.Base().id == id {
				g.pinByID[id] = p
				g.usedIDs[id] = struct{}{}
				return true
			}
		}
	}
	return false
}

func (g *Graph) rememberPin(n Node, p Pin) {
	id := p.Base().id
	if id < 0 {
		return
	}
	g.pinByID[id] = p
	g.nodeByPin[id] = n
	g.usedIDs[id] = struct{}{}
}

func (g *Graph) forgetPin(id int) {
	delete(g.pinByID, id)
	delete(g.nodeByPin, id)
	delete(g.usedIDs, id)
}

// =============================================================================
// Mutation
// =============================================================================

// AddNode attaches n to g. The node's OnAdd hook runs first and may veto.
// On success the node is appended, gets a fresh id, and each of its pins
// gets a fresh id in pin order, stamped with the node's id. Ids a node or
// its pins carried before are discarded.
//
// It returns false for sentinels, vetoed nodes and nodes already attached
// to a graph.
func (g *Graph) AddNode(n Node) bool {
	if g.IsEmpty() || n == nil || n.IsEmpty() {
		return false
	}
	b := n.Base()
	if b.graph != nil {
		return false
	}
	if !n.OnAdd() {
		observability.Graph().OnNodeVetoed(n.TypeTag(), "add")
		return false
	}

	b.id = NoID
	for _, p := range b.pins {
		p.Base().id = NoID
	}

	g.nodes = append(g.nodes, n)
	b.graph = g
	b.self = n
	b.id = g.claimID()
	g.nodeByID[b.id] = n
	g.usedIDs[b.id] = struct{}{}

	for _, p := range b.pins {
		pb := p.Base()
		pb.id = g.claimID()
		pb.nodeID = b.id
		g.rememberPin(n, p)
	}
	b.resetPinCaches()

	observability.Graph().OnNodeAdded(n.TypeTag(), b.id, len(b.pins))
	return true
}

// RemoveNode detaches n from g. The node's OnRemove hook runs first and may
// veto. Every pin's links are cleared on both ends, the node and its pins
// are dropped from the lookup tables, and the node is removed from the list.
// Its ids are not reused.
//
// It returns false for sentinels, vetoed nodes and nodes that do not belong
// to g.
func (g *Graph) RemoveNode(n Node) bool {
	if g.IsEmpty() || n == nil || n.IsEmpty() {
		return false
	}
	if !n.OnRemove() {
		observability.Graph().OnNodeVetoed(n.TypeTag(), "remove")
		return false
	}
	b := n.Base()
	i := slices.IndexFunc(g.nodes, func(m Node) bool { return m.Base() == b })
	if i < 0 {
		return false
	}

	for _, p := range b.pins {
		pb := p.Base()
		pb.ClearLinks(g)
		g.forgetPin(pb.id)
	}
	delete(g.nodeByID, b.id)
	delete(g.usedIDs, b.id)

	g.nodes = slices.Delete(g.nodes, i, i+1)
	b.graph = nil

	observability.Graph().OnNodeRemoved(n.TypeTag(), b.id)
	return true
}

// Link connects from to to after asking the owner of from whether the link
// is allowed. from must be an output and to a different input pin. It
// returns the index of the new link in from's outgoing list, or [NoID] when
// the link is refused.
func (g *Graph) Link(from, to Pin) int {
	if g.IsEmpty() || from == nil || to == nil || from.IsEmpty() || to.IsEmpty() {
		return NoID
	}
	fb, tb := from.Base(), to.Base()
	if fb == tb || fb.IO != Output || tb.IO != Input {
		return NoID
	}
	owner := g.FindNode(from.Base().nodeID)
	if owner.IsEmpty() || !owner.CanLink(from, to) {
		return NoID
	}
	return from.Base().AddLink(to)
}

// =============================================================================
// Serialization
// =============================================================================

// Encode writes the whole graph to a record, nodes in order.
func (g *Graph) Encode() GraphRecord {
	rec := GraphRecord{Nodes: make([]NodeRecord, 0, g.Len())}
	if g.IsEmpty() {
		return rec
	}
	rec.Center = [2]float32{g.CenterX, g.CenterY}
	for _, n := range g.nodes {
		rec.Nodes = append(rec.Nodes, EncodeNode(n))
	}
	return rec
}

// EncodeNode writes one node to a record with its type tag filled in.
func EncodeNode(n Node) NodeRecord {
	rec := n.Encode()
	rec.Type = n.TypeTag()
	return rec
}

// Decode replaces the graph's content with rec. Every node and pin is
// rebuilt through the graph's registry before anything is touched, so a
// record with an unknown type or a reused id leaves g unchanged.
//
// On success all lookup tables are dropped, the previous nodes are
// detached, and the allocation hint moves past the largest id in rec.
// Side, owner and registry are kept. PostProcess is not called here;
// hosts call [Graph.PostProcess] once the new content is in place.
func (g *Graph) Decode(rec GraphRecord) (err error) {
	if g.IsEmpty() {
		return ErrEmptyTarget
	}
	defer func() { observability.Graph().OnDecode(len(rec.Nodes), err) }()

	reg := g.Registry()
	nodes := make([]Node, 0, len(rec.Nodes))
	seen := make(map[int]struct{})
	maxID := NoID
	claim := func(id int) error {
		if id < 0 {
			return nil
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("id %d: %w", id, ErrDuplicateID)
		}
		seen[id] = struct{}{}
		maxID = max(maxID, id)
		return nil
	}

	for i, nr := range rec.Nodes {
		n, err := reg.NewNode(nr.Type)
		if err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
		if err := n.Decode(nr, reg); err != nil {
			return fmt.Errorf("node %d: %w", i, err)
		}
		if err := claim(n.Base().id); err != nil {
			return err
		}
		for p := range n.Base().Pins() {
			if err := claim(p.Base().id); err != nil {
				return err
			}
		}
		nodes = append(nodes, n)
	}

	for _, old := range g.nodes {
		old.Base().graph = nil
	}
	g.nodes = nodes
	for _, n := range nodes {
		b := n.Base()
		b.graph = g
		b.self = n
	}
	g.CenterX, g.CenterY = rec.Center[0], rec.Center[1]
	g.resetCaches()
	g.nextHint = max(g.nextHint, maxID+1)
	return nil
}

// ApplyNode replaces a single node in place from rec, or appends it when no
// node has rec's id. Record ids are kept as they are. When the existing node
// has the same type it is decoded into, so references to it stay valid;
// otherwise a fresh node takes its slot. The node's PostProcess hook runs
// afterwards.
//
// The record is checked against a scratch node first: an unknown type or an
// id already used elsewhere in g leaves the graph unchanged.
func (g *Graph) ApplyNode(rec NodeRecord) (Node, error) {
	if g.IsEmpty() {
		return EmptyNode, ErrEmptyTarget
	}
	if rec.ID < 0 {
		return EmptyNode, fmt.Errorf("node id %d: %w", rec.ID, ErrInvalidID)
	}
	reg := g.Registry()
	scratch, err := reg.NewNode(rec.Type)
	if err != nil {
		return EmptyNode, fmt.Errorf("node %d: %w", rec.ID, err)
	}
	if err := scratch.Decode(rec, reg); err != nil {
		return EmptyNode, err
	}

	existing := g.FindNode(rec.ID)
	if existing.IsEmpty() && g.HasPin(rec.ID) {
		return EmptyNode, fmt.Errorf("node %d: %w", rec.ID, ErrDuplicateID)
	}
	for p := range scratch.Base().Pins() {
		id := p.Base().id
		if id < 0 {
			continue
		}
		if g.HasNode(id) {
			return EmptyNode, fmt.Errorf("pin %d of node %d: %w", id, rec.ID, ErrDuplicateID)
		}
		if owner := g.FindNodeByPin(id, None); !owner.IsEmpty() && owner.Base() != existing.Base() {
			return EmptyNode, fmt.Errorf("pin %d of node %d: %w", id, rec.ID, ErrDuplicateID)
		}
	}

	target := scratch
	switch {
	case existing.IsEmpty():
		g.nodes = append(g.nodes, target)
	case existing.TypeTag() == rec.Type:
		target = existing
		if err := target.Decode(rec, reg); err != nil {
			return EmptyNode, err
		}
	default:
		eb := existing.Base()
		i := slices.IndexFunc(g.nodes, func(m Node) bool { return m.Base() == eb })
		eb.graph = nil
		g.nodes[i] = target
	}
	g.resetCaches()

	b := target.Base()
	b.graph = g
	b.self = target
	g.nextHint = max(g.nextHint, b.id+1)
	for p := range b.Pins() {
		g.nextHint = max(g.nextHint, p.Base().id+1)
	}
	target.PostProcess()
	return target, nil
}

// PostProcess runs every node's PostProcess hook in order.
func (g *Graph) PostProcess() {
	for n := range g.Nodes() {
		n.PostProcess()
	}
}

// String renders the graph for debugging, one node per line.
func (g *Graph) String() string {
	if g.IsEmpty() {
		return "graph(empty)"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "graph(%s nodes=%d)", g.Side, len(g.nodes))
	for _, n := range g.nodes {
		fmt.Fprintf(&sb, "\n  %s %v", n.TypeTag(), n)
	}
	return sb.String()
}
