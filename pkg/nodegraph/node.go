package nodegraph

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// NodeType is the type tag of the plain [NodeBase] node.
const NodeType = "node"

// Node is a vertex of a [Graph] owning an ordered list of pins.
//
// Concrete variants embed [NodeBase] and override the hooks they need.
// The graph always calls through the Node interface, so an overridden
// OnAdd or CanLink is honoured even though the bookkeeping lives on the
// embedded base.
type Node interface {
	// Base returns the shared node state.
	Base() *NodeBase
	// TypeTag names the variant in serialized records and in
	// [NodeBase.LinkedNode] lookups.
	TypeTag() string
	// IsEmpty reports whether this is the [EmptyNode] sentinel.
	IsEmpty() bool
	// OnAdd runs before the node joins a graph. Returning false vetoes it.
	OnAdd() bool
	// OnRemove runs before the node leaves a graph. Returning false vetoes it.
	OnRemove() bool
	// CanLink decides whether a link from one of the node's pins to another
	// pin may be created. [Graph.Link] consults it; [PinBase.AddLink] and
	// decoding do not.
	CanLink(from, to Pin) bool
	// PostProcess runs after the node's graph has been replaced by a decode
	// and after a single-node update has been applied.
	PostProcess()
	// Encode writes the node and its pins to a record. Type on the node
	// record is left to [EncodeNode]; pin types are filled in by the base.
	Encode() NodeRecord
	// Decode restores the node from a record, building pins through reg.
	Decode(rec NodeRecord, reg *Registry) error
}

// NodeBase holds the state every node variant shares.
//
// Pin lookups by id, label and type tag are memoized. The memo tables are
// dropped whenever the pin list changes or the node joins a graph, and id and
// label hits are re-checked against the pin they return, so renaming a pin's
// Label never leaves a stale answer behind.
//
// The zero value is not ready for use; build bases with [NewNodeBase].
type NodeBase struct {
	Title       string
	TitleColor  string  // CSS hex colour of the title text
	HeaderColor string  // CSS hex colour of the header bar
	GraphX      float32 // Canvas position, [Unset] until placed
	GraphY      float32

	id    int
	graph *Graph
	self  Node
	pins  []Pin
	empty bool

	byID    map[int]Pin
	byLabel map[string]Pin
	byType  map[string]Pin
}

// NewNodeBase returns an unattached node base with default colours and an
// unset position.
func NewNodeBase(title string) NodeBase {
	return NodeBase{
		Title:       title,
		TitleColor:  DefaultTitleColor,
		HeaderColor: DefaultHeaderColor,
		GraphX:      Unset,
		GraphY:      Unset,
		id:          NoID,
	}
}

// NewNode returns a plain node of the base type holding pins.
func NewNode(title string, pins ...Pin) *NodeBase {
	n := NewNodeBase(title)
	for _, p := range pins {
		n.AddPin(p)
	}
	return &n
}

// EmptyNode is returned by lookups that find nothing.
var EmptyNode Node = &NodeBase{id: NoID, GraphX: Unset, GraphY: Unset, empty: true}

// Base returns n.
func (n *NodeBase) Base() *NodeBase { return n }

// TypeTag returns [NodeType].
func (n *NodeBase) TypeTag() string { return NodeType }

// IsEmpty reports whether n is the empty sentinel.
func (n *NodeBase) IsEmpty() bool { return n == nil || n.empty }

// OnAdd accepts every add.
func (n *NodeBase) OnAdd() bool { return true }

// OnRemove accepts every removal.
func (n *NodeBase) OnRemove() bool { return true }

// CanLink accepts every link.
func (n *NodeBase) CanLink(from, to Pin) bool { return true }

// PostProcess does nothing.
func (n *NodeBase) PostProcess() {}

// ID returns the node id, or [NoID] while unattached.
func (n *NodeBase) ID() int { return n.id }

// Graph returns the graph the node belongs to, or [EmptyGraph] while
// unattached.
func (n *NodeBase) Graph() *Graph {
	if n.graph == nil {
		return EmptyGraph
	}
	return n.graph
}

// Attached reports whether the node currently belongs to a graph.
func (n *NodeBase) Attached() bool { return n.graph != nil }

// Self returns the variant value that embeds n once the node has been
// attached or decoded, and n itself before that.
func (n *NodeBase) Self() Node {
	if n.self == nil {
		return n
	}
	return n.self
}

// SetPosition places the node on the canvas.
func (n *NodeBase) SetPosition(x, y float32) {
	n.GraphX, n.GraphY = x, y
}

// Placed reports whether the node has a canvas position.
func (n *NodeBase) Placed() bool {
	return n.GraphX != Unset && n.GraphY != Unset
}

// =============================================================================
// Pin list
// =============================================================================

// AddPin appends p to the node and returns it. The pin is stamped with the
// node's id, and when the node is already attached it also gets a fresh id
// from the graph. Adding to the empty sentinel is a no-op returning
// [EmptyPin].
func (n *NodeBase) AddPin(p Pin) Pin {
	if n.IsEmpty() || p == nil || p.IsEmpty() {
		return EmptyPin
	}
	b := p.Base()
	b.nodeID = n.id
	if n.graph != nil {
		b.id = n.graph.claimID()
		n.graph.rememberPin(n.Self(), p)
	}
	n.pins = append(n.pins, p)
	n.resetPinCaches()
	return p
}

// RemovePin detaches p from the node. When the node is attached its links
// are cleared through the graph first. It reports whether p was found.
func (n *NodeBase) RemovePin(p Pin) bool {
	if n.IsEmpty() || p == nil || p.IsEmpty() {
		return false
	}
	b := p.Base()
	i := slices.IndexFunc(n.pins, func(q Pin) bool { return q.Base() == b })
	if i < 0 {
		return false
	}
	if n.graph != nil {
		b.ClearLinks(n.graph)
		n.graph.forgetPin(b.id)
	}
	n.pins = slices.Delete(n.pins, i, i+1)
	n.resetPinCaches()
	return true
}

// Pin returns the i-th pin, or [EmptyPin] when i is out of range.
func (n *NodeBase) Pin(i int) Pin {
	if i < 0 || i >= len(n.pins) {
		return EmptyPin
	}
	return n.pins[i]
}

// Count returns the number of pins.
func (n *NodeBase) Count() int { return len(n.pins) }

// HasPins reports whether the node owns any pin.
func (n *NodeBase) HasPins() bool { return len(n.pins) > 0 }

// Pins iterates the pins in order.
func (n *NodeBase) Pins() iter.Seq[Pin] {
	return func(yield func(Pin) bool) {
		for i := 0; i < len(n.pins); i++ {
			if !yield(n.pins[i]) {
				return
			}
		}
	}
}

func (n *NodeBase) resetPinCaches() {
	n.byID = nil
	n.byLabel = nil
	n.byType = nil
}

// =============================================================================
// Pin lookup
// =============================================================================

// PinByID returns the pin with the given id, or [EmptyPin].
func (n *NodeBase) PinByID(id int) Pin {
	if id < 0 {
		return EmptyPin
	}
	if p, ok := n.byID[id]; ok && p.Base().id == id {
		return p
	}
	n.byID = make(map[int]Pin, len(n.pins))
	for _, p := range n.pins {
		pid := p.Base().id
		if pid >= 0 {
			n.byID[pid] = p
		}
		if pid == id {
			return p
		}
	}
	return EmptyPin
}

// HasPinID reports whether the node owns a pin with the given id.
func (n *NodeBase) HasPinID(id int) bool { return !n.PinByID(id).IsEmpty() }

// PinByLabel returns the first pin whose label matches exactly, or [EmptyPin].
func (n *NodeBase) PinByLabel(label string) Pin {
	if p, ok := n.byLabel[label]; ok && p.Base().Label == label {
		return p
	}
	n.byLabel = make(map[string]Pin, len(n.pins))
	for _, p := range n.pins {
		l := p.Base().Label
		if _, seen := n.byLabel[l]; !seen {
			n.byLabel[l] = p
		}
		if l == label {
			return p
		}
	}
	return EmptyPin
}

// HasPinLabel reports whether the node owns a pin with the given label.
func (n *NodeBase) HasPinLabel(label string) bool { return !n.PinByLabel(label).IsEmpty() }

// PinByType returns the first pin whose type tag matches, or [EmptyPin].
func (n *NodeBase) PinByType(tag string) Pin {
	if p, ok := n.byType[tag]; ok {
		return p
	}
	n.byType = make(map[string]Pin, len(n.pins))
	for _, p := range n.pins {
		t := p.TypeTag()
		if _, seen := n.byType[t]; !seen {
			n.byType[t] = p
		}
		if t == tag {
			return p
		}
	}
	return EmptyPin
}

// HasPinType reports whether the node owns a pin with the given type tag.
func (n *NodeBase) HasPinType(tag string) bool { return !n.PinByType(tag).IsEmpty() }

// PinOf returns the first pin of n whose dynamic type is T.
//
//	ev, ok := nodegraph.PinOf[*nodes.EventPin](tick)
func PinOf[T Pin](n Node) (T, bool) {
	var zero T
	if n == nil || n.IsEmpty() {
		return zero, false
	}
	for p := range n.Base().Pins() {
		if t, ok := p.(T); ok {
			return t, true
		}
	}
	return zero, false
}

// =============================================================================
// Linked nodes
// =============================================================================

// LinkedNode follows the node's output pins and returns the first node at
// the far end of a link whose type tag matches. Pins are visited in order,
// links in insertion order. It returns [EmptyNode] when nothing matches or
// the node is unattached.
func (n *NodeBase) LinkedNode(tag string) Node {
	return n.linked(func(m Node) bool { return m.TypeTag() == tag })
}

// HasLinkedNode reports whether [NodeBase.LinkedNode] finds a match.
func (n *NodeBase) HasLinkedNode(tag string) bool {
	return !n.LinkedNode(tag).IsEmpty()
}

// LinkedNodeOf is [NodeBase.LinkedNode] matching on the dynamic type T.
func LinkedNodeOf[T Node](n Node) (T, bool) {
	var zero T
	if n == nil || n.IsEmpty() {
		return zero, false
	}
	found := n.Base().linked(func(m Node) bool {
		_, ok := m.(T)
		return ok
	})
	if found.IsEmpty() {
		return zero, false
	}
	return found.(T), true
}

func (n *NodeBase) linked(match func(Node) bool) Node {
	g := n.graph
	if g == nil {
		return EmptyNode
	}
	for _, p := range n.pins {
		b := p.Base()
		if b.IO != Output {
			continue
		}
		for target := range b.ToPins(g) {
			if target.IsEmpty() {
				continue
			}
			owner := g.FindNode(target.Base().nodeID)
			if !owner.IsEmpty() && match(owner) {
				return owner
			}
		}
	}
	return EmptyNode
}

// =============================================================================
// Updates
// =============================================================================

// PushUpdate sends the node's current state to the opposite side through
// the owner of its graph. It fails with [ErrUnsupported] when the node is
// unattached, the graph has no owner, or the graph side is [Neither].
func (n *NodeBase) PushUpdate() error {
	if n.graph == nil {
		return fmt.Errorf("push node %d: not attached: %w", n.id, ErrUnsupported)
	}
	if n.graph.Side == Neither {
		return fmt.Errorf("push node %d: graph side is %s: %w", n.id, n.graph.Side, ErrUnsupported)
	}
	if n.graph.owner == nil {
		return fmt.Errorf("push node %d: graph has no owner: %w", n.id, ErrUnsupported)
	}
	return n.graph.owner.PushNode(n.Self())
}

// MustPushUpdate is like PushUpdate but panics on error.
func (n *NodeBase) MustPushUpdate() {
	if err := n.PushUpdate(); err != nil {
		panic(err)
	}
}

// =============================================================================
// Serialization
// =============================================================================

// Encode writes the shared node state and all pins. Pin records get their
// Type from each pin's TypeTag.
func (n *NodeBase) Encode() NodeRecord {
	rec := NodeRecord{
		ID:    n.id,
		X:     n.GraphX,
		Y:     n.GraphY,
		Title: n.Title,
		Pins:  make([]PinRecord, 0, len(n.pins)),
	}
	for _, p := range n.pins {
		pr := p.Encode()
		pr.Type = p.TypeTag()
		rec.Pins = append(rec.Pins, pr)
	}
	return rec
}

// Decode restores the shared node state. Pins are rebuilt through reg and
// replace the current pin list; every rebuilt pin is stamped with the node's
// id. On error the node is left unchanged.
func (n *NodeBase) Decode(rec NodeRecord, reg *Registry) error {
	if n.IsEmpty() {
		return ErrEmptyTarget
	}
	if reg == nil {
		reg = DefaultRegistry
	}
	pins := make([]Pin, 0, len(rec.Pins))
	for i, pr := range rec.Pins {
		p, err := reg.NewPin(pr.Type)
		if err != nil {
			return fmt.Errorf("node %d pin %d: %w", rec.ID, i, err)
		}
		if err := p.Decode(pr); err != nil {
			return fmt.Errorf("node %d pin %d: %w", rec.ID, i, err)
		}
		p.Base().nodeID = rec.ID
		pins = append(pins, p)
	}
	n.id = rec.ID
	n.GraphX = rec.X
	n.GraphY = rec.Y
	n.Title = rec.Title
	n.pins = pins
	n.resetPinCaches()
	return nil
}

// String renders the node for debugging, for example
// "node#1(Counter pins=[2 3])".
func (n *NodeBase) String() string {
	if n.IsEmpty() {
		return "node(empty)"
	}
	ids := make([]string, len(n.pins))
	for i, p := range n.pins {
		ids[i] = fmt.Sprint(p.Base().id)
	}
	return fmt.Sprintf("node#%d(%s pins=[%s])", n.id, n.Title, strings.Join(ids, " "))
}

var _ Node = (*NodeBase)(nil)
