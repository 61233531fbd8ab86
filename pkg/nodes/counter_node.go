package nodes

import (
	"github.com/matzehuels/pingraph/pkg/nodegraph"
)

// CounterNodeType is the type tag of [CounterNode].
const CounterNodeType = "counter"

// CounterNode counts the tick events that reach its event input.
type CounterNode struct {
	nodegraph.NodeBase
	Ticks int
}

// NewCounterNode returns a counter at zero.
func NewCounterNode() *CounterNode {
	c := &CounterNode{NodeBase: nodegraph.NewNodeBase("Counter")}
	c.AddPin(NewEventPin("tick"))
	c.AddPin(nodegraph.NewPin("count", nodegraph.Output, nodegraph.KindInt))
	return c
}

// TypeTag returns [CounterNodeType].
func (c *CounterNode) TypeTag() string { return CounterNodeType }

// OnEvent counts tick events and returns the new total. Other events are
// ignored and return nil.
func (c *CounterNode) OnEvent(ev Event) any {
	if _, ok := ev.(TickEvent); !ok {
		return nil
	}
	c.Ticks++
	return c.Ticks
}

// Encode adds the count to the base record.
func (c *CounterNode) Encode() nodegraph.NodeRecord {
	rec := c.NodeBase.Encode()
	rec.Props = map[string]any{"ticks": c.Ticks}
	return rec
}

// Decode restores the base node and the count.
func (c *CounterNode) Decode(rec nodegraph.NodeRecord, reg *nodegraph.Registry) error {
	if err := c.NodeBase.Decode(rec, reg); err != nil {
		return err
	}
	c.Ticks, _ = nodegraph.Prop[int](rec.Props, "ticks")
	return nil
}

var (
	_ nodegraph.Node = (*CounterNode)(nil)
	_ Receiver       = (*CounterNode)(nil)
)
