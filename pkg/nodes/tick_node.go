package nodes

import (
	"github.com/matzehuels/pingraph/pkg/nodegraph"
)

// TickNodeType is the type tag of [TickNode].
const TickNodeType = "tick"

// DefaultTickRate is the number of ticks between two tick events.
const DefaultTickRate = 20

const (
	tickOut     = "##tick"
	tickEnabled = "enabled"
	tickRate    = "rate"
)

// TickNode turns host ticks into [TickEvent]s. Its "enabled" and "rate"
// inputs override the local Enabled and Rate fields when a variable is
// linked into them.
type TickNode struct {
	nodegraph.NodeBase
	Rate    int
	Enabled bool

	counter int
}

// NewTickNode returns a disabled tick node firing every [DefaultTickRate]
// ticks.
func NewTickNode() *TickNode {
	t := &TickNode{NodeBase: nodegraph.NewNodeBase("Ticking Node"), Rate: DefaultTickRate}
	t.HeaderColor = "#2c9160"
	out := nodegraph.NewPin(tickOut, nodegraph.Output, nodegraph.KindFlow)
	out.BaseColor = 0x99A1A6FF
	t.AddPin(NewVarRefPin(VarBool, tickEnabled))
	t.AddPin(out)
	t.AddPin(NewVarRefPin(VarInt, tickRate))
	return t
}

// TypeTag returns [TickNodeType].
func (t *TickNode) TypeTag() string { return TickNodeType }

// Out returns the pin tick events leave through.
func (t *TickNode) Out() nodegraph.Pin { return t.PinByLabel(tickOut) }

// TickRate returns the linked rate variable, or Rate when none is linked.
func (t *TickNode) TickRate() int {
	if d, ok := t.linkedVar(tickRate); ok {
		return d.Int
	}
	return t.Rate
}

// IsEnabled returns the linked enabled variable, or Enabled when none is
// linked.
func (t *TickNode) IsEnabled() bool {
	if d, ok := t.linkedVar(tickEnabled); ok {
		return d.Bool
	}
	return t.Enabled
}

func (t *TickNode) linkedVar(label string) (*VarData, bool) {
	ref, ok := t.PinByLabel(label).(*VarRefPin)
	if !ok {
		return nil, false
	}
	return ref.Data(t.Graph())
}

// Tick advances the counter while the node is enabled. When the counter
// has passed the tick rate it fires a [TickEvent] into every linked
// [EventPin] and starts over. It returns the number of pins that received
// the event.
func (t *TickNode) Tick() int {
	if !t.IsEnabled() {
		return 0
	}
	due := t.counter == t.TickRate()
	t.counter++
	if !due {
		return 0
	}
	t.counter = 0

	g := t.Graph()
	out := t.Out()
	fired := 0
	for p := range out.Base().ToPins(g) {
		if ev, ok := p.(*EventPin); ok {
			ev.Fire(g, TickEvent{From: out})
			fired++
		}
	}
	return fired
}

// CanLink restricts the tick output to flow pins.
func (t *TickNode) CanLink(from, to nodegraph.Pin) bool {
	if from.Base().Label == tickOut {
		return to.Base().Kind == nodegraph.KindFlow
	}
	return t.NodeBase.CanLink(from, to)
}

// Encode adds the local rate and enabled flag to the base record.
func (t *TickNode) Encode() nodegraph.NodeRecord {
	rec := t.NodeBase.Encode()
	rec.Props = map[string]any{
		"tick_rate":   t.Rate,
		"tick_enable": t.Enabled,
	}
	return rec
}

// Decode restores the base node, the rate and the enabled flag.
func (t *TickNode) Decode(rec nodegraph.NodeRecord, reg *nodegraph.Registry) error {
	if err := t.NodeBase.Decode(rec, reg); err != nil {
		return err
	}
	if rate, ok := nodegraph.Prop[int](rec.Props, "tick_rate"); ok {
		t.Rate = rate
	}
	if on, ok := nodegraph.Prop[bool](rec.Props, "tick_enable"); ok {
		t.Enabled = on
	}
	return nil
}

var _ nodegraph.Node = (*TickNode)(nil)
