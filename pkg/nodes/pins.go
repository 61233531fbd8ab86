package nodes

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/matzehuels/pingraph/pkg/nodegraph"
)

// Pin type tags.
const (
	EventPinType  = "event"
	VarRefPinType = "var_ref"
)

// VarRefColor is the base colour of a [VarRefPin].
const VarRefColor nodegraph.Color = 0xF49FBCFF

// =============================================================================
// Event pin
// =============================================================================

// EventPin is a flow input that hands events to its owning node.
type EventPin struct {
	nodegraph.PinBase
}

// NewEventPin returns an event input labelled name, or "event" when name is
// empty.
func NewEventPin(name string) *EventPin {
	if name == "" {
		name = "event"
	}
	p := &EventPin{PinBase: nodegraph.NewPinBase(name, nodegraph.Input, nodegraph.KindFlow)}
	p.BaseColor = 0xFFFFFFFF
	return p
}

// TypeTag returns [EventPinType].
func (p *EventPin) TypeTag() string { return EventPinType }

// Fire delivers ev to the node owning p. It returns the receiver's result
// and true, or false when the owner is missing or does not implement
// [Receiver].
func (p *EventPin) Fire(g *nodegraph.Graph, ev Event) (any, bool) {
	owner := g.FindNode(p.NodeID())
	if owner.IsEmpty() {
		return nil, false
	}
	r, ok := owner.(Receiver)
	if !ok {
		return nil, false
	}
	return r.OnEvent(ev), true
}

// =============================================================================
// Variable reference pin
// =============================================================================

// VarRefPin is an input that reads the value of the [VarNode] linked into
// it. Only variables of the pin's type may be linked.
type VarRefPin struct {
	nodegraph.PinBase
	varType VarType
}

// NewVarRefPin returns a reference pin for variables of type t. An empty
// label is replaced by a unique hidden one.
func NewVarRefPin(t VarType, label string) *VarRefPin {
	if label == "" {
		label = "##" + uuid.NewString()
	}
	p := &VarRefPin{
		PinBase: nodegraph.NewPinBase(label, nodegraph.Input, nodegraph.KindObject),
		varType: t,
	}
	p.BaseColor = VarRefColor
	return p
}

// TypeTag returns [VarRefPinType].
func (p *VarRefPin) TypeTag() string { return VarRefPinType }

// VarType returns the variable type the pin accepts.
func (p *VarRefPin) VarType() VarType { return p.varType }

// Data returns the value of the variable linked into p.
func (p *VarRefPin) Data(g *nodegraph.Graph) (*VarData, bool) {
	from := p.FromPin(0, g)
	if from.IsEmpty() {
		return nil, false
	}
	v, ok := g.FindNode(from.Base().NodeID()).(*VarNode)
	if !ok {
		return nil, false
	}
	return &v.Data, true
}

// HasData reports whether a variable is linked into p.
func (p *VarRefPin) HasData(g *nodegraph.Graph) bool {
	_, ok := p.Data(g)
	return ok
}

// Encode adds the accepted variable type to the base record.
func (p *VarRefPin) Encode() nodegraph.PinRecord {
	rec := p.PinBase.Encode()
	rec.Props = map[string]any{"var_ref_type": p.varType.String()}
	return rec
}

// Decode restores the base pin and its variable type.
func (p *VarRefPin) Decode(rec nodegraph.PinRecord) error {
	t := p.varType
	if name, ok := nodegraph.Prop[string](rec.Props, "var_ref_type"); ok {
		var err error
		if t, err = ParseVarType(name); err != nil {
			return fmt.Errorf("pin %d: %w", rec.PinID, err)
		}
	}
	if err := p.PinBase.Decode(rec); err != nil {
		return err
	}
	p.varType = t
	return nil
}

var (
	_ nodegraph.Pin = (*EventPin)(nil)
	_ nodegraph.Pin = (*VarRefPin)(nil)
)
