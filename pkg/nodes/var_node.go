package nodes

import (
	"fmt"

	"github.com/matzehuels/pingraph/pkg/nodegraph"
)

// VarNodeType is the type tag of [VarNode].
const VarNodeType = "var"

// varOut is the label of the variable's only output.
const varOut = "##out"

// VarNode holds a single typed value. Its output feeds [VarRefPin] inputs
// of the same type, each of which accepts at most one variable.
type VarNode struct {
	nodegraph.NodeBase
	Data VarData
}

// NewVarNode returns a variable of type t with a zero value.
func NewVarNode(t VarType) *VarNode {
	v := &VarNode{NodeBase: nodegraph.NewNodeBase("Variable"), Data: VarData{Type: t}}
	v.HeaderColor = "#eb346e"
	out := nodegraph.NewPin(varOut, nodegraph.Output, nodegraph.KindObject)
	out.BaseColor = 0x169873FF
	v.AddPin(out)
	return v
}

// TypeTag returns [VarNodeType].
func (v *VarNode) TypeTag() string { return VarNodeType }

// Out returns the variable's output pin.
func (v *VarNode) Out() nodegraph.Pin { return v.PinByLabel(varOut) }

// CanLink accepts only reference pins of the variable's type. The target
// loses any variable it was linked to before.
func (v *VarNode) CanLink(from, to nodegraph.Pin) bool {
	ref, ok := to.(*VarRefPin)
	if !ok || ref.VarType() != v.Data.Type {
		return false
	}
	if ref.HasFromLinks() {
		ref.ClearLinks(v.Graph())
	}
	return true
}

// SetType changes the variable's type. Links made for the old type are
// dropped.
func (v *VarNode) SetType(t VarType) {
	if v.Data.Type == t {
		return
	}
	v.Data.Type = t
	v.Out().Base().ClearLinks(v.Graph())
}

// Set parses s as the variable's value.
func (v *VarNode) Set(s string) error {
	if err := v.Data.Set(s); err != nil {
		return fmt.Errorf("variable %d: %w", v.ID(), err)
	}
	return nil
}

// Encode adds the variable value to the base record.
func (v *VarNode) Encode() nodegraph.NodeRecord {
	rec := v.NodeBase.Encode()
	rec.Props = map[string]any{"var_data": v.Data.props()}
	return rec
}

// Decode restores the base node and the variable value.
func (v *VarNode) Decode(rec nodegraph.NodeRecord, reg *nodegraph.Registry) error {
	data := v.Data
	if err := data.fromProps(propMap(rec.Props, "var_data")); err != nil {
		return fmt.Errorf("node %d: %w", rec.ID, err)
	}
	if err := v.NodeBase.Decode(rec, reg); err != nil {
		return err
	}
	v.Data = data
	return nil
}

var _ nodegraph.Node = (*VarNode)(nil)
