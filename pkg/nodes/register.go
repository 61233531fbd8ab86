package nodes

import (
	"errors"

	"github.com/matzehuels/pingraph/pkg/nodegraph"
)

func init() {
	if err := Register(nodegraph.DefaultRegistry); err != nil {
		panic(err)
	}
}

// Register adds every variant in this package to r.
func Register(r *nodegraph.Registry) error {
	return errors.Join(
		r.RegisterPin(EventPinType, func() nodegraph.Pin { return NewEventPin("") }),
		r.RegisterPin(VarRefPinType, func() nodegraph.Pin { return NewVarRefPin(VarBool, "") }),
		r.RegisterNode(VarNodeType, func() nodegraph.Node { return NewVarNode(VarBool) }),
		r.RegisterNode(TickNodeType, func() nodegraph.Node { return NewTickNode() }),
		r.RegisterNode(CounterNodeType, func() nodegraph.Node { return NewCounterNode() }),
	)
}
