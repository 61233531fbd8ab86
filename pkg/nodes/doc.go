// Package nodes provides sample node and pin variants for [nodegraph].
//
// The variants carry data and linking rules only. A [TickNode] counts host
// ticks and, every Rate ticks, fires a [TickEvent] through each [EventPin]
// its "##tick" output is linked to. A [VarNode] holds a typed [VarData]
// value that [VarRefPin] inputs on other nodes read through their single
// incoming link. A [CounterNode] counts the events it receives.
//
// Importing the package registers every variant in
// [nodegraph.DefaultRegistry]. Code that builds its own registry calls
// [Register]:
//
//	reg := nodegraph.NewRegistry()
//	if err := nodes.Register(reg); err != nil {
//		return err
//	}
//	g := nodegraph.New(reg)
package nodes
