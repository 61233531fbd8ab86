// Package nodegraph provides the data model of a visual node editor: nodes
// that own typed pins, pins linked to each other by id, and a graph that
// hands out ids and resolves them back.
//
// # Overview
//
// A [Graph] holds an ordered list of [Node] values. Each node owns an ordered
// list of [Pin] values. A link runs from an output pin to an input pin and is
// stored on both ends by id: the source lists the target in its outgoing
// links, the target lists the source in its incoming links. Resolving an id
// back to a pin always goes through the graph, which memoizes lookups.
//
// Node and pin ids share a single space per graph. Ids start at 0, are never
// negative once assigned, and are not reused after removal.
//
// # Basic Usage
//
// Build nodes with their pins, add them to a graph to get ids, then link:
//
//	g := nodegraph.New(nil)
//	src := nodegraph.NewNode("source", nodegraph.NewPin("out", nodegraph.Output, nodegraph.KindFloat))
//	dst := nodegraph.NewNode("sink", nodegraph.NewPin("in", nodegraph.Input, nodegraph.KindFloat))
//	g.AddNode(src)
//	g.AddNode(dst)
//	src.Pin(0).Base().AddLink(dst.Pin(0))
//
// Lookups that find nothing return the [EmptyNode] and [EmptyPin] sentinels
// instead of nil, so chained calls stay safe:
//
//	g.FindPin(42).Base().ID() // NoID when 42 is unknown
//
// # Variants
//
// Applications define their own node and pin types by embedding [NodeBase]
// or [PinBase] and overriding TypeTag together with whichever hooks they
// need: OnAdd and OnRemove may veto membership, CanLink may veto links
// requested through [Graph.Link], and Encode/Decode carry extra fields
// through the Props map of the record. Variants register a constructor with
// a [Registry] so that [Graph.Decode] can rebuild them.
//
// # Serialization
//
// [Graph.Encode] produces a [GraphRecord], a plain struct tree with json,
// yaml and toml tags. [Graph.Decode] rebuilds the graph from one, validating
// every type tag and id before replacing anything. The encodings themselves
// live in pkg/codec.
//
// # Updates
//
// A graph knows which [Side] of a client/server split it is on, and may have
// an [Owner]. Nodes push their own state to the other side with
// [NodeBase.PushUpdate], which fails with [ErrUnsupported] unless the graph
// has an owner and a side other than [Neither]. See pkg/host.
//
// # Concurrency
//
// Graphs, nodes and pins are not safe for concurrent use. A [Registry] is.
package nodegraph
