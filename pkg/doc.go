// Package pkg holds the pingraph libraries.
//
// # Overview
//
// Pingraph models node graphs: nodes own typed input and output pins, and
// links run from output pins to input pins. The pkg directory is organized
// as follows:
//
//  1. [nodegraph] - the graph model (nodes, pins, links, ids, registry)
//  2. [nodes] - built-in node and pin variants (variables, ticks, counters)
//  3. [codec] - JSON, YAML and TOML snapshot encodings
//  4. [store] - document stores (memory, file, SQLite, Redis, MongoDB)
//  5. [cache] - byte caches for rendered artifacts and sync state
//  6. [host] - one graph per scope, persisted and synced between a
//     client side and a server side
//  7. [render] - Graphviz diagrams and SVG conversion
//  8. [observability] - hook interfaces for metrics
//
// # Architecture
//
// The typical data flow:
//
//	nodegraph.Graph
//	       ↓
//	  [codec] snapshot bytes ──→ [store] document
//	       ↓                        ↓
//	  [host] sync message      [render/dot] DOT/SVG/PNG/PDF
//
// # Quick Start
//
//	reg := nodegraph.NewRegistry()
//	_ = nodes.Register(reg)
//
//	g := nodegraph.New(reg)
//	tick := nodes.NewTickNode()
//	counter := nodes.NewCounterNode()
//	g.AddNode(tick)
//	g.AddNode(counter)
//	g.Link(tick.Pin(1), counter.Pin(0))
//
//	data, err := codec.EncodeGraph(codec.Default, g)
//
// [nodegraph]: github.com/matzehuels/pingraph/pkg/nodegraph
// [nodes]: github.com/matzehuels/pingraph/pkg/nodes
// [codec]: github.com/matzehuels/pingraph/pkg/codec
// [store]: github.com/matzehuels/pingraph/pkg/store
// [cache]: github.com/matzehuels/pingraph/pkg/cache
// [host]: github.com/matzehuels/pingraph/pkg/host
// [render]: github.com/matzehuels/pingraph/pkg/render
// [render/dot]: github.com/matzehuels/pingraph/pkg/render/dot
// [observability]: github.com/matzehuels/pingraph/pkg/observability
package pkg
