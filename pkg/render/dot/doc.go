// Package dot renders node graphs as Graphviz diagrams for debugging.
//
// # Usage
//
// Convert a graph to DOT source, then render to SVG:
//
//	src := dot.ToDOT(g, dot.Options{ShowPins: true})
//	svg, err := dot.RenderSVG(src)
//
// Without ShowPins each node is a rounded box and every pin link becomes an
// edge between the owning nodes. With ShowPins each node is a table whose
// rows are its pins, and edges run from the source pin's port to the target
// pin's port, coloured with the source pin's base colour.
//
// A [Renderer] caches rendered artifacts in a [cache.Cache] under the hash
// of the graph snapshot, so rendering an unchanged graph again is a lookup.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package dot
