// Package render converts rendered graph images between formats.
//
// The [ToPDF] and [ToPNG] functions convert SVG to other formats using the
// external rsvg-convert tool (from librsvg). The [dot] subpackage produces
// the SVG.
//
//	svg, err := dot.RenderSVG(ctx, dot.ToDOT(g, dot.Options{}))
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0)  // 2x scale
//
// [dot]: github.com/matzehuels/pingraph/pkg/render/dot
package render
