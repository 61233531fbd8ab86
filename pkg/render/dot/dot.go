package dot

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	pgerrors "github.com/matzehuels/pingraph/pkg/errors"
	"github.com/matzehuels/pingraph/pkg/nodegraph"
)

// Rankdir values accepted by [Options].
var Rankdirs = []string{"LR", "TB", "RL", "BT"}

// Options configures diagram generation.
type Options struct {
	// ShowPins draws every pin as a table row with its own edge port.
	ShowPins bool
	// Rankdir is the Graphviz layout direction; empty means LR.
	Rankdir string
}

// Validate checks the options and fills in defaults.
func (o *Options) Validate() error {
	if o.Rankdir == "" {
		o.Rankdir = "LR"
	}
	o.Rankdir = strings.ToUpper(o.Rankdir)
	for _, r := range Rankdirs {
		if o.Rankdir == r {
			return nil
		}
	}
	return pgerrors.New(pgerrors.ErrCodeInvalidInput, "invalid rankdir %q (want one of %s)", o.Rankdir, strings.Join(Rankdirs, ", "))
}

// ToDOT converts a graph to Graphviz DOT source. Links whose target does not
// resolve in g are skipped. Invalid options fall back to the defaults.
func ToDOT(g *nodegraph.Graph, opts Options) string {
	if opts.Validate() != nil {
		opts.Rankdir = "LR"
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", opts.Rankdir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	if opts.ShowPins {
		buf.WriteString("  node [shape=plaintext, fontname=\"Helvetica\", fontsize=12];\n")
	} else {
		buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontname=\"Helvetica\", fontsize=14, margin=\"0.2,0.1\"];\n")
	}
	buf.WriteString("  edge [arrowsize=0.7];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for n := range g.Nodes() {
		b := n.Base()
		if opts.ShowPins {
			fmt.Fprintf(&buf, "  n%d [label=<%s>];\n", b.ID(), tableLabel(n))
		} else {
			fmt.Fprintf(&buf, "  n%d [label=%q, fillcolor=%q, fontcolor=%q];\n",
				b.ID(), title(n), b.HeaderColor, b.TitleColor)
		}
	}

	buf.WriteString("\n")
	for n := range g.Nodes() {
		for p := range n.Base().Pins() {
			src := p.Base()
			for id := range src.ToLinks() {
				dst := g.FindPin(id)
				owner := g.FindNodeByPin(id, nodegraph.None)
				if dst.IsEmpty() || owner.IsEmpty() {
					continue
				}
				if opts.ShowPins {
					fmt.Fprintf(&buf, "  n%d:p%d:e -> n%d:p%d:w [color=%q];\n",
						n.Base().ID(), src.ID(), owner.Base().ID(), id, src.BaseColor.Hex())
				} else {
					fmt.Fprintf(&buf, "  n%d -> n%d [label=%q, fontsize=10];\n",
						n.Base().ID(), owner.Base().ID(), linkLabel(src, dst.Base()))
				}
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func title(n nodegraph.Node) string {
	if t := n.Base().Title; t != "" {
		return t
	}
	return n.TypeTag()
}

// displayLabel hides the "##" prefix that marks a label as internal.
func displayLabel(p *nodegraph.PinBase) string {
	if strings.HasPrefix(p.Label, "##") {
		return ""
	}
	return p.Label
}

func linkLabel(src, dst *nodegraph.PinBase) string {
	from, to := displayLabel(src), displayLabel(dst)
	switch {
	case from == "" && to == "":
		return ""
	case from == "":
		return to
	case to == "":
		return from
	}
	return from + " → " + to
}

func tableLabel(n nodegraph.Node) string {
	b := n.Base()
	var sb strings.Builder
	sb.WriteString(`<TABLE BORDER="1" CELLBORDER="0" CELLSPACING="0" CELLPADDING="4" STYLE="ROUNDED">`)
	fmt.Fprintf(&sb, `<TR><TD BGCOLOR="%s"><FONT COLOR="%s"><B>%s</B></FONT></TD></TR>`,
		html.EscapeString(b.HeaderColor), html.EscapeString(b.TitleColor), html.EscapeString(title(n)))
	for p := range b.Pins() {
		pb := p.Base()
		label := displayLabel(pb)
		if label == "" {
			label = pb.Kind.String()
		}
		align := "LEFT"
		text := "● " + html.EscapeString(label)
		if pb.IO == nodegraph.Output {
			align = "RIGHT"
			text = html.EscapeString(label) + " ●"
		}
		fmt.Fprintf(&sb, `<TR><TD PORT="p%d" ALIGN="%s"><FONT COLOR="%s">%s</FONT></TD></TR>`,
			pb.ID(), align, pb.LabelColor.Hex(), text)
	}
	sb.WriteString(`</TABLE>`)
	return sb.String()
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-sized svg element with one
// sized by its viewBox.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
