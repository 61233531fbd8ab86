package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pingraph/pkg/nodegraph"
)

// showCommand creates the "show" command.
func (c *CLI) showCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <file>",
		Short: "Print the nodes, pins and links of a graph file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := c.readGraph(args[0])
			if err != nil {
				return err
			}
			printGraph(cmd.OutOrStdout(), args[0], g)
			return nil
		},
	}
}

// printGraph writes a title line, a stats line and one table row per pin.
func printGraph(w io.Writer, name string, g *nodegraph.Graph) {
	fmt.Fprintln(w, StyleTitle.Render(name))
	printStats(w, g.Len(), linkCount(g), false)
	if g.Len() == 0 {
		printInfo(w, "Graph is empty")
		return
	}
	fmt.Fprintln(w, graphTable(g).Render())
}

func graphTable(g *nodegraph.Graph) *table.Table {
	var rows [][]string
	for n := range g.Nodes() {
		b := n.Base()
		node := fmt.Sprintf("%d %s", b.ID(), b.Title)
		if !b.HasPins() {
			rows = append(rows, []string{node, n.TypeTag(), "", "", "", ""})
		}
		first := true
		for p := range b.Pins() {
			pb := p.Base()
			row := []string{"", "", strconv.Itoa(pb.ID()), pinLabel(p), pinDirection(pb), linkList(pb)}
			if first {
				row[0], row[1] = node, n.TypeTag()
				first = false
			}
			rows = append(rows, row)
		}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Node", "Type", "Pin", "Label", "IO", "Links").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			switch {
			case row == table.HeaderRow:
				return base.Inherit(styleHeader)
			case col == 0 || col == 2:
				return base.Foreground(colorCyan)
			case col == 1 || col == 5:
				return base.Foreground(colorGray)
			}
			return base
		})
}

// pinDirection renders "in int" or "out flow" coloured by direction.
func pinDirection(p *nodegraph.PinBase) string {
	switch p.IO {
	case nodegraph.Input:
		return styleInput.Render("in " + p.Kind.String())
	case nodegraph.Output:
		return styleOutput.Render("out " + p.Kind.String())
	}
	return p.Kind.String()
}

// linkList renders a pin's outgoing links as "→ 3, 5".
func linkList(p *nodegraph.PinBase) string {
	if !p.HasToLinks() {
		return ""
	}
	ids := make([]string, 0, p.ToCount())
	for id := range p.ToLinks() {
		ids = append(ids, strconv.Itoa(id))
	}
	return iconArrow + " " + strings.Join(ids, ", ")
}

// linkCount counts outgoing links over all pins.
func linkCount(g *nodegraph.Graph) int {
	n := 0
	for node := range g.Nodes() {
		for p := range node.Base().Pins() {
			n += p.Base().ToCount()
		}
	}
	return n
}

// typesCommand creates the "types" command.
func (c *CLI) typesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the registered node and pin types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, StyleTitle.Render("Node types"))
			for _, tag := range c.Registry.NodeTypes() {
				printDetail(out, "%s", tag)
			}
			fmt.Fprintln(out, StyleTitle.Render("Pin types"))
			for _, tag := range c.Registry.PinTypes() {
				printDetail(out, "%s", tag)
			}
			return nil
		},
	}
}
