package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pingraph/pkg/nodegraph"
)

// inspectCommand creates the "inspect" command.
func (c *CLI) inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Browse a graph file interactively",
		Long: `Browse the nodes of a graph file. Select a node to list its pins, then
follow a pin's links to the nodes on the other end.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := c.readGraph(args[0])
			if err != nil {
				return err
			}
			if g.Len() == 0 {
				printInfo(cmd.OutOrStdout(), "Graph is empty")
				return nil
			}
			p := tea.NewProgram(NewInspectModel(args[0], g),
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			_, err = p.Run()
			return err
		},
	}
}

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	detailBoxStyle    = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorDim).
				Padding(0, 1)
)

// =============================================================================
// InspectModel - Interactive node and pin browser
// =============================================================================

// InspectModel is the bubbletea model behind "inspect". The node list is on
// the left; the selected node's pins are on the right. Focus moves between
// them with enter/right and esc/left.
type InspectModel struct {
	Name  string
	Graph *nodegraph.Graph
	Nodes []nodegraph.Node

	Cursor    int  // selected node
	PinCursor int  // selected pin when PinFocus is set
	PinFocus  bool // keys move through pins instead of nodes
	Height    int
	Offset    int
}

// NewInspectModel creates an inspector over g.
func NewInspectModel(name string, g *nodegraph.Graph) InspectModel {
	return InspectModel{Name: name, Graph: g, Nodes: g.NodeList(), Height: 15}
}

func (m InspectModel) Init() tea.Cmd {
	return nil
}

func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			m.move(-1)
		case "down", "j":
			m.move(1)
		case "enter", "right", "l":
			if !m.PinFocus {
				if m.current().Base().HasPins() {
					m.PinFocus = true
					m.PinCursor = 0
				}
				return m, nil
			}
			m.follow()
		case "esc", "left", "h":
			m.PinFocus = false
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	return m, nil
}

func (m *InspectModel) move(delta int) {
	if m.PinFocus {
		m.PinCursor = clamp(m.PinCursor+delta, 0, m.current().Base().Count()-1)
		return
	}
	m.Cursor = clamp(m.Cursor+delta, 0, len(m.Nodes)-1)
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

// follow jumps to the node on the other end of the selected pin's first
// link, trying outgoing links before incoming ones.
func (m *InspectModel) follow() {
	p := m.current().Base().Pin(m.PinCursor).Base()
	peer := p.ToPin(0, m.Graph)
	if peer.IsEmpty() {
		peer = p.FromPin(0, m.Graph)
	}
	if peer.IsEmpty() {
		return
	}
	target := peer.Base()
	for i, n := range m.Nodes {
		if n.Base().ID() != target.NodeID() {
			continue
		}
		m.Cursor = i
		m.PinCursor = 0
		for j := range n.Base().Count() {
			if n.Base().Pin(j).Base() == target {
				m.PinCursor = j
			}
		}
		m.Offset = clamp(m.Offset, max(m.Cursor-m.Height+1, 0), m.Cursor)
		return
	}
}

func (m InspectModel) current() nodegraph.Node {
	if m.Cursor < 0 || m.Cursor >= len(m.Nodes) {
		return nodegraph.EmptyNode
	}
	return m.Nodes[m.Cursor]
}

func (m InspectModel) View() string {
	var b strings.Builder
	b.WriteString(StyleTitle.Render(m.Name))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ pins/follow link  esc back  q quit"))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.nodeList(), "  ", m.detail()))
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Nodes))))
	return b.String()
}

func (m InspectModel) nodeList() string {
	var b strings.Builder
	end := min(m.Offset+m.Height, len(m.Nodes))
	for i := m.Offset; i < end; i++ {
		n := m.Nodes[i].Base()
		line := fmt.Sprintf("%3d %-20s %s", n.ID(), n.Title, listDimStyle.Render(m.Nodes[i].TypeTag()))
		if i == m.Cursor {
			b.WriteString(listSelectedStyle.Render("▸ " + line))
		} else {
			b.WriteString(listNormalStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m InspectModel) detail() string {
	n := m.current()
	nb := n.Base()
	var b strings.Builder
	b.WriteString(StyleTitle.Render(fmt.Sprintf("%s #%d", nb.Title, nb.ID())))
	b.WriteString("\n")
	if nb.Placed() {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("at %.0f,%.0f", nb.GraphX, nb.GraphY)))
		b.WriteString("\n")
	}
	if !nb.HasPins() {
		b.WriteString(listDimStyle.Render("no pins"))
	}
	i := 0
	for p := range nb.Pins() {
		pb := p.Base()
		line := fmt.Sprintf("%3d %-12s %s %s", pb.ID(), pinLabel(p), pinDirection(pb), listDimStyle.Render(linkList(pb)))
		if pb.HasFromLinks() {
			line += listDimStyle.Render(fmt.Sprintf(" ← %d", pb.FromCount()))
		}
		if m.PinFocus && i == m.PinCursor {
			b.WriteString(listSelectedStyle.Render("▸ ") + line)
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
		i++
	}
	return detailBoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
