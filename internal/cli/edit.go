package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	pgerrors "github.com/matzehuels/pingraph/pkg/errors"
	"github.com/matzehuels/pingraph/pkg/nodegraph"
	"github.com/matzehuels/pingraph/pkg/nodes"
)

// newCommand creates the "new" command.
func (c *CLI) newCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "new <file>",
		Short: "Create an empty graph file",
		Long:  "Create an empty graph snapshot. The extension (.json, .yaml, .toml) picks the format.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err == nil && !force {
				return pgerrors.New(pgerrors.ErrCodeConflict, "%s already exists (use --force to overwrite)", path)
			}
			if err := c.writeGraph(path, nodegraph.New(c.Registry)); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printSuccess(out, "Created %s", path)
			printNextStep(out, "Add a node", fmt.Sprintf("%s add %s tick", appName, path))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

// addOpts holds the flags of the "add" command.
type addOpts struct {
	title   string
	pins    []string // label:io:kind
	varType string
	value   string
	at      string // x,y
}

// addCommand creates the "add" command.
func (c *CLI) addCommand() *cobra.Command {
	var opts addOpts
	cmd := &cobra.Command{
		Use:   "add <file> <type>",
		Short: "Add a node to a graph file",
		Long: `Add a node of a registered type (see "pingraph types").

Plain nodes get their pins from --pin label:io:kind, e.g. --pin value:output:int.
Variables take --var-type and --value.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var added nodegraph.Node
			err := c.editGraph(args[0], func(g *nodegraph.Graph) error {
				n, err := c.buildNode(args[1], opts)
				if err != nil {
					return err
				}
				if !g.AddNode(n) {
					return pgerrors.New(pgerrors.ErrCodeConflict, "node %q refused to be added", args[1])
				}
				added = n
				return nil
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			b := added.Base()
			printSuccess(out, "Added %s node %s", added.TypeTag(), StyleNumber.Render(strconv.Itoa(b.ID())))
			for p := range b.Pins() {
				pb := p.Base()
				printDetail(out, "pin %d %s (%s %s)", pb.ID(), pinLabel(p), pb.IO, pb.Kind)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.title, "title", "", "node title")
	cmd.Flags().StringArrayVar(&opts.pins, "pin", nil, "extra pin as label:io:kind (repeatable)")
	cmd.Flags().StringVar(&opts.varType, "var-type", "", "variable type: "+strings.Join(varTypeNames(), ", "))
	cmd.Flags().StringVar(&opts.value, "value", "", "variable value")
	cmd.Flags().StringVar(&opts.at, "at", "", "canvas position as x,y")
	return cmd
}

// buildNode constructs an unattached node of type tag configured by opts.
func (c *CLI) buildNode(tag string, opts addOpts) (nodegraph.Node, error) {
	n, err := c.Registry.NewNode(tag)
	if err != nil {
		return nil, pgerrors.Wrap(pgerrors.ErrCodeUnknownType, err, "node type %q", tag)
	}
	b := n.Base()
	if opts.title != "" {
		if err := pgerrors.ValidateLabel(opts.title); err != nil {
			return nil, err
		}
		b.Title = opts.title
	}
	for _, spec := range opts.pins {
		p, err := parsePinSpec(spec)
		if err != nil {
			return nil, err
		}
		b.AddPin(p)
	}
	if opts.at != "" {
		x, y, err := parsePosition(opts.at)
		if err != nil {
			return nil, err
		}
		b.SetPosition(x, y)
	}

	v, isVar := n.(*nodes.VarNode)
	if !isVar {
		if opts.varType != "" || opts.value != "" {
			return nil, pgerrors.New(pgerrors.ErrCodeInvalidInput, "--var-type and --value only apply to %q nodes", nodes.VarNodeType)
		}
		return n, nil
	}
	if opts.varType != "" {
		t, err := nodes.ParseVarType(opts.varType)
		if err != nil {
			return nil, pgerrors.Wrap(pgerrors.ErrCodeInvalidInput, err, "--var-type")
		}
		v.SetType(t)
	}
	if opts.value != "" {
		if err := v.Data.Set(opts.value); err != nil {
			return nil, pgerrors.Wrap(pgerrors.ErrCodeInvalidInput, err, "--value")
		}
	}
	return n, nil
}

// parsePinSpec parses label:io:kind, e.g. "value:output:int". io accepts
// "in" and "out" as short forms.
func parsePinSpec(spec string) (nodegraph.Pin, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 3 {
		return nil, pgerrors.New(pgerrors.ErrCodeInvalidInput, "pin %q: want label:io:kind", spec)
	}
	if err := pgerrors.ValidateLabel(parts[0]); err != nil {
		return nil, err
	}
	ioName := parts[1]
	switch strings.ToLower(ioName) {
	case "in":
		ioName = "input"
	case "out":
		ioName = "output"
	}
	io, err := nodegraph.ParseIO(ioName)
	if err != nil {
		return nil, pgerrors.Wrap(pgerrors.ErrCodeInvalidInput, err, "pin %q", spec)
	}
	var kind nodegraph.PinKind
	if err := kind.UnmarshalText([]byte(parts[2])); err != nil {
		return nil, pgerrors.Wrap(pgerrors.ErrCodeInvalidInput, err, "pin %q", spec)
	}
	return nodegraph.NewPin(parts[0], io, kind), nil
}

func parsePosition(s string) (x, y float32, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, pgerrors.New(pgerrors.ErrCodeInvalidInput, "position %q: want x,y", s)
	}
	fx, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 32)
	fy, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 32)
	if errX != nil || errY != nil {
		return 0, 0, pgerrors.New(pgerrors.ErrCodeInvalidInput, "position %q: want x,y", s)
	}
	return float32(fx), float32(fy), nil
}

func varTypeNames() []string {
	types := nodes.VarTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}

// linkCommand creates the "link" command.
func (c *CLI) linkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "link <file> <from-pin> <to-pin>",
		Short: "Link an output pin to an input pin",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.editGraph(args[0], func(g *nodegraph.Graph) error {
				from, to, err := resolvePins(g, args[1], args[2])
				if err != nil {
					return err
				}
				fb, tb := from.Base(), to.Base()
				if fb == tb {
					return pgerrors.New(pgerrors.ErrCodeInvalidInput, "cannot link pin %d to itself", fb.ID())
				}
				if fb.IO != nodegraph.Output || tb.IO != nodegraph.Input {
					return pgerrors.New(pgerrors.ErrCodeInvalidInput, "links run from an output to an input, got %s %s %s", fb.IO, iconArrow, tb.IO)
				}
				if g.Link(from, to) == nodegraph.NoID {
					owner := g.FindNode(from.Base().NodeID())
					return pgerrors.New(pgerrors.ErrCodeConflict, "%s node %d refused the link", owner.TypeTag(), owner.Base().ID())
				}
				return nil
			})
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Linked pin %s %s %s", args[1], iconArrow, args[2])
			return nil
		},
	}
}

// unlinkCommand creates the "unlink" command.
func (c *CLI) unlinkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <file> <from-pin> <to-pin>",
		Short: "Remove a link between two pins",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.editGraph(args[0], func(g *nodegraph.Graph) error {
				from, to, err := resolvePins(g, args[1], args[2])
				if err != nil {
					return err
				}
				if !from.Base().RemoveLink(to) {
					return pgerrors.New(pgerrors.ErrCodeNotFound, "pin %s is not linked to pin %s", args[1], args[2])
				}
				return nil
			})
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Unlinked pin %s %s %s", args[1], iconArrow, args[2])
			return nil
		},
	}
}

// removeCommand creates the "remove" command.
func (c *CLI) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <file> <node-id>",
		Aliases: []string{"rm"},
		Short:   "Remove a node and its links",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("node", args[1])
			if err != nil {
				return err
			}
			err = c.editGraph(args[0], func(g *nodegraph.Graph) error {
				n := g.FindNode(id)
				if n.IsEmpty() {
					return pgerrors.New(pgerrors.ErrCodeNotFound, "node %d not found", id)
				}
				if !g.RemoveNode(n) {
					return pgerrors.New(pgerrors.ErrCodeConflict, "%s node %d refused to be removed", n.TypeTag(), id)
				}
				return nil
			})
			if err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Removed node %d", id)
			return nil
		},
	}
}

func parseID(what, s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, pgerrors.New(pgerrors.ErrCodeInvalidInput, "%s id %q must be a non-negative integer", what, s)
	}
	return id, nil
}

func resolvePins(g *nodegraph.Graph, fromArg, toArg string) (from, to nodegraph.Pin, err error) {
	fromID, err := parseID("pin", fromArg)
	if err != nil {
		return nil, nil, err
	}
	toID, err := parseID("pin", toArg)
	if err != nil {
		return nil, nil, err
	}
	if from = g.FindPin(fromID); from.IsEmpty() {
		return nil, nil, pgerrors.New(pgerrors.ErrCodeNotFound, "pin %d not found", fromID)
	}
	if to = g.FindPin(toID); to.IsEmpty() {
		return nil, nil, pgerrors.New(pgerrors.ErrCodeNotFound, "pin %d not found", toID)
	}
	return from, to, nil
}

// pinLabel returns a pin's label, or its type for the hidden "##" labels.
func pinLabel(p nodegraph.Pin) string {
	label := p.Base().Label
	if label == "" || strings.HasPrefix(label, "##") {
		return "<" + p.TypeTag() + ">"
	}
	return label
}
