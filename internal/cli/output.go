package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pingraph/pkg/codec"
	pgerrors "github.com/matzehuels/pingraph/pkg/errors"
	"github.com/matzehuels/pingraph/pkg/render/dot"
)

// convertCommand creates the "convert" command.
func (c *CLI) convertCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Convert a graph file between JSON, YAML and TOML",
		Long: `Convert a graph file to another snapshot format. Both formats follow the
file extensions (.json, .yaml/.yml, .toml).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := codec.ForPath(args[1]); err != nil {
				return err
			}
			g, err := c.readGraph(args[0])
			if err != nil {
				return err
			}
			if err := c.writeGraph(args[1], g); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "Converted %d nodes", g.Len())
			printFile(cmd.OutOrStdout(), args[1])
			return nil
		},
	}
}

// renderOpts holds the flags of the render command.
type renderOpts struct {
	output   string
	formats  []string
	rankdir  string
	showPins bool
	noCache  bool
}

// renderCommand creates the "render" command.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts
	var formats string

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render a graph with Graphviz",
		Long: `Render a graph file as DOT source, SVG, PNG or PDF. PNG and PDF need
rsvg-convert from librsvg.

With one format, -o names the output file. With several, -o is a base path
and each format gets its own extension. Without -o the output sits next
to the input file.`,
		Example: `  pingraph render factory.json
  pingraph render factory.yaml -f svg,png --pins --rankdir TB
  pingraph render factory.json -f dot -o -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.formats = parseFormats(formats)
			if err := validateFormats(opts.formats); err != nil {
				return err
			}
			return c.runRender(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file, base path for several formats, or - for stdout")
	cmd.Flags().StringVarP(&formats, "format", "f", dot.FormatSVG, "output format(s): "+strings.Join(dot.Formats, ", ")+" (comma-separated)")
	cmd.Flags().StringVar(&opts.rankdir, "rankdir", "LR", "layout direction: "+strings.Join(dot.Rankdirs, ", "))
	cmd.Flags().BoolVar(&opts.showPins, "pins", false, "draw pins as ports with per-pin edges")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "skip the artifact cache")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, input string, opts renderOpts) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if opts.output == "-" && len(opts.formats) > 1 {
		return pgerrors.New(pgerrors.ErrCodeInvalidInput, "cannot write %d formats to stdout", len(opts.formats))
	}

	g, err := c.readGraph(input)
	if err != nil {
		return err
	}

	cache, err := c.newCache(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer cache.Close()

	renderer := dot.NewRenderer(cache, nil, c.Logger)
	dotOpts := dot.Options{Rankdir: opts.rankdir, ShowPins: opts.showPins}
	prog := newProgress(c.Logger)
	allCached := true

	for _, format := range opts.formats {
		spinner := newSpinner(ctx, cmd.ErrOrStderr(), fmt.Sprintf("Rendering %s...", format))
		spinner.Start()
		data, cached, err := renderer.Render(ctx, g, format, dotOpts)
		if err != nil {
			spinner.StopWithError("Render %s failed", format)
			return err
		}
		spinner.Stop()
		allCached = allCached && cached

		if opts.output == "-" {
			_, err := out.Write(data)
			return err
		}
		path := outputPath(opts.output, input, format, len(opts.formats) > 1)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		printFile(out, path)
		if cached {
			printDetail(out, "%s served from cache", format)
		}
	}

	printStats(out, g.Len(), linkCount(g), allCached)
	prog.done("Render complete")
	return nil
}

// parseFormats splits the --format flag.
func parseFormats(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return []string{dot.FormatSVG}
	}
	return out
}

func validateFormats(formats []string) error {
	for _, f := range formats {
		if !isRenderFormat(f) {
			return pgerrors.New(pgerrors.ErrCodeInvalidFormat, "invalid format: %s (must be one of %s)", f, strings.Join(dot.Formats, ", "))
		}
	}
	return nil
}

func isRenderFormat(f string) bool {
	for _, valid := range dot.Formats {
		if f == valid {
			return true
		}
	}
	return false
}

// outputPath derives where one format is written. With several formats
// output is a base path and a known format extension on it is dropped.
func outputPath(output, input, format string, multi bool) string {
	if output != "" && !multi {
		return output
	}
	base := output
	if base == "" {
		base = strings.TrimSuffix(input, filepath.Ext(input))
	} else if ext := filepath.Ext(base); isRenderFormat(strings.TrimPrefix(ext, ".")) {
		base = strings.TrimSuffix(base, ext)
	}
	return base + "." + format
}
