package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/pingraph/internal/metrics"
	"github.com/matzehuels/pingraph/internal/server"
	"github.com/matzehuels/pingraph/pkg/render/dot"
)

// serveCommand creates the "serve" command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var noMetrics bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the graph HTTP API",
		Long: `Serve stored graphs over HTTP: list, fetch, replace and delete graphs,
look up single nodes and render graphs with Graphviz. Prometheus metrics
are exposed on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = c.Config.Server.Addr
			}

			var opts server.Options
			if !noMetrics {
				collector := metrics.NewCollector("")
				collector.Install()
				opts.Metrics = collector.Handler()
			}

			s, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			artifacts, err := c.newCache(ctx, false)
			if err != nil {
				return err
			}
			defer artifacts.Close()

			opts.Store = s
			opts.Registry = c.Registry
			opts.Renderer = dot.NewRenderer(artifacts, nil, c.Logger)
			opts.Logger = c.Logger

			printInfo(cmd.OutOrStdout(), "Serving %s store on %s", c.Config.Store.Backend, addr)
			return server.New(opts).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not expose /metrics")
	return cmd
}
