package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pingraph/pkg/codec"
	pgerrors "github.com/matzehuels/pingraph/pkg/errors"
	"github.com/matzehuels/pingraph/pkg/host"
	"github.com/matzehuels/pingraph/pkg/nodegraph"
	"github.com/matzehuels/pingraph/pkg/store"
)

// requestInterval is how often a client repeats its update request until
// the first snapshot arrives.
const requestInterval = time.Second

// syncOpts holds the flags of the sync command.
type syncOpts struct {
	scope   string
	side    string
	once    bool
	persist bool
	timeout time.Duration
}

// syncCommand creates the "sync" command.
func (c *CLI) syncCommand() *cobra.Command {
	opts := syncOpts{side: "client"}

	cmd := &cobra.Command{
		Use:   "sync <file>",
		Short: "Keep a graph file in step with a peer over Redis",
		Long: `Join a sync scope as the server or the client side and mirror the graph
into a local file.

The server side loads the file, pushes it to connected clients and answers
their update requests. The client side requests the server's graph and
rewrites the file whenever a snapshot or node update arrives. Messages
travel over Redis pub/sub at sync.redis_addr on the sync.channel prefix.`,
		Example: `  pingraph sync factory.json --scope factory --side server
  pingraph sync mirror.yaml --scope factory --side client --once`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSync(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.scope, "scope", "", "sync scope, usually the graph id (required)")
	cmd.Flags().StringVar(&opts.side, "side", opts.side, "side to join: server or client")
	cmd.Flags().BoolVar(&opts.once, "once", false, "client: exit after the first snapshot")
	cmd.Flags().BoolVar(&opts.persist, "persist", false, "also save every applied update to the store")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "give up after this long (0 means never)")
	_ = cmd.MarkFlagRequired("scope")

	return cmd
}

func (c *CLI) runSync(cmd *cobra.Command, path string, opts syncOpts) error {
	side, err := nodegraph.ParseSide(opts.side)
	if err != nil || side == nodegraph.Neither {
		return pgerrors.New(pgerrors.ErrCodeInvalidInput, "invalid side %q (want server or client)", opts.side)
	}
	cd, err := codec.ForPath(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if opts.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	transport, err := c.newTransport(ctx)
	if err != nil {
		return err
	}
	defer transport.Close()

	var s store.Store
	if opts.persist {
		if s, err = c.openStore(ctx); err != nil {
			return err
		}
		defer s.Close()
	}

	out := cmd.OutOrStdout()
	received := make(chan struct{})
	var h *host.Host
	h = host.New(host.Options{
		Scope:     opts.scope,
		Side:      side,
		Registry:  c.Registry,
		Codec:     cd,
		Store:     s,
		Transport: transport,
		Logger:    c.Logger,
		OnApply: func(kind host.Kind) {
			if err := c.mirror(ctx, h, path, opts.persist); err != nil {
				c.Logger.Error("mirror update failed", "path", path, "err", err)
				return
			}
			printInfo(out, "Applied %s update", kind)
			if kind == host.KindGraph {
				select {
				case <-received:
				default:
					close(received)
				}
			}
		},
	})

	if data, err := os.ReadFile(path); err == nil {
		if err := h.ApplyTag(data); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
	} else if side == nodegraph.Server {
		return fmt.Errorf("read %s: %w", path, err)
	}

	errc := make(chan error, 1)
	go func() { errc <- h.Run(ctx) }()
	printSuccess(out, "Joined scope %s as %s", opts.scope, side)

	if side == nodegraph.Server {
		if err := h.PushUpdate(ctx); err != nil {
			c.Logger.Warn("initial push failed", "err", err)
		}
		return <-errc
	}

	// Clients repeat the request until a snapshot arrives: the server may
	// not be subscribed yet, and pub/sub does not buffer.
	ticker := time.NewTicker(requestInterval)
	defer ticker.Stop()
	for {
		if err := h.RequestUpdate(ctx); err != nil && ctx.Err() == nil {
			c.Logger.Warn("update request failed", "err", err)
		}
		select {
		case <-received:
			if opts.once {
				cancel()
			}
			return <-errc
		case err := <-errc:
			if err == nil && ctx.Err() != nil {
				return pgerrors.New(pgerrors.ErrCodeTimeout, "no snapshot received for scope %s", opts.scope)
			}
			return err
		case <-ticker.C:
		}
	}
}

// mirror writes the host's graph to path and, with persist, to the store.
func (c *CLI) mirror(ctx context.Context, h *host.Host, path string, persist bool) error {
	data, err := h.UpdateTag()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if persist {
		return h.Save(ctx)
	}
	return nil
}

// newTransport connects to the configured sync transport.
func (c *CLI) newTransport(ctx context.Context) (host.Transport, error) {
	if c.transport != nil {
		return nopCloseTransport{c.transport}, nil
	}
	if c.Config.Sync.RedisAddr == "" {
		return nil, pgerrors.New(pgerrors.ErrCodeInvalidInput, "sync needs sync.redis_addr in the config")
	}
	return host.NewRedisTransport(ctx, c.Config.Sync.RedisAddr, c.Config.Sync.Channel, c.Logger)
}

// nopCloseTransport keeps an injected transport open for its other users.
type nopCloseTransport struct{ host.Transport }

func (nopCloseTransport) Close() error { return nil }
