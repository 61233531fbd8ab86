package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/pingraph/internal/config"
	"github.com/matzehuels/pingraph/pkg/buildinfo"
	"github.com/matzehuels/pingraph/pkg/cache"
	"github.com/matzehuels/pingraph/pkg/codec"
	"github.com/matzehuels/pingraph/pkg/host"
	"github.com/matzehuels/pingraph/pkg/nodegraph"
	"github.com/matzehuels/pingraph/pkg/nodes"
	"github.com/matzehuels/pingraph/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "pingraph"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger   *log.Logger
	Config   *config.Config
	Registry *nodegraph.Registry

	configPath string
	verbose    bool
	transport  host.Transport // overrides the Redis sync transport
}

// New creates a new CLI instance with a default logger, the default
// configuration and a registry holding every built-in node type.
func New(w io.Writer, level log.Level) *CLI {
	reg := nodegraph.NewRegistry()
	if err := nodes.Register(reg); err != nil {
		panic(err)
	}
	return &CLI{
		Logger:   newLogger(w, level),
		Config:   config.Default(),
		Registry: reg,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Pingraph edits, stores, renders and syncs node graphs",
		Long: `Pingraph works with node graphs: nodes carry typed input and output pins,
and links connect an output pin to input pins. Graphs are kept as JSON, YAML
or TOML snapshots, in files or in a store, and can be rendered with Graphviz,
served over HTTP or synced between a client and a server.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		PersistentPreRunE: c.loadConfig,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/pingraph/config.toml)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")

	// Editing
	root.AddCommand(c.newCommand())
	root.AddCommand(c.addCommand())
	root.AddCommand(c.linkCommand())
	root.AddCommand(c.unlinkCommand())
	root.AddCommand(c.removeCommand())

	// Viewing and output
	root.AddCommand(c.showCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.convertCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.typesCommand())

	// Storage, serving and sync
	root.AddCommand(c.storeCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.syncCommand())

	// Housekeeping
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the configuration file and applies the log level.
// --verbose wins over log.level.
func (c *CLI) loadConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.Config = cfg

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = LogInfo
	}
	if c.verbose {
		level = LogDebug
	}
	c.SetLogLevel(level)
	c.Logger.Debug("loaded config", "store", cfg.Store.Backend, "codec", cfg.Codec)
	return nil
}

// =============================================================================
// Graph Files
// =============================================================================

// readGraph loads a snapshot file; the codec follows the file extension.
func (c *CLI) readGraph(path string) (*nodegraph.Graph, error) {
	g, err := codec.ReadFile(path, c.Registry)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("read graph", "path", path, "nodes", g.Len())
	return g, nil
}

// writeGraph saves g to path; the codec follows the file extension.
func (c *CLI) writeGraph(path string, g *nodegraph.Graph) error {
	if err := codec.WriteFile(path, g); err != nil {
		return err
	}
	c.Logger.Debug("wrote graph", "path", path, "nodes", g.Len())
	return nil
}

// editGraph loads path, applies fn and writes the result back.
func (c *CLI) editGraph(path string, fn func(g *nodegraph.Graph) error) error {
	g, err := c.readGraph(path)
	if err != nil {
		return err
	}
	if err := fn(g); err != nil {
		return err
	}
	return c.writeGraph(path, g)
}

// =============================================================================
// Backends
// =============================================================================

// openStore opens the configured document store.
func (c *CLI) openStore(ctx context.Context) (store.Store, error) {
	s, err := store.Open(ctx, c.Config.StoreOptions())
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("opened store", "backend", c.Config.Store.Backend)
	return s, nil
}

// newCache opens the configured artifact cache. noCache forces a null
// cache.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch c.Config.Cache.Backend {
	case "none":
		return cache.NewNullCache(), nil
	case "memory":
		return cache.NewMemoryCache(), nil
	case "redis":
		return cache.NewRedisCache(ctx, c.Config.Cache.RedisAddr)
	}
	dir, err := c.cacheDir()
	if err != nil {
		c.Logger.Warn("artifact cache disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the artifact cache directory: cache.dir from the config,
// else the XDG default (~/.cache/pingraph/).
func (c *CLI) cacheDir() (string, error) {
	if c.Config != nil && c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return defaultCacheDir()
}

func defaultCacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".cache", appName), nil
}
