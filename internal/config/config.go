// Package config loads the pingraph configuration file.
//
// The file is TOML and lives at $XDG_CONFIG_HOME/pingraph/config.toml
// (~/.config/pingraph/config.toml when XDG_CONFIG_HOME is unset). Every field
// has a default, so a missing default file is not an error. Values are
// applied in order: defaults, file, environment, then command-line flags
// (applied by the caller). The result is checked with validator struct tags.
//
// # Environment
//
//   - PINGRAPH_STORE: store.backend
//   - PINGRAPH_CODEC: codec
//   - PINGRAPH_ADDR: server.addr
//
// # Example
//
//	codec = "yaml"
//
//	[store]
//	backend = "sqlite"
//	path = "/var/lib/pingraph/graphs.db"
//
//	[server]
//	addr = ":8080"
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	pgerrors "github.com/matzehuels/pingraph/pkg/errors"
	"github.com/matzehuels/pingraph/pkg/store"
)

// Config is the full configuration.
type Config struct {
	Codec  string       `toml:"codec" validate:"oneof=json yaml toml"`
	Store  StoreConfig  `toml:"store"`
	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`
	Sync   SyncConfig   `toml:"sync"`
	Log    LogConfig    `toml:"log"`
}

// StoreConfig selects where graph documents are kept.
type StoreConfig struct {
	Backend       string `toml:"backend" validate:"oneof=memory file sqlite redis mongo"`
	Path          string `toml:"path,omitempty"`
	RedisAddr     string `toml:"redis_addr,omitempty" validate:"required_if=Backend redis,omitempty,hostname_port"`
	RedisPrefix   string `toml:"redis_prefix,omitempty"`
	MongoURI      string `toml:"mongo_uri,omitempty" validate:"required_if=Backend mongo,omitempty,uri"`
	MongoDatabase string `toml:"mongo_database,omitempty"`
}

// CacheConfig selects where rendered artifacts are cached.
type CacheConfig struct {
	Backend   string `toml:"backend" validate:"oneof=none memory file redis"`
	Dir       string `toml:"dir,omitempty"`
	RedisAddr string `toml:"redis_addr,omitempty" validate:"required_if=Backend redis,omitempty,hostname_port"`
}

// ServerConfig configures `pingraph serve`.
type ServerConfig struct {
	Addr string `toml:"addr" validate:"required,hostname_port"`
}

// SyncConfig configures the host sync transport. An empty RedisAddr keeps
// sync in process.
type SyncConfig struct {
	RedisAddr string `toml:"redis_addr,omitempty" validate:"omitempty,hostname_port"`
	Channel   string `toml:"channel" validate:"required"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `toml:"level" validate:"oneof=debug info warn error"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Codec:  "json",
		Store:  StoreConfig{Backend: store.BackendFile},
		Cache:  CacheConfig{Backend: "file"},
		Server: ServerConfig{Addr: ":8080"},
		Sync:   SyncConfig{Channel: "pingraph:sync"},
		Log:    LogConfig{Level: "info"},
	}
}

// Dir returns the pingraph configuration directory.
func Dir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "pingraph"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", "pingraph"), nil
}

// DefaultPath returns the configuration file path.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the file at path over the defaults, applies the environment
// and validates the result. An empty path means [DefaultPath], which may be
// missing; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	md, err := toml.DecodeFile(path, cfg)
	switch {
	case err == nil:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, pgerrors.New(pgerrors.ErrCodeInvalidInput, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, pgerrors.Wrap(pgerrors.ErrCodeInvalidFormat, err, "read config %s", path)
	}

	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables read with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("PINGRAPH_STORE"); v != "" {
		c.Store.Backend = v
	}
	if v := getenv("PINGRAPH_CODEC"); v != "" {
		c.Codec = v
	}
	if v := getenv("PINGRAPH_ADDR"); v != "" {
		c.Server.Addr = v
	}
}

// Encode writes the configuration as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// StoreOptions converts the store section for [store.Open].
func (c *Config) StoreOptions() store.Config {
	return store.Config{
		Backend:       c.Store.Backend,
		Path:          c.Store.Path,
		RedisAddr:     c.Store.RedisAddr,
		RedisPrefix:   c.Store.RedisPrefix,
		MongoURI:      c.Store.MongoURI,
		MongoDatabase: c.Store.MongoDatabase,
	}
}

// =============================================================================
// Validation
// =============================================================================

var validate = validator.New()

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return pgerrors.New(pgerrors.ErrCodeInvalidInput, "invalid config: %s", strings.Join(msgs, "; "))
}

// formatFieldError names the field by its TOML path, e.g. store.redis_addr.
func formatFieldError(e validator.FieldError) string {
	field := fieldPath(e.Namespace())
	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s (got %q)", field, e.Param(), e.Value())
	case "hostname_port":
		return fmt.Sprintf("%s must be host:port (got %q)", field, e.Value())
	case "uri":
		return fmt.Sprintf("%s must be a URI (got %q)", field, e.Value())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

var fieldNames = map[string]string{
	"RedisAddr":     "redis_addr",
	"RedisPrefix":   "redis_prefix",
	"MongoURI":      "mongo_uri",
	"MongoDatabase": "mongo_database",
}

func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:] // drop "Config"
	}
	for i, p := range parts {
		if name, ok := fieldNames[p]; ok {
			parts[i] = name
		} else {
			parts[i] = strings.ToLower(p)
		}
	}
	return strings.Join(parts, ".")
}
