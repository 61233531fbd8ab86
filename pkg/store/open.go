package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	pgerrors "github.com/matzehuels/pingraph/pkg/errors"
)

// Backend names accepted by [Open].
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Backends lists every backend name.
var Backends = []string{BackendMemory, BackendFile, BackendSQLite, BackendRedis, BackendMongo}

// Config selects and configures a backend.
type Config struct {
	Backend       string // one of [Backends]; empty means file
	Path          string // directory for file, database file for sqlite
	RedisAddr     string
	RedisPrefix   string
	MongoURI      string
	MongoDatabase string
}

// DefaultDir returns ~/.config/pingraph/graphs, honouring XDG_CONFIG_HOME.
func DefaultDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "pingraph", "graphs"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", "pingraph", "graphs"), nil
}

// Open builds the configured backend wrapped with [Instrument].
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	backend := cfg.Backend
	if backend == "" {
		backend = BackendFile
	}
	switch backend {
	case BackendMemory:
		s = NewMemoryStore()
	case BackendFile:
		s, err = NewFileStore(cfg.Path)
	case BackendSQLite:
		path := cfg.Path
		if path == "" {
			dir, derr := DefaultDir()
			if derr != nil {
				return nil, derr
			}
			path = filepath.Join(filepath.Dir(dir), "graphs.db")
		}
		s, err = NewSQLiteStore(ctx, path)
	case BackendRedis:
		s, err = NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPrefix)
	case BackendMongo:
		s, err = NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, pgerrors.New(pgerrors.ErrCodeInvalidInput, "unknown store backend %q", backend)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(s, backend), nil
}
