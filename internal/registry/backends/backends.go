// Package backends opens the registry backend named in configuration.
package backends

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/checkcode/internal/registry"
	"github.com/MeKo-Tech/checkcode/internal/registry/memdb"
	"github.com/MeKo-Tech/checkcode/internal/registry/postgres"
	"github.com/MeKo-Tech/checkcode/internal/registry/remote"
)

// Backend names.
const (
	Memory   = "memory"
	Postgres = "postgres"
	Remote   = "remote"
)

// Names lists the supported backends.
var Names = []string{Memory, Postgres, Remote}

// Options selects and configures a backend.
type Options struct {
	Backend string
	// Path is the memory backend's journal file; empty keeps nothing on disk.
	Path string
	// DSN is the postgres connection string.
	DSN string
	// URL is the base URL of a remote checkcode server.
	URL     string
	Timeout time.Duration
	// CacheTTL wraps the backend with a lookup cache when positive.
	CacheTTL time.Duration
}

// Open returns the configured registry and a function releasing its
// resources. The close function is never nil.
func Open(ctx context.Context, opts Options) (registry.Registry, func() error, error) {
	reg, closeFn, err := open(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	if opts.CacheTTL > 0 {
		reg = registry.NewCached(reg, opts.CacheTTL)
	}
	slog.Debug("Registry backend ready", "backend", backendName(opts.Backend), "cache_ttl", opts.CacheTTL)
	return reg, closeFn, nil
}

func open(ctx context.Context, opts Options) (registry.Registry, func() error, error) {
	switch backendName(opts.Backend) {
	case Memory:
		s, err := memdb.Open(memdb.Options{Path: opts.Path})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case Postgres:
		if opts.DSN == "" {
			return nil, nil, fmt.Errorf("postgres backend requires a dsn")
		}
		if opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
			defer cancel()
		}
		s, db, err := postgres.Open(ctx, opts.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, db.Close, nil

	case Remote:
		c, err := remote.New(opts.URL, opts.Timeout)
		if err != nil {
			return nil, nil, err
		}
		return c, func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown registry backend %q (must be one of: memory, postgres, remote)", opts.Backend)
}

func backendName(s string) string {
	if s == "" {
		return Memory
	}
	return s
}
