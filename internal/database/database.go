// Package database selects and opens the configured sermon store.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JonMunkholm/sermonimport/internal/config"
	"github.com/JonMunkholm/sermonimport/internal/database/memstore"
	"github.com/JonMunkholm/sermonimport/internal/database/postgres"
	"github.com/JonMunkholm/sermonimport/internal/database/sqlite"
	"github.com/JonMunkholm/sermonimport/internal/sermonimport"
)

// Store is a sermon store with a connection lifecycle.
type Store interface {
	sermonimport.Store
	Ping(ctx context.Context) error
	Close()
}

// Open connects to the store named by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, postgres.PoolConfig{
			URL:             cfg.URL,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
		})
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := store.Migrate(ctx); err != nil {
				store.Close()
				return nil, err
			}
		}
		slog.Info("connected to database", "driver", cfg.Driver, "name", databaseName(cfg.URL))
		return store, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("opened database", "driver", cfg.Driver, "path", cfg.SQLitePath)
		return store, nil

	case config.DriverMemory:
		slog.Warn("using in-memory store, data is lost on exit")
		return memstore.New(), nil

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func databaseName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
