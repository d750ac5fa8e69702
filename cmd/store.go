package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/teklifbul/intake/internal/config"
	"github.com/teklifbul/intake/internal/memory"
)

// openStore opens the configured submitter-memory backend and runs its
// migration.
func openStore(ctx context.Context, cfg *config.Config) (memory.Store, error) {
	var (
		st  memory.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite", "":
		if dir := filepath.Dir(cfg.Store.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, eris.Wrapf(err, "create store dir %s", dir)
			}
		}
		st, err = memory.NewSQLite(cfg.Store.Path, cfg.Store.BucketCap)
	case "postgres":
		st, err = memory.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.BucketCap)
	case "memory":
		st = memory.NewInMemory(cfg.Store.BucketCap)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}
