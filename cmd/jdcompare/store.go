package main

import (
	"context"
	"fmt"

	"github.com/spetersoncode/jdcompare/store"
	"github.com/spetersoncode/jdcompare/store/bolt"
	"github.com/spetersoncode/jdcompare/store/postgres"
)

// openStore selects the persistence backend: Postgres when DATABASE_URL is
// set, otherwise a bolt file when JDCOMPARE_BOLT_PATH is set, otherwise
// memory. It returns the store and the backend name.
func openStore(ctx context.Context, cfg *Config) (store.Store, string, error) {
	switch {
	case cfg.DatabaseURL != "":
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, "", err
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, "", err
		}
		return pg, "postgres", nil
	case cfg.BoltPath != "":
		b, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return nil, "", fmt.Errorf("open bolt store: %w", err)
		}
		return b, "bolt", nil
	default:
		return store.NewMemory(), "memory", nil
	}
}
