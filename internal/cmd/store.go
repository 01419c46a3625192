package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/raidlens/raidlens/internal/config"
	"github.com/raidlens/raidlens/internal/core/metrics"
	"github.com/raidlens/raidlens/internal/core/store"
)

func openStore(ctx context.Context) (*store.Store, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// loadConfig loads the typed config and applies the optional lookup-table
// overlay so every command sees the same tables.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if path := cfg.Tables.OverlayPath; path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied overlay path
		if err != nil {
			return nil, fmt.Errorf("read tables overlay: %w", err)
		}
		if err := metrics.LoadOverlay(data); err != nil {
			return nil, fmt.Errorf("apply tables overlay: %w", err)
		}
	}

	return cfg, nil
}
