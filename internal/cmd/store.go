package cmd

import (
	"context"

	"github.com/agritox/agritox/internal/config"
	"github.com/agritox/agritox/internal/core/store"
)

func openStore(ctx context.Context) (*store.Store, error) {
	return openStoreWith(ctx, loadConfig(ctx, nil).Store)
}

func openStoreWith(ctx context.Context, cfg config.StoreConfig) (*store.Store, error) {
	db, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
