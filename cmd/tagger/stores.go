package main

import (
	"context"
	"fmt"

	"github.com/phrazzld/scry-tagger/internal/platform/filestore"
	"github.com/phrazzld/scry-tagger/internal/platform/postgres"
	"github.com/phrazzld/scry-tagger/internal/store"
)

// openStore returns the configured card store and a function that releases
// its resources.
func (a *app) openStore(ctx context.Context) (store.CardStore, func(), error) {
	switch a.cfg.Store.Backend {
	case "file":
		s, err := filestore.Open(a.cfg.Store.DeckFile, a.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open deck file: %w", err)
		}
		return s, func() {}, nil

	case "postgres":
		pool, err := postgres.NewPool(ctx, a.cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s, err := postgres.NewCardStore(pool, a.logger)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		a.logger.Info("database connection established")
		return s, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", a.cfg.Store.Backend)
	}
}

// filter builds the card filter from the store settings.
func (a *app) filter() store.Filter {
	return store.Filter{
		DeckContains: a.cfg.Store.DeckContains,
		Limit:        a.cfg.Store.Limit,
		// stripping must reach the cards that carry the marker
		IncludeProcessed: a.cfg.Pipeline.StripMarker,
	}
}
