package main

import (
	"fmt"
	"os"

	"github.com/phrazzld/scry-tagger/internal/domain"
	"github.com/phrazzld/scry-tagger/internal/platform/filestore"
	"github.com/phrazzld/scry-tagger/internal/store"
	"github.com/spf13/cobra"
)

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <deck-file>",
		Short: "Load the cards of a YAML deck file into the configured store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("failed to read deck file: %w", err)
			}
			src, err := filestore.Open(path, a.logger)
			if err != nil {
				return err
			}
			partitions, err := src.ListPartitions(ctx, store.Filter{IncludeProcessed: true})
			if err != nil {
				return err
			}

			var cards []*domain.Card
			for _, part := range partitions {
				cards = append(cards, part.Cards...)
			}
			if len(cards) == 0 {
				a.logger.Warn("deck file has no cards", "path", path)
				return nil
			}

			dst, closeStore, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := dst.CreateCards(ctx, cards); err != nil {
				return fmt.Errorf("failed to import cards: %w", err)
			}

			a.logger.Info("import complete",
				"path", path,
				"decks", len(partitions),
				"cards", len(cards))
			return nil
		},
	}
}
