package main

import (
	"github.com/phrazzld/scry-tagger/internal/export"
	"github.com/phrazzld/scry-tagger/internal/store"
	"github.com/spf13/cobra"
)

func (a *app) exportCmd() *cobra.Command {
	var (
		out  string
		deck string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every card and its tags to CSV",
		Long: `export writes one row per card with its deck, question and tags. The
output goes to --out, then export.csv_path, then stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cards, closeStore, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			filter := store.Filter{DeckContains: a.cfg.Store.DeckContains, IncludeProcessed: true}
			if cmd.Flags().Changed("deck") {
				filter.DeckContains = deck
			}
			partitions, err := cards.ListPartitions(ctx, filter)
			if err != nil {
				return err
			}

			if out == "" {
				out = a.cfg.Export.CSVPath
			}
			opts := export.Options{Tags: export.AllTags}

			var w *export.Writer
			if out == "" {
				w, err = export.NewWriter(cmd.OutOrStdout(), opts)
			} else {
				w, err = export.Create(out, opts)
			}
			if err != nil {
				return err
			}

			for _, part := range partitions {
				if err := w.WriteDeck(part.Name, part.Cards); err != nil {
					_ = w.Close()
					return err
				}
			}
			if err := w.Close(); err != nil {
				return err
			}

			a.logger.Info("export complete",
				"decks", len(partitions),
				"rows", w.Rows(),
				"path", out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "CSV file to write")
	cmd.Flags().StringVar(&deck, "deck", "", "only export decks whose name contains this text")
	return cmd
}
