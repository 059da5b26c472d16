package main

import (
	"context"
	"time"

	"github.com/phrazzld/scry-tagger/internal/completion"
	"github.com/phrazzld/scry-tagger/internal/events"
	"github.com/phrazzld/scry-tagger/internal/export"
	"github.com/phrazzld/scry-tagger/internal/pipeline"
	"github.com/phrazzld/scry-tagger/internal/platform/logger"
	"github.com/phrazzld/scry-tagger/internal/redact"
	"github.com/spf13/cobra"
)

func (a *app) runCmd() *cobra.Command {
	var (
		dryRun bool
		deck   string
		limit  int
		csv    string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Tag every pending card and write the tags back",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("deck") {
				a.cfg.Store.DeckContains = deck
			}
			if flags.Changed("limit") {
				a.cfg.Store.Limit = limit
			}
			if flags.Changed("csv") {
				a.cfg.Export.CSVPath = csv
			}
			_, err := a.run(cmd.Context(), dryRun)
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "query the model but do not write tags back to the store")
	cmd.Flags().StringVar(&deck, "deck", "", "only process decks whose name contains this text")
	cmd.Flags().IntVar(&limit, "limit", 0, "process at most this many cards (0 for no limit)")
	cmd.Flags().StringVar(&csv, "csv", "", "also write suggested tags to this CSV file")
	return cmd
}

// run executes one tagging pass over the configured store.
func (a *app) run(ctx context.Context, dryRun bool) (pipeline.Report, error) {
	log := a.logger.With("component", "run")
	ctx = logger.WithLogger(ctx, log)

	pcfg, err := pipeline.ConfigFromSettings(a.cfg.Pipeline)
	if err != nil {
		return pipeline.Report{}, err
	}

	service, err := a.newService(ctx, a.cfg.LLM, a.logger)
	if err != nil {
		return pipeline.Report{}, err
	}
	client, err := completion.NewClient(service, completion.ClientConfig{
		DefaultWait: a.cfg.LLM.DefaultRetryWait,
	}, a.logger)
	if err != nil {
		return pipeline.Report{}, err
	}

	cards, closeStore, err := a.openStore(ctx)
	if err != nil {
		return pipeline.Report{}, err
	}
	defer closeStore()

	partitions, err := cards.ListPartitions(ctx, a.filter())
	if err != nil {
		return pipeline.Report{}, err
	}

	var sinks []pipeline.Sink
	if dryRun {
		log.InfoContext(ctx, "dry run, tags will not be written back")
	} else {
		sinks = append(sinks, pipeline.StoreSink(cards))
	}
	if path := a.cfg.Export.CSVPath; path != "" {
		csvReport, err := export.Create(path, export.Options{SkipUntagged: true})
		if err != nil {
			return pipeline.Report{}, err
		}
		defer func() {
			if err := csvReport.Close(); err != nil {
				log.ErrorContext(ctx, "failed to close CSV report", "path", path, redact.ErrorAttr(err))
			}
		}()
		sinks = append(sinks, pipeline.CSVSink(csvReport))
	}

	sink := pipeline.NopSink
	if len(sinks) > 0 {
		sink = pipeline.MultiSink(sinks...)
	}

	emitter := events.NewInMemoryEventEmitter(a.logger)
	progress := events.NewProgressHandler(a.logger)
	emitter.RegisterHandler(progress)

	p, err := pipeline.New(client, sink, emitter, pcfg, a.logger)
	if err != nil {
		return pipeline.Report{}, err
	}
	progress.SetTotal(p.Workload(partitions))

	start := time.Now()
	report, err := p.Run(ctx, partitions)

	snap := progress.Snapshot()
	log.InfoContext(ctx, "run summary",
		"decks", len(report.Partitions),
		"decks_failed", len(report.Failed()),
		"cards_updated", report.Updated(),
		"cards_mismatched", snap.CardsMismatched,
		"cards_total", snap.CardsTotal,
		"duration", time.Since(start).String())
	if err != nil {
		log.ErrorContext(ctx, "run finished with errors", redact.ErrorAttr(err))
	}
	return report, err
}
