package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/phrazzld/scry-tagger/internal/completion"
	"github.com/phrazzld/scry-tagger/internal/config"
	"github.com/phrazzld/scry-tagger/internal/platform/logger"
	"github.com/spf13/cobra"
)

// app carries the state shared by the subcommands. Fields set in
// PersistentPreRunE are valid inside every RunE.
type app struct {
	configFile string

	// logOut receives log output; nil means stdout.
	logOut io.Writer

	// newService builds the completion backend; tests replace it.
	newService func(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (completion.Service, error)

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{newService: newService}
	return a.rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tagger",
		Short: "Suggest tags for flashcards with a language model",
		Long: `tagger batches the pending cards of every deck into prompts, asks a
language model to suggest topic tags or to flag definition cards, and writes
the merged tags back to the card store.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "config file (default ./tagger.yaml)")

	root.AddCommand(
		a.runCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.migrateCmd(),
	)
	return root
}

// setup loads the configuration and installs the logger.
func (a *app) setup() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Log, a.logOut)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("configuration loaded",
		"provider", cfg.LLM.Provider,
		"model", cfg.LLM.ModelName,
		"store", cfg.Store.Backend,
		"tasks", cfg.Pipeline.Tasks,
		"log_level", cfg.Log.Level)
	if cfg.Database.URL != "" {
		l.Debug("database configuration", "url_present", true)
	}

	a.cfg, a.logger = cfg, l
	return nil
}
