package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-tagger/internal/completion"
	"github.com/phrazzld/scry-tagger/internal/config"
	"github.com/phrazzld/scry-tagger/internal/platform/anthropic"
	"github.com/phrazzld/scry-tagger/internal/platform/gemini"
	"github.com/phrazzld/scry-tagger/internal/platform/openai"
)

var errUnknownProvider = errors.New("unknown completion provider")

// newService builds the completion backend named by cfg.Provider.
func newService(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (completion.Service, error) {
	var (
		svc completion.Service
		err error
	)

	switch cfg.Provider {
	case "gemini":
		svc, err = gemini.NewService(ctx, logger, cfg)
	case "openai":
		svc, err = openai.NewService(logger, cfg, nil)
	case "anthropic":
		svc, err = anthropic.NewService(logger, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s service: %w", cfg.Provider, err)
	}
	return svc, nil
}
