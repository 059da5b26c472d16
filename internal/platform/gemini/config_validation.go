package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-tagger/internal/config"
)

// validateConfig checks the settings the Gemini service cannot run without.
func validateConfig(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) error {
	if cfg.GeminiAPIKey == "" {
		logger.ErrorContext(ctx, "Missing Gemini API key",
			"error", "GeminiAPIKey is empty")
		return fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		logger.ErrorContext(ctx, "Missing model name",
			"error", "ModelName is empty")
		return fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	if cfg.MaxOutputTokens <= 0 {
		logger.WarnContext(ctx, "Invalid MaxOutputTokens value",
			"value", cfg.MaxOutputTokens,
			"action", "letting the model decide")
	}

	return nil
}
