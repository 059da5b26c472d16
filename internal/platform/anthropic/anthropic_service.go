package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/phrazzld/scry-tagger/internal/completion"
	"github.com/phrazzld/scry-tagger/internal/config"
)

// Service implements completion.Service using the Anthropic Messages API.
type Service struct {
	logger      *slog.Logger
	client      sdk.Client
	model       string
	maxTokens   int64
	temperature float64
}

var _ completion.Service = (*Service)(nil)

// NewService creates an Anthropic completion service. Extra request options
// are appended after the ones derived from cfg.
func NewService(logger *slog.Logger, cfg config.LLMConfig, opts ...option.RequestOption) (*Service, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("%w: anthropic API key cannot be empty", ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}
	if cfg.MaxOutputTokens <= 0 {
		return nil, fmt.Errorf("%w: max output tokens must be positive", ErrInvalidConfig)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.AnthropicAPIKey),
		option.WithMaxRetries(0),
	}
	if cfg.RequestTimeout > 0 {
		clientOpts = append(clientOpts, option.WithRequestTimeout(cfg.RequestTimeout))
	}
	clientOpts = append(clientOpts, opts...)

	return &Service{
		logger:      logger.With("component", "anthropic"),
		client:      sdk.NewClient(clientOpts...),
		model:       cfg.ModelName,
		maxTokens:   int64(cfg.MaxOutputTokens),
		temperature: cfg.Temperature,
	}, nil
}

// Submit sends prompt as a single user message and returns the text blocks
// of the reply joined together.
func (s *Service) Submit(ctx context.Context, prompt string) (string, error) {
	s.logger.DebugContext(ctx, "Making Anthropic API call",
		"model", s.model,
		"prompt_length", len(prompt))

	msg, err := s.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(s.model),
		MaxTokens:   s.maxTokens,
		Temperature: sdk.Float(s.temperature),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", classifyError(err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: no text blocks in message", completion.ErrEmptyReply)
	}

	s.logger.DebugContext(ctx, "Anthropic API call successful",
		"reply_length", sb.Len(),
		"stop_reason", string(msg.StopReason))
	return sb.String(), nil
}

// classifyError turns HTTP 429 responses into *completion.RateLimitError.
func classifyError(err error) error {
	var apiErr *sdk.Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("anthropic request failed: %w", err)
	}

	rl := completion.NewRateLimitError(err)
	if apiErr.Response != nil {
		if hint, ok := completion.ParseDurationHint(apiErr.Response.Header.Get("retry-after")); ok {
			rl.Hint = &hint
		}
	}
	return rl
}
