package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/scry-tagger/internal/completion"
	"github.com/phrazzld/scry-tagger/internal/config"
	"google.golang.org/genai"
)

// retryInfoType identifies the google.rpc.RetryInfo entry in API error details.
const retryInfoType = "type.googleapis.com/google.rpc.RetryInfo"

// contentGenerator is the subset of *genai.Models used by Service.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Service implements completion.Service using Google's Gemini API.
type Service struct {
	// logger is used for structured logging
	logger *slog.Logger

	// models issues GenerateContent requests
	models contentGenerator

	// model is the name of the Gemini model to use
	model string

	// genConfig is sent with every request
	genConfig *genai.GenerateContentConfig
}

var _ completion.Service = (*Service)(nil)

// NewService creates a Gemini completion service from the LLM configuration.
func NewService(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Service, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	logger = logger.With("component", "gemini")

	if err := validateConfig(ctx, logger, cfg); err != nil {
		return nil, err
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.RequestTimeout > 0 {
		clientConfig.HTTPOptions.Timeout = &cfg.RequestTimeout
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return newService(logger, client.Models, cfg), nil
}

func newService(logger *slog.Logger, models contentGenerator, cfg config.LLMConfig) *Service {
	genConfig := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(cfg.Temperature)),
	}
	if cfg.MaxOutputTokens > 0 {
		genConfig.MaxOutputTokens = int32(cfg.MaxOutputTokens)
	}

	return &Service{
		logger:    logger,
		models:    models,
		model:     cfg.ModelName,
		genConfig: genConfig,
	}
}

// Submit sends prompt as a single user turn and returns the concatenated text
// of the first candidate.
func (s *Service) Submit(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	s.logger.DebugContext(ctx, "Making Gemini API call",
		"model", s.model,
		"prompt_length", len(prompt))

	resp, err := s.models.GenerateContent(ctx, s.model, contents, s.genConfig)
	if err != nil {
		return "", classifyError(err)
	}

	text, err := responseText(resp)
	if err != nil {
		return "", err
	}

	s.logger.DebugContext(ctx, "Gemini API call successful",
		"reply_length", len(text))
	return text, nil
}

// responseText extracts the reply text from the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in response", completion.ErrEmptyReply)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", ErrContentBlocked
	}
	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", completion.ErrEmptyReply)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: no text parts in response", completion.ErrEmptyReply)
	}
	return sb.String(), nil
}

// classifyError turns throttling API errors into *completion.RateLimitError.
func classifyError(err error) error {
	apiErr, ok := asAPIError(err)
	if !ok {
		return fmt.Errorf("gemini request failed: %w", err)
	}

	if apiErr.Code != http.StatusTooManyRequests && apiErr.Status != "RESOURCE_EXHAUSTED" {
		return fmt.Errorf("gemini request failed: %w", err)
	}

	// RetryInfo wins over a hint in the message text.
	rl := completion.NewRateLimitError(err)
	if hint, ok := retryDelay(apiErr); ok {
		rl.Hint = &hint
	}
	return rl
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}

// retryDelay reads the RetryInfo delay, e.g. "34s", from the error details.
func retryDelay(apiErr genai.APIError) (completion.RetryHint, bool) {
	for _, detail := range apiErr.Details {
		if t, _ := detail["@type"].(string); t != retryInfoType {
			continue
		}
		delay, _ := detail["retryDelay"].(string)
		if hint, ok := completion.ParseDurationHint(delay); ok {
			return hint, true
		}
	}
	return completion.RetryHint{}, false
}
