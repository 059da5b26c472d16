package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/scry-tagger/internal/completion"
	"github.com/phrazzld/scry-tagger/internal/config"
)

// DefaultBaseURL is used when the configuration leaves the base URL empty.
const DefaultBaseURL = "https://api.openai.com/v1"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4 << 10

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Service implements completion.Service over the chat completions endpoint.
type Service struct {
	logger      *slog.Logger
	httpClient  *http.Client
	url         string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

var _ completion.Service = (*Service)(nil)

// NewService creates an OpenAI-compatible completion service. A nil
// httpClient gets one with cfg.RequestTimeout applied.
func NewService(logger *slog.Logger, cfg config.LLMConfig, httpClient *http.Client) (*Service, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("%w: openai API key cannot be empty", ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}

	base := cfg.OpenAIBaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	return &Service{
		logger:      logger.With("component", "openai"),
		httpClient:  httpClient,
		url:         strings.TrimRight(base, "/") + "/chat/completions",
		apiKey:      cfg.OpenAIAPIKey,
		model:       cfg.ModelName,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxOutputTokens,
	}, nil
}

// Submit posts prompt as a single user message and returns the content of
// the first choice.
func (s *Service) Submit(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       s.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	s.logger.DebugContext(ctx, "Making chat completion call",
		"model", s.model,
		"prompt_length", len(prompt))

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		return "", errorFromResponse(resp)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(decoded.Choices) == 0 || decoded.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: no choices in response", completion.ErrEmptyReply)
	}

	return decoded.Choices[0].Message.Content, nil
}

// errorFromResponse maps a non-2xx response to an error, turning 429 into
// *completion.RateLimitError.
func errorFromResponse(resp *http.Response) error {
	slurp, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	msg := strings.TrimSpace(string(slurp))
	var decoded errorResponse
	if json.Unmarshal(slurp, &decoded) == nil && decoded.Error.Message != "" {
		msg = decoded.Error.Message
	}

	upstream := fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, msg)
	if resp.StatusCode != http.StatusTooManyRequests {
		return upstream
	}

	rl := completion.NewRateLimitError(upstream)
	if rl.Hint == nil {
		if hint, ok := completion.ParseDurationHint(resp.Header.Get("Retry-After")); ok {
			rl.Hint = &hint
		}
	}
	return rl
}
