package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/phrazzld/scry-tagger/internal/completion"
	"github.com/phrazzld/scry-tagger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.LLMConfig {
	return config.LLMConfig{
		Provider:        "anthropic",
		ModelName:       "claude-3-5-haiku-latest",
		AnthropicAPIKey: "test-key",
		MaxOutputTokens: 1024,
	}
}

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewService(testLogger(), testConfig(), option.WithBaseURL(server.URL))
	require.NoError(t, err)
	return svc
}

func TestNewService_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.LLMConfig)
	}{
		{"missing key", func(c *config.LLMConfig) { c.AnthropicAPIKey = "" }},
		{"missing model", func(c *config.LLMConfig) { c.ModelName = "" }},
		{"no token budget", func(c *config.LLMConfig) { c.MaxOutputTokens = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			tc.mutate(&cfg)
			_, err := NewService(testLogger(), cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := NewService(nil, testConfig())
	assert.Error(t, err)
}

func TestSubmit_Success(t *testing.T) {
	t.Parallel()

	var got map[string]any
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-3-5-haiku-latest",
			"stop_reason": "end_turn",
			"content": [
				{"type": "text", "text": "Question 1\nYes\n"},
				{"type": "text", "text": "Question 2\nNo\n"}
			],
			"usage": {"input_tokens": 10, "output_tokens": 8}
		}`)
	})

	reply, err := svc.Submit(context.Background(), "classify")
	require.NoError(t, err)
	assert.Equal(t, "Question 1\nYes\nQuestion 2\nNo\n", reply)

	assert.Equal(t, "claude-3-5-haiku-latest", got["model"])
	assert.EqualValues(t, 1024, got["max_tokens"])
	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 1)
}

func TestSubmit_RateLimited(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("retry-after", "20")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w,
			`{"type":"error","error":{"type":"rate_limit_error","message":"Number of requests has exceeded your rate limit"}}`)
	})

	_, err := svc.Submit(context.Background(), "classify")
	var rl *completion.RateLimitError
	require.ErrorAs(t, err, &rl)
	require.NotNil(t, rl.Hint)
	assert.Equal(t, completion.RetryHint{Value: 20, Unit: "s"}, *rl.Hint)
	assert.Equal(t, int32(1), calls.Load(), "SDK retries must be disabled")
}

func TestSubmit_ServerError(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w,
			`{"type":"error","error":{"type":"invalid_request_error","message":"bad model"}}`)
	})

	_, err := svc.Submit(context.Background(), "classify")
	require.Error(t, err)
	var rl *completion.RateLimitError
	assert.NotErrorAs(t, err, &rl)
	assert.Contains(t, err.Error(), "anthropic request failed")
}

func TestSubmit_NoText(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "msg_2", "type": "message", "role": "assistant",
			"model": "claude-3-5-haiku-latest", "stop_reason": "max_tokens",
			"content": [], "usage": {"input_tokens": 1, "output_tokens": 0}
		}`)
	})

	_, err := svc.Submit(context.Background(), "classify")
	assert.ErrorIs(t, err, completion.ErrEmptyReply)
}
