package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultRetryWait is used when a rate-limit error carries no usable hint.
const DefaultRetryWait = 5 * time.Second

// ClientConfig holds the retry policy of a Client.
type ClientConfig struct {
	// DefaultWait is the wait applied when the service gives no usable
	// retry-after hint. Zero or negative means DefaultRetryWait.
	DefaultWait time.Duration
}

// Client issues completion requests against a Service, absorbing rate-limit
// failures with backoff and unbounded retry. A Client is safe for concurrent
// use by multiple workers.
type Client struct {
	service     Service
	defaultWait time.Duration
	logger      *slog.Logger

	// sleep suspends the calling goroutine; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a Client for service.
func NewClient(service Service, cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	if service == nil {
		return nil, ErrNilService
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	wait := cfg.DefaultWait
	if wait <= 0 {
		wait = DefaultRetryWait
	}

	return &Client{
		service:     service,
		defaultWait: wait,
		logger:      logger.With("component", "completion_client"),
		sleep:       sleepContext,
	}, nil
}

// Complete sends prompt to the service and returns the reply text verbatim.
//
// Rate-limit failures are retried with the same prompt after the suggested
// wait, as many times as needed. The wait is abandoned when ctx is done, in
// which case the returned error wraps both ErrCancelled and ctx.Err(). Other
// service failures are returned wrapped in ErrServiceFailure.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	for attempt := 1; ; attempt++ {
		reply, err := c.service.Submit(ctx, prompt)
		if err == nil {
			if attempt > 1 {
				c.logger.DebugContext(ctx, "completion succeeded after rate limiting",
					"attempts", attempt)
			}
			return reply, nil
		}

		var rl *RateLimitError
		if !errors.As(err, &rl) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", fmt.Errorf("%w: %w", ErrCancelled, ctxErr)
			}
			return "", fmt.Errorf("%w: %w", ErrServiceFailure, err)
		}

		wait := c.waitFor(ctx, rl)
		c.logger.WarnContext(ctx, "hit API rate limit, retrying",
			"attempt", attempt,
			"wait", wait.String(),
			"prompt_length", len(prompt))

		if err := c.sleep(ctx, wait); err != nil {
			return "", fmt.Errorf("%w: %w", ErrCancelled, err)
		}
	}
}

// waitFor chooses the backoff for a rate-limit error.
func (c *Client) waitFor(ctx context.Context, rl *RateLimitError) time.Duration {
	if rl.Hint == nil {
		c.logger.DebugContext(ctx, "rate limit carried no retry hint, using default wait",
			"default_wait", c.defaultWait.String())
		return c.defaultWait
	}
	d, ok := rl.Hint.Duration()
	if !ok {
		c.logger.DebugContext(ctx, "rate limit hint has unsupported unit, using default wait",
			"hint", rl.Hint.String(),
			"default_wait", c.defaultWait.String())
		return c.defaultWait
	}
	return d
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
