package completion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedService replies with the queued errors first, then with reply.
type scriptedService struct {
	mu      sync.Mutex
	errs    []error
	reply   string
	prompts []string
}

func (s *scriptedService) Submit(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return "", err
	}
	return s.reply, nil
}

// recordSleeps replaces the client's sleep with a recorder.
func recordSleeps(c *Client) *[]time.Duration {
	var sleeps []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return &sleeps
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	svc := &scriptedService{}

	t.Run("nil service", func(t *testing.T) {
		t.Parallel()
		c, err := NewClient(nil, ClientConfig{}, testLogger())
		assert.ErrorIs(t, err, ErrNilService)
		assert.Nil(t, c)
	})

	t.Run("nil logger", func(t *testing.T) {
		t.Parallel()
		c, err := NewClient(svc, ClientConfig{}, nil)
		assert.ErrorIs(t, err, ErrNilLogger)
		assert.Nil(t, c)
	})

	t.Run("default wait applied", func(t *testing.T) {
		t.Parallel()
		c, err := NewClient(svc, ClientConfig{}, testLogger())
		require.NoError(t, err)
		assert.Equal(t, DefaultRetryWait, c.defaultWait)
	})

	t.Run("custom wait kept", func(t *testing.T) {
		t.Parallel()
		c, err := NewClient(svc, ClientConfig{DefaultWait: time.Second}, testLogger())
		require.NoError(t, err)
		assert.Equal(t, time.Second, c.defaultWait)
	})
}

func TestComplete_Success(t *testing.T) {
	t.Parallel()

	svc := &scriptedService{reply: "Question 1\nYes\n"}
	c, err := NewClient(svc, ClientConfig{}, testLogger())
	require.NoError(t, err)
	sleeps := recordSleeps(c)

	reply, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Question 1\nYes\n", reply)
	assert.Empty(t, *sleeps)
	assert.Equal(t, []string{"prompt"}, svc.prompts)
}

func TestComplete_EmptyPrompt(t *testing.T) {
	t.Parallel()

	svc := &scriptedService{}
	c, err := NewClient(svc, ClientConfig{}, testLogger())
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	assert.Empty(t, svc.prompts)
}

func TestComplete_RetriesWithHint(t *testing.T) {
	t.Parallel()

	rl := NewRateLimitError(errors.New("Rate limit reached. Please try again in 2s."))
	svc := &scriptedService{errs: []error{rl}, reply: "ok"}
	c, err := NewClient(svc, ClientConfig{}, testLogger())
	require.NoError(t, err)
	sleeps := recordSleeps(c)

	reply, err := c.Complete(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.Equal(t, []time.Duration{2 * time.Second}, *sleeps)
	assert.Equal(t, []string{"the prompt", "the prompt"}, svc.prompts)
}

func TestComplete_RetryWaits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want time.Duration
	}{
		{
			name: "milliseconds",
			err:  &RateLimitError{Hint: &RetryHint{Value: 250, Unit: "ms"}},
			want: 250 * time.Millisecond,
		},
		{
			name: "fractional seconds",
			err:  &RateLimitError{Hint: &RetryHint{Value: 1.5, Unit: "s"}},
			want: 1500 * time.Millisecond,
		},
		{
			name: "minutes",
			err:  &RateLimitError{Hint: &RetryHint{Value: 1, Unit: "m"}},
			want: time.Minute,
		},
		{
			name: "no hint",
			err:  &RateLimitError{},
			want: 3 * time.Second,
		},
		{
			name: "unknown unit",
			err:  &RateLimitError{Hint: &RetryHint{Value: 2, Unit: "h"}},
			want: 3 * time.Second,
		},
		{
			name: "wrapped rate limit",
			err:  errors.Join(errors.New("gemini"), &RateLimitError{Hint: &RetryHint{Value: 4, Unit: "s"}}),
			want: 4 * time.Second,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &scriptedService{errs: []error{tc.err}, reply: "ok"}
			c, err := NewClient(svc, ClientConfig{DefaultWait: 3 * time.Second}, testLogger())
			require.NoError(t, err)
			sleeps := recordSleeps(c)

			_, err = c.Complete(context.Background(), "p")
			require.NoError(t, err)
			assert.Equal(t, []time.Duration{tc.want}, *sleeps)
		})
	}
}

func TestComplete_UnboundedRetry(t *testing.T) {
	t.Parallel()

	errs := make([]error, 25)
	for i := range errs {
		errs[i] = &RateLimitError{}
	}
	svc := &scriptedService{errs: errs, reply: "done"}
	c, err := NewClient(svc, ClientConfig{}, testLogger())
	require.NoError(t, err)
	sleeps := recordSleeps(c)

	reply, err := c.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "done", reply)
	assert.Len(t, *sleeps, 25)
	assert.Len(t, svc.prompts, 26)
}

func TestComplete_ServiceFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("invalid api key")
	svc := &scriptedService{errs: []error{cause}}
	c, err := NewClient(svc, ClientConfig{}, testLogger())
	require.NoError(t, err)
	sleeps := recordSleeps(c)

	_, err = c.Complete(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceFailure)
	assert.ErrorIs(t, err, cause)
	assert.Empty(t, *sleeps)
	assert.Len(t, svc.prompts, 1)
}

func TestComplete_CancelDuringWait(t *testing.T) {
	t.Parallel()

	svc := &scriptedService{errs: []error{&RateLimitError{Hint: &RetryHint{Value: 10, Unit: "m"}}}}
	c, err := NewClient(svc, ClientConfig{}, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Complete(ctx, "p")
		done <- err
	}()

	// Give the client time to reach the sleep before cancelling.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrCancelled)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Complete did not return after cancellation")
	}
}

func TestComplete_ServiceFailureAfterCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := ServiceFunc(func(ctx context.Context, _ string) (string, error) {
		return "", ctx.Err()
	})
	c, err := NewClient(svc, ClientConfig{}, testLogger())
	require.NoError(t, err)

	_, err = c.Complete(ctx, "p")
	assert.ErrorIs(t, err, ErrCancelled)
	assert.NotErrorIs(t, err, ErrServiceFailure)
}

func TestSleepContext(t *testing.T) {
	t.Parallel()

	t.Run("elapses", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, sleepContext(context.Background(), time.Millisecond))
	})

	t.Run("zero duration", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, sleepContext(context.Background(), 0))
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	})
}
