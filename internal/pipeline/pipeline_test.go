package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/phrazzld/scry-tagger/internal/completion"
	"github.com/phrazzld/scry-tagger/internal/domain"
	"github.com/phrazzld/scry-tagger/internal/events"
	"github.com/phrazzld/scry-tagger/internal/prompt"
	"github.com/phrazzld/scry-tagger/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// completerFunc adapts a function to Completer.
type completerFunc func(ctx context.Context, prompt string) (string, error)

func (f completerFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

var headingRE = regexp.MustCompile(`(?m)^Question (\d+)$`)

// questionsIn returns the question text of every card in a rendered prompt.
func questionsIn(p string) []string {
	var out []string
	for _, block := range headingRE.Split(p, -1)[1:] {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) >= 2 {
			out = append(out, lines[1])
		}
	}
	return out
}

// answerEach builds a well-formed reply with one block per card, using
// answer to produce the block body from the card's question.
func answerEach(answer func(question string) string) completerFunc {
	return func(_ context.Context, p string) (string, error) {
		var sb strings.Builder
		for i, q := range questionsIn(p) {
			fmt.Fprintf(&sb, "Question %d\n%s\n\n", i+1, answer(q))
		}
		return sb.String(), nil
	}
}

type recordingSink struct {
	mu      sync.Mutex
	flushed map[string][]*domain.Card
	err     error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{flushed: make(map[string][]*domain.Card)}
}

func (s *recordingSink) Flush(_ context.Context, deck string, cards []*domain.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushed[deck] = append(s.flushed[deck], cards...)
	return s.err
}

func (s *recordingSink) cards(deck string) []*domain.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushed[deck]
}

type eventRecorder struct {
	mu     sync.Mutex
	events []*events.PipelineEvent
}

func (r *eventRecorder) HandleEvent(_ context.Context, e *events.PipelineEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

func newEmitter() (*events.InMemoryEventEmitter, *eventRecorder) {
	emitter := events.NewInMemoryEventEmitter(testLogger())
	rec := &eventRecorder{}
	emitter.RegisterHandler(rec)
	return emitter, rec
}

func renderer(t *testing.T, kind domain.TaskKind) *prompt.Renderer {
	t.Helper()
	r, err := prompt.Default(kind, []string{"Golang", "Networking"})
	require.NoError(t, err)
	return r
}

func deck(t *testing.T, name string, questions ...string) *domain.Partition {
	t.Helper()
	cards := make([]*domain.Card, len(questions))
	for i, q := range questions {
		c, err := domain.NewCard(name, q, "answer to "+q)
		require.NoError(t, err)
		cards[i] = c
	}
	return domain.NewPartition(name, cards)
}

func TestNew(t *testing.T) {
	r := renderer(t, domain.TaskDefinition)
	okCompleter := answerEach(func(string) string { return "Yes" })
	valid := Config{Tasks: []TaskSpec{{Renderer: r}}, MaxPromptChars: 1000}

	tests := []struct {
		name      string
		completer Completer
		sink      Sink
		cfg       Config
		logger    *slog.Logger
		wantErr   error
	}{
		{name: "nil completer", sink: NopSink, cfg: valid, logger: testLogger(), wantErr: ErrNilCompleter},
		{name: "nil sink", completer: okCompleter, cfg: valid, logger: testLogger(), wantErr: ErrNilSink},
		{name: "nil logger", completer: okCompleter, sink: NopSink, cfg: valid, wantErr: ErrNilLogger},
		{
			name: "no tasks", completer: okCompleter, sink: NopSink, logger: testLogger(),
			cfg: Config{MaxPromptChars: 1000}, wantErr: ErrNoTasks,
		},
		{
			name: "zero budget", completer: okCompleter, sink: NopSink, logger: testLogger(),
			cfg: Config{Tasks: []TaskSpec{{Renderer: r}}}, wantErr: ErrInvalidConfig,
		},
		{
			name: "nil renderer", completer: okCompleter, sink: NopSink, logger: testLogger(),
			cfg: Config{Tasks: []TaskSpec{{}}, MaxPromptChars: 1000}, wantErr: ErrInvalidConfig,
		},
		{
			name: "repeated task kind", completer: okCompleter, sink: NopSink, logger: testLogger(),
			cfg: Config{
				Tasks:          []TaskSpec{{Renderer: r}, {Renderer: renderer(t, domain.TaskDefinition), Repeat: 3}},
				MaxPromptChars: 1000,
			},
			wantErr: ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.completer, tt.sink, nil, tt.cfg, tt.logger)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("defaults", func(t *testing.T) {
		p, err := New(okCompleter, NopSink, nil, valid, testLogger())
		require.NoError(t, err)
		assert.Equal(t, task.DefaultWorkerPoolConfig().WorkerCount, p.cfg.MaxWorkers)
		assert.Equal(t, 1, p.cfg.Tasks[0].Repeat)
	})
}

func TestRun_DefinitionClassification(t *testing.T) {
	var calls atomic.Int32
	svc := completion.ServiceFunc(func(_ context.Context, _ string) (string, error) {
		calls.Add(1)
		return "Question 1\nYes\n\nQuestion 2\nNo\n\nQuestion 3\nYes\n", nil
	})
	client, err := completion.NewClient(svc, completion.ClientConfig{}, testLogger())
	require.NoError(t, err)

	sink := newRecordingSink()
	emitter, rec := newEmitter()
	p, err := New(client, sink, emitter, Config{
		Tasks:          []TaskSpec{{Renderer: renderer(t, domain.TaskDefinition)}},
		MaxPromptChars: 10000,
		MarkProcessed:  true,
	}, testLogger())
	require.NoError(t, err)

	a := deck(t, "Deck A", "What is a goroutine?", "Write a loop that sums a slice", "What is a mutex?")
	report, err := p.Run(context.Background(), []*domain.Partition{a})
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load(), "three small cards fit one window")
	assert.True(t, a.Cards[0].HasTag(domain.DefinitionTag))
	assert.False(t, a.Cards[1].HasTag(domain.DefinitionTag))
	assert.True(t, a.Cards[2].HasTag(domain.DefinitionTag))
	for _, c := range a.Cards {
		assert.True(t, c.HasProcessedMarker())
	}

	require.Len(t, report.Partitions, 1)
	res := report.Partitions[0]
	assert.Equal(t, task.TaskStatusCompleted, res.Status)
	assert.Equal(t, 3, res.Updated)
	assert.Equal(t, 1, res.Windows)
	assert.Equal(t, 3, res.Marked)
	assert.Equal(t, 1, report.Workers)

	assert.Len(t, sink.cards("Deck A"), 3)
	assert.Equal(t, 1, rec.count(events.TypeWindowReconciled))
	assert.Equal(t, 1, rec.count(events.TypePartitionCompleted))
}

func TestRun_TagSuggestionAcrossWindows(t *testing.T) {
	var calls atomic.Int32
	completer := answerEach(func(q string) string {
		calls.Add(1)
		if strings.Contains(q, "TCP") {
			return "1. Networking\n2. Transport Layer"
		}
		return "- Golang\n- I don't know"
	})

	p, err := New(completer, NopSink, nil, Config{
		Tasks:          []TaskSpec{{Renderer: renderer(t, domain.TaskTagSuggestion)}},
		MaxPromptChars: 1,
	}, testLogger())
	require.NoError(t, err)

	d := deck(t, "Mixed", "What is a goroutine?", "What is TCP?")
	report, err := p.Run(context.Background(), []*domain.Partition{d})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Partitions[0].Windows, "oversized cards get a window each")
	assert.Equal(t, []string{"Golang"}, d.Cards[0].SuggestedTags())
	assert.Equal(t, []string{"Networking", "Transport_Layer"}, d.Cards[1].SuggestedTags())
	assert.False(t, d.Cards[0].HasProcessedMarker(), "marker is off by default")
}

func TestRun_SkipsEmptyAndProcessed(t *testing.T) {
	completer := completerFunc(func(context.Context, string) (string, error) {
		t.Error("completer must not be called")
		return "", nil
	})
	sink := newRecordingSink()

	p, err := New(completer, sink, nil, Config{
		Tasks:          []TaskSpec{{Renderer: renderer(t, domain.TaskDefinition)}},
		MaxPromptChars: 1000,
		MarkProcessed:  true,
	}, testLogger())
	require.NoError(t, err)

	done := deck(t, "Done", "What is a goroutine?")
	done.Cards[0].MarkProcessed()
	empty := domain.NewPartition("Empty", nil)

	report, err := p.Run(context.Background(), []*domain.Partition{empty, done, nil})
	require.NoError(t, err)

	require.Len(t, report.Partitions, 1)
	assert.Equal(t, "Done", report.Partitions[0].Deck)
	assert.Equal(t, 0, report.Partitions[0].Pending)
	assert.Equal(t, 0, report.Partitions[0].Windows)
	assert.Empty(t, sink.cards("Done"))

	report, err = p.Run(context.Background(), []*domain.Partition{empty})
	require.NoError(t, err)
	assert.Empty(t, report.Partitions)
	assert.Zero(t, report.Workers)
}

func TestRun_WorkerCap(t *testing.T) {
	var active, peak atomic.Int32
	completer := completerFunc(func(ctx context.Context, p string) (string, error) {
		n := active.Add(1)
		defer active.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return answerEach(func(string) string { return "No" })(ctx, p)
	})

	p, err := New(completer, NopSink, nil, Config{
		Tasks:          []TaskSpec{{Renderer: renderer(t, domain.TaskDefinition)}},
		MaxPromptChars: 1000,
		MaxWorkers:     2,
	}, testLogger())
	require.NoError(t, err)

	var decks []*domain.Partition
	for i := 0; i < 6; i++ {
		decks = append(decks, deck(t, fmt.Sprintf("Deck %d", i), "Q1", "Q2"))
	}

	report, err := p.Run(context.Background(), decks)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Workers)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	for _, res := range report.Partitions {
		assert.Equal(t, task.TaskStatusCompleted, res.Status, res.Deck)
	}
}

func TestRun_MismatchLeavesCardsUntouched(t *testing.T) {
	completer := completerFunc(func(context.Context, string) (string, error) {
		return "Question 1\nYes\n\nQuestion 2\nYes\n", nil
	})
	sink := newRecordingSink()
	emitter, rec := newEmitter()

	p, err := New(completer, sink, emitter, Config{
		Tasks:          []TaskSpec{{Renderer: renderer(t, domain.TaskDefinition)}},
		MaxPromptChars: 10000,
		MarkProcessed:  true,
	}, testLogger())
	require.NoError(t, err)

	d := deck(t, "Short", "Q1", "Q2", "Q3")
	report, err := p.Run(context.Background(), []*domain.Partition{d})
	require.NoError(t, err, "mismatches are not fatal")

	for _, c := range d.Cards {
		assert.Empty(t, c.SuggestedTags())
		assert.False(t, c.HasProcessedMarker())
	}
	assert.Equal(t, 1, report.Mismatches())
	assert.Equal(t, 0, report.Updated())
	assert.Empty(t, sink.cards("Short"))
	assert.Equal(t, 1, rec.count(events.TypeWindowMismatch))
	assert.Equal(t, 1, rec.count(events.TypePartitionCompleted))
}

func TestRun_ServiceFailure(t *testing.T) {
	var calls atomic.Int32
	svc := completion.ServiceFunc(func(ctx context.Context, p string) (string, error) {
		calls.Add(1)
		qs := questionsIn(p)
		if len(qs) == 1 && qs[0] == "Broken second" {
			return "", errors.New("upstream exploded")
		}
		return answerEach(func(string) string { return "Yes" })(ctx, p)
	})
	client, err := completion.NewClient(svc, completion.ClientConfig{}, testLogger())
	require.NoError(t, err)

	sink := newRecordingSink()
	emitter, rec := newEmitter()
	p, err := New(client, sink, emitter, Config{
		Tasks: []TaskSpec{
			{Renderer: renderer(t, domain.TaskDefinition)},
			{Renderer: renderer(t, domain.TaskTagSuggestion)},
		},
		MaxPromptChars: 1,
		MarkProcessed:  true,
	}, testLogger())
	require.NoError(t, err)

	broken := deck(t, "Broken", "Broken first", "Broken second", "Broken third")
	healthy := deck(t, "Healthy", "Healthy only")

	report, err := p.Run(context.Background(), []*domain.Partition{broken, healthy})
	require.Error(t, err)
	assert.ErrorIs(t, err, completion.ErrServiceFailure)
	assert.Contains(t, err.Error(), `deck "Broken"`)

	byDeck := map[string]PartitionResult{}
	for _, res := range report.Partitions {
		byDeck[res.Deck] = res
	}
	assert.Equal(t, task.TaskStatusFailed, byDeck["Broken"].Status)
	assert.Equal(t, task.TaskStatusCompleted, byDeck["Healthy"].Status)
	assert.Len(t, report.Failed(), 1)
	assert.Zero(t, report.Unstarted)

	// definition: window 0 reconciled, window 1 failed, window 2 abandoned
	assert.True(t, broken.Cards[0].HasTag(domain.DefinitionTag))
	assert.False(t, broken.Cards[2].HasTag(domain.DefinitionTag))
	// the tag task still ran over the deck after the definition task failed
	// Broken: 2 definition + 2 tag calls, each kind stopping at "Broken second";
	// Healthy: 1 call per kind.
	assert.Equal(t, int32(6), calls.Load())

	// reconciled cards are written back; only fully processed cards are marked
	assert.NotEmpty(t, sink.cards("Broken"))
	assert.True(t, broken.Cards[0].HasProcessedMarker())
	assert.False(t, broken.Cards[2].HasProcessedMarker())
	assert.Equal(t, 1, rec.count(events.TypePartitionFailed))
}

func TestRun_Voting(t *testing.T) {
	replies := []string{
		"Question 1\nAlpha\nBeta\n\nQuestion 2\nYes\n",
		"Question 1\nAlpha\n\nQuestion 2\nYes\n",
		"Question 1\nGamma\n\nQuestion 2\nNo\n",
		"Question 1\nAlpha\nGamma\n\nQuestion 2\nYes\n",
	}
	var mu sync.Mutex
	next := 0
	completer := completerFunc(func(context.Context, string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		r := replies[next%len(replies)]
		next++
		return r, nil
	})

	p, err := New(completer, NopSink, nil, Config{
		Tasks: []TaskSpec{
			{Renderer: renderer(t, domain.TaskTagSuggestion), Repeat: 4},
			{Renderer: renderer(t, domain.TaskDefinition), Repeat: 4},
		},
		MaxPromptChars: 10000,
	}, testLogger())
	require.NoError(t, err)

	d := deck(t, "Votes", "Q1", "Q2")
	_, err = p.Run(context.Background(), []*domain.Partition{d})
	require.NoError(t, err)

	// tags need 4/2 = 2 votes: Alpha (3) and Gamma (2) stay, Beta (1) goes
	assert.Equal(t, []string{"Alpha", "Gamma"}, d.Cards[0].SuggestedTags())
	// the "Yes/No" lines of card 2 are tags for the tag task
	assert.Equal(t, []string{"Yes"}, d.Cards[1].SuggestedTags())
	// classification needs all 4 replies to agree; card 2 got one "No"
	assert.False(t, d.Cards[1].HasTag(domain.DefinitionTag))
}

func TestRun_Cancelled(t *testing.T) {
	completer := completerFunc(func(context.Context, string) (string, error) {
		t.Error("completer must not be called after cancellation")
		return "", nil
	})
	p, err := New(completer, NopSink, nil, Config{
		Tasks:          []TaskSpec{{Renderer: renderer(t, domain.TaskDefinition)}},
		MaxPromptChars: 1000,
	}, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := p.Run(ctx, []*domain.Partition{deck(t, "A", "Q1"), deck(t, "B", "Q2")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, report.Unstarted)
	for _, res := range report.Partitions {
		assert.Equal(t, task.TaskStatusPending, res.Status)
	}
}

func TestRun_CancelDuringRetryFlushesReconciled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := completion.ServiceFunc(func(ctx context.Context, p string) (string, error) {
		if questionsIn(p)[0] == "Second" {
			cancel()
			return "", completion.NewRateLimitError(errors.New("Please try again in 10m."))
		}
		return answerEach(func(string) string { return "Yes" })(ctx, p)
	})
	client, err := completion.NewClient(svc, completion.ClientConfig{}, testLogger())
	require.NoError(t, err)

	sink := newRecordingSink()
	p, err := New(client, sink, nil, Config{
		Tasks:          []TaskSpec{{Renderer: renderer(t, domain.TaskDefinition)}},
		MaxPromptChars: 1,
	}, testLogger())
	require.NoError(t, err)

	d := deck(t, "Slow", "First", "Second", "Third")
	report, err := p.Run(ctx, []*domain.Partition{d})
	assert.ErrorIs(t, err, completion.ErrCancelled)
	assert.Equal(t, task.TaskStatusFailed, report.Partitions[0].Status)

	flushed := sink.cards("Slow")
	require.Len(t, flushed, 1)
	assert.Equal(t, d.Cards[0].ID, flushed[0].ID)
}

func TestRun_StripMarker(t *testing.T) {
	completer := answerEach(func(string) string { return "No" })
	sink := newRecordingSink()

	p, err := New(completer, sink, nil, Config{
		Tasks:          []TaskSpec{{Renderer: renderer(t, domain.TaskDefinition)}},
		MaxPromptChars: 10000,
		MarkProcessed:  true,
		StripMarker:    true,
	}, testLogger())
	require.NoError(t, err)

	d := deck(t, "Reset", "Old", "New")
	d.Cards[0].MarkProcessed()

	report, err := p.Run(context.Background(), []*domain.Partition{d})
	require.NoError(t, err)

	assert.False(t, d.Cards[0].HasProcessedMarker())
	assert.False(t, d.Cards[1].HasProcessedMarker())
	assert.Equal(t, 0, report.Partitions[0].Marked)
	assert.Len(t, sink.cards("Reset"), 2)
}

func TestRun_WriteBackFailure(t *testing.T) {
	completer := answerEach(func(string) string { return "Yes" })
	sink := newRecordingSink()
	sink.err = errors.New("disk full")

	p, err := New(completer, sink, nil, Config{
		Tasks:          []TaskSpec{{Renderer: renderer(t, domain.TaskDefinition)}},
		MaxPromptChars: 10000,
	}, testLogger())
	require.NoError(t, err)

	report, err := p.Run(context.Background(), []*domain.Partition{deck(t, "Full", "Q1")})
	assert.ErrorIs(t, err, ErrWriteBack)
	assert.Equal(t, task.TaskStatusFailed, report.Partitions[0].Status)
	assert.Equal(t, 1, report.Partitions[0].Updated)
}

func TestWorkload(t *testing.T) {
	p, err := New(answerEach(func(string) string { return "" }), NopSink, nil, Config{
		Tasks: []TaskSpec{
			{Renderer: renderer(t, domain.TaskTagSuggestion)},
			{Renderer: renderer(t, domain.TaskDefinition)},
		},
		MaxPromptChars: 100,
	}, testLogger())
	require.NoError(t, err)

	d := deck(t, "A", "Q1", "Q2", "Q3")
	d.Cards[0].MarkProcessed()
	assert.Equal(t, 4, p.Workload([]*domain.Partition{d, domain.NewPartition("Empty", nil)}))
}
