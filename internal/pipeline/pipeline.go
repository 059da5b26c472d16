package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/phrazzld/scry-tagger/internal/batch"
	"github.com/phrazzld/scry-tagger/internal/domain"
	"github.com/phrazzld/scry-tagger/internal/events"
	"github.com/phrazzld/scry-tagger/internal/task"
)

// Completer returns the model's reply to a prompt. *completion.Client
// implements it.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// TaskSpec configures one task kind of a run.
type TaskSpec struct {
	// Renderer builds the window prompts; its Kind selects the reply grammar.
	Renderer batch.Renderer

	// Repeat is how many times each window prompt is sent; the replies are
	// merged by vote. Zero or negative means 1.
	Repeat int
}

// Kind returns the task kind the renderer was built for.
func (s TaskSpec) Kind() domain.TaskKind { return s.Renderer.Kind() }

// Config holds the scheduling settings of a Pipeline.
type Config struct {
	// Tasks run in order over every deck.
	Tasks []TaskSpec

	// MaxPromptChars is the per-window prompt budget in characters.
	MaxPromptChars int

	// MaxWorkers caps how many decks are processed at once. Zero or negative
	// means the worker pool default.
	MaxWorkers int

	// MarkProcessed adds the processed marker to cards that every task
	// reconciled.
	MarkProcessed bool

	// StripMarker removes the processed marker from every card of each deck
	// instead of adding it. It takes precedence over MarkProcessed.
	StripMarker bool
}

// Pipeline runs the configured tasks over a set of partitions.
type Pipeline struct {
	completer Completer
	sink      Sink
	emitter   events.EventEmitter
	cfg       Config
	logger    *slog.Logger
}

// New creates a Pipeline. A nil emitter drops all events.
func New(completer Completer, sink Sink, emitter events.EventEmitter, cfg Config, logger *slog.Logger) (*Pipeline, error) {
	if completer == nil {
		return nil, ErrNilCompleter
	}
	if sink == nil {
		return nil, ErrNilSink
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if len(cfg.Tasks) == 0 {
		return nil, ErrNoTasks
	}
	if cfg.MaxPromptChars <= 0 {
		return nil, fmt.Errorf("%w: max prompt chars must be positive, got %d", ErrInvalidConfig, cfg.MaxPromptChars)
	}

	tasks := make([]TaskSpec, len(cfg.Tasks))
	seen := make(map[domain.TaskKind]bool, len(cfg.Tasks))
	for i, spec := range cfg.Tasks {
		if spec.Renderer == nil {
			return nil, fmt.Errorf("%w: task %d: %w", ErrInvalidConfig, i, batch.ErrNilRenderer)
		}
		// A card takes part in at most one window per task kind.
		if seen[spec.Kind()] {
			return nil, fmt.Errorf("%w: task %d: %s listed more than once", ErrInvalidConfig, i, spec.Kind())
		}
		seen[spec.Kind()] = true
		if spec.Repeat <= 0 {
			spec.Repeat = 1
		}
		tasks[i] = spec
	}
	cfg.Tasks = tasks

	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = task.DefaultWorkerPoolConfig().WorkerCount
	}

	if emitter == nil {
		emitter = events.NewInMemoryEventEmitter(logger)
	}

	return &Pipeline{
		completer: completer,
		sink:      sink,
		emitter:   emitter,
		cfg:       cfg,
		logger:    logger.With("component", "pipeline"),
	}, nil
}

// Workload returns how many card/task pairs a run over partitions will
// classify.
func (p *Pipeline) Workload(partitions []*domain.Partition) int {
	n := 0
	for _, part := range partitions {
		if !part.IsEmpty() {
			n += len(part.Pending())
		}
	}
	return n * len(p.cfg.Tasks)
}

// Run processes every non-empty partition and blocks until all of them are
// done or ctx is cancelled. Empty partitions are skipped. At most
// min(non-empty partitions, MaxWorkers) decks run at once.
//
// A failing deck does not stop the others. The returned error joins the
// failure of every deck, plus ctx.Err() when the run was cancelled; the
// Report is complete in either case.
func (p *Pipeline) Run(ctx context.Context, partitions []*domain.Partition) (Report, error) {
	var work []*domain.Partition
	for _, part := range partitions {
		if !part.IsEmpty() {
			work = append(work, part)
		}
	}

	report := Report{Partitions: make([]PartitionResult, len(work))}
	if len(work) == 0 {
		p.logger.InfoContext(ctx, "no cards to process", "partitions", len(partitions))
		return report, nil
	}

	queue := task.NewTaskQueue(len(work), p.logger)
	for i, part := range work {
		report.Partitions[i] = PartitionResult{
			Deck:    part.Name,
			Status:  task.TaskStatusPending,
			Cards:   len(part.Cards),
			Pending: len(part.Pending()),
		}
	}
	if err := p.enqueue(queue, work, report.Partitions); err != nil {
		return report, err
	}

	pool := task.NewWorkerPool(queue, task.WorkerPoolConfig{WorkerCount: min(len(work), p.cfg.MaxWorkers)}, p.logger)
	report.Workers = pool.WorkerCount()

	var decksDone, decksFailed atomic.Int32
	pool.SetCompletionHandler(func(t task.Task) {
		decksDone.Add(1)
		p.logger.DebugContext(ctx, "deck task finished", "task_id", t.ID(), "status", t.Status())
	})
	pool.SetErrorHandler(func(t task.Task, _ error) {
		decksFailed.Add(1)
		p.logger.DebugContext(ctx, "deck task finished", "task_id", t.ID(), "status", t.Status())
	})

	p.logger.InfoContext(ctx, "starting run",
		"decks", len(work),
		"skipped_empty", len(partitions)-len(work),
		"workers", report.Workers,
		"tasks", len(p.cfg.Tasks))

	runErr := pool.Run(ctx)
	report.Unstarted = len(work) - int(decksDone.Load()) - int(decksFailed.Load())

	var errs []error
	for _, res := range report.Partitions {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("deck %q: %w", res.Deck, res.Err))
		}
	}
	if runErr != nil {
		errs = append(errs, runErr)
	}

	p.logger.InfoContext(ctx, "run finished",
		"decks", len(work),
		"decks_done", decksDone.Load(),
		"decks_failed", decksFailed.Load(),
		"decks_not_started", report.Unstarted,
		"cards_updated", report.Updated(),
		"mismatches", report.Mismatches())

	return report, errors.Join(errs...)
}

// enqueue submits one task per partition, bound to its report entry, and
// closes the queue.
func (p *Pipeline) enqueue(queue task.TaskQueueWriter, work []*domain.Partition, results []PartitionResult) error {
	defer queue.Close()
	for i, part := range work {
		if err := queue.Enqueue(newPartitionTask(p, part, &results[i])); err != nil {
			return fmt.Errorf("failed to enqueue deck %q: %w", part.Name, err)
		}
	}
	return nil
}

// emit publishes an event, logging instead of failing on errors.
func (p *Pipeline) emit(ctx context.Context, eventType, deck string, payload interface{}) {
	event, err := events.NewPipelineEvent(eventType, deck, payload)
	if err != nil {
		p.logger.WarnContext(ctx, "failed to build event", "event_type", eventType, "error", err)
		return
	}
	if err := p.emitter.EmitEvent(ctx, event); err != nil {
		p.logger.WarnContext(ctx, "failed to emit event", "event_type", eventType, "error", err)
	}
}
