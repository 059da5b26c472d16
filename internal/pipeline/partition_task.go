package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-tagger/internal/batch"
	"github.com/phrazzld/scry-tagger/internal/completion"
	"github.com/phrazzld/scry-tagger/internal/domain"
	"github.com/phrazzld/scry-tagger/internal/events"
	"github.com/phrazzld/scry-tagger/internal/prompt"
	"github.com/phrazzld/scry-tagger/internal/reconcile"
	"github.com/phrazzld/scry-tagger/internal/redact"
	"github.com/phrazzld/scry-tagger/internal/reply"
	"github.com/phrazzld/scry-tagger/internal/task"
)

// partitionTask tags every pending card of one deck. It owns the deck's
// cards for the duration of Execute.
type partitionTask struct {
	id        uuid.UUID
	pipeline  *Pipeline
	partition *domain.Partition
	result    *PartitionResult
	logger    *slog.Logger

	// reconciled counts, per card, the task kinds whose window reconciled.
	reconciled map[uuid.UUID]int
}

var _ task.Task = (*partitionTask)(nil)

func newPartitionTask(p *Pipeline, partition *domain.Partition, result *PartitionResult) *partitionTask {
	id := uuid.New()
	return &partitionTask{
		id:         id,
		pipeline:   p,
		partition:  partition,
		result:     result,
		logger:     p.logger.With("deck", partition.Name, "task_id", id),
		reconciled: make(map[uuid.UUID]int),
	}
}

// ID implements task.Task.
func (t *partitionTask) ID() uuid.UUID { return t.id }

// Type implements task.Task.
func (t *partitionTask) Type() string { return task.TaskTypePartition }

// Status implements task.Task.
func (t *partitionTask) Status() task.TaskStatus { return t.result.Status }

// Execute implements task.Task. Reconciled cards are flushed to the sink
// even when a task kind fails part way through the deck.
func (t *partitionTask) Execute(ctx context.Context) error {
	t.result.Status = task.TaskStatusProcessing
	t.logger.InfoContext(ctx, "processing deck",
		"cards", t.result.Cards,
		"pending", t.result.Pending)

	var errs []error
	for _, spec := range t.pipeline.cfg.Tasks {
		err := t.runTask(ctx, spec)
		if err == nil {
			continue
		}
		errs = append(errs, err)
		if ctx.Err() != nil || errors.Is(err, completion.ErrCancelled) {
			break
		}
	}

	touched := t.applyMarker()

	// Cancellation must not lose reconciled tags, so write-back runs on a
	// context that ignores it.
	flushCtx := context.WithoutCancel(ctx)
	if len(touched) > 0 {
		if err := t.pipeline.sink.Flush(flushCtx, t.partition.Name, touched); err != nil {
			t.logger.ErrorContext(ctx, "write-back failed",
				"cards", len(touched),
				redact.ErrorAttr(err))
			errs = append(errs, fmt.Errorf("%w: %w", ErrWriteBack, err))
		}
	}

	payload := events.PartitionPayload{
		Cards:      t.result.Cards,
		Updated:    t.result.Updated,
		Windows:    t.result.Windows,
		Mismatches: t.result.Mismatches,
	}

	if err := errors.Join(errs...); err != nil {
		t.result.Status = task.TaskStatusFailed
		t.result.Err = err
		payload.Error = redact.Error(err)
		t.pipeline.emit(flushCtx, events.TypePartitionFailed, t.partition.Name, payload)
		return err
	}

	t.result.Status = task.TaskStatusCompleted
	t.pipeline.emit(ctx, events.TypePartitionCompleted, t.partition.Name, payload)
	t.logger.InfoContext(ctx, "deck complete",
		"updated", t.result.Updated,
		"windows", t.result.Windows,
		"mismatches", t.result.Mismatches,
		"marked", t.result.Marked)
	return nil
}

// runTask runs one task kind over the deck. A service failure abandons the
// kind's remaining windows and is returned; mismatches are logged and skipped.
func (t *partitionTask) runTask(ctx context.Context, spec TaskSpec) error {
	windows, err := batch.Accumulate(t.partition.Name, t.partition.Cards, spec.Renderer, t.pipeline.cfg.MaxPromptChars)
	if err != nil {
		return fmt.Errorf("%s: %w", spec.Kind(), err)
	}

	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w: %w", spec.Kind(), completion.ErrCancelled, err)
		}

		t.result.Windows++
		if w.Oversized {
			t.logger.WarnContext(ctx, "card exceeds prompt budget on its own, sending it alone",
				"window", w.String(),
				"prompt_chars", prompt.Size(w.Prompt),
				"budget", t.pipeline.cfg.MaxPromptChars)
		}

		if err := t.processWindow(ctx, w, spec.Repeat); err != nil {
			var mismatch *reconcile.MismatchError
			if errors.As(err, &mismatch) {
				t.result.Mismatches++
				t.logger.WarnContext(ctx, "reply does not match window, leaving cards untouched",
					"window", w.String(),
					"expected", mismatch.Expected,
					"actual", mismatch.Actual)
				t.pipeline.emit(ctx, events.TypeWindowMismatch, t.partition.Name, events.WindowPayload{
					Task:     string(w.Task),
					Window:   w.Index,
					Cards:    w.Len(),
					Expected: mismatch.Expected,
					Actual:   mismatch.Actual,
				})
				continue
			}

			if errors.Is(err, completion.ErrCancelled) {
				t.logger.InfoContext(ctx, "run cancelled, abandoning remaining windows",
					"window", w.String())
				return fmt.Errorf("%s window %d: %w", spec.Kind(), w.Index, err)
			}
			t.logger.ErrorContext(ctx, "completion failed, abandoning remaining windows",
				"window", w.String(),
				"remaining", len(windows)-w.Index-1,
				redact.ErrorAttr(err))
			return fmt.Errorf("%s window %d: %w", spec.Kind(), w.Index, err)
		}

		for _, card := range w.Cards {
			t.reconciled[card.ID]++
		}
		t.result.Updated += w.Len()
		t.pipeline.emit(ctx, events.TypeWindowReconciled, t.partition.Name, events.WindowPayload{
			Task:   string(w.Task),
			Window: w.Index,
			Cards:  w.Len(),
		})
	}

	return nil
}

// processWindow drives w from accumulating to a terminal state: prompt it
// repeat times, parse every reply, vote, and reconcile.
func (t *partitionTask) processWindow(ctx context.Context, w *batch.Window, repeat int) error {
	if err := w.Transition(batch.StatePrompted); err != nil {
		return err
	}

	replies := make([]reply.Results, 0, repeat)
	for i := 0; i < repeat; i++ {
		text, err := t.pipeline.completer.Complete(ctx, w.Prompt)
		if err != nil {
			return err
		}
		replies = append(replies, reply.Parse(w.Task, text))
	}

	if err := w.Transition(batch.StateParsed); err != nil {
		return err
	}

	// Every reply must line up with the window before any vote is taken.
	for _, results := range replies {
		if results.Len() != w.Len() {
			_ = w.Transition(batch.StateParseMismatch)
			_, err := reconcile.Apply(w, results)
			return err
		}
	}

	if _, err := reconcile.Apply(w, vote(w.Task, replies)); err != nil {
		_ = w.Transition(batch.StateParseMismatch)
		return err
	}
	return w.Transition(batch.StateReconciled)
}

// applyMarker updates the processed marker and returns the cards whose tags
// may have changed during the run.
func (t *partitionTask) applyMarker() []*domain.Card {
	var touched []*domain.Card
	for _, card := range t.partition.Cards {
		processedNow := t.reconciled[card.ID] > 0

		switch {
		case t.pipeline.cfg.StripMarker:
			if card.HasProcessedMarker() {
				card.RemoveProcessedMarker()
				processedNow = true
			}
		case t.pipeline.cfg.MarkProcessed && t.reconciled[card.ID] == len(t.pipeline.cfg.Tasks):
			card.MarkProcessed()
			t.result.Marked++
		}

		if processedNow {
			touched = append(touched, card)
		}
	}
	return touched
}
