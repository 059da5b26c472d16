package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Progress is a point-in-time view of a run's counters.
type Progress struct {
	CardsTotal      int64
	CardsDone       int64
	CardsMismatched int64
	DecksDone       int64
	DecksFailed     int64
}

// ProgressHandler keeps cumulative card counts and logs them as windows and
// decks complete. It is safe for concurrent use.
type ProgressHandler struct {
	logger     *slog.Logger
	total      atomic.Int64
	done       atomic.Int64
	mismatched atomic.Int64
	decks      atomic.Int64
	failed     atomic.Int64
}

// NewProgressHandler creates a ProgressHandler.
func NewProgressHandler(logger *slog.Logger) *ProgressHandler {
	return &ProgressHandler{logger: logger.With("component", "progress")}
}

// SetTotal records how many card/task pairs the run is expected to process.
func (h *ProgressHandler) SetTotal(n int) { h.total.Store(int64(n)) }

// HandleEvent implements EventHandler.
func (h *ProgressHandler) HandleEvent(ctx context.Context, event *PipelineEvent) error {
	switch event.Type {
	case TypeWindowReconciled, TypeWindowMismatch:
		var p WindowPayload
		if err := event.UnmarshalPayload(&p); err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", event.Type, err)
		}
		var done int64
		if event.Type == TypeWindowReconciled {
			done = h.done.Add(int64(p.Cards))
		} else {
			h.mismatched.Add(int64(p.Cards))
			done = h.done.Load()
		}
		h.logger.InfoContext(ctx, "progress",
			"deck", event.Deck,
			"task", p.Task,
			"cards_done", done,
			"cards_mismatched", h.mismatched.Load(),
			"cards_total", h.total.Load())

	case TypePartitionCompleted:
		h.decks.Add(1)
		h.logger.InfoContext(ctx, "deck completed",
			"deck", event.Deck,
			"decks_done", h.decks.Load())

	case TypePartitionFailed:
		h.failed.Add(1)
		var p PartitionPayload
		_ = event.UnmarshalPayload(&p)
		h.logger.ErrorContext(ctx, "deck failed",
			"deck", event.Deck,
			"error", p.Error)
	}
	return nil
}

// Snapshot returns the current counters.
func (h *ProgressHandler) Snapshot() Progress {
	return Progress{
		CardsTotal:      h.total.Load(),
		CardsDone:       h.done.Load(),
		CardsMismatched: h.mismatched.Load(),
		DecksDone:       h.decks.Load(),
		DecksFailed:     h.failed.Load(),
	}
}
