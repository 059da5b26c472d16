package pipeline

import (
	"context"
	"errors"

	"github.com/phrazzld/scry-tagger/internal/domain"
	"github.com/phrazzld/scry-tagger/internal/export"
	"github.com/phrazzld/scry-tagger/internal/store"
)

// Sink receives the cards of a finished deck. Workers call Flush
// concurrently, so implementations must be safe for concurrent use.
type Sink interface {
	Flush(ctx context.Context, deck string, cards []*domain.Card) error
}

// SinkFunc adapts an ordinary function to the Sink interface.
type SinkFunc func(ctx context.Context, deck string, cards []*domain.Card) error

// Flush implements Sink.
func (f SinkFunc) Flush(ctx context.Context, deck string, cards []*domain.Card) error {
	return f(ctx, deck, cards)
}

// NopSink discards every deck. Useful for dry runs.
var NopSink Sink = SinkFunc(func(context.Context, string, []*domain.Card) error { return nil })

// StoreSink writes the cards' tag sets back to a card store.
func StoreSink(w store.CardWriter) Sink {
	return SinkFunc(func(ctx context.Context, _ string, cards []*domain.Card) error {
		return w.UpdateTags(ctx, cards)
	})
}

// CSVSink appends the deck's cards to a CSV report.
func CSVSink(w *export.Writer) Sink {
	return SinkFunc(func(_ context.Context, deck string, cards []*domain.Card) error {
		return w.WriteDeck(deck, cards)
	})
}

// MultiSink flushes to every sink in order and joins their errors. A failing
// sink does not stop the ones after it.
func MultiSink(sinks ...Sink) Sink {
	return SinkFunc(func(ctx context.Context, deck string, cards []*domain.Card) error {
		var errs []error
		for _, s := range sinks {
			if err := s.Flush(ctx, deck, cards); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
