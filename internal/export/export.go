// Package export writes tagging results as a CSV report with the columns
// deck, question and suggested tags.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/phrazzld/scry-tagger/internal/domain"
)

// Header is the first row of every report.
var Header = []string{"deck", "question", "suggested tags"}

// ErrClosed is returned when writing to a closed Writer.
var ErrClosed = errors.New("export writer is closed")

// TagSelector picks the tags reported for a card.
type TagSelector func(card *domain.Card) []string

// SuggestedTags reports only the tags added during the current run.
func SuggestedTags(card *domain.Card) []string { return card.SuggestedTags() }

// AllTags reports the card's full tag set except the processed marker.
func AllTags(card *domain.Card) []string {
	tags := card.Tags()
	out := tags[:0]
	for _, tag := range tags {
		if tag != domain.ProcessedMarker {
			out = append(out, tag)
		}
	}
	return out
}

// Options configures a Writer.
type Options struct {
	// Tags selects the reported tags. Defaults to SuggestedTags.
	Tags TagSelector

	// SkipUntagged omits cards for which Tags returns nothing.
	SkipUntagged bool
}

// Writer appends report rows. It is safe for concurrent use, so pipeline
// workers can write their decks as they finish.
type Writer struct {
	mu     sync.Mutex
	csv    *csv.Writer
	closer io.Closer
	opts   Options
	rows   int
	closed bool
}

// NewWriter writes the header to out and returns a Writer for the rows.
func NewWriter(out io.Writer, opts Options) (*Writer, error) {
	if opts.Tags == nil {
		opts.Tags = SuggestedTags
	}

	w := &Writer{csv: csv.NewWriter(out), opts: opts}
	if err := w.csv.Write(Header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return w, nil
}

// Create truncates or creates the file at path and returns a Writer that
// closes it on Close.
func Create(path string, opts Options) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create report file: %w", err)
	}
	w, err := NewWriter(f, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// WriteDeck appends one row per card of deck and flushes, so a crash later in
// the run keeps every finished deck in the report. Tags are space separated.
func (w *Writer) WriteDeck(deck string, cards []*domain.Card) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	for _, card := range cards {
		tags := w.opts.Tags(card)
		if w.opts.SkipUntagged && len(tags) == 0 {
			continue
		}
		if err := w.csv.Write([]string{deck, card.Question(), strings.Join(tags, " ")}); err != nil {
			return fmt.Errorf("write row for deck %q: %w", deck, err)
		}
		w.rows++
	}

	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return fmt.Errorf("flush deck %q: %w", deck, err)
	}
	return nil
}

// Rows returns the number of data rows written so far.
func (w *Writer) Rows() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows
}

// Close flushes pending rows and closes the underlying file, if any.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	w.csv.Flush()
	err := w.csv.Error()
	if w.closer != nil {
		err = errors.Join(err, w.closer.Close())
	}
	return err
}
