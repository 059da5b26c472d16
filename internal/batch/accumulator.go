package batch

import (
	"fmt"

	"github.com/phrazzld/scry-tagger/internal/domain"
	"github.com/phrazzld/scry-tagger/internal/prompt"
)

// Renderer builds the prompt of one task kind for a run of cards.
type Renderer interface {
	Kind() domain.TaskKind
	Render(cards []*domain.Card) (string, error)
}

// Accumulate groups the cards of deck into windows for the renderer's task.
//
// Cards carrying the processed marker are skipped. Remaining cards are
// packed greedily in order: a card joins the open window while the rendered
// prompt stays within budget characters, otherwise the window is closed and a
// new one starts with that card. A card that exceeds the budget on its own
// still gets a window of its own, flagged Oversized. The result is empty when
// no card is pending.
func Accumulate(deck string, cards []*domain.Card, renderer Renderer, budget int) ([]*Window, error) {
	if renderer == nil {
		return nil, ErrNilRenderer
	}
	if budget <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidBudget, budget)
	}

	var (
		windows []*Window
		open    []*domain.Card
		text    string
	)

	closeWindow := func() {
		windows = append(windows, &Window{
			Deck:      deck,
			Index:     len(windows),
			Task:      renderer.Kind(),
			Cards:     open,
			Prompt:    text,
			State:     StateAccumulating,
			Oversized: len(open) == 1 && prompt.Size(text) > budget,
		})
		open, text = nil, ""
	}

	for _, card := range cards {
		if card.HasProcessedMarker() {
			continue
		}

		candidate := append(open[:len(open):len(open)], card)
		rendered, err := renderer.Render(candidate)
		if err != nil {
			return nil, fmt.Errorf("failed to render %s prompt for deck %q: %w", renderer.Kind(), deck, err)
		}

		if len(open) > 0 && prompt.Size(rendered) > budget {
			closeWindow()
			candidate = []*domain.Card{card}
			if rendered, err = renderer.Render(candidate); err != nil {
				return nil, fmt.Errorf("failed to render %s prompt for deck %q: %w", renderer.Kind(), deck, err)
			}
		}

		open, text = candidate, rendered
	}

	if len(open) > 0 {
		closeWindow()
	}

	return windows, nil
}
