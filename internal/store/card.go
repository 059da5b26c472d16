package store

import (
	"context"
	"strings"

	"github.com/phrazzld/scry-tagger/internal/domain"
)

// Filter narrows the cards a CardSource returns.
type Filter struct {
	// DeckContains keeps only decks whose name contains this substring.
	// Empty matches every deck.
	DeckContains string

	// Limit caps the total number of cards returned. Zero means no limit.
	Limit int

	// IncludeProcessed also returns cards carrying the processed marker.
	IncludeProcessed bool
}

// MatchDeck reports whether deck passes the deck-name filter.
func (f Filter) MatchDeck(deck string) bool {
	return f.DeckContains == "" || strings.Contains(deck, f.DeckContains)
}

// CardSource lists the cards the pipeline should classify, grouped by deck.
type CardSource interface {
	// ListPartitions returns one partition per deck, in deck-name order.
	// Cards inside a partition keep the store's natural order.
	ListPartitions(ctx context.Context, filter Filter) ([]*domain.Partition, error)
}

// CardWriter persists tag changes made by the pipeline.
type CardWriter interface {
	// UpdateTags overwrites the stored tag set of each card with the card's
	// current tags. It is idempotent.
	UpdateTags(ctx context.Context, cards []*domain.Card) error
}

// CardImporter loads new cards into a store.
type CardImporter interface {
	// CreateCards saves cards atomically: either all of them are stored or
	// none are. Returns ErrCardExists when an ID is already taken.
	CreateCards(ctx context.Context, cards []*domain.Card) error
}

// CardStore is the full set of card operations a backend provides.
type CardStore interface {
	CardSource
	CardWriter
	CardImporter
}

// GroupByDeck builds partitions from a flat card list, keeping the order in
// which decks and cards first appear.
func GroupByDeck(cards []*domain.Card) []*domain.Partition {
	var partitions []*domain.Partition
	byDeck := make(map[string]*domain.Partition)
	for _, card := range cards {
		p, ok := byDeck[card.Deck]
		if !ok {
			p = domain.NewPartition(card.Deck, nil)
			byDeck[card.Deck] = p
			partitions = append(partitions, p)
		}
		p.Cards = append(p.Cards, card)
	}
	return partitions
}
