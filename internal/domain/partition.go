package domain

// Partition is a named, ordered group of cards sharing a destination deck.
// Partitions are independent units of work: no state is shared between them.
type Partition struct {
	Name  string
	Cards []*Card
}

// NewPartition creates a Partition for deck name.
func NewPartition(name string, cards []*Card) *Partition {
	return &Partition{Name: name, Cards: cards}
}

// Pending returns the cards that do not carry the processed marker, in order.
func (p *Partition) Pending() []*Card {
	pending := make([]*Card, 0, len(p.Cards))
	for _, card := range p.Cards {
		if !card.HasProcessedMarker() {
			pending = append(pending, card)
		}
	}
	return pending
}

// IsEmpty reports whether the partition has no cards at all.
func (p *Partition) IsEmpty() bool { return p == nil || len(p.Cards) == 0 }
