package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ProcessedMarker is the sentinel tag carried by cards that a previous run
// already classified. Cards bearing it are skipped by the pipeline.
const ProcessedMarker = "LINT_TAGS=1"

// Card-specific validation errors
var (
	// ErrCardIDEmpty is returned when a card ID is empty or nil.
	ErrCardIDEmpty = errors.New("card ID cannot be empty")

	// ErrCardDeckEmpty is returned when a card is not attached to a deck.
	ErrCardDeckEmpty = errors.New("card deck cannot be empty")

	// ErrCardQuestionEmpty is returned when a card has no question text.
	ErrCardQuestionEmpty = errors.New("card question cannot be empty")
)

// Card is a flashcard as seen by the tagging pipeline: an immutable
// question/answer pair plus a mutable, insertion-ordered tag set.
//
// A Card is owned by exactly one Partition. During a run it is mutated only by
// the reconciler (tag application) and by write-back.
type Card struct {
	ID       uuid.UUID
	Deck     string
	question string
	answer   string
	tags     TagSet

	// suggested holds the tags added during the current run, in the order they
	// were first applied.
	suggested TagSet
}

// NewCard creates a Card with a fresh ID.
func NewCard(deck, question, answer string, tags ...string) (*Card, error) {
	return RestoreCard(uuid.New(), deck, question, answer, tags)
}

// RestoreCard rebuilds a Card that already has an identity, e.g. one loaded
// from a card store. Duplicate tags are collapsed, keeping the first occurrence.
func RestoreCard(id uuid.UUID, deck, question, answer string, tags []string) (*Card, error) {
	card := &Card{
		ID:       id,
		Deck:     deck,
		question: question,
		answer:   answer,
		tags:     NewTagSet(tags...),
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Card has valid data.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCardIDEmpty
	}

	if c.Deck == "" {
		return ErrCardDeckEmpty
	}

	if c.question == "" {
		return fmt.Errorf("%w: %s", ErrValidation, ErrCardQuestionEmpty)
	}

	return nil
}

// Question returns the question text of the card.
func (c *Card) Question() string { return c.question }

// Answer returns the answer text of the card.
func (c *Card) Answer() string { return c.answer }

// Tags returns a copy of the card's tags in insertion order.
func (c *Card) Tags() []string { return c.tags.Values() }

// SuggestedTags returns the tags added to the card during this run.
func (c *Card) SuggestedTags() []string { return c.suggested.Values() }

// HasTag reports whether the card carries tag.
func (c *Card) HasTag(tag string) bool { return c.tags.Contains(tag) }

// AddTags unions tags into the card's tag set, preserving first-seen order,
// and returns how many of them were new.
func (c *Card) AddTags(tags ...string) int {
	added := 0
	for _, tag := range tags {
		if c.tags.Add(tag) {
			c.suggested.Add(tag)
			added++
		}
	}
	return added
}

// HasProcessedMarker reports whether the card was already processed by a
// previous run.
func (c *Card) HasProcessedMarker() bool { return c.tags.Contains(ProcessedMarker) }

// MarkProcessed adds the processed sentinel tag. It is not reported as a
// suggested tag.
func (c *Card) MarkProcessed() { c.tags.Add(ProcessedMarker) }

// RemoveProcessedMarker drops the processed sentinel tag if present.
func (c *Card) RemoveProcessedMarker() { c.tags.Remove(ProcessedMarker) }
