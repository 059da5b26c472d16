package filestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-tagger/internal/domain"
	"github.com/phrazzld/scry-tagger/internal/store"
	"gopkg.in/yaml.v3"
)

type cardRecord struct {
	ID       string   `yaml:"id,omitempty"`
	Question string   `yaml:"question"`
	Answer   string   `yaml:"answer,omitempty"`
	Tags     []string `yaml:"tags,omitempty,flow"`
}

type deckRecord struct {
	Name  string       `yaml:"name"`
	Cards []cardRecord `yaml:"cards"`
}

type document struct {
	Decks []deckRecord `yaml:"decks"`
}

type position struct {
	deck, card int
}

// Store is a card store backed by a single YAML deck file. It is safe for
// concurrent use; every write rewrites the whole file.
type Store struct {
	path   string
	logger *slog.Logger

	mu    sync.Mutex
	doc   document
	index map[uuid.UUID]position
}

// Ensure Store implements store.CardStore interface
var _ store.CardStore = (*Store)(nil)

// Open loads the deck file at path. A missing file is treated as an empty
// collection and is created on the first write.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		path:   path,
		logger: logger.With(slog.String("component", "deck_file"), slog.String("path", path)),
		index:  make(map[uuid.UUID]position),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.logger.Info("deck file does not exist yet, starting empty")
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read deck file: %w", err)
	}

	if err := yaml.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDeckFile, err)
	}
	if err := s.buildIndex(); err != nil {
		return nil, err
	}

	s.logger.Debug("loaded deck file", slog.Int("decks", len(s.doc.Decks)), slog.Int("cards", len(s.index)))
	return s, nil
}

// buildIndex assigns missing IDs and checks every record.
func (s *Store) buildIndex() error {
	for i := range s.doc.Decks {
		deck := &s.doc.Decks[i]
		for j := range deck.Cards {
			rec := &deck.Cards[j]
			if rec.ID == "" {
				rec.ID = uuid.NewString()
			}
			id, err := uuid.Parse(rec.ID)
			if err != nil {
				return fmt.Errorf("%w: deck %q card %d: bad id %q", ErrInvalidDeckFile, deck.Name, j+1, rec.ID)
			}
			if _, dup := s.index[id]; dup {
				return fmt.Errorf("%w: deck %q card %d: duplicate id %s", ErrInvalidDeckFile, deck.Name, j+1, id)
			}
			if _, err := domain.RestoreCard(id, deck.Name, rec.Question, rec.Answer, rec.Tags); err != nil {
				return fmt.Errorf("%w: deck %q card %d: %w", ErrInvalidDeckFile, deck.Name, j+1, err)
			}
			s.index[id] = position{deck: i, card: j}
		}
	}
	return nil
}

// ListPartitions implements store.CardSource. Decks keep their file order.
func (s *Store) ListPartitions(ctx context.Context, filter store.Filter) ([]*domain.Partition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var partitions []*domain.Partition
	remaining := filter.Limit
	for _, deck := range s.doc.Decks {
		if !filter.MatchDeck(deck.Name) {
			continue
		}

		var cards []*domain.Card
		for _, rec := range deck.Cards {
			if filter.Limit > 0 && remaining == 0 {
				break
			}
			card, err := domain.RestoreCard(uuid.MustParse(rec.ID), deck.Name, rec.Question, rec.Answer, rec.Tags)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidDeckFile, err)
			}
			if !filter.IncludeProcessed && card.HasProcessedMarker() {
				continue
			}
			cards = append(cards, card)
			remaining--
		}

		if len(cards) > 0 {
			partitions = append(partitions, domain.NewPartition(deck.Name, cards))
		}
	}

	return partitions, nil
}

// UpdateTags implements store.CardWriter. Either every card is written or,
// when one is unknown, none is.
func (s *Store) UpdateTags(ctx context.Context, cards []*domain.Card) error {
	if len(cards) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, card := range cards {
		if _, ok := s.index[card.ID]; !ok {
			return store.NewStoreError("card", "update_tags", "unknown card",
				fmt.Errorf("%w: %s", store.ErrCardNotFound, card.ID))
		}
	}

	for _, card := range cards {
		pos := s.index[card.ID]
		s.doc.Decks[pos.deck].Cards[pos.card].Tags = card.Tags()
	}

	if err := s.save(); err != nil {
		return store.NewStoreError("card", "update_tags", "write-back failed", err)
	}

	s.logger.Debug("updated card tags", slog.Int("cards", len(cards)))
	return nil
}

// CreateCards implements store.CardImporter, appending cards to their decks.
func (s *Store) CreateCards(ctx context.Context, cards []*domain.Card) error {
	if len(cards) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[uuid.UUID]struct{}, len(cards))
	for _, card := range cards {
		if err := card.Validate(); err != nil {
			return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
		}
		_, stored := s.index[card.ID]
		_, repeated := seen[card.ID]
		if stored || repeated {
			return store.NewStoreError("card", "create", "duplicate id",
				fmt.Errorf("%w: %s", store.ErrCardExists, card.ID))
		}
		seen[card.ID] = struct{}{}
	}

	for _, card := range cards {
		i := s.deckIndex(card.Deck)
		s.doc.Decks[i].Cards = append(s.doc.Decks[i].Cards, cardRecord{
			ID:       card.ID.String(),
			Question: card.Question(),
			Answer:   card.Answer(),
			Tags:     card.Tags(),
		})
		s.index[card.ID] = position{deck: i, card: len(s.doc.Decks[i].Cards) - 1}
	}

	if err := s.save(); err != nil {
		return store.NewStoreError("card", "create", "write failed", err)
	}

	s.logger.Info("imported cards", slog.Int("cards", len(cards)))
	return nil
}

// deckIndex returns the position of deck in the document, appending it if
// needed. Callers hold s.mu.
func (s *Store) deckIndex(name string) int {
	for i, deck := range s.doc.Decks {
		if deck.Name == name {
			return i
		}
	}
	s.doc.Decks = append(s.doc.Decks, deckRecord{Name: name})
	return len(s.doc.Decks) - 1
}

// save writes the document to a temporary file and renames it over the deck
// file, so readers never see a half-written file. Callers hold s.mu.
func (s *Store) save() error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&s.doc); err != nil {
		return fmt.Errorf("encode deck file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode deck file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".decks-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace deck file: %w", err)
	}
	return nil
}
