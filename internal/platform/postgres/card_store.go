package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/phrazzld/scry-tagger/internal/domain"
	"github.com/phrazzld/scry-tagger/internal/platform/logger"
	"github.com/phrazzld/scry-tagger/internal/store"
)

const cardsTable = "cards"

var cardColumns = []string{"id", "deck", "question", "answer", "tags"}

// psql builds PostgreSQL statements with $n placeholders.
var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// DB is the connection a CardStore needs: plain queries plus transactions.
// *pgxpool.Pool satisfies it.
type DB interface {
	store.DBTX
	store.TxBeginner
}

// CardStore implements store.CardStore on a PostgreSQL cards table.
type CardStore struct {
	db     DB
	logger *slog.Logger
}

// Ensure CardStore implements store.CardStore interface
var _ store.CardStore = (*CardStore)(nil)

// NewCardStore creates a CardStore over db.
func NewCardStore(db DB, logger *slog.Logger) (*CardStore, error) {
	if db == nil {
		return nil, store.ErrNilDB
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CardStore{
		db:     db,
		logger: logger.With(slog.String("component", "card_store")),
	}, nil
}

// ListPartitions implements store.CardSource.
// Cards are ordered by deck, then by creation time, so partitions come back in
// deck-name order with a stable card order inside each deck.
func (s *CardStore) ListPartitions(ctx context.Context, filter store.Filter) ([]*domain.Partition, error) {
	query := psql.Select(cardColumns...).
		From(cardsTable).
		OrderBy("deck ASC", "created_at ASC", "id ASC")

	if filter.DeckContains != "" {
		query = query.Where("strpos(deck, ?) > 0", filter.DeckContains)
	}
	if !filter.IncludeProcessed {
		query = query.Where("NOT (? = ANY(tags))", domain.ProcessedMarker)
	}
	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		s.logger.Error("failed to list cards", slog.String("error", err.Error()))
		return nil, store.NewStoreError("card", "list", "query failed", MapError(err))
	}
	defer rows.Close()

	var (
		cards   []*domain.Card
		skipped int
	)
	for rows.Next() {
		card, err := scanCard(rows)
		if errors.Is(err, store.ErrInvalidEntity) {
			// One bad row must not stop the run.
			s.logger.Warn("skipping malformed card row", slog.String("error", err.Error()))
			skipped++
			continue
		}
		if err != nil {
			return nil, store.NewStoreError("card", "list", "scan failed", err)
		}
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("card", "list", "row iteration failed", MapError(err))
	}

	partitions := store.GroupByDeck(cards)
	s.logger.Debug("listed cards",
		slog.Int("cards", len(cards)),
		slog.Int("skipped", skipped),
		slog.Int("decks", len(partitions)),
		slog.String("deck_contains", filter.DeckContains))

	return partitions, nil
}

func scanCard(row pgx.Row) (*domain.Card, error) {
	var (
		id       uuid.UUID
		deck     string
		question string
		answer   string
		tags     []string
	)
	if err := row.Scan(&id, &deck, &question, &answer, &tags); err != nil {
		return nil, err
	}
	card, err := domain.RestoreCard(id, deck, question, answer, tags)
	if err != nil {
		return nil, fmt.Errorf("%w: card %s: %w", store.ErrInvalidEntity, id, err)
	}
	return card, nil
}

// UpdateTags implements store.CardWriter.
// All cards are written in one transaction; a card missing from the table
// rolls the whole batch back with store.ErrCardNotFound.
func (s *CardStore) UpdateTags(ctx context.Context, cards []*domain.Card) error {
	if len(cards) == 0 {
		return nil
	}

	ctx = logger.WithLogger(ctx, s.logger)
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx pgx.Tx) error {
		for _, card := range cards {
			sql, args, err := psql.Update(cardsTable).
				Set("tags", card.Tags()).
				Set("updated_at", squirrel.Expr("NOW()")).
				Where("id = ?", card.ID).
				ToSql()
			if err != nil {
				return fmt.Errorf("build update query: %w", err)
			}

			tag, err := tx.Exec(ctx, sql, args...)
			if err != nil {
				return MapError(err)
			}
			if err := CheckRowsAffected(tag, fmt.Errorf("%w: %s", store.ErrCardNotFound, card.ID)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to update card tags",
			slog.Int("cards", len(cards)),
			slog.String("error", err.Error()))
		return store.NewStoreError("card", "update_tags", "write-back failed", err)
	}

	s.logger.Debug("updated card tags", slog.Int("cards", len(cards)))
	return nil
}

// CreateCards implements store.CardImporter with a single multi-row insert.
func (s *CardStore) CreateCards(ctx context.Context, cards []*domain.Card) error {
	if len(cards) == 0 {
		return nil
	}

	insert := psql.Insert(cardsTable).Columns(cardColumns...)
	for _, card := range cards {
		if err := card.Validate(); err != nil {
			return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
		}
		insert = insert.Values(card.ID, card.Deck, card.Question(), card.Answer(), card.Tags())
	}

	sql, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}

	ctx = logger.WithLogger(ctx, s.logger)
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, sql, args...)
		return MapUniqueViolation(err, store.ErrCardExists)
	})
	if err != nil {
		return store.NewStoreError("card", "create", "import failed", err)
	}

	s.logger.Info("imported cards", slog.Int("cards", len(cards)))
	return nil
}
