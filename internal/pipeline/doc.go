// Package pipeline schedules tagging work across decks.
//
// Each non-empty partition (deck) becomes one task on a bounded worker pool.
// A worker runs every configured task kind over its deck in order: the
// cards are grouped into size-bounded windows, each window prompt is sent to
// the completion service, the reply is parsed into one result per card and
// the results are reconciled onto the cards. When the deck is done the worker
// hands its cards to the write-back Sink straight away.
package pipeline
