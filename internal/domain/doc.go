// Package domain contains the core entities of the tagger: flashcards, their
// ordered tag sets, the decks (partitions) that group them, and the task kinds
// the completion pipeline can run against them. It is independent of any
// storage backend or completion service.
package domain
