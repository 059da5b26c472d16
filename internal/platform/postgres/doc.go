// Package postgres provides the PostgreSQL card store used by the tagger:
// connection pooling, embedded goose migrations, squirrel-built queries and
// mapping of PostgreSQL errors onto the store package's sentinel errors.
package postgres
