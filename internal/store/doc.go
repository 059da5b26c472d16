// Package store defines the ports the tagging pipeline uses to read cards
// from a collection and to write suggested tags back to it. Concrete
// implementations live under internal/platform (postgres, filestore).
package store
