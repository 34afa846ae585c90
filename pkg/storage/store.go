// Package storage provides a durable key/blob store with atomic
// whole-document reads and writes. The population and every queue
// category persist their full state through it; no partial-write
// visibility is possible.
package storage

import "context"

// Store is a key/blob store. Put replaces the whole document for a key
// atomically; Get never observes a partially written value.
type Store interface {
	// Get returns the blob for key. The second return value is false if
	// the key does not exist.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put atomically replaces the blob for key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns all keys with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	Close() error
}
