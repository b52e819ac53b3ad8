// Package storage provides the keyed record storage abstraction for
// challenge, session, and asset records.
package storage

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Repository defines the interface for keyed record storage. Records are
// opaque byte blobs (JSON-encoded by the caller) addressed by a bucket
// name and a key.
type Repository interface {
	// Put stores data under (bucket, key), creating the bucket if needed.
	Put(bucket, key string, data []byte) error
	// Get retrieves the data stored under (bucket, key).
	// Returns ErrNotFound if the record does not exist.
	Get(bucket, key string) ([]byte, error)
	// Delete removes the record under (bucket, key).
	// Returns ErrNotFound if the record does not exist.
	Delete(bucket, key string) error
	// List returns the keys present in bucket, in lexical order.
	List(bucket string) ([]string, error)
	// ForEach calls fn for every record in bucket, in lexical key order.
	// Returning an error from fn stops the iteration.
	ForEach(bucket string, fn func(key string, data []byte) error) error
	// Update applies an atomic read-modify-write to (bucket, key).
	// fn receives the current data, or nil if the record does not exist,
	// and returns the data to store. No other writer observes the record
	// between the read and the write.
	Update(bucket, key string, fn func(data []byte) ([]byte, error)) error
}
