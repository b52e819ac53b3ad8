// Package memory provides a thread-safe in-memory implementation of storage.Repository.
package memory

import (
	"sort"
	"sync"

	"github.com/dmaher/pcaptcha/storage"
)

// Repository is a thread-safe in-memory implementation of storage.Repository.
// Suitable for testing, demos, and single-process use cases.
type Repository struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository creates a new empty in-memory Repository.
func NewRepository() *Repository {
	return &Repository{data: make(map[string]map[string][]byte)}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

func (r *Repository) Put(bucket, key string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putLocked(bucket, key, data)
	return nil
}

func (r *Repository) putLocked(bucket, key string, data []byte) {
	if _, ok := r.data[bucket]; !ok {
		r.data[bucket] = make(map[string][]byte)
	}
	r.data[bucket][key] = cloneBytes(data)
}

func (r *Repository) Get(bucket, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	data, ok := r.data[bucket][key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneBytes(data), nil
}

func (r *Repository) Delete(bucket, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[bucket][key]; !ok {
		return storage.ErrNotFound
	}
	delete(r.data[bucket], key)
	return nil
}

func (r *Repository) List(bucket string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedKeysLocked(bucket), nil
}

func (r *Repository) ForEach(bucket string, fn func(key string, data []byte) error) error {
	r.mu.RLock()
	keys := r.sortedKeysLocked(bucket)
	records := make([][]byte, len(keys))
	for i, k := range keys {
		records[i] = cloneBytes(r.data[bucket][k])
	}
	r.mu.RUnlock()

	for i, k := range keys {
		if err := fn(k, records[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) Update(bucket, key string, fn func(data []byte) ([]byte, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var current []byte
	if existing, ok := r.data[bucket][key]; ok {
		current = cloneBytes(existing)
	}
	updated, err := fn(current)
	if err != nil {
		return err
	}
	r.putLocked(bucket, key, updated)
	return nil
}

func (r *Repository) sortedKeysLocked(bucket string) []string {
	keys := make([]string, 0, len(r.data[bucket]))
	for k := range r.data[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
