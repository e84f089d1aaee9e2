// Package counter keeps per-document view counts as integer keys, separate from the
// document index so that popularity writes never touch indexed data.
package counter

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/kbsearch/internal/db"
)

// DefaultKeyPrefix namespaces counter keys.
const DefaultKeyPrefix = "kb:"

// store is the consumer interface for counter operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	MGet(ctx context.Context, keys []string) (map[string][]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Del(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Store implements the view counter on top of DB (INCRBY + MGET).
type Store struct {
	store  store
	prefix string
}

// New creates a counter store. Empty prefix defaults to DefaultKeyPrefix.
func New(s store, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{store: s, prefix: prefix}
}

// Increment atomically adds one view.
func (s *Store) Increment(ctx context.Context, id string) error {
	key := s.key(id)
	if err := s.store.IncrBy(ctx, key, 1); err != nil {
		return fmt.Errorf("counter INCRBY %s: %w", key, err)
	}
	return nil
}

// Get returns the current count. Returns 0 if the key does not exist.
func (s *Store) Get(ctx context.Context, id string) (int64, error) {
	key := s.key(id)
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("counter GET %s: %w", key, err)
	}
	return parseCount(key, data)
}

// GetMany returns counts for all ids in one round-trip. Missing ids map to 0.
func (s *Store) GetMany(ctx context.Context, ids []string) (map[string]int64, error) {
	out := make(map[string]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	values, err := s.store.MGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("counter MGET %d keys: %w", len(keys), err)
	}

	for i, id := range ids {
		data, ok := values[keys[i]]
		if !ok {
			out[id] = 0
			continue
		}
		n, err := parseCount(keys[i], data)
		if err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, nil
}

// Forget drops the counter of a deleted document.
func (s *Store) Forget(ctx context.Context, id string) error {
	key := s.key(id)
	if err := s.store.Del(ctx, key); err != nil {
		return fmt.Errorf("counter DEL %s: %w", key, err)
	}
	return nil
}

// Ping checks the counter store connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Store) key(id string) string { return s.prefix + "views:" + id }

func parseCount(key string, data []byte) (int64, error) {
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter %s parse: %w", key, err)
	}
	return n, nil
}
