// Package memory is an in-process implementation of db.Store for single-node
// deployments and tests. It mirrors the Redis semantics the repositories rely on.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/kailas-cloud/kbsearch/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Store keeps every keyspace type in maps guarded by one RWMutex.
type Store struct {
	mu     sync.RWMutex
	hashes map[string]map[string]string
	values map[string][]byte
	sets   map[string]map[string]struct{}
	zsets  map[string]map[string]float64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		hashes: make(map[string]map[string]string),
		values: make(map[string][]byte),
		sets:   make(map[string]map[string]struct{}),
		zsets:  make(map[string]map[string]float64),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(context.Context, time.Duration) error { return nil }

// --- hashes ---

// HSet sets hash fields.
func (s *Store) HSet(_ context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hset(key, fields)
	return nil
}

func (s *Store) hset(key string, fields map[string]string) {
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
}

// HGetAll returns a copy of all fields. A missing key yields an empty map.
func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyHash(s.hashes[key]), nil
}

// HGetAllMulti returns copies of several hashes in key order.
func (s *Store) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]map[string]string, len(keys))
	for i, key := range keys {
		out[i] = copyHash(s.hashes[key])
	}
	return out, nil
}

// Del removes a key of any type.
func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.del(key)
	return nil
}

func (s *Store) del(key string) {
	delete(s.hashes, key)
	delete(s.values, key)
	delete(s.sets, key)
	delete(s.zsets, key)
}

// Exists reports whether a key of any type exists.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.hashes[key]; ok {
		return true, nil
	}
	if _, ok := s.values[key]; ok {
		return true, nil
	}
	if _, ok := s.sets[key]; ok {
		return true, nil
	}
	_, ok := s.zsets[key]
	return ok, nil
}

// --- strings ---

// Get returns a copy of the value at key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

// MGet returns the values of the keys that exist.
func (s *Store) MGet(_ context.Context, keys []string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if v, ok := s.values[key]; ok {
			out[key] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

// IncrBy increments the integer at key, creating it at 0.
func (s *Store) IncrBy(_ context.Context, key string, val int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cur int64
	if raw, ok := s.values[key]; ok {
		n, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return &db.Error{Op: db.OpIncrBy, Err: fmt.Errorf("value is not an integer")}
		}
		cur = n
	}
	s.values[key] = []byte(strconv.FormatInt(cur+val, 10))
	return nil
}

// --- sets ---

// SAddMulti adds members to sets.
func (s *Store) SAddMulti(_ context.Context, items []db.SetItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sadd(items)
	return nil
}

func (s *Store) sadd(items []db.SetItem) {
	for _, item := range items {
		set, ok := s.sets[item.Key]
		if !ok {
			set = make(map[string]struct{})
			s.sets[item.Key] = set
		}
		set[item.Member] = struct{}{}
	}
}

// SRemMulti removes members from sets, dropping sets that become empty.
func (s *Store) SRemMulti(_ context.Context, items []db.SetItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.srem(items)
	return nil
}

func (s *Store) srem(items []db.SetItem) {
	for _, item := range items {
		set, ok := s.sets[item.Key]
		if !ok {
			continue
		}
		delete(set, item.Member)
		if len(set) == 0 {
			delete(s.sets, item.Key)
		}
	}
}

// SMIsMember reports membership of each member in the set at key.
func (s *Store) SMIsMember(_ context.Context, key string, members []string) ([]bool, error) {
	if len(members) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.sets[key]
	out := make([]bool, len(members))
	for i, m := range members {
		_, out[i] = set[m]
	}
	return out, nil
}

// --- sorted sets ---

// ZAddMulti sets member scores.
func (s *Store) ZAddMulti(_ context.Context, items []db.ZItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zadd(items)
	return nil
}

func (s *Store) zadd(items []db.ZItem) {
	for _, item := range items {
		z, ok := s.zsets[item.Key]
		if !ok {
			z = make(map[string]float64)
			s.zsets[item.Key] = z
		}
		z[item.Member] = item.Score
	}
}

// ZRemMulti removes members, dropping sorted sets that become empty.
func (s *Store) ZRemMulti(_ context.Context, items []db.ZItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zrem(items)
	return nil
}

func (s *Store) zrem(items []db.ZItem) {
	for _, item := range items {
		z, ok := s.zsets[item.Key]
		if !ok {
			continue
		}
		delete(z, item.Member)
		if len(z) == 0 {
			delete(s.zsets, item.Key)
		}
	}
}

// ZUnionWithScores sums weighted scores across keys. Like Redis, the result is
// ordered by score ascending, then member.
func (s *Store) ZUnionWithScores(_ context.Context, keys []string, weights []float64) ([]db.ZMember, error) {
	if len(weights) != len(keys) {
		return nil, &db.Error{Op: db.OpZUnion, Err: fmt.Errorf("got %d weights for %d keys", len(weights), len(keys))}
	}
	s.mu.RLock()
	sums := make(map[string]float64)
	for i, key := range keys {
		for m, score := range s.zsets[key] {
			sums[m] += score * weights[i]
		}
	}
	s.mu.RUnlock()

	out := make([]db.ZMember, 0, len(sums))
	for m, score := range sums {
		out = append(out, db.ZMember{Member: m, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].Member < out[j].Member
	})
	return out, nil
}

// --- transactions ---

// UpdateHash holds the write lock across the read, fn and the apply, so no other
// write can interleave and ErrTxConflict is never returned.
func (s *Store) UpdateHash(_ context.Context, key string, fn func(map[string]string) (*db.Batch, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, err := fn(copyHash(s.hashes[key]))
	if err != nil {
		return err
	}
	if batch.IsEmpty() {
		return nil
	}
	s.zrem(batch.ZRem)
	s.srem(batch.SRem)
	for _, k := range batch.Del {
		s.del(k)
	}
	for _, w := range batch.HSet {
		s.hset(w.Key, w.Fields)
	}
	s.zadd(batch.ZAdd)
	s.sadd(batch.SAdd)
	return nil
}

func copyHash(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
