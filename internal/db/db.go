package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	HashStore
	KVStore
	SetStore
	SortedSetStore
	TxStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// MGet returns values for the keys that exist; missing keys are absent from the map.
	MGet(ctx context.Context, keys []string) (map[string][]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Del(ctx context.Context, key string) error
}

// SetItem is a single key+member pair for pipelined set writes.
type SetItem struct {
	Key    string
	Member string
}

// SetStore provides unordered set operations.
type SetStore interface {
	SAddMulti(ctx context.Context, items []SetItem) error
	SRemMulti(ctx context.Context, items []SetItem) error
	SMIsMember(ctx context.Context, key string, members []string) ([]bool, error)
}

// ZItem is a single key+member+score triple for pipelined sorted set writes.
type ZItem struct {
	Key    string
	Member string
	Score  float64
}

// ZMember is a member with its (aggregated) score.
type ZMember struct {
	Member string
	Score  float64
}

// SortedSetStore provides sorted set operations.
type SortedSetStore interface {
	ZAddMulti(ctx context.Context, items []ZItem) error
	ZRemMulti(ctx context.Context, items []ZItem) error
	// ZUnionWithScores returns the union of keys with scores summed after
	// multiplying each key's scores by the matching weight.
	ZUnionWithScores(ctx context.Context, keys []string, weights []float64) ([]ZMember, error)
}

// HashWrite sets fields of one hash.
type HashWrite struct {
	Key    string
	Fields map[string]string
}

// Batch is a group of writes committed all-or-nothing.
// Removals are applied before additions.
type Batch struct {
	ZRem []ZItem
	SRem []SetItem
	Del  []string
	HSet []HashWrite
	ZAdd []ZItem
	SAdd []SetItem
}

// IsEmpty reports whether the batch has no writes.
func (b *Batch) IsEmpty() bool {
	return b == nil ||
		len(b.ZRem)+len(b.SRem)+len(b.Del)+len(b.HSet)+len(b.ZAdd)+len(b.SAdd) == 0
}

// TxStore runs optimistic read-modify-write transactions keyed on one hash.
type TxStore interface {
	// UpdateHash reads the hash at key (empty map when absent) and passes it to fn.
	// The batch fn returns is committed atomically, and only if key was not written
	// in between; otherwise ErrTxConflict is returned and nothing is applied.
	// An error from fn is returned as is. fn must not call the store.
	UpdateHash(ctx context.Context, key string, fn func(current map[string]string) (*Batch, error)) error
}
