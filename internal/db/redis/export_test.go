package redis

import "github.com/redis/rueidis"

// NewStoreForTest wraps a rueidis/mock client without dialing, so tests can
// assert the exact commands behind the document layout, the view counters and
// the UpdateHash transaction. A nil client is fine for calls that return before
// reaching Redis (empty key or member lists).
func NewStoreForTest(c rueidis.Client) *Store {
	return &Store{client: c}
}
