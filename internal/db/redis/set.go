package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/kbsearch/internal/db"
)

// SAddMulti adds members to sets in a single DoMulti round-trip.
func (s *Store) SAddMulti(ctx context.Context, items []db.SetItem) error {
	cmds := make([]rueidis.Completed, len(items))
	for i, item := range items {
		cmds[i] = s.b().Sadd().Key(item.Key).Member(item.Member).Build()
	}
	return s.doMulti(ctx, db.OpSAdd, cmds)
}

// SRemMulti removes members from sets in a single DoMulti round-trip.
func (s *Store) SRemMulti(ctx context.Context, items []db.SetItem) error {
	cmds := make([]rueidis.Completed, len(items))
	for i, item := range items {
		cmds[i] = s.b().Srem().Key(item.Key).Member(item.Member).Build()
	}
	return s.doMulti(ctx, db.OpSRem, cmds)
}

// SMIsMember reports membership of each member in the set at key.
func (s *Store) SMIsMember(ctx context.Context, key string, members []string) ([]bool, error) {
	if len(members) == 0 {
		return nil, nil
	}
	cmd := s.b().Smismember().Key(key).Member(members...).Build()
	flags, err := s.do(ctx, cmd).AsIntSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpSMIsMember, Err: err}
	}
	out := make([]bool, len(flags))
	for i, f := range flags {
		out[i] = f == 1
	}
	return out, nil
}
