package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/kbsearch/internal/db"
)

// ZAddMulti adds scored members to sorted sets in a single DoMulti round-trip.
func (s *Store) ZAddMulti(ctx context.Context, items []db.ZItem) error {
	cmds := make([]rueidis.Completed, len(items))
	for i, item := range items {
		cmds[i] = s.b().Zadd().Key(item.Key).ScoreMember().ScoreMember(item.Score, item.Member).Build()
	}
	return s.doMulti(ctx, db.OpZAdd, cmds)
}

// ZRemMulti removes members from sorted sets in a single DoMulti round-trip.
func (s *Store) ZRemMulti(ctx context.Context, items []db.ZItem) error {
	cmds := make([]rueidis.Completed, len(items))
	for i, item := range items {
		cmds[i] = s.b().Zrem().Key(item.Key).Member(item.Member).Build()
	}
	return s.doMulti(ctx, db.OpZRem, cmds)
}

// ZUnionWithScores runs ZUNION numkeys key... WEIGHTS w... WITHSCORES.
// Scores are summed (the default AGGREGATE). Weights are float, so the raw command is used.
func (s *Store) ZUnionWithScores(ctx context.Context, keys []string, weights []float64) ([]db.ZMember, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	if len(weights) != len(keys) {
		return nil, &db.Error{Op: db.OpZUnion, Err: fmt.Errorf("got %d weights for %d keys", len(weights), len(keys))}
	}

	args := make([]string, 0, len(weights)+2)
	args = append(args, "WEIGHTS")
	for _, w := range weights {
		args = append(args, strconv.FormatFloat(w, 'f', -1, 64))
	}
	args = append(args, "WITHSCORES")

	cmd := s.b().Arbitrary("ZUNION", strconv.Itoa(len(keys))).Keys(keys...).Args(args...).Build()
	scores, err := s.do(ctx, cmd).AsZScores()
	if err != nil {
		return nil, &db.Error{Op: db.OpZUnion, Err: err}
	}

	out := make([]db.ZMember, len(scores))
	for i, z := range scores {
		out[i] = db.ZMember{Member: z.Member, Score: z.Score}
	}
	return out, nil
}
