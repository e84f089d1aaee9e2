package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/kbsearch/internal/db"
)

// UpdateHash runs WATCH key, HGETALL key, then MULTI <batch> EXEC on a dedicated
// connection. A nil EXEC reply means key changed after WATCH.
// In cluster mode every key of the batch must hash to the slot of key.
func (s *Store) UpdateHash(
	ctx context.Context, key string, fn func(map[string]string) (*db.Batch, error),
) error {
	return s.client.Dedicated(func(c rueidis.DedicatedClient) error {
		if err := c.Do(ctx, s.b().Watch().Key(key).Build()).Error(); err != nil {
			return &db.Error{Op: db.OpWatch, Err: err}
		}

		current, err := c.Do(ctx, s.b().Hgetall().Key(key).Build()).AsStrMap()
		if err != nil {
			s.unwatch(ctx, c)
			return &db.Error{Op: db.OpHGetAll, Err: err}
		}

		batch, err := fn(current)
		if err != nil || batch.IsEmpty() {
			s.unwatch(ctx, c)
			return err
		}

		cmds := make([]rueidis.Completed, 0, 8)
		cmds = append(cmds, s.b().Multi().Build())
		cmds = append(cmds, s.batchCmds(batch)...)
		cmds = append(cmds, s.b().Exec().Build())

		results := c.DoMulti(ctx, cmds...)
		for _, res := range results[:len(results)-1] {
			if err := res.Error(); err != nil {
				return &db.Error{Op: db.OpExec, Err: err}
			}
		}
		replies, err := results[len(results)-1].ToArray()
		if rueidis.IsRedisNil(err) {
			return db.ErrTxConflict
		}
		if err != nil {
			return &db.Error{Op: db.OpExec, Err: err}
		}
		for i := range replies {
			if err := replies[i].Error(); err != nil {
				return &db.Error{Op: db.OpExec, Err: err}
			}
		}
		return nil
	})
}

func (s *Store) unwatch(ctx context.Context, c rueidis.DedicatedClient) {
	_ = c.Do(ctx, s.b().Unwatch().Build()).Error()
}

// batchCmds renders a batch in apply order: removals first, then writes.
func (s *Store) batchCmds(b *db.Batch) []rueidis.Completed {
	var cmds []rueidis.Completed
	for _, z := range b.ZRem {
		cmds = append(cmds, s.b().Zrem().Key(z.Key).Member(z.Member).Build())
	}
	for _, m := range b.SRem {
		cmds = append(cmds, s.b().Srem().Key(m.Key).Member(m.Member).Build())
	}
	for _, k := range b.Del {
		cmds = append(cmds, s.b().Del().Key(k).Build())
	}
	for _, w := range b.HSet {
		if len(w.Fields) == 0 {
			continue
		}
		cmd := s.b().Hset().Key(w.Key).FieldValue()
		for f, v := range w.Fields {
			cmd = cmd.FieldValue(f, v)
		}
		cmds = append(cmds, cmd.Build())
	}
	for _, z := range b.ZAdd {
		cmds = append(cmds, s.b().Zadd().Key(z.Key).ScoreMember().ScoreMember(z.Score, z.Member).Build())
	}
	for _, m := range b.SAdd {
		cmds = append(cmds, s.b().Sadd().Key(m.Key).Member(m.Member).Build())
	}
	return cmds
}
