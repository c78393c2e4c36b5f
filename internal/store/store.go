package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/UniQw/prioexec/internal/keys"
	"github.com/redis/go-redis/v9"
)

// farFuture is the succeeded score for records kept without expiry.
const farFuture = 1 << 62

// purgeBatch caps the members handled per index per Purge call.
const purgeBatch = 256

// TrackSucceeded adds raw to the Succeeded ZSET scored by its expiration in ms.
// retention == 0 stores nothing; retention < 0 keeps the record forever.
func TrackSucceeded(ctx context.Context, rdb redis.UniversalClient, k keys.Namespace, raw []byte, completedAt time.Time, retention time.Duration) error {
	if retention == 0 {
		return nil
	}
	score := float64(farFuture)
	if retention > 0 {
		score = float64(completedAt.Add(retention).UnixMilli())
	}
	return rdb.ZAdd(ctx, k.Succeeded, redis.Z{Score: score, Member: raw}).Err()
}

// TrackFailed pushes raw onto the Failed list.
// errRetention < 0 drops the record; errRetention > 0 also indexes it for purging.
func TrackFailed(ctx context.Context, rdb redis.UniversalClient, k keys.Namespace, raw []byte, completedAt time.Time, errRetention time.Duration) error {
	return trackList(ctx, rdb, k.Failed, k.FailedExpiry, raw, completedAt, errRetention)
}

// TrackCancelled is TrackFailed for the Cancelled list.
func TrackCancelled(ctx context.Context, rdb redis.UniversalClient, k keys.Namespace, raw []byte, completedAt time.Time, errRetention time.Duration) error {
	return trackList(ctx, rdb, k.Cancelled, k.CancelledExpiry, raw, completedAt, errRetention)
}

func trackList(ctx context.Context, rdb redis.UniversalClient, list, index string, raw []byte, completedAt time.Time, errRetention time.Duration) error {
	if errRetention < 0 {
		return nil
	}
	_, err := rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, list, raw)
		if errRetention > 0 {
			expireMs := completedAt.Add(errRetention).UnixMilli()
			p.ZAdd(ctx, index, redis.Z{Score: float64(expireMs), Member: raw})
		}
		return nil
	})
	return err
}

// Purge removes every record whose expiration is at or before now and returns
// how many were removed.
func Purge(ctx context.Context, rdb redis.UniversalClient, k keys.Namespace, now time.Time) (int64, error) {
	nowMs := strconv.FormatInt(now.UnixMilli(), 10)
	removed, err := rdb.ZRemRangeByScore(ctx, k.Succeeded, "0", nowMs).Result()
	if err != nil {
		return 0, fmt.Errorf("purge succeeded: %w", err)
	}
	for _, pair := range [][2]string{{k.Failed, k.FailedExpiry}, {k.Cancelled, k.CancelledExpiry}} {
		n, err := purgeList(ctx, rdb, pair[0], pair[1], nowMs)
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, nil
}

// purgeList drains expired entries of one list in batches of purgeBatch until
// a short batch comes back.
func purgeList(ctx context.Context, rdb redis.UniversalClient, list, index, nowMs string) (int64, error) {
	var total int64
	for {
		n, fetched, err := purgeListBatch(ctx, rdb, list, index, nowMs)
		total += n
		if err != nil || fetched < purgeBatch {
			return total, err
		}
	}
}

func purgeListBatch(ctx context.Context, rdb redis.UniversalClient, list, index, nowMs string) (int64, int, error) {
	// fetch a small batch to avoid long blocking operations
	members, err := rdb.ZRangeByScore(ctx, index, &redis.ZRangeBy{Min: "0", Max: nowMs, Offset: 0, Count: purgeBatch}).Result()
	if err != nil && err != redis.Nil {
		return 0, 0, fmt.Errorf("purge range %s: %w", index, err)
	}
	if len(members) == 0 {
		return 0, 0, nil
	}
	cmds, err := rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for _, m := range members {
			p.LRem(ctx, list, 1, m)
			p.ZRem(ctx, index, m)
		}
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("purge %s: %w", list, err)
	}
	var n int64
	for i := 0; i < len(cmds); i += 2 {
		if c, ok := cmds[i].(*redis.IntCmd); ok {
			n += c.Val()
		}
	}
	return n, len(members), nil
}

// List returns the raw members stored under key, newest first for lists and
// soonest-to-expire first for the succeeded ZSET.
func List(ctx context.Context, rdb redis.UniversalClient, key string) ([]string, error) {
	typ, err := rdb.Type(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	switch typ {
	case "none":
		return nil, nil
	case "list":
		return rdb.LRange(ctx, key, 0, -1).Result()
	case "zset":
		return rdb.ZRange(ctx, key, 0, -1).Result()
	default:
		return nil, fmt.Errorf("unsupported redis type: %s", typ)
	}
}
