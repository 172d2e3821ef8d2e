package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisWindows is the shared-store sliding-window implementation needed
// for multi-process deployments, where an in-memory window can't be the
// source of truth. Grounded on dsmolchanov-nerve and
// Sergey-Bar-Alfred's use of redis/go-redis/v9 for exactly this kind of
// cross-process coordination. Uses a Redis sorted set per key, scored by
// timestamp, with ZREMRANGEBYSCORE doing the same compaction the
// in-memory variant does inline.
type RedisWindows struct {
	Client *redis.Client
}

func NewRedisWindows(client *redis.Client) *RedisWindows {
	return &RedisWindows{Client: client}
}

func (w *RedisWindows) Allow(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Decision, error) {
	cutoff := now.Add(-window).UnixNano()
	member := redis.Z{Score: float64(now.UnixNano()), Member: strconv.FormatInt(now.UnixNano(), 10)}

	pipe := w.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window+time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	count, err := countCmd.Result()
	if err != nil {
		return Decision{}, err
	}

	if int(count) >= limit {
		oldest, err := w.Client.ZRangeWithScores(ctx, key, 0, 0).Result()
		retryAfter := int(window.Seconds())
		resetEpoch := now.Add(window).Unix()
		if err == nil && len(oldest) == 1 {
			oldestTime := time.Unix(0, int64(oldest[0].Score))
			retryAfter = int(oldestTime.Add(window).Sub(now).Seconds())
			resetEpoch = oldestTime.Add(window).Unix()
		}
		if retryAfter < 1 {
			retryAfter = 1
		}
		return Decision{Allowed: false, Limit: limit, Remaining: 0, ResetEpoch: resetEpoch, RetryAfter: retryAfter}, nil
	}

	if err := w.Client.ZAdd(ctx, key, member).Err(); err != nil {
		return Decision{}, err
	}

	return Decision{
		Allowed:    true,
		Limit:      limit,
		Remaining:  limit - int(count) - 1,
		ResetEpoch: now.Add(window).Unix(),
	}, nil
}
