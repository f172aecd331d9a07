package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const userKeyPrefix = "gatepass:user:%s"

// UserTTL bounds how stale a cached user row can be.
const UserTTL = 5 * time.Minute

// UserKey returns the cache key for a user row.
func UserKey(username string) string {
	return fmt.Sprintf(userKeyPrefix, username)
}

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// genTTL outlives any single fetch, so a reader never sees a generation
// counter expire and return to the value it recorded.
const genTTL = 10 * time.Minute

var errStale = errors.New("cache: key invalidated during fetch")

func genKey(key string) string {
	return key + ":gen"
}

// Aside tries Redis first; on a miss or a cache error it calls fetch, which must
// populate dest, then stores dest with ttl. Cache failures never fail the read.
// If key is invalidated while fetch runs the result is returned but not stored,
// so a read racing a committed write cannot re-cache the old row.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if found, err := GetJSON(ctx, key, dest); err == nil && found {
		return nil
	}

	gen, genErr := generation(ctx, key)

	if err := fetch(); err != nil {
		return err
	}

	if genErr == nil {
		_ = storeIfCurrent(ctx, key, gen, dest, ttl)
	}
	return nil
}

func generation(ctx context.Context, key string) (string, error) {
	if client == nil {
		return "", nil
	}
	gen, err := client.Get(ctx, genKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return gen, err
}

// storeIfCurrent sets key only while its generation still equals gen.
func storeIfCurrent(ctx context.Context, key, gen string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	gk := genKey(key)
	return client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, ttl)
			return nil
		})
		return err
	}, gk)
}

// Invalidate drops key from the cache and bumps its generation.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	_, _ = client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range keys {
			pipe.Incr(ctx, genKey(k))
			pipe.Expire(ctx, genKey(k), genTTL)
		}
		pipe.Del(ctx, keys...)
		return nil
	})
}

// InvalidateUsers drops the cached rows for usernames.
func InvalidateUsers(ctx context.Context, usernames ...string) {
	keys := make([]string, 0, len(usernames))
	for _, u := range usernames {
		keys = append(keys, UserKey(u))
	}
	Invalidate(ctx, keys...)
}
