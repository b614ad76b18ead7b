package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by someone else is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

// Redis is a SET NX PX lock with a random token per holder.
type Redis struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	retry  time.Duration
}

// NewRedis returns a Redis locker, or nil when rdb is nil so callers can
// chain it unconditionally.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	if rdb == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Redis{rdb: rdb, ttl: ttl, prefix: "lock:", retry: 25 * time.Millisecond}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	full := r.prefix + key
	token := uuid.NewString()
	for {
		ok, err := r.rdb.SetNX(ctx, full, token, r.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotAcquired, ctx.Err())
		case <-time.After(r.retry):
		}
	}
	return func() {
		// the request context may already be done; release regardless
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, r.rdb, []string{full}, token).Err(); err != nil {
			log.Warnf("release lock %s: %v", full, err)
		}
	}, nil
}
