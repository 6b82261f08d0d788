// Package lock реализует распределённые блокировки на Redis.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"

	"gift_market/pkg/contextx"
	"gift_market/pkg/logx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

const releaseTimeout = 3 * time.Second

// releaseScript удаляет ключ, только если блокировка всё ещё наша.
//
//nolint:gochecknoglobals
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisLocker(rdb *redis.Client, prefix string) *RedisLocker {
	return &RedisLocker{
		rdb:    rdb,
		prefix: prefix,
	}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	key = l.prefix + key
	token := xid.New().String()

	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis.SetNX: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()

		if err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil {
			logger(ctx).Error("release lock", "key", key, logx.Error(err))
		}
	}

	return release, true, nil
}
