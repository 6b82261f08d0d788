package lock_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"gift_market/internal/infrastructure/lock"
)

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR is not set")
	}

	rq := require.New(t)
	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	locker := lock.NewRedisLocker(rdb, "test:"+t.Name()+":")

	release, ok, err := locker.TryLock(ctx, "deposits", time.Minute)
	rq.NoError(err)
	rq.True(ok)

	_, ok, err = locker.TryLock(ctx, "deposits", time.Minute)
	rq.NoError(err)
	rq.False(ok)

	release()

	release, ok, err = locker.TryLock(ctx, "deposits", time.Minute)
	rq.NoError(err)
	rq.True(ok)
	release()
}
