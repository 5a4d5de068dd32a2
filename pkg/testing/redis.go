package testing

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

// GetRedisClientAndCtx connects to the redis named by GYMSTAT_REDIS_HOST
// (and optional GYMSTAT_REDIS_PORT, GYMSTAT_REDIS_PASS). The test is skipped
// when no host is set; the client is closed on cleanup.
func GetRedisClientAndCtx(t *testing.T) (context.Context, *redis.Client) {
	t.Helper()

	redisHost := os.Getenv("GYMSTAT_REDIS_HOST")
	if redisHost == "" {
		t.Skip("GYMSTAT_REDIS_HOST not set, skipping redis integration test")
	}
	redisPort := os.Getenv("GYMSTAT_REDIS_PORT")
	if redisPort == "" {
		redisPort = "6379"
	}
	t.Logf("using redis: [%s:%s]", redisHost, redisPort)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(redisHost, redisPort),
		Password: os.Getenv("GYMSTAT_REDIS_PASS"),
		DB:       0,
	})
	t.Cleanup(func() {
		cancel()
		if err := rdb.Close(); err != nil {
			t.Logf("close redis client: %s", err)
		}
	})

	pingRes, err := rdb.Ping(ctx).Result()
	require.NoError(t, err)
	t.Logf("redis ping res: %s", pingRes)

	return ctx, rdb
}
