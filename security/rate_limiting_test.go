package security

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"seatgrid/internal/status"
)

func TestRateLimiter_Allow_DistributedAllows(t *testing.T) {
	db, redisMock := redismock.NewClientMock()
	limiter := NewRateLimiter(db)

	bucket := Bucket{Prefix: "ratelimit:test", Capacity: 100, Window: time.Second}

	redisMock.ExpectEval(bucketScriptSrc, []string{"ratelimit:test:client-a"}, mock.Anything, 100, int64(time.Second.Milliseconds()), mock.Anything).SetVal(int64(1))

	err := limiter.Allow(context.Background(), bucket, "client-a")

	require.NoError(t, err)
}

func TestRateLimiter_Allow_DistributedRejects(t *testing.T) {
	db, redisMock := redismock.NewClientMock()
	limiter := NewRateLimiter(db)

	bucket := Bucket{Prefix: "ratelimit:test", Capacity: 100, Window: time.Second}

	redisMock.ExpectEval(bucketScriptSrc, []string{"ratelimit:test:client-a"}, mock.Anything, 100, int64(time.Second.Milliseconds()), mock.Anything).SetVal(int64(0))

	err := limiter.Allow(context.Background(), bucket, "client-a")

	assert.ErrorIs(t, err, status.ErrRateLimited)
}

func TestRateLimiter_Allow_LocalPreCheckRejectsBeforeRedis(t *testing.T) {
	db, redisMock := redismock.NewClientMock()
	limiter := NewRateLimiter(db)

	bucket := Bucket{Prefix: "ratelimit:tiny", Capacity: 1, Window: time.Hour}

	for i := 0; i < 10; i++ {
		limiter.allowLocal(bucket, "client-b")
	}

	err := limiter.Allow(context.Background(), bucket, "client-b")

	assert.ErrorIs(t, err, status.ErrRateLimited)
	assert.NoError(t, redisMock.ExpectationsWereMet()) // no Redis call reached
}

func TestRateLimiter_Allow_FailsOpenOnRedisError(t *testing.T) {
	db, redisMock := redismock.NewClientMock()
	limiter := NewRateLimiter(db)

	bucket := Bucket{Prefix: "ratelimit:test", Capacity: 100, Window: time.Second}

	redisMock.ExpectEval(bucketScriptSrc, []string{"ratelimit:test:client-c"}, mock.Anything, 100, int64(time.Second.Milliseconds()), mock.Anything).SetErr(assert.AnError)

	err := limiter.Allow(context.Background(), bucket, "client-c")

	assert.NoError(t, err)
}

func TestKeyFromRequest_PrefersForwardedFor(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "/api/seats", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	req.RemoteAddr = "10.0.0.99:1234"

	assert.Equal(t, "203.0.113.5", KeyFromRequest(req))
}

func TestKeyFromRequest_FallsBackToRemoteAddr(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "/api/seats", nil)
	req.RemoteAddr = "10.0.0.99:1234"

	assert.Equal(t, "10.0.0.99:1234", KeyFromRequest(req))
}
