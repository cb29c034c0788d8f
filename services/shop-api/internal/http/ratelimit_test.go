package httpx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_SweepsIdleVisitorsPeriodically(t *testing.T) {
	rl := &RateLimiter{RPS: 1, Burst: 1, Idle: time.Minute}
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	rl.limiter("a", t0)
	rl.limiter("b", t0.Add(30*time.Second))
	assert.Len(t, rl.visitors, 2)

	// within one idle period of the last sweep nothing is scanned
	rl.limiter("c", t0.Add(59*time.Second))
	assert.Len(t, rl.visitors, 3)

	// a is idle for more than a minute, b and c are not
	rl.limiter("d", t0.Add(61*time.Second))
	assert.NotContains(t, rl.visitors, "a")
	assert.Contains(t, rl.visitors, "b")
	assert.Contains(t, rl.visitors, "c")
	assert.Contains(t, rl.visitors, "d")
}

func TestRateLimiter_KeepsBucketPerClient(t *testing.T) {
	rl := &RateLimiter{RPS: 0.001, Burst: 1}
	now := time.Now()

	assert.True(t, rl.limiter("user:a", now).Allow())
	assert.False(t, rl.limiter("user:a", now).Allow())
	assert.True(t, rl.limiter("user:b", now).Allow())
}
