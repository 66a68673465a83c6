package service_test

import (
	"context"
	"testing"
	"time"

	"dispatch-service/internal/service"
	"dispatch-service/internal/testutil"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_FailsOpen(t *testing.T) {
	limiter := service.NewRateLimiter(testutil.DeadRedis(t), testutil.Logger())

	// Redis is unreachable; requests must still go through.
	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow(context.Background(), "redirect", "1.2.3.4", 2, time.Hour))
	}

	blocked, _ := limiter.IsBlocked(context.Background(), "1.2.3.4")
	assert.False(t, blocked)
}

func TestRateLimiter_NilRedis(t *testing.T) {
	limiter := service.NewRateLimiter(nil, testutil.Logger())

	assert.True(t, limiter.Allow(context.Background(), "api", "1.2.3.4", 1, time.Hour))
	assert.NoError(t, limiter.BlockIP(context.Background(), "1.2.3.4", "abuse", time.Hour))
	blocked, _ := limiter.IsBlocked(context.Background(), "1.2.3.4")
	assert.False(t, blocked)
}

func TestRateLimiter_ZeroLimitDisables(t *testing.T) {
	limiter := service.NewRateLimiter(testutil.DeadRedis(t), testutil.Logger())
	assert.True(t, limiter.Allow(context.Background(), "api", "1.2.3.4", 0, time.Hour))
}
