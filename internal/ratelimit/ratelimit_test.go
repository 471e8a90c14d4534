package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// Without redis both the limiter and the locker fail open; generation
// must never block on missing infrastructure.
func TestNilClientFailsOpen(t *testing.T) {
	ctx := context.Background()
	log := zap.NewNop()

	limiter := NewLimiter(nil, log)
	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow(ctx, "shop.example.com:single", 1, time.Minute))
	}

	locker := NewLocker(nil, log)
	token, ok := locker.Acquire(ctx, "bulk:shop.example.com", time.Minute)
	assert.True(t, ok)
	assert.Empty(t, token)

	// Release of an empty token is a no-op and must not panic.
	locker.Release(ctx, "bulk:shop.example.com", token)
}
