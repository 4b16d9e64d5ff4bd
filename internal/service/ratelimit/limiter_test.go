package ratelimit

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func newTestLimiter(clock clockwork.Clock) *Limiter {
	return NewLimiter(clock, Config{
		Policies: map[string]Policy{
			"TRIGGER_CLIP": {Max: 5, Window: time.Minute},
		},
		Default:       Policy{Max: 20, Window: time.Minute},
		SweepInterval: time.Minute,
	})
}

func TestAllowRejectsOverBudget(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := newTestLimiter(clock)

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow("conn-1", "TRIGGER_CLIP"), "call %d must be allowed", i+1)
	}

	assert.False(t, limiter.Allow("conn-1", "TRIGGER_CLIP"), "6th call inside the window must be rejected")
}

func TestAllowAcceptsAfterWindowElapsed(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := newTestLimiter(clock)

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow("conn-1", "TRIGGER_CLIP"))
	}
	assert.False(t, limiter.Allow("conn-1", "TRIGGER_CLIP"))

	clock.Advance(time.Minute)

	assert.True(t, limiter.Allow("conn-1", "TRIGGER_CLIP"), "call after the window fully elapsed must be accepted")
}

func TestAllowFallsBackToDefaultPolicy(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := newTestLimiter(clock)

	for i := 0; i < 20; i++ {
		assert.True(t, limiter.Allow("conn-1", "SOME_ACTION"))
	}

	assert.False(t, limiter.Allow("conn-1", "SOME_ACTION"))
}

func TestConnectionsAreIndependent(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := newTestLimiter(clock)

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow("conn-1", "TRIGGER_CLIP"))
	}
	assert.False(t, limiter.Allow("conn-1", "TRIGGER_CLIP"))

	assert.True(t, limiter.Allow("conn-2", "TRIGGER_CLIP"), "another connection has its own bucket")
}

func TestSweepPrunesStaleBuckets(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := newTestLimiter(clock)

	limiter.Allow("conn-1", "TRIGGER_CLIP")
	limiter.Allow("conn-2", "SOME_ACTION")

	clock.Advance(2 * time.Minute)
	limiter.sweep()

	assert.Empty(t, limiter.buckets, "buckets with no timestamps inside their window must be pruned")
}

func TestRemoveConnDropsAllBuckets(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limiter := newTestLimiter(clock)

	limiter.Allow("conn-1", "TRIGGER_CLIP")
	limiter.Allow("conn-1", "SOME_ACTION")
	limiter.Allow("conn-2", "SOME_ACTION")

	limiter.RemoveConn("conn-1")

	assert.Len(t, limiter.buckets, 1)
	for key := range limiter.buckets {
		assert.Equal(t, "conn-2", key.connId)
	}
}
