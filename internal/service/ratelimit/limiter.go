package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type Policy struct {
	Max    int
	Window time.Duration
}

type Config struct {
	// Policies maps an action type to its policy; actions without an entry
	// fall back to Default.
	Policies      map[string]Policy
	Default       Policy
	SweepInterval time.Duration
}

type bucketKey struct {
	connId string
	action string
}

// Limiter is a sliding-window rate limiter keyed by (connection, action).
type Limiter struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	cfg     Config
	buckets map[bucketKey][]time.Time
}

func NewLimiter(clock clockwork.Clock, cfg Config) *Limiter {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}

	return &Limiter{
		clock:   clock,
		cfg:     cfg,
		buckets: make(map[bucketKey][]time.Time),
	}
}

func (l *Limiter) policyFor(action string) Policy {
	if policy, ok := l.cfg.Policies[action]; ok {
		return policy
	}

	return l.cfg.Default
}

// Allow reports whether the action is within its window budget, recording it
// when accepted.
func (l *Limiter) Allow(connId, action string) bool {
	now := l.clock.Now()
	policy := l.policyFor(action)

	l.mu.Lock()
	defer l.mu.Unlock()

	key := bucketKey{connId: connId, action: action}
	timestamps := l.buckets[key]

	valid := timestamps[:0]
	for _, t := range timestamps {
		if now.Sub(t) < policy.Window {
			valid = append(valid, t)
		}
	}

	if len(valid) >= policy.Max {
		l.buckets[key] = valid
		return false
	}

	l.buckets[key] = append(valid, now)

	return true
}

// RemoveConn drops all buckets for a closed connection.
func (l *Limiter) RemoveConn(connId string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key := range l.buckets {
		if key.connId == connId {
			delete(l.buckets, key)
		}
	}
}

// Run sweeps empty buckets until the context is cancelled. The sweep is
// independent of request traffic so a quiet room does not pin memory.
func (l *Limiter) Run(ctx context.Context) {
	ticker := l.clock.NewTicker(l.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			l.sweep()
		}
	}
}

func (l *Limiter) sweep() {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, timestamps := range l.buckets {
		policy := l.policyFor(key.action)

		valid := timestamps[:0]
		for _, t := range timestamps {
			if now.Sub(t) < policy.Window {
				valid = append(valid, t)
			}
		}

		if len(valid) == 0 {
			delete(l.buckets, key)
		} else {
			l.buckets[key] = valid
		}
	}
}
