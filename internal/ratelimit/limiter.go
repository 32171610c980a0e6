// Package ratelimit bounds how many submissions one client identity may make
// within a rolling window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type Limiter interface {
	// Allow records an attempt for key and reports whether it is within the limit.
	Allow(ctx context.Context, key string) (bool, error)
}

const maxIdleKeys = 10000

// visitor holds the times of accepted attempts, oldest first.
type visitor struct {
	accepted []time.Time
	lastSeen time.Time
}

// MemoryLimiter is a per-process sliding log per key: at most limit accepted
// attempts in any window. Used when no Redis is configured.
type MemoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
	now      func() time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.visitors[key]
	if !ok {
		if len(m.visitors) >= maxIdleKeys {
			m.evict(now)
		}
		v = &visitor{accepted: make([]time.Time, 0, m.limit)}
		m.visitors[key] = v
	}
	v.lastSeen = now

	// Same boundary as the Redis script: entries at or before now-window are gone.
	cutoff := now.Add(-m.window)
	drop := 0
	for drop < len(v.accepted) && !v.accepted[drop].After(cutoff) {
		drop++
	}
	v.accepted = v.accepted[drop:]

	if len(v.accepted) >= m.limit {
		return false, nil
	}
	v.accepted = append(v.accepted, now)
	return true, nil
}

// evict drops visitors idle for a full window; their logs are empty anyway.
func (m *MemoryLimiter) evict(now time.Time) {
	for key, v := range m.visitors {
		if now.Sub(v.lastSeen) >= m.window {
			delete(m.visitors, key)
		}
	}
}
