package api

import (
	"sync"
	"time"
)

// RateLimiter allows a fixed number of attempts per key in each window.
// Counts reset for every key when a window elapses.
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string]int
	limit    int
	window   time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter starts a limiter. Call Close to stop its reset loop.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		attempts: make(map[string]int),
		limit:    limit,
		window:   window,
		stop:     make(chan struct{}),
	}
	go rl.resetLoop()
	return rl
}

// Allow records an attempt for key and reports whether it is within the limit.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.attempts[key] >= rl.limit {
		return false
	}
	rl.attempts[key]++
	return true
}

// Reset clears every recorded attempt.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	rl.attempts = make(map[string]int)
	rl.mu.Unlock()
}

// Close stops the reset loop.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) resetLoop() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.Reset()
		}
	}
}
