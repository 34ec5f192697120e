package edge

import (
	"sync"
	"time"
)

type audioEntry struct {
	audio    []byte
	storedAt time.Time
}

// audioCache keeps recently rendered utterances. Entries expire after a
// TTL; when full, the oldest entry is evicted.
type audioCache struct {
	mu      sync.RWMutex
	entries map[string]*audioEntry
	maxSize int
	ttl     time.Duration
}

func newAudioCache(maxSize int, ttl time.Duration) *audioCache {
	return &audioCache{
		entries: make(map[string]*audioEntry),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func (c *audioCache) get(key string) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil
	}
	if time.Since(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil
	}
	return entry.audio
}

func (c *audioCache) set(key string, audio []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		var oldestKey string
		var oldestTime time.Time
		for k, v := range c.entries {
			if oldestKey == "" || v.storedAt.Before(oldestTime) {
				oldestKey = k
				oldestTime = v.storedAt
			}
		}
		if oldestKey != "" {
			delete(c.entries, oldestKey)
		}
	}

	c.entries[key] = &audioEntry{audio: audio, storedAt: time.Now()}
}

const (
	breakerClosed = iota
	breakerOpen
	breakerHalfOpen
)

// circuitBreaker stops hammering the speech service after repeated
// failures; after the retry window one probe request is let through.
type circuitBreaker struct {
	mu          sync.Mutex
	maxFailures int
	failures    int
	lastFailure time.Time
	state       int
	retryAfter  time.Duration
}

func newCircuitBreaker(maxFailures int, retryAfter time.Duration) *circuitBreaker {
	return &circuitBreaker{maxFailures: maxFailures, retryAfter: retryAfter}
}

func (cb *circuitBreaker) open() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == breakerOpen {
		if time.Since(cb.lastFailure) > cb.retryAfter {
			cb.state = breakerHalfOpen
			return false
		}
		return true
	}
	return false
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = breakerClosed
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()
	if cb.failures >= cb.maxFailures {
		cb.state = breakerOpen
	}
}
