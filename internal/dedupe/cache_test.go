// ABOUTME: Tests for the submission token cache.
// ABOUTME: Validates claim semantics, TTL expiry, release, eviction, and concurrency safety.

package dedupe

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock lets tests move time without sleeping
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

// seen reports whether token is held and unexpired
func seen(c *Cache, token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	cl, ok := c.claims[token]
	return ok && c.now().Sub(cl.at) < c.ttl
}

// size returns the number of held tokens, expired or not
func size(c *Cache) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.claims)
}

func newTestCache(t *testing.T, ttl time.Duration, maxSize int) (*Cache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := New(ttl, maxSize)
	c.now = clock.Now
	t.Cleanup(c.Close)
	return c, clock
}

func TestCache_Claim_FirstWins(t *testing.T) {
	c, _ := newTestCache(t, 5*time.Minute, 100)

	assert.True(t, c.Claim("token-1"))
	assert.False(t, c.Claim("token-1"), "second claim is a duplicate")
	assert.True(t, c.Claim("token-2"))
}

func TestCache_ClaimIsRemembered(t *testing.T) {
	c, _ := newTestCache(t, 5*time.Minute, 100)

	assert.False(t, seen(c, "never-claimed"))
	c.Claim("claimed")
	assert.True(t, seen(c, "claimed"))
}

func TestCache_Claim_AfterTTL(t *testing.T) {
	c, clock := newTestCache(t, time.Minute, 100)

	assert.True(t, c.Claim("token"))
	clock.Advance(59 * time.Second)
	assert.False(t, c.Claim("token"))

	clock.Advance(2 * time.Second)
	assert.False(t, seen(c, "token"))
	assert.True(t, c.Claim("token"), "expired token can be claimed again")
}

func TestCache_Release(t *testing.T) {
	c, _ := newTestCache(t, 5*time.Minute, 100)

	c.Claim("token")
	c.Release("token")

	assert.False(t, seen(c, "token"))
	assert.True(t, c.Claim("token"))

	// Releasing an unknown token is harmless
	c.Release("unknown")
}

func TestCache_EvictsOldestAtCapacity(t *testing.T) {
	c, _ := newTestCache(t, 5*time.Minute, 3)

	c.Claim("a")
	c.Claim("b")
	c.Claim("c")
	c.Claim("d")

	assert.Equal(t, 3, size(c))
	assert.False(t, seen(c, "a"), "oldest token evicted")
	assert.True(t, seen(c, "b"))
	assert.True(t, seen(c, "d"))
}

func TestCache_RemoveExpired(t *testing.T) {
	c, clock := newTestCache(t, time.Minute, 100)

	c.Claim("old")
	clock.Advance(30 * time.Second)
	c.Claim("new")
	clock.Advance(45 * time.Second)

	c.removeExpired()

	assert.Equal(t, 1, size(c))
	assert.True(t, seen(c, "new"))
}

func TestCache_ConcurrentClaimsOneWinner(t *testing.T) {
	c, _ := newTestCache(t, 5*time.Minute, 1000)

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Claim("shared") {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners)
}

func TestCache_ConcurrentDistinctTokens(t *testing.T) {
	c, _ := newTestCache(t, 5*time.Minute, 1000)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.True(t, c.Claim(fmt.Sprintf("token-%d", i)))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, size(c))
}

func TestCache_CloseTwice(t *testing.T) {
	c := New(time.Minute, 10)
	c.Close()
	c.Close()
}
