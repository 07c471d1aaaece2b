// ABOUTME: Thread-safe TTL cache of form submission tokens.
// ABOUTME: Lets the create handler turn a double-submitted form into a no-op.

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// claim stores when a token was claimed and its position in the eviction order.
type claim struct {
	at      time.Time
	element *list.Element
}

// Cache remembers submission tokens for a fixed TTL, holding at most maxSize
// of them. The oldest token is evicted first when the cache is full.
type Cache struct {
	mu      sync.Mutex
	claims  map[string]*claim
	order   *list.List // tokens in claim order (oldest at front)
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	done    chan struct{}
	closed  bool
}

// New creates a cache with the given TTL and capacity.
// A background goroutine drops expired tokens once a minute until Close.
func New(ttl time.Duration, maxSize int) *Cache {
	c := &Cache{
		claims:  make(map[string]*claim),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go c.cleanup()
	return c
}

// Claim records token and reports whether this call was the first to do so
// within the TTL. A false result means the submission is a duplicate.
func (c *Cache) Claim(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cl, ok := c.claims[token]; ok {
		if c.now().Sub(cl.at) < c.ttl {
			return false
		}
		c.order.Remove(cl.element)
		delete(c.claims, token)
	}

	if c.maxSize > 0 && len(c.claims) >= c.maxSize {
		c.evictOldest()
	}

	c.claims[token] = &claim{
		at:      c.now(),
		element: c.order.PushBack(token),
	}
	return true
}

// Release forgets token, so a submission that failed can be retried.
func (c *Cache) Release(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cl, ok := c.claims[token]; ok {
		c.order.Remove(cl.element)
		delete(c.claims, token)
	}
}

// evictOldest removes the oldest token. Must be called with mu held.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}

	token, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.claims, token)
}

func (c *Cache) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.done:
			return
		}
	}
}

// removeExpired drops every token older than the TTL.
func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for token, cl := range c.claims {
		if now.Sub(cl.at) >= c.ttl {
			c.order.Remove(cl.element)
			delete(c.claims, token)
		}
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
