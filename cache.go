package pressfront

import (
	"context"
	"sync"
	"time"
)

// PostLister is the part of Client the cache reads through.
type PostLister interface {
	Posts(ctx context.Context) ([]Post, error)
}

// PostCache holds the post list in memory for ttl. A ttl of zero or less
// turns every call into a direct upstream read.
type PostCache struct {
	mu      sync.RWMutex
	posts   []Post
	fetched time.Time
	ttl     time.Duration
	source  PostLister
	metrics *Metrics
}

// NewPostCache creates a PostCache backed by source.
func NewPostCache(source PostLister, ttl time.Duration, m *Metrics) *PostCache {
	return &PostCache{source: source, ttl: ttl, metrics: m}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.mu.Unlock()
}

// ListPosts returns the post list, from memory when the cached copy is fresh.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *PostCache) ListPosts(ctx context.Context) ([]Post, error) {
	if c.ttl <= 0 {
		return c.source.Posts(ctx)
	}

	c.mu.RLock()
	if c.valid() {
		posts := c.posts
		c.mu.RUnlock()
		c.hit()
		return posts, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		c.hit()
		return c.posts, nil
	}
	c.miss()
	posts, err := c.source.Posts(ctx)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []Post{}
	}
	c.posts = posts
	c.fetched = time.Now()
	return posts, nil
}

func (c *PostCache) hit() {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *PostCache) miss() {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}
