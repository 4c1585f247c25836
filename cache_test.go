package pressfront

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLister struct {
	calls atomic.Int32
	posts []Post
	err   error
}

func (l *countingLister) Posts(ctx context.Context) ([]Post, error) {
	l.calls.Add(1)
	return l.posts, l.err
}

func TestPostCacheDisabledReadsThrough(t *testing.T) {
	src := &countingLister{posts: []Post{{Slug: "a"}}}
	c := NewPostCache(src, 0, nil)

	for i := 0; i < 3; i++ {
		posts, err := c.ListPosts(context.Background())
		require.NoError(t, err)
		require.Len(t, posts, 1)
	}
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestPostCacheServesFromMemory(t *testing.T) {
	src := &countingLister{posts: []Post{{Slug: "a"}, {Slug: "b"}}}
	m := NewMetrics(prometheus.NewRegistry())
	c := NewPostCache(src, time.Minute, m)

	for i := 0; i < 3; i++ {
		posts, err := c.ListPosts(context.Background())
		require.NoError(t, err)
		assert.Len(t, posts, 2)
	}
	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheHitsTotal))

	c.Invalidate()
	_, err := c.ListPosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestPostCacheExpires(t *testing.T) {
	src := &countingLister{posts: []Post{}}
	c := NewPostCache(src, 20*time.Millisecond, nil)

	_, err := c.ListPosts(context.Background())
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)
	_, err = c.ListPosts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), src.calls.Load())
}

func TestPostCacheDoesNotCacheErrors(t *testing.T) {
	src := &countingLister{err: errors.New("upstream down")}
	c := NewPostCache(src, time.Minute, nil)

	_, err := c.ListPosts(context.Background())
	require.Error(t, err)

	src.err = nil
	src.posts = nil
	posts, err := c.ListPosts(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, posts)
	assert.Equal(t, int32(2), src.calls.Load())
}
