package pressfront

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/encoding/json"
)

// ErrNotFound is returned when the content API has no post for a slug.
var ErrNotFound = errors.New("pressfront: not found")

// StatusError reports a non-success response the client does not treat
// specially.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pressfront: GET %s: unexpected status %d", e.URL, e.Code)
}

// Client reads posts and media from a WordPress-style REST API rooted at a
// base URL such as https://example.com/wp-json/wp/v2.
type Client struct {
	base       string
	httpClient *http.Client
	metrics    *Metrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMetrics records request counts and latencies on m.
func WithMetrics(m *Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a content API client for base.
func NewClient(base string, opts ...ClientOption) *Client {
	c := &Client{
		base:       strings.TrimRight(base, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Posts returns the post list as served by GET /posts.
func (c *Client) Posts(ctx context.Context) ([]Post, error) {
	var posts []Post
	if err := c.get(ctx, "posts", "/posts", nil, &posts); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// PostBySlug returns the first post matching slug, or ErrNotFound when the
// API returns an empty list.
func (c *Client) PostBySlug(ctx context.Context, slug string) (Post, error) {
	var posts []Post
	q := url.Values{"slug": {slug}}
	if err := c.get(ctx, "posts", "/posts", q, &posts); err != nil {
		return Post{}, fmt.Errorf("get post %q: %w", slug, err)
	}
	if len(posts) == 0 {
		return Post{}, ErrNotFound
	}
	return posts[0], nil
}

// Image returns the media item with the given id. An id of 0 returns nil
// without contacting the API, and so does a 404 from the API.
func (c *Client) Image(ctx context.Context, id int) (*Image, error) {
	if id == 0 {
		return nil, nil
	}
	var img Image
	err := c.get(ctx, "media", "/media/"+strconv.Itoa(id), nil, &img)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get media %d: %w", id, err)
	}
	return &img, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values, dest any) error {
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(endpoint, "error", start)
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	c.observe(endpoint, strconv.Itoa(resp.StatusCode), start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, URL: u}
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) observe(endpoint, code string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, code).Inc()
	c.metrics.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
