package pressfront

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Hello World", "Hello World"},
		{"entities", "Caf&eacute; &amp; Co", "Café & Co"},
		{"inline tags join", "<p>Go<em>pher</em>s</p>", "Gophers"},
		{"block tags separate", "<p>One</p><p>Two</p>", "One Two"},
		{"line breaks", "a<br>b<br/>c", "a b c"},
		{"collapses whitespace", "<p>  lots \n\t of   space </p>", "lots of space"},
		{"numeric entity", "&#8220;quoted&#8221;", "“quoted”"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTMLText(tt.in))
		})
	}
}

func TestRenderedHTMLIsVerbatim(t *testing.T) {
	r := Rendered{Rendered: `<p class="x">a &amp; b</p>`}
	assert.Equal(t, `<p class="x">a &amp; b</p>`, r.HTML())
	assert.Equal(t, "a & b", r.Text())
}

func TestPostPublishedAt(t *testing.T) {
	tests := []struct {
		date string
		want time.Time
	}{
		{"2024-03-05T10:00:00", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)},
		{"2024-03-05T10:00:00Z", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)},
		{"2024-03-05", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			got, err := Post{Date: tt.date}.PublishedAt()
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}

	_, err := Post{Date: "yesterday"}.PublishedAt()
	assert.Error(t, err)
}

func TestPostLinkAndImage(t *testing.T) {
	p := Post{Slug: "hello-world"}
	assert.Equal(t, "/blog/hello-world/", p.Link())
	assert.False(t, p.HasImage())

	p = Post{Slug: "a b", FeaturedMedia: 3}
	assert.Equal(t, "/blog/a%20b/", p.Link())
	assert.True(t, p.HasImage())
}
