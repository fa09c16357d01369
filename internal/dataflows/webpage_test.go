package dataflows

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articlePage = `<!DOCTYPE html>
<html><head><title>Apple beats estimates</title><style>p{color:red}</style></head>
<body>
<nav><p>Home | Markets</p></nav>
<article>
  <h1>Apple beats estimates</h1>
  <p>Revenue   rose
     8% year over year.</p>
  <ul><li>iPhone up</li><li>Services record</li></ul>
  <script>track()</script>
</article>
<footer><p>Copyright</p></footer>
</body></html>`

func TestWebPageVisitExtractsArticle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articlePage))
	}))
	defer srv.Close()

	page, err := NewWebPageClient(time.Second).Visit(context.Background(), srv.URL+"/news")
	require.NoError(t, err)

	assert.Equal(t, "Apple beats estimates", page.Title)
	assert.Contains(t, page.Content, "Revenue rose 8% year over year.")
	assert.Contains(t, page.Content, "- iPhone up")
	assert.NotContains(t, page.Content, "track()")
	assert.NotContains(t, page.Content, "Home | Markets")
	assert.NotContains(t, page.Content, "Copyright")
}

func TestWebPageVisitTruncatesLongContent(t *testing.T) {
	long := "<html><body><p>" + strings.Repeat("word ", maxPageContent) + "</p></body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(long))
	}))
	defer srv.Close()

	page, err := NewWebPageClient(time.Second).Visit(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, page.Content, "truncated")
	assert.LessOrEqual(t, len([]rune(page.Content)), maxPageContent+64)
}

func TestWebPageVisitErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := NewWebPageClient(time.Second)

	_, err := client.Visit(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, err = client.Visit(context.Background(), "ftp://example.com/file")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid url")
}
