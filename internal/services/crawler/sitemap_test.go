package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractLocs_Standard(t *testing.T) {
	xml := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/</loc></url>
  <url><loc>https://example.com/about</loc></url>
  <url><loc>https://example.com/blog</loc></url>
</urlset>`
	urls := extractLocs(xml)
	assert.Equal(t, []string{"https://example.com/", "https://example.com/about", "https://example.com/blog"}, urls)
}

func TestExtractLocs_Empty(t *testing.T) {
	assert.Empty(t, extractLocs("<urlset></urlset>"))
	assert.Empty(t, extractLocs("this is not xml at all"))
}

func TestExtractLocs_Whitespace(t *testing.T) {
	xml := "<urlset>\n  <url><loc>\n    https://example.com/page\n  </loc></url>\n</urlset>"
	urls := extractLocs(xml)
	assert.Equal(t, []string{"https://example.com/page"}, urls)
}

func TestFetchSitemapURLs_UnreachableHost(t *testing.T) {
	result := FetchSitemapURLs(context.Background(), &http.Client{}, []string{"https://nonexistent.invalid/sitemap.xml"}, "example.com", 5)
	assert.Empty(t, result.URLs)
	assert.Equal(t, 0, result.TotalCount)
}

func TestFetchSitemapURLs_IndexAndFiltering(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>%s/sitemap-1.xml</loc></sitemap>
  <sitemap><loc>%s/sitemap-2.xml</loc></sitemap>
  <sitemap><loc>%s/sitemap-3.xml</loc></sitemap>
</sitemapindex>`, server.URL, server.URL, server.URL)
	})
	mux.HandleFunc("/sitemap-1.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<urlset>
  <url><loc>https://example.com/a</loc></url>
  <url><loc>https://www.example.com/b</loc></url>
  <url><loc>https://other.com/c</loc></url>
  <url><loc>https://example.com/a</loc></url>
</urlset>`)
	})
	mux.HandleFunc("/sitemap-2.xml", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<urlset><url><loc>https://example.com/d</loc></url></urlset>`)
	})
	mux.HandleFunc("/sitemap-3.xml", func(w http.ResponseWriter, r *http.Request) {
		t.Error("child sitemap beyond the cap must not be fetched")
	})

	result := FetchSitemapURLs(context.Background(), server.Client(), []string{server.URL + "/sitemap.xml"}, "example.com", 2)

	// Total counts pre-filter entries, including the duplicate and other.com
	assert.Equal(t, 5, result.TotalCount)
	assert.Equal(t, []string{"https://example.com/a", "https://www.example.com/b", "https://example.com/d"}, result.URLs)
}
