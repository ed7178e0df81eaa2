package crawler

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const sitemapTimeout = 15 * time.Second

var locRe = regexp.MustCompile(`<loc>\s*(.*?)\s*</loc>`)

// SitemapResult is the outcome of sitemap discovery for one domain.
type SitemapResult struct {
	// URLs is the deduplicated list filtered to the seed domain.
	URLs []string
	// TotalCount is the number of URLs found before filtering.
	TotalCount int
}

// FetchSitemapURLs fetches and parses the sitemaps referenced by
// robots.txt. Handles both urlset and sitemapindex formats; for an index
// at most maxChildSitemaps children are fetched. Results are filtered to
// the seed domain or its www variant.
func FetchSitemapURLs(ctx context.Context, client *http.Client, sitemapURLs []string, seedDomain string, maxChildSitemaps int) SitemapResult {
	var allURLs []string

	for _, sitemapURL := range sitemapURLs {
		xml, ok := fetchXML(ctx, client, sitemapURL)
		if !ok {
			continue
		}

		if strings.Contains(xml, "<sitemapindex") {
			childURLs := extractLocs(xml)
			if len(childURLs) > maxChildSitemaps {
				childURLs = childURLs[:maxChildSitemaps]
			}
			for _, childURL := range childURLs {
				if childXML, ok := fetchXML(ctx, client, childURL); ok {
					allURLs = append(allURLs, extractLocs(childXML)...)
				}
			}
		} else {
			allURLs = append(allURLs, extractLocs(xml)...)
		}
	}

	totalCount := len(allURLs)

	seedLower := strings.ToLower(seedDomain)
	wwwSeed := "www." + seedLower
	seen := make(map[string]struct{})
	var filtered []string
	for _, raw := range allURLs {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		host := strings.ToLower(u.Hostname())
		if host != seedLower && host != wwwSeed {
			continue
		}
		if _, ok := seen[raw]; ok {
			continue
		}
		seen[raw] = struct{}{}
		filtered = append(filtered, raw)
	}

	return SitemapResult{URLs: filtered, TotalCount: totalCount}
}

func fetchXML(ctx context.Context, client *http.Client, rawURL string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, sitemapTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", false
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", false
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false
	}
	return string(body), true
}

func extractLocs(xml string) []string {
	var urls []string
	for _, match := range locRe.FindAllStringSubmatch(xml, -1) {
		loc := strings.TrimSpace(match[1])
		if loc != "" {
			urls = append(urls, loc)
		}
	}
	return urls
}
