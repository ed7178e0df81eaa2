package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CORSReport counts cross-origin hygiene issues on a page.
type CORSReport struct {
	UnsafeBlankLinks   int
	MixedContentCount  int
	MissingCrossorigin int
	HasIssues          bool
}

var resourceSelectors = []struct {
	tag  string
	attr string
}{
	{"img", "src"},
	{"script", "src"},
	{"link", "href"},
}

// analyzeCORS inspects target=_blank links, mixed content (https pages
// only), and cross-host resources without a crossorigin attribute.
func analyzeCORS(doc *goquery.Document, pageURL string) CORSReport {
	report := CORSReport{
		UnsafeBlankLinks:   countUnsafeBlankLinks(doc),
		MissingCrossorigin: countMissingCrossorigin(doc, pageURL),
	}
	if strings.HasPrefix(pageURL, "https://") {
		report.MixedContentCount = countMixedContent(doc)
	}
	report.HasIssues = report.UnsafeBlankLinks > 0 || report.MixedContentCount > 0 || report.MissingCrossorigin > 0
	return report
}

// extractPDFLinks finds anchors whose href ends in .pdf, resolved
// against the base URL.
func extractPDFLinks(doc *goquery.Document, base *url.URL) []string {
	var urls []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !strings.HasSuffix(strings.ToLower(href), ".pdf") {
			return
		}
		if resolved := resolveURL(base, href); resolved != nil {
			urls = append(urls, resolved.String())
		}
	})
	return urls
}

func countUnsafeBlankLinks(doc *goquery.Document) int {
	count := 0
	doc.Find(`a[target="_blank"]`).Each(func(_ int, sel *goquery.Selection) {
		rel, _ := sel.Attr("rel")
		if !strings.Contains(rel, "noopener") {
			count++
		}
	})
	return count
}

func countMixedContent(doc *goquery.Document) int {
	count := 0
	for _, res := range resourceSelectors {
		doc.Find(res.tag + "[" + res.attr + "]").Each(func(_ int, sel *goquery.Selection) {
			src, _ := sel.Attr(res.attr)
			if strings.HasPrefix(src, "http://") {
				count++
			}
		})
	}
	return count
}

func countMissingCrossorigin(doc *goquery.Document, pageURL string) int {
	pageHost := ""
	if u, err := url.Parse(pageURL); err == nil {
		pageHost = strings.ToLower(u.Hostname())
	}

	count := 0
	for _, res := range resourceSelectors {
		doc.Find(res.tag + "[" + res.attr + "]").Each(func(_ int, sel *goquery.Selection) {
			src, _ := sel.Attr(res.attr)
			if strings.HasPrefix(src, "data:") || strings.HasPrefix(src, "blob:") {
				return
			}
			// Only absolute URLs carry a host to compare
			srcURL, err := url.Parse(src)
			if err != nil || srcURL.Host == "" {
				return
			}
			srcHost := strings.ToLower(srcURL.Hostname())
			if _, hasAttr := sel.Attr("crossorigin"); srcHost != pageHost && !hasAttr {
				count++
			}
		})
	}
	return count
}
