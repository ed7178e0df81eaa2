package crawler

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/scout/internal/models"
)

// maxExtractorMatches caps regex extractor output to keep payloads
// bounded against pathological patterns.
const maxExtractorMatches = 50

// RunExtractors executes the job's custom extractors against a document.
// Invalid selectors and patterns yield empty match lists, never errors.
func RunExtractors(doc *goquery.Document, rawHTML string, configs []models.ExtractorConfig) map[string][]string {
	if len(configs) == 0 {
		return nil
	}
	results := make(map[string][]string, len(configs))
	for _, config := range configs {
		switch config.Type {
		case models.ExtractorTypeCSS:
			results[config.Name] = extractByCSS(doc, config.Selector, config.Attribute)
		case models.ExtractorTypeRegex:
			results[config.Name] = extractByRegex(rawHTML, config.Selector)
		default:
			results[config.Name] = nil
		}
	}
	return results
}

func extractByCSS(doc *goquery.Document, selector, attribute string) (matches []string) {
	defer func() {
		// goquery panics on malformed selectors; treat them as no match
		if recover() != nil {
			matches = nil
		}
	}()
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		if attribute != "" {
			if value, ok := sel.Attr(attribute); ok {
				matches = append(matches, value)
			}
			return
		}
		if text := strings.TrimSpace(sel.Text()); text != "" {
			matches = append(matches, text)
		}
	})
	return matches
}

func extractByRegex(rawHTML, pattern string) []string {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	var matches []string
	for _, match := range re.FindAllStringSubmatch(rawHTML, maxExtractorMatches) {
		if len(match) > 1 && match[1] != "" {
			matches = append(matches, match[1])
		} else {
			matches = append(matches, match[0])
		}
	}
	return matches
}
