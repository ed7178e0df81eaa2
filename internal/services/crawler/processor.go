package crawler

import (
	"fmt"
	"net/url"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

// ConvertToMarkdown renders page HTML as markdown for the optional
// markdown artifact. The page URL anchors relative links.
func ConvertToMarkdown(htmlContent, pageURL string) (string, error) {
	domain := pageURL
	if parsed, err := url.Parse(pageURL); err == nil && parsed.Host != "" {
		domain = parsed.Scheme + "://" + parsed.Host
	}

	converter := md.NewConverter(domain, true, nil)
	markdown, err := converter.ConvertString(htmlContent)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	return markdown, nil
}
