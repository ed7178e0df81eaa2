package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/ternarybob/scout/internal/models"
)

// transitionWords are phrases characteristic of machine-generated prose,
// surfaced for the AI-readiness report.
var transitionWords = []string{
	"in conclusion",
	"moreover",
	"furthermore",
	"however",
	"therefore",
	"additionally",
	"consequently",
	"it is important to note",
	"it's important to note",
}

// ParsePage extracts all SEO-relevant data from an HTML document.
// Links are resolved against the base URL and kept only for http/https
// schemes; internal vs external is decided by host equality.
func ParsePage(htmlContent, baseURL string) *models.ParsedPage {
	page := &models.ParsedPage{}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return page
	}
	base, _ := url.Parse(baseURL)

	page.Title = nonEmpty(strings.TrimSpace(doc.Find("title").First().Text()))
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		page.MetaDescription = nonEmpty(desc)
	}
	if canonical, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		page.CanonicalURL = nonEmpty(canonical)
	}

	page.H1 = extractHeadings(doc, "h1")
	page.H2 = extractHeadings(doc, "h2")
	page.H3 = extractHeadings(doc, "h3")
	page.H4 = extractHeadings(doc, "h4")
	page.H5 = extractHeadings(doc, "h5")
	page.H6 = extractHeadings(doc, "h6")

	extractLinks(doc, base, page)
	extractImageStats(doc, page)
	page.JSONLDBlocks = extractJSONLD(doc)
	page.OGTags = extractOGTags(doc)
	page.HasRobotsMeta, page.RobotsDirectives = extractRobotsMeta(doc)

	text := collectBodyText(doc)
	page.WordCount = len(strings.Fields(text))

	if flesch := computeFlesch(doc); flesch != nil {
		page.FleschScore = &flesch.Score
		page.FleschClass = &flesch.Classification
	}
	ratio := computeTextHTMLRatio(doc, htmlContent)
	page.TextHTMLRatio = &ratio.Ratio
	page.TextLength = &ratio.TextLength
	page.HTMLLength = &ratio.HTMLLength

	cors := analyzeCORS(doc, baseURL)
	page.CORSUnsafeBlank = cors.UnsafeBlankLinks
	page.CORSMixedContent = cors.MixedContentCount
	page.CORSMissingCORS = cors.MissingCrossorigin
	page.CORSHasIssues = cors.HasIssues
	page.PDFLinks = extractPDFLinks(doc, base)

	page.SentenceVariance, page.TransitionWords = analyzeHumanReadiness(text)

	return page
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func extractHeadings(doc *goquery.Document, tag string) []string {
	var headings []string
	doc.Find(tag).Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			headings = append(headings, text)
		}
	})
	return headings
}

func extractLinks(doc *goquery.Document, base *url.URL, page *models.ParsedPage) {
	baseHost := ""
	if base != nil {
		baseHost = strings.ToLower(base.Hostname())
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		resolved := resolveURL(base, href)
		if resolved == nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}

		linkHost := strings.ToLower(resolved.Hostname())
		linkURL := resolved.String()

		if linkHost == baseHost {
			page.InternalLinks = append(page.InternalLinks, linkURL)
			return
		}

		page.ExternalLinks = append(page.ExternalLinks, linkURL)
		rel, _ := sel.Attr("rel")
		page.ExternalLinkDetails = append(page.ExternalLinkDetails, models.ExtractedLink{
			URL:        linkURL,
			AnchorText: strings.TrimSpace(sel.Text()),
			Rel:        rel,
			IsExternal: true,
		})
	})
}

func resolveURL(base *url.URL, href string) *url.URL {
	if base != nil {
		resolved, err := base.Parse(href)
		if err != nil {
			return nil
		}
		return resolved
	}
	resolved, err := url.Parse(href)
	if err != nil {
		return nil
	}
	return resolved
}

func extractImageStats(doc *goquery.Document, page *models.ParsedPage) {
	doc.Find("img").Each(func(_ int, sel *goquery.Selection) {
		page.ImageCount++
		alt, _ := sel.Attr("alt")
		if strings.TrimSpace(alt) == "" {
			page.ImagesWithoutAlt++
		}
	})
}

func extractJSONLD(doc *goquery.Document) []string {
	var blocks []string
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	return blocks
}

func extractOGTags(doc *goquery.Document) map[string]string {
	tags := make(map[string]string)
	for _, property := range []string{"og:title", "og:description", "og:image", "og:type"} {
		sel := doc.Find(`meta[property="` + property + `"]`).First()
		if content, ok := sel.Attr("content"); ok && content != "" {
			tags[property] = content
		}
	}
	return tags
}

func extractRobotsMeta(doc *goquery.Document) (bool, []string) {
	var directives []string
	found := false
	doc.Find(`meta[name="robots"]`).Each(func(_ int, sel *goquery.Selection) {
		found = true
		content, _ := sel.Attr("content")
		for _, directive := range strings.Split(content, ",") {
			if d := strings.ToLower(strings.TrimSpace(directive)); d != "" {
				directives = append(directives, d)
			}
		}
	})
	return found, directives
}

// collectBodyText gathers visible body text, excluding script and style
// content.
func collectBodyText(doc *goquery.Document) string {
	body := doc.Find("body").First()
	if body.Length() == 0 {
		return ""
	}
	var sb strings.Builder
	for _, node := range body.Nodes {
		collectTextExcluding(node, &sb)
	}
	return sb.String()
}

func collectTextExcluding(n *html.Node, sb *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			sb.WriteByte(' ')
			sb.WriteString(c.Data)
		case c.Type == html.ElementNode && c.Data != "script" && c.Data != "style":
			collectTextExcluding(c, sb)
		}
	}
}

// analyzeHumanReadiness computes sentence-length variance and detects
// transition phrases. Sentences shorter than four words are ignored.
func analyzeHumanReadiness(text string) (*float64, []string) {
	if text == "" {
		return nil, nil
	}

	var lengths []float64
	for _, sentence := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	}) {
		words := len(strings.Fields(sentence))
		if words > 3 {
			lengths = append(lengths, float64(words))
		}
	}
	if len(lengths) == 0 {
		return nil, nil
	}

	mean := 0.0
	for _, l := range lengths {
		mean += l
	}
	mean /= float64(len(lengths))

	variance := 0.0
	for _, l := range lengths {
		variance += (l - mean) * (l - mean)
	}
	variance /= float64(len(lengths))

	var found []string
	lower := strings.ToLower(text)
	for _, word := range transitionWords {
		if strings.Contains(lower, word) {
			found = append(found, word)
		}
	}

	return &variance, found
}
