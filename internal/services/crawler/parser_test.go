package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Test Page Title</title>
    <meta name="description" content="A test page for parsing">
    <link rel="canonical" href="https://example.com/test">
    <meta name="robots" content="index, follow">
    <meta property="og:title" content="OG Test Title">
    <meta property="og:description" content="OG description">
    <meta property="og:image" content="https://example.com/image.png">
    <meta property="og:type" content="website">
    <script type="application/ld+json">{"@type": "WebPage", "name": "Test"}</script>
</head>
<body>
    <h1>Main Heading</h1>
    <h2>Sub Heading One</h2>
    <h2>Sub Heading Two</h2>
    <h3>Third Level</h3>
    <p>This is some body text with several words for counting purposes.</p>
    <a href="/internal-page">Internal Link</a>
    <a href="https://other.com/page" rel="nofollow">External Link</a>
    <a href="https://example.com/another">Another Internal</a>
    <img src="img1.png" alt="Has alt text">
    <img src="img2.png">
    <img src="img3.png" alt="">
    <script>var x = 1; do not count these words at all;</script>
    <style>.hidden { display: none; } also not counted</style>
</body>
</html>`

func TestParsePage_Title(t *testing.T) {
	page := ParsePage(testHTML, "https://example.com/test")
	require.NotNil(t, page.Title)
	assert.Equal(t, "Test Page Title", *page.Title)
}

func TestParsePage_MetaDescription(t *testing.T) {
	page := ParsePage(testHTML, "https://example.com/test")
	require.NotNil(t, page.MetaDescription)
	assert.Equal(t, "A test page for parsing", *page.MetaDescription)
}

func TestParsePage_Canonical(t *testing.T) {
	page := ParsePage(testHTML, "https://example.com/test")
	require.NotNil(t, page.CanonicalURL)
	assert.Equal(t, "https://example.com/test", *page.CanonicalURL)
}

func TestParsePage_Headings(t *testing.T) {
	page := ParsePage(testHTML, "https://example.com/test")
	assert.Equal(t, []string{"Main Heading"}, page.H1)
	assert.Equal(t, []string{"Sub Heading One", "Sub Heading Two"}, page.H2)
	assert.Equal(t, []string{"Third Level"}, page.H3)
	assert.Empty(t, page.H4)
}

func TestParsePage_Links(t *testing.T) {
	page := ParsePage(testHTML, "https://example.com/test")

	assert.Equal(t, []string{"https://example.com/internal-page", "https://example.com/another"}, page.InternalLinks)
	require.Len(t, page.ExternalLinks, 1)
	assert.Contains(t, page.ExternalLinks[0], "other.com")

	require.Len(t, page.ExternalLinkDetails, 1)
	detail := page.ExternalLinkDetails[0]
	assert.Equal(t, "https://other.com/page", detail.URL)
	assert.Equal(t, "External Link", detail.AnchorText)
	assert.Equal(t, "nofollow", detail.Rel)
	assert.True(t, detail.IsExternal)
}

func TestParsePage_NonHTTPLinksSkipped(t *testing.T) {
	html := `<body><a href="mailto:x@y.com">Mail</a><a href="javascript:void(0)">JS</a><a href="/ok">OK</a></body>`
	page := ParsePage(html, "https://example.com/")
	assert.Equal(t, []string{"https://example.com/ok"}, page.InternalLinks)
	assert.Empty(t, page.ExternalLinks)
}

func TestParsePage_Images(t *testing.T) {
	page := ParsePage(testHTML, "https://example.com/test")
	assert.Equal(t, 3, page.ImageCount)
	assert.Equal(t, 2, page.ImagesWithoutAlt, "missing alt and blank alt both count")
}

func TestParsePage_JSONLD(t *testing.T) {
	page := ParsePage(testHTML, "https://example.com/test")
	require.Len(t, page.JSONLDBlocks, 1)
	assert.Contains(t, page.JSONLDBlocks[0], "WebPage")
}

func TestParsePage_OGTags(t *testing.T) {
	page := ParsePage(testHTML, "https://example.com/test")
	assert.Equal(t, "OG Test Title", page.OGTags["og:title"])
	assert.Equal(t, "website", page.OGTags["og:type"])
	assert.Len(t, page.OGTags, 4)
}

func TestParsePage_RobotsMeta(t *testing.T) {
	page := ParsePage(testHTML, "https://example.com/test")
	assert.True(t, page.HasRobotsMeta)
	assert.Contains(t, page.RobotsDirectives, "index")
	assert.Contains(t, page.RobotsDirectives, "follow")
}

func TestParsePage_WordCountExcludesScriptStyle(t *testing.T) {
	page := ParsePage(testHTML, "https://example.com/test")
	assert.Greater(t, page.WordCount, 10)
	assert.Less(t, page.WordCount, 50, "script and style words must not be counted")
}

func TestParsePage_NoTitle(t *testing.T) {
	page := ParsePage("<html><body><p>No title here</p></body></html>", "https://example.com")
	assert.Nil(t, page.Title)
}

func TestParsePage_EmptyHTML(t *testing.T) {
	page := ParsePage("", "https://example.com")
	assert.Nil(t, page.Title)
	assert.Equal(t, 0, page.WordCount)
}

func TestAnalyzeHumanReadiness(t *testing.T) {
	variance, transitions := analyzeHumanReadiness(
		"This is the first full sentence of text. However, the second sentence here is quite a bit longer than the first one was. Short one.")
	require.NotNil(t, variance)
	assert.Greater(t, *variance, 0.0)
	assert.Contains(t, transitions, "however")
}

func TestAnalyzeHumanReadiness_Empty(t *testing.T) {
	variance, transitions := analyzeHumanReadiness("")
	assert.Nil(t, variance)
	assert.Empty(t, transitions)
}
