package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleRobots = `
User-agent: *
Disallow: /admin/
Disallow: /private/

User-agent: GPTBot
Disallow: /

User-agent: ClaudeBot
Disallow: /

User-agent: GoogleOther
Disallow: /search
`

func TestRobots_WildcardRules(t *testing.T) {
	checker := NewRobotsCheckerFromContent(sampleRobots)
	assert.True(t, checker.Loaded)

	assert.False(t, checker.IsAllowed("https://example.com/admin/page", "*"))
	assert.False(t, checker.IsAllowed("https://example.com/private/data", "*"))
	assert.True(t, checker.IsAllowed("https://example.com/public", "*"))
}

func TestRobots_GPTBotBlocked(t *testing.T) {
	checker := NewRobotsCheckerFromContent(sampleRobots)
	assert.False(t, checker.IsAllowed("https://example.com/", "GPTBot"))
	assert.False(t, checker.IsAllowed("https://example.com/any/page", "GPTBot"))
}

func TestRobots_ClaudeBotBlocked(t *testing.T) {
	checker := NewRobotsCheckerFromContent(sampleRobots)
	assert.False(t, checker.IsAllowed("https://example.com/", "ClaudeBot"))
}

func TestRobots_GoogleOtherPartialBlock(t *testing.T) {
	checker := NewRobotsCheckerFromContent(sampleRobots)
	// Blocked for /search and inherits the wildcard prefixes
	assert.False(t, checker.IsAllowed("https://example.com/search?q=test", "GoogleOther"))
	assert.False(t, checker.IsAllowed("https://example.com/admin/", "GoogleOther"))
	assert.True(t, checker.IsAllowed("https://example.com/blog", "GoogleOther"))
}

func TestRobots_UnknownBotUsesWildcard(t *testing.T) {
	checker := NewRobotsCheckerFromContent(sampleRobots)
	assert.False(t, checker.IsAllowed("https://example.com/admin/", "SomeOtherBot"))
	assert.True(t, checker.IsAllowed("https://example.com/public", "SomeOtherBot"))
}

func TestRobots_BlockedBots(t *testing.T) {
	checker := NewRobotsCheckerFromContent(sampleRobots)
	blocked := checker.BlockedBots("https://example.com/page")
	assert.Contains(t, blocked, "GPTBot")
	assert.Contains(t, blocked, "ClaudeBot")
	// GoogleOther is only blocked for /search
	assert.NotContains(t, blocked, "GoogleOther")
}

func TestRobots_Empty(t *testing.T) {
	checker := NewRobotsCheckerFromContent("")
	assert.True(t, checker.IsAllowed("https://example.com/anything", "GPTBot"))
}

func TestRobots_EmptyDisallowAllowsAll(t *testing.T) {
	checker := NewRobotsCheckerFromContent("User-agent: *\nDisallow:\n")
	assert.True(t, checker.IsAllowed("https://example.com/anything", "GPTBot"))
}

func TestRobots_SitemapCollection(t *testing.T) {
	content := sampleRobots + "\nSitemap: https://example.com/sitemap.xml\nSitemap: https://example.com/news.xml\n"
	checker := NewRobotsCheckerFromContent(content)
	assert.Equal(t, []string{"https://example.com/sitemap.xml", "https://example.com/news.xml"}, checker.Sitemaps)
}

func TestRobots_FullLineCommentEndsGroup(t *testing.T) {
	// The comment line strips to empty, which resets the UA group, so the
	// Disallow that follows applies to no agent.
	content := "User-agent: *\n# maintenance section\nDisallow: /tmp/\n"
	checker := NewRobotsCheckerFromContent(content)
	assert.True(t, checker.IsAllowed("https://example.com/tmp/x", "AnyBot"))
}
