package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AIBotUserAgents is the fixed probe set checked against robots.txt to
// compute the blocked-AI-crawlers list on the site context.
var AIBotUserAgents = []string{"GPTBot", "ClaudeBot", "PerplexityBot", "GoogleOther"}

const robotsTimeout = 10 * time.Second

// RobotsChecker holds parsed robots.txt rules for a single domain.
// Rules map lowercase user-agent to disallowed path prefixes. Only
// Disallow directives gate URLs; Sitemap URLs are collected alongside.
type RobotsChecker struct {
	rules map[string][]string

	// Loaded reports whether robots.txt was fetched and parsed. When
	// false everything is allowed.
	Loaded bool

	// Sitemaps lists Sitemap: URLs found in robots.txt.
	Sitemaps []string
}

// FetchRobots fetches and parses https://<domain>/robots.txt. A missing
// or unfetchable robots.txt is not an error: the checker allows all.
func FetchRobots(ctx context.Context, client *http.Client, domain string) *RobotsChecker {
	robotsURL := fmt.Sprintf("https://%s/robots.txt", domain)

	ctx, cancel := context.WithTimeout(ctx, robotsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return &RobotsChecker{rules: map[string][]string{}}
	}

	resp, err := client.Do(req)
	if err != nil {
		return &RobotsChecker{rules: map[string][]string{}}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RobotsChecker{rules: map[string][]string{}}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RobotsChecker{rules: map[string][]string{}}
	}

	checker := NewRobotsCheckerFromContent(string(body))
	return checker
}

// NewRobotsCheckerFromContent parses raw robots.txt content.
func NewRobotsCheckerFromContent(content string) *RobotsChecker {
	checker := &RobotsChecker{
		rules:  make(map[string][]string),
		Loaded: true,
	}
	checker.parse(content)
	return checker
}

// parse builds the rules map. Blank lines end a user-agent group; a
// full-line comment strips to empty and ends the group the same way.
func (r *RobotsChecker) parse(content string) {
	var currentAgents []string

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		if idx := strings.Index(line, "#"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}

		if line == "" {
			currentAgents = currentAgents[:0]
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			currentAgents = append(currentAgents, strings.ToLower(value))
		case "disallow":
			for _, agent := range currentAgents {
				r.rules[agent] = append(r.rules[agent], value)
			}
		case "sitemap":
			if value != "" {
				r.Sitemaps = append(r.Sitemaps, value)
			}
		}
	}
}

// IsAllowed checks the URL path against the rules for the lowercased
// user agent, then the wildcard group. An empty Disallow value is a
// no-op. A rule matches when the path starts with the Disallow prefix.
func (r *RobotsChecker) IsAllowed(rawURL, userAgent string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, agent := range []string{strings.ToLower(userAgent), "*"} {
		for _, pattern := range r.rules[agent] {
			if pattern == "" {
				continue
			}
			if strings.HasPrefix(path, pattern) {
				return false
			}
		}
	}
	return true
}

// BlockedBots returns which AI bots may not fetch the given URL.
func (r *RobotsChecker) BlockedBots(rawURL string) []string {
	var blocked []string
	for _, ua := range AIBotUserAgents {
		if !r.IsAllowed(rawURL, ua) {
			blocked = append(blocked, ua)
		}
	}
	return blocked
}

// FetchLLMsTxt probes https://<domain>/llms.txt. Returns the content and
// true only on HTTP 200.
func FetchLLMsTxt(ctx context.Context, client *http.Client, domain string) (string, bool) {
	llmsURL := fmt.Sprintf("https://%s/llms.txt", domain)

	ctx, cancel := context.WithTimeout(ctx, robotsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, llmsURL, nil)
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
