package crawler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/models"
)

// ErrBlockedByRobots marks URLs excluded by robots.txt. The runner skips
// these silently instead of counting them as errors.
var ErrBlockedByRobots = errors.New("blocked by robots.txt")

// Engine crawls a single page end to end: robots gate, fetch, parse,
// artifact upload, audit and render fan-out, result assembly.
type Engine struct {
	fetcher     *Fetcher
	audit       interfaces.AuditRunner
	render      interfaces.RenderRunner
	storage     interfaces.ObjectStore
	robots      *RobotsChecker
	config      models.CrawlConfig
	siteContext *models.SiteContext
	logger      arbor.ILogger
}

func NewEngine(
	fetcher *Fetcher,
	audit interfaces.AuditRunner,
	render interfaces.RenderRunner,
	storage interfaces.ObjectStore,
	robots *RobotsChecker,
	config models.CrawlConfig,
	siteContext *models.SiteContext,
	logger arbor.ILogger,
) *Engine {
	return &Engine{
		fetcher:     fetcher,
		audit:       audit,
		render:      render,
		storage:     storage,
		robots:      robots,
		config:      config,
		siteContext: siteContext,
		logger:      logger,
	}
}

// CrawlPage crawls one URL and returns the assembled page result.
// Artifact uploads, audits, and renders are best-effort: their failures
// log warnings but never fail the page.
func (e *Engine) CrawlPage(ctx context.Context, pageURL, jobID string) (*models.PageResult, error) {
	if e.robots != nil && !e.robots.IsAllowed(pageURL, e.config.UserAgent) {
		return nil, fmt.Errorf("%w: %s", ErrBlockedByRobots, pageURL)
	}

	start := time.Now()

	fetch, err := e.fetcher.Fetch(ctx, pageURL, e.config.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}

	parsed := ParsePage(fetch.Body, fetch.FinalURL)

	hash := sha256.Sum256([]byte(fetch.Body))
	contentHash := hex.EncodeToString(hash[:])
	htmlKey := fmt.Sprintf("crawls/%s/html/%s.html.gz", jobID, contentHash[:16])

	// HTML upload, audit, and render run concurrently. Audit JSON upload
	// follows the audit result, so it stays sequential.
	var (
		wg          sync.WaitGroup
		auditResult *models.AuditResult
		rendered    []models.RenderedLink
		renderRan   bool
	)

	if e.storage != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := e.storage.UploadHTML(ctx, htmlKey, []byte(fetch.Body)); err != nil {
				e.logger.Warn().Err(err).Str("url", pageURL).Str("key", htmlKey).Msg("Failed to upload HTML")
			}
		}()
	}

	if e.audit != nil && e.config.RunLighthouse {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := e.audit.Run(ctx, pageURL)
			if err != nil {
				e.logger.Warn().Err(err).Str("url", pageURL).Msg("Audit failed")
				return
			}
			auditResult = result
		}()
	}

	if e.render != nil && e.config.RunJSRender && isHTMLContent(fetch.ContentType()) {
		renderRan = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			links, err := e.render.Render(ctx, pageURL)
			if err != nil {
				e.logger.Warn().Err(err).Str("url", pageURL).Msg("Render failed")
				return
			}
			rendered = links
		}()
	}

	wg.Wait()

	if auditResult != nil && e.storage != nil {
		auditKey := fmt.Sprintf("crawls/%s/lighthouse/%s.json.gz", jobID, contentHash[:16])
		if body, err := json.Marshal(auditResult); err == nil {
			if err := e.storage.UploadJSON(ctx, auditKey, body); err != nil {
				e.logger.Warn().Err(err).Str("url", pageURL).Str("key", auditKey).Msg("Failed to upload audit report")
			}
			auditResult.ReportKey = auditKey
		}
	}

	var markdownKey string
	if e.config.StoreMarkdown && e.storage != nil {
		if markdown, err := ConvertToMarkdown(fetch.Body, fetch.FinalURL); err != nil {
			e.logger.Warn().Err(err).Str("url", pageURL).Msg("Markdown conversion failed")
		} else {
			key := fmt.Sprintf("crawls/%s/markdown/%s.md.gz", jobID, contentHash[:16])
			if err := e.storage.UploadMarkdown(ctx, key, []byte(markdown)); err != nil {
				e.logger.Warn().Err(err).Str("url", pageURL).Str("key", key).Msg("Failed to upload markdown")
			} else {
				markdownKey = key
			}
		}
	}

	var jsLinkCount *int
	if renderRan {
		count := len(rendered)
		jsLinkCount = &count
		mergeRenderedLinks(parsed, rendered, fetch.FinalURL)
	}

	extracted := buildExtractedData(parsed, e.config)

	if len(e.config.Extractors) > 0 {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(fetch.Body)); err == nil {
			extracted.Custom = RunExtractors(doc, fetch.Body, e.config.Extractors)
		}
	}

	return &models.PageResult{
		URL:                 fetch.FinalURL,
		StatusCode:          fetch.StatusCode,
		Title:               parsed.Title,
		MetaDescription:     parsed.MetaDescription,
		CanonicalURL:        parsed.CanonicalURL,
		WordCount:           parsed.WordCount,
		ContentHash:         contentHash,
		HTMLKey:             htmlKey,
		MarkdownKey:         markdownKey,
		Extracted:           extracted,
		Lighthouse:          auditResult,
		JSRenderedLinkCount: jsLinkCount,
		SiteContext:         e.siteContext,
		TimingMs:            time.Since(start).Milliseconds(),
		RedirectChain:       fetch.RedirectChain,
	}, nil
}

// isHTMLContent reports whether a response Content-Type warrants a JS
// render pass. A missing header is treated as HTML.
func isHTMLContent(contentType string) bool {
	return contentType == "" || strings.Contains(strings.ToLower(contentType), "text/html")
}

// mergeRenderedLinks folds renderer-discovered anchors into the parsed
// link lists. Static parser results win on duplicates.
func mergeRenderedLinks(parsed *models.ParsedPage, rendered []models.RenderedLink, pageURL string) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return
	}
	pageHost := strings.ToLower(base.Hostname())

	internalSeen := make(map[string]struct{}, len(parsed.InternalLinks))
	for _, link := range parsed.InternalLinks {
		internalSeen[link] = struct{}{}
	}
	externalSeen := make(map[string]struct{}, len(parsed.ExternalLinks))
	for _, link := range parsed.ExternalLinks {
		externalSeen[link] = struct{}{}
	}

	for _, link := range rendered {
		resolved, err := base.Parse(link.URL)
		if err != nil {
			continue
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			continue
		}
		absolute := resolved.String()

		if strings.ToLower(resolved.Hostname()) == pageHost {
			if _, ok := internalSeen[absolute]; ok {
				continue
			}
			internalSeen[absolute] = struct{}{}
			parsed.InternalLinks = append(parsed.InternalLinks, absolute)
			continue
		}

		if _, ok := externalSeen[absolute]; ok {
			continue
		}
		externalSeen[absolute] = struct{}{}
		parsed.ExternalLinks = append(parsed.ExternalLinks, absolute)
		parsed.ExternalLinkDetails = append(parsed.ExternalLinkDetails, models.ExtractedLink{
			URL:        absolute,
			AnchorText: link.AnchorText,
			Rel:        link.Rel,
			IsExternal: true,
		})
	}
}

// buildExtractedData projects parser output into the wire shape, applying
// the schema toggles.
func buildExtractedData(parsed *models.ParsedPage, config models.CrawlConfig) models.ExtractedData {
	var structuredData []json.RawMessage
	if config.ExtractSchema {
		for _, block := range parsed.JSONLDBlocks {
			if json.Valid([]byte(block)) {
				structuredData = append(structuredData, json.RawMessage(block))
			}
		}
	}

	ogTags := parsed.OGTags
	if len(ogTags) == 0 {
		ogTags = nil
	}

	return models.ExtractedData{
		H1:                  parsed.H1,
		H2:                  parsed.H2,
		H3:                  parsed.H3,
		H4:                  parsed.H4,
		H5:                  parsed.H5,
		H6:                  parsed.H6,
		SchemaTypes:         schemaTypesFromJSONLD(parsed.JSONLDBlocks),
		InternalLinks:       parsed.InternalLinks,
		ExternalLinks:       parsed.ExternalLinks,
		ExternalLinkDetails: parsed.ExternalLinkDetails,
		ImagesWithoutAlt:    parsed.ImagesWithoutAlt,
		HasRobotsMeta:       parsed.HasRobotsMeta,
		RobotsDirectives:    parsed.RobotsDirectives,
		OGTags:              ogTags,
		StructuredData:      structuredData,
		FleschScore:         parsed.FleschScore,
		FleschClass:         parsed.FleschClass,
		TextHTMLRatio:       parsed.TextHTMLRatio,
		TextLength:          parsed.TextLength,
		HTMLLength:          parsed.HTMLLength,
		PDFLinks:            parsed.PDFLinks,
		CORSUnsafeBlank:     parsed.CORSUnsafeBlank,
		CORSMixedContent:    parsed.CORSMixedContent,
		CORSMissingCORS:     parsed.CORSMissingCORS,
		CORSHasIssues:       parsed.CORSHasIssues,
		SentenceVariance:    parsed.SentenceVariance,
		TransitionWords:     parsed.TransitionWords,
	}
}

// schemaTypesFromJSONLD pulls top-level string "@type" values out of
// JSON-LD blocks. Array and object types are skipped.
func schemaTypesFromJSONLD(blocks []string) []string {
	var types []string
	for _, block := range blocks {
		var value map[string]interface{}
		if err := json.Unmarshal([]byte(block), &value); err != nil {
			continue
		}
		if typeName, ok := value["@type"].(string); ok {
			types = append(types, typeName)
		}
	}
	return types
}

// DomainFromURL extracts the hostname from a URL, or "" when unparseable.
func DomainFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
