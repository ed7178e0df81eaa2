package models

import (
	"encoding/json"
	"strings"
)

// RedirectHop records one hop of a redirect chain.
type RedirectHop struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
}

// FetchResult is the outcome of one HTTP GET after redirects.
type FetchResult struct {
	StatusCode    int
	Body          string
	Headers       map[string]string
	FinalURL      string
	RedirectChain []RedirectHop
}

// ContentType returns the response Content-Type header, case-insensitive.
func (f *FetchResult) ContentType() string {
	for k, v := range f.Headers {
		if strings.EqualFold(k, "content-type") {
			return v
		}
	}
	return ""
}

// ExtractedLink is a link extracted from a page with metadata for
// backlink tracking. Rel is "" for dofollow.
type ExtractedLink struct {
	URL        string `json:"url"`
	AnchorText string `json:"anchor_text"`
	Rel        string `json:"rel"`
	IsExternal bool   `json:"is_external"`
}

// RenderedLink is a link reported by the JS renderer.
type RenderedLink struct {
	URL        string `json:"url"`
	AnchorText string `json:"anchor_text"`
	Rel        string `json:"rel"`
}

// ParsedPage is the static parser output for one document.
type ParsedPage struct {
	Title               *string
	MetaDescription     *string
	CanonicalURL        *string
	H1, H2, H3          []string
	H4, H5, H6          []string
	InternalLinks       []string
	ExternalLinks       []string
	ExternalLinkDetails []ExtractedLink
	ImageCount          int
	ImagesWithoutAlt    int
	JSONLDBlocks        []string
	OGTags              map[string]string
	HasRobotsMeta       bool
	RobotsDirectives    []string
	WordCount           int
	FleschScore         *float64
	FleschClass         *string
	TextHTMLRatio       *float64
	TextLength          *int
	HTMLLength          *int
	PDFLinks            []string
	CORSUnsafeBlank     int
	CORSMixedContent    int
	CORSMissingCORS     int
	CORSHasIssues       bool
	SentenceVariance    *float64
	TransitionWords     []string
}

// ExtractedData is the serialized projection of ParsedPage carried on
// page results.
type ExtractedData struct {
	H1                  []string          `json:"h1"`
	H2                  []string          `json:"h2"`
	H3                  []string          `json:"h3"`
	H4                  []string          `json:"h4"`
	H5                  []string          `json:"h5"`
	H6                  []string          `json:"h6"`
	SchemaTypes         []string          `json:"schema_types"`
	InternalLinks       []string          `json:"internal_links"`
	ExternalLinks       []string          `json:"external_links"`
	ExternalLinkDetails []ExtractedLink   `json:"external_link_details"`
	ImagesWithoutAlt    int               `json:"images_without_alt"`
	HasRobotsMeta       bool              `json:"has_robots_meta"`
	RobotsDirectives    []string          `json:"robots_directives"`
	OGTags              map[string]string `json:"og_tags,omitempty"`
	StructuredData      []json.RawMessage `json:"structured_data,omitempty"`
	FleschScore         *float64          `json:"flesch_score,omitempty"`
	FleschClass         *string           `json:"flesch_classification,omitempty"`
	TextHTMLRatio       *float64          `json:"text_html_ratio,omitempty"`
	TextLength          *int              `json:"text_length,omitempty"`
	HTMLLength          *int              `json:"html_length,omitempty"`
	PDFLinks            []string          `json:"pdf_links"`
	CORSUnsafeBlank     int               `json:"cors_unsafe_blank_links"`
	CORSMixedContent    int               `json:"cors_mixed_content"`
	CORSMissingCORS     int               `json:"cors_missing_crossorigin"`
	CORSHasIssues       bool              `json:"cors_has_issues"`
	SentenceVariance    *float64          `json:"sentence_length_variance,omitempty"`
	TransitionWords     []string          `json:"top_transition_words"`
	Custom              map[string][]string `json:"custom,omitempty"` // Custom extractor name -> matches
}

// AuditResult holds headless audit category scores plus the object-store
// key of the raw report.
type AuditResult struct {
	Performance   float64 `json:"performance"`
	SEO           float64 `json:"seo"`
	Accessibility float64 `json:"accessibility"`
	BestPractices float64 `json:"best_practices"`
	ReportKey     string  `json:"lh_r2_key,omitempty"`
}

// SitemapAnalysis summarizes the sitemap discovery phase.
type SitemapAnalysis struct {
	IsValid             bool `json:"is_valid"`
	URLCount            int  `json:"url_count"`
	StaleURLCount       int  `json:"stale_url_count"`
	DiscoveredPageCount int  `json:"discovered_page_count"`
}

// SiteContext is computed once per job at bootstrap and cloned into every
// page result of that job.
type SiteContext struct {
	HasLLMsTxt        bool              `json:"has_llms_txt"`
	AICrawlersBlocked []string          `json:"ai_crawlers_blocked"`
	HasSitemap        bool              `json:"has_sitemap"`
	SitemapAnalysis   *SitemapAnalysis  `json:"sitemap_analysis,omitempty"`
	ContentHashes     map[string]string `json:"content_hashes"` // hash -> url
	ResponseTimeMs    *float64          `json:"response_time_ms,omitempty"`
	PageSizeBytes     *int64            `json:"page_size_bytes,omitempty"`
}

// PageResult is the complete outcome for one crawled URL.
type PageResult struct {
	URL                 string        `json:"url"`
	StatusCode          int           `json:"status_code"`
	Title               *string       `json:"title"`
	MetaDescription     *string       `json:"meta_description"`
	CanonicalURL        *string       `json:"canonical_url"`
	WordCount           int           `json:"word_count"`
	ContentHash         string        `json:"content_hash"`
	HTMLKey             string        `json:"html_r2_key"`
	MarkdownKey         string        `json:"markdown_r2_key,omitempty"`
	Extracted           ExtractedData `json:"extracted"`
	Lighthouse          *AuditResult  `json:"lighthouse,omitempty"`
	JSRenderedLinkCount *int          `json:"js_rendered_link_count,omitempty"`
	SiteContext         *SiteContext  `json:"site_context,omitempty"`
	TimingMs            int64         `json:"timing_ms"`
	RedirectChain       []RedirectHop `json:"redirect_chain"`
}
