package models

import (
	"encoding/json"
)

// JobStatus represents the state of a crawl job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusQueued    JobStatus = "queued"
	JobStatusCrawling  JobStatus = "crawling"
	JobStatusComplete  JobStatus = "complete"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether the status is a final state.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusComplete, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Extractor type constants
const (
	ExtractorTypeCSS   = "css_selector"
	ExtractorTypeRegex = "regex"
)

// ExtractorConfig defines a custom per-page extraction rule. CSS extractors
// read an attribute or the trimmed element text; regex extractors return
// capture group 1 when present, otherwise the whole match.
type ExtractorConfig struct {
	Name      string `json:"name" validate:"required"`
	Type      string `json:"type" validate:"required,oneof=css_selector regex"`
	Selector  string `json:"selector" validate:"required"` // CSS selector or regex pattern
	Attribute string `json:"attribute,omitempty"`
}

// CrawlConfig defines crawl behavior for a single job. Immutable once
// accepted.
type CrawlConfig struct {
	SeedURLs      []string          `json:"seed_urls" validate:"required,min=1,dive,url"`
	MaxPages      int               `json:"max_pages" validate:"required,min=1"`
	MaxDepth      int               `json:"max_depth" validate:"min=0"`
	RespectRobots bool              `json:"respect_robots"`
	RunLighthouse bool              `json:"run_lighthouse"`
	ExtractSchema bool              `json:"extract_schema"`
	ExtractLinks  bool              `json:"extract_links"`
	CheckLLMsTxt  bool              `json:"check_llms_txt"`
	UserAgent     string            `json:"user_agent"`
	RateLimitMs   int               `json:"rate_limit_ms" validate:"min=0"`
	TimeoutS      int               `json:"timeout_s" validate:"min=0"`
	RunJSRender   bool              `json:"run_js_render"`
	StoreMarkdown bool              `json:"store_markdown"`
	Extractors    []ExtractorConfig `json:"extractors,omitempty" validate:"dive"`
}

// DefaultCrawlConfig returns the config values applied when a submission
// omits them. Feature toggles default to on.
func DefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{
		RespectRobots: true,
		RunLighthouse: true,
		ExtractSchema: true,
		ExtractLinks:  true,
		CheckLLMsTxt:  true,
		RunJSRender:   true,
		UserAgent:     "ScoutBot/1.0",
		RateLimitMs:   1000,
		TimeoutS:      30,
	}
}

// UnmarshalJSON applies defaults before decoding so omitted fields keep
// their default values rather than Go zero values.
func (c *CrawlConfig) UnmarshalJSON(data []byte) error {
	type alias CrawlConfig
	tmp := alias(DefaultCrawlConfig())
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}
	*c = CrawlConfig(tmp)
	return nil
}

// JobPayload is the submission body for a crawl job.
type JobPayload struct {
	JobID       string      `json:"job_id" validate:"required"`
	CallbackURL string      `json:"callback_url" validate:"required,url"`
	Config      CrawlConfig `json:"config" validate:"required"`
}

// CrawlStats is the progress snapshot carried on batches and status
// responses. PagesFound = pending + crawled + errored.
type CrawlStats struct {
	PagesFound   int     `json:"pages_found"`
	PagesCrawled int     `json:"pages_crawled"`
	PagesErrored int     `json:"pages_errored"`
	ElapsedS     float64 `json:"elapsed_s"`
}

// JobStatusSnapshot is the status query response shape.
type JobStatusSnapshot struct {
	JobID  string      `json:"job_id"`
	Status JobStatus   `json:"status"`
	Stats  *CrawlStats `json:"stats,omitempty"`
}
