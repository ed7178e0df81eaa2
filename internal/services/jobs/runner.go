package jobs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/scout/internal/interfaces"
	"github.com/ternarybob/scout/internal/models"
	"github.com/ternarybob/scout/internal/services/crawler"
)

// bootstrapTimeout bounds the robots, sitemap, and llms.txt requests
// that run before the crawl loop starts.
const bootstrapTimeout = 15 * time.Second

type pageOutcome struct {
	url    string
	depth  int
	result *models.PageResult
	err    error
}

// runJob executes one crawl job end to end: site bootstrap, the worker
// fill loop, batch flushing, and the final callback.
func (m *Manager) runJob(payload *models.JobPayload) {
	entry := m.entryFor(payload.JobID)
	if entry == nil {
		return
	}

	entry.mu.Lock()
	jobCtx := entry.ctx
	entry.mu.Unlock()

	if jobCtx.Err() != nil {
		// Cancelled while still queued
		return
	}

	entry.setStatus(models.JobStatusCrawling)
	m.publishEvent(interfaces.EventJobStarted, payload.JobID)
	m.appendJobLog(payload.JobID, "info", "Job started")

	jobStart := time.Now()
	config := payload.Config

	siteContext, engineRobots, sitemapURLs := m.bootstrapSite(jobCtx, payload.JobID, config)

	fetchTimeout := m.config.FetchTimeout
	if config.TimeoutS > 0 {
		fetchTimeout = time.Duration(config.TimeoutS) * time.Second
	}
	fetcher := crawler.NewFetcher(config.RateLimitMs, fetchTimeout, config.UserAgent, m.logger)

	var audit interfaces.AuditRunner
	if config.RunLighthouse {
		audit = m.audit
	}
	var render interfaces.RenderRunner
	if config.RunJSRender {
		render = m.render
	}

	engine := crawler.NewEngine(fetcher, audit, render, m.storage, engineRobots, config, siteContext, m.logger)

	frontier := crawler.NewFrontier(config.SeedURLs, config.MaxDepth)
	if len(sitemapURLs) > 0 {
		if len(sitemapURLs) > config.MaxPages {
			sitemapURLs = sitemapURLs[:config.MaxPages]
		}
		m.logger.Info().
			Str("job_id", payload.JobID).
			Int("added", len(sitemapURLs)).
			Msg("Adding sitemap URLs to frontier")
		frontier.AddDiscovered(sitemapURLs, 0)
	}

	maxWorkers := m.config.MaxConcurrentFetch
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	var (
		pagesCrawled int
		pagesErrored int
		batchPages   []models.PageResult
		batchIndex   int
		cancelled    bool
	)
	lastFlush := time.Now()
	live := 0
	results := make(chan pageOutcome, maxWorkers)

	statsNow := func() models.CrawlStats {
		return models.CrawlStats{
			PagesFound:   frontier.PendingCount() + pagesCrawled + pagesErrored,
			PagesCrawled: pagesCrawled,
			PagesErrored: pagesErrored,
			ElapsedS:     time.Since(jobStart).Seconds(),
		}
	}

loop:
	for {
		// Fill worker slots from the frontier, counting in-flight pages
		// against the page budget
		for live < maxWorkers && pagesCrawled+pagesErrored+live < config.MaxPages {
			next := frontier.Next()
			if next == nil {
				break
			}
			live++
			go func(url string, depth int) {
				result, err := engine.CrawlPage(jobCtx, url, payload.JobID)
				results <- pageOutcome{url: url, depth: depth, result: result, err: err}
			}(next.URL, next.Depth)
		}

		if live == 0 {
			break
		}

		// Cancellation wins over pending results
		if jobCtx.Err() != nil {
			cancelled = true
			break
		}

		select {
		case <-jobCtx.Done():
			cancelled = true
			break loop
		case outcome := <-results:
			live--

			switch {
			case outcome.err == nil:
				if config.ExtractLinks {
					frontier.AddDiscovered(outcome.result.Extracted.InternalLinks, outcome.depth+1)
				}
				batchPages = append(batchPages, *outcome.result)
				pagesCrawled++
			case errors.Is(outcome.err, crawler.ErrBlockedByRobots):
				m.logger.Debug().Str("url", outcome.url).Msg("Blocked by robots.txt")
			default:
				m.logger.Warn().Err(outcome.err).Str("url", outcome.url).Msg("Crawl failed")
				m.appendJobLog(payload.JobID, "error", fmt.Sprintf("Crawl failed for %s: %v", outcome.url, outcome.err))
				pagesErrored++
			}

			entry.setStats(statsNow())
			m.publishEvent(interfaces.EventJobProgress, payload.JobID)

			shouldFlush := len(batchPages) >= m.config.BatchPageThreshold ||
				time.Since(lastFlush) >= m.config.BatchInterval
			if shouldFlush && len(batchPages) > 0 {
				m.flushBatch(payload, batchIndex, false, batchPages, statsNow())
				batchPages = nil
				batchIndex++
				lastFlush = time.Now()
			}
		}
	}

	finalStats := statsNow()
	entry.setStats(finalStats)

	if cancelled {
		// No final callback for cancelled jobs; the coordinator asked
		// for the stop and holds whatever batches already flushed
		m.logger.Info().
			Str("job_id", payload.JobID).
			Int("pages_crawled", pagesCrawled).
			Msg("Job stopped before completion")
		return
	}

	m.flushBatch(payload, batchIndex, true, batchPages, finalStats)

	if !entry.currentStatus().IsTerminal() {
		entry.setStatus(models.JobStatusComplete)
	}
	m.publishEvent(interfaces.EventJobCompleted, payload.JobID)
	m.appendJobLog(payload.JobID, "info",
		fmt.Sprintf("Job complete: %d pages crawled, %d errored", pagesCrawled, pagesErrored))

	m.logger.Info().
		Str("job_id", payload.JobID).
		Int("pages_crawled", pagesCrawled).
		Int("pages_errored", pagesErrored).
		Float64("elapsed_s", finalStats.ElapsedS).
		Msg("Crawl job complete")
}

// bootstrapSite fetches robots.txt, discovers sitemaps, and probes
// llms.txt for the job's seed domain. Robots rules gate the crawl only
// when the job asks for it; bot analysis and sitemap discovery always
// run.
func (m *Manager) bootstrapSite(ctx context.Context, jobID string, config models.CrawlConfig) (*models.SiteContext, *crawler.RobotsChecker, []string) {
	siteContext := &models.SiteContext{
		AICrawlersBlocked: []string{},
		ContentHashes:     map[string]string{},
	}

	domain := ""
	if len(config.SeedURLs) > 0 {
		domain = crawler.DomainFromURL(config.SeedURLs[0])
	}
	if domain == "" {
		return siteContext, nil, nil
	}

	client := &http.Client{Timeout: bootstrapTimeout}

	checker := crawler.FetchRobots(ctx, client, domain)
	siteContext.AICrawlersBlocked = checker.BlockedBots("/")

	var engineRobots *crawler.RobotsChecker
	if config.RespectRobots {
		engineRobots = checker
	}

	var sitemapSeeds []string
	if len(checker.Sitemaps) > 0 {
		result := crawler.FetchSitemapURLs(ctx, client, checker.Sitemaps, domain, m.config.MaxChildSitemaps)

		m.logger.Info().
			Str("job_id", jobID).
			Int("sitemap_urls", len(result.URLs)).
			Int("total_in_sitemap", result.TotalCount).
			Msg("Sitemap discovery complete")

		siteContext.HasSitemap = true
		siteContext.SitemapAnalysis = &models.SitemapAnalysis{
			IsValid:             true,
			URLCount:            result.TotalCount,
			DiscoveredPageCount: len(result.URLs),
		}

		for _, url := range result.URLs {
			if engineRobots != nil && !engineRobots.IsAllowed(url, config.UserAgent) {
				continue
			}
			sitemapSeeds = append(sitemapSeeds, url)
		}
	}

	if config.CheckLLMsTxt {
		if _, found := crawler.FetchLLMsTxt(ctx, client, domain); found {
			siteContext.HasLLMsTxt = true
		}
	}

	return siteContext, engineRobots, sitemapSeeds
}

// flushBatch sends one result batch plus its backlink report. Callback
// delivery is best-effort; the crawl continues on failure.
func (m *Manager) flushBatch(payload *models.JobPayload, batchIndex int, isFinal bool, pages []models.PageResult, stats models.CrawlStats) {
	if pages == nil {
		pages = []models.PageResult{}
	}
	batch := &models.CrawlResultBatch{
		JobID:      payload.JobID,
		BatchIndex: batchIndex,
		IsFinal:    isFinal,
		Pages:      pages,
		Stats:      stats,
	}

	ctx := context.Background()
	_ = m.callbacks.SendBatch(ctx, payload.CallbackURL, batch)
	m.callbacks.SendBacklinks(ctx, collectBacklinkEntries(batch.Pages))
}
