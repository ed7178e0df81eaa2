package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scout/internal/common"
	"github.com/ternarybob/scout/internal/models"
	"github.com/ternarybob/scout/internal/services/crawler"
)

// CallbackClient delivers signed result batches and backlink reports to
// the coordinator. One client is shared across all jobs so TCP
// connections get reused.
type CallbackClient struct {
	client     *http.Client
	secret     string
	apiBaseURL string
	logger     arbor.ILogger
}

func NewCallbackClient(secret, apiBaseURL string, timeout time.Duration, logger arbor.ILogger) *CallbackClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &CallbackClient{
		client:     &http.Client{Timeout: timeout},
		secret:     secret,
		apiBaseURL: apiBaseURL,
		logger:     logger,
	}
}

// SendBatch POSTs a result batch to the job's callback URL.
func (c *CallbackClient) SendBatch(ctx context.Context, callbackURL string, batch *models.CrawlResultBatch) error {
	body, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("serialize batch: %w", err)
	}

	status, err := c.post(ctx, callbackURL, body)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("job_id", batch.JobID).
			Int("batch_index", batch.BatchIndex).
			Msg("Failed to send callback")
		return err
	}

	c.logger.Info().
		Int("status", status).
		Str("job_id", batch.JobID).
		Int("batch_index", batch.BatchIndex).
		Bool("is_final", batch.IsFinal).
		Int("pages", len(batch.Pages)).
		Msg("Callback sent")

	return nil
}

// SendBacklinks POSTs discovered external links to the coordinator's
// ingestion endpoint. Fire-and-forget: failures never fail the job.
func (c *CallbackClient) SendBacklinks(ctx context.Context, links []models.BacklinkEntry) {
	if len(links) == 0 {
		return
	}

	body, err := json.Marshal(models.BacklinksPayload{Links: links})
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to serialize backlinks payload")
		return
	}

	url := strings.TrimRight(c.apiBaseURL, "/") + "/api/backlinks/ingest"
	status, err := c.post(ctx, url, body)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to POST backlinks (non-fatal)")
		return
	}

	c.logger.Info().
		Int("status", status).
		Int("link_count", len(links)).
		Msg("Backlinks POST sent")
}

func (c *CallbackClient) post(ctx context.Context, url string, body []byte) (int, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := common.SignaturePrefix + common.ComputeSignature(c.secret, timestamp, body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", signature)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

// collectBacklinkEntries flattens the external link details of a page
// batch into the coordinator's backlink ingestion shape. Links whose
// target URL has no parseable domain are skipped.
func collectBacklinkEntries(pages []models.PageResult) []models.BacklinkEntry {
	var entries []models.BacklinkEntry
	for _, page := range pages {
		sourceDomain := crawler.DomainFromURL(page.URL)
		for _, link := range page.Extracted.ExternalLinkDetails {
			targetDomain := crawler.DomainFromURL(link.URL)
			if targetDomain == "" {
				continue
			}
			entries = append(entries, models.BacklinkEntry{
				SourceURL:    page.URL,
				SourceDomain: sourceDomain,
				TargetURL:    link.URL,
				TargetDomain: targetDomain,
				AnchorText:   link.AnchorText,
				Rel:          link.Rel,
			})
		}
	}
	return entries
}
