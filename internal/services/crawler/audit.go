package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scout/internal/models"
)

const auditTimeout = 60 * time.Second

// ErrAuditNotInstalled indicates the lighthouse CLI is missing from PATH.
var ErrAuditNotInstalled = errors.New("lighthouse CLI not found")

var auditCategories = []string{"performance", "seo", "accessibility", "best-practices"}

// LocalAuditRunner shells out to the lighthouse CLI for page audits.
type LocalAuditRunner struct {
	sem    chan struct{}
	logger arbor.ILogger
}

func NewLocalAuditRunner(maxConcurrent int, logger arbor.ILogger) *LocalAuditRunner {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &LocalAuditRunner{
		sem:    make(chan struct{}, maxConcurrent),
		logger: logger,
	}
}

func (r *LocalAuditRunner) Run(ctx context.Context, pageURL string) (*models.AuditResult, error) {
	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	runCtx, cancel := context.WithTimeout(ctx, auditTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "lighthouse", pageURL,
		"--output=json",
		"--quiet",
		"--chrome-flags=--headless --no-sandbox --disable-gpu --disable-dev-shm-usage --disable-extensions --disable-background-networking --no-first-run")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, ErrAuditNotInstalled
		}
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("audit timed out after %s", auditTimeout)
		}
		return nil, fmt.Errorf("audit process failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return parseAuditReport(stdout.Bytes())
}

// parseAuditReport pulls the four category scores out of lighthouse JSON output.
func parseAuditReport(report []byte) (*models.AuditResult, error) {
	var parsed struct {
		Categories map[string]struct {
			Score *float64 `json:"score"`
		} `json:"categories"`
	}
	if err := json.Unmarshal(report, &parsed); err != nil {
		return nil, fmt.Errorf("parse audit report: %w", err)
	}
	if parsed.Categories == nil {
		return nil, errors.New("audit report missing categories")
	}

	scores := make(map[string]float64, len(auditCategories))
	for _, category := range auditCategories {
		entry, ok := parsed.Categories[category]
		if !ok || entry.Score == nil {
			return nil, fmt.Errorf("audit report missing score for category %q", category)
		}
		scores[category] = *entry.Score
	}

	return &models.AuditResult{
		Performance:   scores["performance"],
		SEO:           scores["seo"],
		Accessibility: scores["accessibility"],
		BestPractices: scores["best-practices"],
	}, nil
}

// RemoteAuditRunner offloads audits to a browser-rendering API endpoint.
type RemoteAuditRunner struct {
	sem      chan struct{}
	client   *http.Client
	endpoint string
	logger   arbor.ILogger
}

func NewRemoteAuditRunner(maxConcurrent int, apiBaseURL string, logger arbor.ILogger) *RemoteAuditRunner {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &RemoteAuditRunner{
		sem:      make(chan struct{}, maxConcurrent),
		client:   &http.Client{Timeout: auditTimeout},
		endpoint: strings.TrimRight(apiBaseURL, "/") + "/api/browser/audit",
		logger:   logger,
	}
}

func (r *RemoteAuditRunner) Run(ctx context.Context, pageURL string) (*models.AuditResult, error) {
	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	body, err := json.Marshal(map[string]string{"url": pageURL})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build audit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("audit request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("audit API returned status %d", resp.StatusCode)
	}

	var envelope struct {
		Data *models.AuditResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("parse audit response: %w", err)
	}
	if envelope.Data == nil {
		return nil, errors.New("audit response missing data")
	}

	return envelope.Data, nil
}
