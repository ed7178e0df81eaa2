package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scout/internal/models"
)

const renderTimeout = 15 * time.Second

// renderOutput is the JSON contract shared by the render script and the
// remote browser endpoint.
type renderOutput struct {
	Links []models.RenderedLink `json:"links"`
	Error string                `json:"error"`
}

func parseRenderOutput(output []byte) ([]models.RenderedLink, error) {
	var parsed renderOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		return nil, fmt.Errorf("parse renderer output: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("renderer script reported error: %s", parsed.Error)
	}
	return parsed.Links, nil
}

// ScriptRenderRunner shells out to a Node script that loads the page in
// headless Chromium and prints discovered anchors as JSON on stdout.
type ScriptRenderRunner struct {
	sem        chan struct{}
	scriptPath string
	logger     arbor.ILogger
}

func NewScriptRenderRunner(maxConcurrent int, scriptPath string, logger arbor.ILogger) *ScriptRenderRunner {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &ScriptRenderRunner{
		sem:        make(chan struct{}, maxConcurrent),
		scriptPath: scriptPath,
		logger:     logger,
	}
}

func (r *ScriptRenderRunner) Render(ctx context.Context, pageURL string) ([]models.RenderedLink, error) {
	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	runCtx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()

	output, err := exec.CommandContext(runCtx, "node", r.scriptPath, pageURL).Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, errors.New("node runtime not found")
		}
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("render timed out after %s", renderTimeout)
		}
		return nil, fmt.Errorf("render process failed: %w", err)
	}

	return parseRenderOutput(output)
}

// extractAnchorsJS collects every anchor on the rendered page, including
// ones injected by client-side scripts after load.
const extractAnchorsJS = `Array.from(document.querySelectorAll('a[href]')).map(a => ({
	url: a.href,
	anchor_text: (a.textContent || '').trim(),
	rel: a.getAttribute('rel') || ''
}))`

// ChromeRenderRunner drives a pooled headless browser directly instead of
// spawning a subprocess per page.
type ChromeRenderRunner struct {
	pool   *BrowserPool
	sem    chan struct{}
	logger arbor.ILogger
}

func NewChromeRenderRunner(pool *BrowserPool, maxConcurrent int, logger arbor.ILogger) *ChromeRenderRunner {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &ChromeRenderRunner{
		pool:   pool,
		sem:    make(chan struct{}, maxConcurrent),
		logger: logger,
	}
}

func (r *ChromeRenderRunner) Render(ctx context.Context, pageURL string) ([]models.RenderedLink, error) {
	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	browserCtx, release, err := r.pool.GetBrowser()
	if err != nil {
		return nil, fmt.Errorf("acquire browser: %w", err)
	}
	defer release()

	pageCtx, cancel := context.WithTimeout(browserCtx, renderTimeout)
	defer cancel()

	var links []models.RenderedLink
	err = chromedp.Run(pageCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(2*time.Second),
		chromedp.Evaluate(extractAnchorsJS, &links),
	)
	if err != nil {
		return nil, fmt.Errorf("render failed: %w", err)
	}

	r.logger.Debug().
		Str("url", pageURL).
		Int("links", len(links)).
		Msg("Rendered page in headless browser")

	return links, nil
}
