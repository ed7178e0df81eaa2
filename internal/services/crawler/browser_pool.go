package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

// BrowserPool manages a fixed set of headless Chromium contexts handed out
// round-robin to render workers.
type BrowserPool struct {
	browsers         []context.Context
	browserCancels   []context.CancelFunc
	allocatorCancels []context.CancelFunc
	mu               sync.Mutex
	size             int
	currentIndex     int
	userAgent        string
	logger           arbor.ILogger
	initialized      bool
}

func NewBrowserPool(size int, userAgent string, logger arbor.ILogger) *BrowserPool {
	if size <= 0 {
		size = 1
	}
	return &BrowserPool{
		size:      size,
		userAgent: userAgent,
		logger:    logger,
	}
}

// Init starts the browser instances. Partial startup is tolerated as long
// as at least one browser comes up.
func (p *BrowserPool) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return fmt.Errorf("browser pool already initialized")
	}

	p.logger.Info().
		Int("pool_size", p.size).
		Str("user_agent", p.userAgent).
		Msg("Initializing browser pool")

	var lastErr error
	for i := 0; i < p.size; i++ {
		if err := p.startBrowser(); err != nil {
			lastErr = err
			p.logger.Warn().Err(err).Int("browser_index", i).Msg("Failed to start browser instance")
		}
	}

	if len(p.browsers) == 0 {
		return fmt.Errorf("failed to start any browser instances: %w", lastErr)
	}
	if len(p.browsers) < p.size {
		p.logger.Warn().
			Int("requested", p.size).
			Int("started", len(p.browsers)).
			Msg("Started fewer browser instances than requested")
	}

	p.initialized = true
	return nil
}

func (p *BrowserPool) startBrowser() error {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(p.userAgent),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	testCtx, testCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer testCancel()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocatorCancel()
		return fmt.Errorf("browser failed startup check: %w", err)
	}

	p.browsers = append(p.browsers, browserCtx)
	p.browserCancels = append(p.browserCancels, browserCancel)
	p.allocatorCancels = append(p.allocatorCancels, allocatorCancel)
	return nil
}

// GetBrowser returns a browser context and a release callback.
func (p *BrowserPool) GetBrowser() (context.Context, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil, nil, fmt.Errorf("browser pool not initialized")
	}
	if len(p.browsers) == 0 {
		return nil, nil, fmt.Errorf("no browser instances available")
	}

	index := p.currentIndex % len(p.browsers)
	p.currentIndex = (p.currentIndex + 1) % len(p.browsers)

	release := func() {
		p.logger.Debug().Int("browser_index", index).Msg("Browser context released")
	}
	return p.browsers[index], release, nil
}

// Shutdown tears down all browser instances.
func (p *BrowserPool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return
	}

	for _, cancel := range p.browserCancels {
		cancel()
	}
	for _, cancel := range p.allocatorCancels {
		cancel()
	}

	p.browsers = nil
	p.browserCancels = nil
	p.allocatorCancels = nil
	p.currentIndex = 0
	p.initialized = false

	p.logger.Info().Msg("Browser pool shut down")
}
