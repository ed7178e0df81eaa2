package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scout/internal/models"
)

type redirectChainKey struct{}

// Fetcher issues rate-limited HTTP GETs with a shared pooled client.
// Retries are the caller's policy; the page pipeline records errors and
// advances.
type Fetcher struct {
	client  *http.Client
	limiter *HostLimiter
	logger  arbor.ILogger
}

// NewFetcher creates a fetcher for one job. rateLimitMs is the per-host
// request interval; timeout applies per request.
func NewFetcher(rateLimitMs int, timeout time.Duration, userAgent string, logger arbor.ILogger) *Fetcher {
	transport := &http.Transport{
		MaxIdleConnsPerHost: 20,
	}

	client := &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("stopped after 10 redirects")
			}
			if chain, ok := req.Context().Value(redirectChainKey{}).(*[]models.RedirectHop); ok {
				prev := via[len(via)-1]
				status := 0
				if req.Response != nil {
					status = req.Response.StatusCode
				}
				*chain = append(*chain, models.RedirectHop{
					URL:        prev.URL.String(),
					StatusCode: status,
				})
			}
			req.Header.Set("User-Agent", userAgent)
			return nil
		},
	}

	return &Fetcher{
		client:  client,
		limiter: NewHostLimiter(rateLimitMs),
		logger:  logger,
	}
}

// userAgent is carried on the first request; redirects re-apply it in
// CheckRedirect. Stored here for request construction.
func (f *Fetcher) newRequest(ctx context.Context, rawURL, userAgent string, chain *[]models.RedirectHop) (*http.Request, error) {
	ctx = context.WithValue(ctx, redirectChainKey{}, chain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

// Fetch GETs a URL after the host's rate limiter grants a token.
func (f *Fetcher) Fetch(ctx context.Context, rawURL, userAgent string) (*models.FetchResult, error) {
	// Host includes the port so local deployments on one IP keep
	// independent buckets.
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = strings.ToLower(u.Host)
	}

	if err := f.limiter.Wait(ctx, host); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	var chain []models.RedirectHop
	req, err := f.newRequest(ctx, rawURL, userAgent, &chain)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	headers := make(map[string]string, len(resp.Header))
	for name, values := range resp.Header {
		if len(values) > 0 {
			headers[strings.ToLower(name)] = values[0]
		}
	}

	return &models.FetchResult{
		StatusCode:    resp.StatusCode,
		Body:          string(body),
		Headers:       headers,
		FinalURL:      resp.Request.URL.String(),
		RedirectChain: chain,
	}, nil
}
