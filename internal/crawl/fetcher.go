package crawl

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"
)

const (
	DefaultFetchTimeout  = 15 * time.Second
	DefaultBodyByteLimit = 2 * 1024 * 1024

	defaultUserAgent = "ShowpipeBot/1.0 (+https://cardscout.app)"
)

// ErrDisallowed marks a source whose robots.txt forbids our user agent.
var ErrDisallowed = fmt.Errorf("fetch disallowed by robots.txt")

// Fetcher retrieves a source page and reduces it to readable text.
type Fetcher interface {
	FetchText(ctx context.Context, sourceAddress string) (string, error)
}

// FetcherOptions controls HTTP behavior for source page fetching.
type FetcherOptions struct {
	Timeout       time.Duration
	BodyByteLimit int64
	UserAgent     string
	RatePerSec    float64
	HTTPClient    *http.Client
}

// PageFetcher fetches source pages with per-host rate limiting and
// robots.txt checks, then strips boilerplate down to article text.
type PageFetcher struct {
	client        *http.Client
	userAgent     string
	timeout       time.Duration
	bodyByteLimit int64

	limiters   map[string]*rate.Limiter
	limitersMu sync.Mutex
	ratePerSec rate.Limit

	robots   map[string]*robotstxt.RobotsData
	robotsMu sync.RWMutex
}

func NewPageFetcher(opts FetcherOptions) *PageFetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	bodyLimit := opts.BodyByteLimit
	if bodyLimit <= 0 {
		bodyLimit = DefaultBodyByteLimit
	}

	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	ratePerSec := opts.RatePerSec
	if ratePerSec <= 0 {
		ratePerSec = 1
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &PageFetcher{
		client:        client,
		userAgent:     userAgent,
		timeout:       timeout,
		bodyByteLimit: bodyLimit,
		limiters:      make(map[string]*rate.Limiter),
		ratePerSec:    rate.Limit(ratePerSec),
		robots:        make(map[string]*robotstxt.RobotsData),
	}
}

// FetchText retrieves the page at sourceAddress and extracts readable text.
func (f *PageFetcher) FetchText(ctx context.Context, sourceAddress string) (string, error) {
	page := strings.TrimSpace(sourceAddress)
	if page == "" {
		return "", fmt.Errorf("source address is required")
	}

	pageURL, err := url.Parse(page)
	if err != nil {
		return "", fmt.Errorf("parse source address: %w", err)
	}
	if pageURL.Scheme != "http" && pageURL.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", pageURL.Scheme)
	}

	if err := f.waitForHost(ctx, pageURL.Host); err != nil {
		return "", err
	}

	allowed, err := f.robotsAllow(ctx, pageURL)
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", ErrDisallowed
	}

	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, page, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.bodyByteLimit))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	contentType := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Type")))
	if strings.HasPrefix(contentType, "text/plain") {
		return CleanText(string(body)), nil
	}

	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return "", fmt.Errorf("readability parse: %w", err)
	}

	var renderedText bytes.Buffer
	if err := article.RenderText(&renderedText); err != nil {
		return "", fmt.Errorf("render readability text: %w", err)
	}

	text := CleanText(renderedText.String())
	if text == "" {
		text = CleanText(article.Excerpt())
	}
	if text == "" {
		return "", fmt.Errorf("extracted empty content")
	}

	return text, nil
}

func (f *PageFetcher) waitForHost(ctx context.Context, host string) error {
	f.limitersMu.Lock()
	limiter, ok := f.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(f.ratePerSec, 1)
		f.limiters[host] = limiter
	}
	f.limitersMu.Unlock()

	return limiter.Wait(ctx)
}

func (f *PageFetcher) robotsAllow(ctx context.Context, pageURL *url.URL) (bool, error) {
	data, err := f.robotsData(ctx, pageURL)
	if err != nil {
		// Unreachable robots.txt is treated as permissive.
		return true, nil
	}

	path := pageURL.Path
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, robotsProduct(f.userAgent)), nil
}

func (f *PageFetcher) robotsData(ctx context.Context, pageURL *url.URL) (*robotstxt.RobotsData, error) {
	f.robotsMu.RLock()
	data, ok := f.robots[pageURL.Host]
	f.robotsMu.RUnlock()
	if ok {
		return data, nil
	}

	robotsURL := fmt.Sprintf("%s://%s/robots.txt", pageURL.Scheme, pageURL.Host)

	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	data, err = robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	f.robotsMu.Lock()
	f.robots[pageURL.Host] = data
	f.robotsMu.Unlock()

	return data, nil
}

// robotsProduct reduces a full user-agent string to the product token
// robots.txt group matching expects.
func robotsProduct(userAgent string) string {
	fields := strings.Fields(userAgent)
	if len(fields) == 0 {
		return userAgent
	}
	return strings.Split(fields[0], "/")[0]
}

// CleanText normalizes line endings and collapses extra in-line whitespace.
func CleanText(raw string) string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	lines := strings.Split(normalized, "\n")
	paragraphs := make([]string, 0, len(lines))
	for _, line := range lines {
		clean := strings.Join(strings.Fields(strings.TrimSpace(line)), " ")
		if clean == "" {
			continue
		}
		paragraphs = append(paragraphs, clean)
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}
