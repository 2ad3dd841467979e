package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/pauljones0/property-scanner/internal/models"
	"github.com/pauljones0/property-scanner/internal/util"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxBodyBytes     = 10 << 20
)

// FetcherConfig tunes the shared HTTP client.
type FetcherConfig struct {
	Timeout           time.Duration
	MaxRetries        int
	RetryBase         time.Duration
	RequestsPerSecond float64
	UserAgent         string
	ChromePath        string
}

// Fetcher is the HTTP client shared by every adapter. It keeps cookies per
// site, rate limits per host and retries transient failures.
type Fetcher struct {
	httpClient *http.Client
	renderer   Renderer
	cfg        FetcherConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewFetcher builds a Fetcher. Zero config fields fall back to defaults.
func NewFetcher(cfg FetcherConfig) (*Fetcher, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
		renderer: NewChromeRenderer(cfg.ChromePath, cfg.UserAgent),
		cfg:      cfg,
		limiters: make(map[string]*rate.Limiter),
	}, nil
}

// WithRenderer replaces the headless browser used for rendered fetches.
func (f *Fetcher) WithRenderer(r Renderer) *Fetcher {
	f.renderer = r
	return f
}

func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[host]
	if !ok {
		limit := rate.Inf
		if f.cfg.RequestsPerSecond > 0 {
			limit = rate.Limit(f.cfg.RequestsPerSecond)
		}
		l = rate.NewLimiter(limit, 1)
		f.limiters[host] = l
	}
	return l
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("unexpected status %d", e.code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

func retryable(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// Get fetches rawURL, retrying network errors, 429 and 5xx with exponential
// backoff. Any failure is returned as *models.FetchError.
func (f *Fetcher) Get(ctx context.Context, source models.Source, rawURL string) (*Payload, error) {
	parsedURL, err := validateURL(rawURL)
	if err != nil {
		return nil, &models.FetchError{Source: source, URL: rawURL, Err: err}
	}

	var body []byte
	err = util.Retry(ctx, f.cfg.MaxRetries, f.cfg.RetryBase, func(attempt int) error {
		if attempt > 0 {
			slog.Warn("Retrying fetch", "source", source, "url", rawURL, "attempt", attempt)
		}
		b, err := f.do(ctx, parsedURL)
		if err != nil {
			var se *statusError
			if errors.As(err, &se) && !retryable(se.code) {
				return util.Permanent(err)
			}
			if ctx.Err() != nil {
				return util.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		fe := &models.FetchError{Source: source, URL: rawURL, Err: err}
		var se *statusError
		if errors.As(err, &se) {
			fe.StatusCode = se.code
		}
		return nil, fe
	}

	return &Payload{URL: rawURL, Body: body, FetchedAt: time.Now()}, nil
}

func (f *Fetcher) do(ctx context.Context, u *url.URL) ([]byte, error) {
	if err := f.limiter(u.Host).Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.9")
	req.Header.Set("Referer", u.Scheme+"://"+u.Host+"/")

	res, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 256))
		return nil, &statusError{code: res.StatusCode, body: strings.TrimSpace(string(snippet))}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, errors.New("empty response body")
	}
	return body, nil
}

// Warm visits a site's homepage so later requests carry its session
// cookies. Failures are logged and ignored.
func (f *Fetcher) Warm(ctx context.Context, homepage string) {
	u, err := validateURL(homepage)
	if err != nil {
		return
	}
	if _, err := f.do(ctx, u); err != nil {
		slog.Debug("Homepage warm-up failed", "url", homepage, "error", err)
	}
}

// Render loads rawURL in a headless browser and returns the resulting DOM.
func (f *Fetcher) Render(ctx context.Context, source models.Source, rawURL string) (*Payload, error) {
	if _, err := validateURL(rawURL); err != nil {
		return nil, &models.FetchError{Source: source, URL: rawURL, Err: err}
	}
	html, err := f.renderer.Render(ctx, rawURL)
	if err != nil {
		return nil, &models.FetchError{Source: source, URL: rawURL, Err: fmt.Errorf("render: %w", err)}
	}
	if strings.TrimSpace(html) == "" {
		return nil, &models.FetchError{Source: source, URL: rawURL, Err: errors.New("empty rendered document")}
	}
	return &Payload{URL: rawURL, Body: []byte(html), FetchedAt: time.Now()}, nil
}

// fetch picks a plain or rendered request depending on the site params.
func (f *Fetcher) fetch(ctx context.Context, source models.Source, site models.SiteConfig, rawURL string) (*Payload, error) {
	if paramString(site.Params, "render", "") == "chrome" {
		return f.Render(ctx, source, rawURL)
	}
	return f.Get(ctx, source, rawURL)
}

func validateURL(rawURL string) (*url.URL, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %s: %w", rawURL, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL scheme %q: only http and https allowed", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return nil, fmt.Errorf("URL %s has no host", rawURL)
	}
	return parsedURL, nil
}
