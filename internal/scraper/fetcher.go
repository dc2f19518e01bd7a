package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"golang.org/x/time/rate"
)

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultTimeout   = 30 * time.Second
	defaultMinDelay  = 1 * time.Second
	defaultMaxDelay  = 3 * time.Second
)

// browserHeaders are sent on every request next to the user agent.
var browserHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Upgrade-Insecure-Requests": "1",
}

// FetchReason classifies a failed fetch.
type FetchReason string

const (
	ReasonBadStatus FetchReason = "bad_status"
	ReasonTransport FetchReason = "transport"
)

// FetchError is returned by Fetch for any unsuccessful request.
type FetchError struct {
	Reason FetchReason
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Reason == ReasonBadStatus {
		return fmt.Sprintf("fetch %s: bad status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FetcherOptions tunes request pacing. Zero values select the defaults.
type FetcherOptions struct {
	UserAgent string
	Timeout   time.Duration
	// MinDelay and MaxDelay bound the random pause before each request.
	// Both zero selects 1-3s; a negative MaxDelay disables the pause.
	MinDelay time.Duration
	MaxDelay time.Duration
	// RequestsPerSecond caps the request rate across all concurrent fetches.
	// Zero disables the cap.
	RequestsPerSecond float64
	Burst             int
}

// Fetcher downloads search result pages with a browser-like signature.
// Safe for concurrent use: every call builds its own collector.
type Fetcher struct {
	opts      FetcherOptions
	limiter   *rate.Limiter
	transport http.RoundTripper
	logger    *slog.Logger
}

// NewFetcher constructs a Fetcher.
func NewFetcher(opts FetcherOptions, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	switch {
	case opts.MaxDelay < 0:
		opts.MinDelay, opts.MaxDelay = 0, 0
	case opts.MinDelay == 0 && opts.MaxDelay == 0:
		opts.MinDelay, opts.MaxDelay = defaultMinDelay, defaultMaxDelay
	}
	opts.MinDelay = max(opts.MinDelay, 0)
	if opts.MaxDelay < opts.MinDelay {
		opts.MaxDelay = opts.MinDelay
	}

	f := &Fetcher{
		opts:      opts,
		transport: http.DefaultTransport,
		logger:    logger.With("component", "fetcher"),
	}
	if opts.RequestsPerSecond > 0 {
		burst := max(opts.Burst, 1)
		f.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return f
}

// Fetch waits a random delay, then GETs pageURL and returns the body.
// Any status other than 200 yields a FetchError with ReasonBadStatus.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	if err := f.pause(ctx); err != nil {
		return "", &FetchError{Reason: ReasonTransport, URL: pageURL, Err: err}
	}
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", &FetchError{Reason: ReasonTransport, URL: pageURL, Err: err}
		}
	}

	c := colly.NewCollector(
		colly.UserAgent(f.opts.UserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(f.opts.Timeout)
	c.WithTransport(ctxTransport{ctx: ctx, base: f.transport})

	var (
		body   string
		status int
	)
	c.OnRequest(func(r *colly.Request) {
		for k, v := range browserHeaders {
			r.Headers.Set(k, v)
		}
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = string(r.Body)
	})
	c.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	err := c.Visit(pageURL)
	if status != 0 && status != http.StatusOK {
		f.logger.Warn("unexpected status", "url", pageURL, "status", status)
		return "", &FetchError{Reason: ReasonBadStatus, URL: pageURL, Status: status, Err: err}
	}
	if err != nil {
		return "", &FetchError{Reason: ReasonTransport, URL: pageURL, Err: err}
	}
	if status == 0 {
		return "", &FetchError{Reason: ReasonTransport, URL: pageURL, Err: errors.New("no response")}
	}
	return body, nil
}

// pause sleeps for a uniform random duration in [MinDelay, MaxDelay].
func (f *Fetcher) pause(ctx context.Context) error {
	d := f.opts.MinDelay
	if spread := f.opts.MaxDelay - f.opts.MinDelay; spread > 0 {
		d += time.Duration(rand.Int64N(int64(spread) + 1))
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ctxTransport binds every outgoing request to ctx so that cancelling the
// caller aborts the collector's in-flight request.
type ctxTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t ctxTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}
