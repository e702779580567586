package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-scrape-reviews/config"
)

const (
	ctxKeyContext  = "ctx"
	ctxKeyResponse = "response"
)

// Fetcher issues one GET at a time against the configured site and returns
// parsed documents. Every request is preceded by the politeness delay.
type Fetcher struct {
	base      *url.URL
	collector *colly.Collector
	delay     time.Duration
	markers   []string
	metrics   *Metrics

	requestCount int64
	errorCount   int64

	mu           sync.Mutex
	errorsByType map[string]int
}

// NewFetcher builds a synchronous colly collector restricted to cfg.BaseURL's host.
func NewFetcher(cfg *config.Config, metrics *Metrics) (*Fetcher, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Hostname()),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	markers := make([]string, 0, len(cfg.BlockMarkers))
	for _, marker := range cfg.BlockMarkers {
		markers = append(markers, strings.ToLower(marker))
	}

	f := &Fetcher{
		base:         parsed,
		collector:    collector,
		delay:        cfg.Delay,
		markers:      markers,
		metrics:      metrics,
		errorsByType: make(map[string]int),
	}
	f.configureHandlers()
	return f, nil
}

func (f *Fetcher) configureHandlers() {
	f.collector.OnRequest(func(r *colly.Request) {
		if ctx, ok := r.Ctx.GetAny(ctxKeyContext).(context.Context); ok && ctx.Err() != nil {
			r.Abort()
			return
		}
		atomic.AddInt64(&f.requestCount, 1)
		f.metrics.IncRequest("started")
	})

	f.collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxKeyResponse, r)
	})

	f.collector.OnError(func(r *colly.Response, _ error) {
		if r != nil && r.Ctx != nil {
			r.Ctx.Put(ctxKeyResponse, r)
		}
	})
}

// Fetch waits for the politeness delay, GETs pathOrURL and parses the body.
// Relative paths resolve against the base URL.
func (f *Fetcher) Fetch(ctx context.Context, pathOrURL string) (*goquery.Document, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	target, err := f.resolve(pathOrURL)
	if err != nil {
		return nil, err
	}

	if err := wait(ctx, f.delay); err != nil {
		return nil, err
	}

	cctx := colly.NewContext()
	cctx.Put(ctxKeyContext, ctx)

	start := time.Now()
	reqErr := f.collector.Request(http.MethodGet, target, nil, cctx, nil)
	f.metrics.ObserveDuration(time.Since(start))

	resp, _ := cctx.GetAny(ctxKeyResponse).(*colly.Response)
	if resp == nil && reqErr == nil {
		// Aborted before the request went out.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, f.fail(target, fmt.Errorf("no response for %s", target))
	}

	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	if classified := classifyError(reqErr, statusCode, target); classified != nil {
		return nil, f.fail(target, classified)
	}

	body := bytes.ToLower(resp.Body)
	for _, marker := range f.markers {
		if bytes.Contains(body, []byte(marker)) {
			return nil, f.fail(target, ErrBotDetected{URL: target, Marker: marker})
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, f.fail(target, fmt.Errorf("parse %s: %w", target, err))
	}
	doc.Url = resp.Request.URL
	f.metrics.IncRequest("completed")
	return doc, nil
}

// RequestCount returns the number of requests sent so far.
func (f *Fetcher) RequestCount() int {
	return int(atomic.LoadInt64(&f.requestCount))
}

// ErrorCount returns the number of failed fetches so far.
func (f *Fetcher) ErrorCount() int {
	return int(atomic.LoadInt64(&f.errorCount))
}

// ErrorsByType returns a copy of the failure counts keyed by error label.
func (f *Fetcher) ErrorsByType() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int, len(f.errorsByType))
	for k, v := range f.errorsByType {
		out[k] = v
	}
	return out
}

func (f *Fetcher) resolve(pathOrURL string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(pathOrURL))
	if err != nil {
		return "", fmt.Errorf("parse request url %q: %w", pathOrURL, err)
	}
	return f.base.ResolveReference(ref).String(), nil
}

func (f *Fetcher) fail(target string, err error) error {
	atomic.AddInt64(&f.errorCount, 1)
	category := errorTypeLabel(err)

	f.mu.Lock()
	f.errorsByType[category]++
	f.mu.Unlock()

	f.metrics.IncRequest("failed")
	f.metrics.IncError(category)

	var bot ErrBotDetected
	if errors.As(err, &bot) {
		slog.Error("block page detected", slog.String("url", target), slog.String("marker", bot.Marker))
		return err
	}
	slog.Error("request error",
		slog.String("url", target),
		slog.String("category", category),
		slog.Any("error", err),
	)
	return err
}

// wait sleeps for d unless ctx ends first.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
