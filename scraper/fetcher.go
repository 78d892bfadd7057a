package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aluiziolira/go-scrape-materials/config"
	"github.com/gocolly/colly/v2"
)

const (
	ctxBody   = "body"
	ctxStatus = "status"
)

// Fetcher retrieves the raw HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// CollyFetcher issues a single GET per call through a synchronous colly
// collector.
type CollyFetcher struct {
	collector *colly.Collector
	metrics   *Metrics
}

// NewCollyFetcher builds a fetcher configured from cfg.
func NewCollyFetcher(cfg *config.Config, metrics *Metrics) *CollyFetcher {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	if cfg.Timeout > 0 {
		collector.SetRequestTimeout(cfg.Timeout)
	}
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	// Every response reaches OnResponse; Fetch decides success by status.
	collector.ParseHTTPErrorResponse = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	collector.OnResponse(func(r *colly.Response) {
		r.Ctx.Put(ctxStatus, r.StatusCode)
		r.Ctx.Put(ctxBody, r.Body)
	})

	return &CollyFetcher{
		collector: collector,
		metrics:   metrics,
	}
}

// Fetch returns the page body of a 2xx response. Network failures and other
// statuses are logged and returned as classified errors.
func (f *CollyFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reqCtx := colly.NewContext()
	start := time.Now()
	err := f.collector.Request(http.MethodGet, url, nil, reqCtx, nil)
	f.metrics.ObserveDuration(time.Since(start))

	status, _ := reqCtx.GetAny(ctxStatus).(int)
	if err == nil && (status < http.StatusOK || status >= http.StatusMultipleChoices) {
		err = errors.New(http.StatusText(status))
	}
	if err != nil {
		return nil, f.fail(url, status, err)
	}

	body, ok := reqCtx.GetAny(ctxBody).([]byte)
	if !ok {
		f.metrics.IncRequest("failed")
		f.metrics.IncError("other")
		return nil, fmt.Errorf("fetch %s: response body missing", url)
	}

	f.metrics.IncRequest("succeeded")
	slog.Debug("page fetched", slog.String("url", url), slog.Int("status", status), slog.Int("bytes", len(body)))
	return body, nil
}

func (f *CollyFetcher) fail(url string, status int, err error) error {
	classified := classifyError(err, status)
	category := ErrorLabel(classified)

	slog.Error("request error",
		slog.String("url", url),
		slog.Int("status", status),
		slog.String("category", category),
		slog.Any("error", err),
	)
	f.metrics.IncRequest("failed")
	f.metrics.IncError(category)
	return fmt.Errorf("fetch %s: %w", url, classified)
}
