package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-materials/config"
	"github.com/aluiziolira/go-scrape-materials/models"
	"github.com/aluiziolira/go-scrape-materials/parser"
	"github.com/aluiziolira/go-scrape-materials/pipeline"
)

// Scraper walks the site table once: fetch, extract, accumulate.
type Scraper struct {
	cfg     *config.Config
	fetcher Fetcher
	now     func() time.Time
	Metrics *Metrics
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	metrics := NewMetrics()
	return &Scraper{
		cfg:     cfg,
		fetcher: NewCollyFetcher(cfg, metrics),
		now:     time.Now,
		Metrics: metrics,
	}, nil
}

// Run processes every site in table order and streams records into p.
// A failed fetch skips its site. Cancelling ctx stops before the next site
// and returns the partial result together with the context error.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.ScraperResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := s.now()
	extractor := parser.NewExtractor(parser.FormatDate(start), s.cfg.OutOfStockPhrases)

	result := &models.ScraperResult{
		StartTime:    start,
		SiteCount:    len(s.cfg.Sites),
		ErrorsByType: make(map[string]int),
	}
	finish := func() *models.ScraperResult {
		result.EndTime = s.now()
		return result
	}

	for i, site := range s.cfg.Sites {
		if err := ctx.Err(); err != nil {
			slog.Warn("run interrupted",
				slog.Int("processed_sites", i),
				slog.Int("remaining_sites", len(s.cfg.Sites)-i),
			)
			return finish(), fmt.Errorf("run interrupted: %w", err)
		}

		logger := slog.With(
			slog.String("shop", site.Shop),
			slog.String("material", site.Material),
			slog.String("url", site.URL),
		)

		body, err := s.fetcher.Fetch(ctx, site.URL)
		if err != nil {
			s.recordFailure(result, site, err)
			continue
		}

		doc, err := parser.ParseDocument(body)
		if err != nil {
			logger.Error("parse page", slog.Any("error", err))
			s.recordFailure(result, site, fmt.Errorf("%w: %w", errParse, err))
			continue
		}

		extraction := extractor.Extract(doc, site, s.cfg.SelectorsFor(site))
		if extraction.Mismatch() {
			result.MismatchCount++
			s.Metrics.IncMismatch(site.Shop)
			logger.Warn("element families differ in length",
				slog.Int("titles", extraction.Titles),
				slog.Int("prices", extraction.Prices),
				slog.Int("discounts", extraction.Discounts),
				slog.Int("stocks", extraction.Stocks),
			)
		}

		if err := p.Process(extraction.Materials...); err != nil {
			return finish(), fmt.Errorf("process %s: %w", site.URL, err)
		}

		result.SucceededSites++
		result.RecordCount += len(extraction.Materials)
		s.Metrics.IncSite("fetched")
		s.Metrics.AddItems(site.Shop, site.Material, len(extraction.Materials))
		if len(extraction.Materials) == 0 {
			logger.Info("no matching listings")
		} else {
			logger.Info("listings extracted", slog.Int("records", len(extraction.Materials)))
		}
	}

	if result.NoSiteSucceeded() {
		slog.Warn("no site could be fetched; outputs will be empty",
			slog.Int("sites", result.SiteCount),
		)
	} else {
		s.Metrics.MarkSuccess(start)
	}

	return finish(), nil
}

func (s *Scraper) recordFailure(result *models.ScraperResult, site config.SiteConfig, err error) {
	category := ErrorLabel(err)
	result.ErrorCount++
	result.ErrorsByType[category]++
	result.FailedURLs = append(result.FailedURLs, site.URL)
	s.Metrics.IncSite("failed")
	if category == "parse" {
		s.Metrics.IncError(category)
	}
}
