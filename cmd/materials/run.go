package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/aluiziolira/go-scrape-materials/config"
	"github.com/aluiziolira/go-scrape-materials/models"
	"github.com/aluiziolira/go-scrape-materials/pipeline"
	"github.com/aluiziolira/go-scrape-materials/scraper"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const pushJob = "materials_scraper"

func buildConfig(opts *options) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if opts.sitesFile != "" {
		sites, err := config.LoadSites(opts.sitesFile)
		if err != nil {
			return nil, err
		}
		cfg.Sites = sites
	}
	cfg.JSONFile = opts.jsonFile
	cfg.CSVFile = opts.csvFile
	cfg.Timeout = opts.timeout
	cfg.UserAgent = opts.userAgent
	cfg.RespectRobotsTxt = opts.respectRobots
	cfg.FailOnEmpty = opts.failOnEmpty
	cfg.Verbose = opts.verbose
	cfg.MetricsAddr = opts.metricsAddr
	cfg.PushgatewayURL = opts.pushgatewayURL
	return cfg, nil
}

func run(ctx context.Context, opts *options) error {
	cfg, err := buildConfig(opts)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		return &exitError{code: exitFailure, err: err}
	}

	s, err := scraper.NewScraper(cfg)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		return &exitError{code: exitFailure, err: err}
	}

	stopMetrics := serveMetrics(cfg.MetricsAddr, s.Metrics)
	defer stopMetrics()

	slog.Info("starting scrape",
		slog.Int("sites", len(cfg.Sites)),
		slog.String("json", cfg.JSONFile),
		slog.String("csv", cfg.CSVFile),
	)

	writer := pipeline.NewDualWriter(cfg.CSVFile, cfg.JSONFile)
	p := pipeline.NewPipeline(writer)

	result, runErr := s.Run(ctx, p)
	if runErr != nil {
		slog.Error("scrape stopped early; writing partial results", slog.Any("error", runErr))
	}

	writeErr := p.Close()
	if writeErr != nil {
		slog.Error("writing outputs failed", slog.Any("error", writeErr))
	} else if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		writeErr = err
	}

	if cfg.PushgatewayURL != "" {
		if err := s.Metrics.Push(cfg.PushgatewayURL, pushJob); err != nil {
			slog.Warn("pushing metrics failed", slog.Any("error", err))
		}
	}

	printSummary(os.Stdout, result, p.Result(), p.Stats())

	switch {
	case writeErr != nil:
		return &exitError{code: exitFailure, err: writeErr}
	case runErr != nil:
		return &exitError{code: exitFailure, err: runErr}
	case cfg.FailOnEmpty && result.NoSiteSucceeded():
		return &exitError{code: exitEmpty, err: errors.New("no site could be fetched")}
	}

	fmt.Fprintf(os.Stdout, "Data successfully saved to %s and %s\n", cfg.JSONFile, cfg.CSVFile)
	return nil
}

// serveMetrics exposes the scraper registry on addr for the duration of the
// run. The returned func shuts the server down.
func serveMetrics(addr string, metrics *scraper.Metrics) func() {
	if addr == "" || metrics == nil {
		return func() {}
	}

	server := &http.Server{
		Addr:    addr,
		Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
}

func printSummary(w io.Writer, result *models.ScraperResult, rs models.ResultSet, stats pipeline.Stats) {
	if result == nil {
		return
	}

	type key struct{ shop, material string }
	counts := make(map[key]int)
	var order []key
	for _, m := range rs.Records {
		k := key{m.Shop, m.Material}
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Shop", "Material", "Records"})
	for _, k := range order {
		t.AppendRow(table.Row{k.shop, k.material, counts[k]})
	}
	t.AppendFooter(table.Row{"", "Total", rs.Count()})
	t.SetStyle(table.StyleRounded)
	t.Render()

	run := table.NewWriter()
	run.SetOutputMirror(w)
	run.AppendRows([]table.Row{
		{"Sites fetched", fmt.Sprintf("%d/%d", result.SucceededSites, result.SiteCount)},
		{"Errors", result.ErrorCount},
		{"Mismatched pages", result.MismatchCount},
		{"Dropped records", totalValidation(stats.ValidationErrors)},
		{"Duration", result.EndTime.Sub(result.StartTime).Round(time.Millisecond)},
	})
	if len(result.ErrorsByType) > 0 {
		labels := make([]string, 0, len(result.ErrorsByType))
		for label := range result.ErrorsByType {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			run.AppendRow(table.Row{"  " + label, result.ErrorsByType[label]})
		}
	}
	for _, url := range result.FailedURLs {
		run.AppendRow(table.Row{"Failed", url})
	}
	run.SetStyle(table.StyleRounded)
	run.Render()
}

func totalValidation(byKind map[string]int) int {
	total := 0
	for _, n := range byKind {
		total += n
	}
	return total
}
