package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-materials/config"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

const (
	exitFailure = 1
	exitEmpty   = 2
)

// exitError carries the process exit status out of RunE.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

type options struct {
	sitesFile      string
	jsonFile       string
	csvFile        string
	timeout        time.Duration
	userAgent      string
	respectRobots  bool
	failOnEmpty    bool
	verbose        bool
	metricsAddr    string
	pushgatewayURL string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := execute(ctx)
	stop()
	if err == nil {
		return
	}

	var ee *exitError
	if errors.As(err, &ee) {
		os.Exit(ee.code)
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(exitFailure)
}

func execute(ctx context.Context) error {
	opts, err := optionsFromEnv(config.DefaultConfig())
	if err != nil {
		return err
	}
	return newRootCmd(opts).ExecuteContext(ctx)
}

// optionsFromEnv seeds flag defaults from MATERIALS_* variables.
func optionsFromEnv(defaults *config.Config) (*options, error) {
	opts := &options{
		jsonFile:       defaults.JSONFile,
		csvFile:        defaults.CSVFile,
		timeout:        defaults.Timeout,
		userAgent:      defaults.UserAgent,
		respectRobots:  defaults.RespectRobotsTxt,
		failOnEmpty:    defaults.FailOnEmpty,
		metricsAddr:    defaults.MetricsAddr,
		pushgatewayURL: defaults.PushgatewayURL,
	}

	stringVars := map[string]*string{
		"MATERIALS_SITES":        &opts.sitesFile,
		"MATERIALS_JSON":         &opts.jsonFile,
		"MATERIALS_CSV":          &opts.csvFile,
		"MATERIALS_USER_AGENT":   &opts.userAgent,
		"MATERIALS_METRICS_ADDR": &opts.metricsAddr,
		"MATERIALS_PUSHGATEWAY":  &opts.pushgatewayURL,
	}
	for key, dst := range stringVars {
		if value, ok := config.EnvString(key); ok {
			*dst = value
		}
	}

	boolVars := map[string]*bool{
		"MATERIALS_RESPECT_ROBOTS": &opts.respectRobots,
		"MATERIALS_FAIL_ON_EMPTY":  &opts.failOnEmpty,
		"MATERIALS_VERBOSE":        &opts.verbose,
	}
	for key, dst := range boolVars {
		value, ok, err := config.EnvBool(key)
		if err != nil {
			return nil, fmt.Errorf("invalid environment: %w", err)
		}
		if ok {
			*dst = value
		}
	}

	if value, ok, err := config.EnvDuration("MATERIALS_TIMEOUT"); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	} else if ok {
		opts.timeout = value
	}

	return opts, nil
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "materials",
		Short: "materials scrapes construction material prices into JSON and CSV.",
		Long: "materials fetches every configured listing page once, keeps the products whose\n" +
			"title mentions the configured material and writes them to a shop-keyed JSON\n" +
			"document and a flat CSV table.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			slog.SetDefault(newLogger(opts.verbose))
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.sitesFile, "sites", opts.sitesFile, "JSON5 site table replacing the built-in one")
	flags.StringVar(&opts.jsonFile, "json", opts.jsonFile, "JSON output path")
	flags.StringVar(&opts.csvFile, "csv", opts.csvFile, "CSV output path")
	flags.DurationVar(&opts.timeout, "timeout", opts.timeout, "Per-request timeout (0 keeps the client default)")
	flags.StringVar(&opts.userAgent, "user-agent", opts.userAgent, "User-Agent header sent with every request")
	flags.BoolVar(&opts.respectRobots, "respect-robots", opts.respectRobots, "Respect robots.txt directives")
	flags.BoolVar(&opts.failOnEmpty, "fail-on-empty", opts.failOnEmpty, "Exit with status 2 when no site could be fetched")
	flags.BoolVarP(&opts.verbose, "verbose", "v", opts.verbose, "Enable debug logging")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", opts.metricsAddr, "Prometheus metrics listen address (e.g. :9090)")
	flags.StringVar(&opts.pushgatewayURL, "pushgateway", opts.pushgatewayURL, "Pushgateway URL to push run metrics to")

	return cmd
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	if isTerminal(os.Stderr) {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
