package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
)

// Selectors are the CSS selectors of the four element families a listing
// page exposes. Families are correlated by position, not by DOM nesting.
type Selectors struct {
	Title    string `json:"title,omitempty"`
	Price    string `json:"price,omitempty"`
	Discount string `json:"discount,omitempty"`
	Stock    string `json:"stock,omitempty"`
}

// Merge fills empty selectors from defaults.
func (s Selectors) Merge(defaults Selectors) Selectors {
	if s.Title == "" {
		s.Title = defaults.Title
	}
	if s.Price == "" {
		s.Price = defaults.Price
	}
	if s.Discount == "" {
		s.Discount = defaults.Discount
	}
	if s.Stock == "" {
		s.Stock = defaults.Stock
	}
	return s
}

// SiteConfig is one tracked listing page.
type SiteConfig struct {
	Shop      string    `json:"shop"`
	URL       string    `json:"url"`
	Material  string    `json:"material"`
	Selectors Selectors `json:"selectors,omitempty"`
}

// Config holds scraper configuration.
type Config struct {
	Sites             []SiteConfig
	Selectors         Selectors
	OutOfStockPhrases []string
	JSONFile          string
	CSVFile           string
	Timeout           time.Duration // 0 keeps the HTTP client default
	UserAgent         string
	RespectRobotsTxt  bool
	FailOnEmpty       bool
	Verbose           bool
	MetricsAddr       string
	PushgatewayURL    string
}

// DefaultSelectors matches PrestaShop listing pages.
func DefaultSelectors() Selectors {
	return Selectors{
		Title:    ".product-title, .product-name",
		Price:    ".product-price-and-shipping",
		Discount: ".discount-percentage",
		Stock:    ".product-availability",
	}
}

// DefaultConfig returns defaults for the compiled-in site table.
func DefaultConfig() *Config {
	return &Config{
		Sites:             DefaultSites(),
		Selectors:         DefaultSelectors(),
		OutOfStockPhrases: []string{"sin stock", "agotado"},
		JSONFile:          "materials.json",
		CSVFile:           "materials.csv",
		Timeout:           0,
		UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Verbose:           false,
		RespectRobotsTxt:  false,
	}
}

// SelectorsFor returns the effective selectors of a site.
func (c *Config) SelectorsFor(site SiteConfig) Selectors {
	return site.Selectors.Merge(c.Selectors)
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if len(c.Sites) == 0 {
		return fmt.Errorf("site table cannot be empty")
	}
	for i, site := range c.Sites {
		if err := c.validateSite(site); err != nil {
			return fmt.Errorf("site %d (%s): %w", i, site.Shop, err)
		}
	}

	if len(c.OutOfStockPhrases) == 0 {
		return fmt.Errorf("out of stock phrases cannot be empty")
	}
	for _, phrase := range c.OutOfStockPhrases {
		if strings.TrimSpace(phrase) == "" {
			return fmt.Errorf("out of stock phrases cannot contain blanks")
		}
	}
	if c.JSONFile == "" {
		return fmt.Errorf("json output file cannot be empty")
	}
	if c.CSVFile == "" {
		return fmt.Errorf("csv output file cannot be empty")
	}
	if c.JSONFile == c.CSVFile {
		return fmt.Errorf("json and csv output files must differ")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.PushgatewayURL != "" {
		if _, err := parseHostURL(c.PushgatewayURL); err != nil {
			return fmt.Errorf("pushgateway URL: %w", err)
		}
	}

	return nil
}

func (c *Config) validateSite(site SiteConfig) error {
	if strings.TrimSpace(site.Shop) == "" {
		return fmt.Errorf("shop cannot be empty")
	}
	if strings.TrimSpace(site.Material) == "" {
		return fmt.Errorf("material keyword cannot be empty")
	}
	if site.URL == "" {
		return fmt.Errorf("page URL cannot be empty")
	}
	if _, err := parseHostURL(site.URL); err != nil {
		return fmt.Errorf("page URL: %w", err)
	}

	sel := c.SelectorsFor(site)
	if sel.Title == "" || sel.Price == "" {
		return fmt.Errorf("title and price selectors are required")
	}
	if sel.Discount == "" || sel.Stock == "" {
		return fmt.Errorf("discount and stock selectors are required")
	}
	for _, selector := range []string{sel.Title, sel.Price, sel.Discount, sel.Stock} {
		if _, err := cascadia.Compile(selector); err != nil {
			return fmt.Errorf("invalid selector %q: %w", selector, err)
		}
	}
	return nil
}

func parseHostURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("URL must use http or https")
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("URL must include a host")
	}
	return parsed, nil
}
