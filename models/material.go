// Package models defines data structures for the scraper.
package models

import "time"

// Material is one product listing admitted for a shop and keyword.
type Material struct {
	Shop     string `csv:"Shop" json:"-"`
	Date     string `csv:"Date" json:"date"`
	Material string `csv:"Material" json:"material"`
	Title    string `csv:"Title" json:"title"`
	Price    string `csv:"Price" json:"price"`
	Discount string `csv:"Discount" json:"discount"`
	Stock    string `csv:"Stock" json:"stock"`
}

// ShopGroup holds the records of one shop in extraction order.
type ShopGroup struct {
	Shop      string
	Materials []Material
}

// ScraperResult holds the overall result of a scraping run.
type ScraperResult struct {
	StartTime      time.Time
	EndTime        time.Time
	SiteCount      int
	SucceededSites int
	RecordCount    int
	ErrorCount     int
	MismatchCount  int
	FailedURLs     []string
	ErrorsByType   map[string]int
}

// NoSiteSucceeded reports whether every configured page failed to fetch.
func (r *ScraperResult) NoSiteSucceeded() bool {
	return r != nil && r.SiteCount > 0 && r.SucceededSites == 0
}
