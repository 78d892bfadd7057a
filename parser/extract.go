package parser

import (
	"github.com/aluiziolira/go-scrape-materials/config"
	"github.com/aluiziolira/go-scrape-materials/models"
)

// Extraction is the outcome of scanning one page.
type Extraction struct {
	Materials []models.Material

	// Cardinality of each element family.
	Titles    int
	Prices    int
	Discounts int
	Stocks    int
}

// Mismatch reports whether the four families differ in length, which means
// positional pairing may have attached fields to the wrong product.
func (e Extraction) Mismatch() bool {
	return e.Titles != e.Prices || e.Titles != e.Discounts || e.Titles != e.Stocks
}

// Extractor turns listing pages into material records.
type Extractor struct {
	Date              string
	OutOfStockPhrases []string
}

// NewExtractor builds an extractor stamping records with date.
func NewExtractor(date string, outOfStockPhrases []string) *Extractor {
	return &Extractor{
		Date:              date,
		OutOfStockPhrases: outOfStockPhrases,
	}
}

// Extract pairs the i-th title with the i-th price, discount and stock
// element. Pairing stops at the shorter of the title and price families;
// discount and stock families that run short contribute empty strings.
// Titles that do not contain the site keyword are dropped together with
// their positional siblings.
func (x *Extractor) Extract(doc Document, site config.SiteConfig, sel config.Selectors) Extraction {
	if doc == nil {
		return Extraction{}
	}

	titles := doc.QueryAll(sel.Title)
	prices := doc.QueryAll(sel.Price)
	discounts := doc.QueryAll(sel.Discount)
	stocks := doc.QueryAll(sel.Stock)

	result := Extraction{
		Titles:    len(titles),
		Prices:    len(prices),
		Discounts: len(discounts),
		Stocks:    len(stocks),
	}

	n := min(len(titles), len(prices))
	for i := 0; i < n; i++ {
		title := NormalizeText(titles[i].Text())
		if !MatchesKeyword(title, site.Material) {
			continue
		}

		result.Materials = append(result.Materials, models.Material{
			Shop:     site.Shop,
			Date:     x.Date,
			Material: site.Material,
			Title:    title,
			Price:    NormalizeText(prices[i].Text()),
			Discount: textAt(discounts, i),
			Stock:    StockStatus(textAt(stocks, i), x.OutOfStockPhrases),
		})
	}

	return result
}

func textAt(elements []Element, i int) string {
	if i >= len(elements) {
		return ""
	}
	return NormalizeText(elements[i].Text())
}
