package parser

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-materials/config"
	"github.com/aluiziolira/go-scrape-materials/models"
	"github.com/google/go-cmp/cmp"
)

type listing struct {
	title    string
	price    string
	discount string
	stock    string
}

func buildListingPage(items []listing) string {
	var builder strings.Builder
	builder.WriteString("<html><body><div id=\"js-product-list\">")
	for _, item := range items {
		builder.WriteString("<article class=\"product-miniature\">")
		fmt.Fprintf(&builder, "<h2 class=\"h3 product-title\"><a href=\"#\">%s</a></h2>", item.title)
		fmt.Fprintf(&builder, "<div class=\"product-price-and-shipping\">\n  <span class=\"price\">%s</span>\n</div>", item.price)
		fmt.Fprintf(&builder, "<span class=\"discount-percentage\">%s</span>", item.discount)
		fmt.Fprintf(&builder, "<span class=\"product-availability\">%s</span>", item.stock)
		builder.WriteString("</article>")
	}
	builder.WriteString("</div></body></html>")
	return builder.String()
}

func mustParse(t *testing.T, html string) Document {
	t.Helper()
	doc, err := ParseDocument([]byte(html))
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return doc
}

var cementSite = config.SiteConfig{
	Shop:     "Sagosa",
	URL:      "https://www.sagosa.com.ar/2665-cemento",
	Material: "cemento",
}

func TestExtractKeepsMatchingTitlesInOrder(t *testing.T) {
	doc := mustParse(t, buildListingPage([]listing{
		{title: "Cemento Loma Negra", price: "$ 9.500", discount: "-10%", stock: "Sin stock"},
		{title: "Hierro 8mm", price: "$ 7.200", discount: "", stock: "Disponible"},
		{title: "Cemento Avellaneda", price: "$ 9.100", discount: "-5%", stock: "Disponible"},
	}))

	x := NewExtractor("19/10/2026", []string{"sin stock", "agotado"})
	got := x.Extract(doc, cementSite, config.DefaultSelectors())

	want := []models.Material{
		{Shop: "Sagosa", Date: "19/10/2026", Material: "cemento", Title: "Cemento Loma Negra", Price: "$ 9.500", Discount: "-10%", Stock: "Sin stock"},
		{Shop: "Sagosa", Date: "19/10/2026", Material: "cemento", Title: "Cemento Avellaneda", Price: "$ 9.100", Discount: "-5%", Stock: ""},
	}
	if diff := cmp.Diff(want, got.Materials); diff != "" {
		t.Fatalf("materials mismatch (-want +got):\n%s", diff)
	}
	if got.Mismatch() {
		t.Fatalf("families are aligned, mismatch should be false: %+v", got)
	}
	for _, m := range got.Materials {
		if err := ValidateMaterial(&m); err != nil {
			t.Fatalf("extracted record fails admission filter: %v", err)
		}
	}
}

func TestExtractTitleFamilyUnion(t *testing.T) {
	html := `<html><body>
<p class="product-name">Cemento Holcim</p><p class="product-price-and-shipping">$ 1</p>
<h2 class="product-title">Cemento Minetti</h2><p class="product-price-and-shipping">$ 2</p>
</body></html>`

	x := NewExtractor("19/10/2026", []string{"sin stock"})
	got := x.Extract(mustParse(t, html), cementSite, config.DefaultSelectors())

	if len(got.Materials) != 2 {
		t.Fatalf("materials=%d, want 2", len(got.Materials))
	}
	if got.Materials[0].Title != "Cemento Holcim" || got.Materials[0].Price != "$ 1" {
		t.Fatalf("first record = %+v", got.Materials[0])
	}
	if got.Materials[1].Title != "Cemento Minetti" || got.Materials[1].Price != "$ 2" {
		t.Fatalf("second record = %+v", got.Materials[1])
	}
	if got.Materials[0].Discount != "" || got.Materials[0].Stock != "" {
		t.Fatalf("missing families should yield empty strings, got %+v", got.Materials[0])
	}
	if !got.Mismatch() {
		t.Fatalf("missing discount/stock families should be reported as mismatch")
	}
}

func TestExtractTruncatesToShorterTitlePriceFamily(t *testing.T) {
	html := `<html><body>
<h2 class="product-title">Cemento A</h2>
<h2 class="product-title">Cemento B</h2>
<h2 class="product-title">Cemento C</h2>
<div class="product-price-and-shipping">$ 1</div>
<div class="product-price-and-shipping">$ 2</div>
</body></html>`

	x := NewExtractor("19/10/2026", []string{"sin stock"})
	got := x.Extract(mustParse(t, html), cementSite, config.DefaultSelectors())

	if len(got.Materials) != 2 {
		t.Fatalf("materials=%d, want 2", len(got.Materials))
	}
	if got.Titles != 3 || got.Prices != 2 {
		t.Fatalf("cardinalities = %d/%d, want 3/2", got.Titles, got.Prices)
	}
	if !got.Mismatch() {
		t.Fatalf("expected mismatch")
	}
}

func TestExtractNoMatchesIsEmpty(t *testing.T) {
	tests := []struct {
		name string
		html string
		sel  config.Selectors
	}{
		{
			name: "unrelated page",
			html: "<html><body><p>Mantenimiento</p></body></html>",
			sel:  config.DefaultSelectors(),
		},
		{
			name: "no keyword match",
			html: buildListingPage([]listing{{title: "Hierro 8mm", price: "$ 1"}}),
			sel:  config.DefaultSelectors(),
		},
		{
			name: "invalid selector",
			html: buildListingPage([]listing{{title: "Cemento", price: "$ 1"}}),
			sel:  config.Selectors{Title: "h2[", Price: ".product-price-and-shipping", Discount: ".x", Stock: ".y"},
		},
	}

	x := NewExtractor("19/10/2026", []string{"sin stock"})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := x.Extract(mustParse(t, tt.html), cementSite, tt.sel)
			if len(got.Materials) != 0 {
				t.Fatalf("materials=%d, want 0", len(got.Materials))
			}
		})
	}

	if got := x.Extract(nil, cementSite, config.DefaultSelectors()); len(got.Materials) != 0 {
		t.Fatalf("nil document should extract nothing")
	}
}

func TestExtractAccentsAreSignificant(t *testing.T) {
	doc := mustParse(t, buildListingPage([]listing{
		{title: "Bolsón de arena", price: "$ 45.000"},
		{title: "BOLSON de piedra", price: "$ 30.000"},
	}))
	site := config.SiteConfig{Shop: "Sagosa", URL: "https://www.sagosa.com.ar/2646-aridos", Material: "bolson"}

	x := NewExtractor("19/10/2026", []string{"sin stock"})
	got := x.Extract(doc, site, config.DefaultSelectors())

	if len(got.Materials) != 1 {
		t.Fatalf("materials=%d, want 1: %+v", len(got.Materials), got.Materials)
	}
	for _, m := range got.Materials {
		if !strings.Contains(strings.ToLower(m.Title), strings.ToLower(m.Material)) {
			t.Fatalf("admitted %q for keyword %q", m.Title, m.Material)
		}
	}
	if got.Materials[0].Title != "BOLSON de piedra" {
		t.Fatalf("title = %q, want BOLSON de piedra", got.Materials[0].Title)
	}
}

func TestExtractStockPolicy(t *testing.T) {
	doc := mustParse(t, buildListingPage([]listing{
		{title: "Cemento 1", price: "$ 1", stock: "Sin stock"},
		{title: "Cemento 2", price: "$ 2", stock: "Agotado"},
		{title: "Cemento 3", price: "$ 3", stock: "En stock"},
		{title: "Cemento 4", price: "$ 4", stock: ""},
	}))

	x := NewExtractor("19/10/2026", []string{"sin stock", "agotado"})
	got := x.Extract(doc, cementSite, config.DefaultSelectors())

	var stocks []string
	for _, m := range got.Materials {
		stocks = append(stocks, m.Stock)
	}
	want := []string{"Sin stock", "Agotado", "", ""}
	if diff := cmp.Diff(want, stocks); diff != "" {
		t.Fatalf("stock values (-want +got):\n%s", diff)
	}
}

func TestFormatDate(t *testing.T) {
	loc := time.FixedZone("ART", -3*60*60)
	morning := time.Date(2026, time.March, 7, 8, 0, 0, 0, loc)
	evening := time.Date(2026, time.March, 7, 23, 59, 0, 0, loc)

	if got := FormatDate(morning); got != "07/03/2026" {
		t.Fatalf("FormatDate = %q, want 07/03/2026", got)
	}
	if FormatDate(morning) != FormatDate(evening) {
		t.Fatalf("same calendar day should format identically")
	}
	if FormatDate(evening) == FormatDate(evening.Add(time.Minute)) {
		t.Fatalf("next day should format differently")
	}
}
