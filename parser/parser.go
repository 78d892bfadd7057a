package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-materials/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ValidateMaterial ensures a record satisfies the admission filter.
func ValidateMaterial(m *models.Material) error {
	if m == nil {
		return fmt.Errorf("material is nil")
	}
	if strings.TrimSpace(m.Shop) == "" {
		return fmt.Errorf("material missing shop")
	}
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("material missing title")
	}
	if !MatchesKeyword(m.Title, m.Material) {
		return fmt.Errorf("title %q does not contain %q", m.Title, m.Material)
	}
	return nil
}

// NormalizeText trims and collapses internal whitespace.
func NormalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// MatchesKeyword reports whether title contains keyword as a
// case-insensitive substring. Accents are significant. An empty keyword
// never matches.
func MatchesKeyword(title, keyword string) bool {
	needle := FoldText(keyword)
	if needle == "" {
		return false
	}
	return strings.Contains(FoldText(title), needle)
}

// FoldText returns the comparison form of text: whitespace collapsed and
// lower-cased.
func FoldText(text string) string {
	text = NormalizeText(text)
	if text == "" {
		return ""
	}
	return cases.Lower(language.Und).String(text)
}

// StockStatus returns the trimmed stock text when it contains one of the
// out-of-stock phrases and "" otherwise.
func StockStatus(text string, phrases []string) string {
	text = NormalizeText(text)
	if text == "" {
		return ""
	}
	folded := FoldText(text)
	for _, phrase := range phrases {
		p := FoldText(phrase)
		if p != "" && strings.Contains(folded, p) {
			return text
		}
	}
	return ""
}
