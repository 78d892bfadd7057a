package parser

import (
	"bytes"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Element is a matched node.
type Element interface {
	Text() string
}

// Document exposes selector queries over a parsed page.
type Document interface {
	// QueryAll returns the matches of selector in document order. An invalid
	// selector matches nothing.
	QueryAll(selector string) []Element
}

type htmlDocument struct {
	doc *goquery.Document
}

type htmlElement struct {
	sel *goquery.Selection
}

func (e htmlElement) Text() string {
	return e.sel.Text()
}

// ParseDocument parses raw HTML.
func ParseDocument(html []byte) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &htmlDocument{doc: doc}, nil
}

func (d *htmlDocument) QueryAll(selector string) []Element {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil
	}

	var out []Element
	d.doc.FindMatcher(matcher).Each(func(_ int, s *goquery.Selection) {
		out = append(out, htmlElement{sel: s})
	})
	return out
}
