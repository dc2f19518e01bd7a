package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy pulls one value out of an item node. ok is false when the
// strategy does not apply to the node and the next one should be tried.
type Strategy func(item *goquery.Selection) (value string, ok bool)

// Chain is an ordered list of strategies; the first that applies wins.
type Chain []Strategy

// First runs the strategies in order and returns the first applicable value.
func (c Chain) First(item *goquery.Selection) (string, bool) {
	for _, s := range c {
		if v, ok := s(item); ok {
			return v, true
		}
	}
	return "", false
}

// TextOf applies when selector matches at least one element, even an empty
// one, and yields the trimmed text of the first match.
func TextOf(selector string) Strategy {
	return func(item *goquery.Selection) (string, bool) {
		sel := item.Find(selector).First()
		if sel.Length() == 0 {
			return "", false
		}
		return strings.TrimSpace(sel.Text()), true
	}
}

// AttrOf applies when the first element matching selector carries a
// non-empty attr.
func AttrOf(selector, attr string) Strategy {
	return func(item *goquery.Selection) (string, bool) {
		v, exists := item.Find(selector).First().Attr(attr)
		v = strings.TrimSpace(v)
		if !exists || v == "" {
			return "", false
		}
		return v, true
	}
}
