// Package deals implements the pure filtering and scoring rules applied to
// every extracted listing.
package deals

import (
	"strings"

	"sneakerbot/deal-sniper/internal/model"
)

// Reason is a stable identifier for a filter outcome.
type Reason string

const (
	ReasonPass            Reason = "PASS"
	ReasonPriceOutOfRange Reason = "PRICE_OUT_OF_RANGE"
	ReasonNoIncludeMatch  Reason = "NO_INCLUDE_MATCH"
	ReasonExcludeMatch    Reason = "EXCLUDE_MATCH"
)

// FilterConfig is a read-only snapshot of the filter rules.
type FilterConfig struct {
	MinPrice        float64
	MaxPrice        float64
	IncludeKeywords []string
	ExcludeKeywords []string
}

// Passes evaluates the rules in order and stops at the first failure:
// price range (inclusive), include keywords, exclude keywords.
func Passes(l model.Listing, cfg FilterConfig) (bool, Reason) {
	if l.Price < cfg.MinPrice || l.Price > cfg.MaxPrice {
		return false, ReasonPriceOutOfRange
	}

	title := strings.ToLower(l.Title)
	if len(cfg.IncludeKeywords) > 0 && !ContainsAny(title, cfg.IncludeKeywords) {
		return false, ReasonNoIncludeMatch
	}
	if len(cfg.ExcludeKeywords) > 0 && ContainsAny(title, cfg.ExcludeKeywords) {
		return false, ReasonExcludeMatch
	}
	return true, ReasonPass
}

// ContainsAny returns true if any keyword appears (case-insensitive) in text.
// Empty keywords never match.
func ContainsAny(text string, keywords []string) bool {
	if len(keywords) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
