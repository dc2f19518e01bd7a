package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

// priceRegex matches the first numeric run, thousands separators included.
// A run may open with a decimal point, as in "$.99".
var priceRegex = regexp.MustCompile(`\.?\d[\d.,]*`)

// ParsePrice extracts the first amount from price text such as "$1,234.56"
// or "$12.00 to $20.00". A minus sign ahead of the amount, with only
// currency marks and spaces between, makes it negative ("-$5.00" is -5).
// Returns 0 when nothing parseable is found.
func ParsePrice(text string) float64 {
	loc := priceRegex.FindStringIndex(text)
	if loc == nil {
		return 0
	}
	match := strings.ReplaceAll(text[loc[0]:loc[1]], ",", "")
	if strings.HasPrefix(match, ".") {
		match = "0" + match
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	if strings.HasSuffix(strings.TrimRight(text[:loc[0]], " $€£"), "-") {
		return -value
	}
	return value
}

// CanonicalURL drops everything from the first '?' on, which strips the
// tracking parameters the marketplace appends to item links.
func CanonicalURL(href string) string {
	href = strings.TrimSpace(href)
	if i := strings.IndexByte(href, '?'); i >= 0 {
		return href[:i]
	}
	return href
}

// NormalizeImageURL turns protocol-relative URLs into https ones.
func NormalizeImageURL(src string) string {
	src = strings.TrimSpace(src)
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	return src
}
