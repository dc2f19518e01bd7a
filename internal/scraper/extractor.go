package scraper

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sneakerbot/deal-sniper/internal/model"
)

// SkipReason explains why an item node produced no listing.
type SkipReason string

const (
	SkipSponsored   SkipReason = "sponsored"
	SkipNoLink      SkipReason = "no_link"
	SkipNoTitle     SkipReason = "no_title"
	SkipPlaceholder SkipReason = "placeholder_title"
	SkipNoHref      SkipReason = "no_href"
	SkipNoPrice     SkipReason = "no_price"
	SkipBadPrice    SkipReason = "bad_price"
	SkipMalformed   SkipReason = "malformed"
)

// ExtractionSkip is the non-fatal, per-item outcome of a rejected node.
type ExtractionSkip struct {
	Reason SkipReason
	Title  string
	URL    string
}

func (s *ExtractionSkip) Error() string {
	return fmt.Sprintf("item skipped (%s): %q %s", s.Reason, s.Title, s.URL)
}

// ItemValidator decides whether a candidate node is a real product row.
// Both checks return "" for valid input.
type ItemValidator interface {
	ValidItem(item *goquery.Selection) SkipReason
	ValidTitle(title string) SkipReason
}

// MarkupValidator rejects promoted rows and the placeholder rows that the
// result page renders in the listing container.
type MarkupValidator struct {
	SponsoredSelector string
	SponsoredMarker   string
	Placeholders      []string
}

// DefaultValidator returns the validator for the current result page markup.
func DefaultValidator() MarkupValidator {
	return MarkupValidator{
		SponsoredSelector: "span.s-item__hl-tag",
		SponsoredMarker:   "SPONSORED",
		Placeholders:      []string{"shop on ebay", "new listing", "newly listed", "sponsored"},
	}
}

func (v MarkupValidator) ValidItem(item *goquery.Selection) SkipReason {
	if v.SponsoredSelector == "" {
		return ""
	}
	tag := item.Find(v.SponsoredSelector).First()
	if tag.Length() > 0 && strings.Contains(strings.ToUpper(strings.TrimSpace(tag.Text())), v.SponsoredMarker) {
		return SkipSponsored
	}
	return ""
}

func (v MarkupValidator) ValidTitle(title string) SkipReason {
	lower := strings.ToLower(strings.TrimSpace(title))
	for _, p := range v.Placeholders {
		if lower == p {
			return SkipPlaceholder
		}
	}
	return ""
}

// Layout describes where each field lives in the result page markup.
// Title and Heading are looked up under the matched Link.
type Layout struct {
	Item      string
	Link      string
	Title     string
	Heading   string
	Price     Chain
	Condition Chain
	Image     Chain
	Validator ItemValidator
}

// DefaultLayout returns selectors for the marketplace's search result list.
func DefaultLayout() Layout {
	return Layout{
		Item:    "li.s-item",
		Link:    "a.s-item__link",
		Title:   "div.s-item__title",
		Heading: "span[role='heading'][aria-level='3']",
		Price: Chain{
			TextOf("span.s-item__price"),
			TextOf("span.s-price-range"),
			TextOf("div.s-item__price"),
		},
		Condition: Chain{
			TextOf("div.s-item__subtitle span.SECONDARY_INFO"),
		},
		Image: Chain{
			AttrOf("div.s-item__image-wrapper img", "src"),
			AttrOf("div.s-item__image img", "src"),
		},
		Validator: DefaultValidator(),
	}
}

// Extractor turns a search result page into listings.
type Extractor struct {
	layout Layout
	logger *slog.Logger
}

// NewExtractor constructs an Extractor for layout.
func NewExtractor(layout Layout, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if layout.Validator == nil {
		layout.Validator = DefaultValidator()
	}
	return &Extractor{layout: layout, logger: logger.With("component", "extractor")}
}

// Extract parses body and returns every valid listing in page order.
// A bad item is logged and skipped; it never aborts the rest of the page.
func (e *Extractor) Extract(body string) ([]model.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var listings []model.Listing
	doc.Find(e.layout.Item).Each(func(i int, item *goquery.Selection) {
		l, skip := e.extractItem(item)
		if skip != nil {
			e.logger.Debug("item skipped", "index", i, "reason", skip.Reason, "title", skip.Title, "url", skip.URL)
			return
		}
		listings = append(listings, l)
	})
	return listings, nil
}

func (e *Extractor) extractItem(item *goquery.Selection) (l model.Listing, skip *ExtractionSkip) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("item extraction panicked", "panic", r)
			skip = &ExtractionSkip{Reason: SkipMalformed, Title: l.Title, URL: l.URL}
		}
	}()

	if reason := e.layout.Validator.ValidItem(item); reason != "" {
		return l, &ExtractionSkip{Reason: reason}
	}

	link := item.Find(e.layout.Link).First()
	if link.Length() == 0 {
		return l, &ExtractionSkip{Reason: SkipNoLink}
	}
	heading := link.Find(e.layout.Title).First().Find(e.layout.Heading).First()
	l.Title = strings.TrimSpace(heading.Text())
	if heading.Length() == 0 || l.Title == "" {
		return l, &ExtractionSkip{Reason: SkipNoTitle}
	}
	if reason := e.layout.Validator.ValidTitle(l.Title); reason != "" {
		return l, &ExtractionSkip{Reason: reason, Title: l.Title}
	}

	href, _ := link.Attr("href")
	l.URL = CanonicalURL(href)
	if l.URL == "" {
		return l, &ExtractionSkip{Reason: SkipNoHref, Title: l.Title}
	}

	priceText, ok := e.layout.Price.First(item)
	if !ok {
		return l, &ExtractionSkip{Reason: SkipNoPrice, Title: l.Title, URL: l.URL}
	}
	l.Price = ParsePrice(priceText)
	if l.Price <= 0 {
		return l, &ExtractionSkip{Reason: SkipBadPrice, Title: l.Title, URL: l.URL}
	}

	l.Condition = model.ConditionUnknown
	if cond, ok := e.layout.Condition.First(item); ok && cond != "" {
		l.Condition = cond
	}

	if src, ok := e.layout.Image.First(item); ok {
		l.ImageURL = NormalizeImageURL(src)
	}

	l.UpperMaterial = InferMaterial(l.Title)
	return l, nil
}
