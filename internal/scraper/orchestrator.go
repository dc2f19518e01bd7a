package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"sneakerbot/deal-sniper/internal/model"
)

// DefaultBaseURL is the marketplace the search URLs point at.
const DefaultBaseURL = "https://www.ebay.com"

// relevanceTokens gate which titles count toward a term's limit.
var relevanceTokens = []string{"jordan", "nike", "dunk", "air"}

// PageFetcher downloads one page.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// ListingExtractor turns one page into listings.
type ListingExtractor interface {
	Extract(body string) ([]model.Listing, error)
}

// PageArchiver keeps raw pages that parsed cleanly but produced nothing,
// which usually means the markup changed.
type PageArchiver interface {
	Archive(ctx context.Context, term, body string) error
}

// OrchestratorOptions configures an Orchestrator.
type OrchestratorOptions struct {
	BaseURL string
	// Concurrency bounds simultaneous terms; zero runs every term at once.
	Concurrency int
	Archiver    PageArchiver
}

// Orchestrator runs the fetch and extract pipeline for a batch of terms.
type Orchestrator struct {
	fetcher   PageFetcher
	extractor ListingExtractor
	opts      OrchestratorOptions
	logger    *slog.Logger
}

// NewOrchestrator constructs an Orchestrator.
func NewOrchestrator(fetcher PageFetcher, extractor ListingExtractor, opts OrchestratorOptions, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Orchestrator{
		fetcher:   fetcher,
		extractor: extractor,
		opts:      opts,
		logger:    logger.With("component", "orchestrator"),
	}
}

// BuildSearchURL returns the newest-first sneaker category search for term,
// auctions and fixed-price listings included, 50 per page.
func BuildSearchURL(baseURL, term string) string {
	return fmt.Sprintf(
		"%s/sch/i.html?_from=R40&_nkw=%s&_sacat=15709&_sop=10&_ipg=50&LH_Auction=1&LH_BIN=1&_dcat=15709",
		strings.TrimRight(baseURL, "/"), url.QueryEscape(strings.TrimSpace(term)),
	)
}

// Run searches every term concurrently and returns the merged listings,
// unique by URL with the first occurrence kept. A failed term contributes
// nothing and never fails the batch; Run only errors when ctx is already done.
func (o *Orchestrator) Run(ctx context.Context, terms []string, perTermLimit int) ([]model.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([][]model.Listing, len(terms))
	g, gctx := errgroup.WithContext(ctx)
	if o.opts.Concurrency > 0 {
		g.SetLimit(o.opts.Concurrency)
	}
	for i, term := range terms {
		g.Go(func() error {
			// A panicking term contributes nothing; errgroup does not carry
			// panics back to Wait.
			defer func() {
				if r := recover(); r != nil {
					o.logger.Error("search panicked", "term", term, "panic", r)
				}
			}()
			results[i] = o.searchTerm(gctx, term, perTermLimit)
			return nil
		})
	}
	_ = g.Wait()

	seen := make(map[string]struct{})
	var merged []model.Listing
	for _, batch := range results {
		for _, l := range batch {
			if _, dup := seen[l.URL]; dup {
				continue
			}
			seen[l.URL] = struct{}{}
			merged = append(merged, l)
		}
	}
	return merged, nil
}

func (o *Orchestrator) searchTerm(ctx context.Context, term string, limit int) []model.Listing {
	pageURL := BuildSearchURL(o.opts.BaseURL, term)
	log := o.logger.With("term", term)

	body, err := o.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		log.Warn("search failed", "err", err)
		return nil
	}

	found, err := o.extractor.Extract(body)
	if err != nil {
		log.Warn("extraction failed", "err", err)
		return nil
	}
	if len(found) == 0 {
		log.Warn("page yielded no listings", "bytes", len(body))
		o.archive(ctx, term, body)
		return nil
	}

	var kept []model.Listing
	for _, l := range found {
		if limit > 0 && len(kept) >= limit {
			break
		}
		if !isRelevant(l.Title) {
			continue
		}
		kept = append(kept, l)
	}
	log.Info("search done", "found", len(found), "kept", len(kept))
	return kept
}

func (o *Orchestrator) archive(ctx context.Context, term, body string) {
	if o.opts.Archiver == nil {
		return
	}
	if err := o.opts.Archiver.Archive(ctx, term, body); err != nil {
		o.logger.Warn("archive page failed", "term", term, "err", err)
	}
}

func isRelevant(title string) bool {
	lower := strings.ToLower(title)
	for _, tok := range relevanceTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}
