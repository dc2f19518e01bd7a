package scraper_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"sneakerbot/deal-sniper/internal/model"
	"sneakerbot/deal-sniper/internal/scraper"
)

// fakeFetcher serves bodies keyed by the _nkw search term.
type fakeFetcher struct {
	pages map[string]string
	fail  map[string]bool
}

func (f *fakeFetcher) Fetch(_ context.Context, pageURL string) (string, error) {
	for term, body := range f.pages {
		if strings.Contains(pageURL, "_nkw="+term+"&") {
			if f.fail[term] {
				return "", &scraper.FetchError{Reason: scraper.ReasonBadStatus, URL: pageURL, Status: 503}
			}
			return body, nil
		}
	}
	return "", errors.New("unexpected url " + pageURL)
}

// fakeExtractor returns the listings registered for a body.
type fakeExtractor map[string][]model.Listing

func (f fakeExtractor) Extract(body string) ([]model.Listing, error) {
	switch body {
	case "garbage":
		return nil, errors.New("parse failed")
	case "boom":
		panic("nil selection")
	}
	return f[body], nil
}

type recordingArchiver struct {
	mu    sync.Mutex
	terms []string
}

func (a *recordingArchiver) Archive(_ context.Context, term, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.terms = append(a.terms, term)
	return nil
}

func lst(title, url string) model.Listing {
	return model.Listing{Title: title, Price: 100, URL: url}
}

func urlsOf(ls []model.Listing) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.URL)
	}
	return out
}

// ── BuildSearchURL ─────────────────────────────────────────────────────────

func TestBuildSearchURL(t *testing.T) {
	got := scraper.BuildSearchURL("https://www.ebay.com/", "Jordan 1 Retro")
	want := "https://www.ebay.com/sch/i.html?_from=R40&_nkw=Jordan+1+Retro&_sacat=15709&_sop=10&_ipg=50&LH_Auction=1&LH_BIN=1&_dcat=15709"
	if got != want {
		t.Errorf("BuildSearchURL =\n%s\nwant\n%s", got, want)
	}
}

// ── Run ────────────────────────────────────────────────────────────────────

func TestRun_DedupesAcrossTerms(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{"jordan": "p1", "dunk": "p2"}}
	ex := fakeExtractor{
		"p1": {lst("Jordan 1 Chicago", "u/shared"), lst("Jordan 4 Bred", "u/a")},
		"p2": {lst("Nike Dunk Low (Jordan colorway)", "u/shared"), lst("Nike Dunk High", "u/b")},
	}
	o := scraper.NewOrchestrator(f, ex, scraper.OrchestratorOptions{}, quietLogger())

	got, err := o.Run(context.Background(), []string{"jordan", "dunk"}, 10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Join(urlsOf(got), ",") != "u/shared,u/a,u/b" {
		t.Errorf("urls = %v, want [u/shared u/a u/b]", urlsOf(got))
	}
	if got[0].Title != "Jordan 1 Chicago" {
		t.Errorf("first occurrence should win, got title %q", got[0].Title)
	}
}

func TestRun_FailedTermDoesNotFailBatch(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]string{"jordan": "p1", "dunk": "p2", "air": "garbage"},
		fail:  map[string]bool{"dunk": true},
	}
	ex := fakeExtractor{"p1": {lst("Jordan 1", "u/1")}}
	o := scraper.NewOrchestrator(f, ex, scraper.OrchestratorOptions{Concurrency: 1}, quietLogger())

	got, err := o.Run(context.Background(), []string{"jordan", "dunk", "air"}, 10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 1 || got[0].URL != "u/1" {
		t.Errorf("got %v, want only u/1", urlsOf(got))
	}
}

func TestRun_PanickingTermDoesNotFailBatch(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{"jordan": "p1", "dunk": "boom"}}
	ex := fakeExtractor{"p1": {lst("Jordan 1", "u/1")}}
	o := scraper.NewOrchestrator(f, ex, scraper.OrchestratorOptions{}, quietLogger())

	got, err := o.Run(context.Background(), []string{"jordan", "dunk"}, 10)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(got) != 1 || got[0].URL != "u/1" {
		t.Errorf("got %v, want only u/1", urlsOf(got))
	}
}

func TestRun_RelevanceAndPerTermLimit(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{"sneakers": "p"}}
	ex := fakeExtractor{"p": {
		lst("Adidas Samba OG", "u/1"),
		lst("Nike Air Max 90", "u/2"),
		lst("New Balance 550", "u/3"),
		lst("AIR JORDAN 3", "u/4"),
		lst("Nike Dunk Low", "u/5"),
	}}
	o := scraper.NewOrchestrator(f, ex, scraper.OrchestratorOptions{}, quietLogger())

	got, _ := o.Run(context.Background(), []string{"sneakers"}, 2)
	if strings.Join(urlsOf(got), ",") != "u/2,u/4" {
		t.Errorf("urls = %v, want [u/2 u/4]", urlsOf(got))
	}
}

func TestRun_ArchivesEmptyPages(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{"jordan": "p1", "dunk": "empty"}}
	ex := fakeExtractor{"p1": {lst("Jordan 1", "u/1")}}
	arch := &recordingArchiver{}
	o := scraper.NewOrchestrator(f, ex, scraper.OrchestratorOptions{Archiver: arch}, quietLogger())

	if _, err := o.Run(context.Background(), []string{"jordan", "dunk"}, 10); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(arch.terms) != 1 || arch.terms[0] != "dunk" {
		t.Errorf("archived terms = %v, want [dunk]", arch.terms)
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := scraper.NewOrchestrator(&fakeFetcher{}, fakeExtractor{}, scraper.OrchestratorOptions{}, quietLogger())
	if _, err := o.Run(ctx, []string{"jordan"}, 10); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
