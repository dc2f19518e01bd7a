package deals_test

import (
	"reflect"
	"testing"

	"sneakerbot/deal-sniper/internal/deals"
)

// ── Score ──────────────────────────────────────────────────────────────────

func TestScore_BaseBands(t *testing.T) {
	cfg := deals.ScoreConfig{Bands: deals.DefaultBands(), FloorScore: 2}
	cases := []struct {
		price float64
		want  int
	}{
		{10, 10},
		{59.99, 10},
		{60, 9},
		{79.99, 9},
		{80, 8},
		{99.99, 8},
		{100, 7},
		{120, 6},
		{140, 5},
		{160, 4},
		{180, 3},
		{199.99, 3},
		{200, 2},
		{5000, 2},
	}
	for _, c := range cases {
		if got := deals.Score(c.price, "plain shoe", cfg); got != c.want {
			t.Errorf("Score(%.2f) = %d, want %d", c.price, got, c.want)
		}
	}
}

func TestScore_JordanRetroClampedToTen(t *testing.T) {
	got := deals.Score(95.00, "Air Jordan 1 Retro High OG", deals.DefaultScoreConfig())
	if got != 10 {
		t.Errorf("Score = %d, want 10 (8 base + jordan1 + retro, clamped)", got)
	}
}

func TestScore_Bonuses(t *testing.T) {
	cfg := deals.DefaultScoreConfig()
	cases := []struct {
		title string
		want  int
	}{
		{"Nike Dunk Low Panda", 3},        // dunk
		{"Nike SB Dunk Retro", 4},         // dunk + retro
		{"Nike Air Force 1 Off White", 4}, // collab
		{"AJ1 Travis Scott Retro", 6},     // jordan1 + collab + retro
		{"Adidas Samba", 2},
	}
	for _, c := range cases {
		if got := deals.Score(250, c.title, cfg); got != c.want {
			t.Errorf("Score(250, %q) = %d, want %d", c.title, got, c.want)
		}
	}
}

// Monotonically non-increasing in price and always in [0, 10].
func TestScore_MonotonicAndBounded(t *testing.T) {
	titles := []string{"", "Air Jordan 1 Retro Fragment Dunk Low", "random"}
	for _, title := range titles {
		prev := deals.MaxScore + 1
		for cents := 0; cents <= 30000; cents += 250 {
			price := float64(cents) / 100
			got := deals.Score(price, title, deals.DefaultScoreConfig())
			if got < 0 || got > deals.MaxScore {
				t.Fatalf("Score(%.2f, %q) = %d out of range", price, title, got)
			}
			if got > prev {
				t.Fatalf("Score(%.2f, %q) = %d increased from %d", price, title, got, prev)
			}
			prev = got
		}
	}
}

func TestScore_NegativeFloorClampedToZero(t *testing.T) {
	cfg := deals.ScoreConfig{Bands: []deals.Band{{Below: 10, Score: 1}}, FloorScore: -5}
	if got := deals.Score(50, "x", cfg); got != 0 {
		t.Errorf("Score = %d, want 0", got)
	}
}

func TestScore_EmptyConfigUsesDefaultBands(t *testing.T) {
	if got := deals.Score(95, "x", deals.ScoreConfig{}); got != 8 {
		t.Errorf("Score = %d, want 8", got)
	}
}

// ── Tier / Highlights ──────────────────────────────────────────────────────

func TestTier(t *testing.T) {
	thresholds := map[string]float64{"excellent": 80, "good": 120, "fair": 160, "poor": 200}
	cases := []struct {
		price float64
		want  string
	}{
		{50, "excellent"},
		{80, "good"},
		{150, "fair"},
		{199, "poor"},
		{250, deals.TierOver},
	}
	for _, c := range cases {
		if got := deals.Tier(c.price, thresholds); got != c.want {
			t.Errorf("Tier(%.2f) = %q, want %q", c.price, got, c.want)
		}
	}
	if got := deals.Tier(50, nil); got != "" {
		t.Errorf("Tier with no thresholds = %q, want empty", got)
	}
}

func TestHighlights(t *testing.T) {
	got := deals.Highlights("Air Jordan 1 Retro Chicago DS", []string{"retro", "chicago", "fragment", ""})
	want := []string{"retro", "chicago"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Highlights = %v, want %v", got, want)
	}
}
