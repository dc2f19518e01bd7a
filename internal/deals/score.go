package deals

import (
	"sort"
	"strings"
)

// MaxScore caps every deal score.
const MaxScore = 10

// Band maps prices strictly below Below to Score.
type Band struct {
	Below float64
	Score int
}

// BonusRule adds Points when the lower-cased title contains any of Tokens.
type BonusRule struct {
	Name   string
	Tokens []string
	Points int
}

// ScoreConfig is a read-only snapshot of the scoring rules.
type ScoreConfig struct {
	Bands      []Band // ascending by Below
	FloorScore int    // prices at or above the last band
	Bonuses    []BonusRule

	// PriceThresholds and BonusKeywords only feed Tier and Highlights.
	PriceThresholds map[string]float64
	BonusKeywords   []string
}

// DefaultBands are the fixed price bands: cheaper is better.
func DefaultBands() []Band {
	return []Band{
		{Below: 60, Score: 10},
		{Below: 80, Score: 9},
		{Below: 100, Score: 8},
		{Below: 120, Score: 7},
		{Below: 140, Score: 6},
		{Below: 160, Score: 5},
		{Below: 180, Score: 4},
		{Below: 200, Score: 3},
	}
}

// DefaultBonuses are the model-family bonuses.
func DefaultBonuses() []BonusRule {
	return []BonusRule{
		{Name: "jordan1", Tokens: []string{"jordan 1", "aj1", "air jordan 1"}, Points: 1},
		{Name: "dunk", Tokens: []string{"dunk low", "dunk high", "sb dunk"}, Points: 1},
		{Name: "retro", Tokens: []string{"retro"}, Points: 1},
		{Name: "collab", Tokens: []string{"off white", "travis scott", "fragment"}, Points: 2},
	}
}

// DefaultScoreConfig returns the bands and bonuses with a floor of 2.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		Bands:      DefaultBands(),
		FloorScore: 2,
		Bonuses:    DefaultBonuses(),
	}
}

// Score computes a deal score in [0, MaxScore] from the price band and the
// title bonuses. A config without bands uses DefaultBands.
func Score(price float64, title string, cfg ScoreConfig) int {
	bands := cfg.Bands
	floor := cfg.FloorScore
	if len(bands) == 0 {
		bands = DefaultBands()
		floor = 2
	}

	score := floor
	for _, b := range bands {
		if price < b.Below {
			score = b.Score
			break
		}
	}

	lower := strings.ToLower(title)
	for _, bonus := range cfg.Bonuses {
		if ContainsAny(lower, bonus.Tokens) {
			score += bonus.Points
		}
	}

	return clamp(score, 0, MaxScore)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

// TierOver is returned by Tier when the price is above every threshold.
const TierOver = "over"

// Tier names the lowest threshold ceiling the price is strictly under.
// Returns "" when no thresholds are configured.
func Tier(price float64, thresholds map[string]float64) string {
	if len(thresholds) == 0 {
		return ""
	}
	names := make([]string, 0, len(thresholds))
	for name := range thresholds {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if thresholds[names[i]] == thresholds[names[j]] {
			return names[i] < names[j]
		}
		return thresholds[names[i]] < thresholds[names[j]]
	})
	for _, name := range names {
		if price < thresholds[name] {
			return name
		}
	}
	return TierOver
}

// Highlights returns the configured keywords found in title, in config order.
func Highlights(title string, keywords []string) []string {
	var found []string
	for _, kw := range keywords {
		if kw != "" && ContainsAny(title, []string{kw}) {
			found = append(found, kw)
		}
	}
	return found
}
