package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"sneakerbot/deal-sniper/internal/deals"
)

// ErrInvalidSettings is returned when the settings file fails validation.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings mirrors the JSON settings file.
type Settings struct {
	Scraping    ScrapingSettings `json:"scraping"`
	Filters     FilterSettings   `json:"filters"`
	DealScoring ScoringSettings  `json:"deal_scoring"`
}

type ScrapingSettings struct {
	SearchTerms          []string `json:"search_terms"`
	CheckIntervalMinutes int      `json:"check_interval_minutes"`
	MaxListingsPerSearch int      `json:"max_listings_per_search"`
}

type FilterSettings struct {
	MinPrice        float64  `json:"min_price"`
	MaxPrice        float64  `json:"max_price"`
	IncludeKeywords []string `json:"include_keywords"`
	ExcludeKeywords []string `json:"exclude_keywords"`
}

type ScoringSettings struct {
	PriceThresholds map[string]float64 `json:"price_thresholds"`
	BonusKeywords   []string           `json:"bonus_keywords"`
}

// DefaultSettings returns the settings written to a fresh settings file.
func DefaultSettings() Settings {
	return Settings{
		Scraping: ScrapingSettings{
			SearchTerms:          []string{"Jordan 1", "Nike Dunk", "Adidas"},
			CheckIntervalMinutes: 3,
			MaxListingsPerSearch: 20,
		},
		Filters: FilterSettings{
			MinPrice: 50,
			MaxPrice: 300,
			IncludeKeywords: []string{
				"Jordan 1", "AJ1", "Air Jordan 1",
				"Nike Dunk", "Dunk Low", "Dunk High", "SB Dunk",
			},
			ExcludeKeywords: []string{
				"kids", "youth", "toddler", "infant", "baby",
				"replica", "fake", "custom", "damaged", "broken",
				"used", "worn", "beat", "beater",
			},
		},
		DealScoring: ScoringSettings{
			PriceThresholds: map[string]float64{
				"excellent": 80,
				"good":      120,
				"fair":      160,
				"poor":      200,
			},
			BonusKeywords: []string{
				"retro", "og", "original", "deadstock", "ds",
				"off white", "travis scott", "fragment", "chicago",
			},
		},
	}
}

// ParseSettings decodes data over the defaults, so absent keys keep their
// default values. A present price_thresholds object replaces the default map.
func ParseSettings(data []byte) (Settings, error) {
	s := DefaultSettings()
	s.DealScoring.PriceThresholds = nil
	if err := json.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if s.DealScoring.PriceThresholds == nil {
		s.DealScoring.PriceThresholds = DefaultSettings().DealScoring.PriceThresholds
	}
	return s, nil
}

// Issues lists every problem with s; empty means valid.
func (s Settings) Issues() []string {
	var issues []string
	if s.Filters.MinPrice >= s.Filters.MaxPrice {
		issues = append(issues, "min price must be less than max price")
	}
	if s.Filters.MinPrice < 0 {
		issues = append(issues, "min price cannot be negative")
	}
	if len(s.Scraping.SearchTerms) == 0 {
		issues = append(issues, "no search terms configured")
	}
	if s.Scraping.CheckIntervalMinutes < 1 {
		issues = append(issues, "check interval must be at least 1 minute")
	}
	if s.Scraping.MaxListingsPerSearch <= 0 {
		issues = append(issues, "max listings per search must be positive")
	}
	return issues
}

// Validate wraps Issues in ErrInvalidSettings.
func (s Settings) Validate() error {
	if issues := s.Issues(); len(issues) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(issues, "; "))
	}
	return nil
}

// Interval is the check interval as a duration.
func (s Settings) Interval() time.Duration {
	return time.Duration(s.Scraping.CheckIntervalMinutes) * time.Minute
}

// FilterConfig converts the filter section.
func (s Settings) FilterConfig() deals.FilterConfig {
	return deals.FilterConfig{
		MinPrice:        s.Filters.MinPrice,
		MaxPrice:        s.Filters.MaxPrice,
		IncludeKeywords: slices.Clone(s.Filters.IncludeKeywords),
		ExcludeKeywords: slices.Clone(s.Filters.ExcludeKeywords),
	}
}

// ScoreConfig returns the fixed bands and bonuses plus the tier thresholds
// and highlight keywords from the scoring section.
func (s Settings) ScoreConfig() deals.ScoreConfig {
	cfg := deals.DefaultScoreConfig()
	cfg.PriceThresholds = maps.Clone(s.DealScoring.PriceThresholds)
	cfg.BonusKeywords = slices.Clone(s.DealScoring.BonusKeywords)
	return cfg
}

func (s Settings) clone() Settings {
	c := s
	c.Scraping.SearchTerms = slices.Clone(s.Scraping.SearchTerms)
	c.Filters.IncludeKeywords = slices.Clone(s.Filters.IncludeKeywords)
	c.Filters.ExcludeKeywords = slices.Clone(s.Filters.ExcludeKeywords)
	c.DealScoring.PriceThresholds = maps.Clone(s.DealScoring.PriceThresholds)
	c.DealScoring.BonusKeywords = slices.Clone(s.DealScoring.BonusKeywords)
	return c
}

// SettingsFile serves snapshots of a settings file, re-reading it when its
// modification time changes.
type SettingsFile struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	modTime time.Time
	current Settings
}

// OpenSettings loads path, creating it with DefaultSettings when missing.
// The initial contents must be valid.
func OpenSettings(path string, logger *slog.Logger) (*SettingsFile, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f := &SettingsFile{path: path, logger: logger.With("component", "settings")}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := WriteSettings(path, DefaultSettings()); err != nil {
			return nil, err
		}
		f.logger.Info("created default settings file", "path", path)
	}

	s, modTime, err := f.read()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.current, f.modTime = s, modTime
	return f, nil
}

// WriteSettings writes s as indented JSON.
func WriteSettings(path string, s Settings) error {
	data, err := json.MarshalIndent(s, "", "    ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Snapshot returns the current settings. A changed file is reloaded; an
// unreadable or invalid one is logged and the last good settings are kept.
func (f *SettingsFile) Snapshot() Settings {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, err := os.Stat(f.path)
	if err != nil {
		f.logger.Warn("stat settings failed, keeping last good copy", "err", err)
		return f.current.clone()
	}
	if info.ModTime().Equal(f.modTime) {
		return f.current.clone()
	}

	s, modTime, err := f.read()
	if err == nil {
		err = s.Validate()
	}
	if err != nil {
		f.logger.Warn("settings reload rejected, keeping last good copy", "err", err)
		f.modTime = info.ModTime()
		return f.current.clone()
	}

	f.current, f.modTime = s, modTime
	f.logger.Info("settings reloaded", "terms", len(s.Scraping.SearchTerms))
	return f.current.clone()
}

func (f *SettingsFile) read() (Settings, time.Time, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return Settings{}, time.Time{}, fmt.Errorf("stat settings: %w", err)
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return Settings{}, time.Time{}, fmt.Errorf("read settings: %w", err)
	}
	s, err := ParseSettings(data)
	if err != nil {
		return Settings{}, time.Time{}, err
	}
	return s, info.ModTime(), nil
}
