// Package scheduler drives the poll loop: every cycle searches all configured
// terms, runs each new listing through filter, score and the dedup store, and
// hands qualifying deals to the notifier. A failed cycle is logged and followed
// by a cooldown; it never stops the loop.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"sneakerbot/deal-sniper/internal/config"
	"sneakerbot/deal-sniper/internal/deals"
	"sneakerbot/deal-sniper/internal/model"
	"sneakerbot/deal-sniper/internal/notify"
	"sneakerbot/deal-sniper/internal/store"
)

const (
	defaultCooldown    = 60 * time.Second
	defaultEvictEvery  = 10
	defaultRetention   = 7 * 24 * time.Hour
	defaultNotifyDelay = time.Second
)

// Searcher runs one batch of searches.
type Searcher interface {
	Run(ctx context.Context, terms []string, perTermLimit int) ([]model.Listing, error)
}

// SettingsSource yields the settings for the next cycle.
type SettingsSource interface {
	Snapshot() config.Settings
}

// Options tunes the loop. Zero values select the defaults.
type Options struct {
	// Schedule computes cycle start times. Nil uses the settings' check
	// interval, re-read every cycle.
	Schedule cron.Schedule
	// Overrun is config.OverrunImmediate or config.OverrunSkip.
	Overrun    string
	Cooldown   time.Duration
	EvictEvery int
	Retention  time.Duration
	// NotifyDelay separates successive deliveries; negative disables it.
	NotifyDelay time.Duration
	Now         func() time.Time
}

// CycleError is the aggregate failure of one cycle.
type CycleError struct {
	State State
	Err   error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle failed while %s: %v", e.State, e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }

// CycleReport summarizes one cycle.
type CycleReport struct {
	Started      time.Time
	Duration     time.Duration
	Fetched      int
	AlreadySeen  int
	Rejected     map[deals.Reason]int
	Notified     int
	RecordErrors int
	NotifyErrors int
	Evicted      int64
}

// LogValue renders the report as a log group.
func (r CycleReport) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Duration("duration", r.Duration),
		slog.Int("fetched", r.Fetched),
		slog.Int("already_seen", r.AlreadySeen),
		slog.Int("rejected", r.RejectedTotal()),
		slog.Int("notified", r.Notified),
		slog.Int("record_errors", r.RecordErrors),
		slog.Int("notify_errors", r.NotifyErrors),
		slog.Int64("evicted", r.Evicted),
	)
}

// Scheduler owns the poll loop. Cycles never overlap.
type Scheduler struct {
	searcher Searcher
	store    store.Store
	notifier notify.Notifier
	settings SettingsSource
	opts     Options
	logger   *slog.Logger

	mu    sync.Mutex
	state State

	// cyclesSinceEvict counts successful cycles since the last eviction.
	cyclesSinceEvict int
}

// New constructs a Scheduler in the IDLE state.
func New(searcher Searcher, st store.Store, notifier notify.Notifier, settings SettingsSource, opts Options, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Overrun == "" {
		opts.Overrun = config.OverrunImmediate
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = defaultCooldown
	}
	if opts.EvictEvery <= 0 {
		opts.EvictEvery = defaultEvictEvery
	}
	if opts.Retention <= 0 {
		opts.Retention = defaultRetention
	}
	if opts.NotifyDelay < 0 {
		opts.NotifyDelay = 0
	} else if opts.NotifyDelay == 0 {
		opts.NotifyDelay = defaultNotifyDelay
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Scheduler{
		searcher: searcher,
		store:    st,
		notifier: notifier,
		settings: settings,
		opts:     opts,
		logger:   logger.With("component", "scheduler"),
		state:    StateIdle,
	}
}

// State returns the current cycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !IsTransitionAllowed(s.state, to) {
		return fmt.Errorf("illegal transition %s → %s", s.state, to)
	}
	s.state = to
	return nil
}

// Run executes cycles until ctx is cancelled. An in-flight cycle finishes
// its fetch batch and current listing before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "overrun", s.opts.Overrun)
	for {
		if ctx.Err() != nil {
			s.logger.Info("scheduler stopped")
			return nil
		}

		set := s.settings.Snapshot()
		started := s.opts.Now()
		report, err := s.runCycle(ctx, set)

		var wait time.Duration
		if err != nil {
			s.logger.Error("cycle failed", "err", err, "cooldown", s.opts.Cooldown)
			wait = s.opts.Cooldown
		} else {
			s.logger.Info("cycle complete", "report", report)
			now := s.opts.Now()
			next := NextStart(s.schedule(set), started, now, s.opts.Overrun)
			if next.Equal(now) {
				s.logger.Warn("cycle overran its interval, starting next immediately")
			}
			wait = next.Sub(now)
		}

		if err := sleep(ctx, wait); err != nil {
			s.logger.Info("scheduler stopped")
			return nil
		}
		if s.State() == StateFailed {
			_ = s.transition(StateIdle)
		}
	}
}

func (s *Scheduler) schedule(set config.Settings) cron.Schedule {
	if s.opts.Schedule != nil {
		return s.opts.Schedule
	}
	return cron.Every(set.Interval())
}

// NextStart returns when the cycle after one that began at started should
// begin, given the current time. If that moment has already passed, policy
// OverrunImmediate returns now and OverrunSkip the next slot after now.
func NextStart(sched cron.Schedule, started, now time.Time, policy string) time.Time {
	next := sched.Next(started)
	if next.After(now) {
		return next
	}
	if policy == config.OverrunSkip {
		return sched.Next(now)
	}
	return now
}

// RunCycle runs a single cycle with a fresh settings snapshot.
func (s *Scheduler) RunCycle(ctx context.Context) (CycleReport, error) {
	return s.runCycle(ctx, s.settings.Snapshot())
}

func (s *Scheduler) runCycle(ctx context.Context, set config.Settings) (report CycleReport, err error) {
	report = CycleReport{Started: s.opts.Now(), Rejected: make(map[deals.Reason]int)}
	defer func() {
		report.Duration = s.opts.Now().Sub(report.Started)
	}()

	if s.State() == StateFailed {
		if err := s.transition(StateIdle); err != nil {
			return report, &CycleError{State: StateFailed, Err: err}
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = s.fail(fmt.Errorf("panic: %v", r))
		}
	}()

	if err := s.transition(StateFetching); err != nil {
		return report, &CycleError{State: s.State(), Err: err}
	}

	// The fetch batch always completes; shutdown is honoured between listings.
	listings, err := s.searcher.Run(context.WithoutCancel(ctx), set.Scraping.SearchTerms, set.Scraping.MaxListingsPerSearch)
	if err != nil {
		return report, s.fail(fmt.Errorf("search: %w", err))
	}
	report.Fetched = len(listings)

	if err := s.transition(StateEvaluating); err != nil {
		return report, s.fail(err)
	}
	if err := s.evaluate(ctx, listings, set, &report); err != nil {
		return report, s.fail(err)
	}

	s.cyclesSinceEvict++
	if s.cyclesSinceEvict >= s.opts.EvictEvery {
		n, err := s.store.EvictOlderThan(context.WithoutCancel(ctx), s.opts.Retention)
		if err != nil {
			s.logger.Warn("eviction failed, will retry next cycle", "err", err)
		} else {
			report.Evicted = n
			s.cyclesSinceEvict = 0
			s.logger.Info("evicted old listings", "count", n, "retention", s.opts.Retention)
		}
	}

	if err := s.transition(StateIdle); err != nil {
		return report, s.fail(err)
	}
	return report, nil
}

// evaluate walks listings in order. Checks and writes are sequential so two
// listings with the same URL cannot both be accepted.
func (s *Scheduler) evaluate(ctx context.Context, listings []model.Listing, set config.Settings, report *CycleReport) error {
	filterCfg := set.FilterConfig()
	scoreCfg := set.ScoreConfig()
	// Writes must not be torn by shutdown, so they ignore cancellation.
	writeCtx := context.WithoutCancel(ctx)
	delivered := 0

	for i, l := range listings {
		if ctx.Err() != nil {
			s.logger.Info("shutdown requested, stopping evaluation", "remaining", len(listings)-i)
			return nil
		}

		seen, err := s.store.Seen(writeCtx, l.URL)
		if err != nil {
			return fmt.Errorf("seen %s: %w", l.URL, err)
		}
		if seen {
			report.AlreadySeen++
			continue
		}

		if ok, reason := deals.Passes(l, filterCfg); !ok {
			report.Rejected[reason]++
			s.logger.Debug("listing rejected", "reason", reason, "title", l.Title, "url", l.URL, "price", l.Price)
			continue
		}

		if delivered > 0 {
			if err := sleep(ctx, s.opts.NotifyDelay); err != nil {
				s.logger.Info("shutdown requested, stopping evaluation")
				return nil
			}
		}
		delivered++

		deal := model.Deal{
			Listing:    l,
			Score:      deals.Score(l.Price, l.Title, scoreCfg),
			Tier:       deals.Tier(l.Price, scoreCfg.PriceThresholds),
			Highlights: deals.Highlights(l.Title, scoreCfg.BonusKeywords),
			FoundAt:    s.opts.Now(),
		}

		if err := s.store.Record(writeCtx, l); err != nil {
			report.RecordErrors++
			s.logger.Warn("record failed, notifying anyway", "title", l.Title, "url", l.URL, "err", err)
		}
		if err := s.notifier.Notify(writeCtx, deal); err != nil {
			report.NotifyErrors++
			s.logger.Warn("notify failed", "title", l.Title, "url", l.URL, "err", err)
			continue
		}
		report.Notified++
		s.logger.Info("deal posted", "title", l.Title, "price", l.Price, "score", deal.Score, "url", l.URL)
	}
	return nil
}

// RejectedTotal sums rejections over all reasons.
func (r CycleReport) RejectedTotal() int {
	n := 0
	for _, v := range r.Rejected {
		n += v
	}
	return n
}

// fail moves a busy cycle to FAILED and wraps err with the state it failed in.
func (s *Scheduler) fail(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	from := s.state
	if IsTransitionAllowed(from, StateFailed) {
		s.state = StateFailed
	}
	return &CycleError{State: from, Err: err}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
