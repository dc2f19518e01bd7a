package scheduler_test

import (
	"testing"

	"sneakerbot/deal-sniper/internal/scheduler"
)

var allStates = []scheduler.State{
	scheduler.StateIdle,
	scheduler.StateFetching,
	scheduler.StateEvaluating,
	scheduler.StateFailed,
}

// ── ParseState ─────────────────────────────────────────────────────────────

func TestParseState_ValidValues(t *testing.T) {
	for _, s := range []string{"IDLE", "FETCHING", "EVALUATING", "FAILED"} {
		got, err := scheduler.ParseState(s)
		if err != nil {
			t.Errorf("ParseState(%q) returned unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseState(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseState_InvalidValues(t *testing.T) {
	for _, s := range []string{"", "idle", "RUNNING", " IDLE"} {
		if _, err := scheduler.ParseState(s); err == nil {
			t.Errorf("ParseState(%q) expected error, got nil", s)
		}
	}
}

// ── IsTransitionAllowed ────────────────────────────────────────────────────

func TestIsTransitionAllowed_CycleHappyPath(t *testing.T) {
	cases := []struct {
		from scheduler.State
		to   scheduler.State
	}{
		{scheduler.StateIdle, scheduler.StateFetching},
		{scheduler.StateFetching, scheduler.StateEvaluating},
		{scheduler.StateEvaluating, scheduler.StateIdle},
	}
	for _, c := range cases {
		if !scheduler.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be true", c.from, c.to)
		}
	}
}

func TestIsTransitionAllowed_FailurePath(t *testing.T) {
	for _, from := range []scheduler.State{scheduler.StateFetching, scheduler.StateEvaluating} {
		if !scheduler.IsTransitionAllowed(from, scheduler.StateFailed) {
			t.Errorf("IsTransitionAllowed(%s → FAILED) should be true", from)
		}
	}
	if !scheduler.IsTransitionAllowed(scheduler.StateFailed, scheduler.StateIdle) {
		t.Error("IsTransitionAllowed(FAILED → IDLE) should be true")
	}
}

func TestIsTransitionAllowed_Forbidden(t *testing.T) {
	cases := []struct {
		from scheduler.State
		to   scheduler.State
	}{
		{scheduler.StateIdle, scheduler.StateEvaluating},     // skip fetch
		{scheduler.StateIdle, scheduler.StateFailed},         // nothing to fail
		{scheduler.StateEvaluating, scheduler.StateFetching}, // backwards
		{scheduler.StateFailed, scheduler.StateFetching},     // must rest first
	}
	for _, c := range cases {
		if scheduler.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be false", c.from, c.to)
		}
	}
}

func TestIsTransitionAllowed_Self(t *testing.T) {
	for _, s := range allStates {
		if scheduler.IsTransitionAllowed(s, s) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be false (self)", s, s)
		}
	}
}

// ── IsBusy ─────────────────────────────────────────────────────────────────

func TestIsBusy(t *testing.T) {
	want := map[scheduler.State]bool{
		scheduler.StateIdle:       false,
		scheduler.StateFetching:   true,
		scheduler.StateEvaluating: true,
		scheduler.StateFailed:     false,
	}
	for _, s := range allStates {
		if got := scheduler.IsBusy(s); got != want[s] {
			t.Errorf("IsBusy(%s) = %v, want %v", s, got, want[s])
		}
	}
}
