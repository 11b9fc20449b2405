package urgency

import (
	"math/rand"
	"testing"
)

func newTestTracker(fraction float64) *Tracker {
	return NewTracker(KindTool, "iron pickaxe", fraction, DefaultCriticalRepeatTicks)
}

// TestStageFor tests the percentage bands
func TestStageFor(t *testing.T) {
	tests := []struct {
		fraction float64
		want     Stage
	}{
		{1.0, StageFresh},
		{0.90, StageFresh},
		{0.89, StageWorn},
		{0.50, StageWorn},
		{0.49, StageLow},
		{0.20, StageLow},
		{0.19, StageCritical},
		{0.05, StageCritical},
		{0.049, StageExhausted},
		{0, StageExhausted},
		{-1, StageExhausted},
		{2, StageFresh},
	}

	for _, tt := range tests {
		if got := StageFor(tt.fraction); got != tt.want {
			t.Errorf("StageFor(%v): expected %s, got %s", tt.fraction, tt.want, got)
		}
	}
}

// TestFreshNeverReports tests the fresh stage is silent
func TestFreshNeverReports(t *testing.T) {
	tracker := newTestTracker(1.0)
	a := tracker.Consume(0.05, 1)
	if a.Due {
		t.Error("Expected no report while fresh")
	}
}

// TestWornReportsOncePerEntry tests worn is reported once
func TestWornReportsOncePerEntry(t *testing.T) {
	tracker := newTestTracker(1.0)

	a := tracker.Consume(0.2, 10)
	if !a.Due || a.Stage != StageWorn {
		t.Fatalf("Expected worn report due, got %+v", a)
	}
	tracker.MarkReported(10)

	a = tracker.Consume(0.1, 5000)
	if a.Due {
		t.Errorf("Expected no second worn report, got %+v", a)
	}
}

// TestSkipToCriticalSingleReport tests scenario 2: 0.52 -> 0.18 in one call
func TestSkipToCriticalSingleReport(t *testing.T) {
	tracker := newTestTracker(0.52)
	tracker.Assess(0)
	tracker.MarkReported(0)

	a := tracker.Consume(0.34, 100)
	if !a.Due {
		t.Fatal("Expected critical report due")
	}
	if a.Stage != StageCritical {
		t.Errorf("Expected critical, got %s", a.Stage)
	}
	tracker.MarkReported(100)

	// Nothing else is due until the repeat interval passes
	if tracker.Assess(101).Due {
		t.Error("Expected no intermediate reports")
	}
}

// TestSkipToExhausted tests an instant failure reports exhausted once
func TestSkipToExhausted(t *testing.T) {
	tracker := newTestTracker(1.0)

	a := tracker.Observe(0, 5)
	if !a.Due || a.Stage != StageExhausted || !a.BypassCooldown {
		t.Fatalf("Expected exhausted cooldown-bypassing report, got %+v", a)
	}
	tracker.MarkReported(5)

	if tracker.Observe(0, 6).Due {
		t.Error("Expected exhausted to report once per entry")
	}
}

// TestCriticalRepeats tests the periodic critical re-report
func TestCriticalRepeats(t *testing.T) {
	tracker := newTestTracker(0.15)
	tracker.Assess(0)
	tracker.MarkReported(0)

	if tracker.Assess(DefaultCriticalRepeatTicks - 1).Due {
		t.Error("Expected no repeat before the interval")
	}

	a := tracker.Assess(DefaultCriticalRepeatTicks)
	if !a.Due || !a.Repeat {
		t.Errorf("Expected repeat report at the interval, got %+v", a)
	}
	if a.BypassCooldown {
		t.Error("Expected critical repeats to respect cooldown")
	}
}

// TestReplenishResetsReporting tests scenario 4
func TestReplenishResetsReporting(t *testing.T) {
	tracker := newTestTracker(0.15)
	tracker.Assess(0)
	tracker.MarkReported(0)

	a := tracker.Replenish(0.80, 10)
	if a.Stage != StageFresh {
		t.Errorf("Expected fresh after replenish, got %s", a.Stage)
	}
	if _, ok := tracker.LastReported(); ok {
		t.Error("Expected last reported stage cleared")
	}

	a = tracker.Consume(0.80, 20)
	if !a.Due || a.Stage != StageCritical {
		t.Errorf("Expected a new critical report, got %+v", a)
	}
}

// TestObserveRiseKeepsReporting tests an upward observation does not re-arm warnings
func TestObserveRiseKeepsReporting(t *testing.T) {
	tracker := newTestTracker(0.4)
	tracker.Assess(0)
	tracker.MarkReported(0)

	tracker.Observe(0.95, 1)
	a := tracker.Observe(0.45, 2)
	if a.Due {
		t.Errorf("Expected no report after rise and fall, got %+v", a)
	}
	if last, ok := tracker.LastReported(); !ok || last != StageLow {
		t.Errorf("Expected last reported low, got %s (%v)", last, ok)
	}
}

// TestObserveJitterDoesNotRepeat tests small fluctuations inside a stage stay quiet
func TestObserveJitterDoesNotRepeat(t *testing.T) {
	tracker := newTestTracker(1.0)
	a := tracker.Observe(0, 100)
	if !a.Due {
		t.Fatalf("Expected exhausted report, got %+v", a)
	}
	tracker.MarkReported(100)

	for i, f := range []float64{0.01, 0.00, 0.02, 0.01, 0.03} {
		if a := tracker.Observe(f, int64(101+i)); a.Due {
			t.Errorf("Expected no report at %f, got %+v", f, a)
		}
	}

	critical := newTestTracker(1.0)
	critical.Observe(0.10, 0)
	critical.MarkReported(0)
	for tick := int64(40); tick < 600; tick += 40 {
		f := 0.11
		if tick%80 == 0 {
			f = 0.10
		}
		if a := critical.Observe(f, tick); a.Due {
			t.Errorf("Expected no critical report at tick %d, got %+v", tick, a)
		}
	}
	if a := critical.Observe(0.10, 600); !a.Due || !a.Repeat {
		t.Errorf("Expected critical repeat at 600, got %+v", a)
	}
}

// TestMonotonicDepletion tests consume never moves toward fresh
func TestMonotonicDepletion(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	tracker := newTestTracker(1.0)
	prev := tracker.Stage()

	for i := 0; i < 500; i++ {
		delta := rng.Float64()*0.05 - 0.02 // some negative deltas
		a := tracker.Consume(delta, int64(i))
		if a.Stage < prev {
			t.Fatalf("Stage moved toward fresh: %s -> %s", prev, a.Stage)
		}
		prev = a.Stage
	}
}

// TestNegativeReplenishClamped tests malformed amounts are clamped
func TestNegativeReplenishClamped(t *testing.T) {
	tracker := newTestTracker(0.6)
	tracker.Replenish(-0.5, 1)
	if tracker.Fraction() != 0.6 {
		t.Errorf("Expected fraction 0.6, got %f", tracker.Fraction())
	}
}
