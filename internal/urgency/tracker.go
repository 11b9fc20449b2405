package urgency

// Kind distinguishes stocked materials from tool durability. Both share the
// same state machine.
type Kind string

const (
	KindResource Kind = "resource"
	KindTool     Kind = "tool"
)

// DefaultCriticalRepeatTicks is 30 simulated seconds at 20 ticks per second
const DefaultCriticalRepeatTicks int64 = 600

// Assessment is the reporting decision for the tracker's current state
type Assessment struct {
	Stage    Stage   `json:"stage"`
	Fraction float64 `json:"fraction"`
	// Due is true when a report should be emitted now
	Due bool `json:"due"`
	// BypassCooldown is true for reports that ignore the speaker's cooldown
	BypassCooldown bool `json:"bypass_cooldown"`
	// Repeat is true for periodic critical re-reports
	Repeat bool `json:"repeat"`
}

// Tracker is the urgency state machine for one tracked quantity.
// Not safe for concurrent use.
type Tracker struct {
	kind           Kind
	name           string
	fraction       float64
	stage          Stage
	reported       bool
	lastReported   Stage
	lastReportTick int64
	repeatTicks    int64
}

// NewTracker creates a tracker at the first observed fraction
func NewTracker(kind Kind, name string, fraction float64, criticalRepeatTicks int64) *Tracker {
	if criticalRepeatTicks <= 0 {
		criticalRepeatTicks = DefaultCriticalRepeatTicks
	}
	f := clampFraction(fraction)
	return &Tracker{
		kind:        kind,
		name:        name,
		fraction:    f,
		stage:       StageFor(f),
		repeatTicks: criticalRepeatTicks,
	}
}

// Kind returns the quantity kind
func (t *Tracker) Kind() Kind { return t.kind }

// Name returns the display name of the quantity
func (t *Tracker) Name() string { return t.name }

// Fraction returns the remaining fraction
func (t *Tracker) Fraction() float64 { return t.fraction }

// Stage returns the current stage
func (t *Tracker) Stage() Stage { return t.stage }

// LastReported returns the last reported stage, if any
func (t *Tracker) LastReported() (Stage, bool) { return t.lastReported, t.reported }

// LastReportTick returns the tick of the last report
func (t *Tracker) LastReportTick() int64 { return t.lastReportTick }

// Observe records a new fraction. A rise does not re-arm reporting; only
// Replenish starts a fresh warning cycle.
func (t *Tracker) Observe(fraction float64, now int64) Assessment {
	t.set(clampFraction(fraction))
	return t.Assess(now)
}

// Consume lowers the fraction by delta. Negative deltas count as zero.
func (t *Tracker) Consume(delta float64, now int64) Assessment {
	if delta != delta || delta < 0 {
		delta = 0
	}
	t.set(clampFraction(t.fraction - delta))
	return t.Assess(now)
}

// Replenish raises the fraction and always clears the last reported stage so
// the next depletion starts a fresh warning cycle
func (t *Tracker) Replenish(amount float64, now int64) Assessment {
	if amount != amount || amount < 0 {
		amount = 0
	}
	t.set(clampFraction(t.fraction + amount))
	t.clearReported()
	return t.Assess(now)
}

// Assess applies the reporting cadence to the current stage without mutating
func (t *Tracker) Assess(now int64) Assessment {
	a := Assessment{Stage: t.stage, Fraction: t.fraction}
	entered := !t.reported || t.stage.MoreDepletedThan(t.lastReported)

	switch t.stage {
	case StageFresh:
	case StageWorn, StageLow:
		a.Due = entered
	case StageCritical:
		if entered {
			a.Due = true
		} else if t.lastReported == StageCritical && now-t.lastReportTick >= t.repeatTicks {
			a.Due = true
			a.Repeat = true
		}
	case StageExhausted:
		a.Due = entered
		a.BypassCooldown = true
	}
	return a
}

// MarkReported records that the current stage was reported at now
func (t *Tracker) MarkReported(now int64) {
	t.reported = true
	t.lastReported = t.stage
	t.lastReportTick = now
}

func (t *Tracker) set(f float64) {
	t.fraction = f
	t.stage = StageFor(f)
}

func (t *Tracker) clearReported() {
	t.reported = false
	t.lastReported = StageFresh
	t.lastReportTick = 0
}
