package relationship

// DefaultInitialRapport matches the starting rapport of a fresh pair
const DefaultInitialRapport = 10

// maxLogEntries bounds the milestone log
const maxLogEntries = 32

// auto milestones fire once when the interaction counter reaches the threshold
var autoMilestones = []struct {
	Interactions int
	Kind         MilestoneKind
}{
	{10, MilestoneGettingToKnow},
	{50, MilestoneFrequentCompanion},
}

// Transition describes the effect of one milestone
type Transition struct {
	Kind          MilestoneKind `json:"kind"`
	RapportBefore int           `json:"rapport_before"`
	RapportAfter  int           `json:"rapport_after"`
	Before        Stage         `json:"stage_before"`
	After         Stage         `json:"stage_after"`
}

// Crossed returns true if a stage boundary was crossed
func (t Transition) Crossed() bool { return t.Before != t.After }

// Improved returns true if the stage moved up
func (t Transition) Improved() bool { return t.After > t.Before }

// Tracker holds rapport for one (character, player) pair.
// Not safe for concurrent use; the owning tick handler serialises access.
type Tracker struct {
	rapport          int
	interactions     int
	firstMeetingTick int64
	met              bool
	log              []MilestoneEntry
	autoFired        map[MilestoneKind]bool
}

// NewTracker creates a tracker with the given starting rapport (clamped)
func NewTracker(initialRapport int) *Tracker {
	return &Tracker{
		rapport:   clampRapport(initialRapport),
		log:       make([]MilestoneEntry, 0, maxLogEntries),
		autoFired: make(map[MilestoneKind]bool),
	}
}

// Rapport returns the current rapport
func (t *Tracker) Rapport() int { return t.rapport }

// CurrentStage returns the stage for the current rapport
func (t *Tracker) CurrentStage() Stage { return StageFor(t.rapport) }

// Interactions returns the number of recorded interactions
func (t *Tracker) Interactions() int { return t.interactions }

// FirstMeetingTick returns the tick of the first interaction, if any
func (t *Tracker) FirstMeetingTick() (int64, bool) { return t.firstMeetingTick, t.met }

// RecordMilestone applies a milestone with its canonical magnitude
func (t *Tracker) RecordMilestone(kind MilestoneKind, tick int64) Transition {
	return t.ApplyMilestone(kind, CanonicalMagnitude(kind), tick)
}

// ApplyMilestone adds a signed delta, clamping the magnitude into the kind's
// range and the rapport into [0,100]
func (t *Tracker) ApplyMilestone(kind MilestoneKind, magnitude int, tick int64) Transition {
	tr := Transition{
		Kind:          kind,
		RapportBefore: t.rapport,
		Before:        t.CurrentStage(),
	}

	t.rapport = clampRapport(t.rapport + clampMagnitude(kind, magnitude))

	tr.RapportAfter = t.rapport
	tr.After = t.CurrentStage()
	t.appendLog(MilestoneEntry{
		Kind:        kind,
		Delta:       tr.RapportAfter - tr.RapportBefore,
		Tick:        tick,
		StageBefore: tr.Before,
		StageAfter:  tr.After,
	})
	return tr
}

// RecordInteraction counts an interaction and fires any automatic milestone
// that became due
func (t *Tracker) RecordInteraction(tick int64) (Transition, bool) {
	if !t.met {
		t.met = true
		t.firstMeetingTick = tick
	}
	t.interactions++

	for _, auto := range autoMilestones {
		if t.interactions >= auto.Interactions && !t.autoFired[auto.Kind] {
			t.autoFired[auto.Kind] = true
			return t.RecordMilestone(auto.Kind, tick), true
		}
	}
	return Transition{}, false
}

// Log returns a copy of the milestone log, oldest first
func (t *Tracker) Log() []MilestoneEntry {
	result := make([]MilestoneEntry, len(t.log))
	copy(result, t.log)
	return result
}

func (t *Tracker) appendLog(entry MilestoneEntry) {
	if len(t.log) >= maxLogEntries {
		t.log = append(t.log[:0], t.log[1:]...)
	}
	t.log = append(t.log, entry)
}

func clampRapport(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
