package relationship

// Snapshot is the persistable form of a tracker
type Snapshot struct {
	Rapport          int              `json:"rapport"`
	Interactions     int              `json:"interactions"`
	FirstMeetingTick int64            `json:"first_meeting_tick"`
	Met              bool             `json:"met"`
	AutoFired        []MilestoneKind  `json:"auto_fired"`
	Log              []MilestoneEntry `json:"log"`
}

// Snapshot captures the tracker state
func (t *Tracker) Snapshot() Snapshot {
	fired := make([]MilestoneKind, 0, len(t.autoFired))
	for _, auto := range autoMilestones {
		if t.autoFired[auto.Kind] {
			fired = append(fired, auto.Kind)
		}
	}
	return Snapshot{
		Rapport:          t.rapport,
		Interactions:     t.interactions,
		FirstMeetingTick: t.firstMeetingTick,
		Met:              t.met,
		AutoFired:        fired,
		Log:              t.Log(),
	}
}

// Restore rebuilds a tracker from a snapshot, clamping stored values
func Restore(s Snapshot) *Tracker {
	t := NewTracker(s.Rapport)
	if s.Interactions > 0 {
		t.interactions = s.Interactions
	}
	t.firstMeetingTick = s.FirstMeetingTick
	t.met = s.Met
	for _, kind := range s.AutoFired {
		t.autoFired[kind] = true
	}
	log := s.Log
	if len(log) > maxLogEntries {
		log = log[len(log)-maxLogEntries:]
	}
	t.log = append(t.log, log...)
	return t
}
