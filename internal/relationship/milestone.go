package relationship

// MilestoneKind identifies a qualifying relationship moment
type MilestoneKind string

const (
	MilestoneDefendedPlayer     MilestoneKind = "defended_player"
	MilestoneForemanAdmitsFault MilestoneKind = "foreman_admits_fault"
	MilestoneSharedSuccess      MilestoneKind = "shared_success"
	MilestoneGiftReceived       MilestoneKind = "gift_received"
	MilestoneTaskFailedTogether MilestoneKind = "task_failed_together"
	MilestoneIgnoredWarning     MilestoneKind = "ignored_warning"
	MilestoneHarmedByPlayer     MilestoneKind = "harmed_by_player"
	MilestoneGettingToKnow      MilestoneKind = "getting_to_know"
	MilestoneFrequentCompanion  MilestoneKind = "frequent_companion"
)

// magnitudeRule is the canonical delta of a milestone kind and the range
// any supplied magnitude is clamped into
type magnitudeRule struct {
	Default int
	Min     int
	Max     int
}

var magnitudeRules = map[MilestoneKind]magnitudeRule{
	MilestoneDefendedPlayer:     {Default: 10, Min: 5, Max: 10},
	MilestoneForemanAdmitsFault: {Default: 15, Min: 15, Max: 20},
	MilestoneSharedSuccess:      {Default: 2, Min: 1, Max: 5},
	MilestoneGiftReceived:       {Default: 5, Min: 2, Max: 8},
	MilestoneTaskFailedTogether: {Default: 0, Min: -2, Max: 0},
	MilestoneIgnoredWarning:     {Default: -5, Min: -8, Max: -3},
	MilestoneHarmedByPlayer:     {Default: -15, Min: -25, Max: -10},
	MilestoneGettingToKnow:      {Default: 2, Min: 2, Max: 2},
	MilestoneFrequentCompanion:  {Default: 3, Min: 3, Max: 3},
}

var unknownRule = magnitudeRule{Default: 0, Min: -20, Max: 20}

func ruleFor(kind MilestoneKind) magnitudeRule {
	if rule, ok := magnitudeRules[kind]; ok {
		return rule
	}
	return unknownRule
}

// CanonicalMagnitude returns the default delta of a milestone kind
func CanonicalMagnitude(kind MilestoneKind) int {
	return ruleFor(kind).Default
}

// IsKnownMilestone reports whether kind has a canonical magnitude
func IsKnownMilestone(kind MilestoneKind) bool {
	_, ok := magnitudeRules[kind]
	return ok
}

// clampMagnitude forces magnitude into the kind's range
func clampMagnitude(kind MilestoneKind, magnitude int) int {
	rule := ruleFor(kind)
	if magnitude < rule.Min {
		return rule.Min
	}
	if magnitude > rule.Max {
		return rule.Max
	}
	return magnitude
}

// MilestoneEntry is one record of the milestone log
type MilestoneEntry struct {
	Kind        MilestoneKind `json:"kind"`
	Delta       int           `json:"delta"`
	Tick        int64         `json:"tick"`
	StageBefore Stage         `json:"stage_before"`
	StageAfter  Stage         `json:"stage_after"`
}
