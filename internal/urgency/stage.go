package urgency

import "fmt"

// Stage is a discretized bucket of a depleting quantity's remaining fraction.
// Higher values are more depleted.
type Stage int

const (
	StageFresh Stage = iota
	StageWorn
	StageLow
	StageCritical
	StageExhausted
)

var stageNames = [...]string{"fresh", "worn", "low", "critical", "exhausted"}

// Band lower bounds, fraction remaining
const (
	freshFloor    = 0.90
	wornFloor     = 0.50
	lowFloor      = 0.20
	criticalFloor = 0.05
)

// StageFor maps a remaining fraction to a stage. Pure function of fraction.
func StageFor(fraction float64) Stage {
	switch f := clampFraction(fraction); {
	case f >= freshFloor:
		return StageFresh
	case f >= wornFloor:
		return StageWorn
	case f >= lowFloor:
		return StageLow
	case f >= criticalFloor:
		return StageCritical
	default:
		return StageExhausted
	}
}

// MoreDepletedThan reports whether s is further toward exhaustion than other
func (s Stage) MoreDepletedThan(other Stage) bool { return s > other }

func (s Stage) String() string {
	if s < StageFresh || s > StageExhausted {
		return fmt.Sprintf("urgency(%d)", int(s))
	}
	return stageNames[s]
}

// ParseStage parses an urgency stage name. "damaged" is accepted for low.
func ParseStage(name string) (Stage, error) {
	if name == "damaged" {
		return StageLow, nil
	}
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return StageFresh, fmt.Errorf("unknown urgency stage: %s", name)
}

// MarshalText implements encoding.TextMarshaler
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func clampFraction(f float64) float64 {
	if f != f || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
