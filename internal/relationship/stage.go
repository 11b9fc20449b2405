package relationship

import "fmt"

// Stage is a discretized bucket of rapport
type Stage int

const (
	StageStranger Stage = iota
	StageAcquaintance
	StageColleague
	StageFriend
	StagePartner
)

// stageThresholds holds the minimum rapport for each stage, indexed by Stage
var stageThresholds = [...]int{0, 26, 51, 76, 100}

var stageNames = [...]string{"stranger", "acquaintance", "colleague", "friend", "partner"}

// StageFor maps rapport to a stage. Pure function of rapport.
func StageFor(rapport int) Stage {
	rapport = clampRapport(rapport)
	stage := StageStranger
	for s := StagePartner; s >= StageStranger; s-- {
		if rapport >= stageThresholds[s] {
			stage = s
			break
		}
	}
	return stage
}

// Threshold returns the minimum rapport of a stage
func (s Stage) Threshold() int {
	if s < StageStranger || s > StagePartner {
		return 0
	}
	return stageThresholds[s]
}

func (s Stage) String() string {
	if s < StageStranger || s > StagePartner {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// ParseStage parses a stage name
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return StageStranger, fmt.Errorf("unknown relationship stage: %s", name)
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
