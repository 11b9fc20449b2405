package personality

import "fmt"

// Specialization is a character's functional role
type Specialization string

const (
	SpecExcavation   Specialization = "excavation"
	SpecConstruction Specialization = "construction"
	SpecDefense      Specialization = "defense"
	SpecExploration  Specialization = "exploration"
	SpecCultivation  Specialization = "cultivation"
	SpecCrafting     Specialization = "crafting"
)

// Specializations lists every known specialization
var Specializations = []Specialization{
	SpecExcavation,
	SpecConstruction,
	SpecDefense,
	SpecExploration,
	SpecCultivation,
	SpecCrafting,
}

// ParseSpecialization validates a specialization tag
func ParseSpecialization(s string) (Specialization, error) {
	for _, spec := range Specializations {
		if string(spec) == s {
			return spec, nil
		}
	}
	return "", fmt.Errorf("unknown specialization: %s", s)
}

// Traits holds the five trait scalars, each in [0,1]
type Traits struct {
	Openness          float64 `json:"openness" yaml:"openness"`
	Conscientiousness float64 `json:"conscientiousness" yaml:"conscientiousness"`
	Extraversion      float64 `json:"extraversion" yaml:"extraversion"`
	Agreeableness     float64 `json:"agreeableness" yaml:"agreeableness"`
	Stability         float64 `json:"emotional_stability" yaml:"emotional_stability"`
}

// Profile is an immutable personality. The voice is resolved once at creation.
type Profile struct {
	traits         Traits
	specialization Specialization
	humorAffinity  float64
	voice          Voice
}

// NewProfile creates a profile, clamping every scalar to [0,1]
func NewProfile(traits Traits, spec Specialization, humorAffinity float64) *Profile {
	t := Traits{
		Openness:          clampUnit(traits.Openness),
		Conscientiousness: clampUnit(traits.Conscientiousness),
		Extraversion:      clampUnit(traits.Extraversion),
		Agreeableness:     clampUnit(traits.Agreeableness),
		Stability:         clampUnit(traits.Stability),
	}
	humor := clampUnit(humorAffinity)
	return &Profile{
		traits:         t,
		specialization: spec,
		humorAffinity:  humor,
		voice:          resolveVoice(t, humor),
	}
}

// Traits returns a copy of the trait vector
func (p *Profile) Traits() Traits { return p.traits }

// Specialization returns the character's role
func (p *Profile) Specialization() Specialization { return p.specialization }

// HumorAffinity returns the humor scalar
func (p *Profile) HumorAffinity() float64 { return p.humorAffinity }

// Voice returns the communication style resolved at creation
func (p *Profile) Voice() Voice { return p.voice }

// Env exposes the profile to template conditions
func (p *Profile) Env() map[string]any {
	return map[string]any{
		"openness":          p.traits.Openness,
		"conscientiousness": p.traits.Conscientiousness,
		"extraversion":      p.traits.Extraversion,
		"agreeableness":     p.traits.Agreeableness,
		"stability":         p.traits.Stability,
		"humor":             p.humorAffinity,
		"voice":             string(p.voice),
		"specialization":    string(p.specialization),
	}
}

func (p *Profile) String() string {
	t := p.traits
	return fmt.Sprintf("O:%.2f C:%.2f E:%.2f A:%.2f S:%.2f H:%.2f [%s/%s]",
		t.Openness, t.Conscientiousness, t.Extraversion, t.Agreeableness, t.Stability,
		p.humorAffinity, p.specialization, p.voice)
}

// LevelDescription buckets a trait value into five bands of 0.2
func LevelDescription(v float64) string {
	switch {
	case v <= 0.2:
		return "very low"
	case v <= 0.4:
		return "low"
	case v <= 0.6:
		return "average"
	case v <= 0.8:
		return "high"
	default:
		return "very high"
	}
}

func clampUnit(v float64) float64 {
	if v != v || v < 0 { // NaN counts as zero
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
