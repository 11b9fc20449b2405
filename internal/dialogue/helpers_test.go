package dialogue

import (
	"testing"

	"github.com/qninhdt/crew-dialogue/server/internal/interest"
	"github.com/qninhdt/crew-dialogue/server/internal/personality"
	"github.com/qninhdt/crew-dialogue/server/internal/relationship"
	"github.com/qninhdt/crew-dialogue/server/internal/templates"
	"github.com/qninhdt/crew-dialogue/server/internal/urgency"
)

// steadyTraits resolve to the steady voice
var steadyTraits = personality.Traits{
	Openness:          0.5,
	Conscientiousness: 0.5,
	Extraversion:      0.5,
	Agreeableness:     0.5,
	Stability:         0.5,
}

func newCharacter(spec personality.Specialization, traits personality.Traits, humor float64) Character {
	return Character{
		ID:      "crew-" + string(spec),
		Name:    "Mace",
		Profile: personality.NewProfile(traits, spec, humor),
	}
}

func newLibrary(t *testing.T, specs ...templates.Spec) *templates.Library {
	t.Helper()
	list := make([]*templates.Template, 0, len(specs))
	for _, s := range specs {
		tmpl, err := templates.New(s)
		if err != nil {
			t.Fatalf("Failed to build template %s: %v", s.ID, err)
		}
		list = append(list, tmpl)
	}
	lib, err := templates.NewLibrary(1, list)
	if err != nil {
		t.Fatalf("Failed to build library: %v", err)
	}
	return lib
}

func defaultLibrary(t *testing.T) *templates.Library {
	t.Helper()
	lib, err := templates.Default()
	if err != nil {
		t.Fatalf("Failed to load default corpus: %v", err)
	}
	return lib
}

// recorder collects emitted utterances
type recorder struct {
	lines []Utterance
}

func (r *recorder) sink(u Utterance) { r.lines = append(r.lines, u) }

func (r *recorder) last() Utterance {
	if len(r.lines) == 0 {
		return Utterance{}
	}
	return r.lines[len(r.lines)-1]
}

func fraction(f float64) *float64 { return &f }

func toolContext(tick int64, f float64) GameContext {
	return GameContext{
		Tick:         tick,
		PlayerName:   "Steve",
		Location:     "the north shaft",
		SubjectName:  "pickaxe",
		Fraction:     fraction(f),
		Relationship: relationship.NewTracker(relationship.DefaultInitialRapport),
	}
}

func toolEvent() GameEvent {
	return GameEvent{Type: interest.EventToolWear, QuantityID: "pickaxe-1", QuantityKind: urgency.KindTool}
}

func plainContext(tick int64) GameContext {
	return GameContext{
		Tick:         tick,
		PlayerName:   "Steve",
		Location:     "the north shaft",
		Relationship: relationship.NewTracker(relationship.DefaultInitialRapport),
	}
}
