package game

import (
	"testing"

	"github.com/qninhdt/crew-dialogue/server/internal/dialogue"
	"github.com/qninhdt/crew-dialogue/server/internal/personality"
	"github.com/qninhdt/crew-dialogue/server/internal/templates"
)

// createTestSession creates a session with one player and one excavator
func createTestSession(t *testing.T, sink dialogue.Sink) *Session {
	t.Helper()
	lib, err := templates.Default()
	if err != nil {
		t.Fatalf("Failed to load corpus: %v", err)
	}

	s := NewSession("test-session", lib, Options{Sink: sink})
	if err := s.AddPlayer(Player{ID: "p1", Name: "Steve"}); err != nil {
		t.Fatalf("Failed to add player: %v", err)
	}
	if _, err := s.AddCharacter(testCharacter("c1", personality.SpecExcavation)); err != nil {
		t.Fatalf("Failed to add character: %v", err)
	}
	return s
}

func testCharacter(id string, spec personality.Specialization) CharacterDef {
	return CharacterDef{
		ID:             id,
		Name:           "Mace",
		Specialization: spec,
		Traits: personality.Traits{
			Openness:          0.5,
			Conscientiousness: 0.5,
			Extraversion:      0.5,
			Agreeableness:     0.5,
			Stability:         0.5,
		},
		HumorAffinity: 0.2,
	}
}

func ptr[T any](v T) *T { return &v }
