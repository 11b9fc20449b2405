package game

import (
	"fmt"

	"github.com/qninhdt/crew-dialogue/server/internal/dialogue"
	"github.com/qninhdt/crew-dialogue/server/internal/personality"
	"github.com/qninhdt/crew-dialogue/server/internal/relationship"
	"github.com/qninhdt/crew-dialogue/server/internal/urgency"
)

// Player is a human player in the session
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CharacterDef describes a crew member to spawn
type CharacterDef struct {
	ID             string                     `json:"id"`
	Name           string                     `json:"name"`
	Specialization personality.Specialization `json:"specialization"`
	Traits         personality.Traits         `json:"traits"`
	HumorAffinity  float64                    `json:"humor_affinity"`
}

// Validate checks the definition before a profile is built
func (d CharacterDef) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("character id is required")
	}
	if d.Name == "" {
		return fmt.Errorf("character name is required")
	}
	if _, err := personality.ParseSpecialization(string(d.Specialization)); err != nil {
		return err
	}
	return nil
}

// CrewMember is a spawned character and its dialogue state
type CrewMember struct {
	ID      string
	Name    string
	Profile *personality.Profile

	def          CharacterDef
	orchestrator *dialogue.Orchestrator
}

// QuantityInfo is the public view of a tracked resource or tool
type QuantityInfo struct {
	ID       string        `json:"id"`
	Kind     urgency.Kind  `json:"kind"`
	Name     string        `json:"name"`
	Fraction float64       `json:"fraction"`
	Stage    urgency.Stage `json:"stage"`
}

// CharacterInfo is the public view of a crew member
type CharacterInfo struct {
	ID             string                     `json:"id"`
	Name           string                     `json:"name"`
	Specialization personality.Specialization `json:"specialization"`
	Voice          personality.Voice          `json:"voice"`
	Traits         personality.Traits         `json:"traits"`
	HumorAffinity  float64                    `json:"humor_affinity"`
	State          string                     `json:"state"`
	Quantities     []QuantityInfo             `json:"quantities"`
	Stats          dialogue.Stats             `json:"stats"`
}

// topTriggers is how many trigger counts CharacterInfo carries
const topTriggers = 3

func (c *CrewMember) info() CharacterInfo {
	o := c.orchestrator
	info := CharacterInfo{
		ID:             c.ID,
		Name:           c.Name,
		Specialization: c.Profile.Specialization(),
		Voice:          c.Profile.Voice(),
		Traits:         c.Profile.Traits(),
		HumorAffinity:  c.Profile.HumorAffinity(),
		State:          o.State().String(),
		Quantities:     make([]QuantityInfo, 0),
		Stats:          o.Stats(topTriggers),
	}
	for _, id := range o.Quantities() {
		t, _ := o.Quantity(id)
		info.Quantities = append(info.Quantities, QuantityInfo{
			ID:       id,
			Kind:     t.Kind(),
			Name:     t.Name(),
			Fraction: t.Fraction(),
			Stage:    t.Stage(),
		})
	}
	return info
}

// RelationshipInfo is the public view of one character/player pair
type RelationshipInfo struct {
	CharacterID  string                        `json:"character_id"`
	PlayerID     string                        `json:"player_id"`
	Rapport      int                           `json:"rapport"`
	Stage        relationship.Stage            `json:"stage"`
	Interactions int                           `json:"interactions"`
	Log          []relationship.MilestoneEntry `json:"log"`
}

// RelationshipRecord is a persisted relationship
type RelationshipRecord struct {
	CharacterID string                `json:"character_id"`
	PlayerID    string                `json:"player_id"`
	Snapshot    relationship.Snapshot `json:"snapshot"`
}

type pairKey struct {
	character string
	player    string
}
