package game

import (
	"fmt"
	"time"

	"github.com/qninhdt/crew-dialogue/server/internal/templates"
)

// Record is the persistable form of a session. Recent-usage logs and tracked
// quantities are not part of it; they rebuild from play within seconds.
type Record struct {
	ID            string               `json:"id"`
	Tick          int64                `json:"tick"`
	Players       []Player             `json:"players"`
	Characters    []CharacterDef       `json:"characters"`
	Relationships []RelationshipRecord `json:"relationships"`
	CreatedAt     time.Time            `json:"created_at"`
}

// Record captures the session for persistence
func (s *Session) Record() Record {
	rels := s.Relationships()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := Record{
		ID:            s.ID,
		Tick:          s.tick,
		Players:       make([]Player, 0, len(s.playerOrder)),
		Characters:    make([]CharacterDef, 0, len(s.crewOrder)),
		Relationships: rels,
		CreatedAt:     s.createdAt,
	}
	for _, id := range s.playerOrder {
		rec.Players = append(rec.Players, s.players[id])
	}
	for _, id := range s.crewOrder {
		rec.Characters = append(rec.Characters, s.crew[id].def)
	}
	return rec
}

// RestoreSession rebuilds a session from a record
func RestoreSession(rec Record, library *templates.Library, opts Options) (*Session, error) {
	s := NewSession(rec.ID, library, opts)
	for _, p := range rec.Players {
		if err := s.AddPlayer(p); err != nil {
			return nil, fmt.Errorf("failed to restore player %s: %w", p.ID, err)
		}
	}
	for _, def := range rec.Characters {
		if _, err := s.AddCharacter(def); err != nil {
			return nil, fmt.Errorf("failed to restore character %s: %w", def.ID, err)
		}
	}
	s.RestoreRelationships(rec.Relationships)

	s.mu.Lock()
	s.tick = rec.Tick
	if !rec.CreatedAt.IsZero() {
		s.createdAt = rec.CreatedAt
	}
	s.mu.Unlock()
	return s, nil
}
