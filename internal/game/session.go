package game

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/qninhdt/crew-dialogue/server/internal/dialogue"
	"github.com/qninhdt/crew-dialogue/server/internal/interest"
	"github.com/qninhdt/crew-dialogue/server/internal/logger"
	"github.com/qninhdt/crew-dialogue/server/internal/personality"
	"github.com/qninhdt/crew-dialogue/server/internal/relationship"
	"github.com/qninhdt/crew-dialogue/server/internal/templates"
	"github.com/qninhdt/crew-dialogue/server/internal/urgency"
)

var (
	ErrUnknownCharacter   = errors.New("unknown character")
	ErrUnknownPlayer      = errors.New("unknown player")
	ErrUnknownQuantity    = errors.New("unknown quantity")
	ErrDuplicateCharacter = errors.New("character already exists")
)

// Options configures a session
type Options struct {
	Dialogue dialogue.Config
	// InitialRapport is nil for the default starting rapport
	InitialRapport *int
	Logger         *logger.Logger
	// Sink receives every utterance of every crew member, in emission order,
	// after the session lock is released
	Sink dialogue.Sink
}

// World is the per-call world snapshot supplied by the simulation
type World struct {
	Location    string   `json:"location,omitempty"`
	SubjectName string   `json:"subject_name,omitempty"`
	Fraction    *float64 `json:"fraction,omitempty"`
}

// SessionInfo summarises a session
type SessionInfo struct {
	ID        string    `json:"id"`
	Tick      int64     `json:"tick"`
	Players   []Player  `json:"players"`
	CrewCount int       `json:"crew_count"`
	Corpus    int       `json:"corpus_version"`
	CreatedAt time.Time `json:"created_at"`
}

// Session owns the tick clock, the crew and every character/player
// relationship of one running world. It is safe for concurrent use.
type Session struct {
	ID string

	library       *templates.Library
	opts          Options
	log           *logger.Logger
	tick          int64
	players       map[string]Player
	playerOrder   []string
	crew          map[string]*CrewMember
	crewOrder     []string
	relationships map[pairKey]*relationship.Tracker
	emitted       []dialogue.Utterance
	createdAt     time.Time
	initial       int
	mu            sync.RWMutex
	// publishMu keeps sink delivery in emission order across calls
	publishMu sync.Mutex
}

// NewSession creates an empty session
func NewSession(id string, library *templates.Library, opts Options) *Session {
	initial := relationship.DefaultInitialRapport
	if opts.InitialRapport != nil {
		initial = *opts.InitialRapport
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Session{
		ID:            id,
		library:       library,
		opts:          opts,
		log:           log.With("session", id),
		players:       make(map[string]Player),
		crew:          make(map[string]*CrewMember),
		relationships: make(map[pairKey]*relationship.Tracker),
		createdAt:     time.Now(),
		initial:       initial,
	}
}

// Info returns a summary of the session
func (s *Session) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	players := make([]Player, 0, len(s.playerOrder))
	for _, id := range s.playerOrder {
		players = append(players, s.players[id])
	}
	return SessionInfo{
		ID:        s.ID,
		Tick:      s.tick,
		Players:   players,
		CrewCount: len(s.crew),
		Corpus:    s.library.Version(),
		CreatedAt: s.createdAt,
	}
}

// CurrentTick returns the session clock
func (s *Session) CurrentTick() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tick
}

// AddPlayer registers or renames a player
func (s *Session) AddPlayer(p Player) error {
	if p.ID == "" || p.Name == "" {
		return fmt.Errorf("player id and name are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.players[p.ID]; !exists {
		s.playerOrder = append(s.playerOrder, p.ID)
	}
	s.players[p.ID] = p
	return nil
}

// AddCharacter spawns a crew member
func (s *Session) AddCharacter(def CharacterDef) (CharacterInfo, error) {
	if err := def.Validate(); err != nil {
		return CharacterInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.crew[def.ID]; exists {
		return CharacterInfo{}, fmt.Errorf("%w: %s", ErrDuplicateCharacter, def.ID)
	}

	profile := personality.NewProfile(def.Traits, def.Specialization, def.HumorAffinity)
	member := &CrewMember{ID: def.ID, Name: def.Name, Profile: profile, def: def}
	member.orchestrator = dialogue.New(
		dialogue.Character{ID: def.ID, Name: def.Name, Profile: profile},
		s.library,
		s.opts.Dialogue,
		dialogue.WithLogger(s.log),
		dialogue.WithSink(s.collect),
	)

	s.crew[def.ID] = member
	s.crewOrder = append(s.crewOrder, def.ID)
	s.log.Info("character spawned", "character", def.ID, "profile", profile.String())
	return member.info(), nil
}

// Character returns a crew member's public view
func (s *Session) Character(id string) (CharacterInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	member, ok := s.crew[id]
	if !ok {
		return CharacterInfo{}, fmt.Errorf("%w: %s", ErrUnknownCharacter, id)
	}
	return member.info(), nil
}

// Characters returns every crew member in spawn order
func (s *Session) Characters() []CharacterInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]CharacterInfo, 0, len(s.crewOrder))
	for _, id := range s.crewOrder {
		out = append(out, s.crew[id].info())
	}
	return out
}

// Decisions returns a crew member's recent speak-or-skip decisions
func (s *Session) Decisions(characterID string) ([]dialogue.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	member, ok := s.crew[characterID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCharacter, characterID)
	}
	return member.orchestrator.Decisions(), nil
}

// HandleEvent offers a world event to one crew member at the current tick.
// Social events count as interactions with the player and gifts apply the
// gift milestone before the character reacts.
func (s *Session) HandleEvent(characterID, playerID string, ev dialogue.GameEvent, w World) (*dialogue.Utterance, error) {
	s.mu.Lock()
	u, err := s.handleEvent(characterID, playerID, ev, w)
	if u == nil {
		s.mu.Unlock()
		return nil, err
	}
	s.publish(s.mu.Unlock, []dialogue.Utterance{*u})
	return u, nil
}

func (s *Session) handleEvent(characterID, playerID string, ev dialogue.GameEvent, w World) (*dialogue.Utterance, error) {
	member, player, err := s.lookup(characterID, playerID)
	if err != nil {
		return nil, err
	}
	rel := s.relationshipFor(characterID, playerID)

	switch ev.Type {
	case interest.EventPlayerGreeting, interest.EventGiftReceived:
		if tr, fired := rel.RecordInteraction(s.tick); fired {
			member.orchestrator.NoteTransition(tr)
		}
	}
	if ev.Type == interest.EventGiftReceived {
		member.orchestrator.NoteTransition(rel.RecordMilestone(relationship.MilestoneGiftReceived, s.tick))
	}

	ctx := dialogue.GameContext{
		Tick:         s.tick,
		PlayerName:   player.Name,
		Location:     w.Location,
		SubjectName:  w.SubjectName,
		Fraction:     w.Fraction,
		Relationship: rel,
	}

	s.emitted = s.emitted[:0]
	if _, ok := member.orchestrator.Handle(ev, ctx); !ok {
		return nil, nil
	}
	u := s.emitted[len(s.emitted)-1]
	return &u, nil
}

// ApplyMilestone applies a relationship milestone. A nil magnitude uses the
// kind's canonical magnitude. An improved stage queues a transition line.
func (s *Session) ApplyMilestone(characterID, playerID string, kind relationship.MilestoneKind, magnitude *int) (relationship.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, _, err := s.lookup(characterID, playerID)
	if err != nil {
		return relationship.Transition{}, err
	}
	rel := s.relationshipFor(characterID, playerID)

	var tr relationship.Transition
	if magnitude == nil {
		tr = rel.RecordMilestone(kind, s.tick)
	} else {
		tr = rel.ApplyMilestone(kind, *magnitude, s.tick)
	}
	member.orchestrator.NoteTransition(tr)
	s.log.Debug("milestone applied", "character", characterID, "player", playerID,
		"kind", kind, "rapport", tr.RapportAfter, "stage", tr.After)
	return tr, nil
}

// Advance moves the clock forward and lets every crew member speak any queued
// transition lines or overdue urgency reports, with playerID as the listener
func (s *Session) Advance(ticks int64, playerID, location string) ([]dialogue.Utterance, error) {
	if ticks <= 0 {
		return nil, fmt.Errorf("ticks must be positive")
	}

	s.mu.Lock()
	player, ok := s.players[playerID]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}

	var out []dialogue.Utterance
	for i := int64(0); i < ticks; i++ {
		s.tick++
		s.emitted = s.emitted[:0]
		for _, id := range s.crewOrder {
			ctx := dialogue.GameContext{
				Tick:         s.tick,
				PlayerName:   player.Name,
				Location:     location,
				Relationship: s.relationshipFor(id, playerID),
			}
			s.crew[id].orchestrator.Tick(ctx)
		}
		out = append(out, s.emitted...)
	}
	s.publish(s.mu.Unlock, out)
	return out, nil
}

// Replenish refills a tracked quantity of a crew member
func (s *Session) Replenish(characterID, quantityID string, amount float64) (urgency.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.crew[characterID]
	if !ok {
		return urgency.Assessment{}, fmt.Errorf("%w: %s", ErrUnknownCharacter, characterID)
	}
	a, ok := member.orchestrator.Replenish(quantityID, amount, s.tick)
	if !ok {
		return urgency.Assessment{}, fmt.Errorf("%w: %s", ErrUnknownQuantity, quantityID)
	}
	return a, nil
}

// Forget stops tracking a quantity that left a crew member's inventory
func (s *Session) Forget(characterID, quantityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.crew[characterID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCharacter, characterID)
	}
	if !member.orchestrator.Forget(quantityID) {
		return fmt.Errorf("%w: %s", ErrUnknownQuantity, quantityID)
	}
	return nil
}

// Relationship returns the state of a character/player pair
func (s *Session) Relationship(characterID, playerID string) (RelationshipInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, _, err := s.lookup(characterID, playerID); err != nil {
		return RelationshipInfo{}, err
	}
	rel := s.relationshipFor(characterID, playerID)
	return RelationshipInfo{
		CharacterID:  characterID,
		PlayerID:     playerID,
		Rapport:      rel.Rapport(),
		Stage:        rel.CurrentStage(),
		Interactions: rel.Interactions(),
		Log:          rel.Log(),
	}, nil
}

// Relationships snapshots every pair for persistence
func (s *Session) Relationships() []RelationshipRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RelationshipRecord, 0, len(s.relationships))
	for _, cid := range s.crewOrder {
		for _, pid := range s.playerOrder {
			rel, ok := s.relationships[pairKey{cid, pid}]
			if !ok {
				continue
			}
			out = append(out, RelationshipRecord{CharacterID: cid, PlayerID: pid, Snapshot: rel.Snapshot()})
		}
	}
	return out
}

// RestoreRelationships replaces pair state from persisted records. Records
// for characters or players not in the session are skipped.
func (s *Session) RestoreRelationships(records []RelationshipRecord) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	restored := 0
	for _, rec := range records {
		if _, ok := s.crew[rec.CharacterID]; !ok {
			continue
		}
		if _, ok := s.players[rec.PlayerID]; !ok {
			continue
		}
		s.relationships[pairKey{rec.CharacterID, rec.PlayerID}] = relationship.Restore(rec.Snapshot)
		restored++
	}
	return restored
}

func (s *Session) lookup(characterID, playerID string) (*CrewMember, Player, error) {
	member, ok := s.crew[characterID]
	if !ok {
		return nil, Player{}, fmt.Errorf("%w: %s", ErrUnknownCharacter, characterID)
	}
	player, ok := s.players[playerID]
	if !ok {
		return nil, Player{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	return member, player, nil
}

// relationshipFor returns the pair tracker, creating it on first contact
func (s *Session) relationshipFor(characterID, playerID string) *relationship.Tracker {
	key := pairKey{characterID, playerID}
	rel, ok := s.relationships[key]
	if !ok {
		rel = relationship.NewTracker(s.initial)
		s.relationships[key] = rel
	}
	return rel
}

// collect buffers utterances for the current call
func (s *Session) collect(u dialogue.Utterance) {
	s.emitted = append(s.emitted, u)
}

// publish hands the session lock over to the publish lock, then forwards
// lines to the sink. The caller holds s.mu; unlock releases it.
func (s *Session) publish(unlock func(), lines []dialogue.Utterance) {
	if s.opts.Sink == nil || len(lines) == 0 {
		unlock()
		return
	}
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	unlock()
	for _, u := range lines {
		s.opts.Sink(u)
	}
}
