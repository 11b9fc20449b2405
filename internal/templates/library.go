package templates

import (
	"fmt"

	"github.com/qninhdt/crew-dialogue/server/internal/personality"
	"github.com/qninhdt/crew-dialogue/server/internal/relationship"
	"github.com/qninhdt/crew-dialogue/server/internal/urgency"
)

// Query selects templates for one utterance
type Query struct {
	Category  Category
	Archetype personality.Specialization
	Stage     relationship.Stage
	Urgency   *urgency.Stage
}

// Library is an immutable, indexed template store. It is never mutated after
// construction and may be shared by any number of characters without locking.
type Library struct {
	version    int
	byCategory map[Category][]*Template
	byID       map[string]*Template
}

// NewLibrary indexes templates. Duplicate IDs are rejected.
func NewLibrary(version int, list []*Template) (*Library, error) {
	lib := &Library{
		version:    version,
		byCategory: make(map[Category][]*Template),
		byID:       make(map[string]*Template, len(list)),
	}
	for _, t := range list {
		if t == nil {
			continue
		}
		if _, exists := lib.byID[t.ID]; exists {
			return nil, fmt.Errorf("duplicate template id: %s", t.ID)
		}
		lib.byID[t.ID] = t
		lib.byCategory[t.Category] = append(lib.byCategory[t.Category], t)
	}
	return lib, nil
}

// Version returns the corpus version
func (l *Library) Version() int { return l.version }

// Len returns the number of templates
func (l *Library) Len() int { return len(l.byID) }

// Get returns a template by ID
func (l *Library) Get(id string) *Template { return l.byID[id] }

// Count returns the number of templates in a category
func (l *Library) Count(category Category) int { return len(l.byCategory[category]) }

// Lookup returns the most specific candidates for the query. An empty result
// means the caller must fall back to a hard-coded line.
func (l *Library) Lookup(category Category, archetype personality.Specialization, stage relationship.Stage, u *urgency.Stage) []*Template {
	return l.LookupFiltered(Query{Category: category, Archetype: archetype, Stage: stage, Urgency: u}, nil)
}

// LookupFiltered is Lookup with an extra acceptance filter applied before
// specificity tiers are chosen. It returns the first tier of LookupTiers.
func (l *Library) LookupFiltered(q Query, accept func(*Template) bool) []*Template {
	tiers := l.LookupTiers(q, accept)
	if len(tiers) == 0 {
		return nil
	}
	return tiers[0]
}

// LookupTiers returns every non-empty candidate tier for the query, most
// specific first.
//
// Tiers, most specific first:
//  1. archetype templates whose minimum stage equals the current stage
//  2. archetype templates whose minimum stage is at most the current stage
//  3. generic templates whose minimum stage equals the current stage
//  4. generic templates whose minimum stage is at most the current stage
//
// Templates that name the requested urgency stage outrank urgency-agnostic
// ones: all of their tiers come before the agnostic tiers.
func (l *Library) LookupTiers(q Query, accept func(*Template) bool) [][]*Template {
	var exact, agnostic []*Template
	for _, t := range l.byCategory[q.Category] {
		if t.MinStage > q.Stage || !t.urgencyEligible(q.Urgency) {
			continue
		}
		if !t.Generic() && !t.HasArchetype(q.Archetype) {
			continue
		}
		if accept != nil && !accept(t) {
			continue
		}
		if t.urgencyExact(q.Urgency) {
			exact = append(exact, t)
		} else {
			agnostic = append(agnostic, t)
		}
	}
	return append(specificityTiers(exact, q), specificityTiers(agnostic, q)...)
}

func specificityTiers(pool []*Template, q Query) [][]*Template {
	var tiers [4][]*Template
	for _, t := range pool {
		exactStage := t.MinStage == q.Stage
		switch {
		case t.HasArchetype(q.Archetype) && exactStage:
			tiers[0] = append(tiers[0], t)
		case t.HasArchetype(q.Archetype):
			tiers[1] = append(tiers[1], t)
		case exactStage:
			tiers[2] = append(tiers[2], t)
		default:
			tiers[3] = append(tiers[3], t)
		}
	}
	var out [][]*Template
	for _, tier := range tiers {
		if len(tier) > 0 {
			out = append(out, tier)
		}
	}
	return out
}
