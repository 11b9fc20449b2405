package variety

import (
	"math/rand"

	"github.com/qninhdt/crew-dialogue/server/internal/templates"
)

// Selector picks one template from a candidate set, avoiding recent repeats.
// A Selector is not safe for concurrent use; each character owns one.
type Selector struct {
	rng *rand.Rand
}

// NewSelector creates a selector seeded with seed
func NewSelector(seed int64) *Selector {
	return NewSelectorWithSource(rand.NewSource(seed))
}

// NewSelectorWithSource creates a selector drawing from src
func NewSelectorWithSource(src rand.Source) *Selector {
	return &Selector{rng: rand.New(src)}
}

// Pick returns a candidate not in the category's recent window, chosen
// uniformly. When every candidate was used recently the window is reset
// except for the newest entry, so the previous line is never repeated
// immediately unless it is the only candidate. It returns nil for an empty
// candidate set. Pick does not record the choice.
func (s *Selector) Pick(candidates []*templates.Template, log *RecentLog, category templates.Category) *templates.Template {
	switch len(candidates) {
	case 0:
		return nil
	case 1:
		return candidates[0]
	}

	fresh := make([]*templates.Template, 0, len(candidates))
	for _, c := range candidates {
		if !log.Contains(category, c.ID) {
			fresh = append(fresh, c)
		}
	}

	if len(fresh) == 0 {
		last, _ := log.MostRecent(category)
		log.ClearExcept(category, last.TemplateID)
		for _, c := range candidates {
			if c.ID != last.TemplateID {
				fresh = append(fresh, c)
			}
		}
	}

	return fresh[s.rng.Intn(len(fresh))]
}
