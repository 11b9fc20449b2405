package templates

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/qninhdt/crew-dialogue/server/internal/personality"
	"github.com/qninhdt/crew-dialogue/server/internal/relationship"
	"github.com/qninhdt/crew-dialogue/server/internal/urgency"
)

// Category groups templates by communicative purpose
type Category string

const (
	CategoryGreeting  Category = "greeting"
	CategorySuccess   Category = "success"
	CategoryFailure   Category = "failure"
	CategoryWarning   Category = "warning"
	CategoryDanger    Category = "danger"
	CategoryGratitude Category = "gratitude"
	CategoryIdle      Category = "idle"
	CategoryMilestone Category = "milestone"
)

// Categories lists every category
var Categories = []Category{
	CategoryGreeting,
	CategorySuccess,
	CategoryFailure,
	CategoryWarning,
	CategoryDanger,
	CategoryGratitude,
	CategoryIdle,
	CategoryMilestone,
}

// ParseCategory validates a category tag
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category: %s", s)
}

// Template is an immutable, pre-authored line with named slots
type Template struct {
	ID         string
	Category   Category
	Archetypes []personality.Specialization
	MinStage   relationship.Stage
	// Urgency, when set, restricts the template to that urgency stage
	Urgency *urgency.Stage
	Voices  []personality.Voice
	Humor   bool
	When    string
	Text    string

	slots   []string
	program *vm.Program
}

// Spec is the input for building a template
type Spec struct {
	ID         string
	Category   Category
	Archetypes []personality.Specialization
	MinStage   relationship.Stage
	Urgency    *urgency.Stage
	Voices     []personality.Voice
	Humor      bool
	When       string
	Text       string
}

// New validates a spec and compiles its condition
func New(s Spec) (*Template, error) {
	if s.ID == "" {
		return nil, fmt.Errorf("template id is required")
	}
	if s.Text == "" {
		return nil, fmt.Errorf("template %s: text is required", s.ID)
	}
	if _, err := ParseCategory(string(s.Category)); err != nil {
		return nil, fmt.Errorf("template %s: %w", s.ID, err)
	}

	t := &Template{
		ID:         s.ID,
		Category:   s.Category,
		Archetypes: append([]personality.Specialization(nil), s.Archetypes...),
		MinStage:   s.MinStage,
		Voices:     append([]personality.Voice(nil), s.Voices...),
		Humor:      s.Humor,
		When:       s.When,
		Text:       s.Text,
		slots:      parseSlots(s.Text),
	}
	if s.Urgency != nil {
		u := *s.Urgency
		t.Urgency = &u
	}

	if s.When != "" {
		program, err := expr.Compile(s.When, expr.AsBool(), expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("template %s: invalid condition: %w", s.ID, err)
		}
		t.program = program
	}

	return t, nil
}

// Slots returns the slot names referenced by the text
func (t *Template) Slots() []string {
	return append([]string(nil), t.slots...)
}

// Generic returns true if the template applies to every archetype
func (t *Template) Generic() bool { return len(t.Archetypes) == 0 }

// HasArchetype returns true if the template lists the archetype explicitly
func (t *Template) HasArchetype(spec personality.Specialization) bool {
	for _, a := range t.Archetypes {
		if a == spec {
			return true
		}
	}
	return false
}

// AllowsVoice returns true if the template has no voice restriction or lists v
func (t *Template) AllowsVoice(v personality.Voice) bool {
	if len(t.Voices) == 0 {
		return true
	}
	for _, allowed := range t.Voices {
		if allowed == v {
			return true
		}
	}
	return false
}

// Matches evaluates the template condition. Templates without one always
// match; evaluation errors count as no match.
func (t *Template) Matches(env map[string]any) bool {
	if t.program == nil {
		return true
	}
	out, err := expr.Run(t.program, env)
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}

// Fill resolves every slot against values
func (t *Template) Fill(values map[string]string) (string, error) {
	return fillSlots(t.Text, values)
}

func (t *Template) urgencyEligible(u *urgency.Stage) bool {
	if t.Urgency == nil {
		return true
	}
	return u != nil && *t.Urgency == *u
}

func (t *Template) urgencyExact(u *urgency.Stage) bool {
	return t.Urgency != nil && u != nil && *t.Urgency == *u
}
