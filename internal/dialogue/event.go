package dialogue

import (
	"fmt"
	"math"

	"github.com/qninhdt/crew-dialogue/server/internal/interest"
	"github.com/qninhdt/crew-dialogue/server/internal/relationship"
	"github.com/qninhdt/crew-dialogue/server/internal/templates"
	"github.com/qninhdt/crew-dialogue/server/internal/urgency"
)

// GameEvent is a world event offered to a character
type GameEvent struct {
	Type interest.EventType `json:"type"`
	// QuantityID names the tracked resource or tool the event concerns
	QuantityID   string       `json:"quantity_id,omitempty"`
	QuantityKind urgency.Kind `json:"quantity_kind,omitempty"`
	Severity     float64      `json:"severity,omitempty"`
}

// GameContext is the read-only world snapshot supplied with an event
type GameContext struct {
	Tick       int64  `json:"tick"`
	PlayerName string `json:"player_name"`
	Location   string `json:"location,omitempty"`
	// SubjectName is the display name of the tool or resource
	SubjectName string `json:"subject_name,omitempty"`
	// Fraction is the current remaining fraction of the subject quantity
	Fraction *float64 `json:"fraction,omitempty"`
	// Relationship is the rapport tracker for this character and player
	Relationship *relationship.Tracker `json:"-"`
}

// stage returns the relationship stage, Stranger when no tracker is supplied
func (c GameContext) stage() relationship.Stage {
	if c.Relationship == nil {
		return relationship.StageStranger
	}
	return c.Relationship.CurrentStage()
}

func (c GameContext) rapport() int {
	if c.Relationship == nil {
		return relationship.DefaultInitialRapport
	}
	return c.Relationship.Rapport()
}

// CategoryFor maps an event type to the template category it speaks from
func CategoryFor(ev interest.EventType) templates.Category {
	switch ev {
	case interest.EventTaskComplete, interest.EventStructureBuilt, interest.EventOreDiscovered,
		interest.EventCropHarvested, interest.EventAreaDiscovered, interest.EventItemCrafted:
		return templates.CategorySuccess
	case interest.EventTaskFailed:
		return templates.CategoryFailure
	case interest.EventDanger:
		return templates.CategoryDanger
	case interest.EventResourceLow, interest.EventToolWear, interest.EventWeaponWear:
		return templates.CategoryWarning
	case interest.EventPlayerGreeting:
		return templates.CategoryGreeting
	case interest.EventGiftReceived:
		return templates.CategoryGratitude
	default:
		return templates.CategoryIdle
	}
}

// fallbackLines are used when no template survives lookup and slot filling.
// They carry no slots so they can always be emitted.
var fallbackLines = map[templates.Category]string{
	templates.CategoryGreeting:  "Hello.",
	templates.CategorySuccess:   "Done.",
	templates.CategoryFailure:   "That didn't work.",
	templates.CategoryWarning:   "Something needs attention.",
	templates.CategoryDanger:    "Watch out!",
	templates.CategoryGratitude: "Thanks.",
	templates.CategoryIdle:      "Standing by.",
	templates.CategoryMilestone: "Good working with you.",
}

// FallbackLine returns the hard-coded line for a category
func FallbackLine(category templates.Category) string {
	if line, ok := fallbackLines[category]; ok {
		return line
	}
	return "Understood."
}

// slotValues resolves the named slots available for one utterance. Values
// that are unknown are left out so templates needing them are rejected.
func slotValues(speaker string, ctx GameContext, kind urgency.Kind, fraction *float64) map[string]string {
	values := make(map[string]string, 7)
	put := func(k, v string) {
		if v != "" {
			values[k] = v
		}
	}
	put("speaker", speaker)
	put("player", ctx.PlayerName)
	put("location", ctx.Location)
	put("item", ctx.SubjectName)
	switch kind {
	case urgency.KindTool:
		put("tool", ctx.SubjectName)
	case urgency.KindResource:
		put("resource", ctx.SubjectName)
	}
	if fraction != nil {
		put("percent", fmt.Sprintf("%d%%", int(math.Round(*fraction*100))))
	}
	return values
}
