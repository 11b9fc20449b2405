package interest

import (
	"fmt"

	"github.com/qninhdt/crew-dialogue/server/internal/personality"
)

// EventType is the kind of world event a character may react to
type EventType string

const (
	EventTaskComplete   EventType = "task_complete"
	EventTaskFailed     EventType = "task_failed"
	EventDanger         EventType = "danger"
	EventResourceLow    EventType = "resource_low"
	EventToolWear       EventType = "tool_wear"
	EventWeaponWear     EventType = "weapon_wear"
	EventPlayerGreeting EventType = "player_greeting"
	EventGiftReceived   EventType = "gift_received"
	EventIdle           EventType = "idle"
	EventStructureBuilt EventType = "structure_built"
	EventOreDiscovered  EventType = "ore_discovered"
	EventCropHarvested  EventType = "crop_harvested"
	EventAreaDiscovered EventType = "area_discovered"
	EventItemCrafted    EventType = "item_crafted"
)

// EventTypes lists every event type
var EventTypes = []EventType{
	EventTaskComplete,
	EventTaskFailed,
	EventDanger,
	EventResourceLow,
	EventToolWear,
	EventWeaponWear,
	EventPlayerGreeting,
	EventGiftReceived,
	EventIdle,
	EventStructureBuilt,
	EventOreDiscovered,
	EventCropHarvested,
	EventAreaDiscovered,
	EventItemCrafted,
}

// ParseEventType validates an event type tag
func ParseEventType(s string) (EventType, error) {
	for _, e := range EventTypes {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown event type: %s", s)
}

// DefaultThreshold is the minimum interest level that lets an event through
const DefaultThreshold = 0.3

// interestTable maps specialization to per-event interest. Events missing from
// a row fall back to baseInterest; events missing there are ignored.
var interestTable = map[personality.Specialization]map[EventType]float64{
	personality.SpecExcavation: {
		EventOreDiscovered: 1.0,
		EventToolWear:      0.9,
		EventResourceLow:   0.7,
		EventWeaponWear:    0.3,
		EventCropHarvested: 0.1,
		EventItemCrafted:   0.2,
	},
	personality.SpecConstruction: {
		EventStructureBuilt: 1.0,
		EventResourceLow:    0.9,
		EventToolWear:       0.7,
		EventWeaponWear:     0.2,
		EventCropHarvested:  0.1,
	},
	personality.SpecDefense: {
		EventWeaponWear:     1.0,
		EventToolWear:       0.4,
		EventAreaDiscovered: 0.5,
		EventCropHarvested:  0.0,
		EventStructureBuilt: 0.3,
	},
	personality.SpecExploration: {
		EventAreaDiscovered: 1.0,
		EventOreDiscovered:  0.5,
		EventWeaponWear:     0.5,
		EventToolWear:       0.5,
		EventCropHarvested:  0.2,
	},
	personality.SpecCultivation: {
		EventCropHarvested: 1.0,
		EventResourceLow:   0.8,
		EventToolWear:      0.6,
		EventWeaponWear:    0.0,
		EventOreDiscovered: 0.1,
	},
	personality.SpecCrafting: {
		EventItemCrafted:   1.0,
		EventResourceLow:   0.9,
		EventToolWear:      0.8,
		EventWeaponWear:    0.4,
		EventCropHarvested: 0.2,
	},
}

// baseInterest applies to every specialization
var baseInterest = map[EventType]float64{
	EventDanger:         1.0,
	EventTaskComplete:   0.6,
	EventTaskFailed:     0.7,
	EventPlayerGreeting: 0.5,
	EventGiftReceived:   0.8,
	EventIdle:           0.35,
	EventResourceLow:    0.4,
	EventToolWear:       0.4,
}

// Level returns the interest of a specialization in an event type, in [0,1].
// Unknown event types return 0.
func Level(spec personality.Specialization, event EventType) float64 {
	if row, ok := interestTable[spec]; ok {
		if v, ok := row[event]; ok {
			return v
		}
	}
	return baseInterest[event]
}

// Filter gates events by interest level
type Filter struct {
	threshold float64
}

// NewFilter creates a filter. Thresholds outside (0,1] use the default.
func NewFilter(threshold float64) *Filter {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Filter{threshold: threshold}
}

// Threshold returns the cut-off level
func (f *Filter) Threshold() float64 { return f.threshold }

// Interested reports whether the event clears the threshold, and its level
func (f *Filter) Interested(spec personality.Specialization, event EventType) (float64, bool) {
	level := Level(spec, event)
	return level, level >= f.threshold
}
