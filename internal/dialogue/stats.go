package dialogue

import (
	"sort"

	"github.com/qninhdt/crew-dialogue/server/internal/interest"
)

// SkipReason names why an offered event produced no line
type SkipReason string

const (
	SkipUninterested SkipReason = "uninterested"
	SkipNotDue       SkipReason = "not_due"
	SkipCooldown     SkipReason = "cooldown"
)

// DefaultDecisionHistory bounds the per-character decision log
const DefaultDecisionHistory = 100

// Decision is the outcome of one event offered to a character
type Decision struct {
	Tick       int64              `json:"tick"`
	Event      interest.EventType `json:"event"`
	Spoke      bool               `json:"spoke"`
	Reason     SkipReason         `json:"reason,omitempty"`
	Rapport    int                `json:"rapport"`
	TemplateID string             `json:"template_id,omitempty"`
}

// TriggerCount is how often one event type made the character speak
type TriggerCount struct {
	Event interest.EventType `json:"event"`
	Count int                `json:"count"`
}

// Stats summarises every decision an orchestrator has made
type Stats struct {
	Triggered   int                `json:"triggered"`
	Skipped     int                `json:"skipped"`
	SkipReasons map[SkipReason]int `json:"skip_reasons"`
	// Unprompted counts lines spoken from Tick: transitions and overdue reports
	Unprompted  int            `json:"unprompted"`
	Fallbacks   int            `json:"fallbacks"`
	TriggerRate float64        `json:"trigger_rate"`
	TopTriggers []TriggerCount `json:"top_triggers"`
}

// decisionLog keeps the bounded decision history and the running counters
type decisionLog struct {
	limit      int
	history    []Decision
	triggered  int
	skipped    map[SkipReason]int
	unprompted int
	fallbacks  int
	byEvent    map[interest.EventType]int
}

func newDecisionLog(limit int) *decisionLog {
	if limit <= 0 {
		limit = DefaultDecisionHistory
	}
	return &decisionLog{
		limit:   limit,
		skipped: make(map[SkipReason]int),
		byEvent: make(map[interest.EventType]int),
	}
}

func (l *decisionLog) record(d Decision) {
	if d.Spoke {
		l.triggered++
		l.byEvent[d.Event]++
	} else {
		l.skipped[d.Reason]++
	}
	l.history = append(l.history, d)
	if over := len(l.history) - l.limit; over > 0 {
		l.history = append(l.history[:0], l.history[over:]...)
	}
}

func (l *decisionLog) recent() []Decision {
	out := make([]Decision, len(l.history))
	copy(out, l.history)
	return out
}

func (l *decisionLog) stats(top int) Stats {
	s := Stats{
		Triggered:   l.triggered,
		SkipReasons: make(map[SkipReason]int, len(l.skipped)),
		Unprompted:  l.unprompted,
		Fallbacks:   l.fallbacks,
		TopTriggers: make([]TriggerCount, 0, len(l.byEvent)),
	}
	for reason, n := range l.skipped {
		s.SkipReasons[reason] = n
		s.Skipped += n
	}
	if total := s.Triggered + s.Skipped; total > 0 {
		s.TriggerRate = float64(s.Triggered) / float64(total)
	}
	for ev, n := range l.byEvent {
		s.TopTriggers = append(s.TopTriggers, TriggerCount{Event: ev, Count: n})
	}
	sort.Slice(s.TopTriggers, func(i, j int) bool {
		a, b := s.TopTriggers[i], s.TopTriggers[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Event < b.Event
	})
	if top > 0 && len(s.TopTriggers) > top {
		s.TopTriggers = s.TopTriggers[:top]
	}
	return s
}
