package variety

import "github.com/qninhdt/crew-dialogue/server/internal/templates"

const (
	// DefaultSize is how many template IDs are remembered per category
	DefaultSize = 3
	// DefaultDecayTicks is how long a use is remembered (5 min at 20 ticks/s)
	DefaultDecayTicks int64 = 6000
)

// Entry is one remembered use of a template
type Entry struct {
	TemplateID string `json:"template_id"`
	Tick       int64  `json:"tick"`
}

// RecentLog remembers the last few templates used per category, oldest first
type RecentLog struct {
	entries  map[templates.Category][]Entry
	capacity int
}

// NewRecentLog creates a log with the given per-category capacity
func NewRecentLog(capacity int) *RecentLog {
	if capacity <= 0 {
		capacity = DefaultSize
	}
	return &RecentLog{
		entries:  make(map[templates.Category][]Entry),
		capacity: capacity,
	}
}

// Capacity returns the per-category capacity
func (l *RecentLog) Capacity() int {
	return l.capacity
}

// Record appends a use, evicting the oldest entry when the category is full.
// Re-recording an ID moves it to the newest position.
func (l *RecentLog) Record(category templates.Category, id string, tick int64) {
	list := l.entries[category]
	for i, e := range list {
		if e.TemplateID == id {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	list = append(list, Entry{TemplateID: id, Tick: tick})
	for len(list) > l.capacity {
		list = list[1:]
	}
	l.entries[category] = list
}

// Recent returns a copy of the category window, oldest first
func (l *RecentLog) Recent(category templates.Category) []Entry {
	list := l.entries[category]
	result := make([]Entry, len(list))
	copy(result, list)
	return result
}

// Contains returns true if id is in the category window
func (l *RecentLog) Contains(category templates.Category, id string) bool {
	for _, e := range l.entries[category] {
		if e.TemplateID == id {
			return true
		}
	}
	return false
}

// MostRecent returns the newest entry of a category
func (l *RecentLog) MostRecent(category templates.Category) (Entry, bool) {
	list := l.entries[category]
	if len(list) == 0 {
		return Entry{}, false
	}
	return list[len(list)-1], true
}

// Clear empties one category window
func (l *RecentLog) Clear(category templates.Category) {
	delete(l.entries, category)
}

// ClearExcept empties a category window but keeps the entry for keep
func (l *RecentLog) ClearExcept(category templates.Category, keep string) {
	var kept []Entry
	for _, e := range l.entries[category] {
		if e.TemplateID == keep {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(l.entries, category)
		return
	}
	l.entries[category] = kept
}

// Decay drops entries older than window ticks and returns how many were dropped
func (l *RecentLog) Decay(now, window int64) int {
	if window <= 0 {
		return 0
	}
	dropped := 0
	for category, list := range l.entries {
		kept := list[:0]
		for _, e := range list {
			if now-e.Tick > window {
				dropped++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(l.entries, category)
		} else {
			l.entries[category] = kept
		}
	}
	return dropped
}

// Snapshot copies every window for persistence
func (l *RecentLog) Snapshot() map[templates.Category][]Entry {
	out := make(map[templates.Category][]Entry, len(l.entries))
	for category := range l.entries {
		out[category] = l.Recent(category)
	}
	return out
}
