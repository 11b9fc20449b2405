package templates

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingSlot is returned when a slot has no value
var ErrMissingSlot = errors.New("missing slot value")

// parseSlots lists the {name} placeholders in order of first appearance
func parseSlots(text string) []string {
	var slots []string
	seen := make(map[string]bool)
	scanSlots(text, func(name string) {
		if !seen[name] {
			seen[name] = true
			slots = append(slots, name)
		}
	})
	return slots
}

// fillSlots replaces every {name} with its value. Empty values count as
// missing so unresolved placeholders never reach the player.
func fillSlots(text string, values map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(text); {
		name, end, ok := slotAt(text, i)
		if !ok {
			b.WriteByte(text[i])
			i++
			continue
		}
		v := values[name]
		if v == "" {
			return "", fmt.Errorf("%w: %s", ErrMissingSlot, name)
		}
		b.WriteString(v)
		i = end
	}
	return b.String(), nil
}

func scanSlots(text string, fn func(name string)) {
	for i := 0; i < len(text); {
		name, end, ok := slotAt(text, i)
		if !ok {
			i++
			continue
		}
		fn(name)
		i = end
	}
}

// slotAt reports whether a placeholder starts at i, returning its name and the
// index just past the closing brace
func slotAt(text string, i int) (string, int, bool) {
	if text[i] != '{' {
		return "", 0, false
	}
	j := i + 1
	for j < len(text) && isSlotChar(text[j]) {
		j++
	}
	if j == i+1 || j >= len(text) || text[j] != '}' {
		return "", 0, false
	}
	return text[i+1 : j], j + 1, true
}

func isSlotChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
