package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	idPattern        = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	milestonePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// MaxTicksPerAdvance bounds a single clock advance
const MaxTicksPerAdvance = 10000

func validateID(kind, id string, max int) error {
	if len(id) == 0 || len(id) > max {
		return fmt.Errorf("%s ID must be 1-%d characters", kind, max)
	}

	// Allow alphanumeric, hyphens, underscores
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%s ID can only contain alphanumeric characters, hyphens, and underscores", kind)
	}

	return nil
}

// ValidateSessionID validates session ID format
func ValidateSessionID(id string) error {
	return validateID("session", id, 64)
}

// ValidateCharacterID validates character ID format
func ValidateCharacterID(id string) error {
	return validateID("character", id, 64)
}

// ValidatePlayerID validates player ID format
func ValidatePlayerID(id string) error {
	return validateID("player", id, 64)
}

// ValidateQuantityID validates resource or tool ID format
func ValidateQuantityID(id string) error {
	return validateID("quantity", id, 128)
}

// ValidateName validates a display name used in dialogue slots
func ValidateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n == 0 || n > 40 {
		return fmt.Errorf("name must be 1-40 characters")
	}
	if strings.ContainsAny(name, "{}\n\r") {
		return fmt.Errorf("name cannot contain braces or line breaks")
	}
	return nil
}

// ValidateTicks validates a clock advance
func ValidateTicks(ticks int64) error {
	if ticks < 1 || ticks > MaxTicksPerAdvance {
		return fmt.Errorf("ticks must be between 1 and %d", MaxTicksPerAdvance)
	}
	return nil
}

// ValidateFraction validates a remaining or replenished fraction
func ValidateFraction(f float64) error {
	if f < 0 || f > 1 {
		return fmt.Errorf("fraction must be between 0 and 1")
	}
	return nil
}

// ValidateMilestoneKind validates milestone kind format
func ValidateMilestoneKind(kind string) error {
	if len(kind) == 0 || len(kind) > 64 || !milestonePattern.MatchString(kind) {
		return fmt.Errorf("milestone kind must be 1-64 lowercase characters, digits, or underscores")
	}
	return nil
}

// ValidateMagnitude validates a supplied milestone magnitude
func ValidateMagnitude(magnitude int) error {
	if magnitude < -100 || magnitude > 100 {
		return fmt.Errorf("magnitude must be between -100 and 100")
	}
	return nil
}
