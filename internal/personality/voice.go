package personality

import "fmt"

// Voice is the communication style a character speaks in
type Voice string

const (
	VoiceSteady Voice = "steady"
	VoiceFormal Voice = "formal"
	VoiceWarm   Voice = "warm"
	VoiceWitty  Voice = "witty"
	VoiceGruff  Voice = "gruff"
)

// Voices lists every voice
var Voices = []Voice{VoiceSteady, VoiceFormal, VoiceWarm, VoiceWitty, VoiceGruff}

// ParseVoice validates a voice tag
func ParseVoice(s string) (Voice, error) {
	for _, v := range Voices {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown voice: %s", s)
}

// resolveVoice picks the first rule that matches, in priority order
func resolveVoice(t Traits, humor float64) Voice {
	switch {
	case humor >= 0.6:
		return VoiceWitty
	case t.Conscientiousness >= 0.7 && t.Extraversion < 0.5:
		return VoiceFormal
	case t.Agreeableness >= 0.7:
		return VoiceWarm
	case t.Agreeableness < 0.3 || t.Stability < 0.3:
		return VoiceGruff
	default:
		return VoiceSteady
	}
}
