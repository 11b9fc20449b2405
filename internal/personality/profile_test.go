package personality

import (
	"math"
	"testing"
)

// TestNewProfileClamps tests that trait scalars are clamped to [0,1]
func TestNewProfileClamps(t *testing.T) {
	p := NewProfile(Traits{
		Openness:          1.7,
		Conscientiousness: -0.2,
		Extraversion:      0.5,
		Agreeableness:     math.NaN(),
		Stability:         1,
	}, SpecDefense, 3)

	tr := p.Traits()
	if tr.Openness != 1 {
		t.Errorf("Expected openness 1, got %f", tr.Openness)
	}
	if tr.Conscientiousness != 0 {
		t.Errorf("Expected conscientiousness 0, got %f", tr.Conscientiousness)
	}
	if tr.Agreeableness != 0 {
		t.Errorf("Expected NaN agreeableness clamped to 0, got %f", tr.Agreeableness)
	}
	if p.HumorAffinity() != 1 {
		t.Errorf("Expected humor 1, got %f", p.HumorAffinity())
	}
}

// TestResolveVoice tests voice resolution priority
func TestResolveVoice(t *testing.T) {
	tests := []struct {
		name   string
		traits Traits
		humor  float64
		want   Voice
	}{
		{"witty wins", Traits{Conscientiousness: 0.9, Agreeableness: 0.9}, 0.8, VoiceWitty},
		{"formal", Traits{Conscientiousness: 0.8, Extraversion: 0.2, Agreeableness: 0.9, Stability: 0.5}, 0.1, VoiceFormal},
		{"warm", Traits{Conscientiousness: 0.5, Extraversion: 0.8, Agreeableness: 0.8, Stability: 0.5}, 0.1, VoiceWarm},
		{"gruff", Traits{Agreeableness: 0.2, Stability: 0.6}, 0.1, VoiceGruff},
		{"steady", Traits{Openness: 0.5, Conscientiousness: 0.5, Extraversion: 0.5, Agreeableness: 0.5, Stability: 0.5}, 0.3, VoiceSteady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProfile(tt.traits, SpecCrafting, tt.humor)
			if p.Voice() != tt.want {
				t.Errorf("Expected voice %s, got %s", tt.want, p.Voice())
			}
		})
	}
}

// TestParseSpecialization tests specialization parsing
func TestParseSpecialization(t *testing.T) {
	spec, err := ParseSpecialization("cultivation")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if spec != SpecCultivation {
		t.Errorf("Expected cultivation, got %s", spec)
	}

	if _, err := ParseSpecialization("piloting"); err == nil {
		t.Error("Expected error for unknown specialization")
	}
}

// TestLevelDescription tests trait banding
func TestLevelDescription(t *testing.T) {
	if LevelDescription(0.1) != "very low" {
		t.Errorf("Expected 'very low', got '%s'", LevelDescription(0.1))
	}
	if LevelDescription(0.5) != "average" {
		t.Errorf("Expected 'average', got '%s'", LevelDescription(0.5))
	}
	if LevelDescription(0.95) != "very high" {
		t.Errorf("Expected 'very high', got '%s'", LevelDescription(0.95))
	}
}

// TestEnv tests the condition environment
func TestEnv(t *testing.T) {
	p := NewProfile(Traits{Extraversion: 0.75}, SpecExploration, 0.2)
	env := p.Env()

	if env["extraversion"] != 0.75 {
		t.Errorf("Expected extraversion 0.75, got %v", env["extraversion"])
	}
	if env["specialization"] != "exploration" {
		t.Errorf("Expected specialization 'exploration', got %v", env["specialization"])
	}
}
