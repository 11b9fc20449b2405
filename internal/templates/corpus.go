package templates

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/qninhdt/crew-dialogue/server/internal/personality"
	"github.com/qninhdt/crew-dialogue/server/internal/relationship"
	"github.com/qninhdt/crew-dialogue/server/internal/urgency"
)

//go:embed corpus/default.yaml
var defaultCorpus []byte

// corpusFile is the on-disk corpus layout
type corpusFile struct {
	Version   int              `yaml:"version"`
	Templates []templateRecord `yaml:"templates"`
}

type templateRecord struct {
	ID         string   `yaml:"id"`
	Category   string   `yaml:"category"`
	Archetypes []string `yaml:"archetypes"`
	MinStage   string   `yaml:"min_stage"`
	Urgency    string   `yaml:"urgency"`
	Voices     []string `yaml:"voices"`
	Humor      bool     `yaml:"humor"`
	When       string   `yaml:"when"`
	Text       string   `yaml:"text"`
}

// Default loads the embedded corpus
func Default() (*Library, error) {
	lib, err := LoadYAML(defaultCorpus)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded corpus: %w", err)
	}
	return lib, nil
}

// LoadFile loads a corpus from a YAML file
func LoadFile(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file %s: %w", path, err)
	}
	return LoadYAML(data)
}

// LoadYAML parses and validates a corpus
func LoadYAML(data []byte) (*Library, error) {
	var file corpusFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal corpus: %w", err)
	}
	if file.Version <= 0 {
		return nil, fmt.Errorf("corpus version is required")
	}

	list := make([]*Template, 0, len(file.Templates))
	for i, rec := range file.Templates {
		spec, err := rec.toSpec()
		if err != nil {
			return nil, fmt.Errorf("template #%d (%s): %w", i, rec.ID, err)
		}
		t, err := New(spec)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}

	return NewLibrary(file.Version, list)
}

func (r templateRecord) toSpec() (Spec, error) {
	category, err := ParseCategory(r.Category)
	if err != nil {
		return Spec{}, err
	}

	spec := Spec{
		ID:       r.ID,
		Category: category,
		Humor:    r.Humor,
		When:     r.When,
		Text:     r.Text,
	}

	for _, a := range r.Archetypes {
		s, err := personality.ParseSpecialization(a)
		if err != nil {
			return Spec{}, err
		}
		spec.Archetypes = append(spec.Archetypes, s)
	}

	if r.MinStage != "" {
		stage, err := relationship.ParseStage(r.MinStage)
		if err != nil {
			return Spec{}, err
		}
		spec.MinStage = stage
	}

	if r.Urgency != "" {
		u, err := urgency.ParseStage(r.Urgency)
		if err != nil {
			return Spec{}, err
		}
		spec.Urgency = &u
	}

	for _, v := range r.Voices {
		voice, err := personality.ParseVoice(v)
		if err != nil {
			return Spec{}, err
		}
		spec.Voices = append(spec.Voices, voice)
	}

	return spec, nil
}
