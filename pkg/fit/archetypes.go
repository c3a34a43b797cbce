package fit

import (
	"fmt"
	"os"

	"github.com/go-playground/validator"
	"gopkg.in/yaml.v3"
)

// Archetype is one externally authored career or business profile. Read-only
// reference data, never mutated by the pipeline.
type Archetype struct {
	Name               string             `yaml:"name" json:"name" validate:"required"`
	Description        string             `yaml:"description" json:"description"`
	Requires           map[string]float64 `yaml:"requires" json:"requires"`
	Avoid              map[string]float64 `yaml:"avoid" json:"avoid"`
	RecommendedActions []string           `yaml:"recommended_actions" json:"recommended_actions"`
}

type archetypeFile struct {
	Archetypes []Archetype `yaml:"archetypes" validate:"required,min=1,dive"`
}

// LoadArchetypes reads and validates an archetype YAML file, preserving
// declaration order.
func LoadArchetypes(path string) ([]Archetype, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archetypes: %w", err)
	}

	var file archetypeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse archetypes %s: %w", path, err)
	}
	if err := validator.New().Struct(&file); err != nil {
		return nil, fmt.Errorf("invalid archetypes %s: %w", path, err)
	}
	return file.Archetypes, nil
}
