package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/caderneta-api/internal/models"
)

// DefaultPreset is used when a finalize request names no preset.
const DefaultPreset = "default"

// WeightPresets maps preset names to ordered work type weights.
type WeightPresets map[string]models.WeightConfig

type presetsFile struct {
	Presets map[string]models.WeightConfig `yaml:"presets"`
}

// DefaultWeightPresets returns the built-in presets.
func DefaultWeightPresets() WeightPresets {
	return WeightPresets{
		DefaultPreset: {
			{Type: models.WorkTypeProva, Weight: 6},
			{Type: models.WorkTypeTrabalho, Weight: 4},
		},
	}
}

// LoadWeightPresets reads presets from a YAML file of the form
//
//	presets:
//	  default:
//	    - type: PROVA
//	      weight: 6
//
// An empty path yields the built-in presets. The built-in default is kept
// unless the file overrides it.
func LoadWeightPresets(path string) (WeightPresets, error) {
	presets := DefaultWeightPresets()
	if path == "" {
		return presets, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weight presets: %w", err)
	}

	var file presetsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse weight presets %s: %w", path, err)
	}
	for name, weights := range file.Presets {
		presets[name] = weights
	}
	return presets, nil
}

// Lookup returns a copy of the named preset.
func (p WeightPresets) Lookup(name string) (models.WeightConfig, bool) {
	if name == "" {
		name = DefaultPreset
	}
	weights, ok := p[name]
	if !ok {
		return nil, false
	}
	return append(models.WeightConfig(nil), weights...), true
}
