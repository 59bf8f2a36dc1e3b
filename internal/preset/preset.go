// Package preset ships curated hyperparameter sets the UI offers as one
// click starting points.
package preset

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/go-gpviz/gpviz/internal/gp"
	"github.com/go-gpviz/gpviz/internal/kernel"
)

// Preset is a named hyperparameter set
type Preset struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Params      gp.Params `json:"params"`
}

type List []Preset

// Find returns the preset with the given name
func (l List) Find(name string) (Preset, bool) {
	for i := range l {
		if l[i].Name == name {
			return l[i], true
		}
	}
	return Preset{}, false
}

// on-disk layout
type presetFile struct {
	Presets []presetEntry `toml:"presets"`
}

type presetEntry struct {
	Name           string  `toml:"name"`
	Description    string  `toml:"description"`
	Kernel         string  `toml:"kernel"`
	LengthScale    float64 `toml:"lengthScale"`
	SignalVariance float64 `toml:"signalVariance"`
	NoiseLevel     float64 `toml:"noiseLevel"`
}

// Load decodes the preset file and validates every entry.
func Load(path string) (List, error) {
	var f presetFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("unable to decode presets %s: %w", path, err)
	}
	if len(f.Presets) == 0 {
		return nil, fmt.Errorf("presets %s: no entries", path)
	}

	list := make(List, 0, len(f.Presets))
	for i := range f.Presets {
		e := f.Presets[i]
		if e.Name == "" {
			return nil, fmt.Errorf("presets %s: entry %d has no name", path, i)
		}
		if _, ok := list.Find(e.Name); ok {
			return nil, fmt.Errorf("presets %s: duplicate name %q", path, e.Name)
		}
		params := gp.Params{
			Kernel:         kernel.Type(e.Kernel),
			LengthScale:    e.LengthScale,
			SignalVariance: e.SignalVariance,
			NoiseLevel:     e.NoiseLevel,
		}
		if err := params.Validate(); err != nil {
			return nil, fmt.Errorf("presets %s: %q: %w", path, e.Name, err)
		}
		list = append(list, Preset{Name: e.Name, Description: e.Description, Params: params})
	}
	return list, nil
}
