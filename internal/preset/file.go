package preset

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk layout of a preset file.
type fileConfig struct {
	Presets []filePreset `yaml:"presets"`
}

type filePreset struct {
	Name string `yaml:"name"`

	// IntervalsMs holds one interval per channel, in milliseconds.
	IntervalsMs []int `yaml:"intervals_ms"`
}

// Load reads a preset table from a YAML file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a preset table from YAML.
func Parse(data []byte) (*Table, error) {
	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}

	presets := make([]Preset, 0, len(cfg.Presets))
	for i, fp := range cfg.Presets {
		if len(fp.IntervalsMs) != Channels {
			return nil, fmt.Errorf("preset %d (%q): want %d intervals, got %d", i, fp.Name, Channels, len(fp.IntervalsMs))
		}
		p := Preset{Name: fp.Name}
		if p.Name == "" {
			p.Name = fmt.Sprintf("preset-%d", i)
		}
		for ch, ms := range fp.IntervalsMs {
			p.Intervals[ch] = time.Duration(ms) * time.Millisecond
		}
		presets = append(presets, p)
	}
	return New(presets)
}
