// Package preset holds the fixed table of blink intervals.
// A Table is immutable once built; callers index it with values kept in
// range by the selector, so an out-of-range lookup is a bug and panics.
package preset

import (
	"errors"
	"fmt"
	"time"
)

// Channels is the number of output channels each preset carries an interval for.
const Channels = 2

// Preset is a named pair of blink intervals, one per output channel.
type Preset struct {
	Name      string
	Intervals [Channels]time.Duration
}

// Table is an ordered, immutable list of presets.
type Table struct {
	presets []Preset
}

// Default returns the built-in table: channel 0 goes slow to fast while
// channel 1 goes fast to slow.
func Default() *Table {
	t, err := New([]Preset{
		{Name: "slow-fast", Intervals: [Channels]time.Duration{1000 * time.Millisecond, 100 * time.Millisecond}},
		{Name: "even", Intervals: [Channels]time.Duration{500 * time.Millisecond, 500 * time.Millisecond}},
		{Name: "fast-slow", Intervals: [Channels]time.Duration{100 * time.Millisecond, 1000 * time.Millisecond}},
	})
	if err != nil {
		panic(err)
	}
	return t
}

// New builds a Table from presets. The slice is copied.
func New(presets []Preset) (*Table, error) {
	if len(presets) == 0 {
		return nil, errors.New("preset table is empty")
	}
	for i, p := range presets {
		for ch, d := range p.Intervals {
			if d <= 0 {
				return nil, fmt.Errorf("preset %d (%q): channel %d interval must be positive, got %v", i, p.Name, ch, d)
			}
		}
	}
	cp := make([]Preset, len(presets))
	copy(cp, presets)
	return &Table{presets: cp}, nil
}

// Len returns the number of presets.
func (t *Table) Len() int {
	return len(t.presets)
}

// Get returns the interval configured for channel at index.
func (t *Table) Get(channel, index int) time.Duration {
	if channel < 0 || channel >= Channels {
		panic(fmt.Sprintf("preset: channel %d out of range [0,%d)", channel, Channels))
	}
	return t.Preset(index).Intervals[channel]
}

// Preset returns the preset at index.
func (t *Table) Preset(index int) Preset {
	if index < 0 || index >= len(t.presets) {
		panic(fmt.Sprintf("preset: index %d out of range [0,%d)", index, len(t.presets)))
	}
	return t.presets[index]
}

// Presets returns a copy of all presets in order.
func (t *Table) Presets() []Preset {
	cp := make([]Preset, len(t.presets))
	copy(cp, t.presets)
	return cp
}
