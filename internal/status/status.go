// Package status provides a thread-safe status tracker for the ledpattern daemon.
// It is fed by the event consumer and read by HTTP handlers and MQTT
// lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/ledpattern/internal/events"
	"github.com/sweeney/ledpattern/internal/preset"
)

// Config contains daemon configuration for display.
type Config struct {
	Chip        string
	PinLED0     int
	PinLED1     int
	PinButton   int
	PresetsFile string // empty = built-in table
	Broker      string // empty = MQTT disabled
	HTTPAddr    string
}

// ChannelStatus is the last reported state of one blinker.
type ChannelStatus struct {
	Known    bool // false until the first toggle is seen
	On       bool
	Interval time.Duration
	Toggles  uint64
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Presets       []preset.Preset
	ActiveIndex   int
	Channels      [preset.Channels]ChannelStatus
	Presses       uint64
	Dropped       uint64
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Active returns the active preset.
func (s Snapshot) Active() preset.Preset {
	if s.ActiveIndex < 0 || s.ActiveIndex >= len(s.Presets) {
		return preset.Preset{}
	}
	return s.Presets[s.ActiveIndex]
}

// IndexSource reports the active preset index. selector.Selector
// satisfies it.
type IndexSource interface {
	Read() int
}

// PressCounter reports how many button edges have been handled.
// trigger.Handler satisfies it.
type PressCounter interface {
	Presses() uint64
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu      sync.RWMutex
	snap    Snapshot
	index   IndexSource
	presses PressCounter
}

// NewTracker creates a Tracker for table, started at startTime.
func NewTracker(startTime time.Time, table *preset.Table, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Presets:   table.Presets(),
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Follow makes Snapshot read the active index and press count from the
// given sources instead of from applied preset events. Preset events may be
// dropped by the queue; the sources never miss a press.
func (t *Tracker) Follow(index IndexSource, presses PressCounter) {
	t.mu.Lock()
	t.index = index
	t.presses = presses
	t.mu.Unlock()
}

// Apply folds an event into the tracked state.
// Preset events only count when the tracker is not following a selector.
func (t *Tracker) Apply(e events.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e.Kind {
	case events.KindToggle:
		if e.Channel < 0 || e.Channel >= preset.Channels {
			return
		}
		ch := &t.snap.Channels[e.Channel]
		ch.Known = true
		ch.On = e.On
		ch.Interval = e.Interval
		ch.Toggles++
	case events.KindPreset:
		t.snap.ActiveIndex = e.Index
		t.snap.Presses++
	}
}

// SetDropped records how many events the queue has dropped.
func (t *Tracker) SetDropped(n uint64) {
	t.mu.Lock()
	t.snap.Dropped = n
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Presets = append([]preset.Preset(nil), t.snap.Presets...)
	index, presses := t.index, t.presses
	t.mu.RUnlock()
	if index != nil {
		s.ActiveIndex = index.Read()
	}
	if presses != nil {
		s.Presses = presses.Presses()
	}
	s.Now = time.Now()
	return s
}
