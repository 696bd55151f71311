package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/ledpattern/internal/events"
	"github.com/sweeney/ledpattern/internal/preset"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string        `json:"event,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Preset        PresetJSON    `json:"preset"`
	Channels      []ChannelJSON `json:"channels"`
	Presses       uint64        `json:"presses"`
	Dropped       uint64        `json:"dropped_events"`
	UptimeSeconds int64         `json:"uptime_seconds"`
	StartTime     string        `json:"start_time"`
	Timestamp     string        `json:"timestamp"`
	MQTT          MQTTStatus    `json:"mqtt"`
	Presets       []PresetJSON  `json:"presets"`
	Config        ConfigJSON    `json:"config"`
}

// PresetJSON is the JSON representation of a preset.
type PresetJSON struct {
	Index       int     `json:"index"`
	Name        string  `json:"name"`
	IntervalsMs []int64 `json:"intervals_ms"`
}

// ChannelJSON is the JSON representation of one blinker.
type ChannelJSON struct {
	Name       string `json:"name"`
	State      string `json:"state"`
	IntervalMs int64  `json:"interval_ms"`
	Toggles    uint64 `json:"toggles"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Enabled   bool   `json:"enabled"`
	Connected bool   `json:"connected"`
	Broker    string `json:"broker,omitempty"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip        string `json:"chip"`
	PinLED0     int    `json:"pin_led0"`
	PinLED1     int    `json:"pin_led1"`
	PinButton   int    `json:"pin_button"`
	PresetsFile string `json:"presets_file,omitempty"`
	HTTPAddr    string `json:"http_addr"`
}

func presetJSON(index int, p preset.Preset) PresetJSON {
	ms := make([]int64, len(p.Intervals))
	for i, d := range p.Intervals {
		ms[i] = d.Milliseconds()
	}
	return PresetJSON{Index: index, Name: p.Name, IntervalsMs: ms}
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Preset:        presetJSON(snap.ActiveIndex, snap.Active()),
		Presses:       snap.Presses,
		Dropped:       snap.Dropped,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Enabled:   snap.Config.Broker != "",
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
		},
		Config: ConfigJSON{
			Chip:        snap.Config.Chip,
			PinLED0:     snap.Config.PinLED0,
			PinLED1:     snap.Config.PinLED1,
			PinButton:   snap.Config.PinButton,
			PresetsFile: snap.Config.PresetsFile,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}

	for i, ch := range snap.Channels {
		state := "UNKNOWN"
		if ch.Known {
			state = events.StateString(ch.On)
		}
		inner.Channels = append(inner.Channels, ChannelJSON{
			Name:       string(events.ChannelActor(i)),
			State:      state,
			IntervalMs: ch.Interval.Milliseconds(),
			Toggles:    ch.Toggles,
		})
	}
	for i, p := range snap.Presets {
		inner.Presets = append(inner.Presets, presetJSON(i, p))
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
