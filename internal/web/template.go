package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/ledpattern/internal/events"
	"github.com/sweeney/ledpattern/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"channelName": func(i int) string {
		return string(events.ChannelActor(i))
	},
	"channelState": func(ch status.ChannelStatus) string {
		if !ch.Known {
			return "UNKNOWN"
		}
		return events.StateString(ch.On)
	},
	"ms": func(d time.Duration) int64 {
		return d.Milliseconds()
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>LED Pattern</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.active { font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>LED Pattern</h1>

<h2>Channels</h2>
<table>
{{range $i, $ch := .Channels}}{{$state := channelState $ch}}<tr><th>{{channelName $i}}</th><td class="{{if eq $state "ON"}}on{{else if eq $state "OFF"}}off{{else}}unknown{{end}}">{{$state}}</td><td>{{ms $ch.Interval}} ms</td><td>{{$ch.Toggles}} toggles</td></tr>
{{end}}</table>

<h2>Presets</h2>
<table>
{{$active := .ActiveIndex}}{{range $i, $p := .Presets}}<tr{{if eq $i $active}} class="active"{{end}}><th>{{if eq $i $active}}&#9654; {{end}}{{$i}}: {{$p.Name}}</th>{{range $p.Intervals}}<td>{{ms .}} ms</td>{{end}}</tr>
{{end}}</table>
<p>Button presses: {{.Presses}}</p>

<h2>Connectivity</h2>
<table>
{{if .Config.Broker}}<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>{{else}}<tr><th>MQTT</th><td>disabled</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>GPIO</th><td>{{.Config.Chip}} led0={{.Config.PinLED0}} led1={{.Config.PinLED1}} button={{.Config.PinButton}}</td></tr>
<tr><th>Dropped events</th><td>{{.Dropped}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
