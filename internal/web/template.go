package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/bench-rover/internal/status"
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
	"onOff": func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Bench Rover</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.fault { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
pre { background: #f4f4f4; padding: 0.5em; min-height: 2em; }
</style>
</head>
<body>
<h1>Bench Rover</h1>

<h2>Motion</h2>
<table>
<tr><th>State</th><td>{{.Rover.Motion.Kind}}{{if eq .Rover.Motion.Kind.String "AVOIDING"}} ({{.Rover.Motion.Phase.Step}}){{end}}</td></tr>
<tr><th>Direction</th><td>{{.Rover.Motion.Direction}}</td></tr>
<tr><th>Speed</th><td>{{.Rover.Motion.Speed}}</td></tr>
<tr><th>Default speed</th><td>{{.Rover.Speed}}</td></tr>
<tr><th>Indicator</th><td>{{.Rover.Indicator}}</td></tr>
</table>

<h2>Sensor</h2>
<table>
<tr><th>Distance</th><td>{{.Rover.Distance}} cm</td></tr>
<tr><th>Health</th><td class="{{if .Rover.SensorFault}}fault{{else}}on{{end}}">{{if .Rover.SensorFault}}fault ({{.Rover.Failures}} failures){{else}}ok{{end}}</td></tr>
<tr><th>Obstacle avoidance</th><td class="{{onOff .Rover.AvoidEnabled}}">{{onOff .Rover.AvoidEnabled}}</td></tr>
<tr><th>Debug</th><td class="{{onOff .Rover.Debug}}">{{onOff .Rover.Debug}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
{{range .Links}}<tr><th>{{.Name}}</th><td class="{{if .Connected}}connected{{else}}disconnected{{end}}">{{if .Connected}}connected{{else}}disconnected{{end}}</td></tr>
{{end}}<tr><th>MQTT</th><td class="{{if .MQTT.Connected}}connected{{else}}disconnected{{end}}">{{if .MQTT.Connected}}connected{{else}}disconnected{{end}}{{if .MQTT.Queued}} ({{.MQTT.Queued}} queued){{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Timed moves</th><td>{{.Counts.TimedMoves}}</td></tr>
<tr><th>Avoidances</th><td>{{.Counts.Avoidances}}</td></tr>
<tr><th>Obstacles</th><td>{{.Counts.Obstacles}}</td></tr>
<tr><th>Sensor faults</th><td>{{.Counts.SensorFaults}}</td></tr>
<tr><th>Sensor recoveries</th><td>{{.Counts.SensorRecoveries}}</td></tr>
</table>

<h2>Command</h2>
<form id="cmd-form">
<input id="cmd" name="cmd" autocomplete="off" placeholder="help">
<button type="submit">Send</button>
</form>
<pre id="cmd-out"></pre>

<h2>System</h2>
<table>
<tr><th>Boot</th><td>{{.BootID}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Turn</th><td>{{.Config.TurnMsPer90}}ms per 90&deg;</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var form = document.getElementById("cmd-form");
  var input = document.getElementById("cmd");
  var out = document.getElementById("cmd-out");
  form.addEventListener("submit", function(e) {
    e.preventDefault();
    fetch("/command", { method: "POST", body: input.value })
      .then(function(r) { return r.text(); })
      .then(function(t) { out.textContent = t; input.value = ""; })
      .catch(function(err) { out.textContent = String(err); });
  });
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
