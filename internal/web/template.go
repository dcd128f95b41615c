package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/crossing-rig/internal/status"
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
	"orDash": func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Crossing Rig</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.OFF { color: #888; }
.ON { color: green; font-weight: bold; }
.ROTATING, .STOPPING_TO_OFF { color: blue; font-weight: bold; }
.EMERGENCY { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Crossing Rig<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>State</h2>
<table>
<tr><th>Phase</th><td id="phase" class="{{.Phase}}">{{.Phase}}</td></tr>
<tr><th>Mode</th><td id="mode">{{orDash .Rig.Mode}}</td></tr>
<tr><th>Speed</th><td id="speed">{{printf "%d" .Rig.Current}}ms (target {{printf "%d" .Rig.Target}}ms)</td></tr>
<tr><th>Walk light</th><td id="walk">{{.Rig.WalkIndex}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{orDash .Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}} {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>ON</th><td>{{.Counts.On}}</td></tr>
<tr><th>OFF</th><td>{{.Counts.Off}}</td></tr>
<tr><th>Rotation start</th><td>{{.Counts.RotationStart}}</td></tr>
<tr><th>Stop requested</th><td>{{.Counts.StopRequested}}</td></tr>
<tr><th>Rotation end</th><td>{{.Counts.RotationEnd}}</td></tr>
<tr><th>Emergency</th><td>{{.Counts.Emergency}}</td></tr>
<tr><th>Dropped</th><td>{{.Dropped}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Ramp</th><td>{{.Config.RampMs}}ms</td></tr>
<tr><th>Walk</th><td>{{.Config.WalkMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
<tr><th>Hardware</th><td>{{if .Config.Simulated}}simulated{{else}}gpio{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var phase = document.getElementById("phase");
  var mode = document.getElementById("mode");
  var speed = document.getElementById("speed");
  var walk = document.getElementById("walk");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var rig = JSON.parse(ev.data).status.rig;
        phase.textContent = rig.phase;
        phase.className = rig.phase;
        mode.textContent = rig.mode || "-";
        speed.textContent = rig.current_ms + "ms (target " + rig.target_ms + "ms)";
        walk.textContent = rig.walk_index;
      } catch (e) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() and Rig.Phase() methods but the template wants fields.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Phase  string
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Phase:    string(snap.Rig.Phase()),
	}
	return indexTmpl.Execute(w, data)
}
