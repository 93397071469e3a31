package web

import (
	"fmt"
	"html/template"
	"time"

	"github.com/sweeney/amp-ircontrol/internal/status"
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
	"stateClass": func(s string) string {
		switch s {
		case "ON":
			return "on"
		case "OFF":
			return "off"
		}
		return "unknown"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Amp IR Control</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Amp IR Control<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>State</h2>
<table>
<tr><th>Amplifier</th><td id="amp-state" class="{{stateClass .Amp}}">{{.Amp}}</td></tr>
<tr><th>Source</th><td id="source-state" class="{{stateClass .Source}}">{{.Source}}</td></tr>
<tr><th>Off-delay</th><td id="off-delay">{{if .OffDelayPending}}{{.OffDelayRemaining.Milliseconds}}ms{{else}}idle{{end}}</td></tr>
<tr><th>Indicator</th><td id="led">{{if .LEDActive}}lit{{else}}dark{{end}}</td></tr>
{{if .LastEvent}}<tr><th>Last event</th><td id="last-event">{{.LastEvent}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Requests</h2>
<table>
<tr><th>Amp on</th><td>{{.Counts.AmpOn}}</td></tr>
<tr><th>Amp off</th><td>{{.Counts.AmpOff}}</td></tr>
<tr><th>Delayed off</th><td>{{.Counts.OffDelay}}</td></tr>
<tr><th>IR transmits</th><td>{{.Counts.Transmits}}</td></tr>
<tr><th>Serial</th><td>{{.Counts.Serial}}</td></tr>
<tr><th>Remote</th><td>{{.Counts.Remote}}</td></tr>
<tr><th>Remote rejected</th><td>{{.Counts.Malformed}} malformed, {{.Counts.Foreign}} foreign, {{.Counts.Unmapped}} unmapped</td></tr>
<tr><th>Dropped input</th><td id="dropped">{{.Dropped.Serial}} serial, {{.Dropped.Remote}} remote</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Off-delay</th><td>{{.Config.OffDelayMs}}ms</td></tr>
<tr><th>LED window</th><td>{{.Config.LEDWindowMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>IR output</th><td>{{if .Config.IRDevice}}{{.Config.IRDevice}}{{else}}GPIO{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  var ampEl = document.getElementById("amp-state");
  var srcEl = document.getElementById("source-state");
  var delayEl = document.getElementById("off-delay");
  var ledEl = document.getElementById("led");

  function setState(el, state) {
    el.textContent = state;
    el.className = state === "ON" ? "on" : state === "OFF" ? "off" : "unknown";
  }

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onerror = function() { setDot("err", "error"); };
    ws.onclose = function() {
      setDot("pending", "reconnecting");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var msg = JSON.parse(ev.data);
        if (msg.type !== "status") return;
        setState(ampEl, msg.data.amp);
        setState(srcEl, msg.data.source);
        delayEl.textContent = msg.data.off_delay.pending ? msg.data.off_delay.remaining_ms + "ms" : "idle";
        ledEl.textContent = msg.data.led ? "lit" : "dark";
      } catch (e) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

// page is the template view of a snapshot.
type page struct {
	status.Snapshot
	Amp    string
	Source string
	Uptime time.Duration
}

func newPage(snap status.Snapshot) page {
	p := page{Snapshot: snap, Amp: string(snap.Amp), Source: string(snap.Source), Uptime: snap.Uptime()}
	if p.Amp == "" {
		p.Amp = "UNKNOWN"
	}
	if p.Source == "" {
		p.Source = "UNKNOWN"
	}
	return p
}
