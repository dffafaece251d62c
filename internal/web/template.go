package web

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"time"

	"github.com/sweeney/lamp-monitor/internal/logic"
	"github.com/sweeney/lamp-monitor/internal/status"
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
	"pct": func(f float64) string {
		return fmt.Sprintf("%.0f%%", f*100)
	},
	"lower": func(s string) string {
		switch s {
		case "RED":
			return "red"
		case "GREEN":
			return "green"
		default:
			return "unknown"
		}
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Lamp Monitor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.red { color: red; font-weight: bold; }
.green { color: green; font-weight: bold; }
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
<h1>Lamp Monitor{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Lamps</h2>
<table>
<tr><th>Lamp</th><td>State</td><td>Confidence</td></tr>
{{range .LampRows}}<tr><th>Lamp {{.ID}}</th><td id="lamp-{{.ID}}" class="{{lower .State}}">{{.State}}</td><td>{{pct .Confidence}}</td></tr>
{{end}}</table>

<h2>Pipeline</h2>
<table>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
<tr><th>Red lamps</th><td>{{.RedCount}}</td></tr>
<tr><th>Frames</th><td>{{.FramesProcessed}} ({{printf "%.1f" .FPS}} fps)</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}} — {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>To RED</th><td>{{.Counts.ToRed}}</td></tr>
<tr><th>To GREEN</th><td>{{.Counts.ToGreen}}</td></tr>
<tr><th>To UNKNOWN</th><td>{{.Counts.ToUnknown}}</td></tr>
</table>

<h2>Notifications</h2>
<table>
<tr><th>Sent</th><td>{{.Notify.Sent}}</td></tr>
<tr><th>Failed</th><td>{{.Notify.Failed}}</td></tr>
<tr><th>Suppressed</th><td>{{.Notify.Suppressed}}</td></tr>
<tr><th>Dropped</th><td>{{.Notify.Dropped}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .UptimeDur}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Window</th><td>{{.Config.FramesWindow}} frames</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Config.WSBroker}}
<script src="/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "factory/lamp-monitor/events";
  var dot = document.getElementById("live-dot");

  function setState(el, state) {
    el.textContent = state;
    el.className = state === "RED" ? "red" : state === "GREEN" ? "green" : "unknown";
  }

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(topic);
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      if (msg.lamp) {
        var el = document.getElementById("lamp-" + msg.lamp.lamp_id);
        if (el) setState(el, msg.lamp.to);
      }
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

type lampRow struct {
	ID         int
	State      string
	Confidence float64
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	rows := make([]lampRow, 0, len(snap.Lamps))
	for id, st := range snap.Lamps {
		label := st.Label
		if label == "" {
			label = logic.LabelUnknown
		}
		rows = append(rows, lampRow{ID: id, State: string(label), Confidence: st.Confidence})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	data := struct {
		status.Snapshot
		LampRows []lampRow
		RedCount int
		// Snapshot has Uptime() method but template needs a Duration field.
		UptimeDur time.Duration
	}{
		Snapshot:  snap,
		LampRows:  rows,
		RedCount:  snap.RedCount(),
		UptimeDur: snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
