package status

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/sweeney/lamp-monitor/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Lamps         []LampJSON   `json:"lamps"`
	RedCount      int          `json:"red_count"`
	Ready         bool         `json:"ready"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	Frames        FramesJSON   `json:"frames"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Notify        NotifyJSON   `json:"notifications"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// LampJSON is the JSON representation of one lamp's state.
type LampJSON struct {
	ID         int     `json:"id"`
	State      string  `json:"state"`
	Confidence float64 `json:"confidence"`
}

// FramesJSON reports frame processing stats.
type FramesJSON struct {
	Processed int64   `json:"processed"`
	FPS       float64 `json:"fps"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of state-change counts.
type CountsJSON struct {
	ToRed     int `json:"to_red"`
	ToGreen   int `json:"to_green"`
	ToUnknown int `json:"to_unknown"`
}

// NotifyJSON is the JSON representation of dispatch counters.
type NotifyJSON struct {
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
	Suppressed int `json:"suppressed"`
	Dropped    int `json:"dropped"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs       int64  `json:"poll_ms"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	FramesWindow int    `json:"frames_window"`
	LampCount    int    `json:"lamp_count"`
	Broker       string `json:"broker"`
	WorkerURL    string `json:"worker_url"`
	HTTPPort     string `json:"http_port"`
	WSBroker     string `json:"ws_broker,omitempty"`
}

func buildLamps(snap Snapshot) []LampJSON {
	ids := make([]int, 0, len(snap.Lamps))
	for id := range snap.Lamps {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	lamps := make([]LampJSON, 0, len(ids))
	for _, id := range ids {
		st := snap.Lamps[id]
		label := st.Label
		if label == "" {
			label = logic.LabelUnknown
		}
		lamps = append(lamps, LampJSON{
			ID:         id,
			State:      string(label),
			Confidence: math.Round(st.Confidence*1000) / 1000,
		})
	}
	return lamps
}

func buildInner(snap Snapshot) StatusInner {
	return StatusInner{
		Lamps:         buildLamps(snap),
		RedCount:      snap.RedCount(),
		Ready:         snap.Ready,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		Frames: FramesJSON{
			Processed: snap.FramesProcessed,
			FPS:       math.Round(snap.FPS*10) / 10,
		},
		MQTT: MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			ToRed:     snap.Counts.ToRed,
			ToGreen:   snap.Counts.ToGreen,
			ToUnknown: snap.Counts.ToUnknown,
		},
		Notify: NotifyJSON{
			Sent:       snap.Notify.Sent,
			Failed:     snap.Notify.Failed,
			Suppressed: snap.Notify.Suppressed,
			Dropped:    snap.Notify.Dropped,
		},
		Config: ConfigJSON{
			PollMs:       snap.Config.PollMs,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			FramesWindow: snap.Config.FramesWindow,
			LampCount:    snap.Config.LampCount,
			Broker:       snap.Config.Broker,
			WorkerURL:    snap.Config.WorkerURL,
			HTTPPort:     snap.Config.HTTPPort,
			WSBroker:     snap.Config.WSBroker,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
