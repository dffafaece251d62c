package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/lamp-monitor/internal/logic"
)

func testLamps() map[int]logic.LampState {
	return map[int]logic.LampState{
		1: {Label: logic.LabelGreen, Confidence: 0.95},
		2: {Label: logic.LabelRed, Confidence: 0.8},
		5: {Label: logic.LabelUnknown},
	}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{PollMs: 500, FramesWindow: 5, LampCount: 12, Broker: "tcp://localhost:1883", HTTPPort: ":80"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.PollMs != 500 {
		t.Errorf("Config.PollMs: got %d, want 500", snap.Config.PollMs)
	}
	if snap.Config.HTTPPort != ":80" {
		t.Errorf("Config.HTTPPort: got %q, want %q", snap.Config.HTTPPort, ":80")
	}
	if snap.Ready {
		t.Error("expected Ready=false initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.Update(testLamps(), true, logic.EventCounts{ToRed: 3, ToGreen: 1}, 250, 2.0)

	snap := tr.Snapshot()
	if len(snap.Lamps) != 3 {
		t.Fatalf("Lamps: got %d, want 3", len(snap.Lamps))
	}
	if snap.Lamps[2].Label != logic.LabelRed {
		t.Errorf("lamp 2: got %q, want RED", snap.Lamps[2].Label)
	}
	if !snap.Ready {
		t.Error("expected Ready=true")
	}
	if snap.Counts.ToRed != 3 {
		t.Errorf("Counts.ToRed: got %d, want 3", snap.Counts.ToRed)
	}
	if snap.FramesProcessed != 250 {
		t.Errorf("FramesProcessed: got %d, want 250", snap.FramesProcessed)
	}
	if snap.FPS != 2.0 {
		t.Errorf("FPS: got %v, want 2.0", snap.FPS)
	}
}

func TestRedCount(t *testing.T) {
	snap := Snapshot{Lamps: testLamps()}
	if snap.RedCount() != 1 {
		t.Errorf("RedCount: got %d, want 1", snap.RedCount())
	}
}

func TestNotifyCounters(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.NoteSent()
	tr.NoteSent()
	tr.NoteFailed()
	tr.NoteSuppressed()
	tr.NoteDropped()

	n := tr.Snapshot().Notify
	if n.Sent != 2 {
		t.Errorf("Sent: got %d, want 2", n.Sent)
	}
	if n.Failed != 1 {
		t.Errorf("Failed: got %d, want 1", n.Failed)
	}
	if n.Suppressed != 1 {
		t.Errorf("Suppressed: got %d, want 1", n.Suppressed)
	}
	if n.Dropped != 1 {
		t.Errorf("Dropped: got %d, want 1", n.Dropped)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	if tr.Snapshot().Network != nil {
		t.Error("expected nil Network initially")
	}

	net := &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected"}
	tr.SetNetwork(net)

	snap := tr.Snapshot()
	if snap.Network == nil {
		t.Fatal("expected non-nil Network")
	}
	if snap.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want %q", snap.Network.IP, "192.168.1.42")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(testLamps(), true, logic.EventCounts{ToRed: 1}, 1, 0)

	snap1 := tr.Snapshot()

	updated := testLamps()
	updated[2] = logic.LampState{Label: logic.LabelGreen, Confidence: 1.0}
	tr.Update(updated, true, logic.EventCounts{ToRed: 1, ToGreen: 1}, 2, 0)

	// snap1 should still reflect old state
	if snap1.Lamps[2].Label != logic.LabelRed {
		t.Error("snapshot should be a copy; lamp 2 was modified")
	}

	// Mutating a snapshot's map must not leak back into the tracker
	snap2 := tr.Snapshot()
	snap2.Lamps[1] = logic.LampState{Label: logic.LabelRed}
	if tr.Snapshot().Lamps[1].Label != logic.LabelGreen {
		t.Error("mutating a snapshot's map should not affect the tracker")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Lamps:           testLamps(),
		Ready:           true,
		Counts:          logic.EventCounts{ToRed: 5, ToGreen: 2, ToUnknown: 1},
		Notify:          NotifyCounts{Sent: 4, Failed: 1},
		FramesProcessed: 1800,
		FPS:             2.0,
		StartTime:       start,
		Now:             start.Add(15 * time.Minute),
		MQTTConnected:   true,
		Config:          Config{PollMs: 500, HeartbeatMs: 900000, FramesWindow: 5, LampCount: 12, Broker: "tcp://localhost:1883", WorkerURL: "https://hooks.example.com/alarm", HTTPPort: ":80"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if len(parsed.Status.Lamps) != 3 {
		t.Fatalf("Lamps: got %d, want 3", len(parsed.Status.Lamps))
	}
	// Sorted by lamp id
	if parsed.Status.Lamps[0].ID != 1 || parsed.Status.Lamps[1].ID != 2 || parsed.Status.Lamps[2].ID != 5 {
		t.Errorf("lamps not sorted by id: %+v", parsed.Status.Lamps)
	}
	if parsed.Status.Lamps[1].State != "RED" {
		t.Errorf("lamp 2 state: got %q, want RED", parsed.Status.Lamps[1].State)
	}
	if parsed.Status.RedCount != 1 {
		t.Errorf("RedCount: got %d, want 1", parsed.Status.RedCount)
	}
	if !parsed.Status.Ready {
		t.Error("expected Ready=true")
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
	if parsed.Status.Frames.Processed != 1800 {
		t.Errorf("Frames.Processed: got %d, want 1800", parsed.Status.Frames.Processed)
	}
	if parsed.Status.MQTT.Connected != true {
		t.Error("expected MQTT.Connected=true")
	}
	if parsed.Status.Counts.ToRed != 5 {
		t.Errorf("Counts.ToRed: got %d, want 5", parsed.Status.Counts.ToRed)
	}
	if parsed.Status.Notify.Sent != 4 {
		t.Errorf("Notify.Sent: got %d, want 4", parsed.Status.Notify.Sent)
	}
	if parsed.Status.Config.WorkerURL != "https://hooks.example.com/alarm" {
		t.Errorf("Config.WorkerURL: got %q", parsed.Status.Config.WorkerURL)
	}
	// Event and Reason should be omitted
	if parsed.Status.Event != "" {
		t.Errorf("expected empty Event for web format, got %q", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("expected empty Reason for web format, got %q", parsed.Status.Reason)
	}
}

func TestFormatJSONEmptyLabel(t *testing.T) {
	snap := Snapshot{
		Lamps:     map[int]logic.LampState{3: {}},
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)

	if len(parsed.Status.Lamps) != 1 {
		t.Fatalf("Lamps: got %d, want 1", len(parsed.Status.Lamps))
	}
	if parsed.Status.Lamps[0].State != "UNKNOWN" {
		t.Errorf("state: got %q, want UNKNOWN", parsed.Status.Lamps[0].State)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Lamps:         testLamps(),
		Ready:         true,
		Counts:        logic.EventCounts{ToRed: 3},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{PollMs: 500, Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "HEARTBEAT", "")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "HEARTBEAT" {
		t.Errorf("Event: got %q, want HEARTBEAT", parsed.Status.Event)
	}
	if parsed.Status.Reason != "" {
		t.Errorf("Reason: got %q, want empty", parsed.Status.Reason)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
}

func TestFormatStatusEventShutdown(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Lamps:     testLamps(),
		Ready:     true,
		StartTime: start,
		Now:       start.Add(30 * time.Minute),
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	snap := Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "STARTUP", "")

	// Verify "reason" is not in the raw JSON output
	var raw map[string]interface{}
	json.Unmarshal(data, &raw)
	status := raw["status"].(map[string]interface{})
	if _, exists := status["reason"]; exists {
		t.Error("reason should be omitted when empty")
	}
	if status["event"] != "STARTUP" {
		t.Errorf("event: got %v, want STARTUP", status["event"])
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	snap := Snapshot{
		Lamps:     testLamps(),
		Ready:     true,
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		Network:   &NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "MyNet"},
		Config:    Config{Broker: "tcp://localhost:1883"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	json.Unmarshal(data, &parsed)

	if parsed.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if parsed.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", parsed.Status.Network.IP)
	}
	if parsed.Status.Network.SSID != "MyNet" {
		t.Errorf("Network.SSID: got %q, want MyNet", parsed.Status.Network.SSID)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(testLamps(), true, logic.EventCounts{ToRed: i}, int64(i), 2.0)
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetNetwork(&NetworkInfo{IP: "1.2.3.4"})
			tr.NoteSent()
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			_ = snap.RedCount()
		}
	}()

	wg.Wait()
}
