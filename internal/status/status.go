// Package status provides a thread-safe status tracker for the lamp-monitor daemon.
// It is designed to be read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/lamp-monitor/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs       int64
	HeartbeatMs  int64
	FramesWindow int
	LampCount    int
	Broker       string
	WorkerURL    string
	HTTPPort     string
	WSBroker     string // Websocket broker URL for browser MQTT (empty = disabled)
}

// NotifyCounts tracks alert dispatch outcomes.
type NotifyCounts struct {
	Sent       int // batches delivered (HTTP 200)
	Failed     int // batches that got an error or non-200
	Suppressed int // alarms swallowed by the per-lamp cooldown
	Dropped    int // batches dropped because the dispatch queue was full
}

// Snapshot is a point-in-time view of daemon state. It is a value type,
// safe to use after the lock is released.
type Snapshot struct {
	Lamps           map[int]logic.LampState
	Ready           bool // true once every observation window has filled
	Counts          logic.EventCounts
	Notify          NotifyCounts
	FramesProcessed int64
	FPS             float64
	StartTime       time.Time
	Now             time.Time
	MQTTConnected   bool
	Network         *NetworkInfo
	Config          Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// RedCount returns how many lamps are currently RED.
func (s Snapshot) RedCount() int {
	n := 0
	for _, st := range s.Lamps {
		if st.Label == logic.LabelRed {
			n++
		}
	}
	return n
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets lamp states, readiness, frame stats, and event counts.
// Called from runLoop on every tick. The lamps map is copied.
func (t *Tracker) Update(lamps map[int]logic.LampState, ready bool, counts logic.EventCounts, frames int64, fps float64) {
	copied := make(map[int]logic.LampState, len(lamps))
	for id, st := range lamps {
		copied[id] = st
	}

	t.mu.Lock()
	t.snap.Lamps = copied
	t.snap.Ready = ready
	t.snap.Counts = counts
	t.snap.FramesProcessed = frames
	t.snap.FPS = fps
	t.mu.Unlock()
}

// NoteSent records a delivered alert batch.
func (t *Tracker) NoteSent() {
	t.mu.Lock()
	t.snap.Notify.Sent++
	t.mu.Unlock()
}

// NoteFailed records a failed alert batch.
func (t *Tracker) NoteFailed() {
	t.mu.Lock()
	t.snap.Notify.Failed++
	t.mu.Unlock()
}

// NoteSuppressed records an alarm suppressed by the cooldown.
func (t *Tracker) NoteSuppressed() {
	t.mu.Lock()
	t.snap.Notify.Suppressed++
	t.mu.Unlock()
}

// NoteDropped records a batch dropped by a full dispatch queue.
func (t *Tracker) NoteDropped() {
	t.mu.Lock()
	t.snap.Notify.Dropped++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	lamps := make(map[int]logic.LampState, len(s.Lamps))
	for id, st := range s.Lamps {
		lamps[id] = st
	}
	t.mu.RUnlock()

	s.Lamps = lamps
	s.Now = time.Now()
	return s
}
