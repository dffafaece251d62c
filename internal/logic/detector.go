package logic

import (
	"fmt"
	"sort"
	"time"
)

// Decision floors. A majority below majorityFloor, or a mean confidence
// below confidenceFloor, collapses the decision to UNKNOWN.
const (
	majorityFloor   = 0.6
	confidenceFloor = 0.4
)

// tieOrder is the fixed priority used when two labels tie on count and
// the current stable label is not among the tied candidates.
var tieOrder = []Label{LabelRed, LabelGreen, LabelUnknown}

// window is a fixed-capacity FIFO of recent classifications for one lamp.
// Oldest entry is evicted on overflow. Not safe for concurrent use.
type window struct {
	entries []Classification
	head    int // next write position
	count   int
}

func newWindow(capacity int) *window {
	return &window{entries: make([]Classification, capacity)}
}

func (w *window) push(c Classification) {
	w.entries[w.head] = c
	w.head = (w.head + 1) % len(w.entries)
	if w.count < len(w.entries) {
		w.count++
	}
}

func (w *window) full() bool {
	return w.count == len(w.entries)
}

func (w *window) clear() {
	w.head = 0
	w.count = 0
}

// Detector derives stable per-lamp states from noisy per-frame
// classifications via a sliding-window majority vote.
type Detector struct {
	windowSize    int
	lampIDs       []int
	windows       map[int]*window
	states        map[int]LampState
	counts        EventCounts
	startTime     time.Time
	lastHeartbeat time.Time
}

// NewDetector creates a detector for the given lamps with the given window
// size. Windows and states are allocated eagerly for every lamp. The
// startTime is used for calculating uptime in heartbeat events.
func NewDetector(lampIDs []int, windowSize int, startTime time.Time) (*Detector, error) {
	if windowSize < 1 {
		return nil, fmt.Errorf("window size must be >= 1, got %d", windowSize)
	}
	if len(lampIDs) == 0 {
		return nil, fmt.Errorf("no lamps configured")
	}

	ids := make([]int, len(lampIDs))
	copy(ids, lampIDs)
	sort.Ints(ids)

	d := &Detector{
		windowSize:    windowSize,
		lampIDs:       ids,
		windows:       make(map[int]*window, len(ids)),
		states:        make(map[int]LampState, len(ids)),
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
	for _, id := range ids {
		d.windows[id] = newWindow(windowSize)
		d.states[id] = LampState{Label: LabelUnknown}
	}
	return d, nil
}

// Observe takes a new per-frame classification for a lamp and returns a
// transition event if the lamp's stable state changed, nil otherwise.
// No decision is made until the lamp's window has filled.
func (d *Detector) Observe(lampID int, c Classification, now time.Time) *Event {
	w, ok := d.windows[lampID]
	if !ok {
		return nil
	}

	w.push(c)
	if !w.full() {
		return nil
	}

	current := d.states[lampID]
	label, confidence, ratio := decide(w, current.Label)

	if label == current.Label {
		return nil
	}

	d.states[lampID] = LampState{Label: label, Confidence: confidence}
	switch label {
	case LabelRed:
		d.counts.ToRed++
	case LabelGreen:
		d.counts.ToGreen++
	case LabelUnknown:
		d.counts.ToUnknown++
	}

	return &Event{
		Timestamp:     now,
		LampID:        lampID,
		OldLabel:      current.Label,
		NewLabel:      label,
		Confidence:    confidence,
		MajorityRatio: ratio,
	}
}

// decide tallies the window and returns (label, confidence, majorityRatio).
// Ties prefer the current stable label, then RED > GREEN > UNKNOWN.
func decide(w *window, current Label) (Label, float64, float64) {
	counts := map[Label]int{}
	for i := 0; i < w.count; i++ {
		counts[w.entries[i].Label]++
	}

	best := 0
	for _, n := range counts {
		if n > best {
			best = n
		}
	}

	candidate := current
	if counts[current] != best {
		for _, l := range tieOrder {
			if counts[l] == best {
				candidate = l
				break
			}
		}
	}

	ratio := float64(best) / float64(w.count)
	if ratio < majorityFloor {
		return LabelUnknown, 0.0, ratio
	}

	sum := 0.0
	for i := 0; i < w.count; i++ {
		if w.entries[i].Label == candidate {
			sum += w.entries[i].Confidence
		}
	}
	mean := sum / float64(best)
	if mean < confidenceFloor {
		return LabelUnknown, 0.0, ratio
	}

	return candidate, mean, ratio
}

// State returns the stable state of one lamp.
func (d *Detector) State(lampID int) LampState {
	return d.states[lampID]
}

// States returns a copy of all stable lamp states.
func (d *Detector) States() map[int]LampState {
	out := make(map[int]LampState, len(d.states))
	for id, s := range d.states {
		out[id] = s
	}
	return out
}

// LampIDs returns the configured lamp identities in ascending order.
func (d *Detector) LampIDs() []int {
	out := make([]int, len(d.lampIDs))
	copy(out, d.lampIDs)
	return out
}

// AnyRed reports whether any lamp's stable state is RED.
func (d *Detector) AnyRed() bool {
	for _, s := range d.states {
		if s.Label == LabelRed {
			return true
		}
	}
	return false
}

// Ready reports whether every lamp's observation window has filled at
// least once since the last Reset.
func (d *Detector) Ready() bool {
	for _, id := range d.lampIDs {
		if !d.windows[id].full() {
			return false
		}
	}
	return true
}

// Reset clears all windows and returns every lamp to (UNKNOWN, 0.0).
func (d *Detector) Reset() {
	for _, id := range d.lampIDs {
		d.windows[id].clear()
		d.states[id] = LampState{Label: LabelUnknown}
	}
}

// EventCountsSnapshot returns the transition counts since startup.
func (d *Detector) EventCountsSnapshot() EventCounts {
	return d.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since
// the last heartbeat (or startup). Returns nil if the interval has not
// elapsed or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.counts,
	}
}
