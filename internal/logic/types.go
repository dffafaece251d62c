// Package logic contains pure business logic for lamp state tracking.
// This package has NO external dependencies (no camera, MQTT, OS, or
// time.Sleep). Time is always injectable via time.Time parameters.
package logic

import "time"

// Label is a discrete lamp color classification.
type Label string

const (
	LabelRed     Label = "RED"
	LabelGreen   Label = "GREEN"
	LabelUnknown Label = "UNKNOWN"
)

// Classification is one per-frame color decision for a single lamp.
type Classification struct {
	Label      Label
	Confidence float64
}

// LampState is the debounced, externally-visible state of a lamp.
type LampState struct {
	Label      Label
	Confidence float64
}

// Event represents a stable-state transition to be published.
type Event struct {
	Timestamp     time.Time
	LampID        int
	OldLabel      Label
	NewLabel      Label
	Confidence    float64
	MajorityRatio float64
}

// EventCounts tracks the number of transitions into each label since startup.
type EventCounts struct {
	ToRed     int
	ToGreen   int
	ToUnknown int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
