// Package notify coalesces RED lamp transitions into signed batch
// notifications and delivers them to the alert endpoint. Delivery runs on
// its own worker so a slow endpoint never stalls frame processing.
package notify

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// PendingAlarm is one lamp awaiting inclusion in a batch.
type PendingAlarm struct {
	LampID     int
	Confidence float64
	DetectedAt time.Time
}

// Batch is one outbound notification covering every lamp that turned RED
// within a collection window.
type Batch struct {
	// ID correlates log lines, MQTT alarm events, and the HTTP request.
	ID        string
	Alarms    []PendingAlarm // ascending lamp id; first entry is representative
	FlushedAt time.Time
}

// LampIDs returns the batch's lamp ids in ascending order.
func (b *Batch) LampIDs() []int {
	ids := make([]int, len(b.Alarms))
	for i, a := range b.Alarms {
		ids[i] = a.LampID
	}
	return ids
}

// newBatch builds a Batch from the pending map, sorted by lamp id.
func newBatch(pending map[int]PendingAlarm, flushedAt time.Time) *Batch {
	alarms := make([]PendingAlarm, 0, len(pending))
	for _, a := range pending {
		alarms = append(alarms, a)
	}
	sort.Slice(alarms, func(i, j int) bool { return alarms[i].LampID < alarms[j].LampID })
	return &Batch{
		ID:        uuid.NewString(),
		Alarms:    alarms,
		FlushedAt: flushedAt,
	}
}

// message builds the human-readable alert text, singular or plural
// depending on batch size.
func message(b *Batch) string {
	if len(b.Alarms) == 1 {
		return fmt.Sprintf("Lamp %d changed to RED", b.Alarms[0].LampID)
	}
	ids := b.LampIDs()
	s := fmt.Sprintf("%d lamps changed to RED (lamps", len(ids))
	for i, id := range ids {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf(" %d", id)
	}
	return s + ")"
}
