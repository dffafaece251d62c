package notify

import (
	"sync"
	"time"
)

// BatcherConfig holds the batching and cooldown intervals.
type BatcherConfig struct {
	// MinInterval is the per-lamp cooldown between notifications.
	MinInterval time.Duration

	// CollectionWindow is how long a flush waits after the first alarm so
	// near-simultaneous transitions coalesce into one message.
	CollectionWindow time.Duration

	// BatchInterval is the fallback flush period, covering clock or
	// event-ordering edge cases.
	BatchInterval time.Duration
}

// Batcher accumulates RED transitions and decides when to flush them as a
// single batch. Alarm and Tick are called from the pipeline loop;
// MarkDelivered is called from the dispatch worker, hence the lock.
type Batcher struct {
	cfg BatcherConfig

	mu              sync.Mutex
	pending         map[int]PendingAlarm
	collectionStart time.Time // zero = no open collection window
	lastFlush       time.Time
	lastNotified    map[int]time.Time
}

// NewBatcher creates a Batcher. startTime seeds the fallback flush timer.
func NewBatcher(cfg BatcherConfig, startTime time.Time) *Batcher {
	return &Batcher{
		cfg:          cfg,
		pending:      make(map[int]PendingAlarm),
		lastFlush:    startTime,
		lastNotified: make(map[int]time.Time),
	}
}

// Alarm records a RED transition for a lamp. Returns false when the lamp
// is still cooling down from its last delivered notification; the event
// is discarded and nothing else changes.
func (b *Batcher) Alarm(lampID int, confidence float64, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if last, ok := b.lastNotified[lampID]; ok && now.Sub(last) < b.cfg.MinInterval {
		return false
	}

	if b.collectionStart.IsZero() {
		b.collectionStart = now
	}
	// Upsert: a lamp re-entering alarm before the flush replaces its entry.
	b.pending[lampID] = PendingAlarm{
		LampID:     lampID,
		Confidence: confidence,
		DetectedAt: now,
	}
	return true
}

// Tick runs the flush check. Returns a batch when one is due, nil
// otherwise. Flushing clears pending state immediately; cooldowns only
// advance later via MarkDelivered, so a failed delivery leaves the lamps
// eligible again.
func (b *Batcher) Tick(now time.Time) *Batch {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.pending) == 0 {
		b.collectionStart = time.Time{}
		return nil
	}

	due := !b.collectionStart.IsZero() && now.Sub(b.collectionStart) >= b.cfg.CollectionWindow
	fallback := now.Sub(b.lastFlush) >= b.cfg.BatchInterval
	if !due && !fallback {
		return nil
	}

	batch := newBatch(b.pending, now)
	b.pending = make(map[int]PendingAlarm)
	b.collectionStart = time.Time{}
	b.lastFlush = now
	return batch
}

// MarkDelivered advances the cooldown clock for every lamp in a
// successfully delivered batch.
func (b *Batcher) MarkDelivered(batch *Batch, at time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range batch.Alarms {
		b.lastNotified[a.LampID] = at
	}
}

// LastNotified returns when a lamp was last successfully notified about,
// and whether it ever was.
func (b *Batcher) LastNotified(lampID int) (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.lastNotified[lampID]
	return t, ok
}

// PendingCount returns the number of lamps awaiting a flush.
func (b *Batcher) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
