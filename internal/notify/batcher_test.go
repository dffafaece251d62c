package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var batchStart = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func testBatcherConfig() BatcherConfig {
	return BatcherConfig{
		MinInterval:      60 * time.Second,
		CollectionWindow: 2 * time.Second,
		BatchInterval:    3 * time.Second,
	}
}

func TestBatchCoalescing(t *testing.T) {
	b := NewBatcher(testBatcherConfig(), batchStart)

	// Lamps 3 and 7 turn RED within the collection window; lamp 7 first so
	// the sort on flush is observable.
	assert.True(t, b.Alarm(7, 0.9, batchStart))
	assert.True(t, b.Alarm(3, 0.8, batchStart.Add(500*time.Millisecond)))
	assert.Equal(t, 2, b.PendingCount())

	// Not due yet.
	assert.Nil(t, b.Tick(batchStart.Add(1*time.Second)))

	batch := b.Tick(batchStart.Add(2 * time.Second))
	require.NotNil(t, batch)
	assert.Equal(t, []int{3, 7}, batch.LampIDs())
	assert.Len(t, batch.Alarms, 2)
	assert.NotEmpty(t, batch.ID)
	assert.Equal(t, 0, b.PendingCount())

	// Nothing further pending.
	assert.Nil(t, b.Tick(batchStart.Add(3*time.Second)))
}

func TestAlarmUpsert(t *testing.T) {
	b := NewBatcher(testBatcherConfig(), batchStart)

	b.Alarm(5, 0.7, batchStart)
	b.Alarm(5, 0.95, batchStart.Add(time.Second))
	assert.Equal(t, 1, b.PendingCount(), "re-entering alarm must not duplicate the lamp")

	batch := b.Tick(batchStart.Add(2 * time.Second))
	require.NotNil(t, batch)
	require.Len(t, batch.Alarms, 1)
	assert.Equal(t, 0.95, batch.Alarms[0].Confidence, "upsert keeps the latest entry")
	assert.Equal(t, batchStart.Add(time.Second), batch.Alarms[0].DetectedAt)
}

func TestFlushAtCollectionWindow(t *testing.T) {
	cfg := testBatcherConfig()
	cfg.BatchInterval = time.Hour // isolate the collection-window path
	b := NewBatcher(cfg, batchStart)
	detected := batchStart.Add(10 * time.Second)
	b.Alarm(5, 0.9, detected)

	// One tick shy of the window: no flush.
	assert.Nil(t, b.Tick(detected.Add(2*time.Second-time.Millisecond)))

	batch := b.Tick(detected.Add(2 * time.Second))
	require.NotNil(t, batch)
	assert.Equal(t, []int{5}, batch.LampIDs())
	assert.Equal(t, detected.Add(2*time.Second), batch.FlushedAt)
}

func TestFallbackFlush(t *testing.T) {
	// An alarm landing with no open collection window still gets flushed by
	// the batch interval path.
	b := NewBatcher(testBatcherConfig(), batchStart)

	// lastFlush = batchStart; the fallback fires once 3s have passed since
	// then even though the collection window (from 2.5s) has not elapsed.
	b.Alarm(1, 0.9, batchStart.Add(2500*time.Millisecond))
	batch := b.Tick(batchStart.Add(3 * time.Second))
	require.NotNil(t, batch)
	assert.Equal(t, []int{1}, batch.LampIDs())
}

func TestCooldownSuppressesAlarm(t *testing.T) {
	b := NewBatcher(testBatcherConfig(), batchStart)

	require.True(t, b.Alarm(4, 0.9, batchStart))
	batch := b.Tick(batchStart.Add(2 * time.Second))
	require.NotNil(t, batch)
	b.MarkDelivered(batch, batch.FlushedAt)

	notified, ok := b.LastNotified(4)
	require.True(t, ok)

	// Within the cooldown: discarded, lastNotified unchanged.
	assert.False(t, b.Alarm(4, 0.9, batchStart.Add(30*time.Second)))
	assert.Equal(t, 0, b.PendingCount())
	after, _ := b.LastNotified(4)
	assert.Equal(t, notified, after)

	// After the cooldown: accepted again.
	assert.True(t, b.Alarm(4, 0.9, batchStart.Add(63*time.Second)))
}

func TestFailedDeliveryDoesNotAdvanceCooldown(t *testing.T) {
	b := NewBatcher(testBatcherConfig(), batchStart)

	b.Alarm(9, 0.9, batchStart)
	batch := b.Tick(batchStart.Add(2 * time.Second))
	require.NotNil(t, batch)
	// Delivery failed: MarkDelivered is never called.

	_, ok := b.LastNotified(9)
	assert.False(t, ok)

	// The lamp is immediately eligible again.
	assert.True(t, b.Alarm(9, 0.9, batchStart.Add(3*time.Second)))
}

func TestCooldownIsPerLamp(t *testing.T) {
	b := NewBatcher(testBatcherConfig(), batchStart)

	b.Alarm(1, 0.9, batchStart)
	batch := b.Tick(batchStart.Add(2 * time.Second))
	require.NotNil(t, batch)
	b.MarkDelivered(batch, batch.FlushedAt)

	// Lamp 1 is cooling down; lamp 2 is not.
	assert.False(t, b.Alarm(1, 0.9, batchStart.Add(10*time.Second)))
	assert.True(t, b.Alarm(2, 0.9, batchStart.Add(10*time.Second)))
}

func TestEmptyTickResetsCollectionWindow(t *testing.T) {
	b := NewBatcher(testBatcherConfig(), batchStart)

	b.Alarm(1, 0.9, batchStart)
	require.NotNil(t, b.Tick(batchStart.Add(2*time.Second)))

	// Pending is now empty; ticks keep returning nil.
	assert.Nil(t, b.Tick(batchStart.Add(10*time.Second)))

	// A later lone alarm flushes on the next tick through the fallback
	// path, since the last flush is long past.
	b.Alarm(2, 0.9, batchStart.Add(20*time.Second))
	batch := b.Tick(batchStart.Add(21 * time.Second))
	require.NotNil(t, batch)
	assert.Equal(t, []int{2}, batch.LampIDs())
}
