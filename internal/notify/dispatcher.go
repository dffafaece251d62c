package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Dispatcher delivers flushed batches on a dedicated worker goroutine fed
// by a bounded queue, so a slow or hanging endpoint never blocks the
// frame loop. When the queue is full the newest batch is dropped and
// logged; there is no retry.
type Dispatcher struct {
	sender  Sender
	batcher *Batcher
	logger  *slog.Logger
	now     func() time.Time

	// OnResult, if set, is invoked after every delivery attempt. Used by
	// the daemon to feed the status tracker and MQTT alarm topic.
	OnResult func(batch *Batch, err error)

	queue chan *Batch
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher creates a dispatcher with the given queue capacity.
// Call Start to launch the worker and Close to drain and stop it.
func NewDispatcher(sender Sender, batcher *Batcher, queueSize int, logger *slog.Logger) *Dispatcher {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		sender:  sender,
		batcher: batcher,
		logger:  logger,
		now:     time.Now,
		queue:   make(chan *Batch, queueSize),
	}
}

// Start launches the delivery worker.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
}

// Enqueue hands a batch to the worker without blocking. Returns false when
// the queue is full or the dispatcher is closed; the batch is dropped.
func (d *Dispatcher) Enqueue(batch *Batch) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- batch:
		return true
	default:
		d.logger.Warn("dispatch queue full, dropping batch",
			slog.String("batch_id", batch.ID),
			slog.Int("lamps", len(batch.Alarms)))
		return false
	}
}

// Close stops accepting batches, waits for queued deliveries to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for batch := range d.queue {
		err := d.sender.Send(batch)
		if err != nil {
			// The batch is gone; only the cooldowns stay unadvanced so the
			// lamps become notifiable again.
			d.logger.Error("notification delivery failed",
				slog.String("batch_id", batch.ID),
				slog.Any("lamp_ids", batch.LampIDs()),
				slog.String("error", err.Error()))
		} else {
			d.batcher.MarkDelivered(batch, d.now())
			d.logger.Info("notification delivered",
				slog.String("batch_id", batch.ID),
				slog.Any("lamp_ids", batch.LampIDs()),
				slog.Int("batch_size", len(batch.Alarms)))
		}
		if d.OnResult != nil {
			d.OnResult(batch, err)
		}
	}
}
