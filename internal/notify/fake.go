package notify

import "sync"

// FakeSender records sent batches for test assertions.
type FakeSender struct {
	mu sync.Mutex

	// Batches contains every batch passed to Send.
	Batches []*Batch

	// Bodies contains the canonical payload bytes for each batch.
	Bodies [][]byte

	// SendError, if set, will be returned by Send.
	SendError error
}

// NewFakeSender creates a FakeSender for testing.
func NewFakeSender() *FakeSender {
	return &FakeSender{}
}

// Send records the batch.
func (f *FakeSender) Send(batch *Batch) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.SendError != nil {
		return f.SendError
	}

	f.Batches = append(f.Batches, batch)
	body, err := BuildPayload(batch).MarshalCanonical()
	if err != nil {
		return err
	}
	f.Bodies = append(f.Bodies, body)
	return nil
}

// Sent returns a snapshot of recorded batches.
func (f *FakeSender) Sent() []*Batch {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Batch, len(f.Batches))
	copy(out, f.Batches)
	return out
}

// Reset clears recorded batches.
func (f *FakeSender) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Batches = nil
	f.Bodies = nil
	f.SendError = nil
}
