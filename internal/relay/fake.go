package relay

// FakeDriver is a test double that records relay transitions.
type FakeDriver struct {
	// On is the current relay state.
	On bool

	// History records every Set call in order.
	History []bool

	// SetError, if set, will be returned by Set.
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeDriver creates a FakeDriver with the relay released.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{}
}

// Set records the requested relay state.
func (f *FakeDriver) Set(on bool) error {
	if f.SetError != nil {
		return f.SetError
	}
	f.On = on
	f.History = append(f.History, on)
	return nil
}

// Close marks the driver as closed and releases the relay.
func (f *FakeDriver) Close() error {
	f.On = false
	f.Closed = true
	return nil
}

// Reset clears recorded state.
func (f *FakeDriver) Reset() {
	f.On = false
	f.History = nil
	f.SetError = nil
	f.Closed = false
}
