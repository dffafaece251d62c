// Package relay drives an alarm relay output with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package relay

// Driver controls the alarm relay line.
type Driver interface {
	// Set energizes (true) or releases (false) the relay.
	Set(on bool) error

	// Close releases the relay and its GPIO resources.
	Close() error
}

// DefaultPin is the relay output pin (BCM numbering).
const DefaultPin = 17
