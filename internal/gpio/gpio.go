// Package gpio provides LED outputs and a push button with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Output drives a single digital output line.
type Output interface {
	// Set drives the line to the logical state on.
	Set(on bool) error

	// Close releases the line.
	Close() error
}

// Button delivers edge notifications from a single input line.
type Button interface {
	// Watch starts delivering edges. handler is called once for every
	// transition to active, from a context that must not block.
	Watch(handler func()) error

	// Close stops edge delivery and releases the line.
	Close() error
}

// Consumer is the label attached to requested lines.
const Consumer = "ledpattern"
