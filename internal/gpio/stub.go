//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealOutput is not available on non-Linux platforms.
type RealOutput struct{}

// NewRealOutput returns an error on non-Linux platforms.
func NewRealOutput(chip string, offset int) (*RealOutput, error) {
	return nil, errUnsupported
}

// Set is not implemented on non-Linux platforms.
func (o *RealOutput) Set(on bool) error {
	return errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (o *RealOutput) Close() error {
	return nil
}

// RealButton is not available on non-Linux platforms.
type RealButton struct{}

// NewRealButton returns a button whose Watch always fails.
func NewRealButton(chip string, offset int, activeLow bool) *RealButton {
	return &RealButton{}
}

// Watch is not implemented on non-Linux platforms.
func (b *RealButton) Watch(handler func()) error {
	return errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (b *RealButton) Close() error {
	return nil
}
