//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// RealOutput drives an LED through the Linux GPIO character device.
type RealOutput struct {
	line *gpiocdev.Line
}

// NewRealOutput requests offset on chip as an output, initially inactive.
func NewRealOutput(chip string, offset int) (*RealOutput, error) {
	line, err := gpiocdev.RequestLine(chip, offset,
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer(Consumer))
	if err != nil {
		return nil, fmt.Errorf("request output %s:%d: %w", chip, offset, err)
	}
	return &RealOutput{line: line}, nil
}

// Set drives the line active (on) or inactive.
func (o *RealOutput) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := o.line.SetValue(v); err != nil {
		return fmt.Errorf("set line %d: %w", o.line.Offset(), err)
	}
	return nil
}

// Close releases the line.
// The line is reverted to an input first so the LED is not left driven
// after the process exits.
func (o *RealOutput) Close() error {
	var errs []error
	if err := o.line.Reconfigure(gpiocdev.AsInput); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure line %d: %w", o.line.Offset(), err))
	}
	if err := o.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close line %d: %w", o.line.Offset(), err))
	}
	return errors.Join(errs...)
}

// RealButton watches an input line for edges to active.
type RealButton struct {
	chip      string
	offset    int
	activeLow bool

	mu   sync.Mutex
	line *gpiocdev.Line
}

// NewRealButton prepares a button on chip:offset. With activeLow the line
// is biased with a pull-up and a press pulls it to ground.
// The line is not requested until Watch.
func NewRealButton(chip string, offset int, activeLow bool) *RealButton {
	return &RealButton{chip: chip, offset: offset, activeLow: activeLow}
}

// Watch requests the line with edge detection and calls handler on every
// edge to active. gpiocdev delivers events serially from its own goroutine.
func (b *RealButton) Watch(handler func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.line != nil {
		return errors.New("button already watched")
	}

	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsInput,
		gpiocdev.WithConsumer(Consumer),
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			if evt.Type == gpiocdev.LineEventRisingEdge {
				handler()
			}
		}),
	}
	if b.activeLow {
		opts = append(opts, gpiocdev.AsActiveLow, gpiocdev.WithPullUp)
	} else {
		opts = append(opts, gpiocdev.WithPullDown)
	}

	line, err := gpiocdev.RequestLine(b.chip, b.offset, opts...)
	if err != nil {
		return fmt.Errorf("request button %s:%d: %w", b.chip, b.offset, err)
	}
	b.line = line
	return nil
}

// Close stops edge delivery and releases the line.
func (b *RealButton) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.line == nil {
		return nil
	}
	err := b.line.Close()
	b.line = nil
	if err != nil {
		return fmt.Errorf("close button line %d: %w", b.offset, err)
	}
	return nil
}
