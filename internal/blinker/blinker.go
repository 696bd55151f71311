// Package blinker runs a free-running square wave on one output.
//
// Each cycle flips the output and then sleeps for the interval the preset
// table gives for this channel at the selector's current index. A preset
// change is therefore picked up at the next sleep boundary, up to one full
// interval after the button press.
package blinker

import (
	"context"
	"fmt"
	"time"

	"github.com/sweeney/ledpattern/internal/events"
	"github.com/sweeney/ledpattern/internal/gpio"
	"github.com/sweeney/ledpattern/internal/preset"
	"github.com/sweeney/ledpattern/internal/selector"
)

// SleepFunc suspends the caller for d. It returns ctx.Err() if ctx is
// cancelled first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc, backed by a timer.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Config describes one blinker.
type Config struct {
	Channel  int
	Output   gpio.Output
	Table    *preset.Table
	Selector *selector.Selector

	// Events receives one toggle event per cycle. Defaults to events.Discard.
	Events events.Sink

	// Sleep defaults to Sleep.
	Sleep SleepFunc

	// Now defaults to time.Now.
	Now func() time.Time
}

// Blinker toggles one output forever, or until its context is cancelled.
type Blinker struct {
	actor   events.Actor
	channel int
	out     gpio.Output
	table   *preset.Table
	sel     *selector.Selector
	sink    events.Sink
	sleep   SleepFunc
	now     func() time.Time
	on      bool
}

// New creates a Blinker. The output starts logically OFF.
func New(cfg Config) (*Blinker, error) {
	if cfg.Channel < 0 || cfg.Channel >= preset.Channels {
		return nil, fmt.Errorf("channel %d out of range [0,%d)", cfg.Channel, preset.Channels)
	}
	if cfg.Output == nil || cfg.Table == nil || cfg.Selector == nil {
		return nil, fmt.Errorf("channel %d: output, table and selector are required", cfg.Channel)
	}
	if cfg.Selector.Len() != cfg.Table.Len() {
		return nil, fmt.Errorf("channel %d: selector covers %d presets, table has %d", cfg.Channel, cfg.Selector.Len(), cfg.Table.Len())
	}

	b := &Blinker{
		actor:   events.ChannelActor(cfg.Channel),
		channel: cfg.Channel,
		out:     cfg.Output,
		table:   cfg.Table,
		sel:     cfg.Selector,
		sink:    cfg.Events,
		sleep:   cfg.Sleep,
		now:     cfg.Now,
	}
	if b.sink == nil {
		b.sink = events.Discard
	}
	if b.sleep == nil {
		b.sleep = Sleep
	}
	if b.now == nil {
		b.now = time.Now
	}
	return b, nil
}

// Actor returns the name the blinker reports events under.
func (b *Blinker) Actor() events.Actor {
	return b.actor
}

// Run toggles the output until ctx is cancelled, then returns nil.
// A failure to drive the output ends the loop with an error.
func (b *Blinker) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		b.on = !b.on
		if err := b.out.Set(b.on); err != nil {
			return fmt.Errorf("%s: set output %s: %w", b.actor, events.StateString(b.on), err)
		}

		idx := b.sel.Read()
		interval := b.table.Get(b.channel, idx)

		b.sink.Post(events.Event{
			Time:     b.now(),
			Actor:    b.actor,
			Kind:     events.KindToggle,
			Channel:  b.channel,
			On:       b.on,
			Interval: interval,
			Index:    idx,
		})

		if err := b.sleep(ctx, interval); err != nil {
			return nil
		}
	}
}
