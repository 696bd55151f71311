// Package events carries observability events from the blinkers and the
// button handler to a single consumer task.
//
// Posting never blocks: when the queue is full the event is dropped and
// counted. That makes Post usable from the button edge callback, which must
// not wait on anything.
package events

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Actor identifies the component an event came from.
type Actor string

const (
	ActorChannel0 Actor = "channel0"
	ActorChannel1 Actor = "channel1"
	ActorSelector Actor = "selector"
)

// ChannelActor returns the actor name for output channel ch.
func ChannelActor(ch int) Actor {
	return Actor(fmt.Sprintf("channel%d", ch))
}

// Kind is the type of state change an event reports.
type Kind string

const (
	KindToggle Kind = "TOGGLE"
	KindPreset Kind = "PRESET"
)

// Event is a single observable state change.
type Event struct {
	Time  time.Time
	Actor Actor
	Kind  Kind

	// Channel, On and Interval are set for KindToggle.
	Channel  int
	On       bool
	Interval time.Duration

	// Index is the active preset index. Set for both kinds.
	Index int
}

// Summary renders the event as a short human-readable line.
func (e Event) Summary() string {
	switch e.Kind {
	case KindToggle:
		return fmt.Sprintf("%s being %s [%d ms]", e.Actor, StateString(e.On), e.Interval.Milliseconds())
	case KindPreset:
		return fmt.Sprintf("preset changed to %d", e.Index)
	}
	return string(e.Kind)
}

// StateString returns "ON" or "OFF".
func StateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

// Sink accepts events without blocking.
type Sink interface {
	Post(e Event) bool
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Post(Event) bool { return true }

// Queue is a bounded event queue with a non-blocking producer side.
type Queue struct {
	ch      chan Event
	dropped atomic.Uint64
}

// NewQueue creates a Queue holding up to size pending events.
func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{ch: make(chan Event, size)}
}

// Post enqueues e, or drops it if the queue is full.
// Reports whether the event was accepted.
func (q *Queue) Post(e Event) bool {
	select {
	case q.ch <- e:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Dropped returns the number of events dropped since creation.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Run delivers queued events to handle until ctx is cancelled.
// Events still pending at cancellation are delivered before returning.
func (q *Queue) Run(ctx context.Context, handle func(Event)) {
	for {
		select {
		case e := <-q.ch:
			handle(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-q.ch:
					handle(e)
				default:
					return
				}
			}
		}
	}
}
