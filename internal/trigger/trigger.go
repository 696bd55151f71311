// Package trigger handles button edges.
//
// OnEdge runs in the platform's edge-callback context. It advances the
// preset selector and posts a raw event; everything that formats, logs or
// publishes happens later in the event consumer task.
package trigger

import (
	"sync/atomic"
	"time"

	"github.com/sweeney/ledpattern/internal/events"
	"github.com/sweeney/ledpattern/internal/selector"
)

// Handler advances a Selector on every button edge.
type Handler struct {
	sel     *selector.Selector
	sink    events.Sink
	now     func() time.Time
	presses atomic.Uint64
}

// New creates a Handler. A nil sink discards events.
func New(sel *selector.Selector, sink events.Sink) *Handler {
	if sink == nil {
		sink = events.Discard
	}
	return &Handler{sel: sel, sink: sink, now: time.Now}
}

// OnEdge advances the selector. It never blocks.
func (h *Handler) OnEdge() {
	idx := h.sel.Advance()
	h.presses.Add(1)
	h.sink.Post(events.Event{
		Time:  h.now(),
		Actor: events.ActorSelector,
		Kind:  events.KindPreset,
		Index: idx,
	})
}

// Presses returns the number of edges handled.
func (h *Handler) Presses() uint64 {
	return h.presses.Load()
}
