package blinker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/ledpattern/internal/events"
	"github.com/sweeney/ledpattern/internal/gpio"
	"github.com/sweeney/ledpattern/internal/preset"
	"github.com/sweeney/ledpattern/internal/selector"
)

const ms = time.Millisecond

// stepSleeper hands each requested duration to the test and waits for the
// test to release it, so a blinker can be driven one cycle at a time.
type stepSleeper struct {
	calls   chan time.Duration
	release chan struct{}
}

func newStepSleeper() *stepSleeper {
	return &stepSleeper{
		calls:   make(chan time.Duration),
		release: make(chan struct{}),
	}
}

func (s *stepSleeper) sleep(ctx context.Context, d time.Duration) error {
	select {
	case s.calls <- d:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// next waits for the blinker to go to sleep and returns the requested duration.
func (s *stepSleeper) next(t *testing.T) time.Duration {
	t.Helper()
	select {
	case d := <-s.calls:
		return d
	case <-time.After(time.Second):
		t.Fatal("blinker did not sleep")
		return 0
	}
}

func (s *stepSleeper) wake() {
	s.release <- struct{}{}
}

// recorder is a Sink that keeps every event.
type recorder struct {
	mu  sync.Mutex
	evs []events.Event
}

func (r *recorder) Post(e events.Event) bool {
	r.mu.Lock()
	r.evs = append(r.evs, e)
	r.mu.Unlock()
	return true
}

func (r *recorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Event, len(r.evs))
	copy(out, r.evs)
	return out
}

func startBlinker(t *testing.T, ctx context.Context, cfg Config) <-chan error {
	t.Helper()
	b, err := New(cfg)
	require.NoError(t, err)
	errCh := make(chan error, 1)
	go func() { errCh <- b.Run(ctx) }()
	return errCh
}

func waitDone(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(time.Second):
		t.Fatal("blinker did not stop")
		return nil
	}
}

func TestNewValidates(t *testing.T) {
	tbl := preset.Default()
	sel := selector.New(tbl.Len())
	out := gpio.NewFakeOutput()

	_, err := New(Config{Channel: 2, Output: out, Table: tbl, Selector: sel})
	assert.Error(t, err)

	_, err = New(Config{Channel: 0, Table: tbl, Selector: sel})
	assert.Error(t, err)

	_, err = New(Config{Channel: 0, Output: out, Table: tbl, Selector: selector.New(2)})
	assert.Error(t, err)

	b, err := New(Config{Channel: 1, Output: out, Table: tbl, Selector: sel})
	require.NoError(t, err)
	assert.Equal(t, events.ActorChannel1, b.Actor())
}

func TestCadenceFollowsSelector(t *testing.T) {
	tbl := preset.Default()
	sel := selector.New(tbl.Len())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s0, s1 := newStepSleeper(), newStepSleeper()
	out0, out1 := gpio.NewFakeOutput(), gpio.NewFakeOutput()
	done0 := startBlinker(t, ctx, Config{Channel: 0, Output: out0, Table: tbl, Selector: sel, Sleep: s0.sleep})
	done1 := startBlinker(t, ctx, Config{Channel: 1, Output: out1, Table: tbl, Selector: sel, Sleep: s1.sleep})

	steps := []struct {
		ch0, ch1 time.Duration
	}{
		{1000 * ms, 100 * ms},
		{500 * ms, 500 * ms},
		{100 * ms, 1000 * ms},
		{1000 * ms, 100 * ms},
	}

	for i, step := range steps {
		// Two cycles per preset: the rate holds until the next press.
		for c := 0; c < 2; c++ {
			assert.Equal(t, step.ch0, s0.next(t), "preset step %d cycle %d ch0", i, c)
			assert.Equal(t, step.ch1, s1.next(t), "preset step %d cycle %d ch1", i, c)
			if c == 1 {
				sel.Advance()
			}
			s0.wake()
			s1.wake()
		}
	}

	// Both are now heading for sleep again; cancelling unblocks them.
	cancel()
	assert.NoError(t, waitDone(t, done0))
	assert.NoError(t, waitDone(t, done1))

	for _, out := range []*gpio.FakeOutput{out0, out1} {
		vals := out.Values()
		require.NotEmpty(t, vals)
		for i, v := range vals {
			assert.Equal(t, i%2 == 0, v, "toggle %d", i)
		}
	}
}

func TestEmitsToggleEvents(t *testing.T) {
	tbl := preset.Default()
	sel := selector.New(tbl.Len())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := newStepSleeper()
	rec := &recorder{}
	when := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	done := startBlinker(t, ctx, Config{
		Channel:  1,
		Output:   gpio.NewFakeOutput(),
		Table:    tbl,
		Selector: sel,
		Events:   rec,
		Sleep:    s.sleep,
		Now:      func() time.Time { return when },
	})

	s.next(t)
	sel.Advance()
	s.wake()
	s.next(t)
	cancel()
	require.NoError(t, waitDone(t, done))

	evs := rec.all()
	require.Len(t, evs, 2)

	assert.Equal(t, events.Event{
		Time: when, Actor: events.ActorChannel1, Kind: events.KindToggle,
		Channel: 1, On: true, Interval: 100 * ms, Index: 0,
	}, evs[0])
	assert.Equal(t, events.Event{
		Time: when, Actor: events.ActorChannel1, Kind: events.KindToggle,
		Channel: 1, On: false, Interval: 500 * ms, Index: 1,
	}, evs[1])
	assert.Equal(t, "channel1 being OFF [500 ms]", evs[1].Summary())
}

func TestOutputErrorIsFatal(t *testing.T) {
	tbl := preset.Default()
	out := gpio.NewFakeOutput()
	out.SetError = errors.New("line gone")

	b, err := New(Config{Channel: 0, Output: out, Table: tbl, Selector: selector.New(tbl.Len())})
	require.NoError(t, err)

	err = b.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, out.SetError)
	assert.Contains(t, err.Error(), "channel0")
}

func TestCancelDuringSleep(t *testing.T) {
	tbl, err := preset.New([]preset.Preset{{Name: "long", Intervals: [preset.Channels]time.Duration{time.Hour, time.Hour}}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	out := gpio.NewFakeOutput()
	done := startBlinker(t, ctx, Config{Channel: 0, Output: out, Table: tbl, Selector: selector.New(1)})

	require.Eventually(t, func() bool { return len(out.Values()) == 1 }, time.Second, time.Millisecond)
	cancel()
	assert.NoError(t, waitDone(t, done))
	assert.Equal(t, []bool{true}, out.Values())
}

func TestCancelledBeforeStart(t *testing.T) {
	tbl := preset.Default()
	out := gpio.NewFakeOutput()
	b, err := New(Config{Channel: 0, Output: out, Table: tbl, Selector: selector.New(tbl.Len())})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, b.Run(ctx))
	assert.Empty(t, out.Values())
}

func TestStalledOutputDoesNotBlockOtherChannel(t *testing.T) {
	tbl := preset.Default()
	sel := selector.New(tbl.Len())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stalled := gpio.NewFakeOutput()
	stalled.Block = make(chan struct{})
	done0 := startBlinker(t, ctx, Config{Channel: 0, Output: stalled, Table: tbl, Selector: sel, Sleep: newStepSleeper().sleep})

	s1 := newStepSleeper()
	out1 := gpio.NewFakeOutput()
	done1 := startBlinker(t, ctx, Config{Channel: 1, Output: out1, Table: tbl, Selector: sel, Sleep: s1.sleep})

	for i := 0; i < 10; i++ {
		assert.Equal(t, 100*ms, s1.next(t))
		s1.wake()
	}
	s1.next(t)
	assert.Len(t, out1.Values(), 11)
	assert.Empty(t, stalled.Values())

	cancel()
	close(stalled.Block)
	assert.NoError(t, waitDone(t, done0))
	assert.NoError(t, waitDone(t, done1))
}

func TestRealSleepCadence(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	tbl, err := preset.New([]preset.Preset{{Name: "t", Intervals: [preset.Channels]time.Duration{40 * ms, 5 * ms}}})
	require.NoError(t, err)
	sel := selector.New(1)

	ctx, cancel := context.WithTimeout(context.Background(), 200*ms)
	defer cancel()

	out0, out1 := gpio.NewFakeOutput(), gpio.NewFakeOutput()
	done0 := startBlinker(t, ctx, Config{Channel: 0, Output: out0, Table: tbl, Selector: sel})
	done1 := startBlinker(t, ctx, Config{Channel: 1, Output: out1, Table: tbl, Selector: sel})

	<-ctx.Done()
	assert.NoError(t, waitDone(t, done0))
	assert.NoError(t, waitDone(t, done1))

	assert.Greater(t, len(out1.Values()), len(out0.Values()))
}

func TestSleepHonoursContext(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), ms))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
