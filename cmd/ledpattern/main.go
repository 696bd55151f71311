// Command ledpattern blinks two LEDs at a rate selected by a push button.
//
// Each LED is driven by its own blinker goroutine. Pressing the button
// advances the active preset, which changes both blink intervals at the
// blinkers' next cycle.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/ledpattern/internal/blinker"
	"github.com/sweeney/ledpattern/internal/events"
	"github.com/sweeney/ledpattern/internal/gpio"
	"github.com/sweeney/ledpattern/internal/mqtt"
	"github.com/sweeney/ledpattern/internal/preset"
	"github.com/sweeney/ledpattern/internal/selector"
	"github.com/sweeney/ledpattern/internal/status"
	"github.com/sweeney/ledpattern/internal/trigger"
	"github.com/sweeney/ledpattern/internal/web"
)

type options struct {
	Chip             string `long:"chip" env:"LEDPATTERN_CHIP" default:"gpiochip0" description:"GPIO character device"`
	LED0             int    `long:"led0" env:"LEDPATTERN_LED0" default:"17" description:"Line offset for LED 0"`
	LED1             int    `long:"led1" env:"LEDPATTERN_LED1" default:"27" description:"Line offset for LED 1"`
	Button           int    `long:"button" env:"LEDPATTERN_BUTTON" default:"22" description:"Line offset for the push button"`
	ButtonActiveHigh bool   `long:"button-active-high" env:"LEDPATTERN_BUTTON_ACTIVE_HIGH" description:"Button pulls the line high when pressed (default: active low with pull-up)"`
	Presets          string `long:"presets" env:"LEDPATTERN_PRESETS" description:"YAML preset file (default: built-in table)"`
	Broker           string `long:"broker" env:"LEDPATTERN_BROKER" description:"MQTT broker address (empty disables MQTT)"`
	ClientID         string `long:"client-id" env:"LEDPATTERN_CLIENT_ID" default:"ledpattern" description:"MQTT client ID"`
	HTTPAddr         string `long:"http" env:"LEDPATTERN_HTTP" default:":8080" description:"HTTP status address (empty disables)"`
	QueueSize        int    `long:"queue-size" env:"LEDPATTERN_QUEUE_SIZE" default:"64" description:"Pending event capacity"`
	PrintPresets     bool   `long:"print-presets" description:"Print the preset table and exit"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		var fe *flags.Error
		if errors.As(err, &fe) && fe.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func loadTable(path string) (*preset.Table, error) {
	if path == "" {
		return preset.Default(), nil
	}
	return preset.Load(path)
}

func run(opts options) error {
	table, err := loadTable(opts.Presets)
	if err != nil {
		return fmt.Errorf("load presets: %w", err)
	}

	if opts.PrintPresets {
		printPresets(os.Stdout, table)
		return nil
	}

	// Initialize GPIO
	var outputs [preset.Channels]gpio.Output
	for ch, offset := range [preset.Channels]int{opts.LED0, opts.LED1} {
		out, err := gpio.NewRealOutput(opts.Chip, offset)
		if err != nil {
			return fmt.Errorf("init led%d: %w", ch, err)
		}
		defer out.Close()
		outputs[ch] = out
	}
	button := gpio.NewRealButton(opts.Chip, opts.Button, !opts.ButtonActiveHigh)

	tracker := status.NewTracker(time.Now(), table, status.Config{
		Chip:        opts.Chip,
		PinLED0:     opts.LED0,
		PinLED1:     opts.LED1,
		PinButton:   opts.Button,
		PresetsFile: opts.Presets,
		Broker:      opts.Broker,
		HTTPAddr:    opts.HTTPAddr,
	})

	d := &daemon{
		table:     table,
		outputs:   outputs,
		button:    button,
		tracker:   tracker,
		queueSize: opts.QueueSize,
	}

	// Initialize MQTT
	if opts.Broker != "" {
		publisher, err := mqtt.NewRealPublisher(opts.Broker, opts.ClientID)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer publisher.Close()
		d.publisher = publisher
		d.mqttStatus = publisher
	}

	if opts.HTTPAddr != "" {
		d.web = web.New(opts.HTTPAddr, tracker)
		log.Printf("http status server listening on %s", opts.HTTPAddr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	log.Printf("started: chip=%s led0=%d led1=%d button=%d presets=%d broker=%q",
		opts.Chip, opts.LED0, opts.LED1, opts.Button, table.Len(), opts.Broker)

	return d.run(context.Background(), sigCh)
}

// daemon wires the blinkers, the button handler and the event consumer.
type daemon struct {
	table      *preset.Table
	outputs    [preset.Channels]gpio.Output
	button     gpio.Button
	publisher  mqtt.Publisher        // nil = MQTT disabled
	mqttStatus mqtt.ConnectionStatus // nil = MQTT disabled
	tracker    *status.Tracker
	web        *web.Server // nil = HTTP disabled
	queueSize  int

	// sleep overrides the blinkers' sleep; nil uses real timers.
	sleep blinker.SleepFunc
	now   func() time.Time
}

func (d *daemon) clock() time.Time {
	if d.now != nil {
		return d.now()
	}
	return time.Now()
}

// run blocks until a signal arrives on sig, ctx is cancelled, or a task
// fails. A failing blinker stops everything and its error is returned.
func (d *daemon) run(ctx context.Context, sig <-chan os.Signal) error {
	queue := events.NewQueue(d.queueSize)
	sel, handler := d.newTrigger(queue)

	d.publishSystem("STARTUP", "")

	if err := d.button.Watch(handler.OnEdge); err != nil {
		return fmt.Errorf("watch button: %w", err)
	}
	defer d.button.Close()

	g, gctx := errgroup.WithContext(ctx)
	loopCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	for ch := 0; ch < preset.Channels; ch++ {
		b, err := blinker.New(blinker.Config{
			Channel:  ch,
			Output:   d.outputs[ch],
			Table:    d.table,
			Selector: sel,
			Events:   queue,
			Sleep:    d.sleep,
			Now:      d.now,
		})
		if err != nil {
			return fmt.Errorf("init blinker: %w", err)
		}
		g.Go(func() error { return b.Run(loopCtx) })
	}

	g.Go(func() error {
		queue.Run(loopCtx, func(e events.Event) { d.handle(e, queue) })
		return nil
	})

	if d.web != nil {
		g.Go(func() error {
			if err := d.web.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-loopCtx.Done()
			return d.web.Shutdown(context.Background())
		})
	}

	reason := ""
	g.Go(func() error {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			reason = signalName(s)
			cancel()
		case <-loopCtx.Done():
		}
		return nil
	})

	err := g.Wait()
	if err != nil {
		reason = err.Error()
	}
	d.publishSystem("SHUTDOWN", reason)
	return err
}

// newTrigger builds the selector and the button handler posting to queue.
// The tracker reads the active preset and press count from them directly,
// so status stays right when the queue drops preset events.
func (d *daemon) newTrigger(queue *events.Queue) (*selector.Selector, *trigger.Handler) {
	sel := selector.New(d.table.Len())
	handler := trigger.New(sel, queue)
	d.tracker.Follow(sel, handler)
	return sel, handler
}

// handle runs on the consumer goroutine, never in the button callback.
func (d *daemon) handle(e events.Event, queue *events.Queue) {
	switch e.Kind {
	case events.KindPreset:
		p := d.table.Preset(e.Index)
		log.Printf("preset: changing blink delay to %v and %v (%s)", p.Intervals[0], p.Intervals[1], p.Name)
	default:
		log.Printf("%s", e.Summary())
	}

	d.tracker.Apply(e)
	d.tracker.SetDropped(queue.Dropped())

	if d.publisher == nil {
		return
	}
	if err := d.publisher.Publish(e); err != nil {
		log.Printf("publish error: %v", err)
		// Don't crash on publish failure
	}
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

func (d *daemon) publishSystem(event, reason string) {
	if d.publisher == nil {
		return
	}
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
	snap := d.tracker.Snapshot()
	se := mqtt.SystemEvent{
		Timestamp:  d.clock(),
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := d.publisher.PublishSystem(se); err != nil {
		log.Printf("failed to publish %s event: %v", event, err)
	} else {
		log.Printf("published %s event", event)
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func printPresets(w io.Writer, table *preset.Table) {
	for i, p := range table.Presets() {
		fmt.Fprintf(w, "%d: %s led0=%dms led1=%dms\n", i, p.Name, p.Intervals[0].Milliseconds(), p.Intervals[1].Milliseconds())
	}
}
