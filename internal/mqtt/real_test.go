package mqtt

import (
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// doneToken is a paho.Token that has already completed.
type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }

func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type sentMsg struct {
	topic    string
	qos      byte
	retained bool
	payload  string
}

// scriptedClient records publishes. onPublish, if set, runs inside Publish.
type scriptedClient struct {
	mu        sync.Mutex
	connected bool
	sent      []sentMsg
	err       error
	onPublish func(n int)
}

func (c *scriptedClient) IsConnectionOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *scriptedClient) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *scriptedClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	c.mu.Lock()
	c.sent = append(c.sent, sentMsg{topic: topic, qos: qos, retained: retained, payload: string(payload.([]byte))})
	n := len(c.sent)
	hook := c.onPublish
	err := c.err
	c.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return doneToken{err: err}
}

func (c *scriptedClient) Disconnect(uint) {}

func (c *scriptedClient) payloads() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, m := range c.sent {
		out = append(out, m.payload)
	}
	return out
}

func msg(s string) bufferedMsg {
	return bufferedMsg{topic: Topic, payload: []byte(s)}
}

func TestRealPublisherSendsWhenConnected(t *testing.T) {
	c := &scriptedClient{connected: true}
	p := newPublisher(c)

	if err := p.send(bufferedMsg{topic: TopicSystem, payload: []byte("x"), qos: 1, retained: true}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(c.sent) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(c.sent))
	}
	if c.sent[0].topic != TopicSystem || c.sent[0].qos != 1 || !c.sent[0].retained {
		t.Errorf("unexpected message: %+v", c.sent[0])
	}
}

func TestRealPublisherReturnsPublishError(t *testing.T) {
	c := &scriptedClient{connected: true, err: errors.New("refused")}
	p := newPublisher(c)

	if err := p.send(msg("a")); err == nil {
		t.Error("expected error")
	}
}

func TestRealPublisherBuffersWhileOffline(t *testing.T) {
	c := &scriptedClient{}
	p := newPublisher(c)

	for _, s := range []string{"a", "b", "c"} {
		if err := p.send(msg(s)); err != nil {
			t.Fatalf("send %s: %v", s, err)
		}
	}
	if len(c.sent) != 0 {
		t.Fatalf("expected nothing published while offline, got %d", len(c.sent))
	}
	if p.buf.len() != 3 {
		t.Errorf("buffered: got %d, want 3", p.buf.len())
	}

	c.setConnected(true)
	p.flush()

	got := c.payloads()
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("replayed %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("replay[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
	if p.buf.len() != 0 {
		t.Errorf("buffer not empty after flush: %d", p.buf.len())
	}
}

func TestRealPublisherSendDuringReplayKeepsOrder(t *testing.T) {
	c := &scriptedClient{}
	p := newPublisher(c)
	p.send(msg("old1"))
	p.send(msg("old2"))

	// A live publish lands while the first replayed message is in flight.
	c.onPublish = func(n int) {
		if n == 1 {
			if err := p.send(msg("live")); err != nil {
				t.Errorf("send during replay: %v", err)
			}
		}
	}
	c.setConnected(true)
	p.flush()

	got := c.payloads()
	want := []string{"old1", "old2", "live"}
	if len(got) != len(want) {
		t.Fatalf("published %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("publish[%d]: got %q, want %q", i, got[i], want[i])
		}
	}
	if p.replaying {
		t.Error("replaying still set after flush")
	}

	// Back to direct publishing once the replay is done.
	c.onPublish = nil
	p.send(msg("after"))
	if got := c.payloads(); got[len(got)-1] != "after" {
		t.Errorf("expected direct publish after replay, got %v", got)
	}
}

func TestRealPublisherFlushStopsWhenDisconnected(t *testing.T) {
	c := &scriptedClient{}
	p := newPublisher(c)
	p.send(msg("a"))

	// Connection drops again during the replay; later sends stay buffered.
	c.onPublish = func(n int) {
		c.setConnected(false)
		p.send(msg("b"))
	}
	c.setConnected(true)
	p.flush()

	if got := c.payloads(); len(got) != 1 || got[0] != "a" {
		t.Errorf("published %v, want [a]", got)
	}
	if p.buf.len() != 1 {
		t.Errorf("buffered: got %d, want 1", p.buf.len())
	}
	if p.replaying {
		t.Error("replaying still set after flush")
	}
}

func TestRealPublisherSendBehindPendingBuffer(t *testing.T) {
	c := &scriptedClient{}
	p := newPublisher(c)
	p.send(msg("a"))

	// Connected but the OnConnect replay has not run yet.
	c.setConnected(true)
	p.send(msg("b"))
	if len(c.payloads()) != 0 {
		t.Fatal("expected new message to queue behind the buffer")
	}

	p.flush()
	got := c.payloads()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("published %v, want [a b]", got)
	}
}
