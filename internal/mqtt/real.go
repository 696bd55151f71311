package mqtt

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/ledpattern/internal/events"
)

// bufferCapacity is how many messages are held while disconnected.
const bufferCapacity = 256

// brokerClient is the part of paho.Client the publisher uses.
type brokerClient interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an actual MQTT broker.
// While the broker is unreachable, messages are kept in a ring buffer and
// replayed in order once the client reconnects. Messages sent during a
// replay queue behind it.
type RealPublisher struct {
	client brokerClient

	mu        sync.Mutex
	buf       *ringBuffer
	replaying bool
}

func newPublisher(client brokerClient) *RealPublisher {
	return &RealPublisher{client: client, buf: newRingBuffer(bufferCapacity)}
}

// NewRealPublisher creates a publisher for the given broker.
// If the broker is not reachable within a few seconds the client keeps
// retrying in the background and publishes are buffered meanwhile.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	p := newPublisher(nil)

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(willPayload()), 1, true).
		SetOnConnectHandler(func(paho.Client) {
			log.Printf("mqtt: connected to %s", broker)
			p.flush()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	client := paho.NewClient(opts)
	p.client = client
	token := client.Connect()
	if token.WaitTimeout(3 * time.Second) {
		if err := token.Error(); err != nil {
			return nil, fmt.Errorf("connect to broker: %w", err)
		}
	} else {
		log.Printf("mqtt: broker %s not reachable yet, retrying in background", broker)
	}

	return p, nil
}

// IsConnected reports whether the client currently has a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Publish sends a blink or preset event to the broker.
func (p *RealPublisher) Publish(event events.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.send(bufferedMsg{topic: Topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return p.send(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	p.mu.Lock()
	if p.replaying || p.buf.len() > 0 || !p.client.IsConnectionOpen() {
		p.buf.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.publish(msg)
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return errors.New("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// flush replays buffered messages after a (re)connect. It keeps draining
// until the buffer is empty, so anything sent meanwhile goes out after the
// older messages. Replay stops early if the connection drops again.
func (p *RealPublisher) flush() {
	p.mu.Lock()
	if p.replaying {
		p.mu.Unlock()
		return
	}
	p.replaying = true
	for {
		if !p.client.IsConnectionOpen() || p.buf.len() == 0 {
			p.replaying = false
			p.mu.Unlock()
			return
		}
		msgs := p.buf.drainAll()
		p.mu.Unlock()

		log.Printf("mqtt: replaying %d buffered messages", len(msgs))
		for _, msg := range msgs {
			if err := p.publish(msg); err != nil {
				log.Printf("mqtt: replay error: %v", err)
			}
		}
		p.mu.Lock()
	}
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
