package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/sweeney/bench-rover/internal/logic"
)

// DefaultOutboxSize is how many messages are kept while the broker is away.
const DefaultOutboxSize = 256

// Options configures the broker connection.
type Options struct {
	Broker string
	// ClientID defaults to "bench-rover-" plus a random suffix, so two
	// rovers on one broker do not kick each other off.
	ClientID       string
	OutboxSize     int
	ConnectTimeout time.Duration
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are queued and replayed, oldest first, on
// reconnect.
type RealPublisher struct {
	client paho.Client
	now    func() time.Time

	mu         sync.Mutex
	outbox     *outbox
	connected  bool // at least one successful connect
	reconnects int
	subs       map[string]func([]byte)
}

func newRealPublisher(client paho.Client, outboxSize int) *RealPublisher {
	if outboxSize <= 0 {
		outboxSize = DefaultOutboxSize
	}
	return &RealPublisher{
		client: client,
		now:    time.Now,
		outbox: newOutbox(outboxSize),
		subs:   make(map[string]func([]byte)),
	}
}

// NewRealPublisher creates a publisher for the given broker. If the broker
// does not answer within the connect timeout the publisher is still
// returned; it keeps retrying in the background and queues until connected.
func NewRealPublisher(opts Options) (*RealPublisher, error) {
	clientID := opts.ClientID
	if clientID == "" {
		clientID = "bench-rover-" + uuid.NewString()[:8]
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	p := newRealPublisher(nil, opts.OutboxSize)
	clientOpts := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, WillPayload(), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(clientOpts)
	token := p.client.Connect()
	if !token.WaitTimeout(timeout) {
		log.Printf("mqtt: broker %s not reachable yet, queueing until connected", opts.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// onConnect restores subscriptions, replays the outbox and, after a
// reconnect, announces RECONNECTED. paho runs it in its own goroutine.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	first := !p.connected
	p.connected = true
	if !first {
		p.reconnects++
	}
	queued := p.outbox.drain()
	subs := make(map[string]func([]byte), len(p.subs))
	for topic, h := range p.subs {
		subs[topic] = h
	}
	p.mu.Unlock()

	if first {
		log.Printf("mqtt: connected")
	} else {
		log.Printf("mqtt: reconnected, replaying %d queued messages", len(queued))
	}

	for topic, h := range subs {
		if err := subscribe(c, topic, h); err != nil {
			log.Printf("mqtt: %v", err)
		}
	}
	for _, m := range queued {
		if err := send(c, m); err != nil {
			log.Printf("mqtt: replay to %s: %v", m.topic, err)
		}
	}

	if !first {
		evt := SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"}
		if err := p.PublishSystem(evt); err != nil {
			log.Printf("mqtt: publish reconnected: %v", err)
		}
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	log.Printf("mqtt: connection lost: %v", err)
}

func subscribe(c paho.Client, topic string, h func([]byte)) error {
	token := c.Subscribe(topic, 1, func(_ paho.Client, m paho.Message) {
		h(m.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

func send(c paho.Client, m pending) error {
	token := c.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// publish sends now if the connection is open, otherwise queues.
func (p *RealPublisher) publish(m pending) error {
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.outbox.push(m)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return send(p.client, m)
}

// Publish sends a control event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event, p.now())
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.publish(pending{topic: Topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once); lifecycle events matter more than control chatter
	return p.publish(pending{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// PublishRaw sends payload to topic at QoS 0.
func (p *RealPublisher) PublishRaw(topic string, payload []byte) error {
	return p.publish(pending{topic: topic, payload: payload})
}

// Subscribe registers handler for topic, now if connected and again after
// every reconnect.
func (p *RealPublisher) Subscribe(topic string, handler func(payload []byte)) error {
	p.mu.Lock()
	p.subs[topic] = handler
	open := p.client.IsConnectionOpen()
	p.mu.Unlock()

	if !open {
		return nil
	}
	return subscribe(p.client, topic, handler)
}

// IsConnected reports whether the broker connection is currently open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Stats reports queued messages, messages dropped from a full outbox, and
// reconnect count.
func (p *RealPublisher) Stats() (queued, dropped, reconnects int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outbox.len(), p.outbox.dropped, p.reconnects
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
