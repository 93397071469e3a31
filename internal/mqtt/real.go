package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/amp-ircontrol/internal/logger"
	"github.com/sweeney/amp-ircontrol/internal/logic"
)

// DefaultBufferSize is how many messages are held while the broker is unreachable.
const DefaultBufferSize = 100

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	BufferSize int
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	log    *logger.Logger
	now    func() time.Time

	mu        sync.Mutex
	buf       *ringBuffer
	subs      map[string]func([]byte)
	connected bool // set after the first successful connect
}

// NewRealPublisher creates a publisher connected to the given broker.
// An unreachable broker is not fatal: the client keeps retrying in the background.
func NewRealPublisher(o Options, log *logger.Logger) (*RealPublisher, error) {
	if o.ClientID == "" {
		o.ClientID = "amp-ircontrol"
	}
	if o.BufferSize == 0 {
		o.BufferSize = DefaultBufferSize
	}
	p := newPublisher(o.BufferSize, log)

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: p.now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(TopicSystem, will, 1, false).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		p.log.Warnw("mqtt broker not reachable yet, buffering", "broker", o.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func newPublisher(bufferSize int, log *logger.Logger) *RealPublisher {
	if log == nil {
		log = logger.NewNop()
	}
	return &RealPublisher{
		log:  log,
		now:  time.Now,
		buf:  newRingBuffer(bufferSize),
		subs: make(map[string]func([]byte)),
	}
}

// onConnect resubscribes, replays buffered messages and announces reconnection.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	pending := p.buf.drainAll()
	subs := make(map[string]func([]byte), len(p.subs))
	for topic, h := range p.subs {
		subs[topic] = h
	}
	reconnect := p.connected
	p.connected = true
	p.mu.Unlock()

	p.log.Infow("mqtt connected", "replay", len(pending), "subscriptions", len(subs))

	for topic, h := range subs {
		if err := p.subscribe(topic, h); err != nil {
			p.log.Warnw("mqtt resubscribe failed", "topic", topic, "err", err)
		}
	}
	for _, m := range pending {
		if err := p.send(m); err != nil {
			p.log.Warnw("mqtt replay failed", "topic", m.topic, "err", err)
		}
	}
	if reconnect {
		if err := p.PublishSystem(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"}); err != nil {
			p.log.Warnw("mqtt reconnect announcement failed", "err", err)
		}
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.log.Warnw("mqtt connection lost", "err", err)
}

// Publish sends an amplifier event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.publish(bufferedMsg{topic: Topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

// publish sends m, or buffers it while disconnected. The connection check
// and the push happen under mu so onConnect cannot drain in between.
func (p *RealPublisher) publish(m bufferedMsg) error {
	p.mu.Lock()
	if p.client.IsConnectionOpen() {
		p.mu.Unlock()
		return p.send(m)
	}
	overflow := p.buf.push(m)
	p.mu.Unlock()
	if overflow {
		p.log.Warnw("mqtt buffer full, dropping oldest", "capacity", p.buf.capacity)
	}
	return nil
}

func (p *RealPublisher) send(m bufferedMsg) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

// Subscribe registers handler for topic. Subscriptions survive reconnects.
func (p *RealPublisher) Subscribe(topic string, handler func(payload []byte)) error {
	p.mu.Lock()
	p.subs[topic] = handler
	p.mu.Unlock()

	if !p.client.IsConnectionOpen() {
		return nil
	}
	return p.subscribe(topic, handler)
}

func (p *RealPublisher) subscribe(topic string, handler func([]byte)) error {
	token := p.client.Subscribe(topic, 1, func(_ paho.Client, msg paho.Message) {
		handler(msg.Payload())
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is currently up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns how many messages are waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second quiesce
	return nil
}
