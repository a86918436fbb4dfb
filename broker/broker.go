package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"speedguard/config"
)

// MessageHandler receives one inbound payload from a subscribed topic.
type MessageHandler func(topic string, payload []byte)

// Broker wraps the MQTT client. It owns connection lifecycle: a bounded
// exponential-backoff connect loop, resubscription after reconnect, and an
// online/offline status announcement on the status topic (the offline form is
// also registered as the last will, so ungraceful drops announce too).
type Broker struct {
	cfg      config.MQTTConfig
	clientID string
	client   mqtt.Client

	mu      sync.Mutex
	subs    map[string]MessageHandler
	healthy atomic.Bool
	closed  atomic.Bool

	// Seams for the retry policy. dial makes one connection attempt;
	// sleep waits out one backoff delay or the context, whichever ends
	// first.
	dial  func() error
	sleep func(ctx context.Context, d time.Duration) error
}

type statusPayload struct {
	Status   string `json:"status"`
	ClientID string `json:"clientId"`
	TS       string `json:"ts"`
}

func New(cfg config.MQTTConfig) *Broker {
	b := &Broker{
		cfg:      cfg,
		clientID: cfg.ClientIDPrefix + "-" + time.Now().Format("20060102150405"),
		subs:     make(map[string]MessageHandler),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(b.clientID)
	opts.SetCleanSession(true)
	// Reconnection is driven by our own bounded retry loop, not paho's.
	opts.SetAutoReconnect(false)
	opts.SetWill(cfg.StatusTopic, string(b.statusJSON("offline")), cfg.QoS, true)
	opts.OnConnect = func(client mqtt.Client) {
		b.healthy.Store(true)
		b.resubscribe(client)
		if token := client.Publish(cfg.StatusTopic, cfg.QoS, true, b.statusJSON("online")); token.Wait() && token.Error() != nil {
			log.Printf("status publish failed: %v", token.Error())
		}
		log.Printf("mqtt connected: broker=%s client=%s", cfg.BrokerURL, b.clientID)
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		b.healthy.Store(false)
		log.Printf("mqtt connection lost: %v", err)
		if !b.closed.Load() {
			go b.reconnect()
		}
	}

	b.client = mqtt.NewClient(opts)
	b.dial = func() error {
		token := b.client.Connect()
		token.Wait()
		return token.Error()
	}
	b.sleep = func(ctx context.Context, d time.Duration) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
			return nil
		}
	}
	return b
}

// Connect dials the broker, retrying with exponential backoff up to the
// configured attempt count. Exhausting the attempts returns an error; the
// caller decides whether that is fatal (startup) or merely unhealthy.
func (b *Broker) Connect(ctx context.Context) error {
	delay := b.cfg.RetryBaseDelay
	var lastErr error

	for attempt := 1; attempt <= b.cfg.ConnectRetries; attempt++ {
		if lastErr = b.dial(); lastErr == nil {
			return nil
		}

		if attempt == b.cfg.ConnectRetries {
			break
		}

		log.Printf("mqtt connect attempt %d/%d failed: %v (retrying in %s)",
			attempt, b.cfg.ConnectRetries, lastErr, delay)

		if err := b.sleep(ctx, delay); err != nil {
			return err
		}

		delay *= 2
		if delay > b.cfg.RetryMaxDelay {
			delay = b.cfg.RetryMaxDelay
		}
	}

	return fmt.Errorf("mqtt connect failed after %d attempts: %w", b.cfg.ConnectRetries, lastErr)
}

// reconnect runs the same bounded retry policy after a lost connection.
// When the attempts are exhausted the broker stays down and Healthy()
// reports false; the process does not exit.
func (b *Broker) reconnect() {
	if err := b.Connect(context.Background()); err != nil {
		log.Printf("mqtt reconnect abandoned: %v", err)
	}
}

// Subscribe registers a handler for a topic. The subscription survives
// reconnects.
func (b *Broker) Subscribe(topic string, handler MessageHandler) error {
	b.mu.Lock()
	b.subs[topic] = handler
	b.mu.Unlock()

	token := b.client.Subscribe(topic, b.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", topic, token.Error())
	}
	log.Printf("subscribed to topic=%s qos=%d", topic, b.cfg.QoS)
	return nil
}

func (b *Broker) resubscribe(client mqtt.Client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for topic, handler := range b.subs {
		h := handler
		token := client.Subscribe(topic, b.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
			h(msg.Topic(), msg.Payload())
		})
		token.Wait()
		if token.Error() != nil {
			log.Printf("mqtt resubscribe %s failed: %v", topic, token.Error())
		}
	}
}

// Publish sends a payload with the configured QoS.
func (b *Broker) Publish(topic string, payload []byte) error {
	token := b.client.Publish(topic, b.cfg.QoS, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, token.Error())
	}
	return nil
}

// Healthy reports whether the broker connection is up.
func (b *Broker) Healthy() bool {
	return b.healthy.Load()
}

// Disconnect announces offline status and closes the connection gracefully.
func (b *Broker) Disconnect() {
	b.closed.Store(true)
	if b.client.IsConnected() {
		if token := b.client.Publish(b.cfg.StatusTopic, b.cfg.QoS, true, b.statusJSON("offline")); token.Wait() && token.Error() != nil {
			log.Printf("offline status publish failed: %v", token.Error())
		}
	}
	b.client.Disconnect(250)
	b.healthy.Store(false)
}

func (b *Broker) statusJSON(status string) []byte {
	data, _ := json.Marshal(statusPayload{
		Status:   status,
		ClientID: b.clientID,
		TS:       time.Now().UTC().Format(time.RFC3339),
	})
	return data
}
