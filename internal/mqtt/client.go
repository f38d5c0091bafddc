// Package mqtt owns the broker connection: retained event and status
// topics, Home Assistant discovery, availability and command intake.
package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
)

// MessageHandler receives an inbound message.
type MessageHandler func(topic string, payload []byte)

// Client is the thin broker surface the publisher and command handler
// need. Faked in tests; backed by paho in production.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Connected() bool
	Disconnect(quiesce time.Duration)
}

// ConnectOptions configures the broker connection. The will message is the
// broker-side dead-man's-switch: a retained "offline" on the availability
// topic, delivered by the broker itself on an ungraceful disconnect.
type ConnectOptions struct {
	BrokerHost        string
	BrokerPort        int
	TLS               bool
	Username          string
	Password          string
	ClientID          string
	AvailabilityTopic string
	QoS               byte
}

type pahoClient struct {
	inner paho.Client
}

// Connect establishes the broker connection with the last-will configured.
func Connect(opts ConnectOptions) (Client, error) {
	if opts.BrokerHost == "" {
		return nil, fmt.Errorf("mqtt broker host is required")
	}
	scheme := "tcp"
	if opts.TLS {
		scheme = "ssl"
	}

	po := paho.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, opts.BrokerHost, opts.BrokerPort)).
		SetClientID(opts.ClientID).
		SetConnectTimeout(defaultConnectTimeout).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if opts.Username != "" {
		po.SetUsername(opts.Username)
		po.SetPassword(opts.Password)
	}
	if opts.AvailabilityTopic != "" {
		po.SetBinaryWill(opts.AvailabilityTopic, []byte(PayloadOffline), opts.QoS, true)
	}

	client := paho.NewClient(po)
	token := client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("timed out connecting to broker %s:%d", opts.BrokerHost, opts.BrokerPort)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to broker %s:%d: %w", opts.BrokerHost, opts.BrokerPort, err)
	}
	return &pahoClient{inner: client}, nil
}

func (c *pahoClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.inner.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s failed: %w", topic, err)
	}
	return nil
}

func (c *pahoClient) Subscribe(topic string, qos byte, handler MessageHandler) error {
	token := c.inner.Subscribe(topic, qos, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(defaultConnectTimeout) {
		return fmt.Errorf("subscribe to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s failed: %w", topic, err)
	}
	return nil
}

func (c *pahoClient) Connected() bool {
	return c.inner.IsConnected()
}

func (c *pahoClient) Disconnect(quiesce time.Duration) {
	c.inner.Disconnect(uint(quiesce.Milliseconds()))
}
