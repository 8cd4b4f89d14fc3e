// Package mqtt broadcasts controller state to an MQTT broker.
package mqtt

import (
	"context"
	"time"

	"github.com/tphakala/gainguard/internal/logger"
)

// Client is the broker connection used by Publisher.
type Client interface {
	Connect(ctx context.Context) error
	Publish(ctx context.Context, topic, payload string) error
	IsConnected() bool
	Disconnect()
}

// Config holds the configuration for the MQTT client and state publisher.
type Config struct {
	Broker             string
	ClientID           string
	Username           string
	Password           string
	Topic              string // base topic, state goes to <Topic>/state
	Retain             bool
	MinPublishInterval time.Duration
	ReconnectDelay     time.Duration // retry interval until the first connect succeeds
	ConnectTimeout     time.Duration
	PublishTimeout     time.Duration
	DisconnectTimeout  time.Duration
}

// StateTopic returns the topic state snapshots are published to.
func (c Config) StateTopic() string {
	return c.Topic + "/state"
}

// DefaultConfig returns the broadcaster defaults; Broker is left empty.
func DefaultConfig() Config {
	return Config{
		ClientID:           "gainguard",
		Topic:              "gainguard",
		MinPublishInterval: 250 * time.Millisecond,
		ReconnectDelay:     1 * time.Second,
		ConnectTimeout:     30 * time.Second,
		PublishTimeout:     10 * time.Second,
		DisconnectTimeout:  250 * time.Millisecond,
	}
}

func getLogger() logger.Logger {
	return logger.Global().Module("mqtt")
}
