package mqtt

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/tphakala/gainguard/internal/errors"
	"github.com/tphakala/gainguard/internal/logger"
	"github.com/tphakala/gainguard/internal/observability/metrics"
	"github.com/tphakala/gainguard/internal/privacy"
)

// maxReconnectInterval caps paho's reconnect backoff.
const maxReconnectInterval = 2 * time.Minute

// client is the paho backed Client. Reconnects after a lost connection and
// retries of the first connection are left to paho.
type client struct {
	cfg     Config
	metrics *metrics.MQTTMetrics
	logger  logger.Logger

	mu   sync.Mutex
	conn paho.Client
}

// NewClient validates cfg and returns an unconnected client. m may be nil.
func NewClient(cfg Config, m *metrics.MQTTMetrics) (Client, error) {
	if cfg.Broker == "" {
		return nil, errors.Newf("mqtt broker address is empty").
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Build()
	}
	defaults := DefaultConfig()
	cfg.ConnectTimeout = orDefault(cfg.ConnectTimeout, defaults.ConnectTimeout)
	cfg.PublishTimeout = orDefault(cfg.PublishTimeout, defaults.PublishTimeout)
	cfg.DisconnectTimeout = orDefault(cfg.DisconnectTimeout, defaults.DisconnectTimeout)
	cfg.ReconnectDelay = orDefault(cfg.ReconnectDelay, defaults.ReconnectDelay)
	return &client{cfg: cfg, metrics: m, logger: getLogger()}, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// Connect starts the broker connection and waits up to ConnectTimeout for
// it. On timeout an error is returned but paho keeps retrying every
// ReconnectDelay until Disconnect. Calling Connect again is a no-op.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	host, err := c.brokerHost()
	if err != nil {
		return connectionError(err)
	}
	// Resolve up front so DNS failures are reported as such instead of as a timeout
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return connectionError(fmt.Errorf("failed to resolve broker host %s: %w", host, err))
		}
	}

	opts := paho.NewClientOptions().
		AddBroker(c.cfg.Broker).
		SetClientID(c.cfg.ClientID).
		SetUsername(c.cfg.Username).
		SetPassword(c.cfg.Password).
		SetCleanSession(true).
		SetConnectTimeout(c.cfg.ConnectTimeout).
		SetConnectRetry(true).
		SetConnectRetryInterval(c.cfg.ReconnectDelay).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(maxReconnectInterval).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost).
		SetReconnectingHandler(c.onReconnecting)

	c.conn = paho.NewClient(opts)
	token := c.conn.Connect()

	timer := time.NewTimer(c.cfg.ConnectTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return connectionError(privacy.WrapError(fmt.Errorf("connection error: %w", err)))
		}
		return nil
	case <-timer.C:
		return connectionError(fmt.Errorf("not connected after %v, retrying in background", c.cfg.ConnectTimeout))
	case <-ctx.Done():
		return connectionError(ctx.Err())
	}
}

func (c *client) brokerHost() (string, error) {
	u, err := url.Parse(c.cfg.Broker)
	if err != nil {
		return "", fmt.Errorf("invalid broker URL: %w", privacy.WrapError(err))
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("broker URL %q has no host", privacy.RedactURL(c.cfg.Broker))
	}
	return u.Hostname(), nil
}

// Publish sends payload with QoS 0 and waits for paho to hand it off, bounded
// by PublishTimeout and ctx.
func (c *client) Publish(ctx context.Context, topic, payload string) (err error) {
	conn := c.connection()
	if conn == nil || !conn.IsConnected() {
		return publishError(fmt.Errorf("not connected to MQTT broker"), topic)
	}

	start := time.Now()
	if c.metrics != nil {
		defer func() { c.metrics.ObservePublish(start, len(payload), err) }()
	}
	c.logger.Trace("publishing", logger.String("topic", topic), logger.Int("bytes", len(payload)))

	token := conn.Publish(topic, 0, c.cfg.Retain, payload)
	timer := time.NewTimer(c.cfg.PublishTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return publishError(err, topic)
		}
		return nil
	case <-timer.C:
		return publishError(fmt.Errorf("publish timeout after %v", c.cfg.PublishTimeout), topic)
	case <-ctx.Done():
		return publishError(ctx.Err(), topic)
	}
}

func (c *client) connection() paho.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *client) IsConnected() bool {
	conn := c.connection()
	return conn != nil && conn.IsConnected()
}

// Disconnect closes the connection and stops background retries. It is
// safe to call more than once.
func (c *client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return
	}
	conn.Disconnect(uint(c.cfg.DisconnectTimeout.Milliseconds()))
	c.setConnected(false)
}

func (c *client) onConnect(paho.Client) {
	c.logger.Info("connected to MQTT broker", logger.String("broker", privacy.RedactURL(c.cfg.Broker)))
	c.setConnected(true)
}

func (c *client) onConnectionLost(_ paho.Client, err error) {
	c.logger.Warn("connection to MQTT broker lost",
		logger.String("broker", privacy.RedactURL(c.cfg.Broker)),
		logger.Error(privacy.WrapError(err)))
	c.setConnected(false)
}

func (c *client) onReconnecting(paho.Client, *paho.ClientOptions) {
	c.logger.Debug("reconnecting to MQTT broker")
	if c.metrics != nil {
		c.metrics.IncrementReconnects()
	}
}

func (c *client) setConnected(connected bool) {
	if c.metrics != nil {
		c.metrics.UpdateConnectionStatus(connected)
	}
}

func connectionError(err error) error {
	return errors.New(err).
		Component("mqtt").
		Category(errors.CategoryMQTTConnection).
		Build()
}

func publishError(err error, topic string) error {
	return errors.New(err).
		Component("mqtt").
		Category(errors.CategoryMQTTPublish).
		Context("topic", topic).
		Build()
}
