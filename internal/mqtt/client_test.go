package mqtt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/gainguard/internal/errors"
)

func TestNewClientRequiresBroker(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestClientConnectRejectsBadBroker(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		broker string
	}{
		{"no host", "tcp://:1883"},
		{"unparsable", "tcp://[::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := NewClient(Config{Broker: tt.broker, ClientID: "test"}, nil)
			require.NoError(t, err)

			err = c.Connect(context.Background())
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategoryMQTTConnection))
			assert.False(t, c.IsConnected())
			c.Disconnect()
		})
	}
}

func TestClientPublishWhileDisconnected(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Broker: "tcp://127.0.0.1:1883"}, nil)
	require.NoError(t, err)

	err = c.Publish(context.Background(), "gainguard/state", "{}")
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTPublish))

	// repeated disconnects are safe
	c.Disconnect()
	c.Disconnect()
}

func TestConfigStateTopic(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, "gainguard/state", cfg.StateTopic())
	assert.Positive(t, cfg.MinPublishInterval)
}
