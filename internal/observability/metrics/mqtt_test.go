package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMQTTMetricsObservePublish(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewMQTTMetrics(reg)
	require.NoError(t, err)

	// Both status series are exported before any publish
	assert.Equal(t, 2, testutil.CollectAndCount(m.Publishes))

	start := time.Now()
	m.ObservePublish(start, 300, nil)
	m.ObservePublish(start, 300, nil)
	m.ObservePublish(start, 300, errors.New("publish timeout"))

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.Publishes.WithLabelValues(StatusSuccess)), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Publishes.WithLabelValues(StatusError)), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.PayloadSize))

	m.UpdateConnectionStatus(true)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.ConnectionStatus), 0)
	assert.Positive(t, testutil.ToFloat64(m.LastConnectTime))
	m.UpdateConnectionStatus(false)
	assert.InDelta(t, 0.0, testutil.ToFloat64(m.ConnectionStatus), 0)

	_, err = NewMQTTMetrics(reg)
	assert.Error(t, err, "registering twice on one registry fails")
}
