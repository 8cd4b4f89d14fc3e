package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTTMetrics tracks the state broadcaster: broker connectivity, publish
// outcomes and coalesced updates.
type MQTTMetrics struct {
	ConnectionStatus  prometheus.Gauge
	LastConnectTime   prometheus.Gauge
	Reconnects        prometheus.Counter
	Publishes         *prometheus.CounterVec // by status
	MessagesThrottled prometheus.Counter
	PayloadSize       prometheus.Histogram
	PublishLatency    prometheus.Histogram
}

// NewMQTTMetrics registers the broadcaster metrics with registry.
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		ConnectionStatus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "mqtt_connection_status",
			Help:      "Broker connection state (1 connected, 0 disconnected)",
		}),
		LastConnectTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "mqtt_last_connect_time_seconds",
			Help:      "Unix time of the last successful broker connection",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "mqtt_reconnects_total",
			Help:      "Reconnect attempts after the broker connection was lost",
		}),
		Publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "mqtt_state_publishes_total",
			Help:      "State snapshots published, by outcome",
		}, []string{"status"}),
		MessagesThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "mqtt_messages_throttled_total",
			Help:      "State updates superseded before they were published",
		}),
		PayloadSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "mqtt_payload_size_bytes",
			Help:      "Size of published state snapshots",
			Buckets:   prometheus.ExponentialBuckets(BucketStart64B, BucketFactor2, BucketCount10),
		}),
		PublishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "mqtt_publish_latency_seconds",
			Help:      "Time until the broker acknowledged a publish",
			Buckets:   prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
		}),
	}

	// Both labels exist from the start so rate() works before the first error
	m.Publishes.WithLabelValues(StatusSuccess)
	m.Publishes.WithLabelValues(StatusError)

	for _, c := range m.collectors() {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
		}
	}
	return m, nil
}

func (m *MQTTMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ConnectionStatus,
		m.LastConnectTime,
		m.Reconnects,
		m.Publishes,
		m.MessagesThrottled,
		m.PayloadSize,
		m.PublishLatency,
	}
}

// UpdateConnectionStatus records a connect or disconnect.
func (m *MQTTMetrics) UpdateConnectionStatus(connected bool) {
	if !connected {
		m.ConnectionStatus.Set(0)
		return
	}
	m.ConnectionStatus.Set(1)
	m.LastConnectTime.SetToCurrentTime()
}

func (m *MQTTMetrics) IncrementReconnects() { m.Reconnects.Inc() }

func (m *MQTTMetrics) IncrementMessagesThrottled() { m.MessagesThrottled.Inc() }

// ObservePublish records one publish attempt that started at start. Size
// and latency are only observed for successful publishes.
func (m *MQTTMetrics) ObservePublish(start time.Time, size int, err error) {
	if err != nil {
		m.Publishes.WithLabelValues(StatusError).Inc()
		return
	}
	m.Publishes.WithLabelValues(StatusSuccess).Inc()
	m.PayloadSize.Observe(float64(size))
	m.PublishLatency.Observe(time.Since(start).Seconds())
}
