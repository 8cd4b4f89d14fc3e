// Package metrics provides custom Prometheus metrics for the gain controller.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/gainguard/internal/events"
	"github.com/tphakala/gainguard/internal/gain"
)

// GainMetrics contains all Prometheus metrics of the gain ledger and the
// effect-parameter controller.
type GainMetrics struct {
	TotalGainDb        prometheus.Gauge
	ReductionDb        prometheus.Gauge
	HeadroomDb         prometheus.Gauge
	AgrActive          prometheus.Gauge
	SafeMode           prometheus.Gauge
	DangerMode         prometheus.Gauge
	HardwareProtection prometheus.Gauge
	AudiophileMode     prometheus.Gauge
	SourceDb           *prometheus.GaugeVec
	Operations         *prometheus.CounterVec
	ProviderFailures   *prometheus.CounterVec
	PeakLevelDb        prometheus.Gauge
	PeakDistribution   prometheus.Histogram
	Clips              prometheus.Counter
	registry           *prometheus.Registry
}

// NewGainMetrics creates a new instance of GainMetrics and registers it
// with registry.
func NewGainMetrics(registry *prometheus.Registry) (*GainMetrics, error) {
	m := &GainMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register gain metrics: %w", err)
	}
	return m, nil
}

func boolGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      name,
		Help:      help,
	})
}

// initMetrics initializes all metrics for GainMetrics.
func (m *GainMetrics) initMetrics() {
	m.TotalGainDb = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "ledger_total_gain_db",
		Help:      "Estimated cumulative gain of all sources in dB",
	})

	m.ReductionDb = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "ledger_reduction_db",
		Help:      "Corrective attenuation currently applied in dB",
	})

	m.HeadroomDb = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "ledger_headroom_db",
		Help:      "Remaining gain budget in dB",
	})

	m.AgrActive = boolGauge("ledger_agr_active", "Automatic gain reduction engaged (1) or idle (0)")
	m.SafeMode = boolGauge("mode_safe", "Safe mode enabled (1) or disabled (0)")
	m.DangerMode = boolGauge("mode_danger", "Danger mode (limiter bypass) enabled (1) or disabled (0)")
	m.HardwareProtection = boolGauge("mode_hardware_protection", "Hardware output ceiling enforced (1) or not (0)")
	m.AudiophileMode = boolGauge("mode_audiophile", "Audiophile mode enabled (1) or disabled (0)")

	m.SourceDb = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "ledger_source_gain_db",
			Help:      "Estimated gain contribution per source in dB",
		},
		[]string{"source"}, // source: bass_boost, equalizer_peak, loudness, compressor_makeup, exciter
	)

	m.Operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "controller_operations_total",
			Help:      "Total number of controller operations that changed state",
		},
		[]string{"operation"},
	)

	m.ProviderFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "provider_failures_total",
			Help:      "Total number of failed or unsupported effect provider calls",
		},
		[]string{"provider", "operation"},
	)

	m.PeakLevelDb = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "output_peak_dbfs",
		Help:      "Most recent output peak level in dBFS",
	})

	m.PeakDistribution = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "output_peak_level_dbfs",
		Help:      "Distribution of reported output peak levels in dBFS",
		Buckets:   prometheus.LinearBuckets(BucketPeakLinearStart, BucketPeakLinearWidth, BucketPeakLinearCount),
	})

	m.Clips = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "output_clips_total",
		Help:      "Total number of peaks above the active output ceiling",
	})
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ObserveLedger copies a ledger snapshot into the gauges.
func (m *GainMetrics) ObserveLedger(s gain.State) {
	m.TotalGainDb.Set(s.TotalDb)
	m.ReductionDb.Set(s.ReductionDb)
	m.HeadroomDb.Set(s.HeadroomDb())
	m.AgrActive.Set(b2f(s.AgrActive))
	for _, kind := range gain.AllSources {
		m.SourceDb.WithLabelValues(kind.String()).Set(s.Source(kind))
	}
}

// RecordProviderFailure counts one failed provider call.
func (m *GainMetrics) RecordProviderFailure(provider, operation string) {
	m.ProviderFailures.WithLabelValues(provider, operation).Inc()
}

// ObservePeak records a peak level report and whether it clipped.
func (m *GainMetrics) ObservePeak(dbfs float64, clipped bool) {
	m.PeakLevelDb.Set(dbfs)
	m.PeakDistribution.Observe(dbfs)
	if clipped {
		m.Clips.Inc()
	}
}

// Name implements events.EventConsumer.
func (m *GainMetrics) Name() string { return "metrics" }

// ProcessEvent implements events.EventConsumer. State events update the
// ledger and mode gauges; other events are ignored.
func (m *GainMetrics) ProcessEvent(event events.Event) error {
	e, ok := event.(*events.StateChanged)
	if !ok {
		return nil
	}
	m.ObserveLedger(e.Ledger)
	m.SafeMode.Set(b2f(e.Mode.SafeMode))
	m.DangerMode.Set(b2f(e.Mode.DangerMode))
	m.HardwareProtection.Set(b2f(e.Mode.HardwareProtection))
	m.AudiophileMode.Set(b2f(e.Mode.AudiophileMode))
	m.Operations.WithLabelValues(e.Operation).Inc()
	return nil
}

// Collect implements the prometheus.Collector interface.
func (m *GainMetrics) Collect(ch chan<- prometheus.Metric) {
	m.TotalGainDb.Collect(ch)
	m.ReductionDb.Collect(ch)
	m.HeadroomDb.Collect(ch)
	m.AgrActive.Collect(ch)
	m.SafeMode.Collect(ch)
	m.DangerMode.Collect(ch)
	m.HardwareProtection.Collect(ch)
	m.AudiophileMode.Collect(ch)
	m.SourceDb.Collect(ch)
	m.Operations.Collect(ch)
	m.ProviderFailures.Collect(ch)
	m.PeakLevelDb.Collect(ch)
	m.PeakDistribution.Collect(ch)
	m.Clips.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *GainMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.TotalGainDb.Describe(ch)
	m.ReductionDb.Describe(ch)
	m.HeadroomDb.Describe(ch)
	m.AgrActive.Describe(ch)
	m.SafeMode.Describe(ch)
	m.DangerMode.Describe(ch)
	m.HardwareProtection.Describe(ch)
	m.AudiophileMode.Describe(ch)
	m.SourceDb.Describe(ch)
	m.Operations.Describe(ch)
	m.ProviderFailures.Describe(ch)
	m.PeakLevelDb.Describe(ch)
	m.PeakDistribution.Describe(ch)
	m.Clips.Describe(ch)
}
