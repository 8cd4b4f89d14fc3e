package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/gainguard/internal/events"
	"github.com/tphakala/gainguard/internal/gain"
	"github.com/tphakala/gainguard/internal/params"
)

func newGainMetrics(t *testing.T) *GainMetrics {
	t.Helper()
	m, err := NewGainMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestGainMetricsProcessStateEvent(t *testing.T) {
	t.Parallel()

	m := newGainMetrics(t)

	ledger := gain.State{SafeMode: true}
	ledger = ledger.WithSource(gain.BassBoost, 12)
	ledger = ledger.WithSource(gain.Loudness, 5)

	ev := events.NewStateChanged("set_loudness")
	ev.Ledger = ledger
	ev.Mode = params.Mode{SafeMode: true, HardwareProtection: true}

	require.NoError(t, m.ProcessEvent(ev))

	assert.InDelta(t, 17.0, testutil.ToFloat64(m.TotalGainDb), 1e-9)
	assert.InDelta(t, 8.0, testutil.ToFloat64(m.ReductionDb), 1e-9)
	assert.Zero(t, testutil.ToFloat64(m.HeadroomDb))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AgrActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SafeMode))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HardwareProtection))
	assert.Zero(t, testutil.ToFloat64(m.DangerMode))
	assert.InDelta(t, 12.0, testutil.ToFloat64(m.SourceDb.WithLabelValues("bass_boost")), 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("set_loudness")))
}

func TestGainMetricsIgnoresOtherEvents(t *testing.T) {
	t.Parallel()

	m := newGainMetrics(t)
	require.NoError(t, m.ProcessEvent(events.ErrorEnvelope{}))
	assert.Zero(t, testutil.CollectAndCount(m.Operations))
	assert.Equal(t, "metrics", m.Name())
}

func TestGainMetricsPeaksAndFailures(t *testing.T) {
	t.Parallel()

	m := newGainMetrics(t)

	m.ObservePeak(-6, false)
	m.ObservePeak(-0.2, true)
	m.RecordProviderFailure("loudness", "set_target_gain")
	m.RecordProviderFailure("loudness", "set_target_gain")

	assert.InDelta(t, -0.2, testutil.ToFloat64(m.PeakLevelDb), 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Clips))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProviderFailures.WithLabelValues("loudness", "set_target_gain")))
}

func TestDoubleRegistrationFails(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewGainMetrics(registry)
	require.NoError(t, err)
	_, err = NewGainMetrics(registry)
	assert.Error(t, err)
}

func TestHTTPMetricsShareRegistry(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewGainMetrics(registry)
	require.NoError(t, err)
	_, err = NewMQTTMetrics(registry)
	require.NoError(t, err)
	hm, err := NewHTTPMetrics(registry)
	require.NoError(t, err)

	hm.RecordHTTPRequest("POST", "/api/v1/params/bass", 200, 3*time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(hm.httpRequestsTotal.WithLabelValues("POST", "/api/v1/params/bass", "200")))
}
