package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/gainguard/internal/events"
	"github.com/tphakala/gainguard/internal/gain"
	"github.com/tphakala/gainguard/internal/observability/metrics"
	"github.com/tphakala/gainguard/internal/params"
	"github.com/tphakala/gainguard/internal/presets"
	ggtest "github.com/tphakala/gainguard/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type published struct {
	topic   string
	payload string
}

type mockClient struct {
	mu           sync.Mutex
	connectErr   error
	publishErr   error
	connected    bool
	disconnected bool
	attempts     int
	messages     []published
}

func (m *mockClient) Connect(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectErr != nil {
		return m.connectErr
	}
	m.connected = true
	return nil
}

func (m *mockClient) Publish(_ context.Context, topic, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.publishErr != nil {
		return m.publishErr
	}
	m.messages = append(m.messages, published{topic: topic, payload: payload})
	return nil
}

func (m *mockClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockClient) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	m.disconnected = true
}

func (m *mockClient) published() []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]published(nil), m.messages...)
}

func stateEvent(op string, ledger gain.State) *events.StateChanged {
	ev := events.NewStateChanged(op)
	ev.Ledger = ledger
	ev.Mode = params.DefaultMode()
	ev.BattleMode = presets.FullAssault
	return ev
}

func runPublisher(t *testing.T, p *Publisher) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	return func() {
		stop()
		assert.NoError(t, ggtest.WaitForValue(t, done, ggtest.DefaultTestTimeout, "publisher did not stop"))
	}
}

func TestPublisherLatestStateWins(t *testing.T) {
	t.Parallel()

	m, err := metrics.NewMQTTMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	client := &mockClient{}
	cfg := DefaultConfig()
	cfg.Topic = "car/audio"
	p := NewPublisher(client, cfg, m)

	for i := range 3 {
		require.NoError(t, p.ProcessEvent(stateEvent(fmt.Sprintf("step_%d", i), gain.State{})))
	}
	assert.InDelta(t, 2.0, testutil.ToFloat64(m.MessagesThrottled), 0)

	stop := runPublisher(t, p)
	require.Eventually(t, func() bool { return len(client.published()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(3 * cfg.MinPublishInterval)
	stop()

	msgs := client.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, "car/audio/state", msgs[0].topic)

	var payload StatePayload
	require.NoError(t, json.Unmarshal([]byte(msgs[0].payload), &payload))
	assert.Equal(t, "step_2", payload.Operation)
	assert.Equal(t, "full_assault", payload.BattleMode)

	client.mu.Lock()
	assert.True(t, client.disconnected)
	client.mu.Unlock()
}

func TestPublisherRateLimitsUpdates(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	cfg := DefaultConfig()
	cfg.MinPublishInterval = 100 * time.Millisecond
	p := NewPublisher(client, cfg, nil)

	stop := runPublisher(t, p)
	defer stop()

	start := time.Now()
	require.NoError(t, p.ProcessEvent(stateEvent("first", gain.State{})))
	require.Eventually(t, func() bool { return len(client.published()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, p.ProcessEvent(stateEvent("second", gain.State{})))
	require.Eventually(t, func() bool { return len(client.published()) == 2 }, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestPublisherIgnoresOtherEvents(t *testing.T) {
	t.Parallel()

	p := NewPublisher(&mockClient{}, DefaultConfig(), nil)
	require.NoError(t, p.ProcessEvent(events.ErrorEnvelope{}))
	assert.Nil(t, p.take())
	assert.Equal(t, "mqtt", p.Name())
}

func TestPublisherSurvivesBrokerFailures(t *testing.T) {
	t.Parallel()

	client := &mockClient{
		connectErr: fmt.Errorf("connection refused"),
		publishErr: fmt.Errorf("not connected"),
	}
	p := NewPublisher(client, DefaultConfig(), nil)
	stop := runPublisher(t, p)

	require.NoError(t, p.ProcessEvent(stateEvent("set_loudness", gain.State{})))
	require.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.attempts == 1
	}, time.Second, 5*time.Millisecond)
	stop()

	assert.Empty(t, client.published())
}

func TestStatePayload(t *testing.T) {
	t.Parallel()

	ledger := gain.State{}.WithSafeMode(true).
		WithSource(gain.BassBoost, 12).
		WithSource(gain.Loudness, 10)
	ev := stateEvent("apply_battle_preset", ledger)
	ev.ActiveProfile = "B"

	payload := NewStatePayload(ev)
	assert.InDelta(t, 22.0, payload.TotalDb, 1e-9)
	assert.InDelta(t, 13.0, payload.ReductionDb, 1e-9)
	assert.Zero(t, payload.HeadroomDb)
	assert.True(t, payload.AgrActive)
	assert.True(t, payload.SafeMode)
	assert.Len(t, payload.Sources, len(gain.AllSources))
	assert.InDelta(t, 12.0, payload.Sources[gain.BassBoost.String()], 1e-9)
	assert.Equal(t, "B", payload.ActiveProfile)
}
