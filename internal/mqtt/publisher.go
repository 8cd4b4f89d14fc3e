package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tphakala/gainguard/internal/events"
	"github.com/tphakala/gainguard/internal/gain"
	"github.com/tphakala/gainguard/internal/logger"
	"github.com/tphakala/gainguard/internal/observability/metrics"
)

// StatePayload is the JSON document published on every state change.
type StatePayload struct {
	Operation          string             `json:"operation"`
	Timestamp          time.Time          `json:"timestamp"`
	TotalDb            float64            `json:"total_db"`
	ReductionDb        float64            `json:"reduction_db"`
	HeadroomDb         float64            `json:"headroom_db"`
	AgrActive          bool               `json:"agr_active"`
	Sources            map[string]float64 `json:"sources_db"`
	SafeMode           bool               `json:"safe_mode"`
	DangerMode         bool               `json:"danger_mode"`
	HardwareProtection bool               `json:"hardware_protection"`
	AudiophileMode     bool               `json:"audiophile_mode"`
	BattleMode         string             `json:"battle_mode"`
	ActiveProfile      string             `json:"active_profile,omitempty"`
}

// NewStatePayload flattens a state event for broadcasting.
func NewStatePayload(e *events.StateChanged) StatePayload {
	sources := make(map[string]float64, len(gain.AllSources))
	for _, kind := range gain.AllSources {
		sources[kind.String()] = e.Ledger.Source(kind)
	}
	return StatePayload{
		Operation:          e.Operation,
		Timestamp:          e.Timestamp,
		TotalDb:            e.Ledger.TotalDb,
		ReductionDb:        e.Ledger.ReductionDb,
		HeadroomDb:         e.Ledger.HeadroomDb(),
		AgrActive:          e.Ledger.AgrActive,
		Sources:            sources,
		SafeMode:           e.Mode.SafeMode,
		DangerMode:         e.Mode.DangerMode,
		HardwareProtection: e.Mode.HardwareProtection,
		AudiophileMode:     e.Mode.AudiophileMode,
		BattleMode:         e.BattleMode.String(),
		ActiveProfile:      e.ActiveProfile,
	}
}

// Publisher is an event consumer that broadcasts controller state. Updates
// are rate limited; when several arrive within one interval only the latest
// is published.
type Publisher struct {
	client  Client
	topic   string
	limiter *rate.Limiter
	metrics *metrics.MQTTMetrics
	logger  logger.Logger

	mu      sync.Mutex
	pending []byte
	wake    chan struct{}
}

// NewPublisher creates a publisher for cfg.StateTopic(). m may be nil.
func NewPublisher(c Client, cfg Config, m *metrics.MQTTMetrics) *Publisher {
	limit := rate.Inf
	if cfg.MinPublishInterval > 0 {
		limit = rate.Every(cfg.MinPublishInterval)
	}
	return &Publisher{
		client:  c,
		topic:   cfg.StateTopic(),
		limiter: rate.NewLimiter(limit, 1),
		metrics: m,
		logger:  getLogger().Module("publisher"),
		wake:    make(chan struct{}, 1),
	}
}

// Name implements events.EventConsumer.
func (p *Publisher) Name() string { return "mqtt" }

// ProcessEvent implements events.EventConsumer. It only queues the payload;
// Run does the network work.
func (p *Publisher) ProcessEvent(event events.Event) error {
	e, ok := event.(*events.StateChanged)
	if !ok {
		return nil
	}
	payload, err := json.Marshal(NewStatePayload(e))
	if err != nil {
		return err
	}

	p.mu.Lock()
	superseded := p.pending != nil
	p.pending = payload
	p.mu.Unlock()

	if superseded && p.metrics != nil {
		p.metrics.IncrementMessagesThrottled()
	}

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

// Run connects and publishes queued state until ctx is cancelled. A failed
// initial connection is logged; the client keeps retrying in the
// background and publishes resume once it is connected.
func (p *Publisher) Run(ctx context.Context) error {
	if err := p.client.Connect(ctx); err != nil {
		p.logger.Warn("initial MQTT connection failed", logger.Error(err))
	}
	defer p.client.Disconnect()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.wake:
		}

		if err := p.limiter.Wait(ctx); err != nil {
			return nil
		}

		payload := p.take()
		if payload == nil {
			continue
		}
		if err := p.client.Publish(ctx, p.topic, string(payload)); err != nil {
			p.logger.Debug("state publish failed",
				logger.String("topic", p.topic),
				logger.Error(err))
		}
	}
}

func (p *Publisher) take() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	payload := p.pending
	p.pending = nil
	return payload
}
