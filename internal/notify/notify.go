// Package notify sends operator alerts when automatic gain reduction engages
// or the output starts clipping.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/gainguard/internal/events"
	"github.com/tphakala/gainguard/internal/logger"
	"github.com/tphakala/gainguard/internal/privacy"
)

// Alert kinds, also used as cooldown keys.
const (
	KindAgr  = "agr"
	KindClip = "clip"
)

const queueSize = 16

// Config controls alert thresholds and pacing.
type Config struct {
	ClipThreshold uint64        // clips per interval that raise an alert, 0 disables
	Interval      time.Duration // clip counter poll interval
	Cooldown      time.Duration // minimum gap between alerts of one kind
}

// DefaultConfig returns the default alert pacing.
func DefaultConfig() Config {
	return Config{
		ClipThreshold: 10,
		Interval:      10 * time.Second,
		Cooldown:      5 * time.Minute,
	}
}

// ClipSource exposes the running clip count.
type ClipSource interface {
	ClipCount() uint64
}

// Alert is one queued notification.
type Alert struct {
	Kind    string
	Title   string
	Message string
}

// Notifier consumes state events and polls the clip counter, sending at most
// one alert per kind per cooldown window.
type Notifier struct {
	sender Sender
	clips  ClipSource
	cfg    Config
	logger logger.Logger

	recent    *cache.Cache
	queue     chan Alert
	lastClips uint64 // owned by Run after New

	mu        sync.Mutex
	agrActive bool
}

// New creates a notifier. clips may be nil to disable clip alerts.
func New(sender Sender, clips ClipSource, cfg Config) *Notifier {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	n := &Notifier{
		sender: sender,
		clips:  clips,
		cfg:    cfg,
		logger: logger.Global().Module("notify"),
		recent: cache.New(cfg.Cooldown, 0),
		queue:  make(chan Alert, queueSize),
	}
	if clips != nil {
		n.lastClips = clips.ClipCount()
	}
	return n
}

// Name implements events.EventConsumer.
func (n *Notifier) Name() string { return "notify" }

// ProcessEvent implements events.EventConsumer. An alert is queued when
// gain reduction goes from inactive to active.
func (n *Notifier) ProcessEvent(event events.Event) error {
	e, ok := event.(*events.StateChanged)
	if !ok {
		return nil
	}

	n.mu.Lock()
	engaged := e.Ledger.AgrActive && !n.agrActive
	n.agrActive = e.Ledger.AgrActive
	n.mu.Unlock()

	if engaged {
		n.enqueue(Alert{
			Kind:  KindAgr,
			Title: "Gain reduction engaged",
			Message: fmt.Sprintf("Total boost %.1f dB exceeds the budget, reducing by %.1f dB (after %s).",
				e.Ledger.TotalDb, e.Ledger.ReductionDb, e.Operation),
		})
	}
	return nil
}

func (n *Notifier) enqueue(a Alert) {
	select {
	case n.queue <- a:
	default:
		n.logger.Debug("alert queue full, dropping", logger.String("kind", a.Kind))
	}
}

// Run polls the clip counter and delivers queued alerts until ctx is
// cancelled.
func (n *Notifier) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if n.clips != nil && n.cfg.ClipThreshold > 0 {
		ticker := time.NewTicker(n.cfg.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			count := n.clips.ClipCount()
			if delta := count - n.lastClips; count >= n.lastClips && delta >= n.cfg.ClipThreshold {
				n.deliver(Alert{
					Kind:    KindClip,
					Title:   "Output clipping",
					Message: fmt.Sprintf("%d clipped blocks in the last %s (%d total).", delta, n.cfg.Interval, count),
				})
			}
			n.lastClips = count
		case a := <-n.queue:
			n.deliver(a)
		}
	}
}

func (n *Notifier) deliver(a Alert) {
	if n.cfg.Cooldown > 0 && n.recent.Add(a.Kind, struct{}{}, cache.DefaultExpiration) != nil {
		n.logger.Debug("alert suppressed by cooldown", logger.String("kind", a.Kind))
		return
	}
	if err := n.sender.Send(a.Title, a.Message); err != nil {
		n.logger.Warn("alert delivery failed",
			logger.String("kind", a.Kind),
			logger.String("error", privacy.ScrubMessage(err.Error())))
		return
	}
	n.logger.Info("alert sent", logger.String("kind", a.Kind))
}
