// Package controller implements the effect-chain controller. It owns the
// parameter set, the mode flags, the gain ledger and the profile slots, and
// forwards ledger-adjusted values to the effect providers.
//
// Every setter clamps silently and never fails. Values are computed under
// the controller lock; providers are called only after it is released.
// Provider failures are logged, counted and swallowed so the recorded state
// stays authoritative. Bulk operations (ApplyBattlePreset, LoadProfile,
// ResetAll) run every sub-step and return the joined failures for
// diagnostics only.
package controller

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tphakala/gainguard/internal/effects"
	"github.com/tphakala/gainguard/internal/events"
	"github.com/tphakala/gainguard/internal/gain"
	"github.com/tphakala/gainguard/internal/logger"
	"github.com/tphakala/gainguard/internal/params"
	"github.com/tphakala/gainguard/internal/presets"
)

// Publisher receives state change events. *events.EventBus satisfies it.
type Publisher interface {
	TryPublish(event any) bool
}

// MetricsRecorder receives per-call observations that bypass the event bus.
type MetricsRecorder interface {
	RecordProviderFailure(provider, operation string)
	ObservePeak(dbfs float64, clipped bool)
}

// Config holds the start-up state of a controller. FailureLogTTL is how long
// repeated failures of one provider call are logged at debug level only.
type Config struct {
	SafeMode           bool          `mapstructure:"safe_mode" yaml:"safe_mode"`
	DangerMode         bool          `mapstructure:"danger_mode" yaml:"danger_mode"`
	HardwareProtection bool          `mapstructure:"hardware_protection" yaml:"hardware_protection"`
	InitialPreset      string        `mapstructure:"initial_preset" yaml:"initial_preset"`
	BandRangeMillibels int           `mapstructure:"band_range_mb" yaml:"band_range_mb"`
	FailureLogTTL      time.Duration `mapstructure:"failure_log_ttl" yaml:"failure_log_ttl"`
}

// DefaultConfig returns safe mode on with every other mode off.
func DefaultConfig() Config {
	return Config{
		SafeMode:           true,
		BandRangeMillibels: params.DefaultBandRangeMillibels,
		FailureLogTTL:      time.Minute,
	}
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger sets the logger. The controller logs under its own module.
func WithLogger(log logger.Logger) Option {
	return func(c *Controller) {
		if log != nil {
			c.logger = log
		}
	}
}

// WithPublisher attaches a state change publisher.
func WithPublisher(p Publisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(c *Controller) { c.metrics = m }
}

// Controller is the effect-chain controller. It is safe for concurrent use.
type Controller struct {
	mu     sync.RWMutex
	params params.ParameterSet
	mode   params.Mode
	battle presets.BattleMode
	layout params.Layout
	slots  [NumSlots]*Profile
	active Slot
	ledger *gain.Ledger

	// bands last written by SetEqBand; only these feed EqualizerPeak
	eqExplicit [params.NumBands]bool

	providers effects.Providers
	publisher Publisher
	metrics   MetricsRecorder
	logger    logger.Logger
	failures  *failureLog

	// real-time path, lock-free
	peakBits    atomic.Uint64
	ceilingBits atomic.Uint64
	clips       atomic.Uint64
}

// New creates a controller with default parameters and cfg's mode flags.
// Providers missing from p are replaced with no-ops. Nothing is forwarded
// until the first setter call; call ResetAll to push the defaults.
func New(cfg Config, p effects.Providers, opts ...Option) *Controller {
	p = p.WithDefaults()

	layout := params.DefaultLayout(cfg.BandRangeMillibels)
	if bands := p.Equalizer.Bands(); len(bands) > 0 {
		layout = params.LayoutFrom(bands)
	}

	mode := params.DefaultMode()
	mode.SafeMode = cfg.SafeMode
	mode.DangerMode = cfg.DangerMode
	mode.HardwareProtection = cfg.HardwareProtection

	c := &Controller{
		params:    params.Defaults(),
		mode:      mode,
		battle:    presets.Off,
		layout:    layout,
		active:    NoSlot,
		providers: p,
		logger:    logger.Global().Module("controller"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.ledger = gain.NewLedger(cfg.SafeMode, c.logger.Module("gain"))
	c.failures = newFailureLog(cfg.FailureLogTTL)
	c.peakBits.Store(math.Float64bits(SilenceDb))
	c.updateCeilingLocked()

	return c
}

// Layout returns the equalizer band layout in use.
func (c *Controller) Layout() params.Layout {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.layout
}

// State is a consistent, read-only view of the controller for presentation.
type State struct {
	Params        params.ParameterSet    `json:"params"`
	Mode          params.Mode            `json:"mode"`
	Ledger        gain.State             `json:"ledger"`
	HeadroomDb    float64                `json:"headroom_db"`
	BattleMode    presets.BattleMode     `json:"battle_mode"`
	ActiveProfile string                 `json:"active_profile,omitempty"`
	Bands         []params.EqualizerBand `json:"bands"`
	CeilingDb     float64                `json:"ceiling_db"`
	PeakDb        float64                `json:"peak_db"`
	ClipCount     uint64                 `json:"clip_count"`
}

// Snapshot returns the current state. Parameters, modes and the ledger are
// read under one lock, so the result is never a torn combination.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	st := State{
		Params:     c.params,
		Mode:       c.mode,
		Ledger:     c.ledger.Snapshot(),
		BattleMode: c.battle,
		Bands:      c.layout.WithLevels(c.params.EqLevels),
		CeilingDb:  c.mode.EffectiveCeilingDb(c.params.Limiter),
	}
	if c.active.Valid() {
		st.ActiveProfile = c.active.String()
	}
	c.mu.RUnlock()

	st.HeadroomDb = st.Ledger.HeadroomDb()
	st.PeakDb = c.PeakLevel()
	st.ClipCount = c.ClipCount()
	return st
}

// Ledger returns a snapshot of the gain ledger.
func (c *Controller) Ledger() gain.State {
	return c.ledger.Snapshot()
}

// Params returns the current parameter set.
func (c *Controller) Params() params.ParameterSet {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.params
}

// Mode returns the current mode flags.
func (c *Controller) Mode() params.Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// BattleMode returns the last applied battle preset.
func (c *Controller) BattleMode() presets.BattleMode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.battle
}

// publish emits a state change event for operation.
func (c *Controller) publish(operation string) {
	if c.publisher == nil {
		return
	}
	st := c.Snapshot()
	ev := events.NewStateChanged(operation)
	ev.Ledger = st.Ledger
	ev.Params = st.Params
	ev.Mode = st.Mode
	ev.BattleMode = st.BattleMode
	ev.ActiveProfile = st.ActiveProfile
	if !c.publisher.TryPublish(ev) {
		c.logger.Trace("state event not published", logger.String("operation", operation))
	}
}

// updateCeilingLocked refreshes the clip threshold read by the real-time
// path. Callers hold c.mu for writing (or are constructing c).
func (c *Controller) updateCeilingLocked() {
	c.ceilingBits.Store(math.Float64bits(c.mode.EffectiveCeilingDb(c.params.Limiter)))
}
