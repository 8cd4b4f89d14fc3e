// Package peakmeter measures output peak levels and feeds them to the
// controller's clip detector.
package peakmeter

import (
	"math"
	"sync"
	"time"

	"github.com/go-audio/audio"

	"github.com/tphakala/gainguard/internal/errors"
)

// SilenceDb is reported for an all-zero block.
const SilenceDb = -120.0

// DefaultDecayDbPerSecond is the fall rate of the held peak.
const DefaultDecayDbPerSecond = 20.0

// PeakSink receives the peak of every processed block in dBFS.
type PeakSink interface {
	UpdatePeakLevel(dbfs float64)
}

// Meter computes block peaks in dBFS. Every block peak goes to the sink
// unchanged; Held returns a peak-hold value that decays over time for
// display. A Meter is safe for concurrent use.
type Meter struct {
	sink  PeakSink
	decay float64
	now   func() time.Time

	mu       sync.Mutex
	held     float64
	heldAt   time.Time
	blocks   uint64
	lastPeak float64
}

// Option customizes a Meter.
type Option func(*Meter)

// WithDecay sets the held-peak fall rate in dB per second.
func WithDecay(dbPerSecond float64) Option {
	return func(m *Meter) { m.decay = dbPerSecond }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Meter) { m.now = now }
}

// New creates a meter reporting to sink. A nil sink only tracks levels.
func New(sink PeakSink, opts ...Option) *Meter {
	m := &Meter{
		sink:     sink,
		decay:    DefaultDecayDbPerSecond,
		now:      time.Now,
		held:     SilenceDb,
		lastPeak: SilenceDb,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ToDbfs converts a linear peak (1.0 = full scale) to dBFS.
func ToDbfs(linear float64) float64 {
	if linear <= 0 || math.IsNaN(linear) {
		return SilenceDb
	}
	return math.Max(SilenceDb, 20*math.Log10(linear))
}

// ProcessInt measures an integer PCM buffer. Full scale follows the
// buffer's SourceBitDepth, 16 bits when unset.
func (m *Meter) ProcessInt(buf *audio.IntBuffer) (float64, error) {
	if buf == nil {
		return SilenceDb, errors.Newf("nil buffer").
			Component("peakmeter").
			Category(errors.CategoryAudio).
			Build()
	}
	bits := buf.SourceBitDepth
	if bits <= 0 {
		bits = 16
	}
	fullScale := float64(int64(1) << (bits - 1))

	peak := 0
	for _, s := range buf.Data {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return m.report(ToDbfs(float64(peak) / fullScale)), nil
}

// ProcessFloat32 measures a float buffer where 1.0 is full scale.
func (m *Meter) ProcessFloat32(buf *audio.Float32Buffer) (float64, error) {
	if buf == nil {
		return SilenceDb, errors.Newf("nil buffer").
			Component("peakmeter").
			Category(errors.CategoryAudio).
			Build()
	}
	var peak float32
	for _, s := range buf.Data {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return m.report(ToDbfs(float64(peak))), nil
}

func (m *Meter) report(db float64) float64 {
	now := m.now()

	m.mu.Lock()
	decayed := m.held
	if !m.heldAt.IsZero() {
		decayed -= m.decay * now.Sub(m.heldAt).Seconds()
	}
	m.held = math.Max(db, math.Max(decayed, SilenceDb))
	m.heldAt = now
	m.lastPeak = db
	m.blocks++
	m.mu.Unlock()

	if m.sink != nil {
		m.sink.UpdatePeakLevel(db)
	}
	return db
}

// Held returns the decayed peak-hold level at the current time.
func (m *Meter) Held() float64 {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.heldAt.IsZero() {
		return m.held
	}
	return math.Max(SilenceDb, m.held-m.decay*now.Sub(m.heldAt).Seconds())
}

// Last returns the peak of the most recent block.
func (m *Meter) Last() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastPeak
}

// Blocks returns the number of processed blocks.
func (m *Meter) Blocks() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blocks
}
