package controller

import (
	"math"

	"github.com/tphakala/gainguard/internal/effects"
	"github.com/tphakala/gainguard/internal/gain"
	"github.com/tphakala/gainguard/internal/logger"
	"github.com/tphakala/gainguard/internal/params"
)

// Derived signal scales of the bass boost setter.
const (
	subHarmonicScale   = 0.6
	bassExciterScale   = 0.4
	bassEqBoostDb      = 10.0
	subBassEqFactor    = 1.5
	subBassEqCeilingDb = 15.0
	millibelsPerDb     = 100.0
)

// SetBassBoost sets the bass strength (0..1000).
func (c *Controller) SetBassBoost(level int) {
	_ = c.setBassBoost(level)
	c.publish("set_bass_boost")
}

func (c *Controller) setBassBoost(level int) error {
	level = params.ClampInt(level, params.MinBassLevel, params.MaxBassLevel)
	factor := float64(level) / params.MaxBassLevel

	boostMb := factor * bassEqBoostDb * millibelsPerDb
	subBassMb := math.Min(boostMb*subBassEqFactor, subBassEqCeilingDb*millibelsPerDb)

	c.mu.Lock()
	c.params.BassLevel = level
	prev := c.ledger.Snapshot()
	c.ledger.UpdateSource(gain.BassBoost, float64(level))

	subBass := c.layout[params.BandSubBass].Clamp(int(math.Round(subBassMb)))
	bass := c.layout[params.BandBass].Clamp(int(math.Round(boostMb)))
	next := c.writeDerivedBandsLocked(map[int]int{params.BandSubBass: subBass, params.BandBass: bass})

	subHarmonic := factor * subHarmonicScale
	if !c.mode.SubHarmonicEnabled {
		subHarmonic = 0
	}
	exciter := factor * bassExciterScale

	calls := []forward{
		c.bassForward(next.AdjustedBassBoost(level)),
		c.dspForward("set_sub_harmonic", func(d effects.NativeDSP) error { return d.SetSubHarmonic(subHarmonic) }),
		c.dspForward("set_exciter_amount", func(d effects.NativeDSP) error { return d.SetExciterAmount(exciter) }),
		c.dspForward("set_bass_boost_mode", func(d effects.NativeDSP) error { return d.SetBassBoostMode(level > 0) }),
		c.eqForward(params.BandSubBass, subBass),
		c.eqForward(params.BandBass, bass),
	}
	calls = append(calls, c.refreshLocked(prev, next, false, true, noBand)...)
	c.mu.Unlock()

	return c.run(calls)
}

// SetBassFrequency sets the bass boost center frequency (20..200 Hz).
func (c *Controller) SetBassFrequency(hz int) {
	_ = c.setBassFrequency(hz)
	c.publish("set_bass_frequency")
}

func (c *Controller) setBassFrequency(hz int) error {
	hz = params.ClampInt(hz, params.MinBassFrequencyHz, params.MaxBassFrequencyHz)

	c.mu.Lock()
	c.params.BassFrequencyHz = hz
	c.mu.Unlock()

	return c.call(effects.ProviderBassBoost, "set_center_frequency", func() error {
		return c.providers.BassBoost.SetCenterFrequency(hz)
	})
}

// SetLoudness sets the loudness target (0..1000 mB). The requested value is
// stored; the provider receives the ledger-adjusted one.
func (c *Controller) SetLoudness(millibels int) {
	_ = c.setLoudness(millibels)
	c.publish("set_loudness")
}

func (c *Controller) setLoudness(mb int) error {
	mb = params.ClampInt(mb, params.MinLoudnessMillibels, params.MaxLoudnessMillibels)

	c.mu.Lock()
	c.params.LoudnessMillibels = mb
	prev := c.ledger.Snapshot()
	next := c.ledger.UpdateSource(gain.Loudness, float64(mb))
	calls := []forward{c.loudnessForward(next.AdjustedLoudness(mb))}
	calls = append(calls, c.refreshLocked(prev, next, true, false, noBand)...)
	c.mu.Unlock()

	return c.run(calls)
}

// Clarity band scales.
const (
	presenceClarityShare = 1.0
	airClarityShare      = 0.6
)

// SetClarity sets clarity (0..100), shaping the presence and air bands.
// Clarity is not a gain source, but overwriting an explicitly boosted band
// removes that band from EqualizerPeak.
func (c *Controller) SetClarity(clarity int) {
	_ = c.setClarity(clarity)
	c.publish("set_clarity")
}

func (c *Controller) setClarity(clarity int) error {
	clarity = params.ClampInt(clarity, params.MinClarity, params.MaxClarity)
	f := float64(clarity) / params.MaxClarity

	c.mu.Lock()
	c.params.Clarity = clarity
	presenceBand := c.layout[params.BandPresence]
	airBand := c.layout[params.BandAir]
	presence := presenceBand.Clamp(int(math.Round(f * presenceClarityShare * float64(presenceBand.MaxMillibels))))
	air := airBand.Clamp(int(math.Round(f * airClarityShare * float64(airBand.MaxMillibels))))
	prev := c.ledger.Snapshot()
	next := c.writeDerivedBandsLocked(map[int]int{params.BandPresence: presence, params.BandAir: air})
	calls := []forward{
		c.eqForward(params.BandPresence, presence),
		c.eqForward(params.BandAir, air),
	}
	calls = append(calls, c.refreshLocked(prev, next, false, false, noBand)...)
	c.mu.Unlock()

	return c.run(calls)
}

// SetVirtualizer sets the spatial strength (0..1000). It does not
// participate in the gain ledger.
func (c *Controller) SetVirtualizer(level int) {
	_ = c.setVirtualizer(level)
	c.publish("set_virtualizer")
}

func (c *Controller) setVirtualizer(level int) error {
	level = params.ClampInt(level, params.MinVirtualizer, params.MaxVirtualizer)

	c.mu.Lock()
	c.params.Virtualizer = level
	c.mu.Unlock()

	return c.call(effects.ProviderVirtualizer, "set_strength", func() error {
		return c.providers.Virtualizer.SetStrength(level)
	})
}

// SetEqBand sets one band level in millibels, clamped to the band's range.
// The ledger's EqualizerPeak follows the highest explicitly set band; the
// provider receives the adjusted level. Unknown band indexes are ignored.
func (c *Controller) SetEqBand(band, millibels int) {
	if !params.ValidBand(band) {
		c.logger.Debug("ignoring equalizer band out of range", logger.Int("band", band))
		return
	}
	_ = c.setEqBand(band, millibels)
	c.publish("set_eq_band")
}

func (c *Controller) setEqBand(band, mb int) error {
	if !params.ValidBand(band) {
		return nil
	}

	c.mu.Lock()
	mb = c.layout[band].Clamp(mb)
	c.params.EqLevels[band] = mb
	c.eqExplicit[band] = true
	prev := c.ledger.Snapshot()
	next := c.ledger.UpdateEqualizerPeak(c.explicitEqLevels())
	calls := []forward{c.eqForward(band, next.AdjustedEqLevel(mb))}
	calls = append(calls, c.refreshLocked(prev, next, false, false, band)...)
	c.mu.Unlock()

	return c.run(calls)
}

// writeDerivedBandsLocked stores band levels computed by bass boost or
// clarity. Those bands stop counting toward EqualizerPeak, which is
// recomputed. Callers hold c.mu.
func (c *Controller) writeDerivedBandsLocked(levels map[int]int) gain.State {
	for band, mb := range levels {
		c.params.EqLevels[band] = mb
		c.eqExplicit[band] = false
	}
	return c.ledger.UpdateEqualizerPeak(c.explicitEqLevels())
}

// explicitEqLevels returns the stored band levels with derived bands read
// as 0. Callers hold c.mu.
func (c *Controller) explicitEqLevels() []int {
	levels := make([]int, params.NumBands)
	for band, explicit := range c.eqExplicit {
		if explicit {
			levels[band] = c.params.EqLevels[band]
		}
	}
	return levels
}
