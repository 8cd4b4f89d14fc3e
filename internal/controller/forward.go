package controller

import (
	"github.com/tphakala/gainguard/internal/effects"
	"github.com/tphakala/gainguard/internal/errors"
	"github.com/tphakala/gainguard/internal/gain"
)

// forward is one provider call computed under the lock and run after it is
// released.
type forward struct {
	provider  string
	operation string
	fn        func() error
}

// run executes calls in order. Every call runs; failures are joined.
func (c *Controller) run(calls []forward) error {
	var errs []error
	for _, f := range calls {
		if err := c.call(f.provider, f.operation, f.fn); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Controller) loudnessForward(mb int) forward {
	return forward{effects.ProviderLoudness, "set_target_gain", func() error {
		return c.providers.Loudness.SetTargetGain(mb)
	}}
}

func (c *Controller) bassForward(level int) forward {
	return forward{effects.ProviderBassBoost, "set_strength", func() error {
		return c.providers.BassBoost.SetStrength(level)
	}}
}

func (c *Controller) eqForward(band, mb int) forward {
	return forward{effects.ProviderEqualizer, "set_band_level", func() error {
		return c.providers.Equalizer.SetBandLevel(band, mb)
	}}
}

func (c *Controller) dspForward(operation string, fn func(effects.NativeDSP) error) forward {
	return forward{effects.ProviderDSP, operation, func() error {
		return fn(c.providers.DSP)
	}}
}

func (c *Controller) dynamicsForward(operation string, fn func(effects.Dynamics) error) forward {
	return forward{effects.ProviderDynamics, operation, func() error {
		return fn(c.providers.Dynamics)
	}}
}

// noBand is passed to refreshLocked by setters that do not forward a
// reduced band themselves.
const noBand = -1

// refreshLocked re-forwards every reduced value when an update moved the
// reduction: loudness, bass strength and the positive explicit EQ bands.
// skipLoudness, skipBass and skipBand leave out the value the calling
// setter forwards itself. Callers hold c.mu.
func (c *Controller) refreshLocked(prev, next gain.State, skipLoudness, skipBass bool, skipBand int) []forward {
	if prev.ReductionDb == next.ReductionDb {
		return nil
	}
	var calls []forward
	if !skipLoudness {
		calls = append(calls, c.loudnessForward(next.AdjustedLoudness(c.params.LoudnessMillibels)))
	}
	if !skipBass {
		calls = append(calls, c.bassForward(next.AdjustedBassBoost(c.params.BassLevel)))
	}
	for band, level := range c.params.EqLevels {
		if band == skipBand || !c.eqExplicit[band] || level <= 0 {
			continue
		}
		calls = append(calls, c.eqForward(band, next.AdjustedEqLevel(level)))
	}
	return calls
}
