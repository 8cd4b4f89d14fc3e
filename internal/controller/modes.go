package controller

import (
	"github.com/tphakala/gainguard/internal/effects"
	"github.com/tphakala/gainguard/internal/gain"
	"github.com/tphakala/gainguard/internal/logger"
	"github.com/tphakala/gainguard/internal/params"
)

// SetSafeMode toggles ledger-driven attenuation. Turning it off drives the
// reduction to 0 immediately; accumulated sources are kept.
func (c *Controller) SetSafeMode(enabled bool) {
	c.mu.Lock()
	c.mode.SafeMode = enabled
	prev := c.ledger.Snapshot()
	next := c.ledger.SetSafeMode(enabled)
	calls := c.refreshLocked(prev, next, false, false, noBand)
	c.mu.Unlock()

	_ = c.run(calls)
	c.publish("set_safe_mode")
}

// SetDangerMode toggles the limiter bypass. Enabling removes the limiter
// stage; disabling restores it with the stored configuration. Safe mode
// and hardware protection are unaffected.
func (c *Controller) SetDangerMode(enabled bool) {
	c.mu.Lock()
	c.mode.DangerMode = enabled
	lim := c.params.Limiter
	c.updateCeilingLocked()
	c.mu.Unlock()

	_ = c.call(effects.ProviderDynamics, "set_limiter", func() error {
		return c.providers.Dynamics.SetLimiter(lim, enabled)
	})
	c.publish("set_danger_mode")
}

// SetHardwareProtection toggles the fixed output ceiling. It cannot be
// turned off while audiophile mode is on.
func (c *Controller) SetHardwareProtection(enabled bool) {
	c.mu.Lock()
	if !enabled && c.mode.AudiophileMode {
		c.mu.Unlock()
		c.logger.Debug("hardware protection is forced while audiophile mode is on")
		return
	}
	c.mode.HardwareProtection = enabled
	c.updateCeilingLocked()
	c.mu.Unlock()

	_ = c.call(effects.ProviderDynamics, "set_output_ceiling", func() error {
		return c.providers.Dynamics.SetOutputCeiling(enabled, params.HardwareCeilingDb)
	})
	c.publish("set_hardware_protection")
}

// SetAudiophileMode switches the composite audiophile transition. Enabling
// computes the full target first (compressor off, exciter off, sub-harmonic
// synthesis off, hardware protection on, highest quality tier) and swaps it
// in as one unit before anything is forwarded. Disabling restores the
// standard tier and sub-harmonic synthesis only.
func (c *Controller) SetAudiophileMode(enabled bool) {
	var calls []forward

	c.mu.Lock()
	if enabled {
		p, m := params.Audiophile(c.params, c.mode)
		c.params, c.mode = p, m
		c.updateCeilingLocked()

		prev := c.ledger.Snapshot()
		c.ledger.UpdateSource(gain.CompressorMakeup, makeupSource(p.Compressor))
		next := c.ledger.UpdateExciter(exciterSource(p.Exciter))

		calls = []forward{
			c.dynamicsForward("set_compressor", func(d effects.Dynamics) error { return d.SetCompressor(p.Compressor) }),
			c.dynamicsForward("set_exciter", func(d effects.Dynamics) error { return d.SetExciter(p.Exciter) }),
			c.dspForward("set_sub_harmonic", func(d effects.NativeDSP) error { return d.SetSubHarmonic(0) }),
			c.dynamicsForward("set_output_ceiling", func(d effects.Dynamics) error {
				return d.SetOutputCeiling(true, params.HardwareCeilingDb)
			}),
			c.dspForward("set_quality_tier", func(d effects.NativeDSP) error { return d.SetQualityTier(m.QualityTier) }),
			c.dspForward("set_audiophile_mode", func(d effects.NativeDSP) error { return d.SetAudiophileMode(true) }),
		}
		calls = append(calls, c.refreshLocked(prev, next, false, false, noBand)...)
	} else {
		c.mode = params.LeaveAudiophile(c.mode)
		subHarmonic := float64(c.params.BassLevel) / params.MaxBassLevel * subHarmonicScale
		tier := c.mode.QualityTier

		calls = []forward{
			c.dspForward("set_quality_tier", func(d effects.NativeDSP) error { return d.SetQualityTier(tier) }),
			c.dspForward("set_sub_harmonic", func(d effects.NativeDSP) error { return d.SetSubHarmonic(subHarmonic) }),
			c.dspForward("set_audiophile_mode", func(d effects.NativeDSP) error { return d.SetAudiophileMode(false) }),
		}
	}
	c.mu.Unlock()

	if err := c.run(calls); err != nil {
		c.logger.Warn("audiophile mode recorded, some effects did not follow",
			logger.Bool("enabled", enabled),
			logger.Error(err))
	}
	c.publish("set_audiophile_mode")
}
