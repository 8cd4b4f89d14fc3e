package controller

import (
	"github.com/tphakala/gainguard/internal/effects"
	"github.com/tphakala/gainguard/internal/gain"
	"github.com/tphakala/gainguard/internal/params"
)

// makeupSource returns the makeup gain counted by the ledger: the
// configured value while the compressor is enabled, 0 otherwise.
func makeupSource(comp params.Compressor) float64 {
	if !comp.Enabled {
		return 0
	}
	return comp.MakeupGainDb
}

func exciterSource(exc params.Exciter) (drive, mix float64) {
	if !exc.Enabled {
		return 0, 0
	}
	return exc.Drive, exc.Mix
}

// SetCompressor replaces the whole compressor configuration.
func (c *Controller) SetCompressor(comp params.Compressor) {
	_ = c.setCompressor(func(p *params.Compressor) { *p = comp })
	c.publish("set_compressor")
}

// SetCompressorEnabled toggles the compressor stage.
func (c *Controller) SetCompressorEnabled(enabled bool) {
	_ = c.setCompressor(func(p *params.Compressor) { p.Enabled = enabled })
	c.publish("set_compressor_enabled")
}

// SetCompressorThreshold sets the threshold (-60..0 dB).
func (c *Controller) SetCompressorThreshold(db float64) {
	_ = c.setCompressor(func(p *params.Compressor) { p.ThresholdDb = db })
	c.publish("set_compressor_threshold")
}

// SetCompressorRatio sets the ratio (1..20).
func (c *Controller) SetCompressorRatio(ratio float64) {
	_ = c.setCompressor(func(p *params.Compressor) { p.Ratio = ratio })
	c.publish("set_compressor_ratio")
}

// SetCompressorAttack sets the attack time (0.1..200 ms).
func (c *Controller) SetCompressorAttack(ms float64) {
	_ = c.setCompressor(func(p *params.Compressor) { p.AttackMs = ms })
	c.publish("set_compressor_attack")
}

// SetCompressorRelease sets the release time (10..1000 ms).
func (c *Controller) SetCompressorRelease(ms float64) {
	_ = c.setCompressor(func(p *params.Compressor) { p.ReleaseMs = ms })
	c.publish("set_compressor_release")
}

// SetCompressorMakeupGain sets the makeup gain (0..24 dB), a gain source of
// the ledger while the compressor is enabled.
func (c *Controller) SetCompressorMakeupGain(db float64) {
	_ = c.setCompressor(func(p *params.Compressor) { p.MakeupGainDb = db })
	c.publish("set_compressor_makeup_gain")
}

// setCompressor applies edit, clamps, updates the makeup source and
// forwards the whole stage.
func (c *Controller) setCompressor(edit func(*params.Compressor)) error {
	c.mu.Lock()
	comp := c.params.Compressor
	edit(&comp)
	comp = comp.Clamp()
	c.params.Compressor = comp

	prev := c.ledger.Snapshot()
	next := c.ledger.UpdateSource(gain.CompressorMakeup, makeupSource(comp))
	calls := []forward{
		c.dynamicsForward("set_compressor", func(d effects.Dynamics) error { return d.SetCompressor(comp) }),
	}
	calls = append(calls, c.refreshLocked(prev, next, false, false, noBand)...)
	c.mu.Unlock()

	return c.run(calls)
}

// SetLimiter replaces the whole limiter configuration.
func (c *Controller) SetLimiter(lim params.Limiter) {
	_ = c.setLimiter(func(p *params.Limiter) { *p = lim })
	c.publish("set_limiter")
}

// SetLimiterEnabled toggles the adaptive limiter.
func (c *Controller) SetLimiterEnabled(enabled bool) {
	_ = c.setLimiter(func(p *params.Limiter) { p.Enabled = enabled })
	c.publish("set_limiter_enabled")
}

// SetLimiterThreshold sets the threshold (-12..0 dB).
func (c *Controller) SetLimiterThreshold(db float64) {
	_ = c.setLimiter(func(p *params.Limiter) { p.ThresholdDb = db })
	c.publish("set_limiter_threshold")
}

// SetLimiterCeiling sets the ceiling (-3..0 dB).
func (c *Controller) SetLimiterCeiling(db float64) {
	_ = c.setLimiter(func(p *params.Limiter) { p.CeilingDb = db })
	c.publish("set_limiter_ceiling")
}

// SetLimiterAttack sets the attack time (0.1..10 ms).
func (c *Controller) SetLimiterAttack(ms float64) {
	_ = c.setLimiter(func(p *params.Limiter) { p.AttackMs = ms })
	c.publish("set_limiter_attack")
}

// SetLimiterRelease sets the release time (10..500 ms).
func (c *Controller) SetLimiterRelease(ms float64) {
	_ = c.setLimiter(func(p *params.Limiter) { p.ReleaseMs = ms })
	c.publish("set_limiter_release")
}

// setLimiter stores the edited limiter. While danger mode is on the value
// is recorded but not forwarded; SetDangerMode(false) restores it.
func (c *Controller) setLimiter(edit func(*params.Limiter)) error {
	c.mu.Lock()
	lim := c.params.Limiter
	edit(&lim)
	lim = lim.Clamp()
	c.params.Limiter = lim
	c.updateCeilingLocked()
	bypass := c.mode.DangerMode
	c.mu.Unlock()

	if bypass {
		return nil
	}
	return c.call(effects.ProviderDynamics, "set_limiter", func() error {
		return c.providers.Dynamics.SetLimiter(lim, false)
	})
}

// SetStereoWidener sets the stereo widener (width 0..200).
func (c *Controller) SetStereoWidener(enabled bool, width int) {
	_ = c.setStereoWidener(params.StereoWidener{Enabled: enabled, Width: width})
	c.publish("set_stereo_widener")
}

func (c *Controller) setStereoWidener(w params.StereoWidener) error {
	w = w.Clamp()
	c.mu.Lock()
	c.params.StereoWidener = w
	c.mu.Unlock()

	return c.call(effects.ProviderDynamics, "set_stereo_widener", func() error {
		return c.providers.Dynamics.SetStereoWidener(w)
	})
}

// SetExciter sets the harmonic exciter (drive and mix 0..100). Its
// contribution counts in the ledger only while enabled.
func (c *Controller) SetExciter(enabled bool, drive, mix float64) {
	_ = c.setExciter(params.Exciter{Enabled: enabled, Drive: drive, Mix: mix})
	c.publish("set_exciter")
}

func (c *Controller) setExciter(e params.Exciter) error {
	e = e.Clamp()

	c.mu.Lock()
	c.params.Exciter = e
	prev := c.ledger.Snapshot()
	next := c.ledger.UpdateExciter(exciterSource(e))
	calls := []forward{
		c.dynamicsForward("set_exciter", func(d effects.Dynamics) error { return d.SetExciter(e) }),
	}
	calls = append(calls, c.refreshLocked(prev, next, false, false, noBand)...)
	c.mu.Unlock()

	return c.run(calls)
}

// SetReverb sets the reverb stage (preset 0..6).
func (c *Controller) SetReverb(enabled bool, preset int) {
	_ = c.setReverb(params.Reverb{Enabled: enabled, Preset: preset})
	c.publish("set_reverb")
}

func (c *Controller) setReverb(r params.Reverb) error {
	r = r.Clamp()
	c.mu.Lock()
	c.params.Reverb = r
	c.mu.Unlock()

	return c.call(effects.ProviderDynamics, "set_reverb", func() error {
		return c.providers.Dynamics.SetReverb(r)
	})
}
