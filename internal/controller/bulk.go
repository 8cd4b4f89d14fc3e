package controller

import (
	"fmt"

	"github.com/tphakala/gainguard/internal/effects"
	"github.com/tphakala/gainguard/internal/errors"
	"github.com/tphakala/gainguard/internal/logger"
	"github.com/tphakala/gainguard/internal/params"
	"github.com/tphakala/gainguard/internal/presets"
)

// steps runs each named sub-step of a bulk operation independently. A
// failing or panicking step never stops the ones after it.
func (c *Controller) steps(operation string, fns ...func() error) error {
	var errs []error
	for i, fn := range fns {
		if err := c.step(operation, i, fn); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		c.logger.Warn("bulk operation completed with provider failures",
			logger.String("operation", operation),
			logger.Int("failed_steps", len(errs)))
	}
	return errors.Join(errs...)
}

func (c *Controller) step(operation string, index int, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s step %d panicked: %v", operation, index, r)
			c.logger.Error("bulk operation step panicked",
				logger.String("operation", operation),
				logger.Int("step", index),
				logger.Any("panic", r))
		}
	}()
	return fn()
}

// ApplyBattlePreset applies a battle preset: bass, loudness, the EQ curve
// band by band, then the virtualizer. Off additionally zeroes clarity and
// disables the compressor, limiter, stereo widener, exciter and reverb.
// All sub-steps run; the returned error only describes provider failures.
func (c *Controller) ApplyBattlePreset(mode presets.BattleMode) error {
	preset, ok := presets.Lookup(mode)
	if !ok {
		return errors.Newf("unknown battle mode %d", int(mode)).
			Component("controller").
			Category(errors.CategoryValidation).
			Build()
	}

	c.mu.Lock()
	c.battle = mode
	levels := preset.Levels(c.layout)
	c.mu.Unlock()

	fns := []func() error{
		func() error {
			return c.call(effects.ProviderDSP, "set_battle_mode", func() error {
				return c.providers.DSP.SetBattleMode(mode != presets.Off)
			})
		},
		func() error { return c.setBassBoost(preset.Bass) },
		func() error { return c.setLoudness(preset.LoudnessMillibels) },
	}
	for band, level := range levels {
		fns = append(fns, func() error { return c.setEqBand(band, level) })
	}
	fns = append(fns, func() error { return c.setVirtualizer(preset.Virtualizer) })
	if mode == presets.Off {
		fns = append(fns, c.disableAllSteps()...)
	}

	err := c.steps("apply_battle_preset", fns...)

	c.logger.Info("battle preset applied",
		logger.String("preset", mode.String()),
		logger.Float64("reduction_db", c.ledger.ReductionDb()))
	c.publish("apply_battle_preset")
	return err
}

// disableAllSteps turns off the stages the Off preset does not reach
// through its bass, loudness, EQ and virtualizer values. Stage settings
// other than the enabled flag are kept.
func (c *Controller) disableAllSteps() []func() error {
	return []func() error{
		func() error { return c.setClarity(params.MinClarity) },
		func() error { return c.setCompressor(func(p *params.Compressor) { p.Enabled = false }) },
		func() error { return c.setLimiter(func(p *params.Limiter) { p.Enabled = false }) },
		func() error {
			c.mu.RLock()
			w := c.params.StereoWidener
			c.mu.RUnlock()
			w.Enabled = false
			return c.setStereoWidener(w)
		},
		func() error {
			c.mu.RLock()
			e := c.params.Exciter
			c.mu.RUnlock()
			e.Enabled = false
			return c.setExciter(e)
		},
		func() error {
			c.mu.RLock()
			r := c.params.Reverb
			c.mu.RUnlock()
			r.Enabled = false
			return c.setReverb(r)
		},
	}
}

// ResetAll restores every parameter to its default and clears the ledger.
// Safe mode and the other mode flags are kept; the defaults are forwarded
// directly, so the ledger stays empty until the next edit. Audiophile mode,
// when on, still forces its compressor and exciter settings.
//
// The ledger then reads 0 dB even though the restored defaults include a
// bass level and an enabled compressor with makeup gain. Those count again
// only once their setters are called, so callers that need the ledger to
// reflect the defaults should replay them through the setters.
func (c *Controller) ResetAll() error {
	c.mu.Lock()
	p := params.Defaults()
	if c.mode.AudiophileMode {
		p, _ = params.Audiophile(p, c.mode)
	}
	c.params = p
	c.battle = presets.Off
	c.active = NoSlot
	c.updateCeilingLocked()
	c.ledger.Reset()
	c.eqExplicit = [params.NumBands]bool{}
	mode := c.mode
	c.mu.Unlock()

	c.failures.forget()

	factor := float64(p.BassLevel) / params.MaxBassLevel
	subHarmonic := factor * subHarmonicScale
	if !mode.SubHarmonicEnabled {
		subHarmonic = 0
	}

	fns := []func() error{
		func() error { return c.run([]forward{c.bassForward(p.BassLevel)}) },
		func() error {
			return c.call(effects.ProviderBassBoost, "set_center_frequency", func() error {
				return c.providers.BassBoost.SetCenterFrequency(p.BassFrequencyHz)
			})
		},
		func() error { return c.run([]forward{c.loudnessForward(p.LoudnessMillibels)}) },
		func() error {
			return c.call(effects.ProviderVirtualizer, "set_strength", func() error {
				return c.providers.Virtualizer.SetStrength(p.Virtualizer)
			})
		},
	}
	for band, level := range p.EqLevels {
		fns = append(fns, func() error { return c.run([]forward{c.eqForward(band, level)}) })
	}
	dyn := []forward{
		c.dynamicsForward("set_compressor", func(d effects.Dynamics) error { return d.SetCompressor(p.Compressor) }),
		c.dynamicsForward("set_limiter", func(d effects.Dynamics) error { return d.SetLimiter(p.Limiter, mode.DangerMode) }),
		c.dynamicsForward("set_stereo_widener", func(d effects.Dynamics) error { return d.SetStereoWidener(p.StereoWidener) }),
		c.dynamicsForward("set_exciter", func(d effects.Dynamics) error { return d.SetExciter(p.Exciter) }),
		c.dynamicsForward("set_reverb", func(d effects.Dynamics) error { return d.SetReverb(p.Reverb) }),
		c.dspForward("set_sub_harmonic", func(d effects.NativeDSP) error { return d.SetSubHarmonic(subHarmonic) }),
		c.dspForward("set_exciter_amount", func(d effects.NativeDSP) error { return d.SetExciterAmount(factor * bassExciterScale) }),
		c.dspForward("set_battle_mode", func(d effects.NativeDSP) error { return d.SetBattleMode(false) }),
	}
	for _, f := range dyn {
		fns = append(fns, func() error { return c.run([]forward{f}) })
	}

	err := c.steps("reset_all", fns...)
	c.logger.Info("all effect parameters reset")
	c.publish("reset_all")
	return err
}
