package effects

import "github.com/tphakala/gainguard/internal/params"

// Provider names used in call records and logs.
const (
	ProviderEqualizer   = "equalizer"
	ProviderLoudness    = "loudness"
	ProviderBassBoost   = "bass_boost"
	ProviderVirtualizer = "virtualizer"
	ProviderDynamics    = "dynamics"
	ProviderDSP         = "native_dsp"
)

// sink receives one forwarded call.
type sink func(provider, method string, args ...any) error

// sinkProviders builds a full bundle whose calls all land in s. bands is
// what the equalizer reports as its layout.
func sinkProviders(s sink, bands func() []params.EqualizerBand) Providers {
	return Providers{
		Equalizer:   sinkEqualizer{s: s, bands: bands},
		Loudness:    sinkLoudness{s},
		BassBoost:   sinkBass{s},
		Virtualizer: sinkVirtualizer{s},
		Dynamics:    sinkDynamics{s},
		DSP:         sinkDSP{s},
	}
}

type sinkEqualizer struct {
	s     sink
	bands func() []params.EqualizerBand
}

func (e sinkEqualizer) SetBandLevel(band, mb int) error {
	return e.s(ProviderEqualizer, "set_band_level", band, mb)
}

func (e sinkEqualizer) Bands() []params.EqualizerBand {
	if e.bands == nil {
		return nil
	}
	return e.bands()
}

type sinkLoudness struct{ s sink }

func (l sinkLoudness) SetTargetGain(mb int) error {
	return l.s(ProviderLoudness, "set_target_gain", mb)
}

type sinkBass struct{ s sink }

func (b sinkBass) SetStrength(level int) error {
	return b.s(ProviderBassBoost, "set_strength", level)
}

func (b sinkBass) SetCenterFrequency(hz int) error {
	return b.s(ProviderBassBoost, "set_center_frequency", hz)
}

type sinkVirtualizer struct{ s sink }

func (v sinkVirtualizer) SetStrength(level int) error {
	return v.s(ProviderVirtualizer, "set_strength", level)
}

type sinkDynamics struct{ s sink }

func (d sinkDynamics) SetCompressor(c params.Compressor) error {
	return d.s(ProviderDynamics, "set_compressor", c)
}

func (d sinkDynamics) SetLimiter(l params.Limiter, bypass bool) error {
	return d.s(ProviderDynamics, "set_limiter", l, bypass)
}

func (d sinkDynamics) SetOutputCeiling(enabled bool, ceilingDb float64) error {
	return d.s(ProviderDynamics, "set_output_ceiling", enabled, ceilingDb)
}

func (d sinkDynamics) SetStereoWidener(w params.StereoWidener) error {
	return d.s(ProviderDynamics, "set_stereo_widener", w)
}

func (d sinkDynamics) SetExciter(e params.Exciter) error {
	return d.s(ProviderDynamics, "set_exciter", e)
}

func (d sinkDynamics) SetReverb(r params.Reverb) error {
	return d.s(ProviderDynamics, "set_reverb", r)
}

type sinkDSP struct{ s sink }

func (d sinkDSP) SetSubHarmonic(amount float64) error {
	return d.s(ProviderDSP, "set_sub_harmonic", amount)
}

func (d sinkDSP) SetExciterAmount(amount float64) error {
	return d.s(ProviderDSP, "set_exciter_amount", amount)
}

func (d sinkDSP) SetBattleMode(enabled bool) error {
	return d.s(ProviderDSP, "set_battle_mode", enabled)
}

func (d sinkDSP) SetBassBoostMode(enabled bool) error {
	return d.s(ProviderDSP, "set_bass_boost_mode", enabled)
}

func (d sinkDSP) SetAudiophileMode(enabled bool) error {
	return d.s(ProviderDSP, "set_audiophile_mode", enabled)
}

func (d sinkDSP) SetQualityTier(tier params.QualityTier) error {
	return d.s(ProviderDSP, "set_quality_tier", tier)
}
