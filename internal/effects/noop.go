package effects

import "github.com/tphakala/gainguard/internal/params"

// Noop implements every provider interface as a no-op.
type Noop struct{}

func (Noop) SetBandLevel(int, int) error                 { return nil }
func (Noop) Bands() []params.EqualizerBand               { return nil }
func (Noop) SetTargetGain(int) error                     { return nil }
func (Noop) SetStrength(int) error                       { return nil }
func (Noop) SetCenterFrequency(int) error                { return nil }
func (Noop) SetCompressor(params.Compressor) error       { return nil }
func (Noop) SetLimiter(params.Limiter, bool) error       { return nil }
func (Noop) SetOutputCeiling(bool, float64) error        { return nil }
func (Noop) SetStereoWidener(params.StereoWidener) error { return nil }
func (Noop) SetExciter(params.Exciter) error             { return nil }
func (Noop) SetReverb(params.Reverb) error               { return nil }
func (Noop) SetSubHarmonic(float64) error                { return nil }
func (Noop) SetExciterAmount(float64) error              { return nil }
func (Noop) SetBattleMode(bool) error                    { return nil }
func (Noop) SetBassBoostMode(bool) error                 { return nil }
func (Noop) SetAudiophileMode(bool) error                { return nil }
func (Noop) SetQualityTier(params.QualityTier) error     { return nil }

var (
	_ Equalizer   = Noop{}
	_ Loudness    = Noop{}
	_ BassBoost   = Noop{}
	_ Virtualizer = Noop{}
	_ Dynamics    = Noop{}
	_ NativeDSP   = Noop{}
)
