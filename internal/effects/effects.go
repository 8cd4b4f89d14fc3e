// Package effects defines the collaborators the controller parameterizes:
// equalizer, loudness, bass boost, virtualizer, dynamics processor and the
// native DSP engine. Each is optional; a Noop implementation stands in when
// the host cannot provide one, so callers never branch on availability.
package effects

import (
	"github.com/tphakala/gainguard/internal/errors"
	"github.com/tphakala/gainguard/internal/params"
)

// ErrUnsupported is returned by a provider that cannot apply a value on this
// host. The controller treats it as a silent no-op.
var ErrUnsupported = errors.NewStd("effect not supported")

// IsUnsupported reports whether err is or wraps ErrUnsupported.
func IsUnsupported(err error) bool {
	return errors.Is(err, ErrUnsupported)
}

// Equalizer applies per-band levels.
type Equalizer interface {
	SetBandLevel(band, millibels int) error
	// Bands reports the provider's band layout. An empty result means the
	// default layout is used.
	Bands() []params.EqualizerBand
}

// Loudness applies a loudness-enhancer target gain.
type Loudness interface {
	SetTargetGain(millibels int) error
}

// BassBoost applies bass emphasis.
type BassBoost interface {
	SetStrength(level int) error
	SetCenterFrequency(hz int) error
}

// Virtualizer applies spatial widening.
type Virtualizer interface {
	SetStrength(level int) error
}

// Dynamics is the dynamics processor: compressor, limiter, output ceiling
// and the auxiliary stereo/exciter/reverb stages.
type Dynamics interface {
	SetCompressor(c params.Compressor) error
	// SetLimiter applies l; bypass removes the limiter stage regardless of
	// l.Enabled.
	SetLimiter(l params.Limiter, bypass bool) error
	SetOutputCeiling(enabled bool, ceilingDb float64) error
	SetStereoWidener(s params.StereoWidener) error
	SetExciter(e params.Exciter) error
	SetReverb(r params.Reverb) error
}

// NativeDSP receives additive psychoacoustic signals and mode toggles.
// Amounts are in [0, 1].
type NativeDSP interface {
	SetSubHarmonic(amount float64) error
	SetExciterAmount(amount float64) error
	SetBattleMode(enabled bool) error
	SetBassBoostMode(enabled bool) error
	SetAudiophileMode(enabled bool) error
	SetQualityTier(tier params.QualityTier) error
}

// Providers bundles every collaborator. Nil fields are replaced by Noop
// implementations in WithDefaults.
type Providers struct {
	Equalizer   Equalizer
	Loudness    Loudness
	BassBoost   BassBoost
	Virtualizer Virtualizer
	Dynamics    Dynamics
	DSP         NativeDSP
}

// WithDefaults returns p with every missing collaborator set to Noop.
func (p Providers) WithDefaults() Providers {
	var n Noop
	if p.Equalizer == nil {
		p.Equalizer = n
	}
	if p.Loudness == nil {
		p.Loudness = n
	}
	if p.BassBoost == nil {
		p.BassBoost = n
	}
	if p.Virtualizer == nil {
		p.Virtualizer = n
	}
	if p.Dynamics == nil {
		p.Dynamics = n
	}
	if p.DSP == nil {
		p.DSP = n
	}
	return p
}

// NewNoopProviders returns a bundle where every call succeeds and does
// nothing.
func NewNoopProviders() Providers {
	return Providers{}.WithDefaults()
}
