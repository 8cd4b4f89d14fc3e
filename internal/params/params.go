// Package params holds the value-only parameter model of the effect chain:
// the full ParameterSet, its documented ranges and defaults, the fixed
// equalizer band layout and the orthogonal mode flags.
//
// Every Clamp method silently coerces out-of-range input into range; no
// operation in this package rejects a value.
package params

import "math"

// Scalar ranges.
const (
	MinBassLevel = 0
	MaxBassLevel = 1000

	MinBassFrequencyHz = 20
	MaxBassFrequencyHz = 200

	MinLoudnessMillibels = 0
	MaxLoudnessMillibels = 1000

	MinClarity = 0
	MaxClarity = 100

	MinVirtualizer = 0
	MaxVirtualizer = 1000

	MinStereoWidth = 0
	MaxStereoWidth = 200

	MinExciterPercent = 0
	MaxExciterPercent = 100

	MinReverbPreset = 0
	MaxReverbPreset = 6
)

// Compressor ranges.
const (
	MinCompressorThresholdDb = -60.0
	MaxCompressorThresholdDb = 0.0
	MinCompressorRatio       = 1.0
	MaxCompressorRatio       = 20.0
	MinCompressorAttackMs    = 0.1
	MaxCompressorAttackMs    = 200.0
	MinCompressorReleaseMs   = 10.0
	MaxCompressorReleaseMs   = 1000.0
	MinMakeupGainDb          = 0.0
	MaxMakeupGainDb          = 24.0
)

// Limiter ranges.
const (
	MinLimiterThresholdDb = -12.0
	MaxLimiterThresholdDb = 0.0
	MinLimiterCeilingDb   = -3.0
	MaxLimiterCeilingDb   = 0.0
	MinLimiterAttackMs    = 0.1
	MaxLimiterAttackMs    = 10.0
	MinLimiterReleaseMs   = 10.0
	MaxLimiterReleaseMs   = 500.0
)

// HardwareCeilingDb is the fixed output ceiling enforced while hardware
// protection is on.
const HardwareCeilingDb = -0.5

// ClampInt coerces v into [lo, hi].
func ClampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// ClampFloat coerces v into [lo, hi]. NaN maps to lo.
func ClampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}

// Compressor holds the dynamics compressor stage.
type Compressor struct {
	Enabled      bool    `json:"enabled" yaml:"enabled"`
	ThresholdDb  float64 `json:"threshold_db" yaml:"threshold_db"`
	Ratio        float64 `json:"ratio" yaml:"ratio"`
	AttackMs     float64 `json:"attack_ms" yaml:"attack_ms"`
	ReleaseMs    float64 `json:"release_ms" yaml:"release_ms"`
	MakeupGainDb float64 `json:"makeup_gain_db" yaml:"makeup_gain_db"`
}

// Clamp returns c with every field in range.
func (c Compressor) Clamp() Compressor {
	c.ThresholdDb = ClampFloat(c.ThresholdDb, MinCompressorThresholdDb, MaxCompressorThresholdDb)
	c.Ratio = ClampFloat(c.Ratio, MinCompressorRatio, MaxCompressorRatio)
	c.AttackMs = ClampFloat(c.AttackMs, MinCompressorAttackMs, MaxCompressorAttackMs)
	c.ReleaseMs = ClampFloat(c.ReleaseMs, MinCompressorReleaseMs, MaxCompressorReleaseMs)
	c.MakeupGainDb = ClampFloat(c.MakeupGainDb, MinMakeupGainDb, MaxMakeupGainDb)
	return c
}

// Limiter holds the adaptive limiter stage.
type Limiter struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	ThresholdDb float64 `json:"threshold_db" yaml:"threshold_db"`
	CeilingDb   float64 `json:"ceiling_db" yaml:"ceiling_db"`
	AttackMs    float64 `json:"attack_ms" yaml:"attack_ms"`
	ReleaseMs   float64 `json:"release_ms" yaml:"release_ms"`
}

// Clamp returns l with every field in range.
func (l Limiter) Clamp() Limiter {
	l.ThresholdDb = ClampFloat(l.ThresholdDb, MinLimiterThresholdDb, MaxLimiterThresholdDb)
	l.CeilingDb = ClampFloat(l.CeilingDb, MinLimiterCeilingDb, MaxLimiterCeilingDb)
	l.AttackMs = ClampFloat(l.AttackMs, MinLimiterAttackMs, MaxLimiterAttackMs)
	l.ReleaseMs = ClampFloat(l.ReleaseMs, MinLimiterReleaseMs, MaxLimiterReleaseMs)
	return l
}

// StereoWidener holds the stereo widening stage. Width 100 is neutral.
type StereoWidener struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Width   int  `json:"width" yaml:"width"`
}

func (s StereoWidener) Clamp() StereoWidener {
	s.Width = ClampInt(s.Width, MinStereoWidth, MaxStereoWidth)
	return s
}

// Exciter holds the harmonic exciter. Drive and Mix are percentages.
type Exciter struct {
	Enabled bool    `json:"enabled" yaml:"enabled"`
	Drive   float64 `json:"drive" yaml:"drive"`
	Mix     float64 `json:"mix" yaml:"mix"`
}

func (e Exciter) Clamp() Exciter {
	e.Drive = ClampFloat(e.Drive, MinExciterPercent, MaxExciterPercent)
	e.Mix = ClampFloat(e.Mix, MinExciterPercent, MaxExciterPercent)
	return e
}

// Reverb holds the reverb stage; Preset indexes the provider's preset list.
type Reverb struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	Preset  int  `json:"preset" yaml:"preset"`
}

func (r Reverb) Clamp() Reverb {
	r.Preset = ClampInt(r.Preset, MinReverbPreset, MaxReverbPreset)
	return r
}

// ParameterSet is the complete value-only snapshot of every adjustable
// effect parameter. It is comparable with ==.
type ParameterSet struct {
	BassLevel         int           `json:"bass_level" yaml:"bass_level"`
	BassFrequencyHz   int           `json:"bass_frequency_hz" yaml:"bass_frequency_hz"`
	LoudnessMillibels int           `json:"loudness_mb" yaml:"loudness_mb"`
	Clarity           int           `json:"clarity" yaml:"clarity"`
	Virtualizer       int           `json:"virtualizer" yaml:"virtualizer"`
	EqLevels          [NumBands]int `json:"eq_levels_mb" yaml:"eq_levels_mb"`
	Compressor        Compressor    `json:"compressor" yaml:"compressor"`
	Limiter           Limiter       `json:"limiter" yaml:"limiter"`
	StereoWidener     StereoWidener `json:"stereo_widener" yaml:"stereo_widener"`
	Exciter           Exciter       `json:"exciter" yaml:"exciter"`
	Reverb            Reverb        `json:"reverb" yaml:"reverb"`
}

// Defaults returns the documented reset values.
func Defaults() ParameterSet {
	return ParameterSet{
		BassLevel:         500,
		BassFrequencyHz:   80,
		LoudnessMillibels: 0,
		Clarity:           50,
		Virtualizer:       500,
		Compressor: Compressor{
			Enabled:      true,
			ThresholdDb:  -12,
			Ratio:        4,
			AttackMs:     10,
			ReleaseMs:    100,
			MakeupGainDb: 6,
		},
		Limiter: Limiter{
			Enabled:     true,
			ThresholdDb: -1,
			CeilingDb:   -0.1,
			AttackMs:    1,
			ReleaseMs:   50,
		},
		StereoWidener: StereoWidener{Enabled: false, Width: 100},
		Exciter:       Exciter{Enabled: false, Drive: 30, Mix: 50},
		Reverb:        Reverb{Enabled: false, Preset: 0},
	}
}

// Clamp returns p with every scalar and nested struct coerced into range.
// EQ levels are clamped against layout.
func (p ParameterSet) Clamp(layout Layout) ParameterSet {
	p.BassLevel = ClampInt(p.BassLevel, MinBassLevel, MaxBassLevel)
	p.BassFrequencyHz = ClampInt(p.BassFrequencyHz, MinBassFrequencyHz, MaxBassFrequencyHz)
	p.LoudnessMillibels = ClampInt(p.LoudnessMillibels, MinLoudnessMillibels, MaxLoudnessMillibels)
	p.Clarity = ClampInt(p.Clarity, MinClarity, MaxClarity)
	p.Virtualizer = ClampInt(p.Virtualizer, MinVirtualizer, MaxVirtualizer)
	for i := range p.EqLevels {
		p.EqLevels[i] = layout[i].Clamp(p.EqLevels[i])
	}
	p.Compressor = p.Compressor.Clamp()
	p.Limiter = p.Limiter.Clamp()
	p.StereoWidener = p.StereoWidener.Clamp()
	p.Exciter = p.Exciter.Clamp()
	p.Reverb = p.Reverb.Clamp()
	return p
}
