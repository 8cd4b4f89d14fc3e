package params

import "fmt"

// QualityTier selects the audio-quality engine of the native DSP.
type QualityTier int

const (
	QualityStandard QualityTier = iota
	QualityHigh
	QualityAudiophile
)

func (q QualityTier) String() string {
	switch q {
	case QualityStandard:
		return "standard"
	case QualityHigh:
		return "high"
	case QualityAudiophile:
		return "audiophile"
	default:
		return fmt.Sprintf("tier(%d)", int(q))
	}
}

// MarshalText encodes the tier by name.
func (q QualityTier) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

// UnmarshalText decodes a tier name.
func (q *QualityTier) UnmarshalText(text []byte) error {
	for t := QualityStandard; t <= QualityAudiophile; t++ {
		if t.String() == string(text) {
			*q = t
			return nil
		}
	}
	return fmt.Errorf("unknown quality tier %q", text)
}

// Mode holds the orthogonal safety axes and the composite audiophile toggle.
// SafeMode, DangerMode and HardwareProtection never interact numerically.
type Mode struct {
	SafeMode           bool        `json:"safe_mode"`
	DangerMode         bool        `json:"danger_mode"`
	HardwareProtection bool        `json:"hardware_protection"`
	AudiophileMode     bool        `json:"audiophile_mode"`
	QualityTier        QualityTier `json:"quality_tier"`
	SubHarmonicEnabled bool        `json:"sub_harmonic_enabled"`
}

// DefaultMode returns the start-up flags: safe mode on, everything else off.
func DefaultMode() Mode {
	return Mode{
		SafeMode:           true,
		QualityTier:        QualityStandard,
		SubHarmonicEnabled: true,
	}
}

// LimiterActive reports whether the adaptive limiter stage should run.
func (m Mode) LimiterActive(l Limiter) bool {
	return l.Enabled && !m.DangerMode
}

// OutputCeilingDb returns the enforced hard ceiling and whether one applies.
func (m Mode) OutputCeilingDb() (float64, bool) {
	if m.HardwareProtection {
		return HardwareCeilingDb, true
	}
	return 0, false
}

// EffectiveCeilingDb is the level above which a peak counts as a clip: the
// hardware ceiling when protection is on, the active limiter ceiling
// otherwise, and 0 dBFS when neither applies.
func (m Mode) EffectiveCeilingDb(l Limiter) float64 {
	if c, ok := m.OutputCeilingDb(); ok {
		return c
	}
	if m.LimiterActive(l) {
		return l.CeilingDb
	}
	return 0
}

// Audiophile returns the composite target of enabling audiophile mode on
// (p, m): compressor and exciter off, sub-harmonic synthesis off, hardware
// protection forced on, highest quality tier.
func Audiophile(p ParameterSet, m Mode) (ParameterSet, Mode) {
	p.Compressor.Enabled = false
	p.Exciter.Enabled = false
	m.AudiophileMode = true
	m.SubHarmonicEnabled = false
	m.HardwareProtection = true
	m.QualityTier = QualityAudiophile
	return p, m
}

// LeaveAudiophile returns m with audiophile mode off. Quality returns to the
// standard tier and sub-harmonic synthesis is allowed again; compressor,
// exciter and hardware protection keep their current values.
func LeaveAudiophile(m Mode) Mode {
	m.AudiophileMode = false
	m.SubHarmonicEnabled = true
	m.QualityTier = QualityStandard
	return m
}
