package params

import "fmt"

// NumBands is the fixed equalizer band count.
const NumBands = 5

// Band indexes of the fixed layout.
const (
	BandSubBass = iota
	BandBass
	BandLowMid
	BandPresence
	BandAir
)

// DefaultBandRangeMillibels is the symmetric band range used when the
// equalizer provider does not report its own.
const DefaultBandRangeMillibels = 1500

var bandNames = [NumBands]string{"sub_bass", "bass", "low_mid", "presence", "air"}

var defaultCentersHz = [NumBands]int{60, 230, 910, 3600, 14000}

// EqualizerBand describes one equalizer band and its current level.
type EqualizerBand struct {
	Index          int `json:"index"`
	CenterHz       int `json:"center_hz"`
	MinMillibels   int `json:"min_mb"`
	MaxMillibels   int `json:"max_mb"`
	LevelMillibels int `json:"level_mb"`
}

// Name returns the band's short name, e.g. "sub_bass".
func (b EqualizerBand) Name() string {
	if b.Index < 0 || b.Index >= NumBands {
		return fmt.Sprintf("band_%d", b.Index)
	}
	return bandNames[b.Index]
}

// Clamp coerces level into the band's range.
func (b EqualizerBand) Clamp(level int) int {
	return ClampInt(level, b.MinMillibels, b.MaxMillibels)
}

// Layout is the fixed 5-band equalizer description.
type Layout [NumBands]EqualizerBand

// DefaultLayout returns the standard layout with a symmetric range of
// rangeMillibels. Non-positive ranges fall back to DefaultBandRangeMillibels.
func DefaultLayout(rangeMillibels int) Layout {
	if rangeMillibels <= 0 {
		rangeMillibels = DefaultBandRangeMillibels
	}
	var l Layout
	for i := range l {
		l[i] = EqualizerBand{
			Index:        i,
			CenterHz:     defaultCentersHz[i],
			MinMillibels: -rangeMillibels,
			MaxMillibels: rangeMillibels,
		}
	}
	return l
}

// LayoutFrom builds a Layout from provider-reported bands. Missing or
// malformed entries keep the defaults; current levels are not copied.
func LayoutFrom(bands []EqualizerBand) Layout {
	l := DefaultLayout(DefaultBandRangeMillibels)
	for _, b := range bands {
		if b.Index < 0 || b.Index >= NumBands || b.MinMillibels > b.MaxMillibels {
			continue
		}
		l[b.Index].MinMillibels = b.MinMillibels
		l[b.Index].MaxMillibels = b.MaxMillibels
		if b.CenterHz > 0 {
			l[b.Index].CenterHz = b.CenterHz
		}
	}
	return l
}

// WithLevels returns a copy of the layout with LevelMillibels filled in.
func (l Layout) WithLevels(levels [NumBands]int) []EqualizerBand {
	out := make([]EqualizerBand, NumBands)
	for i, b := range l {
		b.LevelMillibels = levels[i]
		out[i] = b
	}
	return out
}

// ValidBand reports whether index addresses a band of the fixed layout.
func ValidBand(index int) bool {
	return index >= 0 && index < NumBands
}
