package presets

import (
	"encoding/json"
	"math"

	"github.com/tphakala/gainguard/internal/params"
)

// Preset is one battle-mode tuple. It captures only the scalar targets and
// the curve; dynamics, stereo, exciter and reverb are left as they are.
type Preset struct {
	Mode              BattleMode `json:"mode"`
	Bass              int        `json:"bass"`
	LoudnessMillibels int        `json:"loudness_mb"`
	Virtualizer       int        `json:"virtualizer"`
	Curve             Curve      `json:"curve"`
}

// Levels evaluates the preset's curve for layout.
func (p Preset) Levels(layout params.Layout) [params.NumBands]int {
	return p.Curve.Apply(layout)
}

// catalog is indexed by BattleMode. The three composite presets reuse the
// FullAssault, BassWarfare and ClarityStrike curves.
var catalog = [numModes]Preset{
	Off:            {Mode: Off, Curve: flatCurve},
	BassWarfare:    {Mode: BassWarfare, Bass: 1000, LoudnessMillibels: 600, Virtualizer: 400, Curve: bassWarfareCurve},
	ClarityStrike:  {Mode: ClarityStrike, Bass: 500, LoudnessMillibels: 700, Virtualizer: 600, Curve: clarityStrikeCurve},
	FullAssault:    {Mode: FullAssault, Bass: 900, LoudnessMillibels: 900, Virtualizer: 800, Curve: fullAssaultCurve},
	SplMonster:     {Mode: SplMonster, Bass: 1000, LoudnessMillibels: 1000, Virtualizer: 300, Curve: splMonsterCurve},
	CrowdReach:     {Mode: CrowdReach, Bass: 600, LoudnessMillibels: 800, Virtualizer: 1000, Curve: crowdReachCurve},
	MaximumImpact:  {Mode: MaximumImpact, Bass: 1000, LoudnessMillibels: 1000, Virtualizer: 1000, Curve: fullAssaultCurve},
	BalancedBattle: {Mode: BalancedBattle, Bass: 700, LoudnessMillibels: 500, Virtualizer: 500, Curve: bassWarfareCurve},
	IndoorBattle:   {Mode: IndoorBattle, Bass: 400, LoudnessMillibels: 400, Virtualizer: 700, Curve: clarityStrikeCurve},
}

// Lookup returns the preset for mode.
func Lookup(mode BattleMode) (Preset, bool) {
	if !mode.Valid() {
		return Preset{}, false
	}
	return catalog[mode], true
}

// All returns the full catalog in mode order.
func All() []Preset {
	out := make([]Preset, len(catalog))
	copy(out, catalog[:])
	return out
}

// pointKind selects how a curve point is resolved against a band.
type pointKind int

const (
	ofMax pointKind = iota
	ofMin
	fixed
)

// Point is one band target of a curve.
type Point struct {
	kind  pointKind
	value float64
}

// Max is a fraction of the band's maximum level.
func Max(fraction float64) Point { return Point{kind: ofMax, value: fraction} }

// Min is a fraction of the band's minimum level.
func Min(fraction float64) Point { return Point{kind: ofMin, value: fraction} }

// Millibels is an absolute level.
func Millibels(mb int) Point { return Point{kind: fixed, value: float64(mb)} }

// Resolve returns the point's level for band, clamped to the band range.
func (p Point) Resolve(band params.EqualizerBand) int {
	var v float64
	switch p.kind {
	case ofMax:
		v = p.value * float64(band.MaxMillibels)
	case ofMin:
		v = p.value * float64(band.MinMillibels)
	default:
		v = p.value
	}
	return band.Clamp(int(math.Round(v)))
}

// Curve is a 5-band EQ target ordered sub-bass, bass, low-mid, presence, air.
type Curve [params.NumBands]Point

// Apply resolves every point against layout.
func (c Curve) Apply(layout params.Layout) [params.NumBands]int {
	var levels [params.NumBands]int
	for i, p := range c {
		levels[i] = p.Resolve(layout[i])
	}
	return levels
}

// MarshalJSON renders the curve as the levels it produces for the default
// layout.
func (c Curve) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Apply(params.DefaultLayout(params.DefaultBandRangeMillibels)))
}

var (
	flatCurve = Curve{Millibels(0), Millibels(0), Millibels(0), Millibels(0), Millibels(0)}

	bassWarfareCurve   = Curve{Max(1), Max(0.8), Min(0.3), Millibels(0), Max(0.3)}
	clarityStrikeCurve = Curve{Max(0.5), Max(0.4), Millibels(-300), Max(0.7), Max(0.6)}
	fullAssaultCurve   = Curve{Max(1), Max(0.9), Millibels(-200), Max(0.8), Max(0.7)}
	splMonsterCurve    = Curve{Max(1), Max(1), Max(0.6), Max(0.3), Millibels(0)}
	crowdReachCurve    = Curve{Max(0.8), Max(0.5), Millibels(-400), Max(0.9), Max(0.8)}
)
