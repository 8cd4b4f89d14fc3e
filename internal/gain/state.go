// Package gain implements the gain ledger: per-source decibel estimates for
// every gain-bearing effect, their total against a fixed safety budget and
// the single corrective attenuation (automatic gain reduction, AGR) derived
// from it.
//
// State transitions are pure functions on the State value type; Ledger wraps
// them behind one lock for concurrent readers.
package gain

import (
	"fmt"
	"math"
)

// SourceKind identifies one contributor to cumulative estimated gain.
type SourceKind int

const (
	BassBoost SourceKind = iota
	EqualizerPeak
	Loudness
	CompressorMakeup
	Exciter

	numSources
)

// Ledger tuning constants.
const (
	BudgetDb          = 12.0 // total estimated gain allowed before AGR engages
	SafetyMarginDb    = 3.0  // extra attenuation on top of the excess
	MaxReductionDb    = 24.0
	EqReductionShare  = 0.5 // equalizer receives half the correction
	MaxBassDegradeFac = 0.3 // bass strength drops by at most 30%

	bassBoostFullScaleDb = 12.0
	exciterFullScaleDb   = 6.0
	maxMakeupDb          = 24.0
	millibelsPerDb       = 100.0
)

// AllSources lists every source kind in ledger order.
var AllSources = [...]SourceKind{BassBoost, EqualizerPeak, Loudness, CompressorMakeup, Exciter}

func (k SourceKind) String() string {
	switch k {
	case BassBoost:
		return "bass_boost"
	case EqualizerPeak:
		return "equalizer_peak"
	case Loudness:
		return "loudness"
	case CompressorMakeup:
		return "compressor_makeup"
	case Exciter:
		return "exciter"
	default:
		return fmt.Sprintf("source(%d)", int(k))
	}
}

// Valid reports whether k names a tracked source.
func (k SourceKind) Valid() bool {
	return k >= 0 && k < numSources
}

// State is a complete, value-only view of the ledger. Copies are safe to
// hand to other goroutines.
type State struct {
	Sources     [numSources]float64 `json:"sources_db"`
	TotalDb     float64             `json:"total_db"`
	ReductionDb float64             `json:"reduction_db"`
	AgrActive   bool                `json:"agr_active"`
	SafeMode    bool                `json:"safe_mode"`
}

// Source returns the current estimate for kind, 0 for unknown kinds.
func (s State) Source(kind SourceKind) float64 {
	if !kind.Valid() {
		return 0
	}
	return s.Sources[kind]
}

// HeadroomDb returns how much estimated gain can still be added before the
// budget is exceeded.
func (s State) HeadroomDb() float64 {
	return math.Max(0, BudgetDb-s.TotalDb)
}

// IsGainSafe reports whether adding additionalDb keeps the total within budget.
func (s State) IsGainSafe(additionalDb float64) bool {
	return s.TotalDb+additionalDb <= BudgetDb
}

// WithSource returns s with kind set to db and derived fields recomputed.
// Negative contributions (cuts) are stored as 0.
func (s State) WithSource(kind SourceKind, db float64) State {
	if !kind.Valid() {
		return s
	}
	if db < 0 || math.IsNaN(db) {
		db = 0
	}
	s.Sources[kind] = db
	return Recalculate(s)
}

// WithSafeMode returns s with the safe mode flag set and derived fields
// recomputed. Source values are kept.
func (s State) WithSafeMode(enabled bool) State {
	s.SafeMode = enabled
	return Recalculate(s)
}

// Cleared returns a state with every source and derived field zeroed while
// keeping the safe mode preference.
func (s State) Cleared() State {
	return State{SafeMode: s.SafeMode}
}

// Recalculate derives TotalDb, ReductionDb and AgrActive from the sources and
// the safe mode flag. It is idempotent.
func Recalculate(s State) State {
	total := 0.0
	for _, v := range s.Sources {
		if v > 0 {
			total += v
		}
	}
	s.TotalDb = total

	if !s.SafeMode {
		s.ReductionDb = 0
		s.AgrActive = false
		return s
	}

	reduction := 0.0
	if excess := total - BudgetDb; excess > 0 {
		reduction = math.Min(excess+SafetyMarginDb, MaxReductionDb)
	}
	s.ReductionDb = reduction
	s.AgrActive = reduction > 0
	return s
}

// AdjustedLoudness returns the loudness target after AGR, never below 0.
func (s State) AdjustedLoudness(requestedMillibels int) int {
	adjusted := float64(requestedMillibels) - s.ReductionDb*millibelsPerDb
	return int(math.Max(0, math.Round(adjusted)))
}

// AdjustedEqLevel returns the band level after AGR. Cuts pass through
// unchanged; boosts receive EqReductionShare of the correction.
func (s State) AdjustedEqLevel(requestedMillibels int) int {
	if requestedMillibels <= 0 {
		return requestedMillibels
	}
	adjusted := float64(requestedMillibels) - s.ReductionDb*millibelsPerDb*EqReductionShare
	return int(math.Max(0, math.Round(adjusted)))
}

// AdjustedBassBoost scales the bass strength down proportionally to how much
// of the reduction budget is used, by at most MaxBassDegradeFac.
func (s State) AdjustedBassBoost(requestedLevel int) int {
	factor := 1 - (s.ReductionDb/MaxReductionDb)*MaxBassDegradeFac
	adjusted := int(math.Round(float64(requestedLevel) * factor))
	return min(max(adjusted, 0), 1000)
}
