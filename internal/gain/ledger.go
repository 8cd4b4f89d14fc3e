package gain

import (
	"sync"

	"github.com/tphakala/gainguard/internal/logger"
)

// Ledger tracks gain sources and derives the corrective attenuation. All
// methods are safe for concurrent use; every update recomputes synchronously
// and readers always observe a whole State.
type Ledger struct {
	mu     sync.RWMutex
	state  State
	logger logger.Logger
}

// NewLedger creates an empty ledger. log may be nil.
func NewLedger(safeMode bool, log logger.Logger) *Ledger {
	return &Ledger{
		state:  State{}.WithSafeMode(safeMode),
		logger: log,
	}
}

// apply runs one transition under the write lock and returns the new state.
func (l *Ledger) apply(op string, fn func(State) State) State {
	l.mu.Lock()
	prev := l.state
	next := fn(prev)
	l.state = next
	l.mu.Unlock()

	if l.logger != nil && (prev.AgrActive != next.AgrActive || prev.ReductionDb != next.ReductionDb) {
		l.logger.Debug("gain reduction changed",
			logger.String("operation", op),
			logger.Float64("total_db", next.TotalDb),
			logger.Float64("reduction_db", next.ReductionDb),
			logger.Bool("agr_active", next.AgrActive))
	}
	return next
}

// UpdateSource converts raw to decibels (see ToDb) and records it for kind.
func (l *Ledger) UpdateSource(kind SourceKind, raw float64) State {
	db := ToDb(kind, raw)
	return l.apply("update_"+kind.String(), func(s State) State {
		return s.WithSource(kind, db)
	})
}

// UpdateEqualizerPeak records the EqualizerPeak source from all band levels.
func (l *Ledger) UpdateEqualizerPeak(levels []int) State {
	return l.UpdateSource(EqualizerPeak, float64(PeakMillibels(levels)))
}

// UpdateExciter records the Exciter source from drive and mix (0..100 each).
func (l *Ledger) UpdateExciter(drive, mix float64) State {
	return l.UpdateSource(Exciter, ExciterIntensity(drive, mix))
}

// SetSafeMode stores the flag and recalculates. Sources are kept.
func (l *Ledger) SetSafeMode(enabled bool) State {
	return l.apply("set_safe_mode", func(s State) State {
		return s.WithSafeMode(enabled)
	})
}

// Reset zeroes every source and derived field. Safe mode is preserved.
func (l *Ledger) Reset() State {
	return l.apply("reset", State.Cleared)
}

// Snapshot returns a consistent copy of the current state.
func (l *Ledger) Snapshot() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TotalDb returns the summed estimate of all sources.
func (l *Ledger) TotalDb() float64 { return l.Snapshot().TotalDb }

// ReductionDb returns the current corrective attenuation.
func (l *Ledger) ReductionDb() float64 { return l.Snapshot().ReductionDb }

// IsAgrActive reports whether attenuation is currently applied.
func (l *Ledger) IsAgrActive() bool { return l.Snapshot().AgrActive }

// SafeMode reports the user preference.
func (l *Ledger) SafeMode() bool { return l.Snapshot().SafeMode }

// AdjustedLoudness applies the current reduction to a loudness target.
func (l *Ledger) AdjustedLoudness(requestedMillibels int) int {
	return l.Snapshot().AdjustedLoudness(requestedMillibels)
}

// AdjustedEqLevel applies half the current reduction to a band boost.
func (l *Ledger) AdjustedEqLevel(requestedMillibels int) int {
	return l.Snapshot().AdjustedEqLevel(requestedMillibels)
}

// AdjustedBassBoost scales a bass strength by the reduction saturation.
func (l *Ledger) AdjustedBassBoost(requestedLevel int) int {
	return l.Snapshot().AdjustedBassBoost(requestedLevel)
}

// IsGainSafe reports whether additionalDb still fits in the budget.
func (l *Ledger) IsGainSafe(additionalDb float64) bool {
	return l.Snapshot().IsGainSafe(additionalDb)
}

// HeadroomDb returns max(0, budget - total).
func (l *Ledger) HeadroomDb() float64 {
	return l.Snapshot().HeadroomDb()
}
