package gain

import "math"

// ToDb converts a raw parameter value to the decibel estimate tracked for
// kind. Units of raw per kind:
//
//   - BassBoost: strength 0..1000, full scale is 12 dB
//   - EqualizerPeak: the highest band level in millibels
//   - Loudness: target gain in millibels
//   - CompressorMakeup: makeup gain in dB, clamped to [0, 24]
//   - Exciter: combined intensity drive×mix/100 in percent (0..100), full scale is 6 dB
//
// Negative results are reported as 0; cuts never add to the total.
func ToDb(kind SourceKind, raw float64) float64 {
	var db float64
	switch kind {
	case BassBoost:
		db = raw / 1000 * bassBoostFullScaleDb
	case EqualizerPeak, Loudness:
		db = raw / millibelsPerDb
	case CompressorMakeup:
		db = math.Min(math.Max(raw, 0), maxMakeupDb)
	case Exciter:
		db = raw / 100 * exciterFullScaleDb
	default:
		return 0
	}
	if db < 0 || math.IsNaN(db) {
		return 0
	}
	return db
}

// ExciterIntensity combines exciter drive and mix (both 0..100) into the raw
// value ToDb expects for Exciter.
func ExciterIntensity(drive, mix float64) float64 {
	return drive * mix / 100
}

// PeakMillibels returns the highest positive band level, 0 if every band is
// flat or cut.
func PeakMillibels(levels []int) int {
	peak := 0
	for _, l := range levels {
		if l > peak {
			peak = l
		}
	}
	return peak
}
