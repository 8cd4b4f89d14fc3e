// Package metrics provides constants used across metric definitions.
package metrics

// Namespace prefixes every metric name.
const Namespace = "gainguard"

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart64B is the starting bucket for 64 byte histograms.
	BucketStart64B = 64.0
	// BucketPeakLinearStart is the lowest peak level bucket in dBFS.
	BucketPeakLinearStart = -60.0
	// BucketPeakLinearWidth is the width of each peak level bucket in dB.
	BucketPeakLinearWidth = 6.0
	// BucketPeakLinearCount covers -60 dBFS up to 0 dBFS.
	BucketPeakLinearCount = 11

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)
