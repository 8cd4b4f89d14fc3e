package controller

import (
	"math"

	"github.com/tphakala/gainguard/internal/logger"
)

// SilenceDb is the peak level reported before any measurement and for
// non-finite input.
const SilenceDb = -120.0

// maxPeakDb caps +Inf reports so the level stays representable.
const maxPeakDb = 60.0

// UpdatePeakLevel records a measured output peak in dBFS. It runs on the
// audio path: it takes no lock and never calls a provider. A peak above the
// effective ceiling counts as a clip.
func (c *Controller) UpdatePeakLevel(dbfs float64) {
	if math.IsNaN(dbfs) || math.IsInf(dbfs, -1) {
		dbfs = SilenceDb
	}
	if math.IsInf(dbfs, 1) {
		dbfs = maxPeakDb
	}
	c.peakBits.Store(math.Float64bits(dbfs))

	clipped := dbfs > math.Float64frombits(c.ceilingBits.Load())
	if clipped {
		if n := c.clips.Add(1); n == 1 {
			c.logger.Debug("output clipped", logger.Float64("peak_dbfs", dbfs))
		}
	}
	if c.metrics != nil {
		c.metrics.ObservePeak(dbfs, clipped)
	}
}

// PeakLevel returns the last reported peak in dBFS.
func (c *Controller) PeakLevel() float64 {
	return math.Float64frombits(c.peakBits.Load())
}

// ClipCount returns the number of peaks above the ceiling since the last
// reset.
func (c *Controller) ClipCount() uint64 {
	return c.clips.Load()
}

// ResetClipCount zeroes the clip counter.
func (c *Controller) ResetClipCount() {
	c.clips.Store(0)
}
