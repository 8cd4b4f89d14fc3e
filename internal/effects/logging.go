package effects

import (
	"fmt"

	"github.com/tphakala/gainguard/internal/logger"
	"github.com/tphakala/gainguard/internal/params"
)

// NewLoggingProviders returns providers that log every forwarded value at
// info level and otherwise do nothing. It stands in for real effect
// engines when the controller runs headless.
func NewLoggingProviders(log logger.Logger, bands []params.EqualizerBand) Providers {
	if log == nil {
		log = logger.Global().Module("effects")
	}
	return sinkProviders(func(provider, method string, args ...any) error {
		log.Info("effect parameter forwarded",
			logger.String("provider", provider),
			logger.String("method", method),
			logger.String("args", fmt.Sprint(args...)))
		return nil
	}, func() []params.EqualizerBand { return bands })
}
