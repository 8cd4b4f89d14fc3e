package controller

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/gainguard/internal/effects"
	"github.com/tphakala/gainguard/internal/errors"
	"github.com/tphakala/gainguard/internal/logger"
)

// maxFailureKeys bounds the dedup cache before expired keys are swept.
const maxFailureKeys = 256

// failureLog remembers which provider calls failed recently so repeated
// failures are logged once per TTL window.
type failureLog struct {
	seen *cache.Cache
}

func newFailureLog(ttl time.Duration) *failureLog {
	if ttl <= 0 {
		ttl = time.Minute
	}
	// No janitor goroutine; expired keys are swept on insert.
	return &failureLog{seen: cache.New(ttl, 0)}
}

// first reports whether key has not failed within the TTL window and marks
// it as seen.
func (f *failureLog) first(key string) bool {
	if f.seen.ItemCount() > maxFailureKeys {
		f.seen.DeleteExpired()
	}
	return f.seen.Add(key, struct{}{}, cache.DefaultExpiration) == nil
}

func (f *failureLog) forget() {
	f.seen.Flush()
}

// call runs one provider call. Unsupported results are silent no-ops, other
// errors and panics are reported and returned for bulk diagnostics.
func (c *Controller) call(provider, operation string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = c.reportFailure(provider, operation, fmt.Errorf("provider panic: %v", r))
		}
	}()

	err = fn()
	if err == nil {
		return nil
	}
	if effects.IsUnsupported(err) {
		c.logger.Debug("effect not supported, value recorded only",
			logger.String("provider", provider),
			logger.String("operation", operation))
		return nil
	}
	return c.reportFailure(provider, operation, err)
}

func (c *Controller) reportFailure(provider, operation string, err error) error {
	if c.metrics != nil {
		c.metrics.RecordProviderFailure(provider, operation)
	}

	wrapped := fmt.Errorf("%s.%s: %w", provider, operation, err)
	if !c.failures.first(provider + "." + operation) {
		c.logger.Debug("effect provider call failed again",
			logger.String("provider", provider),
			logger.String("operation", operation),
			logger.Error(err))
		return wrapped
	}

	ee := errors.New(wrapped).
		Component("controller").
		Category(errors.CategoryEffectProvider).
		ProviderContext(provider, operation).
		Build()

	c.logger.Warn("effect provider call failed, value recorded only",
		logger.String("provider", provider),
		logger.String("operation", operation),
		logger.Error(err))
	return ee
}
