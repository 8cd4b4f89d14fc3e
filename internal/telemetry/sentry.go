// Package telemetry reports errors to Sentry. Errors built with the
// internal errors package reach Sentry either directly through the
// registered reporter or asynchronously through the event bus Worker.
package telemetry

import (
	"runtime"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/gainguard/internal/errors"
	"github.com/tphakala/gainguard/internal/logger"
	"github.com/tphakala/gainguard/internal/privacy"
)

// Config holds Sentry client settings.
type Config struct {
	DSN         string
	Release     string
	Environment string
	Debug       bool
}

func getLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}

// Init configures the Sentry client and registers the Sentry reporter with
// the errors package.
func Init(cfg Config) error {
	if cfg.DSN == "" {
		return errors.Newf("sentry DSN is empty").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if cfg.Environment == "" {
		cfg.Environment = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Release:          cfg.Release,
		Environment:      cfg.Environment,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
		BeforeSend:       scrubEvent,
	})
	if err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry_init").
			Build()
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetTag("go_version", runtime.Version())
	})

	errors.SetPrivacyScrubber(privacy.ScrubMessage)
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	getLogger().Info("sentry telemetry enabled",
		logger.String("release", cfg.Release),
		logger.String("environment", cfg.Environment))
	return nil
}

// scrubEvent removes host identifying data before an event leaves the process.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.ServerName = ""
	event.User = sentry.User{}
	if event.Request != nil {
		event.Request.Cookies = ""
		event.Request.Headers = nil
		event.Request.QueryString = ""
	}
	return event
}

// Flush waits up to timeout for queued events to be sent.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// Shutdown detaches the reporter and the event bus route, then flushes
// pending events.
func Shutdown(timeout time.Duration) {
	errors.SetEventPublisher(nil)
	errors.SetTelemetryReporter(nil)
	if !sentry.Flush(timeout) {
		getLogger().Warn("sentry flush timed out", logger.Duration("timeout", timeout))
	}
}
