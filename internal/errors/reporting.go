package errors

import (
	"sync"
	"sync/atomic"
)

// TelemetryReporter receives errors synchronously from Build when no event
// publisher is attached.
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// EventPublisher hands errors to the event bus without this package
// importing it.
type EventPublisher interface {
	TryPublish(event any) bool
}

// PrivacyScrubber rewrites a message before it leaves the process.
type PrivacyScrubber func(string) string

type hooks struct {
	reporter  TelemetryReporter
	publisher EventPublisher
	scrubber  PrivacyScrubber
}

var (
	hooksMu sync.RWMutex
	current hooks

	// hasActiveReporting gates the slow path in Build.
	hasActiveReporting atomic.Bool
)

// SetTelemetryReporter installs the synchronous reporter. nil removes it.
func SetTelemetryReporter(reporter TelemetryReporter) {
	updateHooks(func(h *hooks) { h.reporter = reporter })
}

// GetTelemetryReporter returns the installed reporter, or nil.
func GetTelemetryReporter() TelemetryReporter {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return current.reporter
}

// SetEventPublisher attaches the event bus. While attached it takes
// precedence over the reporter. nil detaches it.
func SetEventPublisher(publisher EventPublisher) {
	updateHooks(func(h *hooks) { h.publisher = publisher })
}

// SetPrivacyScrubber replaces the built-in scrubber used for telemetry
// messages.
func SetPrivacyScrubber(scrubber PrivacyScrubber) {
	updateHooks(func(h *hooks) { h.scrubber = scrubber })
}

func updateHooks(update func(*hooks)) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	update(&current)
	active := current.publisher != nil ||
		(current.reporter != nil && current.reporter.IsEnabled())
	hasActiveReporting.Store(active)
}

func snapshotHooks() hooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return current
}

// reportToTelemetry publishes ee on the bus, falling back to the reporter
// when the bus is absent or full.
func reportToTelemetry(ee *EnhancedError) {
	h := snapshotHooks()
	if h.publisher != nil && h.publisher.TryPublish(ee) {
		return
	}
	if h.reporter != nil && h.reporter.IsEnabled() {
		h.reporter.ReportError(ee)
	}
}

func scrubMessageForPrivacy(message string) string {
	if s := snapshotHooks().scrubber; s != nil {
		return s(message)
	}
	return basicURLScrub(message)
}
