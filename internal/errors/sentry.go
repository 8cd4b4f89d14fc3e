package errors

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/getsentry/sentry-go"
)

// SentryReporter sends errors to the globally initialized Sentry hub.
type SentryReporter struct {
	enabled bool
}

func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

func (sr *SentryReporter) IsEnabled() bool { return sr.enabled }

// ReportError captures ee once. Message and string context values are
// scrubbed; events are grouped by title, component and category.
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || ee.IsReported() {
		return
	}

	message := scrubMessageForPrivacy(fmt.Sprintf("[%s] %s", ee.Category, ee.Error()))
	component := ee.GetComponent()
	title := errorTitle(ee)
	level := sentryLevel(ee.Category)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(map[string]string{
			"component":  component,
			"category":   string(ee.Category),
			"error_type": fmt.Sprintf("%T", ee.Err),
		})
		for key, value := range ee.GetContext() {
			if s, ok := value.(string); ok {
				value = scrubMessageForPrivacy(s)
			}
			scope.SetContext(key, sentry.Context{"value": value})
		}
		scope.SetLevel(level)
		scope.SetFingerprint([]string{title, component, string(ee.Category)})

		event := sentry.NewEvent()
		event.Level = level
		event.Message = message
		event.Exception = []sentry.Exception{{Type: title, Value: message}}
		sentry.CaptureEvent(event)
	})

	ee.MarkReported()
}

// errorTitle builds e.g. "Controller effect-provider set_band_level".
func errorTitle(ee *EnhancedError) string {
	parts := make([]string, 0, 3)
	if component := ee.GetComponent(); component != "" && component != ComponentUnknown {
		parts = append(parts, capitalize(component))
	}
	parts = append(parts, string(ee.Category))
	if op, ok := ee.GetContext()["operation"].(string); ok && op != "" {
		parts = append(parts, op)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func sentryLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryEffectProvider, CategoryNetwork, CategoryTimeout,
		CategoryMQTTConnection, CategoryMQTTPublish,
		CategoryAudio, CategoryAudioSource, CategoryHTTP:
		return sentry.LevelWarning
	case CategoryCancellation:
		return sentry.LevelInfo
	default:
		return sentry.LevelError
	}
}

var (
	urlQueryRegex   = regexp.MustCompile(`(\w+://[^?\s]+)\?\S*`)
	credentialRegex = regexp.MustCompile(`(?i)(password|passwd|token|secret|api[_-]?key)[=:]\S+`)
	userInfoRegex   = regexp.MustCompile(`(\w+://)[^/@\s]+@`)
)

// basicURLScrub is the fallback scrubber: it redacts query strings, URL
// userinfo and key=value credentials.
func basicURLScrub(message string) string {
	scrubbed := urlQueryRegex.ReplaceAllString(message, "$1?[REDACTED]")
	scrubbed = userInfoRegex.ReplaceAllString(scrubbed, "$1[REDACTED]@")
	return credentialRegex.ReplaceAllString(scrubbed, "$1=[REDACTED]")
}
