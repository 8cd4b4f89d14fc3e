// Package errors provides categorized errors with optional telemetry
// reporting. It passes through the standard library functions so callers
// import only this package.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"sync"
	"time"
)

// ErrorCategory groups errors for handling and reporting.
type ErrorCategory string

const (
	CategoryValidation     ErrorCategory = "validation"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryEffectProvider ErrorCategory = "effect-provider" // collaborator call failed
	CategoryState          ErrorCategory = "state"
	CategoryNotFound       ErrorCategory = "not-found"
	CategoryAudio          ErrorCategory = "audio-processing"
	CategoryAudioSource    ErrorCategory = "audio-source"
	CategoryNetwork        ErrorCategory = "network"
	CategoryHTTP           ErrorCategory = "http-request"
	CategoryMQTTConnection ErrorCategory = "mqtt-connection"
	CategoryMQTTPublish    ErrorCategory = "mqtt-publish"
	CategoryBroadcast      ErrorCategory = "broadcast"
	CategorySystem         ErrorCategory = "system-resource"
	CategoryGeneric        ErrorCategory = "generic"
	CategoryTimeout        ErrorCategory = "timeout"
	CategoryCancellation   ErrorCategory = "cancellation"
)

// ComponentUnknown is used when the component cannot be determined.
const ComponentUnknown = "unknown"

// EnhancedError wraps an error with its component, category and context.
type EnhancedError struct {
	Err       error
	Category  ErrorCategory
	Context   map[string]any
	Timestamp time.Time

	mu        sync.RWMutex
	component string
	reported  bool
}

func (ee *EnhancedError) Error() string {
	if ee.Err == nil {
		return string(ee.Category)
	}
	return ee.Err.Error()
}

func (ee *EnhancedError) Unwrap() error { return ee.Err }

// Is matches another EnhancedError by category, anything else through the
// wrapped error.
func (ee *EnhancedError) Is(target error) bool {
	if other, ok := target.(*EnhancedError); ok {
		return ee.Category == other.Category
	}
	return stderrors.Is(ee.Err, target)
}

// GetComponent returns the component that created the error.
func (ee *EnhancedError) GetComponent() string {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	return ee.component
}

// GetCategory returns the category as a string.
func (ee *EnhancedError) GetCategory() string { return string(ee.Category) }

// GetContext returns a copy of the context map.
func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	if ee.Context == nil {
		return nil
	}
	return maps.Clone(ee.Context)
}

func (ee *EnhancedError) GetTimestamp() time.Time { return ee.Timestamp }

func (ee *EnhancedError) GetError() error { return ee.Err }

// MarkReported records that telemetry has seen the error.
func (ee *EnhancedError) MarkReported() {
	ee.mu.Lock()
	defer ee.mu.Unlock()
	ee.reported = true
}

func (ee *EnhancedError) IsReported() bool {
	ee.mu.RLock()
	defer ee.mu.RUnlock()
	return ee.reported
}

// ErrorBuilder assembles an EnhancedError:
//
//	errors.New(err).
//		Component("controller").
//		Category(errors.CategoryEffectProvider).
//		ProviderContext("equalizer", "set_band_level").
//		Build()
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New starts a builder for err.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf starts a builder for a formatted error; %w wraps as with fmt.Errorf.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component names the package or subsystem. When unset it is derived from
// the caller.
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds one key to the error context.
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// ProviderContext records which effect provider call failed.
func (eb *ErrorBuilder) ProviderContext(provider, operation string) *ErrorBuilder {
	if provider != "" {
		eb.Context("provider", provider)
	}
	if operation != "" {
		eb.Context("operation", operation)
	}
	return eb
}

// Build creates the error and hands it to the reporting hooks, if any are
// installed. Without hooks no stack inspection happens.
func (eb *ErrorBuilder) Build() *EnhancedError {
	reporting := hasActiveReporting.Load()

	component := eb.component
	if component == "" {
		component = ComponentUnknown
		if reporting {
			component = callerComponent()
		}
	}
	category := eb.category
	if category == "" {
		category = CategoryGeneric
		if reporting {
			category = guessCategory(eb.err, component)
		}
	}

	ee := &EnhancedError{
		Err:       eb.err,
		Category:  category,
		Context:   eb.context,
		Timestamp: time.Now(),
		component: component,
	}
	if reporting {
		reportToTelemetry(ee)
	}
	return ee
}

const modulePrefix = "github.com/tphakala/gainguard/"

// componentNames maps package paths to component names where they differ
// from the last path element.
var componentNames = map[string]string{
	"internal/api/middleware": "api",
	"cmd/serve":               "main",
}

// callerComponent walks the stack to the first frame outside this package.
func callerComponent() string {
	pcs := make([]uintptr, 16)
	frames := runtime.CallersFrames(pcs[:runtime.Callers(3, pcs)])
	for {
		frame, more := frames.Next()
		if name := componentFor(frame.Function); name != "" {
			return name
		}
		if !more {
			return ComponentUnknown
		}
	}
}

// componentFor returns "" for frames that belong to this package or to code
// outside the module.
func componentFor(function string) string {
	rest, ok := strings.CutPrefix(function, modulePrefix)
	if !ok || strings.HasPrefix(rest, "internal/errors.") {
		return ""
	}
	pkg := rest
	if dot := strings.Index(rest[strings.LastIndex(rest, "/")+1:], "."); dot >= 0 {
		pkg = rest[:strings.LastIndex(rest, "/")+1+dot]
	}
	if name, ok := componentNames[pkg]; ok {
		return name
	}
	return pkg[strings.LastIndex(pkg, "/")+1:]
}

// guessCategory derives a category for errors built without one.
func guessCategory(err error, component string) ErrorCategory {
	if err == nil {
		return CategoryGeneric
	}
	var inner *EnhancedError
	if stderrors.As(err, &inner) && inner.Category != "" {
		return inner.Category
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unsupported"), strings.Contains(msg, "provider"):
		return CategoryEffectProvider
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "connection"):
		if component == "mqtt" {
			return CategoryMQTTConnection
		}
		return CategoryNetwork
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "out of range"):
		return CategoryValidation
	case strings.Contains(msg, "config"):
		return CategoryConfiguration
	}

	switch component {
	case "controller", "effects":
		return CategoryEffectProvider
	case "peakmeter":
		return CategoryAudioSource
	case "api":
		return CategoryHTTP
	case "mqtt":
		return CategoryMQTTPublish
	}
	return CategoryGeneric
}

// Standard library passthrough.

func NewStd(text string) error { return stderrors.New(text) }

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

func Unwrap(err error) error { return stderrors.Unwrap(err) }

func Join(errs ...error) error { return stderrors.Join(errs...) }

// IsCategory reports whether err wraps an EnhancedError of category.
func IsCategory(err error, category ErrorCategory) bool {
	var ee *EnhancedError
	return stderrors.As(err, &ee) && ee.Category == category
}

// IsNotFound reports whether err wraps a not-found EnhancedError.
func IsNotFound(err error) bool {
	return IsCategory(err, CategoryNotFound)
}
