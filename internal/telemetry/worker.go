package telemetry

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/tphakala/gainguard/internal/errors"
	"github.com/tphakala/gainguard/internal/events"
	"github.com/tphakala/gainguard/internal/logger"
)

// WorkerConfig holds configuration for the telemetry worker
type WorkerConfig struct {
	// CircuitBreaker settings
	FailureThreshold  int
	RecoveryTimeout   time.Duration
	HalfOpenMaxEvents int

	// Rate limiting
	EventsPerMinute int
	Burst           int
}

// DefaultWorkerConfig returns default configuration
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		FailureThreshold:  10,
		RecoveryTimeout:   60 * time.Second,
		HalfOpenMaxEvents: 5,
		EventsPerMinute:   100,
		Burst:             10,
	}
}

// Worker is an event bus consumer that forwards error events to a
// telemetry reporter. Validation and not-found errors are user input
// problems and are never reported.
type Worker struct {
	reporter errors.TelemetryReporter
	breaker  *CircuitBreaker
	limiter  *rate.Limiter
	logger   logger.Logger

	processed atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// NewWorker creates a worker reporting through reporter.
func NewWorker(reporter errors.TelemetryReporter, cfg WorkerConfig) *Worker {
	perMinute := max(cfg.EventsPerMinute, 1)
	return &Worker{
		reporter: reporter,
		breaker:  NewCircuitBreaker(cfg.FailureThreshold, cfg.RecoveryTimeout, cfg.HalfOpenMaxEvents),
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), max(cfg.Burst, 1)),
		logger:   getLogger(),
	}
}

// Name returns the consumer name
func (w *Worker) Name() string {
	return "telemetry"
}

// ProcessEvent reports error events and ignores everything else.
func (w *Worker) ProcessEvent(event events.Event) error {
	env, ok := event.(events.ErrorEnvelope)
	if !ok || w.reporter == nil || !w.reporter.IsEnabled() {
		return nil
	}
	ev := env.ErrorEvent
	if ev.IsReported() || !reportable(ev.GetCategory()) {
		return nil
	}

	if !w.breaker.Allow() {
		w.dropped.Add(1)
		w.logger.Debug("circuit breaker open, dropping event",
			logger.String("component", ev.GetComponent()),
			logger.String("category", ev.GetCategory()))
		return nil
	}
	if !w.limiter.Allow() {
		w.dropped.Add(1)
		w.logger.Debug("rate limit exceeded, dropping event",
			logger.String("component", ev.GetComponent()),
			logger.String("category", ev.GetCategory()))
		return nil
	}

	if err := w.report(ev); err != nil {
		w.failed.Add(1)
		w.breaker.RecordFailure()
		return err
	}
	w.processed.Add(1)
	w.breaker.RecordSuccess()
	return nil
}

func reportable(category string) bool {
	switch errors.ErrorCategory(category) {
	case errors.CategoryValidation, errors.CategoryNotFound, errors.CategoryCancellation:
		return false
	default:
		return true
	}
}

// report hands ev to the reporter. A panicking reporter counts as a
// failure.
func (w *Worker) report(ev events.ErrorEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("telemetry reporter panicked: %v", r)
		}
	}()

	ee, ok := ev.(*errors.EnhancedError)
	if !ok {
		w.logger.Debug("unsupported error event type, not reported",
			logger.String("type", fmt.Sprintf("%T", ev)))
		return nil
	}
	w.reporter.ReportError(ee)
	ev.MarkReported()
	return nil
}

// WorkerStats contains runtime statistics
type WorkerStats struct {
	EventsProcessed uint64
	EventsDropped   uint64
	EventsFailed    uint64
	CircuitState    string
}

// GetStats returns worker statistics
func (w *Worker) GetStats() WorkerStats {
	return WorkerStats{
		EventsProcessed: w.processed.Load(),
		EventsDropped:   w.dropped.Load(),
		EventsFailed:    w.failed.Load(),
		CircuitState:    w.breaker.State(),
	}
}

// Circuit breaker states.
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half-open"
)

// CircuitBreaker stops reporting after repeated failures and tries again
// after a recovery timeout.
type CircuitBreaker struct {
	mu              sync.Mutex
	state           string
	failures        int
	successCount    int
	lastFailureTime time.Time

	threshold   int
	recovery    time.Duration
	halfOpenMax int
	now         func() time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(threshold int, recovery time.Duration, halfOpenMax int) *CircuitBreaker {
	return &CircuitBreaker{
		state:       StateClosed,
		threshold:   max(threshold, 1),
		recovery:    recovery,
		halfOpenMax: max(halfOpenMax, 1),
		now:         time.Now,
	}
}

// Allow checks if the circuit allows the operation
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.lastFailureTime) > cb.recovery {
			cb.state = StateHalfOpen
			cb.successCount = 0
			return true
		}
		return false
	case StateHalfOpen:
		return cb.successCount < cb.halfOpenMax
	default:
		return true
	}
}

// RecordSuccess records a successful operation
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.successCount++
		if cb.successCount >= cb.halfOpenMax {
			cb.state = StateClosed
		}
	}
}

// RecordFailure records a failed operation
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = cb.now()
	if cb.failures >= cb.threshold || cb.state == StateHalfOpen {
		cb.state = StateOpen
	}
}

// State returns the current circuit breaker state
func (cb *CircuitBreaker) State() string {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
