package events

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tphakala/gainguard/internal/logger"
)

// EventBus fans events out to consumers on a fixed pool of workers.
// Publishing never blocks; a full buffer drops the event.
type EventBus struct {
	eventChan  chan Event
	bufferSize int
	workers    int

	mu        sync.Mutex // serializes registration and shutdown
	consumers atomic.Pointer[[]EventConsumer]
	running   atomic.Bool
	closed    bool
	stop      chan struct{}
	wg        sync.WaitGroup

	received  atomic.Uint64
	processed atomic.Uint64
	dropped   atomic.Uint64
	errors    atomic.Uint64
	fastPath  atomic.Uint64

	logger logger.Logger
}

// Config holds event bus configuration.
type Config struct {
	BufferSize int  `mapstructure:"buffer_size" yaml:"buffer_size"`
	Workers    int  `mapstructure:"workers" yaml:"workers"`
	Enabled    bool `mapstructure:"enabled" yaml:"enabled"`
}

func DefaultConfig() Config {
	return Config{
		BufferSize: 1000,
		Workers:    2,
		Enabled:    true,
	}
}

// New creates an event bus. Workers start with the first registered
// consumer. log may be nil.
func New(config Config, log logger.Logger) *EventBus {
	defaults := DefaultConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if log == nil {
		log = logger.Global().Module("events")
	}

	eb := &EventBus{
		eventChan:  make(chan Event, config.BufferSize),
		bufferSize: config.BufferSize,
		workers:    config.Workers,
		stop:       make(chan struct{}),
		logger:     log,
	}
	eb.consumers.Store(&[]EventConsumer{})
	return eb
}

// RegisterConsumer adds consumer. Names must be unique.
func (eb *EventBus) RegisterConsumer(consumer EventConsumer) error {
	if eb == nil {
		return fmt.Errorf("event bus not initialized")
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return fmt.Errorf("event bus is shut down")
	}

	current := *eb.consumers.Load()
	for _, existing := range current {
		if existing.Name() == consumer.Name() {
			return fmt.Errorf("consumer %s already registered", consumer.Name())
		}
	}
	next := append(current[:len(current):len(current)], consumer)
	eb.consumers.Store(&next)
	eb.logger.Info("registered event consumer", logger.String("consumer", consumer.Name()))

	if !eb.running.Load() {
		eb.wg.Add(eb.workers)
		for i := range eb.workers {
			go eb.worker(i)
		}
		eb.running.Store(true)
		eb.logger.Debug("event bus started",
			logger.Int("buffer_size", eb.bufferSize),
			logger.Int("workers", eb.workers))
	}
	return nil
}

func (eb *EventBus) HasConsumers() bool {
	if eb == nil {
		return false
	}
	return len(*eb.consumers.Load()) > 0
}

// TryPublish queues an Event or an ErrorEvent (wrapped in an ErrorEnvelope)
// and reports whether it was accepted. Other types are rejected.
func (eb *EventBus) TryPublish(event any) bool {
	if eb == nil {
		return false
	}
	if !eb.running.Load() {
		eb.fastPath.Add(1)
		return false
	}

	var ev Event
	switch e := event.(type) {
	case Event:
		ev = e
	case ErrorEvent:
		ev = ErrorEnvelope{e}
	default:
		return false
	}

	select {
	case eb.eventChan <- ev:
		eb.received.Add(1)
		return true
	default:
		eb.dropped.Add(1)
		eb.logger.Debug("event dropped, buffer full", logger.String("type", ev.EventType()))
		return false
	}
}

// worker dispatches events until stop is closed, then drains the buffer.
func (eb *EventBus) worker(id int) {
	defer eb.wg.Done()
	log := eb.logger.With(logger.Int("worker_id", id))

	for {
		select {
		case ev := <-eb.eventChan:
			eb.dispatch(ev, log)
		case <-eb.stop:
			for {
				select {
				case ev := <-eb.eventChan:
					eb.dispatch(ev, log)
				default:
					return
				}
			}
		}
	}
}

func (eb *EventBus) dispatch(ev Event, log logger.Logger) {
	for _, consumer := range *eb.consumers.Load() {
		if err := deliver(consumer, ev); err != nil {
			eb.errors.Add(1)
			log.Error("event consumer failed",
				logger.String("consumer", consumer.Name()),
				logger.String("type", ev.EventType()),
				logger.Error(err))
			continue
		}
		eb.processed.Add(1)
	}
}

// deliver converts a consumer panic into an error.
func deliver(consumer EventConsumer, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return consumer.ProcessEvent(ev)
}

// Shutdown stops accepting events and waits up to timeout for the workers
// to process what is already buffered.
func (eb *EventBus) Shutdown(timeout time.Duration) error {
	if eb == nil {
		return nil
	}

	eb.mu.Lock()
	if eb.closed {
		eb.mu.Unlock()
		return nil
	}
	eb.closed = true
	eb.running.Store(false)
	close(eb.stop)
	eb.mu.Unlock()

	done := make(chan struct{})
	go func() {
		eb.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		eb.logger.Debug("event bus stopped", logger.Uint64("dropped", eb.dropped.Load()))
		return nil
	case <-timer.C:
		return fmt.Errorf("event bus shutdown timed out after %v", timeout)
	}
}

func (eb *EventBus) GetStats() EventBusStats {
	if eb == nil {
		return EventBusStats{}
	}
	return EventBusStats{
		EventsReceived:  eb.received.Load(),
		EventsProcessed: eb.processed.Load(),
		EventsDropped:   eb.dropped.Load(),
		ConsumerErrors:  eb.errors.Load(),
		FastPathHits:    eb.fastPath.Load(),
	}
}
