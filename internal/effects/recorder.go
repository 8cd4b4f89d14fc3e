package effects

import (
	"slices"
	"sync"

	"github.com/tphakala/gainguard/internal/params"
)

// Call is one forwarded provider call.
type Call struct {
	Provider string
	Method   string
	Args     []any
}

// Recorder records every call made through its Providers and can inject
// failures per provider method. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	calls  []Call
	fail   map[string]error
	panics map[string]any
	bands  []params.EqualizerBand
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		fail:   make(map[string]error),
		panics: make(map[string]any),
	}
}

func callKey(provider, method string) string {
	return provider + "." + method
}

// Providers returns a bundle whose calls are recorded by r.
func (r *Recorder) Providers() Providers {
	return sinkProviders(r.record, r.Bands)
}

func (r *Recorder) record(provider, method string, args ...any) error {
	key := callKey(provider, method)

	r.mu.Lock()
	r.calls = append(r.calls, Call{Provider: provider, Method: method, Args: args})
	err := r.fail[key]
	p, shouldPanic := r.panics[key]
	r.mu.Unlock()

	if shouldPanic {
		panic(p)
	}
	return err
}

// Fail makes provider.method return err from now on. A nil err clears it.
func (r *Recorder) Fail(provider, method string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.fail, callKey(provider, method))
		return
	}
	r.fail[callKey(provider, method)] = err
}

// Panic makes provider.method panic with v after recording the call.
func (r *Recorder) Panic(provider, method string, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panics[callKey(provider, method)] = v
}

// SetBands sets what the recorded equalizer reports as its layout.
func (r *Recorder) SetBands(bands []params.EqualizerBand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bands = slices.Clone(bands)
}

// Bands returns the configured equalizer layout.
func (r *Recorder) Bands() []params.EqualizerBand {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.bands)
}

// Calls returns a copy of every recorded call in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// CallsTo returns the recorded calls to provider.method in order.
func (r *Recorder) CallsTo(provider, method string) []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Call
	for _, c := range r.calls {
		if c.Provider == provider && c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Last returns the most recent call to provider.method.
func (r *Recorder) Last(provider, method string) (Call, bool) {
	calls := r.CallsTo(provider, method)
	if len(calls) == 0 {
		return Call{}, false
	}
	return calls[len(calls)-1], true
}

// Reset drops every recorded call. Injected failures are kept.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
