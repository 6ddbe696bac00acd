// Package recognizer adapts a stateful streaming speech engine into typed
// partial-text and finalized-segment events.
//
// The adapter is polymorphic over the engine's JSON output records: a text
// field is the only requirement; word-timing arrays and speaker embedding
// vectors are picked up when present. Per-record parse failures are logged
// and treated as "no result this call"; a bad record never ends a session.
//
// Event ordering for a continuous input stream: partial events supersede
// each other in issuance order, and the finalized segment for an utterance
// is always issued after all of that utterance's partials.
package recognizer

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/voxtail/voxtail/pkg/audio/pcm"
)

// ErrNotInitialized is returned when the adapter is used before a
// successful Initialize.
var ErrNotInitialized = errors.New("recognizer: not initialized")

// Listener receives recognition events. Callbacks are invoked from the
// goroutine driving ProcessAudio/Finalize, one at a time.
type Listener interface {
	// OnPartial reports the most recent in-progress text of the current
	// utterance. Each call supersedes the previous one.
	OnPartial(text string)

	// OnSegment reports a finalized utterance.
	OnSegment(seg Segment)
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger for per-record parse failures.
func WithLogger(l *log.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// Adapter wraps a streaming engine behind the pipeline's event contract.
type Adapter struct {
	factory Factory
	logger  *log.Logger

	mu       sync.Mutex
	engine   Engine
	listener Listener
}

// New creates an Adapter that builds its engine with factory on
// Initialize.
func New(factory Factory, opts ...Option) *Adapter {
	a := &Adapter{
		factory: factory,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Initialize loads the recognition model (and optionally a speaker
// embedding model) and prepares the engine. A missing or corrupt model
// surfaces here, synchronously; the adapter stays uninitialized. Calling
// Initialize again replaces the previous engine.
func (a *Adapter) Initialize(modelPath, speakerModelPath string) error {
	engine, err := a.factory(modelPath, speakerModelPath)
	if err != nil {
		return fmt.Errorf("recognizer: initialize: %w", err)
	}

	a.mu.Lock()
	old := a.engine
	a.engine = engine
	a.mu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// Initialized reports whether a model has been successfully loaded.
func (a *Adapter) Initialized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine != nil
}

// SetListener sets the event listener for subsequent audio.
func (a *Adapter) SetListener(l Listener) {
	a.mu.Lock()
	a.listener = l
	a.mu.Unlock()
}

// ProcessAudio feeds one canonical frame to the engine and emits the
// resulting event, if any.
func (a *Adapter) ProcessAudio(frame pcm.Frame) {
	a.mu.Lock()
	engine, listener := a.engine, a.listener
	a.mu.Unlock()
	if engine == nil {
		a.logger.Printf("recognizer: dropping frame: %v", ErrNotInitialized)
		return
	}

	final, err := engine.AcceptWaveform(frame)
	if err != nil {
		a.logger.Printf("recognizer: accept waveform: %v", err)
		return
	}

	if final {
		a.emitSegment(engine.Result(), listener)
		return
	}
	a.emitPartial(engine.PartialResult(), listener)
}

// Finalize forces emission of the in-flight utterance, if it holds any
// text. Used once when a session stops.
func (a *Adapter) Finalize() {
	a.mu.Lock()
	engine, listener := a.engine, a.listener
	a.mu.Unlock()
	if engine == nil {
		return
	}
	a.emitSegment(engine.FinalResult(), listener)
}

// Reset clears engine utterance state so the adapter can be reused for a
// new session without reloading models.
func (a *Adapter) Reset() {
	a.mu.Lock()
	engine := a.engine
	a.mu.Unlock()
	if engine != nil {
		engine.Reset()
	}
}

// Close releases the engine.
func (a *Adapter) Close() error {
	a.mu.Lock()
	engine := a.engine
	a.engine = nil
	a.mu.Unlock()
	if engine != nil {
		return engine.Close()
	}
	return nil
}

func (a *Adapter) emitPartial(raw []byte, listener Listener) {
	rec, err := parseRecord(raw)
	if err != nil {
		a.logger.Printf("recognizer: parse partial record: %v", err)
		return
	}
	text, ok := rec.partialText()
	if !ok || listener == nil {
		return
	}
	listener.OnPartial(text)
}

func (a *Adapter) emitSegment(raw []byte, listener Listener) {
	rec, err := parseRecord(raw)
	if err != nil {
		a.logger.Printf("recognizer: parse result record: %v", err)
		return
	}
	seg, ok := rec.segment()
	if !ok || listener == nil {
		return
	}
	listener.OnSegment(seg)
}
