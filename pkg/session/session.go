// Package session orchestrates a transcription run: it pulls canonical
// audio from the normalizer, feeds it to the recognizer, attributes
// finalized segments to speakers and keeps the resulting timeline.
package session

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"

	"github.com/voxtail/voxtail/pkg/normalizer"
	"github.com/voxtail/voxtail/pkg/recognizer"
	"github.com/voxtail/voxtail/pkg/speaker"
	"github.com/voxtail/voxtail/pkg/transcript"
)

// Event topics published on the orchestrator's bus.
const (
	TopicPartial = "session:partial"
	TopicSegment = "session:segment"
	TopicState   = "session:state"
	TopicError   = "session:error"
)

// fallbackLabel attributes segments when the engine produces no
// voice embedding, e.g. when no speaker model is loaded.
const fallbackLabel = "Speaker 1"

// noTimingWindow is the span assumed for a finalized segment whose
// words carry no timestamps.
const noTimingWindow = 2 * time.Second

type Option func(*Orchestrator)

func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func WithBus(bus EventBus.Bus) Option {
	return func(o *Orchestrator) { o.bus = bus }
}

// Orchestrator drives one transcription session at a time. It is safe
// for concurrent use.
type Orchestrator struct {
	log  *log.Logger
	bus  EventBus.Bus
	norm *normalizer.Normalizer
	rec  *recognizer.Adapter
	reg  *speaker.Registry

	mu       sync.Mutex
	cur      *run
	running  bool
	started  time.Time
	frozen   time.Duration
	segments []transcript.Segment
}

// run is the per-Start state. Stop consumes it exactly once.
type run struct {
	id       string
	wg       sync.WaitGroup
	stopOnce sync.Once
	closed   atomic.Bool
}

func New(norm *normalizer.Normalizer, rec *recognizer.Adapter, reg *speaker.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		log:  log.New(os.Stderr, "session: ", log.LstdFlags),
		bus:  EventBus.New(),
		norm: norm,
		rec:  rec,
		reg:  reg,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Initialize loads the recognition models. It may be called before or
// between sessions but not during one.
func (o *Orchestrator) Initialize(modelPath, speakerModelPath string) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return fmt.Errorf("session: cannot initialize while running")
	}
	o.mu.Unlock()
	return o.rec.Initialize(modelPath, speakerModelPath)
}

// Start begins a new session reading from the given source. A running
// session is stopped first. The previous timeline and the speaker
// registry are cleared.
func (o *Orchestrator) Start(mode normalizer.Mode, path string) error {
	o.Stop()

	if !o.rec.Initialized() {
		o.bus.Publish(TopicError, recognizer.ErrNotInitialized)
		return recognizer.ErrNotInitialized
	}

	r := &run{id: uuid.NewString()}

	o.reg.Reset()
	o.rec.Reset()
	o.rec.SetListener(&listener{o: o, r: r})

	// Acquire sources before publishing any state: a device failure
	// leaves the orchestrator Idle with nothing to undo.
	stream, err := o.norm.Start(mode, path)
	if err != nil {
		r.closed.Store(true)
		o.bus.Publish(TopicError, err)
		return err
	}

	o.mu.Lock()
	o.cur = r
	o.running = true
	o.started = time.Now()
	o.frozen = 0
	o.segments = nil
	o.mu.Unlock()

	o.log.Printf("session %s started (%s)", r.id, mode)
	o.bus.Publish(TopicState, true)

	r.wg.Add(1)
	go func() {
		o.pump(stream)
		r.wg.Done()
		// A source that ran dry ends the session on its own.
		o.stop(r)
	}()
	return nil
}

// Stop ends the current session. It flushes the recognizer so a
// trailing utterance still lands on the timeline, then freezes the
// clock. Calling Stop when idle is a no-op.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	r := o.cur
	o.mu.Unlock()
	if r != nil {
		o.stop(r)
	}
}

func (o *Orchestrator) stop(r *run) {
	r.stopOnce.Do(func() {
		o.norm.Stop()
		r.wg.Wait()
		o.rec.Finalize()
		r.closed.Store(true)

		o.mu.Lock()
		if o.cur == r {
			o.frozen = time.Since(o.started)
			o.running = false
		}
		o.mu.Unlock()

		o.log.Printf("session %s stopped after %s", r.id, o.Elapsed().Round(time.Millisecond))
		o.bus.Publish(TopicState, false)
	})
}

func (o *Orchestrator) pump(stream *normalizer.Stream) {
	for {
		frame, err := stream.Next()
		if err != nil {
			return
		}
		o.rec.ProcessAudio(frame)
	}
}

// Running reports whether a session is in progress.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// ID returns the identifier of the current or most recent session.
func (o *Orchestrator) ID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cur == nil {
		return ""
	}
	return o.cur.id
}

// Elapsed returns the session clock: time since Start while running,
// the final duration once stopped.
func (o *Orchestrator) Elapsed() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.elapsedLocked()
}

func (o *Orchestrator) elapsedLocked() time.Duration {
	if o.running {
		return time.Since(o.started)
	}
	return o.frozen
}

// Segments returns a copy of the timeline accumulated so far.
func (o *Orchestrator) Segments() []transcript.Segment {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]transcript.Segment, len(o.segments))
	copy(out, o.segments)
	return out
}

// Export renders the timeline to w in the given format.
func (o *Orchestrator) Export(w io.Writer, f transcript.Format, title string) error {
	o.mu.Lock()
	segs := make([]transcript.Segment, len(o.segments))
	copy(segs, o.segments)
	meta := transcript.Meta{
		Title:       title,
		GeneratedAt: time.Now(),
		Elapsed:     o.elapsedLocked(),
		Speakers:    distinctSpeakers(segs),
	}
	o.mu.Unlock()
	return transcript.Write(w, f, meta, segs)
}

func distinctSpeakers(segs []transcript.Segment) int {
	seen := make(map[string]struct{})
	for _, s := range segs {
		seen[s.Speaker] = struct{}{}
	}
	return len(seen)
}

// Subscription helpers. Handlers run synchronously on the publishing
// goroutine and must not block.

func (o *Orchestrator) OnPartial(fn func(text string)) error {
	return o.bus.Subscribe(TopicPartial, fn)
}

func (o *Orchestrator) OnSegment(fn func(seg transcript.Segment)) error {
	return o.bus.Subscribe(TopicSegment, fn)
}

func (o *Orchestrator) OnStateChange(fn func(running bool)) error {
	return o.bus.Subscribe(TopicState, fn)
}

func (o *Orchestrator) OnError(fn func(err error)) error {
	return o.bus.Subscribe(TopicError, fn)
}

// listener receives recognizer callbacks for one run and drops
// anything arriving after that run closed.
type listener struct {
	o *Orchestrator
	r *run
}

func (l *listener) OnPartial(text string) {
	if l.r.closed.Load() {
		return
	}
	l.o.bus.Publish(TopicPartial, text)
}

func (l *listener) OnSegment(seg recognizer.Segment) {
	if l.r.closed.Load() {
		return
	}
	out := l.o.place(seg)
	l.o.bus.Publish(TopicSegment, out)
}

// place attributes a recognizer segment and appends it to the timeline.
func (o *Orchestrator) place(seg recognizer.Segment) transcript.Segment {
	label := fallbackLabel
	if len(seg.Embedding) > 0 {
		label = o.reg.Identify(seg.Embedding)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	start, end := seg.Start, seg.End
	if len(seg.Words) == 0 {
		// The engine finalized without per-word timestamps. Place the
		// segment in a short window ending now.
		el := o.elapsedLocked().Seconds()
		end = el
		start = el - noTimingWindow.Seconds()
		if start < 0 {
			start = 0
		}
	}

	out := transcript.Segment{
		Speaker: label,
		Text:    seg.Text,
		Start:   start,
		End:     end,
		Words:   make([]transcript.Word, len(seg.Words)),
	}
	for i, w := range seg.Words {
		out.Words[i] = transcript.Word{Word: w.Word, Start: w.Start, End: w.End, Conf: w.Conf}
	}
	o.segments = append(o.segments, out)
	return out
}
