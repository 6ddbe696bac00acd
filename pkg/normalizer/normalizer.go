// Package normalizer turns one or more audio sources into a single stream
// of canonical PCM frames (16 kHz, 16-bit signed, mono).
//
// Live sources deliver device-format buffers from audio callbacks; each
// buffer is converted to the canonical format before emission. In dual
// source mode the two converted streams meet at a mix point that averages
// overlapping samples. File sources run on their own goroutine and emit as
// fast as the pipeline consumes, with no real-time pacing.
//
// A session's frames are consumed through [Stream.Next]; the stream ends
// with iterator.Done exactly once, on manual stop or file exhaustion.
package normalizer

import (
	"fmt"
	"log"
	"sync"

	"github.com/voxtail/voxtail/pkg/audio/pcm"
	"github.com/voxtail/voxtail/pkg/audio/resampler"
	"github.com/voxtail/voxtail/pkg/capture"
)

// defaultQueue is the frame queue depth for live sources. At ~100 ms per
// device buffer this is well over an ordinary scheduling hiccup; a full
// queue means the consumer is wedged and frames are dropped with a log
// line rather than blocking the device callback.
const defaultQueue = 256

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithOpener sets the capture source opener used for live modes.
func WithOpener(o capture.Opener) Option {
	return func(n *Normalizer) { n.opener = o }
}

// WithLogger sets the logger for per-buffer conversion failures and drops.
func WithLogger(l *log.Logger) Option {
	return func(n *Normalizer) { n.logger = l }
}

// WithQueueSize overrides the live-source frame queue depth.
func WithQueueSize(size int) Option {
	return func(n *Normalizer) {
		if size > 0 {
			n.queue = size
		}
	}
}

// Normalizer owns audio source acquisition and canonical-format conversion
// for one session at a time.
type Normalizer struct {
	opener capture.Opener
	logger *log.Logger
	queue  int

	mu      sync.Mutex
	session *activeSession
}

// activeSession is the state of one Start..Stop span.
type activeSession struct {
	stream  *Stream
	sources []capture.Source
	mix     *mixPoint
	done    chan struct{} // closed when the file reader goroutine exits
}

// New creates a Normalizer. Live modes require WithOpener; file mode works
// without one.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		logger: log.Default(),
		queue:  defaultQueue,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Start begins capture in the given mode and returns the session's frame
// stream. path is only used in ModeFile. Device acquisition failure is
// fatal: no stream is created and no partial capture state remains.
func (n *Normalizer) Start(mode Mode, path string) (*Stream, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.session != nil {
		return nil, fmt.Errorf("normalizer: already started")
	}

	switch mode {
	case ModeMicrophone, ModeSystemLoopback:
		return n.startSingle(mode)
	case ModeBoth:
		return n.startBoth()
	case ModeFile:
		return n.startFile(path)
	}
	return nil, fmt.Errorf("normalizer: unknown mode %v", mode)
}

// Stop ends the current session, if any. Idempotent. The stream observes
// its terminal notification at most once regardless of how many times
// Stop runs or whether the session already ended at end-of-file.
func (n *Normalizer) Stop() {
	n.mu.Lock()
	s := n.session
	n.session = nil
	n.mu.Unlock()
	if s == nil {
		return
	}

	for _, src := range s.sources {
		if err := src.Stop(); err != nil {
			n.logger.Printf("normalizer: stop source: %v", err)
		}
	}
	if s.mix != nil {
		s.mix.flush()
	}
	s.stream.abort()
	if s.done != nil {
		<-s.done
	}
}

func (n *Normalizer) startSingle(mode Mode) (*Stream, error) {
	src, err := n.openSource(mode == ModeSystemLoopback)
	if err != nil {
		return nil, err
	}

	stream := newStream(n.queue)
	conv, err := converterFor(src)
	if err != nil {
		src.Stop()
		return nil, err
	}

	deliver := func(samples []int16) {
		frame, err := conv.Convert(samples)
		if err != nil {
			n.logger.Printf("normalizer: convert %s buffer: %v (dropped)", mode, err)
			return
		}
		if !stream.push(frame) {
			n.logger.Printf("normalizer: frame queue full, dropping %v of audio", frame.Duration())
		}
	}
	if err := src.Start(deliver); err != nil {
		src.Stop()
		return nil, err
	}

	n.session = &activeSession{stream: stream, sources: []capture.Source{src}}
	return stream, nil
}

func (n *Normalizer) startBoth() (*Stream, error) {
	mic, err := n.openSource(false)
	if err != nil {
		return nil, err
	}
	loop, err := n.openSource(true)
	if err != nil {
		mic.Stop()
		return nil, err
	}

	stream := newStream(n.queue)
	mix := newMixPoint(func(samples []int16) {
		if !stream.push(pcm.FromInt16(samples)) {
			n.logger.Printf("normalizer: frame queue full, dropping mixed buffer")
		}
	})

	start := func(src capture.Source, idx int, name string) error {
		conv, err := converterFor(src)
		if err != nil {
			return err
		}
		return src.Start(func(samples []int16) {
			frame, err := conv.Convert(samples)
			if err != nil {
				n.logger.Printf("normalizer: convert %s buffer: %v (dropped)", name, err)
				return
			}
			if len(frame) > 0 {
				mix.ingest(idx, frame.Int16())
			}
		})
	}

	if err := start(mic, mixMic, "microphone"); err != nil {
		mic.Stop()
		loop.Stop()
		return nil, err
	}
	if err := start(loop, mixLoopback, "loopback"); err != nil {
		mic.Stop()
		loop.Stop()
		return nil, err
	}

	n.session = &activeSession{
		stream:  stream,
		sources: []capture.Source{mic, loop},
		mix:     mix,
	}
	return stream, nil
}

func (n *Normalizer) startFile(path string) (*Stream, error) {
	if path == "" {
		return nil, fmt.Errorf("normalizer: file mode requires a path")
	}
	src, err := openFileSource(path)
	if err != nil {
		return nil, err
	}
	conv, err := resampler.NewConverter(src.format())
	if err != nil {
		src.close()
		return nil, err
	}

	stream := newStream(n.queue)
	done := make(chan struct{})
	go n.readFile(src, conv, stream, done)

	n.session = &activeSession{stream: stream, done: done}
	return stream, nil
}

// readFile pumps the file through the converter on its own goroutine, so
// file I/O never blocks a device callback context.
func (n *Normalizer) readFile(src fileSource, conv *resampler.Converter, stream *Stream, done chan struct{}) {
	defer close(done)
	defer src.close()
	for {
		block, err := src.readBlock()
		if len(block) > 0 {
			frame, cerr := conv.ConvertUnit(block)
			if cerr != nil {
				n.logger.Printf("normalizer: convert file block: %v (dropped)", cerr)
			} else if !stream.send(frame) {
				return // aborted by Stop
			}
		}
		if err != nil {
			if !isEOF(err) {
				n.logger.Printf("normalizer: read file: %v", err)
			}
			stream.finish()
			return
		}
	}
}

func (n *Normalizer) openSource(loopback bool) (capture.Source, error) {
	if n.opener == nil {
		return nil, fmt.Errorf("normalizer: no capture opener configured")
	}
	if loopback {
		return n.opener.OpenLoopback()
	}
	return n.opener.OpenMicrophone()
}

func converterFor(src capture.Source) (*resampler.Converter, error) {
	f := src.Format()
	return resampler.NewConverter(resampler.Format{
		SampleRate: f.SampleRate,
		Stereo:     f.Channels >= 2,
	})
}
