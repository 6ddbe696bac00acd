package normalizer

import (
	"sync"

	"google.golang.org/api/iterator"

	"github.com/voxtail/voxtail/pkg/audio/pcm"
)

// Stream is the frame sequence of one capture session. A single consumer
// pulls frames with Next until it returns [iterator.Done], the terminal
// notification, delivered exactly once whether the session was stopped
// manually or ended naturally at end of file.
type Stream struct {
	frames chan pcm.Frame

	stop     chan struct{} // abort: pending frames are discarded
	eof      chan struct{} // graceful end: queued frames drain first
	stopOnce sync.Once
	eofOnce  sync.Once
}

func newStream(queue int) *Stream {
	return &Stream{
		frames: make(chan pcm.Frame, queue),
		stop:   make(chan struct{}),
		eof:    make(chan struct{}),
	}
}

// Next returns the next canonical frame, blocking until one is available.
// It returns iterator.Done when the stream has ended.
func (s *Stream) Next() (pcm.Frame, error) {
	select {
	case <-s.stop:
		return nil, iterator.Done
	default:
	}

	select {
	case f := <-s.frames:
		return f, nil
	case <-s.stop:
		return nil, iterator.Done
	case <-s.eof:
		// Natural end: drain frames queued before the end marker.
		select {
		case f := <-s.frames:
			return f, nil
		default:
			return nil, iterator.Done
		}
	}
}

// push queues a frame from a device callback. It never blocks: when the
// consumer has fallen a full queue behind, the frame is dropped and push
// reports false.
func (s *Stream) push(f pcm.Frame) bool {
	if len(f) == 0 {
		return true
	}
	select {
	case <-s.stop:
		return true // post-stop delivery, silently discarded
	default:
	}
	select {
	case s.frames <- f:
		return true
	default:
		return false
	}
}

// send queues a frame from the file reader, blocking until the consumer
// keeps up or the stream is aborted. Reports whether the stream is still
// live.
func (s *Stream) send(f pcm.Frame) bool {
	if len(f) == 0 {
		return true
	}
	select {
	case s.frames <- f:
		return true
	case <-s.stop:
		return false
	}
}

// abort ends the stream immediately, discarding queued frames.
func (s *Stream) abort() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// finish ends the stream gracefully after all queued frames are consumed.
func (s *Stream) finish() {
	s.eofOnce.Do(func() { close(s.eof) })
}
