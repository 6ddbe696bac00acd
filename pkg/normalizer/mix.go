package normalizer

import (
	"sync"

	"github.com/voxtail/voxtail/pkg/audio/pcm"
)

// Source indices at the mix point.
const (
	mixMic = iota
	mixLoopback
	mixSources
)

// mixPoint pairs buffers from two concurrently-arriving sources. It holds
// at most one pending buffer per source; both callbacks share one mutex
// since they race into a common state.
//
// Pairing is by availability, not timestamp: when a buffer arrives and the
// other source already has one pending, the two are mixed and emitted.
// When the same source fires twice in a row, the older buffer is emitted
// alone rather than waiting for a partner that may never come. No backlog
// is kept across emissions.
type mixPoint struct {
	emit func([]int16)

	mu      sync.Mutex
	pending [mixSources][]int16
}

func newMixPoint(emit func([]int16)) *mixPoint {
	return &mixPoint{emit: emit}
}

// ingest accepts one canonical-format buffer from the given source. The
// buffer must be owned by the mix point after the call.
func (m *mixPoint) ingest(src int, samples []int16) {
	other := 1 - src

	m.mu.Lock()
	if partner := m.pending[other]; partner != nil {
		// Integer mean per sample, truncated to the shorter buffer.
		mixed := pcm.MixAverage(samples, partner)
		m.pending[src] = nil
		m.pending[other] = nil
		m.mu.Unlock()
		m.emit(mixed)
		return
	}

	solo := m.pending[src]
	m.pending[src] = samples
	m.mu.Unlock()

	if solo != nil {
		m.emit(solo)
	}
}

// flush drops any pending buffers. Called on stop; a half pair is never
// emitted retroactively.
func (m *mixPoint) flush() {
	m.mu.Lock()
	m.pending[mixMic] = nil
	m.pending[mixLoopback] = nil
	m.mu.Unlock()
}
