package session

import (
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/voxtail/voxtail/pkg/capture"
	"github.com/voxtail/voxtail/pkg/normalizer"
	"github.com/voxtail/voxtail/pkg/recognizer"
	"github.com/voxtail/voxtail/pkg/speaker"
	"github.com/voxtail/voxtail/pkg/transcript"
)

// fakeEngine replays a script of recognition outcomes, one entry per
// AcceptWaveform call. Past the end it reports empty partials.
type fakeEngine struct {
	mu    sync.Mutex
	steps []engineStep
	pos   int
	cur   string
	flush string
}

type engineStep struct {
	final   bool
	payload string
}

func (e *fakeEngine) AcceptWaveform(buf []byte) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pos >= len(e.steps) {
		e.cur = `{"partial": ""}`
		return false, nil
	}
	s := e.steps[e.pos]
	e.pos++
	e.cur = s.payload
	return s.final, nil
}

func (e *fakeEngine) Result() []byte        { e.mu.Lock(); defer e.mu.Unlock(); return []byte(e.cur) }
func (e *fakeEngine) PartialResult() []byte { e.mu.Lock(); defer e.mu.Unlock(); return []byte(e.cur) }

func (e *fakeEngine) FinalResult() []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.flush == "" {
		return []byte(`{"text": ""}`)
	}
	return []byte(e.flush)
}

func (e *fakeEngine) Reset()       {}
func (e *fakeEngine) Close() error { return nil }

func factoryFor(e *fakeEngine) recognizer.Factory {
	return func(modelPath, speakerModelPath string) (recognizer.Engine, error) {
		return e, nil
	}
}

// idleSource is a capture device that never delivers audio.
type idleSource struct{}

func (idleSource) Start(func(samples []int16)) error { return nil }
func (idleSource) Stop() error                       { return nil }
func (idleSource) Format() capture.Format            { return capture.Format{SampleRate: 16000, Channels: 1} }

type fakeOpener struct {
	micErr error
}

func (f fakeOpener) OpenMicrophone() (capture.Source, error) {
	if f.micErr != nil {
		return nil, f.micErr
	}
	return idleSource{}, nil
}

func (f fakeOpener) OpenLoopback() (capture.Source, error) { return idleSource{}, nil }

// hookOpener runs a callback at acquisition time before failing or
// handing out an idle device.
type hookOpener struct {
	onOpen func()
	err    error
}

func (o *hookOpener) OpenMicrophone() (capture.Source, error) {
	if o.onOpen != nil {
		o.onOpen()
	}
	if o.err != nil {
		return nil, o.err
	}
	return idleSource{}, nil
}

func (o *hookOpener) OpenLoopback() (capture.Source, error) {
	return o.OpenMicrophone()
}

// rawFile writes n canonical silent samples to a temp .pcm file.
func rawFile(t *testing.T, n int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.pcm")
	if err := os.WriteFile(path, make([]byte, n*2), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

type harness struct {
	orch     *Orchestrator
	partials chan string
	segments chan transcript.Segment
	states   chan bool
	errs     chan error
}

func newHarness(t *testing.T, engine *fakeEngine, opener capture.Opener) *harness {
	t.Helper()
	norm := normalizer.New(normalizer.WithOpener(opener), normalizer.WithLogger(discard(t)))
	rec := recognizer.New(factoryFor(engine), recognizer.WithLogger(discard(t)))
	if err := rec.Initialize("model", "spk-model"); err != nil {
		t.Fatal(err)
	}
	h := &harness{
		orch:     New(norm, rec, speaker.NewRegistry(), WithLogger(discard(t))),
		partials: make(chan string, 64),
		segments: make(chan transcript.Segment, 64),
		states:   make(chan bool, 64),
		errs:     make(chan error, 64),
	}
	h.orch.OnPartial(func(text string) { h.partials <- text })
	h.orch.OnSegment(func(seg transcript.Segment) { h.segments <- seg })
	h.orch.OnStateChange(func(running bool) { h.states <- running })
	h.orch.OnError(func(err error) { h.errs <- err })
	return h
}

func discard(t *testing.T) *log.Logger {
	t.Helper()
	return log.New(io.Discard, "", 0)
}

func (h *harness) waitState(t *testing.T, want bool) {
	t.Helper()
	select {
	case got := <-h.states:
		if got != want {
			t.Fatalf("state change = %v, want %v", got, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for state %v", want)
	}
}

func TestStartRequiresInitialize(t *testing.T) {
	norm := normalizer.New(normalizer.WithOpener(fakeOpener{}))
	rec := recognizer.New(factoryFor(&fakeEngine{}))
	o := New(norm, rec, speaker.NewRegistry())

	var gotErr error
	o.OnError(func(err error) { gotErr = err })

	err := o.Start(normalizer.ModeMicrophone, "")
	if !errors.Is(err, recognizer.ErrNotInitialized) {
		t.Fatalf("Start err = %v, want ErrNotInitialized", err)
	}
	if !errors.Is(gotErr, recognizer.ErrNotInitialized) {
		t.Errorf("error event = %v", gotErr)
	}
	if o.Running() {
		t.Error("orchestrator running after failed Start")
	}
}

func TestStartDeviceFailure(t *testing.T) {
	opener := fakeOpener{micErr: errors.New("device busy")}
	h := newHarness(t, &fakeEngine{}, opener)

	err := h.orch.Start(normalizer.ModeMicrophone, "")
	if err == nil {
		t.Fatal("Start succeeded with failing device")
	}
	select {
	case <-h.errs:
	default:
		t.Error("no error event published")
	}
	if h.orch.Running() {
		t.Error("orchestrator running after device failure")
	}
}

func TestNotRunningDuringDeviceAcquisition(t *testing.T) {
	var orch *Orchestrator
	var sawRunning bool
	opener := &hookOpener{
		onOpen: func() { sawRunning = sawRunning || orch.Running() },
		err:    errors.New("device busy"),
	}

	norm := normalizer.New(normalizer.WithOpener(opener), normalizer.WithLogger(discard(t)))
	rec := recognizer.New(factoryFor(&fakeEngine{}), recognizer.WithLogger(discard(t)))
	if err := rec.Initialize("model", "spk-model"); err != nil {
		t.Fatal(err)
	}
	orch = New(norm, rec, speaker.NewRegistry(), WithLogger(discard(t)))

	if err := orch.Start(normalizer.ModeMicrophone, ""); err == nil {
		t.Fatal("Start succeeded with failing device")
	}
	if sawRunning {
		t.Error("Running reported true while sources were still being acquired")
	}
	if orch.Running() {
		t.Error("orchestrator running after device failure")
	}
}

func TestFileSessionTimeline(t *testing.T) {
	engine := &fakeEngine{steps: []engineStep{
		{final: false, payload: `{"partial": "hel"}`},
		{final: true, payload: `{"text": "hello world", "result": [` +
			`{"word": "hello", "start": 0.50, "end": 1.00, "conf": 1.0},` +
			`{"word": "world", "start": 1.10, "end": 1.50, "conf": 0.9}],` +
			`"spk": [1, 0, 0]}`},
	}}
	h := newHarness(t, engine, fakeOpener{})

	// One second of audio: four read blocks, so four engine calls.
	if err := h.orch.Start(normalizer.ModeFile, rawFile(t, 16000)); err != nil {
		t.Fatal(err)
	}
	h.waitState(t, true)
	h.waitState(t, false)

	select {
	case text := <-h.partials:
		if text != "hel" {
			t.Errorf("partial = %q", text)
		}
	default:
		t.Error("no partial event")
	}

	segs := h.orch.Segments()
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	seg := segs[0]
	if seg.Text != "hello world" {
		t.Errorf("text = %q", seg.Text)
	}
	if seg.Speaker != "Speaker 1" {
		t.Errorf("speaker = %q", seg.Speaker)
	}
	if seg.Start != 0.50 || seg.End != 1.50 {
		t.Errorf("span = [%v, %v], want [0.5, 1.5]", seg.Start, seg.End)
	}
	if len(seg.Words) != 2 || seg.Words[1].Word != "world" {
		t.Errorf("words = %+v", seg.Words)
	}
	if h.orch.Running() {
		t.Error("still running after file drained")
	}
}

func TestSegmentWithoutTimings(t *testing.T) {
	engine := &fakeEngine{steps: []engineStep{
		{final: true, payload: `{"text": "no timestamps here", "spk": [0, 1]}`},
	}}
	h := newHarness(t, engine, fakeOpener{})

	if err := h.orch.Start(normalizer.ModeFile, rawFile(t, 4096)); err != nil {
		t.Fatal(err)
	}
	h.waitState(t, true)
	h.waitState(t, false)

	segs := h.orch.Segments()
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	seg := segs[0]
	// With only moments on the clock the assumed window clamps to zero.
	if seg.Start != 0 {
		t.Errorf("start = %v, want 0", seg.Start)
	}
	if seg.End < seg.Start || seg.End > 5 {
		t.Errorf("end = %v", seg.End)
	}
}

func TestSilentFileProducesNoSegments(t *testing.T) {
	h := newHarness(t, &fakeEngine{}, fakeOpener{})

	if err := h.orch.Start(normalizer.ModeFile, rawFile(t, 32000)); err != nil {
		t.Fatal(err)
	}
	h.waitState(t, true)
	h.waitState(t, false)

	if n := len(h.orch.Segments()); n != 0 {
		t.Errorf("got %d segments, want 0", n)
	}
	// The session ended on its own; a later Stop must not fire another
	// state change.
	h.orch.Stop()
	select {
	case s := <-h.states:
		t.Errorf("unexpected state change %v after natural end", s)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStopFlushesTrailingUtterance(t *testing.T) {
	engine := &fakeEngine{flush: `{"text": "and that is all", "spk": [0.3, 0.7]}`}
	h := newHarness(t, engine, fakeOpener{})

	if err := h.orch.Start(normalizer.ModeMicrophone, ""); err != nil {
		t.Fatal(err)
	}
	h.waitState(t, true)
	h.orch.Stop()
	h.waitState(t, false)

	segs := h.orch.Segments()
	if len(segs) != 1 {
		t.Fatalf("got %d segments, want 1", len(segs))
	}
	if segs[0].Text != "and that is all" {
		t.Errorf("text = %q", segs[0].Text)
	}

	// Second Stop is a no-op.
	h.orch.Stop()
	if len(h.orch.Segments()) != 1 {
		t.Error("timeline changed by repeated Stop")
	}
}

func TestRestartClearsTimeline(t *testing.T) {
	engine := &fakeEngine{steps: []engineStep{
		{final: true, payload: `{"text": "first session", "spk": [1, 0]}`},
	}}
	h := newHarness(t, engine, fakeOpener{})

	if err := h.orch.Start(normalizer.ModeFile, rawFile(t, 4096)); err != nil {
		t.Fatal(err)
	}
	h.waitState(t, true)
	h.waitState(t, false)
	if len(h.orch.Segments()) != 1 {
		t.Fatalf("first session produced %d segments", len(h.orch.Segments()))
	}
	firstID := h.orch.ID()

	// Second session over silence: fresh ID, empty timeline.
	if err := h.orch.Start(normalizer.ModeFile, rawFile(t, 4096)); err != nil {
		t.Fatal(err)
	}
	h.waitState(t, true)
	if h.orch.ID() == firstID {
		t.Error("session ID not regenerated")
	}
	h.waitState(t, false)
	if n := len(h.orch.Segments()); n != 0 {
		t.Errorf("timeline not cleared: %d segments", n)
	}
}

func TestExportPlainText(t *testing.T) {
	engine := &fakeEngine{steps: []engineStep{
		{final: true, payload: `{"text": "words on a timeline", "result": [` +
			`{"word": "words", "start": 0.1, "end": 0.4}], "spk": [1, 0]}`},
	}}
	h := newHarness(t, engine, fakeOpener{})

	if err := h.orch.Start(normalizer.ModeFile, rawFile(t, 4096)); err != nil {
		t.Fatal(err)
	}
	h.waitState(t, true)
	h.waitState(t, false)

	var b strings.Builder
	if err := h.orch.Export(&b, transcript.PlainText, "Meeting"); err != nil {
		t.Fatal(err)
	}
	out := b.String()
	if !strings.Contains(out, "Meeting") || !strings.Contains(out, "words on a timeline") {
		t.Errorf("export missing content:\n%s", out)
	}
	if !strings.Contains(out, "Speakers: 1") {
		t.Errorf("export missing speaker count:\n%s", out)
	}
}
