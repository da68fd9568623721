package playback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/yuanying/narrator/internal/chunk"
)

const testTimeout = 2 * time.Second

// fakeEngine records utterances and lets the test drive notifications.
type fakeEngine struct {
	mu        sync.Mutex
	notify    Notifier
	spoken    []Utterance
	pauses    int
	resumes   int
	cancels   int
	pauseErr  error
	resumeErr error
	speakErr  error
	spokeCh   chan Utterance
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{spokeCh: make(chan Utterance, 32)}
}

func (f *fakeEngine) Speak(u Utterance, notify Notifier) error {
	f.mu.Lock()
	if f.speakErr != nil {
		err := f.speakErr
		f.mu.Unlock()
		return err
	}
	f.notify = notify
	f.spoken = append(f.spoken, u)
	f.mu.Unlock()
	f.spokeCh <- u
	return nil
}

func (f *fakeEngine) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	return f.pauseErr
}

func (f *fakeEngine) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumes++
	return f.resumeErr
}

func (f *fakeEngine) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
}

func (f *fakeEngine) send(u Utterance, kind NotificationKind, err error) {
	f.mu.Lock()
	notify := f.notify
	f.mu.Unlock()
	notify(Notification{ID: u.ID, Kind: kind, Err: err})
}

func (f *fakeEngine) start(u Utterance)           { f.send(u, NotifyStart, nil) }
func (f *fakeEngine) end(u Utterance)             { f.send(u, NotifyEnd, nil) }
func (f *fakeEngine) fail(u Utterance, err error) { f.send(u, NotifyError, err) }

func (f *fakeEngine) spokenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.spoken)
}

func (f *fakeEngine) counts() (pauses, resumes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pauses, f.resumes
}

func waitSpoken(t *testing.T, f *fakeEngine) Utterance {
	t.Helper()
	select {
	case u := <-f.spokeCh:
		return u
	case <-time.After(testTimeout):
		t.Fatal("timed out waiting for an utterance")
	}
	return Utterance{}
}

func assertNothingSpoken(t *testing.T, f *fakeEngine) {
	t.Helper()
	select {
	case u := <-f.spokeCh:
		t.Fatalf("unexpected utterance %+v", u)
	default:
	}
}

type harness struct {
	sched  *Scheduler
	engine *fakeEngine
	sink   *ChannelSink
	reader *sdkmetric.ManualReader
}

func newHarness(t *testing.T, delay time.Duration) *harness {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	eng := newFakeEngine()
	sink := NewChannelSink(256)
	sched := NewScheduler(eng, Options{
		InterChunkDelay: delay,
		Sink:            sink,
		MeterProvider:   provider,
	})
	t.Cleanup(func() {
		sink.Close()
		sched.Close()
		_ = provider.Shutdown(context.Background())
	})
	return &harness{sched: sched, engine: eng, sink: sink, reader: reader}
}

// next returns the next event matching pred, failing on timeout. Events that
// do not match are appended to skipped when non-nil.
func (h *harness) next(t *testing.T, pred func(Event) bool, skipped *[]Event) Event {
	t.Helper()
	deadline := time.After(testTimeout)
	for {
		select {
		case e := <-h.sink.Events():
			if pred(e) {
				return e
			}
			if skipped != nil {
				*skipped = append(*skipped, e)
			}
		case <-deadline:
			t.Fatal("timed out waiting for event")
		}
	}
}

func isKind(k EventKind) func(Event) bool {
	return func(e Event) bool { return e.Kind == k }
}

func isState(st State) func(Event) bool {
	return func(e Event) bool { return e.Kind == EventState && e.State == st }
}

func (h *harness) counter(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := h.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() failed: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("metric %s has data %T, want Sum[int64]", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func scenarioChunks() []chunk.Chunk {
	return chunk.Split("Hello world. This is a test! Is it working?", 15)
}

func TestScheduler_NarratesToCompletion(t *testing.T) {
	h := newHarness(t, time.Millisecond)
	chunks := scenarioChunks()

	h.sched.Play(chunks, VoiceConfig{})
	if e := h.next(t, isKind(EventState), nil); e.State != Playing {
		t.Fatalf("first state = %v, want playing", e.State)
	}
	if e := h.next(t, isKind(EventProgress), nil); e.Progress != 0 {
		t.Errorf("initial progress = %v, want 0", e.Progress)
	}

	for i, c := range chunks {
		u := waitSpoken(t, h.engine)
		if u.ID.Index != i || u.Text != c.Text {
			t.Fatalf("utterance = %+v, want chunk %d %q", u, i, c.Text)
		}
		if u.Voice != DefaultVoice() {
			t.Errorf("utterance voice = %+v, want default", u.Voice)
		}

		h.engine.start(u)
		pos := h.next(t, isKind(EventPosition), nil)
		if pos.Offset != chunk.SpokenOffset(chunks, i) {
			t.Errorf("position offset = %d, want %d", pos.Offset, chunk.SpokenOffset(chunks, i))
		}
		if pos.SourceOffset != c.Start {
			t.Errorf("position source offset = %d, want %d", pos.SourceOffset, c.Start)
		}

		h.engine.end(u)
		prog := h.next(t, isKind(EventProgress), nil)
		want := float64(i+1) / float64(len(chunks)) * 100
		if i == len(chunks)-1 {
			want = 100
		}
		if prog.Progress != want {
			t.Errorf("progress after chunk %d = %v, want %v", i, prog.Progress, want)
		}
	}

	h.next(t, isState(Completed), nil)
	done := h.next(t, isKind(EventCompleted), nil)
	if done.Progress != 100 {
		t.Errorf("completed progress = %v, want exactly 100", done.Progress)
	}

	snap := h.sched.Snapshot()
	if snap.State != Completed || snap.Progress != 100 {
		t.Errorf("Snapshot() = %+v, want completed at 100", snap)
	}
	if got := h.counter(t, "narrator.playback.chunks"); got != 3 {
		t.Errorf("chunks counter = %d, want 3", got)
	}
	if got := h.counter(t, "narrator.playback.sessions"); got != 1 {
		t.Errorf("sessions counter = %d, want 1", got)
	}
}

func TestScheduler_PlayTwiceWhilePlayingIsNoop(t *testing.T) {
	h := newHarness(t, time.Millisecond)
	chunks := scenarioChunks()

	h.sched.Play(chunks, VoiceConfig{})
	h.sched.Play(chunks, VoiceConfig{})
	h.sched.Pause()
	h.next(t, isState(Paused), nil)

	if got := h.engine.spokenCount(); got != 1 {
		t.Errorf("engine received %d utterances, want 1", got)
	}
}

func TestScheduler_PauseThenPlayResumes(t *testing.T) {
	h := newHarness(t, time.Millisecond)
	chunks := scenarioChunks()

	h.sched.Play(chunks, VoiceConfig{})
	u0 := waitSpoken(t, h.engine)
	h.engine.start(u0)
	h.engine.end(u0)
	u1 := waitSpoken(t, h.engine)
	if u1.ID.Index != 1 {
		t.Fatalf("second utterance index = %d, want 1", u1.ID.Index)
	}

	h.sched.Pause()
	h.next(t, isState(Paused), nil)
	h.sched.Play(chunks, VoiceConfig{})
	h.next(t, isState(Playing), nil)

	pauses, resumes := h.engine.counts()
	if pauses != 1 || resumes != 1 {
		t.Errorf("engine pauses=%d resumes=%d, want 1 and 1", pauses, resumes)
	}
	assertNothingSpoken(t, h.engine)

	h.engine.end(u1)
	if u2 := waitSpoken(t, h.engine); u2.ID.Index != 2 {
		t.Errorf("utterance after resume index = %d, want 2", u2.ID.Index)
	}
	if snap := h.sched.Snapshot(); snap.Index != 2 {
		t.Errorf("Snapshot().Index = %d, want 2", snap.Index)
	}
}

func TestScheduler_PauseUnsupportedRestartsChunk(t *testing.T) {
	h := newHarness(t, time.Millisecond)
	h.engine.pauseErr = ErrPauseUnsupported
	chunks := scenarioChunks()

	h.sched.Play(chunks, VoiceConfig{})
	u0 := waitSpoken(t, h.engine)
	h.engine.start(u0)

	h.sched.Pause()
	h.next(t, isState(Paused), nil)

	// The cancelled utterance still reports its end; it must not advance.
	h.engine.end(u0)
	h.sched.Play(chunks, VoiceConfig{})

	var skipped []Event
	h.next(t, isState(Playing), &skipped)
	for _, e := range skipped {
		if e.Kind == EventProgress {
			t.Errorf("stale end produced progress event %+v", e)
		}
	}

	again := waitSpoken(t, h.engine)
	if again.ID.Index != 0 {
		t.Errorf("restarted utterance index = %d, want 0", again.ID.Index)
	}
	if again.ID.Generation <= u0.ID.Generation {
		t.Errorf("restarted generation = %d, want > %d", again.ID.Generation, u0.ID.Generation)
	}
	if got := h.counter(t, "narrator.playback.stale_notifications"); got != 1 {
		t.Errorf("stale counter = %d, want 1", got)
	}
}

func TestScheduler_PauseBetweenChunks(t *testing.T) {
	h := newHarness(t, time.Hour)
	chunks := scenarioChunks()

	h.sched.Play(chunks, VoiceConfig{})
	u0 := waitSpoken(t, h.engine)
	h.engine.end(u0)
	h.next(t, func(e Event) bool { return e.Kind == EventProgress && e.Progress > 0 }, nil)

	h.sched.Pause()
	h.next(t, isState(Paused), nil)
	if pauses, _ := h.engine.counts(); pauses != 0 {
		t.Errorf("engine pauses = %d, want 0 between chunks", pauses)
	}

	h.sched.Play(nil, VoiceConfig{})
	if u1 := waitSpoken(t, h.engine); u1.ID.Index != 1 {
		t.Errorf("utterance after resume index = %d, want 1", u1.ID.Index)
	}
}

func TestScheduler_EmptyPlayStaysIdle(t *testing.T) {
	h := newHarness(t, time.Millisecond)

	h.sched.Play(nil, VoiceConfig{})
	h.sched.Play([]chunk.Chunk{}, VoiceConfig{})
	h.sched.Play(scenarioChunks(), VoiceConfig{})

	first := h.next(t, func(Event) bool { return true }, nil)
	if first.Kind != EventState || first.State != Playing {
		t.Errorf("first event = %+v, want the state change of the non-empty play", first)
	}
	waitSpoken(t, h.engine)
	if got := h.engine.spokenCount(); got != 1 {
		t.Errorf("engine received %d utterances, want 1", got)
	}
}

func TestScheduler_StaleCallbacksDiscardedAfterStop(t *testing.T) {
	h := newHarness(t, time.Millisecond)
	chunks := scenarioChunks()

	h.sched.Play(chunks, VoiceConfig{})
	u0 := waitSpoken(t, h.engine)
	h.sched.Stop()
	h.next(t, isState(Stopped), nil)

	h.engine.start(u0)
	h.engine.end(u0)
	h.engine.fail(u0, errors.New("late"))

	h.sched.Play(chunks, VoiceConfig{})
	var skipped []Event
	h.next(t, isState(Playing), &skipped)
	for _, e := range skipped {
		t.Errorf("stale notification produced event %+v", e)
	}
	if u := waitSpoken(t, h.engine); u.ID.Index != 0 || u.ID.Generation == u0.ID.Generation {
		t.Errorf("new utterance = %+v, want chunk 0 of a new generation", u.ID)
	}
	if got := h.counter(t, "narrator.playback.stale_notifications"); got != 3 {
		t.Errorf("stale counter = %d, want 3", got)
	}
}

func TestScheduler_StopRewinds(t *testing.T) {
	h := newHarness(t, time.Millisecond)
	chunks := scenarioChunks()

	h.sched.Play(chunks, VoiceConfig{})
	u0 := waitSpoken(t, h.engine)
	h.engine.end(u0)
	waitSpoken(t, h.engine)

	h.sched.Stop()
	var skipped []Event
	h.next(t, isState(Stopped), &skipped)
	for _, e := range skipped {
		if e.Kind == EventPosition && e.Offset == 0 && e.ChunkIndex == 0 {
			t.Errorf("position 0 reported before the stopped state: %+v", e)
		}
	}
	rewound := h.next(t, isKind(EventPosition), nil)
	if rewound.ChunkIndex != 0 || rewound.Offset != 0 || rewound.State != Stopped {
		t.Errorf("position after Stop() = %+v, want chunk 0 offset 0 while stopped", rewound)
	}
	if snap := h.sched.Snapshot(); snap.Index != 0 || snap.State != Stopped {
		t.Errorf("Snapshot() = %+v, want stopped at 0", snap)
	}

	h.sched.Play(chunks, VoiceConfig{})
	if u := waitSpoken(t, h.engine); u.ID.Index != 0 {
		t.Errorf("utterance after stop index = %d, want 0", u.ID.Index)
	}
}

func TestScheduler_EngineErrorStops(t *testing.T) {
	h := newHarness(t, time.Millisecond)
	chunks := scenarioChunks()
	boom := errors.New("synthesizer crashed")

	h.sched.Play(chunks, VoiceConfig{})
	first := h.next(t, isState(Playing), nil)
	u0 := waitSpoken(t, h.engine)
	h.engine.end(u0)
	u1 := waitSpoken(t, h.engine)
	h.engine.fail(u1, boom)

	h.next(t, isState(Stopped), nil)
	errored := h.next(t, isKind(EventErrored), nil)

	var perr *PlaybackError
	if !errors.As(errored.Err, &perr) {
		t.Fatalf("errored event Err = %T, want *PlaybackError", errored.Err)
	}
	if perr.ChunkIndex != 1 {
		t.Errorf("PlaybackError.ChunkIndex = %d, want 1", perr.ChunkIndex)
	}
	if !errors.Is(errored.Err, boom) {
		t.Errorf("errored event Err = %v, want it to wrap %v", errored.Err, boom)
	}

	// A second failure report for the same utterance is stale.
	h.engine.fail(u1, boom)
	h.sched.Play(chunks, VoiceConfig{})
	var skipped []Event
	second := h.next(t, isState(Playing), &skipped)
	for _, e := range skipped {
		if e.Kind == EventErrored {
			t.Errorf("got a second errored event %+v", e)
		}
	}
	if second.SessionID == first.SessionID {
		t.Error("replay after an error reused the session id")
	}
	if u := waitSpoken(t, h.engine); u.ID.Index != 0 {
		t.Errorf("utterance after error index = %d, want 0", u.ID.Index)
	}
	if got := h.counter(t, "narrator.playback.errors"); got != 1 {
		t.Errorf("errors counter = %d, want 1", got)
	}
}

func TestScheduler_SpeakErrorStops(t *testing.T) {
	h := newHarness(t, time.Millisecond)
	h.engine.speakErr = errors.New("no audio device")

	h.sched.Play(scenarioChunks(), VoiceConfig{})
	errored := h.next(t, isKind(EventErrored), nil)
	if errored.State != Stopped {
		t.Errorf("errored event state = %v, want stopped", errored.State)
	}
}

func TestScheduler_ResetReturnsToIdle(t *testing.T) {
	h := newHarness(t, time.Millisecond)
	chunks := scenarioChunks()

	h.sched.Play(chunks, VoiceConfig{})
	playing := h.next(t, isState(Playing), nil)
	u0 := waitSpoken(t, h.engine)
	h.sched.Reset()
	idle := h.next(t, isState(Idle), nil)
	if idle.SessionID == "" || idle.SessionID != playing.SessionID {
		t.Errorf("idle event session = %q, want %q", idle.SessionID, playing.SessionID)
	}

	snap := h.sched.Snapshot()
	if snap.State != Idle || snap.SessionID != "" || snap.Total != 0 {
		t.Errorf("Snapshot() = %+v, want empty idle session", snap)
	}

	h.engine.end(u0)
	h.sched.Play(chunks, VoiceConfig{})
	var skipped []Event
	h.next(t, isState(Playing), &skipped)
	if len(skipped) != 0 {
		t.Errorf("events before replay = %+v, want none", skipped)
	}
}

func TestScheduler_VoiceOverrideClamped(t *testing.T) {
	h := newHarness(t, time.Millisecond)

	h.sched.Play(scenarioChunks(), VoiceConfig{VoiceID: "en-gb", Rate: 5, Pitch: 0.1, Volume: 0.5})
	u := waitSpoken(t, h.engine)
	want := VoiceConfig{VoiceID: "en-gb", Rate: MaxRate, Pitch: MinPitch, Volume: 0.5}
	if u.Voice != want {
		t.Errorf("utterance voice = %+v, want %+v", u.Voice, want)
	}
}

func TestScheduler_CloseIsIdempotent(t *testing.T) {
	eng := newFakeEngine()
	s := NewScheduler(eng, Options{})
	s.Close()
	s.Close()
	s.Play(scenarioChunks(), VoiceConfig{})
	if got := eng.spokenCount(); got != 0 {
		t.Errorf("engine received %d utterances after Close, want 0", got)
	}
}
