package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/yuanying/narrator/internal/chunk"
)

// DefaultInterChunkDelay is the pause between the end of one chunk and the
// start of the next.
const DefaultInterChunkDelay = 100 * time.Millisecond

// Options configures a Scheduler.
type Options struct {
	InterChunkDelay time.Duration // zero means DefaultInterChunkDelay
	Voice           VoiceConfig   // used when Play is given a zero VoiceConfig
	Sink            Sink
	Logger          *slog.Logger
	MeterProvider   metric.MeterProvider
}

// Snapshot is a read-only view of the scheduler.
type Snapshot struct {
	SessionID string
	State     State
	Index     int
	Total     int
	Progress  float64
	Voice     VoiceConfig
}

type commandKind int

const (
	cmdPlay commandKind = iota
	cmdPause
	cmdStop
	cmdReset
	cmdNotify
	cmdAdvance
)

type command struct {
	kind   commandKind
	chunks []chunk.Chunk
	voice  VoiceConfig
	note   Notification
	id     UtteranceID
}

// session is owned by the control goroutine.
type session struct {
	id         string
	chunks     []chunk.Chunk
	index      int
	state      State
	voice      VoiceConfig
	generation uint64

	// between is set while waiting out the inter-chunk delay, or after a
	// pause the engine could not honour; resume then reissues the chunk.
	between  bool
	issuedAt time.Time
}

// Scheduler narrates a chunk list through an Engine. All transport methods
// enqueue a command and return without waiting for the engine.
type Scheduler struct {
	engine  Engine
	delay   time.Duration
	voice   VoiceConfig
	sink    Sink
	log     *slog.Logger
	metrics *metrics

	inbox chan command
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once

	mu   sync.RWMutex
	snap Snapshot

	// control goroutine state
	sess  session
	timer *time.Timer
}

// NewScheduler starts the control goroutine for engine.
func NewScheduler(engine Engine, opts Options) *Scheduler {
	if opts.InterChunkDelay <= 0 {
		opts.InterChunkDelay = DefaultInterChunkDelay
	}
	if opts.Voice.IsZero() {
		opts.Voice = DefaultVoice()
	}
	if opts.Sink == nil {
		opts.Sink = discardSink{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	log := opts.Logger.With(slog.String("component", "playback"))

	m, err := newMetrics(opts.MeterProvider)
	if err != nil {
		log.Warn("failed to initialize metrics", slog.String("error", err.Error()))
		m, _ = newMetrics(nil)
	}

	s := &Scheduler{
		engine:  engine,
		delay:   opts.InterChunkDelay,
		voice:   opts.Voice.Clamp(),
		sink:    opts.Sink,
		log:     log,
		metrics: m,
		inbox:   make(chan command, 64),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		snap:    Snapshot{State: Idle},
	}
	go s.run()
	return s
}

// Play starts a new session at chunk 0, or resumes a paused one. It is a
// no-op while already playing or when chunks is empty and nothing is paused.
func (s *Scheduler) Play(chunks []chunk.Chunk, voice VoiceConfig) {
	cp := make([]chunk.Chunk, len(chunks))
	copy(cp, chunks)
	s.send(command{kind: cmdPlay, chunks: cp, voice: voice})
}

// Pause suspends narration of the current chunk.
func (s *Scheduler) Pause() { s.send(command{kind: cmdPause}) }

// Stop cancels narration and rewinds to chunk 0.
func (s *Scheduler) Stop() { s.send(command{kind: cmdStop}) }

// Reset cancels narration and discards the session, returning to Idle.
func (s *Scheduler) Reset() { s.send(command{kind: cmdReset}) }

// Snapshot returns the state as of the last processed command.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Close stops the control goroutine and cancels the engine. It is safe to
// call more than once.
func (s *Scheduler) Close() {
	s.once.Do(func() { close(s.quit) })
	<-s.done
}

func (s *Scheduler) send(cmd command) {
	select {
	case s.inbox <- cmd:
	case <-s.quit:
	}
}

func (s *Scheduler) notify(n Notification) {
	s.send(command{kind: cmdNotify, note: n})
}

func (s *Scheduler) run() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			s.stopTimer()
			s.engine.Cancel()
			return
		case cmd := <-s.inbox:
			s.handle(cmd)
			s.publishSnapshot()
		}
	}
}

func (s *Scheduler) handle(cmd command) {
	switch cmd.kind {
	case cmdPlay:
		s.handlePlay(cmd.chunks, cmd.voice)
	case cmdPause:
		s.handlePause()
	case cmdStop:
		s.handleStop()
	case cmdReset:
		s.handleReset()
	case cmdNotify:
		s.handleNotification(cmd.note)
	case cmdAdvance:
		s.handleAdvance(cmd.id)
	}
}

func (s *Scheduler) handlePlay(chunks []chunk.Chunk, voice VoiceConfig) {
	switch s.sess.state {
	case Playing:
		s.log.Debug("play ignored while playing", slog.String("session", s.sess.id))
		return
	case Paused:
		s.resume()
		return
	}

	if len(chunks) == 0 {
		s.log.Debug("play ignored for empty chunk list")
		return
	}
	if voice.IsZero() {
		voice = s.voice
	}

	s.stopTimer()
	s.engine.Cancel()
	s.sess = session{
		id:         uuid.NewString(),
		chunks:     chunks,
		voice:      voice.Clamp(),
		generation: s.sess.generation + 1,
	}
	s.metrics.sessionStarted(context.Background())
	s.log.Info("narration started",
		slog.String("session", s.sess.id),
		slog.Int("chunks", len(chunks)),
		slog.String("voice", s.sess.voice.VoiceID),
	)

	s.setState(Playing)
	s.emit(Event{Kind: EventProgress, ChunkIndex: 0, Progress: 0})
	s.issue()
}

func (s *Scheduler) resume() {
	s.setState(Playing)
	if s.sess.between {
		s.issue()
		return
	}
	if err := s.engine.Resume(); err != nil {
		s.log.Debug("engine resume failed, restarting chunk",
			slog.Int("chunk", s.sess.index),
			slog.String("error", err.Error()),
		)
		s.engine.Cancel()
		s.sess.generation++
		s.issue()
	}
}

func (s *Scheduler) handlePause() {
	if s.sess.state != Playing {
		return
	}
	if s.sess.between {
		s.stopTimer()
		s.setState(Paused)
		return
	}

	if err := s.engine.Pause(); err != nil {
		if !errors.Is(err, ErrPauseUnsupported) {
			s.log.Warn("engine pause failed", slog.String("error", err.Error()))
		}
		// The utterance is discarded; resume starts the chunk over.
		s.engine.Cancel()
		s.sess.generation++
		s.sess.between = true
	}
	s.setState(Paused)
}

func (s *Scheduler) handleStop() {
	if s.sess.state == Idle || s.sess.state == Stopped {
		return
	}
	s.halt()
	s.sess.index = 0
	s.setState(Stopped)
	s.emit(Event{Kind: EventPosition, ChunkIndex: 0, Offset: 0, SourceOffset: 0})
}

func (s *Scheduler) handleReset() {
	s.halt()
	generation := s.sess.generation
	prev, id := s.sess.state, s.sess.id
	s.sess = session{generation: generation}
	if prev != Idle {
		// The idle transition still belongs to the session it ends.
		s.emit(Event{Kind: EventState, State: Idle, SessionID: id})
	}
}

// halt cancels the in-flight utterance and invalidates its notifications.
func (s *Scheduler) halt() {
	s.stopTimer()
	s.engine.Cancel()
	s.sess.generation++
	s.sess.between = false
}

func (s *Scheduler) handleNotification(n Notification) {
	if !s.current(n.ID) {
		s.metrics.staleNotification(context.Background(), n.Kind)
		s.log.Debug("stale notification discarded",
			slog.String("kind", n.Kind.String()),
			slog.Uint64("generation", n.ID.Generation),
			slog.Int("chunk", n.ID.Index),
		)
		return
	}

	i := s.sess.index
	switch n.Kind {
	case NotifyStart:
		if !s.sess.issuedAt.IsZero() {
			s.metrics.startLatency(context.Background(), time.Since(s.sess.issuedAt).Seconds())
		}
		s.emit(Event{
			Kind:         EventPosition,
			ChunkIndex:   i,
			Offset:       chunk.SpokenOffset(s.sess.chunks, i),
			SourceOffset: s.sess.chunks[i].Start,
		})

	case NotifyEnd:
		s.metrics.chunkDone(context.Background())
		total := len(s.sess.chunks)
		next := i + 1
		if next >= total {
			s.sess.index = total
			s.emit(Event{Kind: EventProgress, ChunkIndex: i, Progress: 100})
			s.setState(Completed)
			s.emit(Event{Kind: EventCompleted, ChunkIndex: i, Progress: 100})
			s.log.Info("narration completed", slog.String("session", s.sess.id))
			return
		}
		s.sess.index = next
		s.emit(Event{Kind: EventProgress, ChunkIndex: i, Progress: progress(next, total)})
		s.sess.between = true
		if s.sess.state == Playing {
			s.scheduleAdvance()
		}

	case NotifyError:
		err := n.Err
		if err == nil {
			err = errors.New("engine reported an unspecified error")
		}
		s.fail(i, err)
	}
}

// current reports whether id belongs to the utterance the session is
// waiting on.
func (s *Scheduler) current(id UtteranceID) bool {
	if s.sess.state != Playing && s.sess.state != Paused {
		return false
	}
	return id.Generation == s.sess.generation && id.Index == s.sess.index && !s.sess.between
}

func (s *Scheduler) scheduleAdvance() {
	s.stopTimer()
	id := UtteranceID{Generation: s.sess.generation, Index: s.sess.index}
	s.timer = time.AfterFunc(s.delay, func() {
		s.send(command{kind: cmdAdvance, id: id})
	})
}

func (s *Scheduler) handleAdvance(id UtteranceID) {
	if s.sess.state != Playing || !s.sess.between {
		return
	}
	if id.Generation != s.sess.generation || id.Index != s.sess.index {
		return
	}
	s.issue()
}

// issue hands the current chunk to the engine.
func (s *Scheduler) issue() {
	s.timer = nil
	s.sess.between = false
	i := s.sess.index
	u := Utterance{
		ID:    UtteranceID{Generation: s.sess.generation, Index: i},
		Text:  s.sess.chunks[i].Text,
		Voice: s.sess.voice,
	}
	s.sess.issuedAt = time.Now()
	if err := s.engine.Speak(u, s.notify); err != nil {
		s.fail(i, err)
	}
}

func (s *Scheduler) fail(index int, err error) {
	s.metrics.failed(context.Background(), "engine")
	s.log.Warn("narration failed",
		slog.String("session", s.sess.id),
		slog.Int("chunk", index),
		slog.String("error", err.Error()),
	)
	s.halt()
	s.sess.index = 0
	s.setState(Stopped)
	s.emit(Event{
		Kind:       EventErrored,
		ChunkIndex: index,
		Err:        &PlaybackError{SessionID: s.sess.id, ChunkIndex: index, Err: err},
	})
}

func (s *Scheduler) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) setState(st State) {
	if s.sess.state == st {
		return
	}
	s.sess.state = st
	s.emit(Event{Kind: EventState, State: st, ChunkIndex: s.sess.index})
}

func (s *Scheduler) emit(e Event) {
	if e.SessionID == "" {
		e.SessionID = s.sess.id
	}
	if e.Kind != EventState {
		e.State = s.sess.state
	}
	e.Time = time.Now()
	s.publishSnapshot()
	s.sink.Publish(e)
}

func (s *Scheduler) publishSnapshot() {
	snap := Snapshot{
		SessionID: s.sess.id,
		State:     s.sess.state,
		Index:     s.sess.index,
		Total:     len(s.sess.chunks),
		Voice:     s.sess.voice,
	}
	switch {
	case s.sess.state == Completed:
		snap.Progress = 100
	case snap.Total > 0:
		snap.Progress = progress(s.sess.index, snap.Total)
	}
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

func progress(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}
