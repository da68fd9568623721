// Package speech provides speech engines for the playback scheduler and the
// catalog of voices they offer.
package speech

import (
	"sync"
	"time"
	"unicode/utf8"

	"github.com/yuanying/narrator/internal/playback"
)

// DefaultMockPace is how long the mock engine takes per rune at rate 1.0.
const DefaultMockPace = 2 * time.Millisecond

// Mock is an engine that "speaks" by waiting in proportion to the text
// length. It honours pause and resume exactly.
type Mock struct {
	pace time.Duration

	mu      sync.Mutex
	current *mockRun
	history []playback.Utterance
}

type mockRun struct {
	utterance playback.Utterance
	notify    playback.Notifier
	remaining time.Duration
	started   time.Time
	timer     *time.Timer
	paused    bool
}

// NewMock returns a mock engine; a non-positive pace selects DefaultMockPace.
func NewMock(pace time.Duration) *Mock {
	if pace <= 0 {
		pace = DefaultMockPace
	}
	return &Mock{pace: pace}
}

func (m *Mock) Speak(u playback.Utterance, notify playback.Notifier) error {
	rate := u.Voice.Rate
	if rate <= 0 {
		rate = 1
	}
	run := &mockRun{
		utterance: u,
		notify:    notify,
		remaining: time.Duration(float64(utf8.RuneCountInString(u.Text)) * float64(m.pace) / rate),
	}

	m.mu.Lock()
	m.stopLocked()
	m.current = run
	m.history = append(m.history, u)
	m.mu.Unlock()

	go func() {
		notify(playback.Notification{ID: u.ID, Kind: playback.NotifyStart})
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.current == run && !run.paused {
			m.armLocked(run)
		}
	}()
	return nil
}

func (m *Mock) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run := m.current
	if run == nil || run.paused {
		return nil
	}
	if run.timer != nil {
		if !run.timer.Stop() {
			// Already finishing.
			return nil
		}
		run.remaining -= time.Since(run.started)
		if run.remaining < 0 {
			run.remaining = 0
		}
		run.timer = nil
	}
	run.paused = true
	return nil
}

func (m *Mock) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	run := m.current
	if run == nil || !run.paused {
		return nil
	}
	run.paused = false
	m.armLocked(run)
	return nil
}

func (m *Mock) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// History returns every utterance handed to the engine, in order.
func (m *Mock) History() []playback.Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]playback.Utterance, len(m.history))
	copy(out, m.history)
	return out
}

func (m *Mock) armLocked(run *mockRun) {
	run.started = time.Now()
	run.timer = time.AfterFunc(run.remaining, func() { m.finish(run) })
}

func (m *Mock) stopLocked() {
	if m.current != nil && m.current.timer != nil {
		m.current.timer.Stop()
	}
	m.current = nil
}

func (m *Mock) finish(run *mockRun) {
	m.mu.Lock()
	if m.current != run {
		m.mu.Unlock()
		return
	}
	m.current = nil
	m.mu.Unlock()
	run.notify(playback.Notification{ID: run.utterance.ID, Kind: playback.NotifyEnd})
}
