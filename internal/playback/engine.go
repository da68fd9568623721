package playback

import "errors"

// ErrPauseUnsupported is returned by engines that cannot suspend an
// utterance in place. The scheduler then restarts the current chunk on resume.
var ErrPauseUnsupported = errors.New("engine cannot pause")

// UtteranceID identifies one narration request within one session
// generation.
type UtteranceID struct {
	Generation uint64
	Index      int
}

// Utterance is a single request to the speech engine.
type Utterance struct {
	ID    UtteranceID
	Text  string
	Voice VoiceConfig
}

// NotificationKind is the lifecycle stage reported by an engine.
type NotificationKind int

const (
	NotifyStart NotificationKind = iota
	NotifyEnd
	NotifyError
)

func (k NotificationKind) String() string {
	switch k {
	case NotifyStart:
		return "start"
	case NotifyEnd:
		return "end"
	case NotifyError:
		return "error"
	}
	return "unknown"
}

// Notification is an asynchronous report from the engine about an utterance.
type Notification struct {
	ID   UtteranceID
	Kind NotificationKind
	Err  error
}

// Notifier receives engine notifications. It is safe to call from any
// goroutine and never blocks for long.
type Notifier func(Notification)

// Engine is a single-slot speech capability. Speak replaces any in-flight
// utterance; Pause and Resume act on the current one; Cancel discards it.
// Notifications for an utterance arrive through the Notifier passed to Speak.
type Engine interface {
	Speak(u Utterance, notify Notifier) error
	Pause() error
	Resume() error
	Cancel()
}
