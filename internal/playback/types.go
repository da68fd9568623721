// Package playback sequences chunk narration through a speech engine and
// reports position, progress and state changes as events.
package playback

import (
	"errors"
	"fmt"
)

// State is the transport state of the scheduler.
type State int

const (
	Idle State = iota
	Playing
	Paused
	Stopped
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	case Completed:
		return "completed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

const (
	MinRate   = 0.5
	MaxRate   = 2.0
	MinPitch  = 0.5
	MaxPitch  = 2.0
	MinVolume = 0.0
	MaxVolume = 1.0
)

// VoiceConfig selects the voice and prosody of an utterance.
type VoiceConfig struct {
	VoiceID string  `json:"voice_id,omitempty" yaml:"id"`
	Rate    float64 `json:"rate" yaml:"rate"`
	Pitch   float64 `json:"pitch" yaml:"pitch"`
	Volume  float64 `json:"volume" yaml:"volume"`
}

// DefaultVoice returns the engine default voice at neutral prosody.
func DefaultVoice() VoiceConfig {
	return VoiceConfig{Rate: 1, Pitch: 1, Volume: 1}
}

// IsZero reports whether v is the zero value.
func (v VoiceConfig) IsZero() bool {
	return v == VoiceConfig{}
}

// Validate reports prosody values outside their allowed ranges.
func (v VoiceConfig) Validate() error {
	var errs []error
	if v.Rate < MinRate || v.Rate > MaxRate {
		errs = append(errs, fmt.Errorf("rate %.2f outside [%.1f, %.1f]", v.Rate, MinRate, MaxRate))
	}
	if v.Pitch < MinPitch || v.Pitch > MaxPitch {
		errs = append(errs, fmt.Errorf("pitch %.2f outside [%.1f, %.1f]", v.Pitch, MinPitch, MaxPitch))
	}
	if v.Volume < MinVolume || v.Volume > MaxVolume {
		errs = append(errs, fmt.Errorf("volume %.2f outside [%.1f, %.1f]", v.Volume, MinVolume, MaxVolume))
	}
	return errors.Join(errs...)
}

// Clamp returns v with every prosody value forced into range.
func (v VoiceConfig) Clamp() VoiceConfig {
	v.Rate = clamp(v.Rate, MinRate, MaxRate)
	v.Pitch = clamp(v.Pitch, MinPitch, MaxPitch)
	v.Volume = clamp(v.Volume, MinVolume, MaxVolume)
	return v
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// PlaybackError reports an engine failure while narrating a chunk.
type PlaybackError struct {
	SessionID  string
	ChunkIndex int
	Err        error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("narration failed at chunk %d: %v", e.ChunkIndex, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}
