package playback

import (
	"testing"
)

func TestVoiceConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		voice   VoiceConfig
		wantErr bool
	}{
		{"default", DefaultVoice(), false},
		{"bounds", VoiceConfig{Rate: 0.5, Pitch: 2, Volume: 0}, false},
		{"rate too high", VoiceConfig{Rate: 2.5, Pitch: 1, Volume: 1}, true},
		{"pitch too low", VoiceConfig{Rate: 1, Pitch: 0.1, Volume: 1}, true},
		{"volume negative", VoiceConfig{Rate: 1, Pitch: 1, Volume: -0.1}, true},
		{"zero value", VoiceConfig{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.voice.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVoiceConfig_Clamp(t *testing.T) {
	got := VoiceConfig{VoiceID: "x", Rate: 9, Pitch: -1, Volume: 3}.Clamp()
	want := VoiceConfig{VoiceID: "x", Rate: MaxRate, Pitch: MinPitch, Volume: MaxVolume}
	if got != want {
		t.Errorf("Clamp() = %+v, want %+v", got, want)
	}
	if err := got.Validate(); err != nil {
		t.Errorf("clamped voice fails Validate(): %v", err)
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		Idle:      "idle",
		Playing:   "playing",
		Paused:    "paused",
		Stopped:   "stopped",
		Completed: "completed",
		State(42): "state(42)",
	}
	for st, want := range tests {
		if got := st.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(st), got, want)
		}
	}
}

func TestFanOut(t *testing.T) {
	var a, b []EventKind
	fan := FanOut{
		SinkFunc(func(e Event) { a = append(a, e.Kind) }),
		nil,
		SinkFunc(func(e Event) { b = append(b, e.Kind) }),
	}

	fan.Publish(Event{Kind: EventState})
	fan.Publish(Event{Kind: EventCompleted})

	for name, got := range map[string][]EventKind{"a": a, "b": b} {
		if len(got) != 2 || got[0] != EventState || got[1] != EventCompleted {
			t.Errorf("sink %s received %v, want [state completed]", name, got)
		}
	}
}

func TestChannelSink_CloseUnblocks(t *testing.T) {
	sink := NewChannelSink(1)
	sink.Publish(Event{Kind: EventState})

	done := make(chan struct{})
	go func() {
		sink.Publish(Event{Kind: EventProgress})
		close(done)
	}()
	sink.Close()
	<-done

	if e := <-sink.Events(); e.Kind != EventState {
		t.Errorf("first event = %v, want state", e.Kind)
	}
}
