package speech

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/yuanying/narrator/internal/playback"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("exec engine tests need a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestNewExec_Errors(t *testing.T) {
	if _, err := NewExec("", nil); err == nil {
		t.Error("NewExec(\"\") should fail")
	}
	if _, err := NewExec(`say "unterminated`, nil); err == nil {
		t.Error("NewExec() with unbalanced quotes should fail")
	}
}

func TestExpandArgs(t *testing.T) {
	argv := []string{"espeak-ng", "-v", "{voice}", "-s", "{wpm}", "-p", "{espeak_pitch}", "-a", "{espeak_amplitude}", "--rate={rate}", "{pitch}/{volume}"}
	voice := playback.VoiceConfig{VoiceID: "en-gb", Rate: 1.5, Pitch: 0.5, Volume: 0.8}

	got := expandArgs(argv, voice)
	want := []string{"espeak-ng", "-v", "en-gb", "-s", "263", "-p", "25", "-a", "80", "--rate=1.5", "0.5/0.8"}
	if len(got) != len(want) {
		t.Fatalf("expandArgs() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("arg[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestExec_WritesTextAndNotifiesEnd(t *testing.T) {
	requireShell(t)
	out := filepath.Join(t.TempDir(), "spoken.txt")

	e, err := NewExec(`sh -c 'cat > "$0"' `+out, nil)
	if err != nil {
		t.Fatalf("NewExec() failed: %v", err)
	}
	notify, ch := collect(4)
	u := playback.Utterance{ID: playback.UtteranceID{Generation: 1}, Text: "Read me aloud.", Voice: playback.DefaultVoice()}

	if err := e.Speak(u, notify); err != nil {
		t.Fatalf("Speak() failed: %v", err)
	}
	expectNotification(t, ch, playback.NotifyStart, 2*time.Second)
	expectNotification(t, ch, playback.NotifyEnd, 2*time.Second)

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	if string(data) != u.Text {
		t.Errorf("command stdin = %q, want %q", string(data), u.Text)
	}
}

func TestExec_FailureNotifiesError(t *testing.T) {
	requireShell(t)
	e, err := NewExec(`sh -c 'echo broken >&2; exit 3'`, nil)
	if err != nil {
		t.Fatalf("NewExec() failed: %v", err)
	}
	notify, ch := collect(4)

	if err := e.Speak(playback.Utterance{Text: "x"}, notify); err != nil {
		t.Fatalf("Speak() failed: %v", err)
	}
	expectNotification(t, ch, playback.NotifyStart, 2*time.Second)
	n := expectNotification(t, ch, playback.NotifyError, 2*time.Second)
	if n.Err == nil {
		t.Fatal("error notification without error")
	}
}

func TestExec_MissingBinary(t *testing.T) {
	e, err := NewExec("/nonexistent/speech-binary --flag", nil)
	if err != nil {
		t.Fatalf("NewExec() failed: %v", err)
	}
	if err := e.Speak(playback.Utterance{Text: "x"}, func(playback.Notification) {}); err == nil {
		t.Error("Speak() should fail when the binary is missing")
	}
}

func TestExec_CancelSuppressesNotifications(t *testing.T) {
	requireShell(t)
	e, err := NewExec(`sh -c 'sleep 5'`, nil)
	if err != nil {
		t.Fatalf("NewExec() failed: %v", err)
	}
	notify, ch := collect(4)

	if err := e.Speak(playback.Utterance{Text: "x"}, notify); err != nil {
		t.Fatalf("Speak() failed: %v", err)
	}
	expectNotification(t, ch, playback.NotifyStart, 2*time.Second)

	if err := e.Pause(); err != nil {
		t.Fatalf("Pause() failed: %v", err)
	}
	e.Cancel()

	select {
	case n := <-ch:
		t.Fatalf("got %v notification after Cancel", n.Kind)
	case <-time.After(500 * time.Millisecond):
	}
}
