package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-shellwords"

	"github.com/yuanying/narrator/internal/playback"
)

// Exec speaks each utterance by running an external program with the text on
// stdin. Arguments may contain the placeholders {voice}, {rate}, {pitch},
// {volume}, {wpm}, {espeak_pitch} and {espeak_amplitude}.
type Exec struct {
	argv []string
	log  *slog.Logger

	mu      sync.Mutex
	current *execRun
}

type execRun struct {
	id        playback.UtteranceID
	cmd       *exec.Cmd
	cancel    context.CancelFunc
	cancelled bool
	paused    bool
}

// NewExec parses command with shell quoting rules.
func NewExec(command string, logger *slog.Logger) (*Exec, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse speech command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("speech command empty")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exec{
		argv: args,
		log:  logger.With(slog.String("component", "speech-exec")),
	}, nil
}

func (e *Exec) Speak(u playback.Utterance, notify playback.Notifier) error {
	e.Cancel()

	args := expandArgs(e.argv, u.Voice)
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = strings.NewReader(u.Text)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start speech command: %w", err)
	}

	run := &execRun{id: u.ID, cmd: cmd, cancel: cancel}
	e.mu.Lock()
	e.current = run
	e.mu.Unlock()

	go func() {
		notify(playback.Notification{ID: u.ID, Kind: playback.NotifyStart})
		err := cmd.Wait()
		cancel()

		e.mu.Lock()
		cancelled := run.cancelled
		if e.current == run {
			e.current = nil
		}
		e.mu.Unlock()
		if cancelled {
			return
		}

		if err != nil {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				err = fmt.Errorf("%w: %s", err, msg)
			}
			e.log.Warn("speech command failed", slog.String("error", err.Error()))
			notify(playback.Notification{ID: u.ID, Kind: playback.NotifyError, Err: err})
			return
		}
		notify(playback.Notification{ID: u.ID, Kind: playback.NotifyEnd})
	}()
	return nil
}

func (e *Exec) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	run := e.current
	if run == nil || run.paused {
		return nil
	}
	if err := suspend(run.cmd.Process); err != nil {
		return err
	}
	run.paused = true
	return nil
}

func (e *Exec) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	run := e.current
	if run == nil || !run.paused {
		return nil
	}
	if err := resume(run.cmd.Process); err != nil {
		return err
	}
	run.paused = false
	return nil
}

func (e *Exec) Cancel() {
	e.mu.Lock()
	run := e.current
	e.current = nil
	if run != nil {
		run.cancelled = true
	}
	e.mu.Unlock()

	if run == nil {
		return
	}
	if run.paused {
		_ = resume(run.cmd.Process)
	}
	run.cancel()
}

// expandArgs substitutes voice placeholders in each argument.
func expandArgs(argv []string, v playback.VoiceConfig) []string {
	r := strings.NewReplacer(
		"{voice}", v.VoiceID,
		"{rate}", formatFloat(v.Rate),
		"{pitch}", formatFloat(v.Pitch),
		"{volume}", formatFloat(v.Volume),
		"{wpm}", strconv.Itoa(int(math.Round(175*v.Rate))),
		"{espeak_pitch}", strconv.Itoa(clampInt(int(math.Round(50*v.Pitch)), 0, 99)),
		"{espeak_amplitude}", strconv.Itoa(clampInt(int(math.Round(100*v.Volume)), 0, 200)),
	)
	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = r.Replace(a)
	}
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func clampInt(x, lo, hi int) int {
	return max(lo, min(x, hi))
}
