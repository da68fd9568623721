package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yuanying/narrator/internal/bus"
	"github.com/yuanying/narrator/internal/chunk"
	"github.com/yuanying/narrator/internal/document"
	"github.com/yuanying/narrator/internal/playback"
	"github.com/yuanying/narrator/internal/telemetry"
)

// voiceOptions holds the prosody flags shared by read commands.
type voiceOptions struct {
	voice  string
	rate   float64
	pitch  float64
	volume float64
	budget int
}

// resolveVoice merges configured and flag prosody and checks the voice
// against the catalog.
func (c *commandContext) resolveVoice(ctx context.Context, opts voiceOptions) (playback.VoiceConfig, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return playback.VoiceConfig{}, err
	}
	v := playback.VoiceConfig{
		VoiceID: cfg.Voice.ID,
		Rate:    cfg.Voice.Rate,
		Pitch:   cfg.Voice.Pitch,
		Volume:  cfg.Voice.Volume,
	}
	if opts.rate > 0 {
		v.Rate = opts.rate
	}
	if opts.pitch > 0 {
		v.Pitch = opts.pitch
	}
	if opts.volume >= 0 {
		v.Volume = opts.volume
	}
	if err := v.Validate(); err != nil {
		return playback.VoiceConfig{}, err
	}

	catalog, err := c.newCatalog(ctx)
	if err != nil {
		return playback.VoiceConfig{}, err
	}
	switch {
	case opts.voice != "":
		voice, ok := catalog.Lookup(opts.voice)
		if !ok {
			return playback.VoiceConfig{}, fmt.Errorf("voice %q not found; see `narrator voices`", opts.voice)
		}
		v.VoiceID = voice.ID
	case v.VoiceID == "":
		if voice, ok := catalog.Default(); ok {
			v.VoiceID = voice.ID
		}
	}
	return v, nil
}

// narrate reads doc aloud until it completes, fails or ctx is cancelled.
func (c *commandContext) narrate(ctx context.Context, out io.Writer, doc document.Document, opts voiceOptions) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	log := c.logger()

	budget := opts.budget
	if budget <= 0 {
		budget = cfg.Playback.ChunkBudget
	}
	chunks := chunk.Split(doc.Text, budget)
	if len(chunks) == 0 {
		return errors.New("document has no readable text")
	}

	voice, err := c.resolveVoice(ctx, opts)
	if err != nil {
		return err
	}
	engine, err := c.newEngine()
	if err != nil {
		return err
	}

	tel, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			log.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	events := playback.NewChannelSink(64)
	sinks := playback.FanOut{events}
	if cfg.Bus.Enabled {
		client, err := bus.Connect(ctx, cfg.Bus, log)
		if err != nil {
			return err
		}
		defer client.Close()
		sinks = append(sinks, bus.NewPublisher(client, cfg.Bus.SubjectPrefix))
	}

	sched := playback.NewScheduler(engine, playback.Options{
		InterChunkDelay: cfg.InterChunkDelay(),
		Voice:           voice,
		Sink:            sinks,
		Logger:          log,
		MeterProvider:   tel.MeterProvider(),
	})
	defer func() {
		events.Close()
		sched.Close()
	}()

	if isTerminal(out) {
		return runInteractive(ctx, out, sched, events.Events(), chunks, doc, voice)
	}
	return runPlain(ctx, out, sched, events.Events(), chunks, doc, voice)
}

func runPlain(ctx context.Context, out io.Writer, sched *playback.Scheduler, events <-chan playback.Event, chunks []chunk.Chunk, doc document.Document, voice playback.VoiceConfig) error {
	if doc.Title != "" {
		fmt.Fprintf(out, "Reading %q (%d chunks)\n", doc.Title, len(chunks))
	}
	sched.Play(chunks, voice)

	section := -1
	for {
		select {
		case <-ctx.Done():
			sched.Stop()
			return ctx.Err()
		case e := <-events:
			switch e.Kind {
			case playback.EventPosition:
				if e.ChunkIndex < 0 || e.ChunkIndex >= len(chunks) {
					continue
				}
				if s := doc.SectionAt(e.SourceOffset); s >= 0 && s != section {
					section = s
					fmt.Fprintf(out, "== %s ==\n", doc.Sections[s].Title)
				}
				fmt.Fprintf(out, "[%d/%d] %s\n", e.ChunkIndex+1, len(chunks), chunks[e.ChunkIndex].Text)
			case playback.EventCompleted:
				fmt.Fprintln(out, "completed")
				return nil
			case playback.EventErrored:
				return fmt.Errorf("narration failed: %w", e.Err)
			}
		}
	}
}

func runInteractive(ctx context.Context, out io.Writer, sched *playback.Scheduler, events <-chan playback.Event, chunks []chunk.Chunk, doc document.Document, voice playback.VoiceConfig) error {
	done := make(chan struct{})
	defer close(done)

	m := newReaderModel(sched, events, done, chunks, doc, voice)
	sched.Play(chunks, voice)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx), tea.WithOutput(out))
	final, err := p.Run()
	sched.Stop()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	if rm, ok := final.(readerModel); ok && rm.err != nil {
		return fmt.Errorf("narration failed: %w", rm.err)
	}
	return nil
}
