package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yuanying/narrator/internal/chunk"
	"github.com/yuanying/narrator/internal/document"
	"github.com/yuanying/narrator/internal/playback"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#88AAFF"))

	currentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#3A3A00"))

	contextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#777777"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	controlsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true)

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)

	completeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555")).
			Bold(true)
)

type readerModel struct {
	sched  *playback.Scheduler
	events <-chan playback.Event
	done   <-chan struct{}
	chunks []chunk.Chunk
	doc    document.Document
	voice  playback.VoiceConfig

	state    playback.State
	index    int
	progress float64
	err      error

	quitting bool
	width    int
	height   int
}

type eventMsg playback.Event

type eventsDoneMsg struct{}

func newReaderModel(sched *playback.Scheduler, events <-chan playback.Event, done <-chan struct{}, chunks []chunk.Chunk, doc document.Document, voice playback.VoiceConfig) readerModel {
	return readerModel{
		sched:  sched,
		events: events,
		done:   done,
		chunks: chunks,
		doc:    doc,
		voice:  voice,
		width:  80,
		height: 24,
	}
}

func waitForEvent(events <-chan playback.Event, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case e := <-events:
			return eventMsg(e)
		case <-done:
			return eventsDoneMsg{}
		}
	}
}

func (m readerModel) Init() tea.Cmd {
	return waitForEvent(m.events, m.done)
}

func (m readerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case " ":
			if m.state == playback.Playing {
				m.sched.Pause()
			} else {
				m.err = nil
				m.sched.Play(m.chunks, m.voice)
			}
			return m, nil

		case "s", "S":
			m.sched.Stop()
			return m, nil

		case "r", "R":
			m.sched.Reset()
			return m, nil

		case "q", "Q", "ctrl+c", "esc":
			m.quitting = true
			m.sched.Stop()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case eventMsg:
		m.apply(playback.Event(msg))
		return m, waitForEvent(m.events, m.done)

	case eventsDoneMsg:
		return m, nil
	}

	return m, nil
}

func (m *readerModel) apply(e playback.Event) {
	switch e.Kind {
	case playback.EventState:
		m.state = e.State
		if e.State == playback.Idle {
			m.index = 0
			m.progress = 0
		}
	case playback.EventPosition:
		m.index = e.ChunkIndex
	case playback.EventProgress:
		m.progress = e.Progress
	case playback.EventCompleted:
		m.state = playback.Completed
		m.progress = 100
	case playback.EventErrored:
		m.err = e.Err
		m.state = e.State
	}
}

func (m readerModel) View() string {
	if m.quitting {
		return ""
	}

	width := max(m.width-4, 20)
	var sb strings.Builder

	title := m.doc.Title
	if title == "" {
		title = "Untitled"
	}
	sb.WriteString(titleStyle.Render(title))
	if len(m.doc.Authors) > 0 {
		sb.WriteString(contextStyle.Render(" by " + strings.Join(m.doc.Authors, ", ")))
	}
	sb.WriteString("\n")

	idx := min(max(m.index, 0), len(m.chunks)-1)
	current := m.chunks[idx]
	if s := m.doc.SectionAt(current.Start); s >= 0 {
		sb.WriteString(sectionStyle.Render(m.doc.Sections[s].Title))
	}
	sb.WriteString("\n\n")

	if idx > 0 {
		sb.WriteString(contextStyle.Width(width).Render(m.chunks[idx-1].Text))
		sb.WriteString("\n\n")
	}
	sb.WriteString(currentStyle.Width(width).Render(current.Text))
	sb.WriteString("\n\n")
	if idx+1 < len(m.chunks) {
		sb.WriteString(contextStyle.Width(width).Render(m.chunks[idx+1].Text))
		sb.WriteString("\n")
	}

	body := sb.String()
	lines := strings.Count(body, "\n")
	if pad := m.height - lines - 3; pad > 0 {
		body += strings.Repeat("\n", pad)
	}

	return body + "\n" + m.statusLine() + "\n" +
		controlsStyle.Render("SPACE: play/pause  S: stop  R: reset  Q: quit")
}

func (m readerModel) statusLine() string {
	var badge string
	switch {
	case m.err != nil:
		badge = errorStyle.Render(" [ERROR] " + m.err.Error())
	case m.state == playback.Paused:
		badge = pausedStyle.Render(" [PAUSED]")
	case m.state == playback.Completed:
		badge = completeStyle.Render(" [COMPLETE]")
	}
	voice := m.voice.VoiceID
	if voice == "" {
		voice = "default voice"
	}
	return statusStyle.Render(fmt.Sprintf("%s | chunk %d/%d | %.0f%% | %s x%.1f%s",
		m.state, min(m.index+1, len(m.chunks)), len(m.chunks), m.progress, voice, m.voice.Rate, badge))
}
