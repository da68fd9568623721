package speech

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"
)

// CommandLister lists voices by running a command that prints an
// espeak-style voice table ("espeak-ng --voices").
type CommandLister struct {
	argv []string
}

// NewCommandLister parses command with shell quoting rules.
func NewCommandLister(command string) (*CommandLister, error) {
	args, err := shellwords.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse voices command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("voices command empty")
	}
	return &CommandLister{argv: args}, nil
}

func (l *CommandLister) ListVoices(ctx context.Context) ([]Voice, error) {
	out, err := exec.CommandContext(ctx, l.argv[0], l.argv[1:]...).Output()
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	return ParseVoiceTable(out)
}

// ParseVoiceTable parses the output of "espeak-ng --voices":
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  en-gb           --/M      English_(Great_Britain) gmw/en  (en 2)
func ParseVoiceTable(data []byte) ([]Voice, error) {
	var voices []Voice
	scanner := bufio.NewScanner(bytes.NewReader(data))
	header := true
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if header {
			header = false
			if strings.HasPrefix(line, "Pty") {
				continue
			}
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		v := Voice{
			ID:       fields[1],
			Name:     strings.ReplaceAll(fields[3], "_", " "),
			Language: fields[1],
		}
		if _, g, ok := strings.Cut(fields[2], "/"); ok {
			switch strings.ToUpper(g) {
			case "M":
				v.Gender = "Male"
			case "F":
				v.Gender = "Female"
			}
		}
		voices = append(voices, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return voices, nil
}

// StaticLister returns a fixed voice list.
type StaticLister []Voice

func (s StaticLister) ListVoices(context.Context) ([]Voice, error) {
	out := make([]Voice, len(s))
	copy(out, s)
	return out, nil
}
