// Package config loads narrator settings from YAML with NARRATOR_*
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type PlaybackConfig struct {
	ChunkBudget       int `yaml:"chunk_budget"`
	InterChunkDelayMS int `yaml:"inter_chunk_delay_ms"`
}

type VoiceConfig struct {
	ID     string  `yaml:"id"`
	Rate   float64 `yaml:"rate"`
	Pitch  float64 `yaml:"pitch"`
	Volume float64 `yaml:"volume"`
}

type EngineConfig struct {
	Mode          string `yaml:"mode"` // mock, exec
	Command       string `yaml:"command"`
	VoicesCommand string `yaml:"voices_command"`
	Language      string `yaml:"language"`
	MockPaceMS    int    `yaml:"mock_pace_ms"`
}

type LibraryConfig struct {
	Path           string `yaml:"path"`
	ThumbnailWidth int    `yaml:"thumbnail_width"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Servers        []string `yaml:"servers"`
	SubjectPrefix  string   `yaml:"subject_prefix"`
	Token          string   `yaml:"token"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type TelemetryConfig struct {
	PrometheusBind string `yaml:"prometheus_bind"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Playback  PlaybackConfig  `yaml:"playback"`
	Voice     VoiceConfig     `yaml:"voice"`
	Engine    EngineConfig    `yaml:"engine"`
	Library   LibraryConfig   `yaml:"library"`
	Bus       BusConfig       `yaml:"bus"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Playback: PlaybackConfig{
			ChunkBudget:       200,
			InterChunkDelayMS: 100,
		},
		Voice: VoiceConfig{
			Rate:   1,
			Pitch:  1,
			Volume: 1,
		},
		Engine: EngineConfig{
			Mode:          "mock",
			Command:       "espeak-ng -v {voice} -s {wpm} -p {espeak_pitch} -a {espeak_amplitude}",
			VoicesCommand: "espeak-ng --voices",
			Language:      "en",
			MockPaceMS:    40,
		},
		Library: LibraryConfig{
			Path:           defaultLibraryPath(),
			ThumbnailWidth: 160,
		},
		Bus: BusConfig{
			Enabled:        false,
			Servers:        []string{"nats://localhost:4222"},
			SubjectPrefix:  "narrator",
			ConnectTimeout: 2000,
		},
	}
}

func defaultLibraryPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "narrator", "library.db")
	}
	return "./narrator-library.db"
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// InterChunkDelay returns the playback delay as a duration.
func (c Config) InterChunkDelay() time.Duration {
	return time.Duration(c.Playback.InterChunkDelayMS) * time.Millisecond
}

// Timeout returns the bus connect timeout as a duration.
func (c BusConfig) Timeout() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Millisecond
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Log.Level, "NARRATOR_LOG_LEVEL")
	overrideString(&cfg.Log.Format, "NARRATOR_LOG_FORMAT")
	overrideInt(&cfg.Playback.ChunkBudget, "NARRATOR_PLAYBACK_CHUNK_BUDGET")
	overrideInt(&cfg.Playback.InterChunkDelayMS, "NARRATOR_PLAYBACK_INTER_CHUNK_DELAY_MS")
	overrideString(&cfg.Voice.ID, "NARRATOR_VOICE_ID")
	overrideFloat(&cfg.Voice.Rate, "NARRATOR_VOICE_RATE")
	overrideFloat(&cfg.Voice.Pitch, "NARRATOR_VOICE_PITCH")
	overrideFloat(&cfg.Voice.Volume, "NARRATOR_VOICE_VOLUME")
	overrideString(&cfg.Engine.Mode, "NARRATOR_ENGINE_MODE")
	overrideString(&cfg.Engine.Command, "NARRATOR_ENGINE_COMMAND")
	overrideString(&cfg.Engine.VoicesCommand, "NARRATOR_ENGINE_VOICES_COMMAND")
	overrideString(&cfg.Engine.Language, "NARRATOR_ENGINE_LANGUAGE")
	overrideInt(&cfg.Engine.MockPaceMS, "NARRATOR_ENGINE_MOCK_PACE_MS")
	overrideString(&cfg.Library.Path, "NARRATOR_LIBRARY_PATH")
	overrideInt(&cfg.Library.ThumbnailWidth, "NARRATOR_LIBRARY_THUMBNAIL_WIDTH")
	overrideBool(&cfg.Bus.Enabled, "NARRATOR_BUS_ENABLED")
	overrideStringSlice(&cfg.Bus.Servers, "NARRATOR_BUS_SERVERS")
	overrideString(&cfg.Bus.SubjectPrefix, "NARRATOR_BUS_SUBJECT_PREFIX")
	overrideString(&cfg.Bus.Token, "NARRATOR_BUS_TOKEN")
	overrideInt(&cfg.Bus.ConnectTimeout, "NARRATOR_BUS_CONNECT_TIMEOUT_MS")
	overrideString(&cfg.Telemetry.PrometheusBind, "NARRATOR_TELEMETRY_PROMETHEUS_BIND")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideFloat(target *float64, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		var trimmed []string
		for _, p := range strings.Split(value, ",") {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

func validate(cfg Config) error {
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.New("log.level must be one of debug|info|warn|error")
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "text", "json":
	default:
		return errors.New("log.format must be one of text|json")
	}
	if cfg.Playback.ChunkBudget <= 0 {
		return errors.New("playback.chunk_budget must be positive")
	}
	if cfg.Playback.InterChunkDelayMS < 0 {
		return errors.New("playback.inter_chunk_delay_ms must be >= 0")
	}
	if cfg.Voice.Rate < 0.5 || cfg.Voice.Rate > 2 {
		return errors.New("voice.rate must be between 0.5 and 2.0")
	}
	if cfg.Voice.Pitch < 0.5 || cfg.Voice.Pitch > 2 {
		return errors.New("voice.pitch must be between 0.5 and 2.0")
	}
	if cfg.Voice.Volume < 0 || cfg.Voice.Volume > 1 {
		return errors.New("voice.volume must be between 0 and 1")
	}
	switch cfg.Engine.Mode {
	case "mock":
		if cfg.Engine.MockPaceMS <= 0 {
			return errors.New("engine.mock_pace_ms must be positive when mode=mock")
		}
	case "exec":
		if strings.TrimSpace(cfg.Engine.Command) == "" {
			return errors.New("engine.command must be set when mode=exec")
		}
	default:
		return errors.New("engine.mode must be one of mock|exec")
	}
	if cfg.Library.Path == "" {
		return errors.New("library.path must not be empty")
	}
	if cfg.Library.ThumbnailWidth <= 0 {
		return errors.New("library.thumbnail_width must be positive")
	}
	if cfg.Bus.Enabled {
		if len(cfg.Bus.Servers) == 0 {
			return errors.New("bus.servers must not be empty when the bus is enabled")
		}
		if strings.TrimSpace(cfg.Bus.SubjectPrefix) == "" {
			return errors.New("bus.subject_prefix must not be empty when the bus is enabled")
		}
		if cfg.Bus.ConnectTimeout <= 0 {
			return errors.New("bus.connect_timeout_ms must be positive")
		}
	}
	return nil
}
