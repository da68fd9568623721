package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/yuanying/narrator/internal/config"
	"github.com/yuanying/narrator/internal/library"
	"github.com/yuanying/narrator/internal/logging"
	"github.com/yuanying/narrator/internal/playback"
	"github.com/yuanying/narrator/internal/speech"
)

type commandContext struct {
	configFlag *string
	logWriter  io.Writer

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	log        *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		logWriter:  os.Stderr,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = &cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.log = logging.Discard()
			return
		}
		logger, err := logging.New(logging.Options{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			Writer: c.logWriter,
		})
		if err != nil {
			c.log = logging.Discard()
			return
		}
		c.log = logger
	})
	return c.log
}

// mockVoices is the catalog offered in mock mode.
var mockVoices = speech.StaticLister{
	{ID: "mock-en-f", Name: "Mock English Female", Language: "en-US"},
	{ID: "mock-en-m", Name: "Mock English Male", Language: "en-GB"},
	{ID: "mock-fr", Name: "Mock French", Language: "fr-FR"},
}

func (c *commandContext) newEngine() (playback.Engine, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	switch cfg.Engine.Mode {
	case "exec":
		return speech.NewExec(cfg.Engine.Command, c.logger())
	case "mock":
		return speech.NewMock(time.Duration(cfg.Engine.MockPaceMS) * time.Millisecond), nil
	default:
		return nil, fmt.Errorf("unknown engine mode %q", cfg.Engine.Mode)
	}
}

// newCatalog returns a refreshed voice catalog. A failed refresh leaves the
// catalog empty and is only logged.
func (c *commandContext) newCatalog(ctx context.Context) (*speech.Catalog, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	var lister speech.VoiceLister = mockVoices
	if cfg.Engine.Mode == "exec" {
		cl, err := speech.NewCommandLister(cfg.Engine.VoicesCommand)
		if err != nil {
			return nil, err
		}
		lister = cl
	}
	catalog := speech.NewCatalog(lister, cfg.Engine.Language, c.logger())
	if err := catalog.Refresh(ctx); err != nil {
		c.logger().Warn("voice list unavailable", slog.String("error", err.Error()))
	}
	return catalog, nil
}

func (c *commandContext) withLibrary(ctx context.Context, fn func(*library.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := library.Open(ctx, cfg.Library.Path, cfg.Library.ThumbnailWidth, c.logger())
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	defer store.Close()
	return fn(store)
}
