package speech

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// Voice describes one voice offered by the speech engine.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Gender   string `json:"gender"`
}

// VoiceLister enumerates the voices currently installed.
type VoiceLister interface {
	ListVoices(ctx context.Context) ([]Voice, error)
}

// VoiceListerFunc adapts a function to a VoiceLister.
type VoiceListerFunc func(ctx context.Context) ([]Voice, error)

func (f VoiceListerFunc) ListVoices(ctx context.Context) ([]Voice, error) { return f(ctx) }

// Catalog is the process-wide voice list. It is filled by Refresh, kept
// current by Watch and read by everything else.
type Catalog struct {
	lister VoiceLister
	base   language.Base
	filter bool
	log    *slog.Logger

	mu     sync.RWMutex
	voices []Voice
}

// NewCatalog returns an empty catalog. When lang is a valid BCP 47 tag only
// voices of the same base language are kept.
func NewCatalog(lister VoiceLister, lang string, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Catalog{
		lister: lister,
		log:    logger.With(slog.String("component", "voice-catalog")),
	}
	if lang = strings.TrimSpace(lang); lang != "" {
		if tag, err := language.Parse(lang); err == nil {
			c.base, _ = tag.Base()
			c.filter = true
		} else {
			c.log.Warn("ignoring invalid voice language filter", slog.String("language", lang))
		}
	}
	return c
}

// Refresh replaces the voice list with the lister's current output.
func (c *Catalog) Refresh(ctx context.Context) error {
	listed, err := c.lister.ListVoices(ctx)
	if err != nil {
		return err
	}

	voices := make([]Voice, 0, len(listed))
	for _, v := range listed {
		if c.filter && !c.matches(v.Language) {
			continue
		}
		if v.Gender == "" {
			v.Gender = GuessGender(v.Name)
		}
		voices = append(voices, v)
	}

	c.mu.Lock()
	c.voices = voices
	c.mu.Unlock()
	c.log.Debug("voice catalog refreshed", slog.Int("voices", len(voices)), slog.Int("listed", len(listed)))
	return nil
}

// Watch refreshes the catalog each time changes delivers a value, until ctx
// is done or changes is closed. Refresh failures keep the previous list.
func (c *Catalog) Watch(ctx context.Context, changes <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			if err := c.Refresh(ctx); err != nil {
				c.log.Warn("voice catalog refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Voices returns a copy of the current list.
func (c *Catalog) Voices() []Voice {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Voice, len(c.voices))
	copy(out, c.voices)
	return out
}

// Lookup finds a voice by id or, failing that, by case-insensitive name.
func (c *Catalog) Lookup(idOrName string) (Voice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, v := range c.voices {
		if v.ID == idOrName {
			return v, true
		}
	}
	for _, v := range c.voices {
		if strings.EqualFold(v.Name, idOrName) {
			return v, true
		}
	}
	return Voice{}, false
}

// Default returns the first voice in the list.
func (c *Catalog) Default() (Voice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.voices) == 0 {
		return Voice{}, false
	}
	return c.voices[0], true
}

func (c *Catalog) matches(lang string) bool {
	tag, err := language.Parse(strings.ReplaceAll(lang, "_", "-"))
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	return base == c.base
}

// GuessGender infers a gender label from a voice name.
func GuessGender(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "female") || strings.Contains(lower, "woman"):
		return "Female"
	case strings.Contains(lower, "male") || strings.Contains(lower, "man"):
		return "Male"
	}
	return "Unknown"
}
