package document

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Decoder turns the bytes of one format into a Document.
type Decoder interface {
	Format() Format
	Decode(ctx context.Context, src Source) (Document, error)
}

// Registry dispatches a Source to the decoder registered for its detected
// format.
type Registry struct {
	mu       sync.RWMutex
	decoders map[Format]Decoder
	logger   *slog.Logger
}

// NewRegistry returns a registry holding the text, e-book and word decoders.
// A nil logger discards output.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With(slog.String("component", "document"))

	r := &Registry{
		decoders: make(map[Format]Decoder),
		logger:   logger,
	}
	r.Register(TextDecoder{})
	r.Register(&EPUBDecoder{Logger: logger})
	r.Register(&WordDecoder{Logger: logger})
	return r
}

// Register adds or replaces the decoder for d.Format().
func (r *Registry) Register(d Decoder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[d.Format()] = d
}

// Formats lists the formats with a registered decoder.
func (r *Registry) Formats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Format, 0, len(r.decoders))
	for f := range r.decoders {
		out = append(out, f)
	}
	slices.Sort(out)
	return out
}

// Decode detects the format of src and runs the matching decoder. The title
// falls back to the file name when the container carries none.
func (r *Registry) Decode(ctx context.Context, src Source) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}

	det := Detect(src.Filename, src.MediaType)
	if det.Format == FormatUnsupported {
		return Document{}, &UnsupportedFormatError{Format: det.Format, Reason: det.Reason}
	}

	r.mu.RLock()
	dec, ok := r.decoders[det.Format]
	r.mu.RUnlock()
	if !ok {
		return Document{}, &UnsupportedFormatError{Format: det.Format, Reason: "no decoder for " + det.Format.String()}
	}

	doc, err := dec.Decode(ctx, src)
	if err != nil {
		return Document{}, err
	}
	if doc.Title == "" {
		doc.Title = titleFromFilename(src.Filename)
	}
	r.logger.Debug("document decoded",
		slog.String("file", src.Filename),
		slog.String("format", doc.Format.String()),
		slog.Int("bytes", len(doc.Text)),
		slog.Int("sections", len(doc.Sections)),
	)
	return doc, nil
}

var defaultRegistry = NewRegistry(nil)

// Decode decodes src with the default registry.
func Decode(ctx context.Context, src Source) (Document, error) {
	return defaultRegistry.Decode(ctx, src)
}

func titleFromFilename(name string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
