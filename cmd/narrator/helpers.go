package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-isatty"

	"github.com/yuanying/narrator/internal/document"
)

func readSource(path string) (document.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return document.Source{}, fmt.Errorf("read %s: %w", path, err)
	}
	return document.Source{Filename: filepath.Base(path), Data: data}, nil
}

func decodeSource(ctx context.Context, src document.Source, log *slog.Logger) (document.Document, error) {
	doc, err := document.NewRegistry(log).Decode(ctx, src)
	if err != nil {
		return document.Document{}, fmt.Errorf("%s: %w", src.Filename, err)
	}
	return doc, nil
}

func decodeFile(ctx context.Context, path string, log *slog.Logger) (document.Source, document.Document, error) {
	src, err := readSource(path)
	if err != nil {
		return document.Source{}, document.Document{}, err
	}
	doc, err := decodeSource(ctx, src, log)
	return src, doc, err
}

// truncate shortens s to at most n runes, collapsing line breaks.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:max(n-1, 0)]) + "…"
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
