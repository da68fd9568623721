// Package library keeps previously opened documents in a SQLite database so
// they can be narrated again without the original file.
package library

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/yuanying/narrator/internal/document"
)

// ErrNotFound is returned when no entry has the requested id.
var ErrNotFound = errors.New("library entry not found")

// Entry is a saved document. Data is only populated by Get.
type Entry struct {
	ID                 string
	Title              string
	Author             string
	Format             document.Format
	Source             string
	MediaType          string
	WordCount          int
	Thumbnail          []byte
	ThumbnailMediaType string
	AddedAt            time.Time
	Data               []byte
}

// Store wraps a SQLite-backed document library.
type Store struct {
	db     *sql.DB
	thumbs *Thumbnailer
	log    *slog.Logger
	clock  func() time.Time
}

// Open creates the database file and schema when missing.
func Open(ctx context.Context, path string, thumbnailWidth int, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create library dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{
		db:     db,
		thumbs: NewThumbnailer(thumbnailWidth),
		log:    log.With(slog.String("component", "library")),
		clock:  time.Now,
	}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    author TEXT NOT NULL,
    format TEXT NOT NULL,
    source TEXT NOT NULL,
    media_type TEXT NOT NULL,
    word_count INTEGER NOT NULL,
    thumbnail BLOB,
    thumbnail_media_type TEXT NOT NULL,
    added_at INTEGER NOT NULL,
    data BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_added ON documents(added_at);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("init library schema: %w", err)
	}
	return nil
}

// Close releases underlying resources.
func (s *Store) Close() error {
	return s.db.Close()
}

// ContentID is the library key for raw document bytes.
func ContentID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Save stores src together with metadata from its decoded form. Saving the
// same bytes again refreshes the metadata and keeps the original AddedAt.
func (s *Store) Save(ctx context.Context, src document.Source, doc *document.Document) (Entry, error) {
	if doc == nil {
		return Entry{}, errors.New("save: nil document")
	}
	e := Entry{
		ID:        ContentID(src.Data),
		Title:     doc.Title,
		Author:    strings.Join(doc.Authors, ", "),
		Format:    doc.Format,
		Source:    src.Filename,
		MediaType: src.MediaType,
		WordCount: len(strings.Fields(doc.Text)),
		AddedAt:   s.clock().UTC().Truncate(time.Millisecond),
		Data:      src.Data,
	}
	if doc.Cover != nil && len(doc.Cover.Data) > 0 {
		thumb, err := s.thumbs.Make(doc.Cover.Data)
		if err != nil {
			s.log.Warn("cover thumbnail skipped",
				slog.String("href", doc.Cover.Href),
				slog.String("error", err.Error()))
		} else {
			e.Thumbnail = thumb.Data
			e.ThumbnailMediaType = thumb.MediaType
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents(id, title, author, format, source, media_type, word_count, thumbnail, thumbnail_media_type, added_at, data)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title=excluded.title, author=excluded.author, format=excluded.format,
		   source=excluded.source, media_type=excluded.media_type, word_count=excluded.word_count,
		   thumbnail=excluded.thumbnail, thumbnail_media_type=excluded.thumbnail_media_type`,
		e.ID, e.Title, e.Author, string(e.Format), e.Source, e.MediaType, e.WordCount,
		e.Thumbnail, e.ThumbnailMediaType, e.AddedAt.UnixMilli(), e.Data)
	if err != nil {
		return Entry{}, fmt.Errorf("save %s: %w", e.Source, err)
	}

	var added int64
	if err := s.db.QueryRowContext(ctx, `SELECT added_at FROM documents WHERE id = ?`, e.ID).Scan(&added); err != nil {
		return Entry{}, fmt.Errorf("save %s: %w", e.Source, err)
	}
	e.AddedAt = time.UnixMilli(added).UTC()
	s.log.Debug("document saved", slog.String("id", e.ID), slog.String("title", e.Title))
	return e, nil
}

const entryColumns = `id, title, author, format, source, media_type, word_count, thumbnail, thumbnail_media_type, added_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner, extra ...any) (Entry, error) {
	var e Entry
	var format string
	var added int64
	dest := []any{&e.ID, &e.Title, &e.Author, &format, &e.Source, &e.MediaType, &e.WordCount, &e.Thumbnail, &e.ThumbnailMediaType, &added}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Entry{}, err
	}
	e.Format = document.Format(format)
	e.AddedAt = time.UnixMilli(added).UTC()
	return e, nil
}

// List returns every entry, newest first, without document bytes.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM documents ORDER BY added_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list library: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list library: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns the entry with its stored document bytes. A unique id prefix
// is accepted.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	id, err := s.resolve(ctx, id)
	if err != nil {
		return Entry{}, err
	}
	var data []byte
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+`, data FROM documents WHERE id = ?`, id)
	e, err := scanEntry(row, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("get %s: %w", id, err)
	}
	e.Data = data
	return e, nil
}

// Remove deletes the entry. A unique id prefix is accepted.
func (s *Store) Remove(ctx context.Context, id string) error {
	id, err := s.resolve(ctx, id)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("remove %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.log.Debug("document removed", slog.String("id", id))
	return nil
}

// resolve expands an id prefix to the full id.
func (s *Store) resolve(ctx context.Context, prefix string) (string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", fmt.Errorf("%w: empty id", ErrNotFound)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM documents WHERE substr(id, 1, ?) = ? LIMIT 2`, len(prefix), prefix)
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", prefix, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("lookup %s: %w", prefix, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("lookup %s: %w", prefix, err)
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("ambiguous id prefix %q", prefix)
	}
}
