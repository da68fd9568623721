package epub

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
)

var (
	ErrPackageNotFound = errors.New("package document (.opf) not found")
	ErrFileNotFound    = errors.New("file not found in archive")
)

// Archive provides access to the entries of an e-book container.
type Archive struct {
	zipReader *zip.Reader
	files     map[string]*zip.File
	order     []string
}

// OpenBytes opens an in-memory e-book container.
func OpenBytes(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return newArchive(zr), nil
}

func newArchive(zr *zip.Reader) *Archive {
	a := &Archive{
		zipReader: zr,
		files:     make(map[string]*zip.File, len(zr.File)),
	}

	// Build file map with normalized paths; the first entry wins on duplicates
	for _, f := range zr.File {
		name := normalizePath(f.Name)
		if _, dup := a.files[name]; dup {
			continue
		}
		a.files[name] = f
		a.order = append(a.order, name)
	}
	return a
}

// Files returns the normalized entry paths in archive order.
func (a *Archive) Files() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Has reports whether the archive contains an entry at path.
func (a *Archive) Has(p string) bool {
	_, ok := a.files[normalizePath(p)]
	return ok
}

// FindPackage returns the path of the package document: the first entry in
// archive order whose name ends in ".opf" or contains "content.opf".
func (a *Archive) FindPackage() (string, error) {
	for _, name := range a.order {
		lower := strings.ToLower(name)
		if strings.HasSuffix(lower, ".opf") || strings.Contains(lower, "content.opf") {
			return name, nil
		}
	}
	return "", ErrPackageNotFound
}

// ReadFile reads the contents of an entry. A percent-encoded path that does
// not match any entry is retried unescaped.
func (a *Archive) ReadFile(p string) ([]byte, error) {
	p = normalizePath(p)
	f, ok := a.files[p]
	if !ok {
		if unescaped, err := url.PathUnescape(p); err == nil && unescaped != p {
			f, ok = a.files[unescaped]
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, p)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", p, err)
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// PackageDir returns the directory of the package document ("" at the root).
func PackageDir(opfPath string) string {
	dir := path.Dir(opfPath)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

// normalizePath normalizes entry paths (slash separators, no ./ or / prefix)
func normalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")
	return p
}
