package epub

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/yuanying/narrator/internal/textutil"
)

// Content represents the readable text of one spine document
type Content struct {
	ID    string // Manifest ID
	Path  string // File path within the archive
	Title string // First heading, else the document <title>
	Text  string // Normalized prose
}

// LoadContent decodes and normalizes an XHTML content file.
// id: manifest item ID
// path: file path within the archive
// content: raw file content
func LoadContent(id, path string, content []byte) (*Content, error) {
	markup, err := textutil.DecodeBytes(content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse XHTML: %w", err)
	}

	title := headingTitle(doc)
	return &Content{
		ID:    id,
		Path:  path,
		Title: title,
		Text:  textutil.DocumentText(doc),
	}, nil
}

// headingTitle returns the text of the first h1, h2 or h3, falling back to
// the document title.
func headingTitle(doc *goquery.Document) string {
	var title string
	doc.Find("h1, h2, h3").EachWithBreak(func(i int, s *goquery.Selection) bool {
		title = textutil.CollapseWhitespace(s.Text())
		return title == ""
	})
	if title != "" {
		return title
	}
	return textutil.CollapseWhitespace(doc.Find("title").First().Text())
}
