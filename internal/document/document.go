// Package document detects the format of an uploaded file and decodes it into
// plain text with the metadata a reader needs.
package document

// Format identifies a decodable document format.
type Format string

const (
	FormatText        Format = "text"
	FormatEPUB        Format = "epub"
	FormatWord        Format = "word"
	FormatUnsupported Format = "unsupported"
)

func (f Format) String() string {
	return string(f)
}

// Source is the raw input handed to the decoder.
type Source struct {
	Filename  string
	MediaType string
	Data      []byte
}

// Document is the decoded, immutable result of a successful decode. Offsets
// in Sections are byte offsets into Text.
type Document struct {
	Text     string    `json:"text"`
	Format   Format    `json:"format"`
	Title    string    `json:"title,omitempty"`
	Authors  []string  `json:"authors,omitempty"`
	Language string    `json:"language,omitempty"`
	Sections []Section `json:"sections,omitempty"`
	Cover    *Cover    `json:"-"`
}

// Section marks where one spine document starts within Document.Text.
type Section struct {
	Title  string `json:"title"`
	Href   string `json:"href"`
	Offset int    `json:"offset"`
}

// Cover is a raw cover image extracted from a container.
type Cover struct {
	Href      string
	MediaType string
	Data      []byte
}

// SectionAt returns the index of the section containing byte offset, or -1
// when the document has no sections.
func (d Document) SectionAt(offset int) int {
	idx := -1
	for i, s := range d.Sections {
		if s.Offset > offset {
			break
		}
		idx = i
	}
	if idx < 0 && len(d.Sections) > 0 {
		return 0
	}
	return idx
}
