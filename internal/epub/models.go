package epub

// OPF represents the parsed Open Package Format document
type OPF struct {
	Version       string
	Metadata      Metadata
	Manifest      map[string]ManifestItem // id -> item
	ManifestOrder []string                // manifest ids in declaration order
	Spine         []SpineItem
	Guide         []GuideReference
	Dir           string // directory of the package document within the archive
}

// Metadata represents the metadata section of the OPF
type Metadata struct {
	Title       string
	Creators    []Creator
	Language    string
	Identifier  string
	Publisher   string
	Date        string
	Description string
	Subjects    []string
	Rights      string
	CoverID     string // EPUB 2.0 cover image manifest item ID (from meta name="cover")
}

// Creator represents a creator (author, editor, etc.) of the book
type Creator struct {
	Name string
	Role string // e.g., "aut" for author, "edt" for editor
	Lang string // xml:lang attribute
}

// ManifestItem represents an item in the manifest. Href is resolved against
// the package document's directory.
type ManifestItem struct {
	ID         string
	Href       string
	MediaType  string
	Properties []string
}

// SpineItem represents an item reference in the spine
type SpineItem struct {
	IDRef  string
	Linear bool
}

// GuideReference represents an EPUB 2.0 guide reference
type GuideReference struct {
	Type  string
	Title string
	Href  string
}

// Authors returns the creator names in declaration order.
func (m Metadata) Authors() []string {
	var names []string
	for _, c := range m.Creators {
		if c.Name != "" {
			names = append(names, c.Name)
		}
	}
	return names
}
