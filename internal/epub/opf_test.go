package epub

import (
	"errors"
	"testing"
)

func TestParseOPF_EPUB20(t *testing.T) {
	opfContent := `<?xml version="1.0" encoding="UTF-8"?>
<package version="2.0" xmlns="http://www.idpf.org/2007/opf" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
    <dc:title>Sample Book Title</dc:title>
    <dc:creator opf:role="aut">John Doe</dc:creator>
    <dc:creator opf:role="edt">Jane Editor</dc:creator>
    <dc:language>en</dc:language>
    <dc:identifier id="other">urn:uuid:0000</dc:identifier>
    <dc:identifier id="bookid">urn:isbn:1234567890</dc:identifier>
    <dc:subject>Fiction</dc:subject>
    <dc:subject>Adventure</dc:subject>
    <meta name="cover" content="cover-image"/>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="cover-image" href="images/cover.jpg" media-type="image/jpeg"/>
    <item id="chapter1" href="text/chapter1.xhtml" media-type="application/xhtml+xml"/>
    <item id="chapter2" href="text/chapter2.xhtml#start" media-type="application/xhtml+xml"/>
  </manifest>
  <spine toc="ncx">
    <itemref idref="chapter1"/>
    <itemref idref="chapter2" linear="no"/>
  </spine>
</package>`

	opf, err := ParseOPF([]byte(opfContent), "OEBPS")
	if err != nil {
		t.Fatalf("ParseOPF failed: %v", err)
	}

	if opf.Version != "2.0" {
		t.Errorf("Version = %q, want %q", opf.Version, "2.0")
	}
	if opf.Metadata.Title != "Sample Book Title" {
		t.Errorf("Title = %q, want %q", opf.Metadata.Title, "Sample Book Title")
	}
	if len(opf.Metadata.Creators) != 2 {
		t.Fatalf("Creators count = %d, want 2", len(opf.Metadata.Creators))
	}
	if opf.Metadata.Creators[1].Role != "edt" {
		t.Errorf("Creator[1].Role = %q, want %q", opf.Metadata.Creators[1].Role, "edt")
	}
	authors := opf.Metadata.Authors()
	if len(authors) != 2 || authors[0] != "John Doe" {
		t.Errorf("Authors() = %v, want [John Doe Jane Editor]", authors)
	}
	if opf.Metadata.Identifier != "urn:isbn:1234567890" {
		t.Errorf("Identifier = %q, want %q", opf.Metadata.Identifier, "urn:isbn:1234567890")
	}
	if opf.Metadata.CoverID != "cover-image" {
		t.Errorf("CoverID = %q, want %q", opf.Metadata.CoverID, "cover-image")
	}
	if len(opf.Metadata.Subjects) != 2 {
		t.Errorf("Subjects count = %d, want 2", len(opf.Metadata.Subjects))
	}

	if got := opf.Manifest["chapter1"].Href; got != "OEBPS/text/chapter1.xhtml" {
		t.Errorf("chapter1.Href = %q, want %q", got, "OEBPS/text/chapter1.xhtml")
	}
	if got := opf.Manifest["chapter2"].Href; got != "OEBPS/text/chapter2.xhtml" {
		t.Errorf("chapter2.Href = %q, want fragment stripped", got)
	}

	expectedOrder := []string{"ncx", "cover-image", "chapter1", "chapter2"}
	if len(opf.ManifestOrder) != len(expectedOrder) {
		t.Fatalf("ManifestOrder count = %d, want %d", len(opf.ManifestOrder), len(expectedOrder))
	}
	for i, id := range expectedOrder {
		if opf.ManifestOrder[i] != id {
			t.Errorf("ManifestOrder[%d] = %q, want %q", i, opf.ManifestOrder[i], id)
		}
	}

	if len(opf.Spine) != 2 {
		t.Fatalf("Spine count = %d, want 2", len(opf.Spine))
	}
	if !opf.Spine[0].Linear || opf.Spine[1].Linear {
		t.Errorf("Spine linear flags = %v, %v, want true, false", opf.Spine[0].Linear, opf.Spine[1].Linear)
	}
}

func TestParseOPF_EPUB30CreatorRoles(t *testing.T) {
	opfContent := `<?xml version="1.0" encoding="UTF-8"?>
<package version="3.0" xmlns="http://www.idpf.org/2007/opf">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>EPUB 3 Book</dc:title>
    <dc:creator id="creator01">Author Name</dc:creator>
    <meta refines="#creator01" property="role" scheme="marc:relators">aut</meta>
  </metadata>
  <manifest>
    <item id="cover" href="cover.png" media-type="image/png" properties="cover-image"/>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav scripted"/>
  </manifest>
  <spine><itemref idref="nav"/></spine>
</package>`

	opf, err := ParseOPF([]byte(opfContent), "")
	if err != nil {
		t.Fatalf("ParseOPF failed: %v", err)
	}
	if opf.Metadata.Creators[0].Role != "aut" {
		t.Errorf("Creator[0].Role = %q, want %q", opf.Metadata.Creators[0].Role, "aut")
	}
	nav := opf.Manifest["nav"]
	if nav.Href != "nav.xhtml" {
		t.Errorf("nav.Href = %q, want %q", nav.Href, "nav.xhtml")
	}
	if len(nav.Properties) != 2 || nav.Properties[1] != "scripted" {
		t.Errorf("nav.Properties = %v, want [nav scripted]", nav.Properties)
	}
}

func TestParseOPF_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "malformed xml",
			content: `<package><manifest>`,
			wantErr: ErrMalformedPackage,
		},
		{
			name:    "missing manifest",
			content: `<package><spine><itemref idref="a"/></spine></package>`,
			wantErr: ErrManifestMissing,
		},
		{
			name:    "missing spine",
			content: `<package><manifest><item id="a" href="a.xhtml"/></manifest></package>`,
			wantErr: ErrSpineMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOPF([]byte(tt.content), "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseOPF() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseOPF_DuplicateManifestIDFirstWins(t *testing.T) {
	content := `<package>
  <manifest>
    <item id="a" href="first.xhtml" media-type="application/xhtml+xml"/>
    <item id="a" href="second.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine><itemref idref="a"/></spine>
</package>`

	opf, err := ParseOPF([]byte(content), "")
	if err != nil {
		t.Fatalf("ParseOPF failed: %v", err)
	}
	if got := opf.Manifest["a"].Href; got != "first.xhtml" {
		t.Errorf("Manifest[a].Href = %q, want %q", got, "first.xhtml")
	}
	if len(opf.ManifestOrder) != 1 {
		t.Errorf("ManifestOrder count = %d, want 1", len(opf.ManifestOrder))
	}
}

func TestOPF_ReadingOrder(t *testing.T) {
	content := `<package>
  <manifest>
    <item id="ch1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="text/ch2.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="ch2"/>
    <itemref idref="ghost"/>
    <itemref idref="ch1"/>
  </spine>
</package>`

	opf, err := ParseOPF([]byte(content), "OPS")
	if err != nil {
		t.Fatalf("ParseOPF failed: %v", err)
	}

	items, missing := opf.ReadingOrder()
	if len(items) != 2 {
		t.Fatalf("ReadingOrder() items = %d, want 2", len(items))
	}
	if items[0].Href != "OPS/text/ch2.xhtml" || items[1].Href != "OPS/text/ch1.xhtml" {
		t.Errorf("ReadingOrder() = [%q %q], want spine order", items[0].Href, items[1].Href)
	}
	if len(missing) != 1 || missing[0] != "ghost" {
		t.Errorf("ReadingOrder() missing = %v, want [ghost]", missing)
	}
}

func TestParseOPF_GuideReferences(t *testing.T) {
	opfContent := `<package version="2.0" xmlns="http://www.idpf.org/2007/opf">
  <manifest>
    <item id="cover-page" href="text/cover.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine><itemref idref="cover-page"/></spine>
  <guide>
    <reference type="cover" title="Cover" href="text/cover.xhtml#top"/>
    <reference type="toc" title="Table of Contents" href="toc.xhtml"/>
  </guide>
</package>`

	opf, err := ParseOPF([]byte(opfContent), "OEBPS")
	if err != nil {
		t.Fatalf("ParseOPF failed: %v", err)
	}
	if len(opf.Guide) != 2 {
		t.Fatalf("Guide count = %d, want 2", len(opf.Guide))
	}
	if opf.Guide[0].Href != "OEBPS/text/cover.xhtml" {
		t.Errorf("Guide[0].Href = %q, want %q", opf.Guide[0].Href, "OEBPS/text/cover.xhtml")
	}
	if opf.Guide[1].Title != "Table of Contents" {
		t.Errorf("Guide[1].Title = %q, want %q", opf.Guide[1].Title, "Table of Contents")
	}
}

func TestJoinPath(t *testing.T) {
	tests := []struct {
		name string
		base string
		rel  string
		want string
	}{
		{"basic join", "OEBPS", "text/chapter1.xhtml", "OEBPS/text/chapter1.xhtml"},
		{"empty base", "", "chapter.xhtml", "chapter.xhtml"},
		{"parent segments", "OEBPS/text", "../images/cover.jpg", "OEBPS/images/cover.jpg"},
		{"dot segments", "OEBPS", "./text/ch1.xhtml", "OEBPS/text/ch1.xhtml"},
		{"fragment stripped", "OEBPS", "ch1.xhtml#p3", "OEBPS/ch1.xhtml"},
		{"absolute href", "OEBPS", "/root.xhtml", "root.xhtml"},
		{"fragment only", "OEBPS", "#top", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinPath(tt.base, tt.rel); got != tt.want {
				t.Errorf("joinPath(%q, %q) = %q, want %q", tt.base, tt.rel, got, tt.want)
			}
		})
	}
}
