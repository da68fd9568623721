package document

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		mediaType  string
		wantFormat Format
		wantReason string
	}{
		{"text by media type", "notes", "text/plain", FormatText, ""},
		{"media type with parameters", "notes.bin", "text/plain; charset=utf-8", FormatText, ""},
		{"epub by media type", "book", MediaTypeEPUB, FormatEPUB, ""},
		{"word by media type", "x", MediaTypeWord, FormatWord, ""},
		{"pdf by media type", "paper.txt", MediaTypePDF, FormatUnsupported, reasonPDF},
		{"media type wins over extension", "book.txt", MediaTypeEPUB, FormatEPUB, ""},
		{"txt extension", "notes.txt", "", FormatText, ""},
		{"upper-case extension", "BOOK.EPUB", "", FormatEPUB, ""},
		{"docx extension", "report.docx", "application/octet-stream", FormatWord, ""},
		{"pdf extension", "paper.pdf", "", FormatUnsupported, reasonPDF},
		{"unknown extension", "image.png", "image/png", FormatUnsupported, reasonUnknown},
		{"no extension", "README", "", FormatUnsupported, reasonUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.filename, tt.mediaType)
			if got.Format != tt.wantFormat {
				t.Errorf("Detect(%q, %q).Format = %q, want %q", tt.filename, tt.mediaType, got.Format, tt.wantFormat)
			}
			if got.Reason != tt.wantReason {
				t.Errorf("Detect(%q, %q).Reason = %q, want %q", tt.filename, tt.mediaType, got.Reason, tt.wantReason)
			}
		})
	}
}

func TestMediaTypeFor(t *testing.T) {
	for _, f := range []Format{FormatText, FormatEPUB, FormatWord} {
		if got := Detect("", MediaTypeFor(f)).Format; got != f {
			t.Errorf("Detect(MediaTypeFor(%q)) = %q", f, got)
		}
	}
	if got := MediaTypeFor(FormatUnsupported); got != "" {
		t.Errorf("MediaTypeFor(unsupported) = %q, want empty", got)
	}
}

func TestDocument_SectionAt(t *testing.T) {
	doc := Document{Sections: []Section{{Offset: 0}, {Offset: 10}, {Offset: 25}}}
	tests := []struct {
		offset int
		want   int
	}{
		{0, 0}, {9, 0}, {10, 1}, {24, 1}, {25, 2}, {1000, 2},
	}
	for _, tt := range tests {
		if got := doc.SectionAt(tt.offset); got != tt.want {
			t.Errorf("SectionAt(%d) = %d, want %d", tt.offset, got, tt.want)
		}
	}
	if got := (Document{}).SectionAt(5); got != -1 {
		t.Errorf("SectionAt() without sections = %d, want -1", got)
	}
}
