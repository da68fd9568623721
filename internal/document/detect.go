package document

import (
	"mime"
	"path/filepath"
	"strings"
)

const (
	MediaTypeText = "text/plain"
	MediaTypeEPUB = "application/epub+zip"
	MediaTypeWord = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaTypePDF  = "application/pdf"
)

const (
	reasonPDF     = "pdf requires server-side processing"
	reasonUnknown = "unsupported file format"
)

// Detection is the result of format detection.
type Detection struct {
	Format Format
	Reason string // set when Format is FormatUnsupported
}

var mediaTypes = map[string]Detection{
	MediaTypeText: {Format: FormatText},
	MediaTypeEPUB: {Format: FormatEPUB},
	MediaTypeWord: {Format: FormatWord},
	MediaTypePDF:  {Format: FormatUnsupported, Reason: reasonPDF},
}

var extensions = map[string]Detection{
	".txt":  {Format: FormatText},
	".epub": {Format: FormatEPUB},
	".docx": {Format: FormatWord},
	".pdf":  {Format: FormatUnsupported, Reason: reasonPDF},
}

// Detect classifies an input by its declared media type, falling back to the
// filename extension.
func Detect(filename, mediaType string) Detection {
	if mt := baseMediaType(mediaType); mt != "" {
		if d, ok := mediaTypes[mt]; ok {
			return d
		}
	}
	if d, ok := extensions[strings.ToLower(filepath.Ext(filename))]; ok {
		return d
	}
	return Detection{Format: FormatUnsupported, Reason: reasonUnknown}
}

// MediaTypeFor returns the canonical media type of a format.
func MediaTypeFor(f Format) string {
	switch f {
	case FormatText:
		return MediaTypeText
	case FormatEPUB:
		return MediaTypeEPUB
	case FormatWord:
		return MediaTypeWord
	}
	return ""
}

func baseMediaType(mediaType string) string {
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(mediaType); err == nil {
		return mt
	}
	mt, _, _ := strings.Cut(mediaType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}
