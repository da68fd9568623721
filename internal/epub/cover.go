package epub

import (
	"path"
	"strings"
)

// CoverInfo holds information about the detected cover image.
type CoverInfo struct {
	ManifestID      string
	Href            string
	MediaType       string
	DetectionMethod string // "properties", "meta", "guide", "filename"
}

// DetectCover detects the cover image from the OPF manifest. Methods are
// tried in priority order:
//  1. properties="cover-image" (EPUB 3.0)
//  2. meta name="cover" (EPUB 2.0)
//  3. guide type="cover" pointing directly at an image item
//  4. filename pattern (basename contains "cover", SVG excluded)
//
// Returns nil if no cover image is found.
func (opf *OPF) DetectCover() *CoverInfo {
	detectors := []struct {
		method string
		find   func() (ManifestItem, bool)
	}{
		{"properties", opf.coverByProperty},
		{"meta", opf.coverByMeta},
		{"guide", opf.coverByGuide},
		{"filename", opf.coverByFilename},
	}
	for _, d := range detectors {
		if item, ok := d.find(); ok {
			return &CoverInfo{
				ManifestID:      item.ID,
				Href:            item.Href,
				MediaType:       item.MediaType,
				DetectionMethod: d.method,
			}
		}
	}
	return nil
}

// FindCoverImage returns the href of the detected cover image.
func (opf *OPF) FindCoverImage() (string, bool) {
	if c := opf.DetectCover(); c != nil {
		return c.Href, true
	}
	return "", false
}

// ReadCover loads the bytes of the detected cover image from the archive.
func (a *Archive) ReadCover(opf *OPF) (*CoverInfo, []byte, error) {
	info := opf.DetectCover()
	if info == nil {
		return nil, nil, nil
	}
	data, err := a.ReadFile(info.Href)
	if err != nil {
		return info, nil, err
	}
	return info, data, nil
}

func (opf *OPF) coverByProperty() (ManifestItem, bool) {
	for _, id := range opf.ManifestOrder {
		item := opf.Manifest[id]
		for _, prop := range item.Properties {
			if prop == "cover-image" {
				return item, true
			}
		}
	}
	return ManifestItem{}, false
}

func (opf *OPF) coverByMeta() (ManifestItem, bool) {
	if opf.Metadata.CoverID == "" {
		return ManifestItem{}, false
	}
	item, ok := opf.Manifest[opf.Metadata.CoverID]
	return item, ok
}

func (opf *OPF) coverByGuide() (ManifestItem, bool) {
	for _, ref := range opf.Guide {
		if ref.Type != "cover" {
			continue
		}
		href := ref.Href
		if idx := strings.Index(href, "#"); idx >= 0 {
			href = href[:idx]
		}
		for _, id := range opf.ManifestOrder {
			item := opf.Manifest[id]
			if isImageMediaType(item.MediaType) && item.Href == href {
				return item, true
			}
		}
	}
	return ManifestItem{}, false
}

func (opf *OPF) coverByFilename() (ManifestItem, bool) {
	for _, id := range opf.ManifestOrder {
		item := opf.Manifest[id]
		if !isImageMediaType(item.MediaType) {
			continue
		}
		if strings.Contains(strings.ToLower(path.Base(item.Href)), "cover") {
			return item, true
		}
	}
	return ManifestItem{}, false
}

// isImageMediaType checks if a media type is a raster image (SVG excluded).
func isImageMediaType(mediaType string) bool {
	if mediaType == "image/svg+xml" {
		return false
	}
	return strings.HasPrefix(mediaType, "image/")
}
