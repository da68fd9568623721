package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yuanying/narrator/internal/epub"
)

const sectionSeparator = "\n\n"

// EPUBDecoder extracts the readable text of an e-book container in spine
// order. Spine entries that cannot be resolved or read are skipped with a
// warning.
type EPUBDecoder struct {
	Logger *slog.Logger
}

func (d *EPUBDecoder) Format() Format { return FormatEPUB }

func (d *EPUBDecoder) Decode(ctx context.Context, src Source) (Document, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With(slog.String("file", src.Filename))

	archive, opf, err := openPackage(src.Data)
	if err != nil {
		return Document{}, err
	}

	items, missing := opf.ReadingOrder()
	for _, id := range missing {
		logger.Warn("spine item not found in manifest, skipping", slog.String("idref", id))
	}

	var (
		sb       strings.Builder
		sections []Section
	)
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return Document{}, err
		}

		data, err := archive.ReadFile(item.Href)
		if err != nil {
			logger.Warn("spine item unreadable, skipping",
				slog.String("href", item.Href),
				slog.String("error", err.Error()),
			)
			continue
		}

		content, err := epub.LoadContent(item.ID, item.Href, data)
		if err != nil {
			logger.Warn("spine item is not text, skipping",
				slog.String("href", item.Href),
				slog.String("error", err.Error()),
			)
			continue
		}
		if content.Text == "" {
			continue
		}

		if sb.Len() > 0 {
			sb.WriteString(sectionSeparator)
		}
		title := content.Title
		if title == "" {
			title = fmt.Sprintf("Section %d", len(sections)+1)
		}
		sections = append(sections, Section{Title: title, Href: item.Href, Offset: sb.Len()})
		sb.WriteString(content.Text)
	}

	doc := Document{
		Text:     sb.String(),
		Format:   FormatEPUB,
		Title:    opf.Metadata.Title,
		Authors:  opf.Metadata.Authors(),
		Language: opf.Metadata.Language,
		Sections: sections,
	}

	info, image, err := archive.ReadCover(opf)
	switch {
	case err != nil:
		logger.Warn("cover image unreadable", slog.String("href", info.Href), slog.String("error", err.Error()))
	case info != nil:
		doc.Cover = &Cover{Href: info.Href, MediaType: info.MediaType, Data: image}
	}

	if len(sections) == 0 {
		logger.Warn("e-book has no readable spine items")
	}
	return doc, nil
}

// openPackage opens the archive and parses its package document, mapping
// each failure to the container element at fault.
func openPackage(data []byte) (*epub.Archive, *epub.OPF, error) {
	archive, err := epub.OpenBytes(data)
	if err != nil {
		return nil, nil, &InvalidContainerError{Element: "archive", Err: err}
	}

	opfPath, err := archive.FindPackage()
	if err != nil {
		return nil, nil, &InvalidContainerError{Element: "package document", Err: err}
	}

	opfData, err := archive.ReadFile(opfPath)
	if err != nil {
		return nil, nil, &InvalidContainerError{Element: "package document", Err: err}
	}

	opf, err := epub.ParseOPF(opfData, epub.PackageDir(opfPath))
	switch {
	case errors.Is(err, epub.ErrManifestMissing):
		return nil, nil, &InvalidContainerError{Element: "manifest", Err: err}
	case errors.Is(err, epub.ErrSpineMissing):
		return nil, nil, &InvalidContainerError{Element: "spine", Err: err}
	case err != nil:
		return nil, nil, &InvalidContainerError{Element: "package document", Err: err}
	}
	return archive, opf, nil
}

// EPUBInspection describes the structure of an e-book container.
type EPUBInspection struct {
	Package string
	OPF     *epub.OPF
	Files   []string // archive entries in archive order
	Missing []string // manifest ids whose href is absent from the archive
}

// InspectEPUB opens an e-book container and parses its package document.
func InspectEPUB(data []byte) (*EPUBInspection, error) {
	archive, opf, err := openPackage(data)
	if err != nil {
		return nil, err
	}
	opfPath, _ := archive.FindPackage()
	in := &EPUBInspection{Package: opfPath, OPF: opf, Files: archive.Files()}
	for _, id := range opf.ManifestOrder {
		if !archive.Has(opf.Manifest[id].Href) {
			in.Missing = append(in.Missing, id)
		}
	}
	return in, nil
}
