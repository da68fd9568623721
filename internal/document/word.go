package document

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	wordBodyPart       = "word/document.xml"
	wordCorePart       = "docProps/core.xml"
	wordprocessingMLNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
)

var ErrWordBodyMissing = errors.New("word/document.xml not found")

// WordDecoder extracts the raw text of a word-processor container:
// paragraphs separated by blank lines, tabs and line breaks preserved.
type WordDecoder struct {
	Logger *slog.Logger
}

func (d *WordDecoder) Format() Format { return FormatWord }

func (d *WordDecoder) Decode(ctx context.Context, src Source) (Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(src.Data), int64(len(src.Data)))
	if err != nil {
		return Document{}, &DecodeError{Format: FormatWord, Err: err}
	}

	body, err := readZipEntry(zr, wordBodyPart)
	if err != nil {
		return Document{}, &DecodeError{Format: FormatWord, Err: err}
	}

	text, err := wordText(ctx, body)
	if err != nil {
		return Document{}, &DecodeError{Format: FormatWord, Err: err}
	}

	doc := Document{Text: text, Format: FormatWord}
	if core, err := readZipEntry(zr, wordCorePart); err == nil {
		props, err := parseCoreProperties(core)
		if err != nil && d.Logger != nil {
			d.Logger.Warn("core properties unreadable",
				slog.String("file", src.Filename),
				slog.String("error", err.Error()),
			)
		}
		doc.Title = props.Title
		doc.Language = props.Language
		if props.Creator != "" {
			doc.Authors = []string{props.Creator}
		}
	}
	return doc, nil
}

// wordText streams the body part, emitting text runs, tabs and breaks.
func wordText(ctx context.Context, body []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var (
		sb     strings.Builder
		inText bool
		runs   int
	)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse %s: %w", wordBodyPart, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if !isWordElement(t.Name) {
				continue
			}
			// Tab stops and breaks outside a run are paragraph formatting.
			switch t.Name.Local {
			case "r":
				runs++
			case "t":
				inText = true
			case "tab":
				if runs > 0 {
					sb.WriteByte('\t')
				}
			case "br", "cr":
				if runs > 0 {
					sb.WriteByte('\n')
				}
			}
		case xml.EndElement:
			if !isWordElement(t.Name) {
				continue
			}
			switch t.Name.Local {
			case "r":
				if runs > 0 {
					runs--
				}
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func isWordElement(name xml.Name) bool {
	return name.Space == wordprocessingMLNS || name.Space == ""
}

type coreProperties struct {
	Title    string `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creator  string `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Language string `xml:"http://purl.org/dc/elements/1.1/ language"`
}

func parseCoreProperties(data []byte) (coreProperties, error) {
	var props coreProperties
	if err := xml.Unmarshal(data, &props); err != nil {
		return coreProperties{}, fmt.Errorf("failed to parse %s: %w", wordCorePart, err)
	}
	props.Title = strings.TrimSpace(props.Title)
	props.Creator = strings.TrimSpace(props.Creator)
	props.Language = strings.TrimSpace(props.Language)
	return props, nil
}

func readZipEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	if name == wordBodyPart {
		return nil, ErrWordBodyMissing
	}
	return nil, fmt.Errorf("%s not found", name)
}
