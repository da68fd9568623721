package document

import (
	"context"

	"github.com/yuanying/narrator/internal/textutil"
)

// TextDecoder decodes plain text files.
type TextDecoder struct{}

func (TextDecoder) Format() Format { return FormatText }

func (TextDecoder) Decode(_ context.Context, src Source) (Document, error) {
	text, err := textutil.DecodeBytes(src.Data)
	if err != nil {
		return Document{}, &DecodeError{Format: FormatText, Err: err}
	}
	return Document{Text: text, Format: FormatText}, nil
}
