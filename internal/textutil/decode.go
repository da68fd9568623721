// Package textutil turns raw document bytes into text and reduces markup
// fragments to readable prose.
package textutil

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrNotText is returned when a buffer cannot be interpreted as text.
var ErrNotText = errors.New("content is not text")

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

// DecodeBytes decodes data as UTF-8, honoring a UTF-8 or UTF-16 byte order
// mark. Invalid UTF-8 and embedded NUL bytes are rejected with ErrNotText.
func DecodeBytes(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		data = data[len(bomUTF8):]
	case bytes.HasPrefix(data, bomUTF16BE), bytes.HasPrefix(data, bomUTF16LE):
		if len(data)%2 != 0 {
			return "", fmt.Errorf("%w: truncated UTF-16 sequence", ErrNotText)
		}
		decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrNotText, err)
		}
		data = decoded
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: invalid UTF-8", ErrNotText)
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return "", fmt.Errorf("%w: contains NUL bytes", ErrNotText)
	}
	return string(data), nil
}
