package library

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
)

const (
	defaultThumbnailWidth = 160
	defaultJPEGQuality    = 85
	defaultMaxPixels      = 100 * 1000 * 1000
)

// Thumbnailer scales cover images down for the library listing.
type Thumbnailer struct {
	Width       int
	JPEGQuality int
	MaxPixels   int // decode limit (width * height)
}

// Thumbnail is an encoded, scaled cover image.
type Thumbnail struct {
	Data      []byte
	MediaType string
	Width     int
	Height    int
}

func NewThumbnailer(width int) *Thumbnailer {
	if width <= 0 {
		width = defaultThumbnailWidth
	}
	return &Thumbnailer{
		Width:       width,
		JPEGQuality: defaultJPEGQuality,
		MaxPixels:   defaultMaxPixels,
	}
}

// Make decodes input and returns a thumbnail no wider than t.Width.
// Transparent images stay PNG; everything else becomes JPEG.
func (t *Thumbnailer) Make(input []byte) (Thumbnail, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(input))
	if err != nil {
		return Thumbnail{}, fmt.Errorf("decode cover config: %w", err)
	}
	pixels := uint64(cfg.Width) * uint64(cfg.Height)
	if t.MaxPixels > 0 && pixels > uint64(t.MaxPixels) {
		return Thumbnail{}, fmt.Errorf("cover too large to decode: %dx%d", cfg.Width, cfg.Height)
	}

	src, err := imaging.Decode(bytes.NewReader(input), imaging.AutoOrientation(true))
	if err != nil {
		return Thumbnail{}, fmt.Errorf("decode cover: %w", err)
	}
	img := src
	if t.Width > 0 && src.Bounds().Dx() > t.Width {
		img = imaging.Resize(src, t.Width, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	out := Thumbnail{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}
	if hasAlpha(img) {
		encoder := png.Encoder{CompressionLevel: png.BestCompression}
		if err := encoder.Encode(&buf, img); err != nil {
			return Thumbnail{}, fmt.Errorf("png encode failed: %w", err)
		}
		out.MediaType = "image/png"
	} else {
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: t.JPEGQuality}); err != nil {
			return Thumbnail{}, fmt.Errorf("jpeg encode failed: %w", err)
		}
		out.MediaType = "image/jpeg"
	}
	out.Data = buf.Bytes()
	return out, nil
}

func hasAlpha(img image.Image) bool {
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a < 0xFFFF {
				return true
			}
		}
	}
	return false
}
