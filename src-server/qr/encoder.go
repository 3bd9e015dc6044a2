package qr

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
	skipqr "github.com/skip2/go-qrcode"
)

// SurfaceSize is the edge of the drawing surface every code is rendered on.
const SurfaceSize = 256

var ErrEmptyContent = errors.New("nothing to encode")

type Encoder interface {
	Name() string
	Encode(content string, size int) (image.Image, error)
}

// SkipEncoder renders with skip2/go-qrcode at medium error correction.
type SkipEncoder struct{}

func (SkipEncoder) Name() string { return "go-qrcode" }

func (SkipEncoder) Encode(content string, size int) (image.Image, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	q, err := skipqr.New(content, skipqr.Medium)
	if err != nil {
		return nil, fmt.Errorf("SkipEncoder.Encode: %w", err)
	}
	return q.Image(size), nil
}

// ZXingEncoder renders with the gozxing QR writer.
type ZXingEncoder struct{}

func (ZXingEncoder) Name() string { return "gozxing" }

func (ZXingEncoder) Encode(content string, size int) (image.Image, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}
	hints := map[gozxing.EncodeHintType]interface{}{
		gozxing.EncodeHintType_ERROR_CORRECTION: "M",
		gozxing.EncodeHintType_MARGIN:           2,
		gozxing.EncodeHintType_CHARACTER_SET:    "UTF-8",
	}
	matrix, err := zxingqr.NewQRCodeWriter().Encode(content, gozxing.BarcodeFormat_QR_CODE, size, size, hints)
	if err != nil {
		return nil, fmt.Errorf("ZXingEncoder.Encode: %w", err)
	}
	return matrix, nil
}

// Rendered is the drawing surface after a Chain run. Degraded is set when
// no encoder succeeded and the surface holds the placeholder.
type Rendered struct {
	Image    *image.RGBA
	Encoder  string
	Degraded bool
}

// Chain tries each encoder in order and stops at the first success.
type Chain struct {
	Encoders []Encoder
	Size     int
}

func DefaultChain() Chain {
	return Chain{
		Encoders: []Encoder{SkipEncoder{}, ZXingEncoder{}},
		Size:     SurfaceSize,
	}
}

// Render never fails: when every encoder fails the surface carries the
// degraded placeholder instead.
func (c Chain) Render(content string) Rendered {
	size := c.Size
	if size <= 0 {
		size = SurfaceSize
	}
	surface := image.NewRGBA(image.Rect(0, 0, size, size))

	for _, enc := range c.Encoders {
		if enc == nil {
			continue
		}
		img, err := encodeSafely(enc, content, size)
		if err != nil {
			slog.Warn("qr encoder failed, trying next", "encoder", enc.Name(), "error", err)
			continue
		}
		draw.Draw(surface, surface.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
		draw.Draw(surface, fitRect(img.Bounds(), size), img, img.Bounds().Min, draw.Src)
		return Rendered{Image: surface, Encoder: enc.Name()}
	}

	slog.Error("every qr encoder failed, drawing placeholder")
	drawPlaceholder(surface)
	return Rendered{Image: surface, Encoder: "placeholder", Degraded: true}
}

func encodeSafely(enc Encoder, content string, size int) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("encoder panicked: %v", r)
		}
	}()
	img, err = enc.Encode(content, size)
	if err == nil && img == nil {
		err = errors.New("encoder returned no image")
	}
	return img, err
}

// fitRect centres src on a size x size surface.
func fitRect(src image.Rectangle, size int) image.Rectangle {
	w, h := min(src.Dx(), size), min(src.Dy(), size)
	x, y := (size-w)/2, (size-h)/2
	return image.Rect(x, y, x+w, y+h)
}

var (
	placeholderBackground = color.RGBA{0xF8, 0xF9, 0xFA, 0xFF}
	placeholderInk        = color.RGBA{0x6C, 0x75, 0x7D, 0xFF}
)

// drawPlaceholder paints a grey card with a thick border and diagonal
// hatching, which no scanner mistakes for a code.
func drawPlaceholder(surface *image.RGBA) {
	b := surface.Bounds()
	draw.Draw(surface, b, &image.Uniform{C: placeholderBackground}, image.Point{}, draw.Src)
	const border = 8
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			edge := x < border || y < border || x >= b.Max.X-border || y >= b.Max.Y-border
			stripe := (x+y)%32 < 4
			if edge || stripe {
				surface.Set(x, y, placeholderInk)
			}
		}
	}
}
