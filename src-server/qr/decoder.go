package qr

import (
	"errors"
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
)

// ErrNoCode means the frame holds no readable code.
var ErrNoCode = errors.New("no code in frame")

type Decoder interface {
	Decode(img image.Image) (string, error)
}

type ZXingDecoder struct{}

func (ZXingDecoder) Decode(img image.Image) (string, error) {
	if img == nil {
		return "", ErrNoCode
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("ZXingDecoder.Decode: %w", err)
	}
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER:    true,
		gozxing.DecodeHintType_CHARACTER_SET: "UTF-8",
	}
	result, err := zxingqr.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", fmt.Errorf("ZXingDecoder.Decode: %w: %w", ErrNoCode, err)
	}
	return result.GetText(), nil
}
