package computer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg" // some capture tools write JPEG regardless of extension
	"image/png"

	"golang.org/x/image/draw"
)

// EncodeScreenshot fits a captured image to size and returns it as
// base64 PNG. Captures that already match are passed through untouched.
func EncodeScreenshot(data []byte, size Resolution) (string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode screenshot: %w", err)
	}
	if format == "png" && cfg.Width == size.Width && cfg.Height == size.Height {
		return base64.StdEncoding.EncodeToString(data), nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode screenshot: %w", err)
	}
	out := img
	if b := img.Bounds(); b.Dx() != size.Width || b.Dy() != size.Height {
		dst := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, out); err != nil {
		return "", fmt.Errorf("encode screenshot: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
