package captcha

import (
	"bytes"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// DisplayWidth is the width the challenge image is scaled to before being
// handed to the operator channel.
const DisplayWidth = 180

// Downscale resizes a PNG to at most maxWidth, preserving aspect ratio. If
// the image is already small enough, or cannot be decoded or re-encoded, the
// original bytes are returned untouched.
func Downscale(data []byte, maxWidth int) []byte {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}

	bounds := src.Bounds()
	if bounds.Dx() <= maxWidth || maxWidth <= 0 {
		return data
	}

	height := bounds.Dy() * maxWidth / bounds.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return data
	}
	return buf.Bytes()
}
